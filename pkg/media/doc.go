// Package media содержит объекты данных медиа-сессий и браузера.
//
// Протоколы слоя совместимости передают эти объекты как непрозрачную нагрузку:
// каждый тип реализует binder.Parcelable и регистрирует Creator при загрузке
// пакета, поэтому Bundle может хранить их и восстанавливать лениво.
//
// # Основные типы
//
//   - MediaDescription и MediaItem - элементы дерева браузера
//   - QueueItem - элемент очереди воспроизведения
//   - Metadata - метаданные текущего элемента
//   - PlaybackState и CustomAction - состояние воспроизведения
//   - Rating, VolumeInfo, KeyEvent, PendingIntent - значения команд сессии
//
// # Пример
//
//	item, err := media.NewMediaItem(&media.MediaDescription{
//	    MediaID: "track-1",
//	    Title:   "Track 1",
//	}, media.FlagPlayable)
//	if err != nil {
//	    return err
//	}
//	data := binder.NewBundle()
//	data.PutParcelable("item", item)
//
// Нулевой MediaDescription или пустой MediaID недопустимы: NewMediaItem
// возвращает ошибку, а не элемент без идентификатора.
//
// # Позиция воспроизведения
//
// PlaybackState.UpdateTime хранит время обновления позиции по монотонным часам
// платформы. Текущую позицию получатель вычисляет сам по Speed и прошедшему
// времени.
package media
