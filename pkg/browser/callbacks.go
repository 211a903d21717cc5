package browser

import (
	"github.com/arzzra/media_compat/pkg/binder"
	"github.com/arzzra/media_compat/pkg/media"
)

// ConnectionCallback события подключения
type ConnectionCallback interface {
	OnConnected()
	// OnConnectionSuspended процесс сервиса завершился; можно подключиться снова
	OnConnectionSuspended()
	OnConnectionFailed()
}

// SubscriptionCallback события подписки.
// Реализация должна быть сравнимой: отписка ищет callback по ==.
type SubscriptionCallback interface {
	OnChildrenLoaded(parentID string, children []*media.MediaItem, options *binder.Bundle)
	OnError(parentID string, options *binder.Bundle)
}

// ItemCallback результат GetItem
type ItemCallback interface {
	OnItemLoaded(item *media.MediaItem)
	OnError(itemID string)
}

// SearchCallback результат Search
type SearchCallback interface {
	OnSearchResult(query string, extras *binder.Bundle, items []*media.MediaItem)
	OnError(query string, extras *binder.Bundle)
}

// CustomActionCallback результат SendCustomAction.
// OnProgressUpdate может приходить несколько раз до OnResult или OnError.
type CustomActionCallback interface {
	OnProgressUpdate(action string, extras, data *binder.Bundle)
	OnResult(action string, extras, data *binder.Bundle)
	OnError(action string, extras, data *binder.Bundle)
}

// BaseConnectionCallback пустая реализация ConnectionCallback
type BaseConnectionCallback struct{}

func (BaseConnectionCallback) OnConnected()           {}
func (BaseConnectionCallback) OnConnectionSuspended() {}
func (BaseConnectionCallback) OnConnectionFailed()    {}
