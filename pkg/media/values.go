package media

import (
	"github.com/arzzra/media_compat/pkg/binder"
)

const (
	ratingParcelable        = "android.support.v4.media.RatingCompat"
	volumeInfoParcelable    = "android.support.v4.media.session.ParcelableVolumeInfo"
	keyEventParcelable      = "android.view.KeyEvent"
	pendingIntentParcelable = "android.app.PendingIntent"
)

// Стили рейтинга
const (
	RatingNone        = 0
	RatingHeart       = 1
	RatingThumbUpDown = 2
	Rating3Stars      = 3
	Rating4Stars      = 4
	Rating5Stars      = 5
	RatingPercentage  = 6
)

// Типы громкости и управления
const (
	PlaybackTypeLocal  = 1
	PlaybackTypeRemote = 2

	VolumeControlFixed    = 0
	VolumeControlRelative = 1
	VolumeControlAbsolute = 2
)

// Коды клавиш, которые обрабатывает сессия
const (
	KeyActionDown = 0
	KeyActionUp   = 1

	KeyCodeHeadsetHook      = 79
	KeyCodeMediaPlayPause   = 85
	KeyCodeMediaStop        = 86
	KeyCodeMediaNext        = 87
	KeyCodeMediaPrevious    = 88
	KeyCodeMediaRewind      = 89
	KeyCodeMediaFastForward = 90
	KeyCodeMediaPlay        = 126
	KeyCodeMediaPause       = 127
)

func init() {
	binder.RegisterCreator(ratingParcelable, func(p *binder.Parcel) binder.Parcelable { return ReadRating(p) })
	binder.RegisterCreator(volumeInfoParcelable, func(p *binder.Parcel) binder.Parcelable { return ReadVolumeInfo(p) })
	binder.RegisterCreator(keyEventParcelable, func(p *binder.Parcel) binder.Parcelable { return ReadKeyEvent(p) })
	binder.RegisterCreator(pendingIntentParcelable, func(p *binder.Parcel) binder.Parcelable { return ReadPendingIntent(p) })
}

// Rating оценка элемента
type Rating struct {
	Style int
	Value float32
}

func (r *Rating) ParcelableName() string { return ratingParcelable }

func (r *Rating) WriteToParcel(p *binder.Parcel) {
	p.WriteInt32(int32(r.Style))
	p.WriteFloat32(r.Value)
}

func ReadRating(p *binder.Parcel) *Rating {
	return &Rating{Style: int(p.ReadInt32()), Value: p.ReadFloat32()}
}

// VolumeInfo параметры громкости сессии
type VolumeInfo struct {
	VolumeType    int
	AudioStream   int
	ControlType   int
	MaxVolume     int
	CurrentVolume int
}

func (v *VolumeInfo) ParcelableName() string { return volumeInfoParcelable }

func (v *VolumeInfo) WriteToParcel(p *binder.Parcel) {
	p.WriteInt32(int32(v.VolumeType))
	p.WriteInt32(int32(v.ControlType))
	p.WriteInt32(int32(v.MaxVolume))
	p.WriteInt32(int32(v.CurrentVolume))
	p.WriteInt32(int32(v.AudioStream))
}

func ReadVolumeInfo(p *binder.Parcel) *VolumeInfo {
	v := &VolumeInfo{}
	v.VolumeType = int(p.ReadInt32())
	v.ControlType = int(p.ReadInt32())
	v.MaxVolume = int(p.ReadInt32())
	v.CurrentVolume = int(p.ReadInt32())
	v.AudioStream = int(p.ReadInt32())
	return v
}

// KeyEvent событие медиа-кнопки
type KeyEvent struct {
	Action      int
	KeyCode     int
	RepeatCount int
}

func (k *KeyEvent) ParcelableName() string { return keyEventParcelable }

func (k *KeyEvent) WriteToParcel(p *binder.Parcel) {
	p.WriteInt32(int32(k.Action))
	p.WriteInt32(int32(k.KeyCode))
	p.WriteInt32(int32(k.RepeatCount))
}

func ReadKeyEvent(p *binder.Parcel) *KeyEvent {
	return &KeyEvent{
		Action:      int(p.ReadInt32()),
		KeyCode:     int(p.ReadInt32()),
		RepeatCount: int(p.ReadInt32()),
	}
}

// PendingIntent ссылка на активити, которое открывает сессию
type PendingIntent struct {
	Target string
}

func (i *PendingIntent) ParcelableName() string { return pendingIntentParcelable }

func (i *PendingIntent) WriteToParcel(p *binder.Parcel) {
	p.WriteString(i.Target)
}

func ReadPendingIntent(p *binder.Parcel) *PendingIntent {
	return &PendingIntent{Target: p.ReadString()}
}
