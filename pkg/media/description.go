package media

import (
	"github.com/pkg/errors"

	"github.com/arzzra/media_compat/pkg/binder"
)

const (
	descriptionParcelable = "android.support.v4.media.MediaDescriptionCompat"
	mediaItemParcelable   = "android.support.v4.media.MediaBrowserCompat$MediaItem"
	queueItemParcelable   = "android.support.v4.media.session.MediaSessionCompat$QueueItem"
)

// Флаги MediaItem
const (
	FlagBrowsable = 1 << 0
	FlagPlayable  = 1 << 1
)

// UnknownID зарезервированный id элемента очереди, который нельзя назначать
const UnknownID int64 = -1

func init() {
	binder.RegisterCreator(descriptionParcelable, func(p *binder.Parcel) binder.Parcelable {
		return ReadMediaDescription(p)
	})
	binder.RegisterCreator(mediaItemParcelable, func(p *binder.Parcel) binder.Parcelable {
		if item := ReadMediaItem(p); item != nil {
			return item
		}
		return nil
	})
	binder.RegisterCreator(queueItemParcelable, func(p *binder.Parcel) binder.Parcelable {
		if item := ReadQueueItem(p); item != nil {
			return item
		}
		return nil
	})
}

// MediaDescription описание элемента медиа
type MediaDescription struct {
	MediaID     string
	Title       string
	Subtitle    string
	Description string
	IconURI     string
	MediaURI    string
	Extras      *binder.Bundle
}

func (d *MediaDescription) ParcelableName() string { return descriptionParcelable }

func (d *MediaDescription) WriteToParcel(p *binder.Parcel) {
	p.WriteString(d.MediaID)
	p.WriteCharSequence(d.Title)
	p.WriteCharSequence(d.Subtitle)
	p.WriteCharSequence(d.Description)
	p.WriteString(d.IconURI)
	p.WriteString(d.MediaURI)
	p.WriteBundle(d.Extras)
}

// ReadMediaDescription читает описание, записанное WriteToParcel
func ReadMediaDescription(p *binder.Parcel) *MediaDescription {
	return &MediaDescription{
		MediaID:     p.ReadString(),
		Title:       p.ReadCharSequence(),
		Subtitle:    p.ReadCharSequence(),
		Description: p.ReadCharSequence(),
		IconURI:     p.ReadString(),
		MediaURI:    p.ReadString(),
		Extras:      p.ReadBundle(),
	}
}

// MediaItem элемент иерархии браузера
type MediaItem struct {
	Flags       int
	Description *MediaDescription
}

// NewMediaItem проверяет, что у описания есть media id
func NewMediaItem(desc *MediaDescription, flags int) (*MediaItem, error) {
	if desc == nil {
		return nil, errors.Wrap(binder.ErrIllegalArgument, "description cannot be null")
	}
	if desc.MediaID == "" {
		return nil, errors.Wrap(binder.ErrIllegalArgument, "description must have a non-empty media id")
	}
	return &MediaItem{Flags: flags, Description: desc}, nil
}

func (i *MediaItem) MediaID() string        { return i.Description.MediaID }
func (i *MediaItem) IsBrowsable() bool      { return i.Flags&FlagBrowsable != 0 }
func (i *MediaItem) IsPlayable() bool       { return i.Flags&FlagPlayable != 0 }
func (i *MediaItem) ParcelableName() string { return mediaItemParcelable }

func (i *MediaItem) WriteToParcel(p *binder.Parcel) {
	p.WriteInt32(int32(i.Flags))
	i.Description.WriteToParcel(p)
}

// ReadMediaItem читает элемент; элемент без media id считается поврежденным
func ReadMediaItem(p *binder.Parcel) *MediaItem {
	flags := int(p.ReadInt32())
	desc := ReadMediaDescription(p)
	if p.Err() != nil {
		return nil
	}
	item, err := NewMediaItem(desc, flags)
	if err != nil {
		p.Fail(errors.Wrap(binder.ErrBadParcelable, err.Error()))
		return nil
	}
	return item
}

// MediaItemsToParcelables готовит список для Bundle
func MediaItemsToParcelables(items []*MediaItem) []binder.Parcelable {
	if items == nil {
		return nil
	}
	out := make([]binder.Parcelable, 0, len(items))
	for _, it := range items {
		out = append(out, it)
	}
	return out
}

// MediaItemsFromParcelables извлекает элементы из списка Bundle
func MediaItemsFromParcelables(list []binder.Parcelable) []*MediaItem {
	if list == nil {
		return nil
	}
	out := make([]*MediaItem, 0, len(list))
	for _, v := range list {
		if it, ok := v.(*MediaItem); ok {
			out = append(out, it)
		}
	}
	return out
}

// QueueItem элемент очереди воспроизведения
type QueueItem struct {
	ID          int64
	Description *MediaDescription
}

// NewQueueItem создает элемент; id UnknownID запрещен
func NewQueueItem(desc *MediaDescription, id int64) (*QueueItem, error) {
	if desc == nil {
		return nil, errors.Wrap(binder.ErrIllegalArgument, "description cannot be null")
	}
	if id == UnknownID {
		return nil, errors.Wrap(binder.ErrIllegalArgument, "id cannot be QueueItem.UNKNOWN_ID")
	}
	return &QueueItem{ID: id, Description: desc}, nil
}

func (q *QueueItem) ParcelableName() string { return queueItemParcelable }

func (q *QueueItem) WriteToParcel(p *binder.Parcel) {
	q.Description.WriteToParcel(p)
	p.WriteInt64(q.ID)
}

func ReadQueueItem(p *binder.Parcel) *QueueItem {
	desc := ReadMediaDescription(p)
	id := p.ReadInt64()
	if p.Err() != nil {
		return nil
	}
	item, err := NewQueueItem(desc, id)
	if err != nil {
		p.Fail(errors.Wrap(binder.ErrBadParcelable, err.Error()))
		return nil
	}
	return item
}
