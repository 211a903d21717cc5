package media

import (
	"github.com/arzzra/media_compat/pkg/binder"
)

const metadataParcelable = "android.support.v4.media.MediaMetadataCompat"

// Ключи метаданных
const (
	MetadataKeyMediaID  = "android.media.metadata.MEDIA_ID"
	MetadataKeyTitle    = "android.media.metadata.TITLE"
	MetadataKeyArtist   = "android.media.metadata.ARTIST"
	MetadataKeyAlbum    = "android.media.metadata.ALBUM"
	MetadataKeyDuration = "android.media.metadata.DURATION"
)

func init() {
	binder.RegisterCreator(metadataParcelable, func(p *binder.Parcel) binder.Parcelable {
		return ReadMetadata(p)
	})
}

// Metadata метаданные текущего элемента поверх Bundle
type Metadata struct {
	bundle *binder.Bundle
}

// MetadataBuilder собирает Metadata
type MetadataBuilder struct {
	bundle *binder.Bundle
}

func NewMetadataBuilder() *MetadataBuilder {
	return &MetadataBuilder{bundle: binder.NewBundle()}
}

func (b *MetadataBuilder) PutString(key, value string) *MetadataBuilder {
	b.bundle.PutCharSequence(key, value)
	return b
}

func (b *MetadataBuilder) PutLong(key string, value int64) *MetadataBuilder {
	b.bundle.PutLong(key, value)
	return b
}

func (b *MetadataBuilder) Build() *Metadata {
	return &Metadata{bundle: b.bundle.Copy()}
}

func (m *Metadata) ContainsKey(key string) bool {
	return m != nil && m.bundle.ContainsKey(key)
}

// GetLong возвращает значение или 0
func (m *Metadata) GetLong(key string) int64 {
	if m == nil {
		return 0
	}
	return m.bundle.GetLong(key, 0)
}

func (m *Metadata) GetString(key string) string {
	if m == nil {
		return ""
	}
	return m.bundle.GetString(key)
}

// Bundle возвращает копию содержимого
func (m *Metadata) Bundle() *binder.Bundle {
	if m == nil {
		return nil
	}
	return m.bundle.Copy()
}

func (m *Metadata) ParcelableName() string { return metadataParcelable }

func (m *Metadata) WriteToParcel(p *binder.Parcel) {
	p.WriteBundle(m.bundle)
}

func ReadMetadata(p *binder.Parcel) *Metadata {
	b := p.ReadBundle()
	if b == nil {
		b = binder.NewBundle()
	}
	return &Metadata{bundle: b}
}
