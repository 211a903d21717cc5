package media

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arzzra/media_compat/pkg/binder"
)

func TestNewMediaItem(t *testing.T) {
	tests := []struct {
		name    string
		desc    *MediaDescription
		wantErr bool
	}{
		{name: "Валидный элемент", desc: &MediaDescription{MediaID: "id"}},
		{name: "Нет описания", desc: nil, wantErr: true},
		{name: "Пустой media id", desc: &MediaDescription{Title: "t"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := NewMediaItem(tt.desc, FlagPlayable)
			if tt.wantErr {
				assert.True(t, errors.Is(err, binder.ErrIllegalArgument))
				return
			}
			require.NoError(t, err)
			assert.True(t, item.IsPlayable())
			assert.False(t, item.IsBrowsable())
		})
	}
}

func TestNewQueueItem_RejectsUnknownID(t *testing.T) {
	_, err := NewQueueItem(&MediaDescription{MediaID: "a"}, UnknownID)
	assert.True(t, errors.Is(err, binder.ErrIllegalArgument))

	item, err := NewQueueItem(&MediaDescription{MediaID: "a"}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), item.ID)
}

func TestMediaItems_InBundle(t *testing.T) {
	a, _ := NewMediaItem(&MediaDescription{MediaID: "a", Title: "A"}, FlagBrowsable)
	b, _ := NewMediaItem(&MediaDescription{MediaID: "b"}, FlagPlayable)

	bundle := binder.NewBundle()
	bundle.PutParcelableList("items", MediaItemsToParcelables([]*MediaItem{a, b}))
	bundle.PutParcelable("state", &PlaybackState{State: StatePlaying, Position: 10, Speed: 1})
	bundle.PutParcelable("meta", NewMetadataBuilder().PutLong(MetadataKeyDuration, 1000).Build())

	p := binder.Transfer(nil, func(p *binder.Parcel) { p.WriteBundle(bundle) })
	defer p.Recycle()
	got := p.ReadBundle()
	require.NoError(t, got.Unparcel())

	items := MediaItemsFromParcelables(got.GetParcelableList("items"))
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].MediaID())
	assert.Equal(t, "A", items[0].Description.Title)
	assert.True(t, items[1].IsPlayable())

	state := got.GetParcelable("state").(*PlaybackState)
	assert.Equal(t, StatePlaying, state.State)
	assert.Equal(t, int64(10), state.Position)
	assert.Equal(t, int64(1000), got.GetParcelable("meta").(*Metadata).GetLong(MetadataKeyDuration))
}

func TestReadMediaItem_CorruptID(t *testing.T) {
	p := binder.Obtain()
	defer p.Recycle()
	(&MediaItem{Flags: FlagPlayable, Description: &MediaDescription{}}).WriteToParcel(p)
	p.SetPosition(0)

	assert.Nil(t, ReadMediaItem(p))
	assert.True(t, errors.Is(p.Err(), binder.ErrBadParcelable))
}
