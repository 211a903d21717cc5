package media

import (
	"github.com/arzzra/media_compat/pkg/binder"
)

const (
	playbackStateParcelable = "android.support.v4.media.session.PlaybackStateCompat"
	customActionParcelable  = "android.support.v4.media.session.PlaybackStateCompat$CustomAction"
)

// Состояния воспроизведения
const (
	StateNone                = 0
	StateStopped             = 1
	StatePaused              = 2
	StatePlaying             = 3
	StateFastForwarding      = 4
	StateRewinding           = 5
	StateBuffering           = 6
	StateError               = 7
	StateConnecting          = 8
	StateSkippingToPrevious  = 9
	StateSkippingToNext      = 10
	StateSkippingToQueueItem = 11
)

// PlaybackPositionUnknown позиция неизвестна
const PlaybackPositionUnknown int64 = -1

// Доступные действия
const (
	ActionStop                 int64 = 1 << 0
	ActionPause                int64 = 1 << 1
	ActionPlay                 int64 = 1 << 2
	ActionRewind               int64 = 1 << 3
	ActionSkipToPrevious       int64 = 1 << 4
	ActionSkipToNext           int64 = 1 << 5
	ActionFastForward          int64 = 1 << 6
	ActionSetRating            int64 = 1 << 7
	ActionSeekTo               int64 = 1 << 8
	ActionPlayPause            int64 = 1 << 9
	ActionPlayFromMediaID      int64 = 1 << 10
	ActionPlayFromSearch       int64 = 1 << 11
	ActionSkipToQueueItem      int64 = 1 << 12
	ActionPlayFromURI          int64 = 1 << 13
	ActionPrepare              int64 = 1 << 14
	ActionPrepareFromMediaID   int64 = 1 << 15
	ActionPrepareFromSearch    int64 = 1 << 16
	ActionPrepareFromURI       int64 = 1 << 17
	ActionSetRepeatMode        int64 = 1 << 18
	ActionSetCaptioningEnabled int64 = 1 << 20
	ActionSetShuffleMode       int64 = 1 << 21
	ActionSetPlaybackSpeed     int64 = 1 << 22
)

// Режимы повтора
const (
	RepeatModeInvalid = -1
	RepeatModeNone    = 0
	RepeatModeOne     = 1
	RepeatModeAll     = 2
	RepeatModeGroup   = 3
)

// Режимы перемешивания
const (
	ShuffleModeInvalid = -1
	ShuffleModeNone    = 0
	ShuffleModeAll     = 1
	ShuffleModeGroup   = 2
)

func init() {
	binder.RegisterCreator(playbackStateParcelable, func(p *binder.Parcel) binder.Parcelable {
		return ReadPlaybackState(p)
	})
	binder.RegisterCreator(customActionParcelable, func(p *binder.Parcel) binder.Parcelable {
		return ReadCustomAction(p)
	})
}

// CustomAction пользовательское действие в состоянии воспроизведения
type CustomAction struct {
	Action string
	Name   string
	Icon   int
	Extras *binder.Bundle
}

func (a *CustomAction) ParcelableName() string { return customActionParcelable }

func (a *CustomAction) WriteToParcel(p *binder.Parcel) {
	p.WriteString(a.Action)
	p.WriteCharSequence(a.Name)
	p.WriteInt32(int32(a.Icon))
	p.WriteBundle(a.Extras)
}

func ReadCustomAction(p *binder.Parcel) *CustomAction {
	return &CustomAction{
		Action: p.ReadString(),
		Name:   p.ReadCharSequence(),
		Icon:   int(p.ReadInt32()),
		Extras: p.ReadBundle(),
	}
}

// PlaybackState состояние воспроизведения.
// UpdateTime время последнего обновления позиции в миллисекундах монотонных часов платформы.
type PlaybackState struct {
	State            int
	Position         int64
	BufferedPosition int64
	Speed            float32
	Actions          int64
	ErrorCode        int
	ErrorMessage     string
	UpdateTime       int64
	CustomActions    []*CustomAction
	ActiveItemID     int64
	Extras           *binder.Bundle
}

// Copy возвращает независимую копию
func (s *PlaybackState) Copy() *PlaybackState {
	if s == nil {
		return nil
	}
	c := *s
	c.CustomActions = append([]*CustomAction(nil), s.CustomActions...)
	c.Extras = s.Extras.Copy()
	return &c
}

func (s *PlaybackState) ParcelableName() string { return playbackStateParcelable }

func (s *PlaybackState) WriteToParcel(p *binder.Parcel) {
	p.WriteInt32(int32(s.State))
	p.WriteInt64(s.Position)
	p.WriteFloat32(s.Speed)
	p.WriteInt64(s.UpdateTime)
	p.WriteInt64(s.BufferedPosition)
	p.WriteInt64(s.Actions)
	p.WriteCharSequence(s.ErrorMessage)
	binder.WriteTypedList(p, s.CustomActions)
	p.WriteInt64(s.ActiveItemID)
	p.WriteBundle(s.Extras)
	p.WriteInt32(int32(s.ErrorCode))
}

func ReadPlaybackState(p *binder.Parcel) *PlaybackState {
	s := &PlaybackState{}
	s.State = int(p.ReadInt32())
	s.Position = p.ReadInt64()
	s.Speed = p.ReadFloat32()
	s.UpdateTime = p.ReadInt64()
	s.BufferedPosition = p.ReadInt64()
	s.Actions = p.ReadInt64()
	s.ErrorMessage = p.ReadCharSequence()
	s.CustomActions = binder.ReadTypedList(p, ReadCustomAction)
	s.ActiveItemID = p.ReadInt64()
	s.Extras = p.ReadBundle()
	s.ErrorCode = int(p.ReadInt32())
	return s
}
