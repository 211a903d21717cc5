package aidl

import (
	"context"

	"github.com/arzzra/media_compat/pkg/binder"
	"github.com/arzzra/media_compat/pkg/looper"
	"github.com/arzzra/media_compat/pkg/media"
)

// BaseMediaSession реализация MediaSession, возвращающая нулевые значения.
// Удобна для встраивания в запасные реализации и тестовые заглушки.
type BaseMediaSession struct{}

var _ MediaSession = BaseMediaSession{}

func (BaseMediaSession) SendCommand(context.Context, string, *binder.Bundle, *looper.ResultReceiver) error {
	return nil
}
func (BaseMediaSession) SendMediaButton(context.Context, *media.KeyEvent) (bool, error) {
	return false, nil
}
func (BaseMediaSession) RegisterCallbackListener(context.Context, IMediaControllerCallback) error {
	return nil
}
func (BaseMediaSession) UnregisterCallbackListener(context.Context, IMediaControllerCallback) error {
	return nil
}
func (BaseMediaSession) IsTransportControlEnabled(context.Context) (bool, error) { return false, nil }
func (BaseMediaSession) GetPackageName(context.Context) (string, error)          { return "", nil }
func (BaseMediaSession) GetTag(context.Context) (string, error)                  { return "", nil }
func (BaseMediaSession) GetLaunchPendingIntent(context.Context) (*media.PendingIntent, error) {
	return nil, nil
}
func (BaseMediaSession) GetFlags(context.Context) (int64, error) { return 0, nil }
func (BaseMediaSession) GetVolumeAttributes(context.Context) (*media.VolumeInfo, error) {
	return nil, nil
}
func (BaseMediaSession) AdjustVolume(context.Context, int, int, string) error { return nil }
func (BaseMediaSession) SetVolumeTo(context.Context, int, int, string) error  { return nil }
func (BaseMediaSession) GetMetadata(context.Context) (*media.Metadata, error) { return nil, nil }
func (BaseMediaSession) GetPlaybackState(context.Context) (*media.PlaybackState, error) {
	return nil, nil
}
func (BaseMediaSession) GetQueue(context.Context) ([]*media.QueueItem, error)        { return nil, nil }
func (BaseMediaSession) GetQueueTitle(context.Context) (string, error)               { return "", nil }
func (BaseMediaSession) GetExtras(context.Context) (*binder.Bundle, error)           { return nil, nil }
func (BaseMediaSession) GetRatingType(context.Context) (int, error)                  { return 0, nil }
func (BaseMediaSession) IsCaptioningEnabled(context.Context) (bool, error)           { return false, nil }
func (BaseMediaSession) GetRepeatMode(context.Context) (int, error)                  { return 0, nil }
func (BaseMediaSession) IsShuffleModeEnabledRemoved(context.Context) (bool, error)   { return false, nil }
func (BaseMediaSession) GetShuffleMode(context.Context) (int, error)                 { return 0, nil }
func (BaseMediaSession) AddQueueItem(context.Context, *media.MediaDescription) error { return nil }
func (BaseMediaSession) AddQueueItemAt(context.Context, *media.MediaDescription, int) error {
	return nil
}
func (BaseMediaSession) RemoveQueueItem(context.Context, *media.MediaDescription) error   { return nil }
func (BaseMediaSession) RemoveQueueItemAt(context.Context, int) error                     { return nil }
func (BaseMediaSession) GetSessionInfo(context.Context) (*binder.Bundle, error)           { return nil, nil }
func (BaseMediaSession) Prepare(context.Context) error                                    { return nil }
func (BaseMediaSession) PrepareFromMediaID(context.Context, string, *binder.Bundle) error { return nil }
func (BaseMediaSession) PrepareFromSearch(context.Context, string, *binder.Bundle) error  { return nil }
func (BaseMediaSession) PrepareFromURI(context.Context, string, *binder.Bundle) error     { return nil }
func (BaseMediaSession) Play(context.Context) error                                       { return nil }
func (BaseMediaSession) PlayFromMediaID(context.Context, string, *binder.Bundle) error    { return nil }
func (BaseMediaSession) PlayFromSearch(context.Context, string, *binder.Bundle) error     { return nil }
func (BaseMediaSession) PlayFromURI(context.Context, string, *binder.Bundle) error        { return nil }
func (BaseMediaSession) SkipToQueueItem(context.Context, int64) error                     { return nil }
func (BaseMediaSession) Pause(context.Context) error                                      { return nil }
func (BaseMediaSession) Stop(context.Context) error                                       { return nil }
func (BaseMediaSession) Next(context.Context) error                                       { return nil }
func (BaseMediaSession) Previous(context.Context) error                                   { return nil }
func (BaseMediaSession) FastForward(context.Context) error                                { return nil }
func (BaseMediaSession) Rewind(context.Context) error                                     { return nil }
func (BaseMediaSession) SeekTo(context.Context, int64) error                              { return nil }
func (BaseMediaSession) Rate(context.Context, *media.Rating) error                        { return nil }
func (BaseMediaSession) RateWithExtras(context.Context, *media.Rating, *binder.Bundle) error {
	return nil
}
func (BaseMediaSession) SetPlaybackSpeed(context.Context, float32) error                { return nil }
func (BaseMediaSession) SetCaptioningEnabled(context.Context, bool) error               { return nil }
func (BaseMediaSession) SetRepeatMode(context.Context, int) error                       { return nil }
func (BaseMediaSession) SetShuffleModeEnabledRemoved(context.Context, bool) error       { return nil }
func (BaseMediaSession) SetShuffleMode(context.Context, int) error                      { return nil }
func (BaseMediaSession) SendCustomAction(context.Context, string, *binder.Bundle) error { return nil }

// BaseMediaControllerCallback реализация MediaControllerCallback без действий
type BaseMediaControllerCallback struct{}

var _ MediaControllerCallback = BaseMediaControllerCallback{}

func (BaseMediaControllerCallback) OnEvent(context.Context, string, *binder.Bundle) error { return nil }
func (BaseMediaControllerCallback) OnSessionDestroyed(context.Context) error              { return nil }
func (BaseMediaControllerCallback) OnPlaybackStateChanged(context.Context, *media.PlaybackState) error {
	return nil
}
func (BaseMediaControllerCallback) OnMetadataChanged(context.Context, *media.Metadata) error {
	return nil
}
func (BaseMediaControllerCallback) OnQueueChanged(context.Context, []*media.QueueItem) error {
	return nil
}
func (BaseMediaControllerCallback) OnQueueTitleChanged(context.Context, string) error     { return nil }
func (BaseMediaControllerCallback) OnExtrasChanged(context.Context, *binder.Bundle) error { return nil }
func (BaseMediaControllerCallback) OnVolumeInfoChanged(context.Context, *media.VolumeInfo) error {
	return nil
}
func (BaseMediaControllerCallback) OnRepeatModeChanged(context.Context, int) error { return nil }
func (BaseMediaControllerCallback) OnShuffleModeChangedRemoved(context.Context, bool) error {
	return nil
}
func (BaseMediaControllerCallback) OnCaptioningEnabledChanged(context.Context, bool) error {
	return nil
}
func (BaseMediaControllerCallback) OnShuffleModeChanged(context.Context, int) error { return nil }
func (BaseMediaControllerCallback) OnSessionReady(context.Context) error            { return nil }
