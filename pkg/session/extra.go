package session

import (
	"context"

	"github.com/arzzra/media_compat/pkg/aidl"
	"github.com/arzzra/media_compat/pkg/binder"
	"github.com/arzzra/media_compat/pkg/looper"
	"github.com/arzzra/media_compat/pkg/media"
	"github.com/arzzra/media_compat/pkg/trust"
)

// extraSession реализация IMediaSession, которую сессия отдает контроллерам
// в ответ на CommandGetExtraBinder.
//
// Вызовы приходят в потоке транзакции. Геттеры отвечают сразу, команды
// ставятся в Looper callback сессии.
type extraSession struct {
	s *Session
}

var _ aidl.MediaSession = (*extraSession)(nil)

// callerInfo идентичность контроллера, вызвавшего extra binder
func callerInfo(ctx context.Context) trust.RemoteUserInfo {
	return trust.FromIdentity(trust.LegacyController, binder.CallingIdentity(ctx))
}

func (e *extraSession) post(ctx context.Context, fn func(ctx context.Context, cb Callback)) error {
	e.s.post(ctx, callerInfo(ctx), fn)
	return nil
}

// run выполняет fn в Looper сессии без обращения к callback приложения
func (e *extraSession) run(ctx context.Context, fn func(ctx context.Context)) bool {
	e.s.mu.Lock()
	h, destroyed := e.s.handler, e.s.destroyed
	e.s.mu.Unlock()
	if h == nil || destroyed {
		return false
	}
	ctx = context.WithoutCancel(ctx)
	return h.Post(func() { fn(ctx) })
}

func (e *extraSession) SendCommand(ctx context.Context, command string, args *binder.Bundle, cb *looper.ResultReceiver) error {
	info := callerInfo(ctx)
	e.run(ctx, func(ctx context.Context) { e.s.handleCommand(ctx, info, command, args, cb) })
	return nil
}

func (e *extraSession) SendMediaButton(ctx context.Context, mediaButton *media.KeyEvent) (bool, error) {
	if mediaButton == nil {
		return false, nil
	}
	info := callerInfo(ctx)
	if !e.run(ctx, func(ctx context.Context) { e.s.handleMediaButton(ctx, info, mediaButton) }) {
		return false, nil
	}
	return e.s.Flags()&FlagHandlesMediaButtons != 0, nil
}

func (e *extraSession) RegisterCallbackListener(ctx context.Context, cb aidl.IMediaControllerCallback) error {
	return e.s.registerController(ctx, cb)
}

func (e *extraSession) UnregisterCallbackListener(ctx context.Context, cb aidl.IMediaControllerCallback) error {
	return e.s.unregisterController(ctx, cb)
}

func (e *extraSession) IsTransportControlEnabled(context.Context) (bool, error) {
	return e.s.Flags()&FlagHandlesTransportControls != 0, nil
}

func (e *extraSession) GetPackageName(context.Context) (string, error) {
	return e.s.proc.Package, nil
}

func (e *extraSession) GetTag(context.Context) (string, error) {
	return e.s.tag, nil
}

func (e *extraSession) GetLaunchPendingIntent(context.Context) (*media.PendingIntent, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	return e.s.launchIntent, nil
}

func (e *extraSession) GetFlags(context.Context) (int64, error) {
	return e.s.Flags(), nil
}

func (e *extraSession) GetVolumeAttributes(context.Context) (*media.VolumeInfo, error) {
	return e.s.native.PlaybackInfo(), nil
}

func (e *extraSession) AdjustVolume(_ context.Context, direction, _ int, _ string) error {
	e.s.native.AdjustVolume(direction)
	return nil
}

func (e *extraSession) SetVolumeTo(_ context.Context, value, _ int, _ string) error {
	e.s.native.SetVolumeTo(value)
	return nil
}

func (e *extraSession) GetMetadata(context.Context) (*media.Metadata, error) {
	return e.s.Metadata(), nil
}

// GetPlaybackState возвращает состояние с позицией, пересчитанной на текущий момент
func (e *extraSession) GetPlaybackState(context.Context) (*media.PlaybackState, error) {
	e.s.mu.Lock()
	state, metadata := e.s.state, e.s.metadata
	e.s.mu.Unlock()
	return PlaybackStateWithUpdatedPosition(state, metadata, e.s.sys.ElapsedRealtime()), nil
}

func (e *extraSession) GetQueue(context.Context) ([]*media.QueueItem, error) {
	return e.s.Queue(), nil
}

func (e *extraSession) GetQueueTitle(context.Context) (string, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	return e.s.queueTitle, nil
}

func (e *extraSession) GetExtras(context.Context) (*binder.Bundle, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	return e.s.extras.Copy(), nil
}

func (e *extraSession) GetRatingType(context.Context) (int, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	return e.s.ratingType, nil
}

func (e *extraSession) IsCaptioningEnabled(context.Context) (bool, error) {
	return e.s.IsCaptioningEnabled(), nil
}

func (e *extraSession) GetRepeatMode(context.Context) (int, error) {
	return e.s.RepeatMode(), nil
}

func (e *extraSession) IsShuffleModeEnabledRemoved(context.Context) (bool, error) {
	return false, nil
}

func (e *extraSession) GetShuffleMode(context.Context) (int, error) {
	return e.s.ShuffleMode(), nil
}

func (e *extraSession) AddQueueItem(ctx context.Context, description *media.MediaDescription) error {
	return e.post(ctx, func(ctx context.Context, cb Callback) { cb.OnAddQueueItem(ctx, description) })
}

func (e *extraSession) AddQueueItemAt(ctx context.Context, description *media.MediaDescription, index int) error {
	return e.post(ctx, func(ctx context.Context, cb Callback) { cb.OnAddQueueItemAt(ctx, description, index) })
}

func (e *extraSession) RemoveQueueItem(ctx context.Context, description *media.MediaDescription) error {
	return e.post(ctx, func(ctx context.Context, cb Callback) { cb.OnRemoveQueueItem(ctx, description) })
}

func (e *extraSession) RemoveQueueItemAt(ctx context.Context, index int) error {
	info := callerInfo(ctx)
	e.run(ctx, func(ctx context.Context) { e.s.removeQueueItemAt(ctx, info, index) })
	return nil
}

func (e *extraSession) GetSessionInfo(context.Context) (*binder.Bundle, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	if e.s.sessionInfo == nil {
		return binder.NewBundle(), nil
	}
	return e.s.sessionInfo.Copy(), nil
}

func (e *extraSession) Prepare(ctx context.Context) error {
	return e.post(ctx, func(ctx context.Context, cb Callback) { cb.OnPrepare(ctx) })
}

func (e *extraSession) PrepareFromMediaID(ctx context.Context, mediaID string, extras *binder.Bundle) error {
	return e.post(ctx, func(ctx context.Context, cb Callback) { cb.OnPrepareFromMediaID(ctx, mediaID, extras) })
}

func (e *extraSession) PrepareFromSearch(ctx context.Context, query string, extras *binder.Bundle) error {
	return e.post(ctx, func(ctx context.Context, cb Callback) { cb.OnPrepareFromSearch(ctx, query, extras) })
}

func (e *extraSession) PrepareFromURI(ctx context.Context, uri string, extras *binder.Bundle) error {
	return e.post(ctx, func(ctx context.Context, cb Callback) { cb.OnPrepareFromURI(ctx, uri, extras) })
}

func (e *extraSession) Play(ctx context.Context) error {
	return e.post(ctx, func(ctx context.Context, cb Callback) { cb.OnPlay(ctx) })
}

func (e *extraSession) PlayFromMediaID(ctx context.Context, mediaID string, extras *binder.Bundle) error {
	return e.post(ctx, func(ctx context.Context, cb Callback) { cb.OnPlayFromMediaID(ctx, mediaID, extras) })
}

func (e *extraSession) PlayFromSearch(ctx context.Context, query string, extras *binder.Bundle) error {
	return e.post(ctx, func(ctx context.Context, cb Callback) { cb.OnPlayFromSearch(ctx, query, extras) })
}

func (e *extraSession) PlayFromURI(ctx context.Context, uri string, extras *binder.Bundle) error {
	return e.post(ctx, func(ctx context.Context, cb Callback) { cb.OnPlayFromURI(ctx, uri, extras) })
}

func (e *extraSession) SkipToQueueItem(ctx context.Context, id int64) error {
	return e.post(ctx, func(ctx context.Context, cb Callback) { cb.OnSkipToQueueItem(ctx, id) })
}

func (e *extraSession) Pause(ctx context.Context) error {
	return e.post(ctx, func(ctx context.Context, cb Callback) { cb.OnPause(ctx) })
}

func (e *extraSession) Stop(ctx context.Context) error {
	return e.post(ctx, func(ctx context.Context, cb Callback) { cb.OnStop(ctx) })
}

func (e *extraSession) Next(ctx context.Context) error {
	return e.post(ctx, func(ctx context.Context, cb Callback) { cb.OnSkipToNext(ctx) })
}

func (e *extraSession) Previous(ctx context.Context) error {
	return e.post(ctx, func(ctx context.Context, cb Callback) { cb.OnSkipToPrevious(ctx) })
}

func (e *extraSession) FastForward(ctx context.Context) error {
	return e.post(ctx, func(ctx context.Context, cb Callback) { cb.OnFastForward(ctx) })
}

func (e *extraSession) Rewind(ctx context.Context) error {
	return e.post(ctx, func(ctx context.Context, cb Callback) { cb.OnRewind(ctx) })
}

func (e *extraSession) SeekTo(ctx context.Context, pos int64) error {
	return e.post(ctx, func(ctx context.Context, cb Callback) { cb.OnSeekTo(ctx, pos) })
}

func (e *extraSession) Rate(ctx context.Context, rating *media.Rating) error {
	return e.post(ctx, func(ctx context.Context, cb Callback) { cb.OnSetRating(ctx, rating, nil) })
}

func (e *extraSession) RateWithExtras(ctx context.Context, rating *media.Rating, extras *binder.Bundle) error {
	return e.post(ctx, func(ctx context.Context, cb Callback) { cb.OnSetRating(ctx, rating, extras) })
}

func (e *extraSession) SetPlaybackSpeed(ctx context.Context, speed float32) error {
	return e.post(ctx, func(ctx context.Context, cb Callback) { cb.OnSetPlaybackSpeed(ctx, speed) })
}

func (e *extraSession) SetCaptioningEnabled(ctx context.Context, enabled bool) error {
	return e.post(ctx, func(ctx context.Context, cb Callback) { cb.OnSetCaptioningEnabled(ctx, enabled) })
}

func (e *extraSession) SetRepeatMode(ctx context.Context, repeatMode int) error {
	return e.post(ctx, func(ctx context.Context, cb Callback) { cb.OnSetRepeatMode(ctx, repeatMode) })
}

// SetShuffleModeEnabledRemoved оставлен ради кода транзакции и ничего не делает
func (e *extraSession) SetShuffleModeEnabledRemoved(context.Context, bool) error {
	return nil
}

func (e *extraSession) SetShuffleMode(ctx context.Context, shuffleMode int) error {
	return e.post(ctx, func(ctx context.Context, cb Callback) { cb.OnSetShuffleMode(ctx, shuffleMode) })
}

func (e *extraSession) SendCustomAction(ctx context.Context, action string, args *binder.Bundle) error {
	info := callerInfo(ctx)
	e.run(ctx, func(ctx context.Context) { e.s.handleCustomAction(ctx, info, action, args) })
	return nil
}
