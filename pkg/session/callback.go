package session

import (
	"context"

	"github.com/arzzra/media_compat/pkg/binder"
	"github.com/arzzra/media_compat/pkg/looper"
	"github.com/arzzra/media_compat/pkg/media"
)

// Callback получает запросы контроллеров.
//
// Все методы вызываются в Looper, переданном в Session.SetCallback. Пока идет вызов,
// Session.CurrentControllerInfo возвращает идентичность контроллера-источника.
type Callback interface {
	OnCommand(ctx context.Context, command string, args *binder.Bundle, cb *looper.ResultReceiver)
	// OnMediaButtonEvent возвращает true, если событие обработано.
	// При false сессия применяет обработку по умолчанию.
	OnMediaButtonEvent(ctx context.Context, event *media.KeyEvent) bool
	OnPrepare(ctx context.Context)
	OnPrepareFromMediaID(ctx context.Context, mediaID string, extras *binder.Bundle)
	OnPrepareFromSearch(ctx context.Context, query string, extras *binder.Bundle)
	OnPrepareFromURI(ctx context.Context, uri string, extras *binder.Bundle)
	OnPlay(ctx context.Context)
	OnPlayFromMediaID(ctx context.Context, mediaID string, extras *binder.Bundle)
	OnPlayFromSearch(ctx context.Context, query string, extras *binder.Bundle)
	OnPlayFromURI(ctx context.Context, uri string, extras *binder.Bundle)
	OnSkipToQueueItem(ctx context.Context, id int64)
	OnPause(ctx context.Context)
	OnSkipToNext(ctx context.Context)
	OnSkipToPrevious(ctx context.Context)
	OnFastForward(ctx context.Context)
	OnRewind(ctx context.Context)
	OnStop(ctx context.Context)
	OnSeekTo(ctx context.Context, pos int64)
	OnSetRating(ctx context.Context, rating *media.Rating, extras *binder.Bundle)
	OnSetPlaybackSpeed(ctx context.Context, speed float32)
	OnSetCaptioningEnabled(ctx context.Context, enabled bool)
	OnSetRepeatMode(ctx context.Context, repeatMode int)
	OnSetShuffleMode(ctx context.Context, shuffleMode int)
	OnCustomAction(ctx context.Context, action string, extras *binder.Bundle)
	OnAddQueueItem(ctx context.Context, description *media.MediaDescription)
	OnAddQueueItemAt(ctx context.Context, description *media.MediaDescription, index int)
	OnRemoveQueueItem(ctx context.Context, description *media.MediaDescription)
}

// BaseCallback пустая реализация Callback для встраивания
type BaseCallback struct{}

var _ Callback = BaseCallback{}

func (BaseCallback) OnCommand(context.Context, string, *binder.Bundle, *looper.ResultReceiver) {}
func (BaseCallback) OnMediaButtonEvent(context.Context, *media.KeyEvent) bool                  { return false }
func (BaseCallback) OnPrepare(context.Context)                                                 {}
func (BaseCallback) OnPrepareFromMediaID(context.Context, string, *binder.Bundle)              {}
func (BaseCallback) OnPrepareFromSearch(context.Context, string, *binder.Bundle)               {}
func (BaseCallback) OnPrepareFromURI(context.Context, string, *binder.Bundle)                  {}
func (BaseCallback) OnPlay(context.Context)                                                    {}
func (BaseCallback) OnPlayFromMediaID(context.Context, string, *binder.Bundle)                 {}
func (BaseCallback) OnPlayFromSearch(context.Context, string, *binder.Bundle)                  {}
func (BaseCallback) OnPlayFromURI(context.Context, string, *binder.Bundle)                     {}
func (BaseCallback) OnSkipToQueueItem(context.Context, int64)                                  {}
func (BaseCallback) OnPause(context.Context)                                                   {}
func (BaseCallback) OnSkipToNext(context.Context)                                              {}
func (BaseCallback) OnSkipToPrevious(context.Context)                                          {}
func (BaseCallback) OnFastForward(context.Context)                                             {}
func (BaseCallback) OnRewind(context.Context)                                                  {}
func (BaseCallback) OnStop(context.Context)                                                    {}
func (BaseCallback) OnSeekTo(context.Context, int64)                                           {}
func (BaseCallback) OnSetRating(context.Context, *media.Rating, *binder.Bundle)                {}
func (BaseCallback) OnSetPlaybackSpeed(context.Context, float32)                               {}
func (BaseCallback) OnSetCaptioningEnabled(context.Context, bool)                              {}
func (BaseCallback) OnSetRepeatMode(context.Context, int)                                      {}
func (BaseCallback) OnSetShuffleMode(context.Context, int)                                     {}
func (BaseCallback) OnCustomAction(context.Context, string, *binder.Bundle)                    {}
func (BaseCallback) OnAddQueueItem(context.Context, *media.MediaDescription)                   {}
func (BaseCallback) OnAddQueueItemAt(context.Context, *media.MediaDescription, int)            {}
func (BaseCallback) OnRemoveQueueItem(context.Context, *media.MediaDescription)                {}

// RegistrationCallback узнает о регистрации callback контроллеров через extra binder
type RegistrationCallback interface {
	OnCallbackRegistered(callingPID, callingUID int)
	OnCallbackUnregistered(callingPID, callingUID int)
}
