package controller

import (
	"context"

	"github.com/arzzra/media_compat/pkg/binder"
	"github.com/arzzra/media_compat/pkg/core/compaterr"
	"github.com/arzzra/media_compat/pkg/media"
	"github.com/arzzra/media_compat/pkg/platform"
	"github.com/arzzra/media_compat/pkg/session"
)

// TransportControls транспортные команды сессии.
//
// Операции, которых нет в нативных TransportControls ревизии платформы,
// передаются пользовательскими действиями session.Action*; сессия разбирает
// их обратно в вызовы Callback.
type TransportControls interface {
	Prepare(ctx context.Context) error
	PrepareFromMediaID(ctx context.Context, mediaID string, extras *binder.Bundle) error
	PrepareFromSearch(ctx context.Context, query string, extras *binder.Bundle) error
	PrepareFromURI(ctx context.Context, uri string, extras *binder.Bundle) error
	Play(ctx context.Context) error
	PlayFromMediaID(ctx context.Context, mediaID string, extras *binder.Bundle) error
	PlayFromSearch(ctx context.Context, query string, extras *binder.Bundle) error
	PlayFromURI(ctx context.Context, uri string, extras *binder.Bundle) error
	SkipToQueueItem(ctx context.Context, id int64) error
	Pause(ctx context.Context) error
	Stop(ctx context.Context) error
	SeekTo(ctx context.Context, pos int64) error
	FastForward(ctx context.Context) error
	SkipToNext(ctx context.Context) error
	Rewind(ctx context.Context) error
	SkipToPrevious(ctx context.Context) error
	SetRating(ctx context.Context, rating *media.Rating) error
	SetRatingWithExtras(ctx context.Context, rating *media.Rating, extras *binder.Bundle) error
	SetPlaybackSpeed(ctx context.Context, speed float32) error
	SetCaptioningEnabled(ctx context.Context, enabled bool) error
	SetRepeatMode(ctx context.Context, repeatMode int) error
	SetShuffleMode(ctx context.Context, shuffleMode int) error
	SendCustomAction(ctx context.Context, action string, args *binder.Bundle) error
}

// transportControls выбирает путь каждой операции по таблице возможностей
// ревизии, без проб во время выполнения
type transportControls struct {
	caps   platform.Capabilities
	native *platform.TransportControls
}

var _ TransportControls = (*transportControls)(nil)

func newTransportControls(caps platform.Capabilities, native *platform.TransportControls) *transportControls {
	return &transportControls{caps: caps, native: native}
}

// ValidateCustomAction проверяет обязательные аргументы предопределенных действий
func ValidateCustomAction(action string, args *binder.Bundle) error {
	switch action {
	case session.ActionFollow, session.ActionUnfollow:
		if !args.ContainsKey(session.ArgumentMediaAttribute) {
			return compaterr.ErrIllegalArgument("sendCustomAction",
				"an extra field "+session.ArgumentMediaAttribute+" is required for this action "+action)
		}
	}
	return nil
}

// encoded отправляет операцию пользовательским действием
func (t *transportControls) encoded(ctx context.Context, action string, args *binder.Bundle) error {
	return t.native.SendCustomAction(ctx, action, args)
}

func withExtras(extras *binder.Bundle) *binder.Bundle {
	args := binder.NewBundle()
	if extras != nil {
		args.PutBundle(session.ActionArgumentExtras, extras)
	}
	return args
}

func (t *transportControls) Prepare(ctx context.Context) error {
	if t.caps.NativePrepare {
		return t.native.Prepare(ctx)
	}
	return t.encoded(ctx, session.ActionPrepare, nil)
}

func (t *transportControls) PrepareFromMediaID(ctx context.Context, mediaID string, extras *binder.Bundle) error {
	if t.caps.NativePrepare {
		return t.native.PrepareFromMediaID(ctx, mediaID, extras)
	}
	args := withExtras(extras)
	args.PutString(session.ActionArgumentMediaID, mediaID)
	return t.encoded(ctx, session.ActionPrepareFromMediaID, args)
}

func (t *transportControls) PrepareFromSearch(ctx context.Context, query string, extras *binder.Bundle) error {
	if t.caps.NativePrepare {
		return t.native.PrepareFromSearch(ctx, query, extras)
	}
	args := withExtras(extras)
	args.PutString(session.ActionArgumentQuery, query)
	return t.encoded(ctx, session.ActionPrepareFromSearch, args)
}

func (t *transportControls) PrepareFromURI(ctx context.Context, uri string, extras *binder.Bundle) error {
	if t.caps.NativePrepare {
		return t.native.PrepareFromURI(ctx, uri, extras)
	}
	args := withExtras(extras)
	args.PutString(session.ActionArgumentURI, uri)
	return t.encoded(ctx, session.ActionPrepareFromURI, args)
}

func (t *transportControls) Play(ctx context.Context) error {
	return t.native.Play(ctx)
}

func (t *transportControls) PlayFromMediaID(ctx context.Context, mediaID string, extras *binder.Bundle) error {
	return t.native.PlayFromMediaID(ctx, mediaID, extras)
}

func (t *transportControls) PlayFromSearch(ctx context.Context, query string, extras *binder.Bundle) error {
	return t.native.PlayFromSearch(ctx, query, extras)
}

func (t *transportControls) PlayFromURI(ctx context.Context, uri string, extras *binder.Bundle) error {
	if t.caps.NativePlayFromURI {
		return t.native.PlayFromURI(ctx, uri, extras)
	}
	args := withExtras(extras)
	args.PutString(session.ActionArgumentURI, uri)
	return t.encoded(ctx, session.ActionPlayFromURI, args)
}

func (t *transportControls) SkipToQueueItem(ctx context.Context, id int64) error {
	return t.native.SkipToQueueItem(ctx, id)
}

func (t *transportControls) Pause(ctx context.Context) error       { return t.native.Pause(ctx) }
func (t *transportControls) Stop(ctx context.Context) error        { return t.native.Stop(ctx) }
func (t *transportControls) FastForward(ctx context.Context) error { return t.native.FastForward(ctx) }
func (t *transportControls) SkipToNext(ctx context.Context) error  { return t.native.SkipToNext(ctx) }
func (t *transportControls) Rewind(ctx context.Context) error      { return t.native.Rewind(ctx) }
func (t *transportControls) SkipToPrevious(ctx context.Context) error {
	return t.native.SkipToPrevious(ctx)
}

func (t *transportControls) SeekTo(ctx context.Context, pos int64) error {
	return t.native.SeekTo(ctx, pos)
}

func (t *transportControls) SetRating(ctx context.Context, rating *media.Rating) error {
	return t.native.SetRating(ctx, rating, nil)
}

// SetRatingWithExtras нативный вызов теряет extras, поэтому всегда кодируется действием
func (t *transportControls) SetRatingWithExtras(ctx context.Context, rating *media.Rating, extras *binder.Bundle) error {
	args := withExtras(extras)
	if rating != nil {
		args.PutParcelable(session.ActionArgumentRating, rating)
	}
	return t.encoded(ctx, session.ActionSetRating, args)
}

// SetPlaybackSpeed отклоняет нулевую скорость до обращения к сессии
func (t *transportControls) SetPlaybackSpeed(ctx context.Context, speed float32) error {
	if speed == 0 {
		return compaterr.ErrIllegalArgument("setPlaybackSpeed", "speed must not be zero")
	}
	if t.caps.NativePlaybackSpeed {
		return t.native.SetPlaybackSpeed(ctx, speed)
	}
	args := binder.NewBundle()
	args.PutFloat(session.ActionArgumentPlaybackSpeed, speed)
	return t.encoded(ctx, session.ActionSetPlaybackSpeed, args)
}

func (t *transportControls) SetCaptioningEnabled(ctx context.Context, enabled bool) error {
	args := binder.NewBundle()
	args.PutBool(session.ActionArgumentCaptioningEnabled, enabled)
	return t.encoded(ctx, session.ActionSetCaptioningEnabled, args)
}

func (t *transportControls) SetRepeatMode(ctx context.Context, repeatMode int) error {
	args := binder.NewBundle()
	args.PutInt(session.ActionArgumentRepeatMode, repeatMode)
	return t.encoded(ctx, session.ActionSetRepeatMode, args)
}

func (t *transportControls) SetShuffleMode(ctx context.Context, shuffleMode int) error {
	args := binder.NewBundle()
	args.PutInt(session.ActionArgumentShuffleMode, shuffleMode)
	return t.encoded(ctx, session.ActionSetShuffleMode, args)
}

// SendCustomAction проверяет аргументы локально; ошибка проверки не доходит до сессии
func (t *transportControls) SendCustomAction(ctx context.Context, action string, args *binder.Bundle) error {
	if err := ValidateCustomAction(action, args); err != nil {
		return err
	}
	return t.native.SendCustomAction(ctx, action, args)
}
