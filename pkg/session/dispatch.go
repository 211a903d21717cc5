package session

import (
	"context"
	"log/slog"

	"github.com/arzzra/media_compat/pkg/binder"
	"github.com/arzzra/media_compat/pkg/looper"
	"github.com/arzzra/media_compat/pkg/media"
	"github.com/arzzra/media_compat/pkg/platform"
	"github.com/arzzra/media_compat/pkg/trust"
)

// dispatcher принимает вызовы нативной сессии и переводит их в Callback.
// Все методы выполняются в Looper сессии.
type dispatcher struct {
	s *Session
}

var _ platform.SessionCallback = dispatcher{}

// pendingTap первое нажатие play/pause, ожидающее второго
type pendingTap struct {
	ctx  context.Context
	info trust.RemoteUserInfo
}

func (d dispatcher) call(ctx context.Context, fn func(cb Callback)) {
	d.s.dispatch(d.s.nativeControllerInfo(ctx), fn)
}

func (d dispatcher) OnCommand(ctx context.Context, command string, args *binder.Bundle, cb *looper.ResultReceiver) {
	d.s.handleCommand(ctx, d.s.nativeControllerInfo(ctx), command, args, cb)
}

func (d dispatcher) OnMediaButtonEvent(ctx context.Context, event *media.KeyEvent) bool {
	return d.s.handleMediaButton(ctx, d.s.nativeControllerInfo(ctx), event)
}

func (d dispatcher) OnPrepare(ctx context.Context) {
	d.call(ctx, func(cb Callback) { cb.OnPrepare(ctx) })
}

func (d dispatcher) OnPrepareFromMediaID(ctx context.Context, mediaID string, extras *binder.Bundle) {
	d.call(ctx, func(cb Callback) { cb.OnPrepareFromMediaID(ctx, mediaID, extras) })
}

func (d dispatcher) OnPrepareFromSearch(ctx context.Context, query string, extras *binder.Bundle) {
	d.call(ctx, func(cb Callback) { cb.OnPrepareFromSearch(ctx, query, extras) })
}

func (d dispatcher) OnPrepareFromURI(ctx context.Context, uri string, extras *binder.Bundle) {
	d.call(ctx, func(cb Callback) { cb.OnPrepareFromURI(ctx, uri, extras) })
}

func (d dispatcher) OnPlay(ctx context.Context) {
	d.call(ctx, func(cb Callback) { cb.OnPlay(ctx) })
}

func (d dispatcher) OnPlayFromMediaID(ctx context.Context, mediaID string, extras *binder.Bundle) {
	d.call(ctx, func(cb Callback) { cb.OnPlayFromMediaID(ctx, mediaID, extras) })
}

func (d dispatcher) OnPlayFromSearch(ctx context.Context, query string, extras *binder.Bundle) {
	d.call(ctx, func(cb Callback) { cb.OnPlayFromSearch(ctx, query, extras) })
}

func (d dispatcher) OnPlayFromURI(ctx context.Context, uri string, extras *binder.Bundle) {
	d.call(ctx, func(cb Callback) { cb.OnPlayFromURI(ctx, uri, extras) })
}

func (d dispatcher) OnSkipToQueueItem(ctx context.Context, id int64) {
	d.call(ctx, func(cb Callback) { cb.OnSkipToQueueItem(ctx, id) })
}

func (d dispatcher) OnPause(ctx context.Context) {
	d.call(ctx, func(cb Callback) { cb.OnPause(ctx) })
}

func (d dispatcher) OnSkipToNext(ctx context.Context) {
	d.call(ctx, func(cb Callback) { cb.OnSkipToNext(ctx) })
}

func (d dispatcher) OnSkipToPrevious(ctx context.Context) {
	d.call(ctx, func(cb Callback) { cb.OnSkipToPrevious(ctx) })
}

func (d dispatcher) OnFastForward(ctx context.Context) {
	d.call(ctx, func(cb Callback) { cb.OnFastForward(ctx) })
}

func (d dispatcher) OnRewind(ctx context.Context) {
	d.call(ctx, func(cb Callback) { cb.OnRewind(ctx) })
}

func (d dispatcher) OnStop(ctx context.Context) {
	d.call(ctx, func(cb Callback) { cb.OnStop(ctx) })
}

func (d dispatcher) OnSeekTo(ctx context.Context, pos int64) {
	d.call(ctx, func(cb Callback) { cb.OnSeekTo(ctx, pos) })
}

func (d dispatcher) OnSetRating(ctx context.Context, rating *media.Rating, extras *binder.Bundle) {
	d.call(ctx, func(cb Callback) { cb.OnSetRating(ctx, rating, extras) })
}

func (d dispatcher) OnSetPlaybackSpeed(ctx context.Context, speed float32) {
	d.call(ctx, func(cb Callback) { cb.OnSetPlaybackSpeed(ctx, speed) })
}

func (d dispatcher) OnCustomAction(ctx context.Context, action string, extras *binder.Bundle) {
	d.s.handleCustomAction(ctx, d.s.nativeControllerInfo(ctx), action, extras)
}

// handleCommand перехватывает служебные команды до callback приложения
func (s *Session) handleCommand(ctx context.Context, info trust.RemoteUserInfo, command string, args *binder.Bundle, rr *looper.ResultReceiver) {
	if err := args.Unparcel(); err != nil {
		s.log.Error("Session: could not unparcel command arguments",
			slog.String("command", command),
			slog.String("error", err.Error()))
		return
	}

	switch command {
	case CommandGetExtraBinder:
		if rr == nil {
			return
		}
		if err := rr.Send(s.proc.Context(context.Background()), 0, s.extraBinderReply()); err != nil {
			s.log.Warn("Session: extra binder reply failed",
				slog.String("controller", info.String()),
				slog.String("error", err.Error()))
		}
	case CommandAddQueueItem:
		desc, _ := args.GetParcelable(CommandArgumentMediaDescription).(*media.MediaDescription)
		s.dispatch(info, func(cb Callback) { cb.OnAddQueueItem(ctx, desc) })
	case CommandAddQueueItemAt:
		desc, _ := args.GetParcelable(CommandArgumentMediaDescription).(*media.MediaDescription)
		index := args.GetInt(CommandArgumentIndex, 0)
		s.dispatch(info, func(cb Callback) { cb.OnAddQueueItemAt(ctx, desc, index) })
	case CommandRemoveQueueItem:
		desc, _ := args.GetParcelable(CommandArgumentMediaDescription).(*media.MediaDescription)
		s.dispatch(info, func(cb Callback) { cb.OnRemoveQueueItem(ctx, desc) })
	case CommandRemoveQueueItemAt:
		s.removeQueueItemAt(ctx, info, args.GetInt(CommandArgumentIndex, -1))
	default:
		s.dispatch(info, func(cb Callback) { cb.OnCommand(ctx, command, args, rr) })
	}
}

// removeQueueItemAt находит элемент очереди по индексу и передает его описание в OnRemoveQueueItem
func (s *Session) removeQueueItemAt(ctx context.Context, info trust.RemoteUserInfo, index int) {
	s.mu.Lock()
	var item *media.QueueItem
	if index >= 0 && index < len(s.queue) {
		item = s.queue[index]
	}
	s.mu.Unlock()
	if item == nil {
		return
	}
	s.dispatch(info, func(cb Callback) { cb.OnRemoveQueueItem(ctx, item.Description) })
}

// handleCustomAction раскрывает действия, которыми старые контроллеры кодируют
// операции, отсутствующие в нативных TransportControls
func (s *Session) handleCustomAction(ctx context.Context, info trust.RemoteUserInfo, action string, extras *binder.Bundle) {
	if err := extras.Unparcel(); err != nil {
		s.log.Error("Session: could not unparcel custom action extras",
			slog.String("action", action),
			slog.String("error", err.Error()))
		return
	}

	var fn func(cb Callback)
	switch action {
	case ActionPlayFromURI:
		uri, args := extras.GetString(ActionArgumentURI), extras.GetBundle(ActionArgumentExtras)
		fn = func(cb Callback) { cb.OnPlayFromURI(ctx, uri, args) }
	case ActionPrepare:
		fn = func(cb Callback) { cb.OnPrepare(ctx) }
	case ActionPrepareFromMediaID:
		id, args := extras.GetString(ActionArgumentMediaID), extras.GetBundle(ActionArgumentExtras)
		fn = func(cb Callback) { cb.OnPrepareFromMediaID(ctx, id, args) }
	case ActionPrepareFromSearch:
		query, args := extras.GetString(ActionArgumentQuery), extras.GetBundle(ActionArgumentExtras)
		fn = func(cb Callback) { cb.OnPrepareFromSearch(ctx, query, args) }
	case ActionPrepareFromURI:
		uri, args := extras.GetString(ActionArgumentURI), extras.GetBundle(ActionArgumentExtras)
		fn = func(cb Callback) { cb.OnPrepareFromURI(ctx, uri, args) }
	case ActionSetCaptioningEnabled:
		enabled := extras.GetBool(ActionArgumentCaptioningEnabled, false)
		fn = func(cb Callback) { cb.OnSetCaptioningEnabled(ctx, enabled) }
	case ActionSetRepeatMode:
		mode := extras.GetInt(ActionArgumentRepeatMode, media.RepeatModeInvalid)
		fn = func(cb Callback) { cb.OnSetRepeatMode(ctx, mode) }
	case ActionSetShuffleMode:
		mode := extras.GetInt(ActionArgumentShuffleMode, media.ShuffleModeInvalid)
		fn = func(cb Callback) { cb.OnSetShuffleMode(ctx, mode) }
	case ActionSetRating:
		rating, _ := extras.GetParcelable(ActionArgumentRating).(*media.Rating)
		args := extras.GetBundle(ActionArgumentExtras)
		fn = func(cb Callback) { cb.OnSetRating(ctx, rating, args) }
	case ActionSetPlaybackSpeed:
		speed := extras.GetFloat(ActionArgumentPlaybackSpeed, 1)
		fn = func(cb Callback) { cb.OnSetPlaybackSpeed(ctx, speed) }
	default:
		fn = func(cb Callback) { cb.OnCustomAction(ctx, action, extras) }
	}
	s.dispatch(info, fn)
}

// handleMediaButton отдает событие приложению, а если оно не обработано,
// применяет обработку по умолчанию
func (s *Session) handleMediaButton(ctx context.Context, info trust.RemoteUserInfo, event *media.KeyEvent) bool {
	handled := false
	if !s.dispatch(info, func(cb Callback) { handled = cb.OnMediaButtonEvent(ctx, event) }) {
		return false
	}
	if handled {
		return true
	}
	return s.defaultMediaButton(ctx, info, event)
}

// defaultMediaButton обрабатывает нажатие по доступным действиям состояния.
// До ревизии 27 play/pause и headset hook ждут второго нажатия:
// двойное нажатие переходит к следующему треку.
func (s *Session) defaultMediaButton(ctx context.Context, info trust.RemoteUserInfo, event *media.KeyEvent) bool {
	if event == nil || event.Action != media.KeyActionDown {
		return false
	}
	s.mu.Lock()
	h := s.handler
	var actions int64
	if s.state != nil {
		actions = s.state.Actions
	}
	s.mu.Unlock()

	switch event.KeyCode {
	case media.KeyCodeMediaPlayPause, media.KeyCodeHeadsetHook:
		switch {
		case event.RepeatCount > 0:
			s.flushPlayPause(ctx, info)
		case s.sys.Capabilities().MediaButtonHandledNatively:
			s.togglePlayPause(ctx, info)
		case s.takePlayPausePending():
			if actions&media.ActionSkipToNext != 0 {
				s.dispatch(info, func(cb Callback) { cb.OnSkipToNext(ctx) })
			}
		default:
			s.mu.Lock()
			s.playPausePending = true
			s.mu.Unlock()
			h.SendMessageDelayed(&looper.Message{
				What: msgPlayPauseDoubleTapTimeout,
				Obj:  pendingTap{ctx: ctx, info: info},
			}, s.opts.DoubleTapTimeout)
		}
		return true
	}

	s.flushPlayPause(ctx, info)

	var fn func(cb Callback)
	switch event.KeyCode {
	case media.KeyCodeMediaPlay:
		if actions&media.ActionPlay != 0 {
			fn = func(cb Callback) { cb.OnPlay(ctx) }
		}
	case media.KeyCodeMediaPause:
		if actions&media.ActionPause != 0 {
			fn = func(cb Callback) { cb.OnPause(ctx) }
		}
	case media.KeyCodeMediaNext:
		if actions&media.ActionSkipToNext != 0 {
			fn = func(cb Callback) { cb.OnSkipToNext(ctx) }
		}
	case media.KeyCodeMediaPrevious:
		if actions&media.ActionSkipToPrevious != 0 {
			fn = func(cb Callback) { cb.OnSkipToPrevious(ctx) }
		}
	case media.KeyCodeMediaStop:
		if actions&media.ActionStop != 0 {
			fn = func(cb Callback) { cb.OnStop(ctx) }
		}
	case media.KeyCodeMediaFastForward:
		if actions&media.ActionFastForward != 0 {
			fn = func(cb Callback) { cb.OnFastForward(ctx) }
		}
	case media.KeyCodeMediaRewind:
		if actions&media.ActionRewind != 0 {
			fn = func(cb Callback) { cb.OnRewind(ctx) }
		}
	}
	if fn == nil {
		return false
	}
	return s.dispatch(info, fn)
}

// takePlayPausePending снимает ожидание второго нажатия и отменяет таймер
func (s *Session) takePlayPausePending() bool {
	s.mu.Lock()
	pending, h := s.playPausePending, s.handler
	s.playPausePending = false
	s.mu.Unlock()
	if pending && h != nil {
		h.RemoveMessages(msgPlayPauseDoubleTapTimeout)
	}
	return pending
}

func (s *Session) flushPlayPause(ctx context.Context, info trust.RemoteUserInfo) {
	if s.takePlayPausePending() {
		s.togglePlayPause(ctx, info)
	}
}

// togglePlayPause ставит на паузу играющую сессию и запускает остальные
func (s *Session) togglePlayPause(ctx context.Context, info trust.RemoteUserInfo) {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	var actions int64
	playing := false
	if state != nil {
		actions = state.Actions
		playing = state.State == media.StatePlaying
	}
	canPlay := actions&(media.ActionPlayPause|media.ActionPlay) != 0
	canPause := actions&(media.ActionPlayPause|media.ActionPause) != 0

	switch {
	case playing && canPause:
		s.dispatch(info, func(cb Callback) { cb.OnPause(ctx) })
	case !playing && canPlay:
		s.dispatch(info, func(cb Callback) { cb.OnPlay(ctx) })
	}
}

func (s *Session) handleMessage(msg *looper.Message) {
	switch msg.What {
	case msgPlayPauseDoubleTapTimeout:
		tap, ok := msg.Obj.(pendingTap)
		if !ok {
			return
		}
		if s.takePlayPausePending() {
			s.togglePlayPause(tap.ctx, tap.info)
		}
	}
}
