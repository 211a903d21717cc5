package platform

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/arzzra/media_compat/pkg/binder"
	"github.com/arzzra/media_compat/pkg/looper"
	"github.com/arzzra/media_compat/pkg/media"
)

// ControllerCallback события нативной сессии для контроллера.
// Вызовы выполняются в Looper, указанном при регистрации.
type ControllerCallback interface {
	OnSessionEvent(event string, extras *binder.Bundle)
	OnPlaybackStateChanged(state *media.PlaybackState)
	OnMetadataChanged(metadata *media.Metadata)
	OnQueueChanged(queue []*media.QueueItem)
	OnQueueTitleChanged(title string)
	OnExtrasChanged(extras *binder.Bundle)
	OnAudioInfoChanged(info *media.VolumeInfo)
	OnSessionDestroyed()
}

// BaseControllerCallback пустая реализация ControllerCallback для встраивания
type BaseControllerCallback struct{}

func (BaseControllerCallback) OnSessionEvent(string, *binder.Bundle)       {}
func (BaseControllerCallback) OnPlaybackStateChanged(*media.PlaybackState) {}
func (BaseControllerCallback) OnMetadataChanged(*media.Metadata)           {}
func (BaseControllerCallback) OnQueueChanged([]*media.QueueItem)           {}
func (BaseControllerCallback) OnQueueTitleChanged(string)                  {}
func (BaseControllerCallback) OnExtrasChanged(*binder.Bundle)              {}
func (BaseControllerCallback) OnAudioInfoChanged(*media.VolumeInfo)        {}
func (BaseControllerCallback) OnSessionDestroyed()                         {}

var _ ControllerCallback = BaseControllerCallback{}

type callbackBinding struct {
	binder    *binder.Binder
	recipient binder.DeathRecipient
}

// Controller нативный контроллер сессии
type Controller struct {
	sys    *System
	proc   *binder.Process
	token  *SessionToken
	remote binder.IBinder

	mu        sync.Mutex
	callbacks map[ControllerCallback]*callbackBinding
}

// NewController создает контроллер сессии с токеном token от имени процесса proc
func NewController(sys *System, proc *binder.Process, token *SessionToken) (*Controller, error) {
	if token == nil || token.binder == nil {
		return nil, errors.Wrap(binder.ErrIllegalArgument, "session token must not be null")
	}
	return &Controller{
		sys:       sys,
		proc:      proc,
		token:     token,
		remote:    token.binder,
		callbacks: make(map[ControllerCallback]*callbackBinding),
	}, nil
}

func (c *Controller) Token() *SessionToken {
	return c.token
}

func (c *Controller) call(ctx context.Context, op string, args *binder.Bundle) (*binder.Bundle, error) {
	return callOp(c.proc.Context(ctx), c.remote, SessionDescriptor, op, args)
}

// query выполняет запрос состояния. Ошибки транспорта логируются, результат пустой.
func (c *Controller) query(ctx context.Context, op string) *binder.Bundle {
	out, err := c.call(ctx, op, nil)
	if err != nil {
		logOpFailure(op, err)
		return nil
	}
	return out
}

// SendCommand отправляет команду сессии
func (c *Controller) SendCommand(ctx context.Context, command string, args *binder.Bundle, cb *looper.ResultReceiver) error {
	if command == "" {
		return errors.Wrap(binder.ErrIllegalArgument, "command cannot be null or empty")
	}
	_, err := c.call(ctx, opSendCommand, bundleOf(keyCommand, command, keyArgs, args, keyReceiver, cb))
	return err
}

// DispatchMediaButtonEvent передает событие медиа-кнопки
func (c *Controller) DispatchMediaButtonEvent(ctx context.Context, ev *media.KeyEvent) (bool, error) {
	if ev == nil {
		return false, errors.Wrap(binder.ErrIllegalArgument, "KeyEvent may not be null")
	}
	out, err := c.call(ctx, opDispatchMediaButton, bundleOf(keyKeyEvent, ev))
	if err != nil {
		return false, err
	}
	return out.GetBool(keyHandled, false), nil
}

func (c *Controller) PlaybackState(ctx context.Context) *media.PlaybackState {
	s, _ := c.query(ctx, opGetPlaybackState).GetParcelable(keyState).(*media.PlaybackState)
	return s
}

func (c *Controller) Metadata(ctx context.Context) *media.Metadata {
	m, _ := c.query(ctx, opGetMetadata).GetParcelable(keyMetadata).(*media.Metadata)
	return m
}

func (c *Controller) Queue(ctx context.Context) []*media.QueueItem {
	return queueFromParcelables(c.query(ctx, opGetQueue).GetParcelableList(keyQueue))
}

func (c *Controller) QueueTitle(ctx context.Context) string {
	return c.query(ctx, opGetQueueTitle).GetString(keyTitle)
}

func (c *Controller) Extras(ctx context.Context) *binder.Bundle {
	return c.query(ctx, opGetExtras).GetBundle(keyExtras)
}

func (c *Controller) Flags(ctx context.Context) int64 {
	return c.query(ctx, opGetFlags).GetLong(keyFlags, 0)
}

func (c *Controller) RatingType(ctx context.Context) int {
	return c.query(ctx, opGetRatingType).GetInt(keyRatingType, media.RatingNone)
}

func (c *Controller) PlaybackInfo(ctx context.Context) *media.VolumeInfo {
	info, _ := c.query(ctx, opGetPlaybackInfo).GetParcelable(keyPlaybackInfo).(*media.VolumeInfo)
	return info
}

func (c *Controller) PackageName(ctx context.Context) string {
	return c.query(ctx, opGetPackageName).GetString(keyPackage)
}

func (c *Controller) Tag(ctx context.Context) string {
	return c.query(ctx, opGetTag).GetString(keyTag)
}

func (c *Controller) SessionActivity(ctx context.Context) *media.PendingIntent {
	pi, _ := c.query(ctx, opGetLaunchIntent).GetParcelable(keyLaunchIntent).(*media.PendingIntent)
	return pi
}

// SessionInfo доступен начиная с RevisionQ
func (c *Controller) SessionInfo(ctx context.Context) (*binder.Bundle, error) {
	if !c.sys.caps.NativeSessionInfo {
		return nil, errors.Wrapf(binder.ErrUnsupportedOperation, "getSessionInfo on %s", c.sys.revision)
	}
	out, err := c.call(ctx, opGetSessionInfo, nil)
	if err != nil {
		return nil, err
	}
	return out.GetBundle(keySessionInfo), nil
}

func (c *Controller) AdjustVolume(ctx context.Context, direction, flags int) error {
	_, err := c.call(ctx, opAdjustVolume, bundleOf(keyDirection, direction, keyFlags, flags))
	return err
}

func (c *Controller) SetVolumeTo(ctx context.Context, value, flags int) error {
	_, err := c.call(ctx, opSetVolumeTo, bundleOf(keyValue, value, keyFlags, flags))
	return err
}

// RegisterCallback подписывает cb на события сессии; события доставляются в h
func (c *Controller) RegisterCallback(ctx context.Context, cb ControllerCallback, h *looper.Handler) error {
	if cb == nil {
		return errors.Wrap(binder.ErrIllegalArgument, "callback must not be null")
	}
	if h == nil {
		h = looper.NewHandler(nil, nil)
	}
	c.mu.Lock()
	if _, ok := c.callbacks[cb]; ok {
		c.mu.Unlock()
		return nil
	}
	b := newOpBinder(c.proc, ControllerCallbackDescriptor, func(ctx context.Context, op string, args *binder.Bundle) (*binder.Bundle, error) {
		h.Post(func() { deliverControllerEvent(cb, op, args) })
		return nil, nil
	})
	binding := &callbackBinding{binder: b}
	binding.recipient = binder.NewDeathRecipient(func() {
		h.Post(cb.OnSessionDestroyed)
	})
	c.callbacks[cb] = binding
	c.mu.Unlock()

	if err := c.remote.LinkToDeath(binding.recipient); err != nil {
		c.dropCallback(cb)
		return errors.Wrap(err, "link to session death")
	}
	if _, err := c.call(ctx, opRegisterCallback, bundleOf(keyCallback, b)); err != nil {
		c.remote.UnlinkToDeath(binding.recipient)
		c.dropCallback(cb)
		return err
	}
	return nil
}

// UnregisterCallback отписывает cb; ошибки транспорта игнорируются
func (c *Controller) UnregisterCallback(ctx context.Context, cb ControllerCallback) {
	binding := c.dropCallback(cb)
	if binding == nil {
		return
	}
	c.remote.UnlinkToDeath(binding.recipient)
	if _, err := c.call(ctx, opUnregisterCallback, bundleOf(keyCallback, binding.binder)); err != nil {
		logOpFailure(opUnregisterCallback, err)
	}
	binding.binder.Kill()
}

func (c *Controller) dropCallback(cb ControllerCallback) *callbackBinding {
	c.mu.Lock()
	defer c.mu.Unlock()
	binding := c.callbacks[cb]
	delete(c.callbacks, cb)
	return binding
}

func deliverControllerEvent(cb ControllerCallback, op string, args *binder.Bundle) {
	switch op {
	case opOnSessionEvent:
		cb.OnSessionEvent(args.GetString(keyEvent), args.GetBundle(keyExtras))
	case opOnPlaybackState:
		s, _ := args.GetParcelable(keyState).(*media.PlaybackState)
		cb.OnPlaybackStateChanged(s)
	case opOnMetadata:
		m, _ := args.GetParcelable(keyMetadata).(*media.Metadata)
		cb.OnMetadataChanged(m)
	case opOnQueue:
		cb.OnQueueChanged(queueFromParcelables(args.GetParcelableList(keyQueue)))
	case opOnQueueTitle:
		cb.OnQueueTitleChanged(args.GetString(keyTitle))
	case opOnExtras:
		cb.OnExtrasChanged(args.GetBundle(keyExtras))
	case opOnAudioInfo:
		info, _ := args.GetParcelable(keyPlaybackInfo).(*media.VolumeInfo)
		cb.OnAudioInfoChanged(info)
	case opOnSessionDestroyed:
		cb.OnSessionDestroyed()
	}
}

// TransportControls возвращает нативные транспортные команды
func (c *Controller) TransportControls() *TransportControls {
	return &TransportControls{c: c}
}

// TransportControls нативные транспортные команды.
// Операции, которых нет в ревизии платформы, возвращают ErrUnsupportedOperation.
type TransportControls struct {
	c *Controller
}

func (t *TransportControls) send(ctx context.Context, op string, args *binder.Bundle) error {
	_, err := t.c.call(ctx, op, args)
	return err
}

func (t *TransportControls) requirePrepare(op string) error {
	if !t.c.sys.caps.NativePrepare {
		return errors.Wrapf(binder.ErrUnsupportedOperation, "%s on %s", op, t.c.sys.revision)
	}
	return nil
}

func (t *TransportControls) Prepare(ctx context.Context) error {
	if err := t.requirePrepare(opPrepare); err != nil {
		return err
	}
	return t.send(ctx, opPrepare, nil)
}

func (t *TransportControls) PrepareFromMediaID(ctx context.Context, mediaID string, extras *binder.Bundle) error {
	if err := t.requirePrepare(opPrepareFromMediaID); err != nil {
		return err
	}
	return t.send(ctx, opPrepareFromMediaID, bundleOf(keyMediaID, mediaID, keyExtras, extras))
}

func (t *TransportControls) PrepareFromSearch(ctx context.Context, query string, extras *binder.Bundle) error {
	if err := t.requirePrepare(opPrepareFromSearch); err != nil {
		return err
	}
	return t.send(ctx, opPrepareFromSearch, bundleOf(keyQuery, query, keyExtras, extras))
}

func (t *TransportControls) PrepareFromURI(ctx context.Context, uri string, extras *binder.Bundle) error {
	if err := t.requirePrepare(opPrepareFromURI); err != nil {
		return err
	}
	return t.send(ctx, opPrepareFromURI, bundleOf(keyURI, uri, keyExtras, extras))
}

func (t *TransportControls) Play(ctx context.Context) error {
	return t.send(ctx, opPlay, nil)
}

func (t *TransportControls) PlayFromMediaID(ctx context.Context, mediaID string, extras *binder.Bundle) error {
	return t.send(ctx, opPlayFromMediaID, bundleOf(keyMediaID, mediaID, keyExtras, extras))
}

func (t *TransportControls) PlayFromSearch(ctx context.Context, query string, extras *binder.Bundle) error {
	return t.send(ctx, opPlayFromSearch, bundleOf(keyQuery, query, keyExtras, extras))
}

// PlayFromURI доступен начиная с RevisionMarshmallow
func (t *TransportControls) PlayFromURI(ctx context.Context, uri string, extras *binder.Bundle) error {
	if !t.c.sys.caps.NativePlayFromURI {
		return errors.Wrapf(binder.ErrUnsupportedOperation, "playFromUri on %s", t.c.sys.revision)
	}
	return t.send(ctx, opPlayFromURI, bundleOf(keyURI, uri, keyExtras, extras))
}

func (t *TransportControls) SkipToQueueItem(ctx context.Context, id int64) error {
	return t.send(ctx, opSkipToQueueItem, bundleOf(keyID, id))
}

func (t *TransportControls) Pause(ctx context.Context) error {
	return t.send(ctx, opPause, nil)
}

func (t *TransportControls) Stop(ctx context.Context) error {
	return t.send(ctx, opStop, nil)
}

func (t *TransportControls) SeekTo(ctx context.Context, pos int64) error {
	return t.send(ctx, opSeekTo, bundleOf(keyPosition, pos))
}

func (t *TransportControls) FastForward(ctx context.Context) error {
	return t.send(ctx, opFastForward, nil)
}

func (t *TransportControls) SkipToNext(ctx context.Context) error {
	return t.send(ctx, opNext, nil)
}

func (t *TransportControls) Rewind(ctx context.Context) error {
	return t.send(ctx, opRewind, nil)
}

func (t *TransportControls) SkipToPrevious(ctx context.Context) error {
	return t.send(ctx, opPrevious, nil)
}

func (t *TransportControls) SetRating(ctx context.Context, rating *media.Rating, extras *binder.Bundle) error {
	return t.send(ctx, opRate, bundleOf(keyRating, rating, keyExtras, extras))
}

// SetPlaybackSpeed доступен начиная с RevisionQ
func (t *TransportControls) SetPlaybackSpeed(ctx context.Context, speed float32) error {
	if !t.c.sys.caps.NativePlaybackSpeed {
		return errors.Wrapf(binder.ErrUnsupportedOperation, "setPlaybackSpeed on %s", t.c.sys.revision)
	}
	return t.send(ctx, opSetPlaybackSpeed, bundleOf(keySpeed, speed))
}

func (t *TransportControls) SendCustomAction(ctx context.Context, action string, extras *binder.Bundle) error {
	return t.send(ctx, opSendCustomAction, bundleOf(keyAction, action, keyExtras, extras))
}
