// Package session реализует сторону плеера: состояние сессии, extra binder для
// возможностей, которых нет у нативной сессии, и рассылку событий контроллерам.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/arzzra/media_compat/pkg/aidl"
	"github.com/arzzra/media_compat/pkg/binder"
	"github.com/arzzra/media_compat/pkg/core/compaterr"
	"github.com/arzzra/media_compat/pkg/core/logging"
	"github.com/arzzra/media_compat/pkg/core/metrics"
	"github.com/arzzra/media_compat/pkg/looper"
	"github.com/arzzra/media_compat/pkg/media"
	"github.com/arzzra/media_compat/pkg/platform"
	"github.com/arzzra/media_compat/pkg/trust"
)

// DefaultDoubleTapTimeout окно двойного нажатия play/pause
const DefaultDoubleTapTimeout = 300 * time.Millisecond

const msgPlayPauseDoubleTapTimeout = 1

// Options настройки сессии
type Options struct {
	// RequireTrustedControllers отклоняет регистрацию callback от процессов,
	// которым не доверяет trust.Manager
	RequireTrustedControllers bool
	DoubleTapTimeout          time.Duration
	Metrics                   *metrics.Collector
}

// Session медиа-сессия процесса плеера.
//
// Состояние дублируется в нативную сессию, а события, которых нет у нативных
// контроллеров, рассылаются callback, зарегистрированным через extra binder.
type Session struct {
	sys     *platform.System
	proc    *binder.Process
	tag     string
	opts    Options
	metrics *metrics.Collector
	log     *slog.Logger
	trust   *trust.Manager

	native        *platform.Session
	token         *Token
	extra         *aidl.MediaSessionStub
	callbacks     *binder.CallbackList[aidl.IMediaControllerCallback]
	registrations *registrations

	// modesMu упорядочивает рассылку режимов так же, как их запись
	modesMu sync.Mutex

	mu                sync.Mutex
	callback          Callback
	handler           *looper.Handler
	regCallback       RegistrationCallback
	regHandler        *looper.Handler
	state             *media.PlaybackState
	metadata          *media.Metadata
	queue             []*media.QueueItem
	queueTitle        string
	extras            *binder.Bundle
	sessionInfo       *binder.Bundle
	launchIntent      *media.PendingIntent
	flags             int64
	ratingType        int
	repeatMode        int
	shuffleMode       int
	captioningEnabled bool
	destroyed         bool
	controllerInfo    *trust.RemoteUserInfo
	playPausePending  bool
}

// New создает сессию процесса proc. Сессия сразу отвечает на запрос extra binder,
// даже если callback приложения еще не задан.
func New(sys *platform.System, proc *binder.Process, tag string, sessionInfo *binder.Bundle, opts Options) (*Session, error) {
	if tag == "" {
		return nil, compaterr.ErrIllegalArgument("session.New", "tag must not be null or empty")
	}
	if sys == nil || proc == nil {
		return nil, compaterr.ErrIllegalArgument("session.New", "platform and process are required")
	}
	if opts.DoubleTapTimeout <= 0 {
		opts.DoubleTapTimeout = DefaultDoubleTapTimeout
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Default()
	}

	s := &Session{
		sys:         sys,
		proc:        proc,
		tag:         tag,
		opts:        opts,
		metrics:     opts.Metrics,
		log:         logging.Component("session").With(slog.String("tag", tag)),
		trust:       trust.NewManager(sys, proc),
		sessionInfo: sessionInfo.Copy(),
		flags:       FlagHandlesMediaButtons | FlagHandlesTransportControls,
		ratingType:  media.RatingNone,
		repeatMode:  media.RepeatModeNone,
		shuffleMode: media.ShuffleModeNone,
	}
	s.native = platform.NewSession(sys, proc, tag, sessionInfo)
	s.extra = aidl.NewMediaSessionStub(proc, &extraSession{s: s})
	s.token = NewToken(s.native.Token(), s.extra)
	s.callbacks = binder.NewCallbackList(s.onCallbackDied)
	s.registrations = newRegistrations(s.notifyRegistration)

	s.native.SetFlags(s.flags)
	s.SetCallback(nil, nil)

	s.log.Debug("session created",
		slog.String("package", proc.Package),
		slog.Int("revision", int(sys.Revision())))
	return s, nil
}

// Token возвращает токен сессии вместе с extra binder
func (s *Session) Token() *Token {
	return s.token
}

func (s *Session) Tag() string {
	return s.tag
}

// SetCallback задает callback приложения и Looper его вызовов.
// nil отключает callback, но сессия продолжает отвечать на служебные команды.
func (s *Session) SetCallback(cb Callback, h *looper.Handler) {
	var l *looper.Looper
	if h != nil {
		l = h.Looper()
	}
	handler := looper.NewHandler(l, s.handleMessage)

	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	old := s.handler
	s.callback = cb
	s.handler = handler
	s.playPausePending = false
	s.mu.Unlock()

	if old != nil {
		old.RemoveCallbacksAndMessages()
	}
	s.native.SetCallback(dispatcher{s: s}, handler)
}

// SetRegistrationCallback задает получателя событий регистрации контроллеров
func (s *Session) SetRegistrationCallback(cb RegistrationCallback, h *looper.Handler) {
	if cb != nil && h == nil {
		h = looper.NewHandler(nil, nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regCallback = cb
	s.regHandler = h
}

func (s *Session) SetActive(active bool) {
	s.native.SetActive(active)
}

func (s *Session) IsActive() bool {
	return s.native.IsActive()
}

// SetFlags задает флаги; FlagHandlesMediaButtons и FlagHandlesTransportControls
// выставлены всегда
func (s *Session) SetFlags(flags int64) {
	flags |= FlagHandlesMediaButtons | FlagHandlesTransportControls
	s.mu.Lock()
	s.flags = flags
	s.mu.Unlock()
	s.native.SetFlags(flags)
}

func (s *Session) Flags() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags
}

// SetPlaybackState сохраняет состояние и рассылает его всем контроллерам,
// даже если оно не изменилось
func (s *Session) SetPlaybackState(state *media.PlaybackState) {
	s.mu.Lock()
	s.state = state.Copy()
	s.mu.Unlock()

	s.broadcast("onPlaybackStateChanged", func(ctx context.Context, cb aidl.IMediaControllerCallback) error {
		return cb.OnPlaybackStateChanged(ctx, state)
	})
	s.native.SetPlaybackState(state)
}

func (s *Session) PlaybackState() *media.PlaybackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Copy()
}

// SetMetadata сохраняет метаданные; нативная сессия рассылает их контроллерам
func (s *Session) SetMetadata(metadata *media.Metadata) {
	s.mu.Lock()
	s.metadata = metadata
	s.mu.Unlock()
	s.native.SetMetadata(metadata)
}

func (s *Session) Metadata() *media.Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metadata
}

// SetQueue задает очередь. Повторяющиеся id только логируются.
func (s *Session) SetQueue(queue []*media.QueueItem) error {
	seen := make(map[int64]struct{}, len(queue))
	for _, item := range queue {
		if item == nil {
			return compaterr.ErrIllegalArgument("Session.SetQueue", "queue item must not be null")
		}
		if _, dup := seen[item.ID]; dup {
			err := compaterr.ErrDuplicateQueueID(item.ID)
			s.log.Warn("Session.SetQueue: duplicate queue id",
				slog.Int64("id", item.ID),
				slog.String("code", compaterr.GetErrorCode(err)),
				slog.String("error", err.Error()))
		}
		seen[item.ID] = struct{}{}
	}

	s.mu.Lock()
	if queue == nil {
		s.queue = nil
	} else {
		s.queue = append([]*media.QueueItem(nil), queue...)
	}
	s.mu.Unlock()
	s.native.SetQueue(queue)
	return nil
}

func (s *Session) Queue() []*media.QueueItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queue == nil {
		return nil
	}
	return append([]*media.QueueItem(nil), s.queue...)
}

func (s *Session) SetQueueTitle(title string) {
	s.mu.Lock()
	s.queueTitle = title
	s.mu.Unlock()
	s.native.SetQueueTitle(title)
}

func (s *Session) SetExtras(extras *binder.Bundle) {
	s.mu.Lock()
	s.extras = extras.Copy()
	s.mu.Unlock()
	s.native.SetExtras(extras)
}

func (s *Session) SetRatingType(ratingType int) {
	s.mu.Lock()
	s.ratingType = ratingType
	s.mu.Unlock()
	s.native.SetRatingType(ratingType)
}

func (s *Session) SetSessionActivity(pi *media.PendingIntent) {
	s.mu.Lock()
	s.launchIntent = pi
	s.mu.Unlock()
	s.native.SetSessionActivity(pi)
}

// SetRepeatMode рассылает onRepeatModeChanged, только если режим изменился
func (s *Session) SetRepeatMode(repeatMode int) {
	s.modesMu.Lock()
	defer s.modesMu.Unlock()

	s.mu.Lock()
	if s.repeatMode == repeatMode {
		s.mu.Unlock()
		return
	}
	s.repeatMode = repeatMode
	s.mu.Unlock()

	s.broadcast("onRepeatModeChanged", func(ctx context.Context, cb aidl.IMediaControllerCallback) error {
		return cb.OnRepeatModeChanged(ctx, repeatMode)
	})
}

func (s *Session) RepeatMode() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return media.RepeatModeInvalid
	}
	return s.repeatMode
}

// SetShuffleMode рассылает onShuffleModeChanged, только если режим изменился
func (s *Session) SetShuffleMode(shuffleMode int) {
	s.modesMu.Lock()
	defer s.modesMu.Unlock()

	s.mu.Lock()
	if s.shuffleMode == shuffleMode {
		s.mu.Unlock()
		return
	}
	s.shuffleMode = shuffleMode
	s.mu.Unlock()

	s.broadcast("onShuffleModeChanged", func(ctx context.Context, cb aidl.IMediaControllerCallback) error {
		return cb.OnShuffleModeChanged(ctx, shuffleMode)
	})
}

func (s *Session) ShuffleMode() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return media.ShuffleModeInvalid
	}
	return s.shuffleMode
}

func (s *Session) SetCaptioningEnabled(enabled bool) {
	s.modesMu.Lock()
	defer s.modesMu.Unlock()

	s.mu.Lock()
	if s.captioningEnabled == enabled {
		s.mu.Unlock()
		return
	}
	s.captioningEnabled = enabled
	s.mu.Unlock()

	s.broadcast("onCaptioningEnabledChanged", func(ctx context.Context, cb aidl.IMediaControllerCallback) error {
		return cb.OnCaptioningEnabledChanged(ctx, enabled)
	})
}

func (s *Session) IsCaptioningEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.destroyed && s.captioningEnabled
}

// SendSessionEvent отправляет событие контроллерам. До ревизии 23 нативные
// контроллеры не доставляют события надежно, поэтому событие дублируется через extra binder.
func (s *Session) SendSessionEvent(event string, extras *binder.Bundle) error {
	if event == "" {
		return compaterr.ErrIllegalArgument("Session.SendSessionEvent", "event cannot be null or empty")
	}
	if s.sys.Revision() < platform.RevisionMarshmallow {
		s.broadcast("onEvent", func(ctx context.Context, cb aidl.IMediaControllerCallback) error {
			return cb.OnEvent(ctx, event, extras)
		})
	}
	s.native.SendSessionEvent(event, extras)
	return nil
}

func (s *Session) SetPlaybackToLocal(stream int) {
	s.native.SetPlaybackToLocal(stream)
}

func (s *Session) SetPlaybackToRemote(controlType, maxVolume, currentVolume int, provider platform.VolumeProvider) {
	s.native.SetPlaybackToRemote(controlType, maxVolume, currentVolume, provider)
}

// CurrentControllerInfo возвращает контроллер, чей запрос сейчас обрабатывает callback.
// Вне вызова callback второй результат false.
func (s *Session) CurrentControllerInfo() (trust.RemoteUserInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.controllerInfo == nil {
		return trust.RemoteUserInfo{}, false
	}
	return *s.controllerInfo, true
}

// RegisteredControllers количество callback, зарегистрированных через extra binder
func (s *Session) RegisteredControllers() int {
	return s.callbacks.Len()
}

// Release уничтожает сессию. Контроллеры получают onSessionDestroyed,
// после чего геттеры extra binder возвращают значения INVALID.
func (s *Session) Release() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	h := s.handler
	s.callback = nil
	s.mu.Unlock()

	s.broadcast("onSessionDestroyed", func(ctx context.Context, cb aidl.IMediaControllerCallback) error {
		return cb.OnSessionDestroyed(ctx)
	})
	s.callbacks.Kill()
	s.registrations.clear()
	s.metrics.RegisteredCallbacks.Set(0)
	if h != nil {
		h.RemoveCallbacksAndMessages()
	}
	s.native.SetCallback(nil, nil)
	s.native.Release()
	s.log.Debug("session released")
}

func (s *Session) isDestroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

// broadcast рассылает событие по снимку зарегистрированных callback.
// Ошибка доставки одному контроллеру не прерывает рассылку остальным.
func (s *Session) broadcast(event string, deliver func(ctx context.Context, cb aidl.IMediaControllerCallback) error) {
	ctx := s.proc.Context(context.Background())
	s.metrics.Broadcasts.WithLabelValues(event).Inc()
	for _, rc := range s.callbacks.Snapshot() {
		if err := deliver(ctx, rc.Callback); err != nil {
			s.metrics.DeadCallbacks.WithLabelValues(event).Inc()
			s.log.Warn("Session.broadcast: delivery failed",
				slog.String("event", event),
				slog.Any("controller", rc.Cookie),
				slog.String("error", err.Error()))
		}
	}
}

// registerController вызывается из extra binder в контексте транзакции
func (s *Session) registerController(ctx context.Context, cb aidl.IMediaControllerCallback) error {
	if cb == nil {
		return compaterr.ErrIllegalArgument("registerCallbackListener", "callback must not be null")
	}
	if s.isDestroyed() {
		return nil
	}
	id := binder.CallingIdentity(ctx)
	if s.opts.RequireTrustedControllers {
		pkg := s.sys.PackageForUID(id.UID)
		if !s.trust.IsTrustedForMediaControl(trust.FromIdentity(pkg, id)) {
			s.log.Warn("Session: untrusted controller rejected",
				slog.String("package", pkg),
				slog.Int("pid", id.PID),
				slog.Int("uid", id.UID))
			return compaterr.ErrUntrustedCaller(pkg, id.PID, id.UID)
		}
	}

	info := trust.FromIdentity(trust.LegacyController, id)
	if !s.callbacks.Register(cb, info) {
		s.log.Debug("Session: controller callback is already dead", slog.String("controller", info.String()))
		return nil
	}
	s.registrations.register(cb.AsBinder(), info)
	s.metrics.RegisteredCallbacks.Set(float64(s.callbacks.Len()))
	return nil
}

func (s *Session) unregisterController(ctx context.Context, cb aidl.IMediaControllerCallback) error {
	if cb == nil {
		return nil
	}
	if !s.callbacks.Unregister(cb) {
		return nil
	}
	s.registrations.unregister(cb.AsBinder())
	s.metrics.RegisteredCallbacks.Set(float64(s.callbacks.Len()))
	return nil
}

func (s *Session) onCallbackDied(cb aidl.IMediaControllerCallback, cookie any) {
	s.registrations.died(cb.AsBinder())
	s.metrics.RegisteredCallbacks.Set(float64(s.callbacks.Len()))
	s.log.Debug("Session: controller callback died", slog.Any("controller", cookie))
}

func (s *Session) notifyRegistration(info trust.RemoteUserInfo, registered bool) {
	s.mu.Lock()
	cb, h := s.regCallback, s.regHandler
	s.mu.Unlock()
	if cb == nil {
		return
	}
	h.Post(func() {
		if registered {
			cb.OnCallbackRegistered(info.PID, info.UID)
		} else {
			cb.OnCallbackUnregistered(info.PID, info.UID)
		}
	})
}

// post выполняет fn в Looper callback от имени контроллера info
func (s *Session) post(ctx context.Context, info trust.RemoteUserInfo, fn func(ctx context.Context, cb Callback)) {
	s.mu.Lock()
	h, destroyed := s.handler, s.destroyed
	s.mu.Unlock()
	if h == nil || destroyed {
		return
	}
	ctx = context.WithoutCancel(ctx)
	h.Post(func() {
		s.dispatch(info, func(cb Callback) { fn(ctx, cb) })
	})
}

// dispatch вызывает callback приложения, пока CurrentControllerInfo указывает на info.
// Возвращает false, если callback не задан.
func (s *Session) dispatch(info trust.RemoteUserInfo, fn func(cb Callback)) bool {
	s.mu.Lock()
	cb := s.callback
	if cb == nil || s.destroyed {
		s.mu.Unlock()
		return false
	}
	s.controllerInfo = &info
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.controllerInfo = nil
		s.mu.Unlock()
	}()
	fn(cb)
	return true
}

// nativeControllerInfo определяет контроллер вызова, пришедшего через нативную сессию
func (s *Session) nativeControllerInfo(ctx context.Context) trust.RemoteUserInfo {
	id := binder.CallingIdentity(ctx)
	caps := s.sys.Capabilities()
	if caps.FrameworkControllerInfo && id.Package != "" {
		return trust.FromIdentity(id.Package, id)
	}
	pkg := trust.LegacyController
	if caps.CallingPackage && id.Package != "" {
		pkg = id.Package
	}
	return trust.RemoteUserInfo{PackageName: pkg, PID: trust.UnknownPID, UID: trust.UnknownUID}
}

// extraBinderReply ответ на CommandGetExtraBinder
func (s *Session) extraBinderReply() *binder.Bundle {
	reply := binder.NewBundle()
	reply.PutBinder(KeyExtraBinder, s.extra.AsBinder())
	if st := s.token.Session2Token(); st != nil {
		reply.PutBundle(KeySession2Token, st)
	}
	return reply
}
