// Package controller реализует контроллер медиа-сессии поверх нативного
// контроллера платформы и extra binder сессии.
package controller

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/looplab/fsm"

	"github.com/arzzra/media_compat/pkg/aidl"
	"github.com/arzzra/media_compat/pkg/binder"
	"github.com/arzzra/media_compat/pkg/core/compaterr"
	"github.com/arzzra/media_compat/pkg/core/logging"
	"github.com/arzzra/media_compat/pkg/core/metrics"
	"github.com/arzzra/media_compat/pkg/looper"
	"github.com/arzzra/media_compat/pkg/media"
	"github.com/arzzra/media_compat/pkg/platform"
	"github.com/arzzra/media_compat/pkg/session"
)

// Состояния контроллера
const (
	StateConnecting = "connecting"
	StateReady      = "ready"
)

const eventExtraBinder = "extra_binder"

// Результаты запроса extra binder
const (
	handshakeOK      = "ok"
	handshakeEmpty   = "empty"
	handshakeFailed  = "failed"
	handshakeIgnored = "ignored"
)

// Options настройки контроллера
type Options struct {
	Metrics *metrics.Collector
}

// Controller контроллер сессии в процессе клиента.
//
// Пока сессия не ответила extra binder, контроллер находится в StateConnecting:
// геттеры, которым нужен extra binder, возвращают значения по умолчанию,
// а зарегистрированные callback ждут в очереди. Ответ переводит контроллер
// в StateReady ровно один раз.
type Controller struct {
	sys     *platform.System
	proc    *binder.Process
	token   *session.Token
	native  *platform.Controller
	metrics *metrics.Collector
	log     *slog.Logger
	fsm     *fsm.FSM

	mu          sync.Mutex
	records     map[uuid.UUID]*record
	pending     []*record
	sessionInfo *binder.Bundle
}

// New создает контроллер сессии token от имени процесса proc.
// Если в токене нет extra binder, контроллер запрашивает его у сессии.
func New(ctx context.Context, sys *platform.System, proc *binder.Process, token *session.Token, opts Options) (*Controller, error) {
	if sys == nil || proc == nil {
		return nil, compaterr.ErrIllegalArgument("controller.New", "platform and process are required")
	}
	if token == nil {
		return nil, compaterr.ErrIllegalArgument("controller.New", "sessionToken must not be null")
	}
	native, err := platform.NewController(sys, proc, token.Native())
	if err != nil {
		return nil, err
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Default()
	}

	c := &Controller{
		sys:     sys,
		proc:    proc,
		token:   token,
		native:  native,
		metrics: opts.Metrics,
		log:     logging.Component("controller").With(slog.String("package", proc.Package)),
		records: make(map[uuid.UUID]*record),
	}

	initial := StateConnecting
	if token.ExtraBinder() != nil {
		initial = StateReady
	}
	c.fsm = fsm.NewFSM(
		initial,
		fsm.Events{
			{Name: eventExtraBinder, Src: []string{StateConnecting}, Dst: StateReady},
		},
		fsm.Callbacks{
			"enter_" + StateReady: func(ctx context.Context, e *fsm.Event) {
				c.log.Debug("Controller: session ready")
			},
		},
	)

	if initial == StateConnecting {
		c.requestExtraBinder(ctx)
	}
	return c, nil
}

// requestExtraBinder отправляет сессии CommandGetExtraBinder. Ответ приходит
// в потоке доставки ResultReceiver.
func (c *Controller) requestExtraBinder(ctx context.Context) {
	rr := looper.NewResultReceiver(c.proc, nil, c.onExtraBinder)
	if err := c.native.SendCommand(ctx, session.CommandGetExtraBinder, nil, rr); err != nil {
		c.metrics.Handshakes.WithLabelValues(handshakeFailed).Inc()
		c.log.Warn("Controller: extra binder request failed", slog.String("error", err.Error()))
	}
}

// onExtraBinder сохраняет extra binder и регистрирует ожидающие callback
// в той же критической секции, что и переход в StateReady
func (c *Controller) onExtraBinder(_ int, data *binder.Bundle) {
	if data == nil {
		c.metrics.Handshakes.WithLabelValues(handshakeEmpty).Inc()
		return
	}
	extra := aidl.AsMediaSession(data.GetBinder(session.KeyExtraBinder), aidl.WithMetrics(c.metrics))
	if extra == nil {
		c.metrics.Handshakes.WithLabelValues(handshakeEmpty).Inc()
		c.log.Warn("Controller: extra binder reply without binder")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fsm.Current() != StateConnecting {
		c.metrics.Handshakes.WithLabelValues(handshakeIgnored).Inc()
		return
	}
	c.token.SetExtraBinder(extra)
	c.token.SetSession2Token(data.GetBundle(session.KeySession2Token))
	ctx := c.proc.Context(context.Background())
	if err := c.fsm.Event(ctx, eventExtraBinder); err != nil {
		c.log.Error("Controller.onExtraBinder: transition failed", slog.String("error", err.Error()))
		return
	}
	c.metrics.Handshakes.WithLabelValues(handshakeOK).Inc()
	c.drainPendingLocked(ctx, extra)
}

// drainPendingLocked регистрирует ожидающие callback в порядке регистрации.
// Ошибка транспорта прекращает обход: оставшиеся получают события только
// через нативный контроллер.
func (c *Controller) drainPendingLocked(ctx context.Context, extra aidl.IMediaSession) {
	pending := c.pending
	c.pending = nil
	for _, r := range pending {
		if err := c.registerExtraLocked(ctx, extra, r); err != nil {
			c.log.Warn("Controller: pending callback registration failed",
				slog.String("callback", r.id.String()),
				slog.String("error", err.Error()))
			break
		}
		c.metrics.PendingDrained.Inc()
		r.post(r.cb.OnSessionReady)
	}
}

// registerExtraLocked регистрирует запись через extra binder и следит за его смертью
func (c *Controller) registerExtraLocked(ctx context.Context, extra aidl.IMediaSession, r *record) error {
	stub := aidl.NewMediaControllerCallbackStub(c.proc, &extraCallback{r: r})
	r.setStub(stub)
	if err := extra.RegisterCallbackListener(c.proc.Context(ctx), stub); err != nil {
		r.setStub(nil)
		killStub(stub)
		return err
	}
	if err := extra.AsBinder().LinkToDeath(r.death); err != nil {
		c.log.Debug("Controller: extra binder is already dead",
			slog.String("callback", r.id.String()),
			slog.String("error", err.Error()))
	}
	return nil
}

func killStub(stub *aidl.MediaControllerCallbackStub) {
	if b, ok := stub.AsBinder().(*binder.Binder); ok {
		b.Kill()
	}
}

// State возвращает StateConnecting или StateReady
func (c *Controller) State() string {
	return c.fsm.Current()
}

// IsSessionReady true, если extra binder получен
func (c *Controller) IsSessionReady() bool {
	return c.token.ExtraBinder() != nil
}

func (c *Controller) Token() *session.Token {
	return c.token
}

// RegisterCallback подписывает cb на события сессии. События доставляются
// в Looper обработчика h; nil означает главный Looper.
func (c *Controller) RegisterCallback(ctx context.Context, cb Callback, h *looper.Handler) error {
	if cb == nil {
		return compaterr.ErrIllegalArgument("Controller.RegisterCallback", "callback must not be null")
	}

	// поиск и вставка под одной блокировкой: повторная регистрация cb
	// из другой горутины не создает вторую запись
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.findLocked(cb) != nil {
		return nil
	}
	r := newRecord(cb, h, c.sys.Revision())
	if err := c.native.RegisterCallback(ctx, r.native, r.handler); err != nil {
		return err
	}
	c.records[r.id] = r
	extra := c.token.ExtraBinder()
	if extra == nil {
		c.pending = append(c.pending, r)
		return nil
	}
	if err := c.registerExtraLocked(ctx, extra, r); err != nil {
		c.log.Warn("Controller.RegisterCallback: extra binder registration failed",
			slog.String("callback", r.id.String()),
			slog.String("error", err.Error()))
		return nil
	}
	r.post(r.cb.OnSessionReady)
	return nil
}

// UnregisterCallback отписывает cb. Не доставленные события отбрасываются.
func (c *Controller) UnregisterCallback(ctx context.Context, cb Callback) {
	r := c.find(cb)
	if r == nil {
		return
	}

	c.mu.Lock()
	delete(c.records, r.id)
	for i, p := range c.pending {
		if p == r {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			break
		}
	}
	stub := r.release()
	extra := c.token.ExtraBinder()
	if stub != nil && extra != nil {
		extra.AsBinder().UnlinkToDeath(r.death)
		if err := extra.UnregisterCallbackListener(c.proc.Context(ctx), stub); err != nil {
			c.log.Warn("Controller.UnregisterCallback: extra binder unregistration failed",
				slog.String("callback", r.id.String()),
				slog.String("error", err.Error()))
		}
	}
	c.mu.Unlock()

	if stub != nil {
		killStub(stub)
	}
	c.native.UnregisterCallback(ctx, r.native)
}

func (c *Controller) find(cb Callback) *record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.findLocked(cb)
}

func (c *Controller) findLocked(cb Callback) *record {
	for _, r := range c.records {
		if r.cb == cb {
			return r
		}
	}
	return nil
}

// RegisteredCallbacks количество зарегистрированных callback
func (c *Controller) RegisteredCallbacks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// SendCommand отправляет сессии произвольную команду
func (c *Controller) SendCommand(ctx context.Context, command string, args *binder.Bundle, cb *looper.ResultReceiver) error {
	if command == "" {
		return compaterr.ErrIllegalArgument("Controller.SendCommand", "command must neither be null nor empty")
	}
	return c.native.SendCommand(ctx, command, args, cb)
}

// DispatchMediaButtonEvent передает событие медиа-кнопки сессии
func (c *Controller) DispatchMediaButtonEvent(ctx context.Context, ev *media.KeyEvent) (bool, error) {
	if ev == nil {
		return false, compaterr.ErrIllegalArgument("Controller.DispatchMediaButtonEvent", "KeyEvent may not be null")
	}
	return c.native.DispatchMediaButtonEvent(ctx, ev)
}

// extraCall выполняет запрос через extra binder. false означает, что extra
// binder еще не получен или вызов не удался.
func (c *Controller) extraCall(ctx context.Context, op string, call func(ctx context.Context, extra aidl.IMediaSession) error) bool {
	extra := c.token.ExtraBinder()
	if extra == nil {
		return false
	}
	if err := call(c.proc.Context(ctx), extra); err != nil {
		c.log.Warn("Controller: extra binder call failed",
			slog.String("op", op),
			slog.String("error", err.Error()))
		return false
	}
	return true
}

// PlaybackState возвращает состояние через extra binder, а без него через
// нативный контроллер
func (c *Controller) PlaybackState(ctx context.Context) *media.PlaybackState {
	var state *media.PlaybackState
	if c.extraCall(ctx, "getPlaybackState", func(ctx context.Context, extra aidl.IMediaSession) (err error) {
		state, err = extra.GetPlaybackState(ctx)
		return err
	}) {
		return state
	}
	return c.native.PlaybackState(ctx)
}

// IsCaptioningEnabled без extra binder возвращает false
func (c *Controller) IsCaptioningEnabled(ctx context.Context) bool {
	var enabled bool
	if c.extraCall(ctx, "isCaptioningEnabled", func(ctx context.Context, extra aidl.IMediaSession) (err error) {
		enabled, err = extra.IsCaptioningEnabled(ctx)
		return err
	}) {
		return enabled
	}
	return false
}

// RepeatMode без extra binder возвращает media.RepeatModeInvalid
func (c *Controller) RepeatMode(ctx context.Context) int {
	var mode int
	if c.extraCall(ctx, "getRepeatMode", func(ctx context.Context, extra aidl.IMediaSession) (err error) {
		mode, err = extra.GetRepeatMode(ctx)
		return err
	}) {
		return mode
	}
	return media.RepeatModeInvalid
}

// ShuffleMode без extra binder возвращает media.ShuffleModeInvalid
func (c *Controller) ShuffleMode(ctx context.Context) int {
	var mode int
	if c.extraCall(ctx, "getShuffleMode", func(ctx context.Context, extra aidl.IMediaSession) (err error) {
		mode, err = extra.GetShuffleMode(ctx)
		return err
	}) {
		return mode
	}
	return media.ShuffleModeInvalid
}

// SessionInfo возвращает копию данных, переданных при создании сессии.
// Пока данные недоступны, результат пустой Bundle; полученные данные кешируются.
func (c *Controller) SessionInfo(ctx context.Context) *binder.Bundle {
	c.mu.Lock()
	cached := c.sessionInfo
	c.mu.Unlock()
	if cached != nil {
		return cached.Copy()
	}

	var info *binder.Bundle
	if c.sys.Capabilities().NativeSessionInfo {
		var err error
		if info, err = c.native.SessionInfo(ctx); err != nil {
			c.log.Warn("Controller: native session info failed", slog.String("error", err.Error()))
		}
	} else {
		c.extraCall(ctx, "getSessionInfo", func(ctx context.Context, extra aidl.IMediaSession) (err error) {
			info, err = extra.GetSessionInfo(ctx)
			return err
		})
	}
	if info == nil || info.IsEmpty() {
		return binder.NewBundle()
	}

	c.mu.Lock()
	c.sessionInfo = info
	c.mu.Unlock()
	return info.Copy()
}

func (c *Controller) Metadata(ctx context.Context) *media.Metadata {
	return c.native.Metadata(ctx)
}

func (c *Controller) Queue(ctx context.Context) []*media.QueueItem {
	return c.native.Queue(ctx)
}

func (c *Controller) QueueTitle(ctx context.Context) string {
	return c.native.QueueTitle(ctx)
}

func (c *Controller) Extras(ctx context.Context) *binder.Bundle {
	return c.native.Extras(ctx)
}

func (c *Controller) RatingType(ctx context.Context) int {
	return c.native.RatingType(ctx)
}

func (c *Controller) Flags(ctx context.Context) int64 {
	return c.native.Flags(ctx)
}

func (c *Controller) PackageName(ctx context.Context) string {
	return c.native.PackageName(ctx)
}

func (c *Controller) Tag(ctx context.Context) string {
	return c.native.Tag(ctx)
}

func (c *Controller) SessionActivity(ctx context.Context) *media.PendingIntent {
	return c.native.SessionActivity(ctx)
}

// PlaybackInfo возвращает параметры громкости или nil, если сессия недоступна
func (c *Controller) PlaybackInfo(ctx context.Context) *PlaybackInfo {
	return playbackInfoFrom(c.native.PlaybackInfo(ctx))
}

func (c *Controller) AdjustVolume(ctx context.Context, direction, flags int) error {
	return c.native.AdjustVolume(ctx, direction, flags)
}

func (c *Controller) SetVolumeTo(ctx context.Context, value, flags int) error {
	return c.native.SetVolumeTo(ctx, value, flags)
}

// requireQueueCommands проверяет, что сессия обрабатывает команды очереди
func (c *Controller) requireQueueCommands(ctx context.Context, op string) error {
	if c.Flags(ctx)&session.FlagHandlesQueueCommands == 0 {
		return compaterr.ErrUnsupportedOperation(op, "this session doesn't support queue management operations")
	}
	return nil
}

// AddQueueItem просит сессию добавить элемент в конец очереди
func (c *Controller) AddQueueItem(ctx context.Context, description *media.MediaDescription) error {
	if err := c.requireQueueCommands(ctx, "addQueueItem"); err != nil {
		return err
	}
	args := binder.NewBundle()
	args.PutParcelable(session.CommandArgumentMediaDescription, description)
	return c.native.SendCommand(ctx, session.CommandAddQueueItem, args, nil)
}

// AddQueueItemAt просит сессию вставить элемент в позицию index
func (c *Controller) AddQueueItemAt(ctx context.Context, description *media.MediaDescription, index int) error {
	if err := c.requireQueueCommands(ctx, "addQueueItemAt"); err != nil {
		return err
	}
	args := binder.NewBundle()
	args.PutParcelable(session.CommandArgumentMediaDescription, description)
	args.PutInt(session.CommandArgumentIndex, index)
	return c.native.SendCommand(ctx, session.CommandAddQueueItemAt, args, nil)
}

func (c *Controller) RemoveQueueItem(ctx context.Context, description *media.MediaDescription) error {
	if err := c.requireQueueCommands(ctx, "removeQueueItem"); err != nil {
		return err
	}
	args := binder.NewBundle()
	args.PutParcelable(session.CommandArgumentMediaDescription, description)
	return c.native.SendCommand(ctx, session.CommandRemoveQueueItem, args, nil)
}

func (c *Controller) RemoveQueueItemAt(ctx context.Context, index int) error {
	if err := c.requireQueueCommands(ctx, "removeQueueItemAt"); err != nil {
		return err
	}
	args := binder.NewBundle()
	args.PutInt(session.CommandArgumentIndex, index)
	return c.native.SendCommand(ctx, session.CommandRemoveQueueItemAt, args, nil)
}

// TransportControls возвращает транспортные команды для ревизии платформы
func (c *Controller) TransportControls() TransportControls {
	return newTransportControls(c.sys.Capabilities(), c.native.TransportControls())
}
