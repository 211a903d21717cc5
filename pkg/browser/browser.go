// Package browser реализует клиента сервиса браузера.
//
// Browser подключается через нативный браузер платформы. Если сервис вернул в
// дополнительных данных корня свой messenger, дальнейшие запросы идут по
// протоколу сообщений: подписки с параметрами страниц, getItem, поиск и
// пользовательские действия. Иначе используется нативный путь, а окно страницы
// вырезается на стороне клиента.
package browser

import (
	"context"
	"log/slog"
	"sync"

	"github.com/looplab/fsm"

	"github.com/arzzra/media_compat/pkg/aidl"
	"github.com/arzzra/media_compat/pkg/binder"
	"github.com/arzzra/media_compat/pkg/browserproto"
	"github.com/arzzra/media_compat/pkg/core/compaterr"
	"github.com/arzzra/media_compat/pkg/core/logging"
	"github.com/arzzra/media_compat/pkg/core/metrics"
	"github.com/arzzra/media_compat/pkg/looper"
	"github.com/arzzra/media_compat/pkg/media"
	"github.com/arzzra/media_compat/pkg/platform"
	"github.com/arzzra/media_compat/pkg/session"
)

// Состояния браузера
const (
	StateDisconnected = "disconnected"
	StateConnecting   = "connecting"
	StateConnected    = "connected"
	StateSuspended    = "suspended"
)

const (
	eventConnect    = "connect"
	eventConnected  = "connected"
	eventFail       = "fail"
	eventSuspend    = "suspend"
	eventDisconnect = "disconnect"
)

const subscriptionTokenDescriptor = "android.support.v4.media.MediaBrowserCompat$SubscriptionToken"

// Options настройки браузера
type Options struct {
	Metrics *metrics.Collector
}

// Browser клиент сервиса браузера.
//
// Все callback приложения выполняются в Looper handler.
type Browser struct {
	sys       *platform.System
	proc      *binder.Process
	component string
	rootHints *binder.Bundle
	callback  ConnectionCallback
	handler   *looper.Handler
	native    *platform.Browser
	metrics   *metrics.Collector
	log       *slog.Logger
	fsm       *fsm.FSM

	mu             sync.Mutex
	wrapper        *serviceBinderWrapper
	callbacks      *looper.Messenger
	serviceVersion int
	rootID         string
	extras         *binder.Bundle
	token          *session.Token
	subs           map[string][]*subscription
	fanout         map[string]*fanoutAdapter
	tokens         map[SubscriptionCallback]binder.IBinder
	notifyOptions  *binder.Bundle
}

// New создает браузер сервиса component. Подсказки корня дополняются версией
// протокола клиента и pid процесса.
func New(sys *platform.System, proc *binder.Process, component string, rootHints *binder.Bundle, cb ConnectionCallback, h *looper.Handler, opts Options) (*Browser, error) {
	if sys == nil || proc == nil {
		return nil, compaterr.ErrIllegalArgument("browser.New", "platform and process are required")
	}
	if component == "" {
		return nil, compaterr.ErrIllegalArgument("browser.New", "service component must not be null")
	}
	if cb == nil {
		return nil, compaterr.ErrIllegalArgument("browser.New", "connection callback must not be null")
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Default()
	}
	if h == nil {
		h = looper.NewHandler(nil, nil)
	}

	hints := rootHints.Copy()
	if hints == nil {
		hints = binder.NewBundle()
	}
	hints.PutInt(browserproto.ExtraClientVersion, browserproto.ClientVersionCurrent)
	hints.PutInt(browserproto.ExtraCallingPID, proc.PID)

	b := &Browser{
		sys:       sys,
		proc:      proc,
		component: component,
		rootHints: hints,
		callback:  cb,
		handler:   h,
		metrics:   opts.Metrics,
		log: logging.Component("browser").With(
			slog.String("package", proc.Package),
			slog.String("service", component)),
		subs:   make(map[string][]*subscription),
		fanout: make(map[string]*fanoutAdapter),
		tokens: make(map[SubscriptionCallback]binder.IBinder),
	}
	b.native = platform.NewBrowser(sys, proc, component, hints, &nativeConnection{b: b}, h)
	b.fsm = fsm.NewFSM(
		StateDisconnected,
		fsm.Events{
			{Name: eventConnect, Src: []string{StateDisconnected, StateSuspended}, Dst: StateConnecting},
			{Name: eventConnected, Src: []string{StateConnecting}, Dst: StateConnected},
			{Name: eventFail, Src: []string{StateConnecting}, Dst: StateDisconnected},
			{Name: eventSuspend, Src: []string{StateConnected}, Dst: StateSuspended},
			{Name: eventDisconnect, Src: []string{StateConnecting, StateConnected, StateSuspended}, Dst: StateDisconnected},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				b.log.Debug("Browser: state changed",
					slog.String("from", e.Src),
					slog.String("to", e.Dst))
			},
		},
	)
	return b, nil
}

// eventLocked выполняет переход, если он допустим в текущем состоянии
func (b *Browser) eventLocked(event string) {
	if !b.fsm.Can(event) {
		return
	}
	if err := b.fsm.Event(context.Background(), event); err != nil {
		b.log.Error("Browser: transition failed",
			slog.String("event", event),
			slog.String("error", err.Error()))
	}
}

// State возвращает текущее состояние подключения
func (b *Browser) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fsm.Current()
}

func (b *Browser) IsConnected() bool {
	return b.State() == StateConnected
}

// Connect начинает подключение. Результат приходит в ConnectionCallback.
func (b *Browser) Connect(ctx context.Context) error {
	b.mu.Lock()
	if !b.fsm.Can(eventConnect) {
		state := b.fsm.Current()
		b.mu.Unlock()
		return compaterr.ErrIllegalState("connect", state)
	}
	b.eventLocked(eventConnect)
	b.mu.Unlock()

	if err := b.native.Connect(ctx); err != nil {
		b.mu.Lock()
		b.eventLocked(eventFail)
		b.mu.Unlock()
		return err
	}
	return nil
}

// Disconnect отключается от сервиса. Отмена регистрации в сервисе выполняется
// по возможности: ошибки транспорта не возвращаются.
func (b *Browser) Disconnect(ctx context.Context) {
	b.mu.Lock()
	wrapper, callbacks := b.wrapper, b.callbacks
	b.wrapper, b.callbacks = nil, nil
	b.resetLocked()
	b.eventLocked(eventDisconnect)
	b.mu.Unlock()

	if wrapper != nil && callbacks != nil {
		if err := wrapper.unregisterCallbackMessenger(ctx, callbacks); err != nil {
			b.log.Debug("Browser.Disconnect: unregister failed", slog.String("error", err.Error()))
		}
		killMessenger(callbacks)
	}
	b.native.Disconnect(ctx)
}

// Root возвращает id корня или пустую строку, если браузер не подключен
func (b *Browser) Root() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fsm.Current() != StateConnected {
		return ""
	}
	return b.rootID
}

// Extras возвращает дополнительные данные корня или nil
func (b *Browser) Extras() *binder.Bundle {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fsm.Current() != StateConnected {
		return nil
	}
	return b.extras
}

// SessionToken возвращает токен сессии сервиса или nil.
// Если сервис передал binder сессии, токен уже содержит extra binder.
func (b *Browser) SessionToken() *session.Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fsm.Current() != StateConnected {
		return nil
	}
	return b.token
}

// ServiceVersion версия протокола сервиса; 0, если сервис его не поддерживает
func (b *Browser) ServiceVersion() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.serviceVersion
}

// NotifyChildrenChangedOptions возвращает options уведомления, вызвавшего
// текущий OnChildrenLoaded. Вне callback возвращает nil.
func (b *Browser) NotifyChildrenChangedOptions() *binder.Bundle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.notifyOptions
}

// GetItem загружает элемент. Результат всегда приходит в cb асинхронно.
// Без соединения GetItem не возвращает ошибку, в отличие от SearchItems и
// SendCustomAction: отказ приходит в cb.OnError.
func (b *Browser) GetItem(ctx context.Context, itemID string, cb ItemCallback) error {
	if itemID == "" {
		return compaterr.ErrIllegalArgument("getItem", "mediaId is empty")
	}
	if cb == nil {
		return compaterr.ErrIllegalArgument("getItem", "cb is null")
	}
	b.mu.Lock()
	connected := b.fsm.Current() == StateConnected
	wrapper, callbacks := b.wrapper, b.callbacks
	b.mu.Unlock()

	fail := func() { b.handler.Post(func() { cb.OnError(itemID) }) }
	if !connected {
		b.log.Info("Browser.GetItem: not connected, unable to retrieve the MediaItem", slog.String("id", itemID))
		fail()
		return nil
	}
	if wrapper == nil {
		if !b.sys.Capabilities().NativeItemFetch {
			fail()
			return nil
		}
		if err := b.native.GetItem(ctx, itemID, cb); err != nil {
			b.log.Warn("Browser.GetItem: native getItem failed",
				slog.String("id", itemID),
				slog.String("error", err.Error()))
			fail()
		}
		return nil
	}

	rr := looper.NewResultReceiver(b.proc, b.handler, func(code int, data *binder.Bundle) {
		if code != browserproto.ResultOK || data == nil || data.Unparcel() != nil ||
			!data.ContainsKey(browserproto.KeyMediaItem) {
			cb.OnError(itemID)
			return
		}
		item, _ := data.GetParcelable(browserproto.KeyMediaItem).(*media.MediaItem)
		cb.OnItemLoaded(item)
	})
	if err := wrapper.getMediaItem(ctx, itemID, rr, callbacks); err != nil {
		b.log.Info("Browser.GetItem: remote error getting media item", slog.String("id", itemID))
		fail()
	}
	return nil
}

// Search выполняет поиск в сервисе. Результат приходит в cb асинхронно.
func (b *Browser) Search(ctx context.Context, query string, extras *binder.Bundle, cb SearchCallback) error {
	if query == "" {
		return compaterr.ErrIllegalArgument("search", "query cannot be empty")
	}
	if cb == nil {
		return compaterr.ErrIllegalArgument("search", "callback cannot be null")
	}
	b.mu.Lock()
	state := b.fsm.Current()
	wrapper, callbacks := b.wrapper, b.callbacks
	b.mu.Unlock()
	if state != StateConnected {
		return compaterr.ErrIllegalState("search", state)
	}

	fail := func() { b.handler.Post(func() { cb.OnError(query, extras) }) }
	if wrapper == nil {
		b.log.Info("Browser.Search: the connected service doesn't support search")
		fail()
		return nil
	}

	rr := looper.NewResultReceiver(b.proc, b.handler, func(code int, data *binder.Bundle) {
		if code != browserproto.ResultOK || data == nil || data.Unparcel() != nil ||
			!data.ContainsKey(browserproto.KeySearchResults) {
			cb.OnError(query, extras)
			return
		}
		items := media.MediaItemsFromParcelables(data.GetParcelableList(browserproto.KeySearchResults))
		cb.OnSearchResult(query, extras, items)
	})
	if err := wrapper.search(ctx, query, extras, rr, callbacks); err != nil {
		b.log.Info("Browser.Search: remote error searching items", slog.String("query", query))
		fail()
	}
	return nil
}

// SendCustomAction отправляет пользовательское действие. cb может быть nil.
func (b *Browser) SendCustomAction(ctx context.Context, action string, extras *binder.Bundle, cb CustomActionCallback) error {
	if action == "" {
		return compaterr.ErrIllegalArgument("sendCustomAction", "action cannot be empty")
	}
	b.mu.Lock()
	state := b.fsm.Current()
	wrapper, callbacks := b.wrapper, b.callbacks
	b.mu.Unlock()
	if state != StateConnected {
		return compaterr.ErrIllegalState("sendCustomAction", state)
	}

	fail := func() {
		if cb != nil {
			b.handler.Post(func() { cb.OnError(action, extras, nil) })
		}
	}
	if wrapper == nil {
		b.log.Info("Browser.SendCustomAction: the connected service doesn't support sendCustomAction")
		fail()
		return nil
	}

	rr := looper.NewResultReceiver(b.proc, b.handler, func(code int, data *binder.Bundle) {
		if cb == nil {
			return
		}
		switch code {
		case browserproto.ResultProgressUpdate:
			cb.OnProgressUpdate(action, extras, data)
		case browserproto.ResultOK:
			cb.OnResult(action, extras, data)
		case browserproto.ResultError:
			cb.OnError(action, extras, data)
		default:
			b.log.Warn("Browser.SendCustomAction: unknown result code",
				slog.Int("code", code),
				slog.String("action", action))
		}
	}, looper.WithProgressCodes(browserproto.ResultProgressUpdate))
	if err := wrapper.sendCustomAction(ctx, action, extras, rr, callbacks); err != nil {
		b.log.Info("Browser.SendCustomAction: remote error sending a custom action", slog.String("action", action))
		fail()
	}
	return nil
}

// resetLocked забывает подписки и данные подключения
func (b *Browser) resetLocked() {
	b.serviceVersion = 0
	b.rootID = ""
	b.extras = nil
	b.token = nil
	b.subs = make(map[string][]*subscription)
	b.fanout = make(map[string]*fanoutAdapter)
	b.tokens = make(map[SubscriptionCallback]binder.IBinder)
}

// dropWrapperLocked отказывается от протокола сообщений; messenger callback
// больше не принимает сообщения
func (b *Browser) dropWrapperLocked() {
	if b.callbacks != nil {
		killMessenger(b.callbacks)
	}
	b.wrapper = nil
	b.callbacks = nil
}

func killMessenger(m *looper.Messenger) {
	if bb, ok := m.Binder().(*binder.Binder); ok {
		bb.Kill()
	}
}

// onNativeConnected подключение через нативный браузер завершено. Если сервис
// поддерживает протокол, браузер регистрирует messenger и ждет ON_CONNECT.
func (b *Browser) onNativeConnected() {
	ctx := context.Background()
	b.mu.Lock()
	if b.fsm.Current() != StateConnecting {
		b.mu.Unlock()
		return
	}
	extras := b.native.Extras()
	b.rootID = b.native.Root()
	b.extras = extras
	b.serviceVersion = extras.GetInt(browserproto.ExtraServiceVersion, 0)
	extra := aidl.AsMediaSession(extras.GetBinder(browserproto.ExtraSessionBinder), aidl.WithMetrics(b.metrics))
	b.token = session.NewToken(b.native.SessionToken(), extra)

	target := extras.GetBinder(browserproto.ExtraMessengerBinder)
	if target == nil || b.serviceVersion == 0 {
		b.eventLocked(eventConnected)
		b.mu.Unlock()
		b.callback.OnConnected()
		return
	}

	var callbacks *looper.Messenger
	callbacks = looper.NewMessenger(b.proc, looper.NewHandler(b.handler.Looper(), func(msg *looper.Message) {
		b.handleServiceMessage(callbacks, msg)
	}))
	wrapper := newServiceBinderWrapper(b.proc, target, b.rootHints, b.metrics)
	b.wrapper, b.callbacks = wrapper, callbacks
	b.mu.Unlock()

	if err := wrapper.registerCallbackMessenger(ctx, callbacks); err != nil {
		b.log.Info("Browser: remote error registering client messenger",
			slog.String("error", err.Error()))
		b.mu.Lock()
		if b.callbacks != callbacks {
			b.mu.Unlock()
			return
		}
		b.dropWrapperLocked()
		b.eventLocked(eventConnected)
		b.mu.Unlock()
		b.callback.OnConnected()
	}
}

func (b *Browser) onNativeSuspended() {
	b.mu.Lock()
	switch b.fsm.Current() {
	case StateConnecting:
		b.mu.Unlock()
		b.failConnect()
	case StateConnected:
		b.dropWrapperLocked()
		b.resetLocked()
		b.eventLocked(eventSuspend)
		b.mu.Unlock()
		b.callback.OnConnectionSuspended()
	default:
		b.mu.Unlock()
	}
}

// failConnect завершает подключение неудачей и сообщает приложению
func (b *Browser) failConnect() {
	b.mu.Lock()
	if b.fsm.Current() != StateConnecting {
		b.mu.Unlock()
		return
	}
	b.dropWrapperLocked()
	b.resetLocked()
	b.eventLocked(eventFail)
	b.mu.Unlock()
	b.native.Disconnect(context.Background())
	b.callback.OnConnectionFailed()
}

// handleServiceMessage обрабатывает сообщение сервиса, пришедшее в messenger callbacks
func (b *Browser) handleServiceMessage(callbacks *looper.Messenger, msg *looper.Message) {
	name := browserproto.ServiceMsgName(msg.What)
	b.metrics.BrowserMessages.WithLabelValues("in", name).Inc()
	b.mu.Lock()
	current := b.callbacks == callbacks
	b.mu.Unlock()
	if !current {
		b.log.Debug("Browser: message for a stale messenger", slog.String("what", name))
		return
	}

	data := msg.Data
	if err := data.Unparcel(); err != nil {
		b.log.Error("Browser: could not unparcel the data",
			slog.String("what", name),
			slog.String("error", err.Error()))
		if msg.What == browserproto.ServiceMsgOnConnect {
			b.failConnect()
		}
		return
	}

	switch msg.What {
	case browserproto.ServiceMsgOnConnect:
		if data == nil || data.GetString(browserproto.DataMediaItemID) == "" {
			b.log.Error("Browser: onConnect without root id")
			b.failConnect()
			return
		}
		b.mu.Lock()
		if b.fsm.Current() != StateConnecting {
			b.mu.Unlock()
			return
		}
		b.eventLocked(eventConnected)
		b.mu.Unlock()
		b.callback.OnConnected()
	case browserproto.ServiceMsgOnConnectFailed:
		b.failConnect()
	case browserproto.ServiceMsgOnLoadChildren:
		b.onLoadChildren(data)
	default:
		b.log.Warn("Browser: unhandled message",
			slog.Int("what", msg.What),
			slog.Int("client_version", browserproto.ClientVersionCurrent),
			slog.Int("service_version", msg.Arg1))
	}
}

func (b *Browser) onLoadChildren(data *binder.Bundle) {
	parentID := data.GetString(browserproto.DataMediaItemID)
	options := data.GetBundle(browserproto.DataOptions)
	notifyOptions := data.GetBundle(browserproto.DataNotifyChildrenChangedOptions)
	hasList := data.ContainsKey(browserproto.DataMediaItemList)
	var items []*media.MediaItem
	if hasList {
		items = media.MediaItemsFromParcelables(data.GetParcelableList(browserproto.DataMediaItemList))
	}

	b.mu.Lock()
	sub := b.findLocked(parentID, options)
	var cb SubscriptionCallback
	if sub != nil {
		cb = sub.callback
	}
	b.mu.Unlock()
	if sub == nil {
		b.log.Debug("Browser: onLoadChildren for id that isn't subscribed", slog.String("id", parentID))
		return
	}

	b.withNotifyOptions(notifyOptions, func() {
		if !hasList {
			cb.OnError(parentID, sub.options)
			return
		}
		cb.OnChildrenLoaded(parentID, items, sub.options)
	})
}

func (b *Browser) withNotifyOptions(options *binder.Bundle, fn func()) {
	b.mu.Lock()
	b.notifyOptions = options
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.notifyOptions = nil
		b.mu.Unlock()
	}()
	fn()
}

// nativeConnection события нативного браузера; выполняются в Looper handler
type nativeConnection struct {
	b *Browser
}

func (n *nativeConnection) OnConnected()           { n.b.onNativeConnected() }
func (n *nativeConnection) OnConnectionSuspended() { n.b.onNativeSuspended() }
func (n *nativeConnection) OnConnectionFailed()    { n.b.failConnect() }
