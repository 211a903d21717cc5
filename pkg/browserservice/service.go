// Package browserservice реализует сервис браузера с протоколом сообщений
// поверх нативного сервиса платформы.
//
// Клиент, который указал в подсказках корня версию протокола, получает в
// дополнительных данных корня messenger сервиса и дальше работает через него:
// подписки с параметрами страниц, getItem, поиск и пользовательские действия.
// Остальные клиенты обслуживаются нативным сервисом платформы.
package browserservice

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/arzzra/media_compat/pkg/binder"
	"github.com/arzzra/media_compat/pkg/browserproto"
	"github.com/arzzra/media_compat/pkg/core/compaterr"
	"github.com/arzzra/media_compat/pkg/core/logging"
	"github.com/arzzra/media_compat/pkg/core/metrics"
	"github.com/arzzra/media_compat/pkg/looper"
	"github.com/arzzra/media_compat/pkg/media"
	"github.com/arzzra/media_compat/pkg/platform"
	"github.com/arzzra/media_compat/pkg/session"
	"github.com/arzzra/media_compat/pkg/trust"
)

// Результаты подключения для метрик
const (
	connectAccepted = "accepted"
	connectRefused  = "refused"
	connectInvalid  = "invalid"
)

// Options настройки сервиса
type Options struct {
	Metrics *metrics.Collector
}

type subscription struct {
	token   binder.IBinder
	options *binder.Bundle
}

// connection клиент, зарегистрировавший messenger обратных вызовов
type connection struct {
	id        uuid.UUID
	pkg       string
	pid       int
	uid       int
	rootHints *binder.Bundle
	root      *Root
	callbacks *looper.Messenger
	recipient binder.DeathRecipient
	subs      map[string][]subscription
}

func (c *connection) info() trust.RemoteUserInfo {
	return trust.RemoteUserInfo{PackageName: c.pkg, PID: c.pid, UID: c.uid}
}

// Service сервис браузера процесса плеера
type Service struct {
	sys       *platform.System
	proc      *binder.Process
	component string
	callbacks Callbacks
	metrics   *metrics.Collector
	log       *slog.Logger

	handler   *looper.Handler
	messenger *looper.Messenger
	native    *platform.BrowserService

	mu      sync.Mutex
	token   *session.Token
	conns   map[binder.IBinder]*connection
	pending []*connection
	current *connection
}

// New создает сервис и регистрирует его в платформе под именем component.
// Все callback приложения выполняются в l.
func New(sys *platform.System, proc *binder.Process, component string, callbacks Callbacks, l *looper.Looper, opts Options) (*Service, error) {
	if sys == nil || proc == nil {
		return nil, compaterr.ErrIllegalArgument("browserservice.New", "platform and process are required")
	}
	if component == "" {
		return nil, compaterr.ErrIllegalArgument("browserservice.New", "component must not be empty")
	}
	if callbacks == nil {
		return nil, compaterr.ErrIllegalArgument("browserservice.New", "callbacks must not be null")
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Default()
	}
	if l == nil {
		l = looper.Main()
	}

	s := &Service{
		sys:       sys,
		proc:      proc,
		component: component,
		callbacks: callbacks,
		metrics:   opts.Metrics,
		log:       logging.Component("browserservice").With(slog.String("service", component)),
		handler:   looper.NewHandler(l, nil),
		conns:     make(map[binder.IBinder]*connection),
	}
	s.messenger = looper.NewMessenger(proc, looper.NewHandler(l, s.handleMessage))
	s.native = platform.NewBrowserService(sys, proc, component, &nativeCallbacks{s: s}, s.handler)
	return s, nil
}

// SetSessionToken задает сессию, токен которой получают клиенты.
// Клиенты протокола получают также extra binder сессии.
func (s *Service) SetSessionToken(token *session.Token) error {
	if token == nil {
		return compaterr.ErrIllegalArgument("SetSessionToken", "Session token may not be null")
	}
	s.mu.Lock()
	if s.token != nil {
		s.mu.Unlock()
		return compaterr.ErrIllegalState("SetSessionToken", "token already set")
	}
	s.token = token
	s.mu.Unlock()
	s.native.SetSessionToken(token.Native())
	return nil
}

// SessionToken возвращает токен сессии или nil
func (s *Service) SessionToken() *session.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Connections количество клиентов протокола
func (s *Service) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// CurrentBrowserInfo возвращает клиента, запрос которого обрабатывается сейчас.
// Значение доступно только внутри callback приложения.
func (s *Service) CurrentBrowserInfo() (trust.RemoteUserInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return trust.RemoteUserInfo{}, false
	}
	return s.current.info(), true
}

// NotifyChildrenChanged перезагружает детей parentID у подписанных клиентов.
// Если options заданы, перезагружаются только подписки, окна которых с ними пересекаются.
func (s *Service) NotifyChildrenChanged(parentID string, options *binder.Bundle) error {
	if parentID == "" {
		return compaterr.ErrIllegalArgument("NotifyChildrenChanged", "parentId cannot be null in notifyChildrenChanged")
	}
	options = options.Copy()
	s.handler.Post(func() {
		ctx := s.proc.Context(context.Background())
		type target struct {
			conn    *connection
			options *binder.Bundle
		}
		var targets []target
		s.mu.Lock()
		for _, conn := range s.conns {
			for _, sub := range conn.subs[parentID] {
				if options == nil || browserproto.HasDuplicatedItems(options, sub.options) {
					targets = append(targets, target{conn: conn, options: sub.options})
				}
			}
		}
		s.mu.Unlock()
		for _, t := range targets {
			s.performLoadChildren(ctx, t.conn, parentID, t.options, options)
		}
	})
	s.native.NotifyChildrenChanged(parentID, options)
	return nil
}

// Release снимает сервис с регистрации и забывает всех клиентов
func (s *Service) Release() {
	s.native.Release()
	if b, ok := s.messenger.Binder().(*binder.Binder); ok {
		b.Kill()
	}
	s.mu.Lock()
	conns := s.conns
	s.conns = make(map[binder.IBinder]*connection)
	s.pending = nil
	s.mu.Unlock()
	for key, conn := range conns {
		key.UnlinkToDeath(conn.recipient)
		s.metrics.Subscriptions.Sub(float64(countSubs(conn)))
	}
}

func (s *Service) handleMessage(msg *looper.Message) {
	name := browserproto.ClientMsgName(msg.What)
	s.metrics.BrowserMessages.WithLabelValues("in", name).Inc()
	if msg.ReplyTo == nil {
		s.log.Warn("Service.handleMessage: message without reply messenger", slog.String("what", name))
		return
	}
	data := msg.Data
	if err := data.Unparcel(); err != nil {
		s.log.Error("Service.handleMessage: could not unparcel the data",
			slog.String("what", name),
			slog.String("error", err.Error()))
		return
	}
	ctx := s.proc.Context(context.Background())

	switch msg.What {
	case browserproto.ClientMsgConnect, browserproto.ClientMsgRegisterCallbackMessenger:
		s.register(ctx, msg)
	case browserproto.ClientMsgDisconnect, browserproto.ClientMsgUnregisterCallbackMessenger:
		s.unregister(msg.ReplyTo.Binder())
	case browserproto.ClientMsgAddSubscription:
		s.addSubscription(ctx, msg.ReplyTo, data.GetString(browserproto.DataMediaItemID),
			data.GetBinder(browserproto.DataCallbackToken), data.GetBundle(browserproto.DataOptions))
	case browserproto.ClientMsgRemoveSubscription:
		s.removeSubscription(msg.ReplyTo, data.GetString(browserproto.DataMediaItemID),
			data.GetBinder(browserproto.DataCallbackToken))
	case browserproto.ClientMsgGetMediaItem:
		rr, _ := data.GetParcelable(browserproto.DataResultReceiver).(*looper.ResultReceiver)
		s.getMediaItem(ctx, msg.ReplyTo, data.GetString(browserproto.DataMediaItemID), rr)
	case browserproto.ClientMsgSearch:
		rr, _ := data.GetParcelable(browserproto.DataResultReceiver).(*looper.ResultReceiver)
		s.search(ctx, msg.ReplyTo, data.GetString(browserproto.DataSearchQuery),
			data.GetBundle(browserproto.DataSearchExtras), rr)
	case browserproto.ClientMsgSendCustomAction:
		rr, _ := data.GetParcelable(browserproto.DataResultReceiver).(*looper.ResultReceiver)
		s.sendCustomAction(ctx, msg.ReplyTo, data.GetString(browserproto.DataCustomAction),
			data.GetBundle(browserproto.DataCustomActionExtras), rr)
	default:
		s.log.Warn("Service.handleMessage: unhandled message",
			slog.Int("what", msg.What),
			slog.Int("service_version", browserproto.ServiceVersionCurrent),
			slog.Int("client_version", msg.Arg1))
	}
}

// register регистрирует messenger клиента. Корень берется из подключения
// через нативный сервис, если оно было, иначе запрашивается у приложения.
func (s *Service) register(ctx context.Context, msg *looper.Message) {
	callbacks := msg.ReplyTo
	data := msg.Data
	pkg := data.GetString(browserproto.DataPackageName)
	pid := data.GetInt(browserproto.DataCallingPID, trust.UnknownPID)
	uid := msg.SendingUID

	if pkgUID, ok := s.sys.PackageUID(pkg); !ok || pkgUID != uid {
		s.metrics.BrowserConnections.WithLabelValues(connectInvalid).Inc()
		s.log.Warn("Service.register: package/uid mismatch",
			slog.String("package", pkg),
			slog.Int("uid", msg.SendingUID))
		s.send(ctx, callbacks, browserproto.ServiceMsgOnConnectFailed, nil)
		return
	}

	conn := s.takePending(pkg, uid)
	if conn == nil {
		hints := data.GetBundle(browserproto.DataRootHints).Copy()
		hints.Remove(browserproto.ExtraClientVersion)
		hints.Remove(browserproto.ExtraCallingPID)
		conn = &connection{
			id:        uuid.New(),
			pkg:       pkg,
			pid:       pid,
			uid:       uid,
			rootHints: hints,
		}
		conn.root = s.getRoot(ctx, conn)
	}
	if conn.root == nil {
		s.metrics.BrowserConnections.WithLabelValues(connectRefused).Inc()
		s.log.Info("Service.register: no root for client",
			slog.String("package", pkg),
			slog.Int("pid", pid))
		s.send(ctx, callbacks, browserproto.ServiceMsgOnConnectFailed, nil)
		return
	}
	if conn.pid < 0 {
		conn.pid = pid
	}
	conn.callbacks = callbacks
	conn.subs = make(map[string][]subscription)

	key := callbacks.Binder()
	conn.recipient = binder.NewDeathRecipient(func() {
		s.handler.Post(func() { s.unregister(key) })
	})
	if err := key.LinkToDeath(conn.recipient); err != nil {
		s.log.Debug("Service.register: client is already dead", slog.String("package", pkg))
		return
	}

	s.mu.Lock()
	if old, ok := s.conns[key]; ok {
		key.UnlinkToDeath(old.recipient)
		s.metrics.Subscriptions.Sub(float64(countSubs(old)))
	}
	s.conns[key] = conn
	token := s.token
	s.mu.Unlock()

	s.metrics.BrowserConnections.WithLabelValues(connectAccepted).Inc()
	s.log.Debug("Service.register: client connected",
		slog.String("connection", conn.id.String()),
		slog.String("package", pkg),
		slog.Int("pid", conn.pid))

	reply := binder.NewBundle()
	reply.PutString(browserproto.DataMediaItemID, conn.root.RootID)
	if token != nil {
		reply.PutParcelable(browserproto.DataMediaSessionToken, token)
	}
	reply.PutBundle(browserproto.DataRootHints, conn.root.Extras)
	s.send(ctx, callbacks, browserproto.ServiceMsgOnConnect, reply)
}

func (s *Service) takePending(pkg string, uid int) *connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, conn := range s.pending {
		if conn.uid == uid && conn.pkg == pkg {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return conn
		}
	}
	return nil
}

func (s *Service) unregister(key binder.IBinder) {
	s.mu.Lock()
	conn, ok := s.conns[key]
	delete(s.conns, key)
	s.mu.Unlock()
	if !ok {
		return
	}
	key.UnlinkToDeath(conn.recipient)
	s.metrics.Subscriptions.Sub(float64(countSubs(conn)))
	s.log.Debug("Service.unregister: client disconnected", slog.String("connection", conn.id.String()))
}

func (s *Service) lookup(callbacks *looper.Messenger) *connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns[callbacks.Binder()]
}

func (s *Service) addSubscription(ctx context.Context, callbacks *looper.Messenger, parentID string, token binder.IBinder, options *binder.Bundle) {
	conn := s.lookup(callbacks)
	if conn == nil {
		s.log.Warn("Service.addSubscription: callback isn't registered", slog.String("id", parentID))
		return
	}
	if parentID == "" {
		return
	}
	s.mu.Lock()
	list := conn.subs[parentID]
	for _, sub := range list {
		if sub.token == token && browserproto.AreSameOptions(sub.options, options) {
			s.mu.Unlock()
			return
		}
	}
	conn.subs[parentID] = append(list, subscription{token: token, options: options})
	s.mu.Unlock()
	s.metrics.Subscriptions.Inc()

	s.performLoadChildren(ctx, conn, parentID, options, nil)
}

func (s *Service) removeSubscription(callbacks *looper.Messenger, parentID string, token binder.IBinder) {
	conn := s.lookup(callbacks)
	if conn == nil {
		s.log.Warn("Service.removeSubscription: callback isn't registered", slog.String("id", parentID))
		return
	}
	s.mu.Lock()
	list, ok := conn.subs[parentID]
	removed := 0
	if token == nil {
		removed = len(list)
		delete(conn.subs, parentID)
	} else {
		kept := list[:0]
		for _, sub := range list {
			if sub.token == token {
				removed++
				continue
			}
			kept = append(kept, sub)
		}
		if len(kept) == 0 {
			delete(conn.subs, parentID)
		} else {
			conn.subs[parentID] = kept
		}
	}
	s.mu.Unlock()
	s.metrics.Subscriptions.Sub(float64(removed))
	if !ok || removed == 0 {
		s.log.Warn("Service.removeSubscription: no subscription for id", slog.String("id", parentID))
	}
}

// performLoadChildren запрашивает детей у приложения и отправляет их клиенту.
// Результат, пришедший после отключения клиента, отбрасывается.
func (s *Service) performLoadChildren(ctx context.Context, conn *connection, parentID string, options, notifyOptions *binder.Bundle) {
	_, handlesOptions := s.callbacks.(OptionsLoader)
	paged := options != nil && !handlesOptions

	result := platform.NewResult(parentID, func(items []*media.MediaItem, ok bool) {
		s.mu.Lock()
		cur := s.conns[conn.callbacks.Binder()]
		s.mu.Unlock()
		if cur != conn {
			s.log.Debug("Service: not sending onLoadChildren result for connection that has been disconnected",
				slog.String("package", conn.pkg),
				slog.String("id", parentID))
			return
		}
		data := binder.NewBundle()
		data.PutString(browserproto.DataMediaItemID, parentID)
		data.PutBundle(browserproto.DataOptions, options)
		data.PutBundle(browserproto.DataNotifyChildrenChangedOptions, notifyOptions)
		if ok && items != nil {
			if paged {
				items = browserproto.ApplyOptions(items, options)
			}
			data.PutParcelableList(browserproto.DataMediaItemList, media.MediaItemsToParcelables(items))
		}
		s.send(ctx, conn.callbacks, browserproto.ServiceMsgOnLoadChildren, data)
	})

	s.withConnection(conn, func() {
		if l, ok := s.callbacks.(OptionsLoader); ok && options != nil {
			l.OnLoadChildrenWithOptions(ctx, parentID, options, result)
			return
		}
		s.callbacks.OnLoadChildren(ctx, parentID, result)
	})
	result.CheckCompleted()
}

func (s *Service) getMediaItem(ctx context.Context, callbacks *looper.Messenger, itemID string, rr *looper.ResultReceiver) {
	conn := s.lookup(callbacks)
	if conn == nil {
		s.log.Warn("Service.getMediaItem: callback isn't registered", slog.String("id", itemID))
		return
	}
	if itemID == "" || rr == nil {
		return
	}
	loader, ok := s.callbacks.(ItemLoader)
	if !ok {
		s.reply(ctx, rr, browserproto.ResultError, nil)
		return
	}
	result := platform.NewResult(itemID, func(item *media.MediaItem, ok bool) {
		if !ok {
			s.reply(ctx, rr, browserproto.ResultError, nil)
			return
		}
		data := binder.NewBundle()
		if item != nil {
			data.PutParcelable(browserproto.KeyMediaItem, item)
		} else {
			data.PutParcelable(browserproto.KeyMediaItem, nil)
		}
		s.reply(ctx, rr, browserproto.ResultOK, data)
	})
	s.withConnection(conn, func() { loader.OnLoadItem(ctx, itemID, result) })
	result.CheckCompleted()
}

func (s *Service) search(ctx context.Context, callbacks *looper.Messenger, query string, extras *binder.Bundle, rr *looper.ResultReceiver) {
	conn := s.lookup(callbacks)
	if conn == nil {
		s.log.Warn("Service.search: callback isn't registered", slog.String("query", query))
		return
	}
	if query == "" || rr == nil {
		return
	}
	searcher, ok := s.callbacks.(Searcher)
	if !ok {
		s.reply(ctx, rr, browserproto.ResultError, nil)
		return
	}
	result := platform.NewResult(query, func(items []*media.MediaItem, ok bool) {
		if !ok || items == nil {
			s.reply(ctx, rr, browserproto.ResultError, nil)
			return
		}
		data := binder.NewBundle()
		data.PutParcelableList(browserproto.KeySearchResults, media.MediaItemsToParcelables(items))
		s.reply(ctx, rr, browserproto.ResultOK, data)
	})
	s.withConnection(conn, func() { searcher.OnSearch(ctx, query, extras, result) })
	result.CheckCompleted()
}

func (s *Service) sendCustomAction(ctx context.Context, callbacks *looper.Messenger, action string, extras *binder.Bundle, rr *looper.ResultReceiver) {
	conn := s.lookup(callbacks)
	if conn == nil {
		s.log.Warn("Service.sendCustomAction: callback isn't registered", slog.String("action", action))
		return
	}
	if action == "" || rr == nil {
		return
	}
	h, ok := s.callbacks.(CustomActionHandler)
	if !ok {
		s.reply(ctx, rr, browserproto.ResultError, nil)
		return
	}
	result := newCustomActionResult(action,
		func(data *binder.Bundle) { s.reply(ctx, rr, browserproto.ResultProgressUpdate, data) },
		func(ok bool, data *binder.Bundle) {
			code := browserproto.ResultOK
			if !ok {
				code = browserproto.ResultError
			}
			s.reply(ctx, rr, code, data)
		})
	s.withConnection(conn, func() { h.OnCustomAction(ctx, action, extras, result) })
	result.checkCompleted()
}

// withConnection выполняет callback приложения с текущим клиентом conn
func (s *Service) withConnection(conn *connection, fn func()) {
	s.mu.Lock()
	prev := s.current
	s.current = conn
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.current = prev
		s.mu.Unlock()
	}()
	fn()
}

func (s *Service) getRoot(ctx context.Context, conn *connection) *Root {
	var root *Root
	s.withConnection(conn, func() {
		root = s.callbacks.OnGetRoot(ctx, conn.pkg, conn.uid, conn.rootHints)
	})
	return root
}

func (s *Service) send(ctx context.Context, to *looper.Messenger, what int, data *binder.Bundle) {
	name := browserproto.ServiceMsgName(what)
	s.metrics.BrowserMessages.WithLabelValues("out", name).Inc()
	msg := &looper.Message{What: what, Arg1: browserproto.ServiceVersionCurrent, Data: data}
	if err := to.Send(ctx, msg); err != nil {
		s.log.Warn("Service.send: client is unreachable",
			slog.String("what", name),
			slog.String("error", err.Error()))
	}
}

func (s *Service) reply(ctx context.Context, rr *looper.ResultReceiver, code int, data *binder.Bundle) {
	if err := rr.Send(ctx, code, data); err != nil {
		s.log.Warn("Service.reply: result receiver is unreachable",
			slog.Int("code", code),
			slog.String("error", err.Error()))
	}
}

func countSubs(conn *connection) int {
	n := 0
	for _, list := range conn.subs {
		n += len(list)
	}
	return n
}
