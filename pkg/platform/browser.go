package platform

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"github.com/arzzra/media_compat/pkg/binder"
	"github.com/arzzra/media_compat/pkg/looper"
	"github.com/arzzra/media_compat/pkg/media"
)

const (
	// BrowserServiceDescriptor дескриптор нативного сервиса браузера
	BrowserServiceDescriptor = "android.service.media.IMediaBrowserService"
	// BrowserCallbacksDescriptor дескриптор callback клиента браузера
	BrowserCallbacksDescriptor = "android.service.media.IMediaBrowserServiceCallbacks"

	// ItemResultOK код успешного ответа getMediaItem
	ItemResultOK = 0
	// ItemResultError код ошибки getMediaItem
	ItemResultError = -1
	// KeyMediaItem ключ элемента в ответе getMediaItem
	KeyMediaItem = "media_item"
)

const (
	opConnect            = "connect"
	opDisconnect         = "disconnect"
	opAddSubscription    = "addSubscription"
	opRemoveSubscription = "removeSubscription"
	opGetMediaItem       = "getMediaItem"
	opOnConnect          = "onConnect"
	opOnConnectFailed    = "onConnectFailed"
	opOnLoadChildren     = "onLoadChildren"

	keyRootHints = "rootHints"
	keyRootID    = "rootId"
	keyToken     = "token"
	keyOptions   = "options"
	keyList      = "list"
)

// BrowserRoot корень дерева, который сервис отдает клиенту
type BrowserRoot struct {
	RootID string
	Extras *binder.Bundle
}

// BrowserServiceCallbacks логика нативного сервиса браузера.
// Вызовы выполняются в Looper сервиса.
type BrowserServiceCallbacks interface {
	// OnGetRoot возвращает nil, если клиенту отказано в подключении
	OnGetRoot(ctx context.Context, clientPackage string, clientUID int, rootHints *binder.Bundle) *BrowserRoot
	OnLoadChildren(ctx context.Context, parentID string, options *binder.Bundle, result *Result[[]*media.MediaItem])
	OnLoadItem(ctx context.Context, itemID string, result *Result[*media.MediaItem])
}

type serviceConnection struct {
	pkg       string
	uid       int
	pid       int
	rootHints *binder.Bundle
	root      *BrowserRoot
	callbacks binder.IBinder
	recipient binder.DeathRecipient
	subs      map[string][]*binder.Bundle
}

// BrowserService нативный сервис браузера
type BrowserService struct {
	sys       *System
	proc      *binder.Process
	component string
	callbacks BrowserServiceCallbacks
	handler   *looper.Handler
	binder    *binder.Binder

	mu    sync.Mutex
	token *SessionToken
	conns map[binder.IBinder]*serviceConnection
}

// NewBrowserService создает сервис и регистрирует его в платформе под именем component
func NewBrowserService(sys *System, proc *binder.Process, component string, callbacks BrowserServiceCallbacks, h *looper.Handler) *BrowserService {
	if h == nil {
		h = looper.NewHandler(nil, nil)
	}
	s := &BrowserService{
		sys:       sys,
		proc:      proc,
		component: component,
		callbacks: callbacks,
		handler:   h,
		conns:     make(map[binder.IBinder]*serviceConnection),
	}
	s.binder = newOpBinder(proc, BrowserServiceDescriptor, s.onTransact)
	sys.registerBrowserService(component, s)
	return s
}

func (s *BrowserService) Component() string {
	return s.component
}

// SetSessionToken задает токен сессии, который получают подключенные клиенты
func (s *BrowserService) SetSessionToken(token *SessionToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *BrowserService) SessionToken() *SessionToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Release снимает сервис с регистрации и завершает все подключения
func (s *BrowserService) Release() {
	s.sys.unregisterBrowserService(s.component, s)
	s.binder.Kill()
}

// NotifyChildrenChanged перезагружает детей parentID для всех подписанных клиентов.
// options учитываются только при нативной поддержке параметров подписки.
func (s *BrowserService) NotifyChildrenChanged(parentID string, options *binder.Bundle) {
	s.handler.Post(func() {
		ctx := s.proc.Context(context.Background())
		s.mu.Lock()
		type target struct {
			conn    *serviceConnection
			options *binder.Bundle
		}
		var targets []target
		for _, conn := range s.conns {
			for _, o := range conn.subs[parentID] {
				if options == nil || !s.sys.caps.NativeSubscribeOptions || o.Equal(options) {
					targets = append(targets, target{conn: conn, options: o})
				}
			}
		}
		s.mu.Unlock()
		for _, t := range targets {
			s.loadChildren(ctx, t.conn, parentID, t.options)
		}
	})
}

func (s *BrowserService) onTransact(ctx context.Context, op string, args *binder.Bundle) (*binder.Bundle, error) {
	callbacks := args.GetBinder(keyCallback)
	if callbacks == nil && op != opGetMediaItem {
		return nil, errors.Wrap(binder.ErrIllegalArgument, "callbacks must not be null")
	}
	id := binder.CallingIdentity(ctx)
	ctx = context.WithoutCancel(ctx)
	switch op {
	case opConnect:
		pkg, hints := args.GetString(keyPackage), args.GetBundle(keyRootHints)
		s.handler.Post(func() { s.connect(ctx, id, pkg, hints, callbacks) })
	case opDisconnect:
		s.handler.Post(func() { s.disconnect(callbacks) })
	case opAddSubscription:
		parentID, options := args.GetString(keyID), args.GetBundle(keyOptions)
		s.handler.Post(func() { s.addSubscription(ctx, callbacks, parentID, options) })
	case opRemoveSubscription:
		parentID, options := args.GetString(keyID), args.GetBundle(keyOptions)
		s.handler.Post(func() { s.removeSubscription(callbacks, parentID, options) })
	case opGetMediaItem:
		if !s.sys.caps.NativeItemFetch {
			return nil, errors.Wrapf(binder.ErrUnsupportedOperation, "getMediaItem on %s", s.sys.revision)
		}
		itemID := args.GetString(keyID)
		rr, _ := args.GetParcelable(keyReceiver).(*looper.ResultReceiver)
		if rr == nil {
			return nil, errors.Wrap(binder.ErrIllegalArgument, "receiver must not be null")
		}
		s.handler.Post(func() { s.loadItem(ctx, itemID, rr) })
	default:
		return nil, errors.Wrapf(binder.ErrUnsupportedOperation, "unknown browser service operation %q", op)
	}
	return nil, nil
}

func (s *BrowserService) connect(ctx context.Context, id binder.Identity, pkg string, hints *binder.Bundle, callbacks binder.IBinder) {
	root := s.callbacks.OnGetRoot(ctx, pkg, id.UID, hints)
	if root == nil {
		slog.Info("platform.BrowserService: connection refused",
			slog.String("component", s.component),
			slog.String("package", pkg))
		if err := sendEvent(ctx, callbacks, BrowserCallbacksDescriptor, opOnConnectFailed, nil); err != nil {
			logOpFailure(opOnConnectFailed, err)
		}
		return
	}
	conn := &serviceConnection{
		pkg:       pkg,
		uid:       id.UID,
		pid:       id.PID,
		rootHints: hints,
		root:      root,
		callbacks: callbacks,
		subs:      make(map[string][]*binder.Bundle),
	}
	conn.recipient = binder.NewDeathRecipient(func() {
		s.handler.Post(func() { s.disconnect(callbacks) })
	})
	if err := callbacks.LinkToDeath(conn.recipient); err != nil {
		return
	}
	s.mu.Lock()
	s.conns[callbacks] = conn
	token := s.token
	s.mu.Unlock()

	args := bundleOf(keyRootID, root.RootID, keyToken, token, keyExtras, root.Extras)
	if err := sendEvent(ctx, callbacks, BrowserCallbacksDescriptor, opOnConnect, args); err != nil {
		logOpFailure(opOnConnect, err)
		s.disconnect(callbacks)
	}
}

func (s *BrowserService) disconnect(callbacks binder.IBinder) {
	s.mu.Lock()
	conn, ok := s.conns[callbacks]
	delete(s.conns, callbacks)
	s.mu.Unlock()
	if ok {
		callbacks.UnlinkToDeath(conn.recipient)
	}
}

func (s *BrowserService) addSubscription(ctx context.Context, callbacks binder.IBinder, parentID string, options *binder.Bundle) {
	s.mu.Lock()
	conn, ok := s.conns[callbacks]
	if !ok {
		s.mu.Unlock()
		slog.Warn("platform.BrowserService: addSubscription for callback that isn't registered",
			slog.String("id", parentID))
		return
	}
	list := conn.subs[parentID]
	found := false
	for _, o := range list {
		if o.Equal(options) {
			found = true
			break
		}
	}
	if !found {
		conn.subs[parentID] = append(list, options)
	}
	s.mu.Unlock()
	s.loadChildren(ctx, conn, parentID, options)
}

func (s *BrowserService) removeSubscription(callbacks binder.IBinder, parentID string, options *binder.Bundle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn, ok := s.conns[callbacks]
	if !ok {
		return
	}
	if options == nil {
		delete(conn.subs, parentID)
		return
	}
	list := conn.subs[parentID]
	for i, o := range list {
		if o.Equal(options) {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(conn.subs, parentID)
	} else {
		conn.subs[parentID] = list
	}
}

func (s *BrowserService) loadChildren(ctx context.Context, conn *serviceConnection, parentID string, options *binder.Bundle) {
	result := NewResult(parentID, func(items []*media.MediaItem, ok bool) {
		s.mu.Lock()
		_, connected := s.conns[conn.callbacks]
		s.mu.Unlock()
		if !connected {
			return
		}
		args := bundleOf(keyID, parentID, keyOptions, options)
		if ok && items != nil {
			args.PutParcelableList(keyList, media.MediaItemsToParcelables(items))
		}
		if err := sendEvent(ctx, conn.callbacks, BrowserCallbacksDescriptor, opOnLoadChildren, args); err != nil {
			logOpFailure(opOnLoadChildren, err)
		}
	})
	s.callbacks.OnLoadChildren(ctx, parentID, options, result)
	result.CheckCompleted()
}

func (s *BrowserService) loadItem(ctx context.Context, itemID string, rr *looper.ResultReceiver) {
	result := NewResult(itemID, func(item *media.MediaItem, ok bool) {
		var err error
		if !ok {
			err = rr.Send(ctx, ItemResultError, nil)
		} else {
			data := binder.NewBundle()
			if item != nil {
				data.PutParcelable(KeyMediaItem, item)
			}
			err = rr.Send(ctx, ItemResultOK, data)
		}
		if err != nil {
			logOpFailure(opGetMediaItem, err)
		}
	})
	s.callbacks.OnLoadItem(ctx, itemID, result)
	result.CheckCompleted()
}

// ConnectionCallback события подключения нативного браузера
type ConnectionCallback interface {
	OnConnected()
	OnConnectionSuspended()
	OnConnectionFailed()
}

// SubscriptionCallback события подписки нативного браузера
type SubscriptionCallback interface {
	OnChildrenLoaded(parentID string, children []*media.MediaItem, options *binder.Bundle)
	OnError(parentID string, options *binder.Bundle)
}

// ItemCallback результат getItem нативного браузера
type ItemCallback interface {
	OnItemLoaded(item *media.MediaItem)
	OnError(itemID string)
}

type browserState int

const (
	browserDisconnected browserState = iota
	browserConnecting
	browserConnected
)

type nativeSubscription struct {
	options  *binder.Bundle
	callback SubscriptionCallback
}

// Browser нативный клиент сервиса браузера
type Browser struct {
	sys       *System
	proc      *binder.Process
	component string
	rootHints *binder.Bundle
	callback  ConnectionCallback
	handler   *looper.Handler

	mu        sync.Mutex
	state     browserState
	remote    binder.IBinder
	callbacks *binder.Binder
	recipient binder.DeathRecipient
	rootID    string
	extras    *binder.Bundle
	token     *SessionToken
	subs      map[string][]nativeSubscription
}

// NewBrowser создает клиента сервиса component
func NewBrowser(sys *System, proc *binder.Process, component string, rootHints *binder.Bundle, cb ConnectionCallback, h *looper.Handler) *Browser {
	if h == nil {
		h = looper.NewHandler(nil, nil)
	}
	return &Browser{
		sys:       sys,
		proc:      proc,
		component: component,
		rootHints: rootHints.Copy(),
		callback:  cb,
		handler:   h,
		subs:      make(map[string][]nativeSubscription),
	}
}

func (b *Browser) ctx(ctx context.Context) context.Context {
	return b.proc.Context(ctx)
}

// Connect начинает подключение. Результат приходит в ConnectionCallback.
func (b *Browser) Connect(ctx context.Context) error {
	b.mu.Lock()
	if b.state != browserDisconnected {
		b.mu.Unlock()
		return errors.Wrap(binder.ErrIllegalState, "connect() called while not disconnected")
	}
	svc := b.sys.lookupBrowserService(b.component)
	if svc == nil {
		b.mu.Unlock()
		b.handler.Post(b.callback.OnConnectionFailed)
		return nil
	}
	b.state = browserConnecting
	b.remote = b.serviceBinder(svc)
	b.callbacks = newOpBinder(b.proc, BrowserCallbacksDescriptor, b.onCallback)
	b.recipient = binder.NewDeathRecipient(func() { b.handler.Post(b.serviceDied) })
	remote, callbacks, recipient := b.remote, b.callbacks, b.recipient
	b.mu.Unlock()

	if err := remote.LinkToDeath(recipient); err != nil {
		b.fail()
		return nil
	}
	args := bundleOf(keyPackage, b.proc.Package, keyRootHints, b.rootHints, keyCallback, callbacks)
	if err := sendEvent(b.ctx(ctx), remote, BrowserServiceDescriptor, opConnect, args); err != nil {
		logOpFailure(opConnect, err)
		b.fail()
	}
	return nil
}

// serviceBinder передает binder сервиса в процесс клиента, как это делает привязка сервиса
func (b *Browser) serviceBinder(svc *BrowserService) binder.IBinder {
	p := binder.Transfer(b.proc, func(p *binder.Parcel) { p.WriteStrongBinder(svc.binder) })
	defer p.Recycle()
	return p.ReadStrongBinder()
}

func (b *Browser) fail() {
	b.reset()
	b.handler.Post(b.callback.OnConnectionFailed)
}

func (b *Browser) serviceDied() {
	b.mu.Lock()
	wasConnected := b.state == browserConnected
	b.mu.Unlock()
	b.reset()
	if wasConnected {
		b.callback.OnConnectionSuspended()
	}
}

func (b *Browser) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.remote != nil && b.recipient != nil {
		b.remote.UnlinkToDeath(b.recipient)
	}
	if b.callbacks != nil {
		b.callbacks.Kill()
	}
	b.state = browserDisconnected
	b.remote = nil
	b.callbacks = nil
	b.recipient = nil
	b.rootID = ""
	b.extras = nil
	b.token = nil
	b.subs = make(map[string][]nativeSubscription)
}

// Disconnect отключается от сервиса; ошибки транспорта игнорируются
func (b *Browser) Disconnect(ctx context.Context) {
	b.mu.Lock()
	remote, callbacks := b.remote, b.callbacks
	b.mu.Unlock()
	if remote != nil && callbacks != nil {
		if err := sendEvent(b.ctx(ctx), remote, BrowserServiceDescriptor, opDisconnect, bundleOf(keyCallback, callbacks)); err != nil {
			slog.Debug("platform.Browser: disconnect", slog.String("error", err.Error()))
		}
	}
	b.reset()
}

func (b *Browser) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == browserConnected
}

func (b *Browser) Root() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rootID
}

func (b *Browser) Extras() *binder.Bundle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.extras
}

func (b *Browser) SessionToken() *SessionToken {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.token
}

func (b *Browser) requireConnected(op string) (binder.IBinder, *binder.Binder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != browserConnected {
		return nil, nil, errors.Wrapf(binder.ErrIllegalState, "%s called while not connected", op)
	}
	return b.remote, b.callbacks, nil
}

// Subscribe подписывается на детей parentID. До RevisionOreo параметры не передаются сервису.
func (b *Browser) Subscribe(ctx context.Context, parentID string, options *binder.Bundle, cb SubscriptionCallback) error {
	if parentID == "" {
		return errors.Wrap(binder.ErrIllegalArgument, "parentId is empty")
	}
	if cb == nil {
		return errors.Wrap(binder.ErrIllegalArgument, "callback is null")
	}
	remote, callbacks, err := b.requireConnected("subscribe")
	if err != nil {
		return err
	}
	if !b.sys.caps.NativeSubscribeOptions {
		options = nil
	}
	options = options.Copy()

	b.mu.Lock()
	list := b.subs[parentID]
	replaced := false
	for i := range list {
		if list[i].options.Equal(options) {
			list[i].callback = cb
			replaced = true
		}
	}
	if !replaced {
		list = append(list, nativeSubscription{options: options, callback: cb})
	}
	b.subs[parentID] = list
	b.mu.Unlock()

	args := bundleOf(keyID, parentID, keyOptions, options, keyCallback, callbacks)
	return sendEvent(b.ctx(ctx), remote, BrowserServiceDescriptor, opAddSubscription, args)
}

// Unsubscribe отписывается; cb == nil удаляет все подписки parentID
func (b *Browser) Unsubscribe(ctx context.Context, parentID string, cb SubscriptionCallback) error {
	if parentID == "" {
		return errors.Wrap(binder.ErrIllegalArgument, "parentId is empty")
	}
	remote, callbacks, err := b.requireConnected("unsubscribe")
	if err != nil {
		return err
	}
	var removed []*binder.Bundle
	removeAll := cb == nil
	b.mu.Lock()
	list := b.subs[parentID]
	if !removeAll {
		kept := list[:0]
		for _, s := range list {
			if s.callback == cb {
				removed = append(removed, s.options)
				continue
			}
			kept = append(kept, s)
		}
		list = kept
	}
	if removeAll || len(list) == 0 {
		delete(b.subs, parentID)
		removeAll = true
	} else {
		b.subs[parentID] = list
	}
	b.mu.Unlock()

	ctx = b.ctx(ctx)
	if removeAll {
		return sendEvent(ctx, remote, BrowserServiceDescriptor, opRemoveSubscription, bundleOf(keyID, parentID, keyCallback, callbacks))
	}
	for _, options := range removed {
		args := bundleOf(keyID, parentID, keyOptions, options, keyCallback, callbacks)
		if err := sendEvent(ctx, remote, BrowserServiceDescriptor, opRemoveSubscription, args); err != nil {
			return err
		}
	}
	return nil
}

// GetItem загружает элемент; доступен начиная с RevisionMarshmallow
func (b *Browser) GetItem(ctx context.Context, itemID string, cb ItemCallback) error {
	if !b.sys.caps.NativeItemFetch {
		return errors.Wrapf(binder.ErrUnsupportedOperation, "getItem on %s", b.sys.revision)
	}
	if itemID == "" {
		return errors.Wrap(binder.ErrIllegalArgument, "mediaId is empty")
	}
	if cb == nil {
		return errors.Wrap(binder.ErrIllegalArgument, "cb is null")
	}
	remote, _, err := b.requireConnected("getItem")
	if err != nil {
		b.handler.Post(func() { cb.OnError(itemID) })
		return nil
	}
	rr := looper.NewResultReceiver(b.proc, b.handler, func(code int, data *binder.Bundle) {
		item, _ := data.GetParcelable(KeyMediaItem).(*media.MediaItem)
		if code != ItemResultOK || data.Unparcel() != nil {
			cb.OnError(itemID)
			return
		}
		cb.OnItemLoaded(item)
	})
	if err := sendEvent(b.ctx(ctx), remote, BrowserServiceDescriptor, opGetMediaItem, bundleOf(keyID, itemID, keyReceiver, rr)); err != nil {
		b.handler.Post(func() { cb.OnError(itemID) })
	}
	return nil
}

func (b *Browser) onCallback(ctx context.Context, op string, args *binder.Bundle) (*binder.Bundle, error) {
	b.handler.Post(func() {
		switch op {
		case opOnConnect:
			b.onConnect(args)
		case opOnConnectFailed:
			b.fail()
		case opOnLoadChildren:
			b.onLoadChildren(args)
		}
	})
	return nil, nil
}

func (b *Browser) onConnect(args *binder.Bundle) {
	token, _ := args.GetParcelable(keyToken).(*SessionToken)
	b.mu.Lock()
	if b.state != browserConnecting {
		b.mu.Unlock()
		return
	}
	b.state = browserConnected
	b.rootID = args.GetString(keyRootID)
	b.extras = args.GetBundle(keyExtras)
	b.token = token
	b.mu.Unlock()
	b.callback.OnConnected()
}

func (b *Browser) onLoadChildren(args *binder.Bundle) {
	parentID := args.GetString(keyID)
	options := args.GetBundle(keyOptions)
	var items []*media.MediaItem
	hasList := args.ContainsKey(keyList)
	if hasList {
		items = media.MediaItemsFromParcelables(args.GetParcelableList(keyList))
	}

	b.mu.Lock()
	var targets []nativeSubscription
	for _, s := range b.subs[parentID] {
		if s.options.Equal(options) {
			targets = append(targets, s)
		}
	}
	b.mu.Unlock()

	for _, s := range targets {
		if !hasList {
			s.callback.OnError(parentID, s.options)
			continue
		}
		s.callback.OnChildrenLoaded(parentID, items, s.options)
	}
}
