package browserservice

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arzzra/media_compat/pkg/binder"
	"github.com/arzzra/media_compat/pkg/browserproto"
	"github.com/arzzra/media_compat/pkg/core/metrics"
	"github.com/arzzra/media_compat/pkg/looper"
	"github.com/arzzra/media_compat/pkg/media"
	"github.com/arzzra/media_compat/pkg/platform"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
	quiet   = 100 * time.Millisecond

	servicePackage = "com.example.player"
	component      = "com.example.player/.BrowseService"
	clientPackage  = "com.example.client"
	bannedPackage  = "com.example.banned"
)

func newItems(t *testing.T, ids ...string) []*media.MediaItem {
	t.Helper()
	out := make([]*media.MediaItem, 0, len(ids))
	for _, id := range ids {
		item, err := media.NewMediaItem(&media.MediaDescription{MediaID: id}, media.FlagPlayable)
		require.NoError(t, err)
		out = append(out, item)
	}
	return out
}

func ids(items []*media.MediaItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.MediaID())
	}
	return out
}

// fakeApp приложение с деревом из одного уровня
type fakeApp struct {
	children []*media.MediaItem

	mu      sync.Mutex
	svc     *Service
	callers []string
	hints   []*binder.Bundle
	detach  bool
	pending []*platform.Result[[]*media.MediaItem]
}

func (a *fakeApp) OnGetRoot(_ context.Context, pkg string, _ int, hints *binder.Bundle) *Root {
	a.mu.Lock()
	a.hints = append(a.hints, hints)
	a.mu.Unlock()
	if pkg == bannedPackage {
		return nil
	}
	extras := binder.NewBundle()
	extras.PutString("app_extra", "yes")
	return &Root{RootID: "root", Extras: extras}
}

func (a *fakeApp) OnLoadChildren(_ context.Context, _ string, result *platform.Result[[]*media.MediaItem]) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if info, ok := a.svc.CurrentBrowserInfo(); ok {
		a.callers = append(a.callers, info.PackageName)
	}
	if a.detach {
		result.Detach()
		a.pending = append(a.pending, result)
		return
	}
	result.SendResult(a.children)
}

// fullApp поддерживает getItem, поиск и пользовательские действия
type fullApp struct {
	fakeApp
}

func (a *fullApp) OnLoadItem(_ context.Context, itemID string, result *platform.Result[*media.MediaItem]) {
	for _, c := range a.children {
		if c.MediaID() == itemID {
			result.SendResult(c)
			return
		}
	}
	result.SendError()
}

func (a *fullApp) OnSearch(_ context.Context, query string, _ *binder.Bundle, result *platform.Result[[]*media.MediaItem]) {
	if query == "none" {
		result.SendResult(nil)
		return
	}
	var found []*media.MediaItem
	for _, c := range a.children {
		if strings.Contains(c.MediaID(), query) {
			found = append(found, c)
		}
	}
	result.SendResult(found)
}

func (a *fullApp) OnCustomAction(_ context.Context, action string, _ *binder.Bundle, result *CustomActionResult) {
	switch action {
	case browserproto.CustomActionDownload:
		progress := binder.NewBundle()
		progress.PutInt("percent", 50)
		result.SendProgressUpdate(progress)
		done := binder.NewBundle()
		done.PutBool("done", true)
		result.SendResult(done)
	case "forgotten":
	default:
		result.SendError(nil)
	}
}

type connEvents chan string

func (c connEvents) OnConnected()           { c <- "connected" }
func (c connEvents) OnConnectionSuspended() { c <- "suspended" }
func (c connEvents) OnConnectionFailed()    { c <- "failed" }

type fixture struct {
	sys     *platform.System
	svc     *Service
	metrics *metrics.Collector
}

func newFixture(t *testing.T, rev platform.Revision, app Callbacks) *fixture {
	t.Helper()
	sys := platform.NewSystem(rev)
	proc := sys.NewProcess(servicePackage)
	l := looper.New("service")
	t.Cleanup(l.Quit)
	m := metrics.NewCollector("test", prometheus.NewRegistry())
	svc, err := New(sys, proc, component, app, l, Options{Metrics: m})
	require.NoError(t, err)
	t.Cleanup(svc.Release)
	switch a := app.(type) {
	case *fakeApp:
		a.mu.Lock()
		a.svc = svc
		a.mu.Unlock()
	case *fullApp:
		a.mu.Lock()
		a.svc = svc
		a.mu.Unlock()
	}
	return &fixture{sys: sys, svc: svc, metrics: m}
}

// protocolClient клиент, который говорит с сервисом сообщениями напрямую
type protocolClient struct {
	proc      *binder.Process
	native    *platform.Browser
	extras    *binder.Bundle
	service   *looper.Messenger
	callbacks *looper.Messenger
	incoming  chan *looper.Message
}

func (f *fixture) connect(t *testing.T, pkg string, protocol bool) *protocolClient {
	t.Helper()
	proc := f.sys.NewProcess(pkg)
	cl := looper.New(pkg)
	t.Cleanup(cl.Quit)

	hints := binder.NewBundle()
	hints.PutString("hint", "x")
	if protocol {
		hints.PutInt(browserproto.ExtraClientVersion, browserproto.ClientVersionCurrent)
		hints.PutInt(browserproto.ExtraCallingPID, proc.PID)
	}
	events := make(connEvents, 4)
	nb := platform.NewBrowser(f.sys, proc, component, hints, events, looper.NewHandler(cl, nil))
	require.NoError(t, nb.Connect(context.Background()))
	select {
	case e := <-events:
		require.Equal(t, "connected", e)
	case <-time.After(waitFor):
		t.Fatal("нет подключения")
	}

	c := &protocolClient{
		proc:     proc,
		native:   nb,
		extras:   nb.Extras(),
		incoming: make(chan *looper.Message, 16),
	}
	c.service = looper.MessengerFromBinder(c.extras.GetBinder(browserproto.ExtraMessengerBinder))
	c.callbacks = looper.NewMessenger(proc, looper.NewHandler(cl, func(msg *looper.Message) {
		c.incoming <- msg
	}))
	return c
}

func (c *protocolClient) send(t *testing.T, what int, data *binder.Bundle) {
	t.Helper()
	msg := &looper.Message{What: what, Arg1: browserproto.ClientVersionCurrent, Data: data, ReplyTo: c.callbacks}
	require.NoError(t, c.service.Send(c.proc.Context(context.Background()), msg))
}

func (c *protocolClient) expect(t *testing.T, what int) *looper.Message {
	t.Helper()
	select {
	case msg := <-c.incoming:
		require.Equal(t, browserproto.ServiceMsgName(what), browserproto.ServiceMsgName(msg.What))
		assert.Equal(t, browserproto.ServiceVersionCurrent, msg.Arg1)
		return msg
	case <-time.After(waitFor):
		t.Fatalf("нет сообщения %s", browserproto.ServiceMsgName(what))
		return nil
	}
}

func (c *protocolClient) expectNone(t *testing.T) {
	t.Helper()
	select {
	case msg := <-c.incoming:
		t.Fatalf("неожиданное сообщение %s", browserproto.ServiceMsgName(msg.What))
	case <-time.After(quiet):
	}
}

func (c *protocolClient) register(t *testing.T, pkg string) *looper.Message {
	t.Helper()
	data := binder.NewBundle()
	data.PutString(browserproto.DataPackageName, pkg)
	data.PutInt(browserproto.DataCallingPID, c.proc.PID)
	c.send(t, browserproto.ClientMsgRegisterCallbackMessenger, data)
	select {
	case msg := <-c.incoming:
		return msg
	case <-time.After(waitFor):
		t.Fatal("нет ответа сервиса")
		return nil
	}
}

func (c *protocolClient) subscribe(t *testing.T, parentID string, token binder.IBinder, options *binder.Bundle) {
	t.Helper()
	data := binder.NewBundle()
	data.PutString(browserproto.DataMediaItemID, parentID)
	data.PutBinder(browserproto.DataCallbackToken, token)
	data.PutBundle(browserproto.DataOptions, options)
	c.send(t, browserproto.ClientMsgAddSubscription, data)
}

func loaded(t *testing.T, msg *looper.Message) []string {
	t.Helper()
	require.True(t, msg.Data.ContainsKey(browserproto.DataMediaItemList), "ожидался список детей")
	return ids(media.MediaItemsFromParcelables(msg.Data.GetParcelableList(browserproto.DataMediaItemList)))
}

func newToken(proc *binder.Process) binder.IBinder {
	return binder.NewBinder(proc, "test.Token", func(context.Context, uint32, *binder.Parcel, *binder.Parcel, uint32) (bool, error) {
		return false, nil
	})
}

func TestNew_Validation(t *testing.T) {
	sys := platform.NewSystem(platform.RevisionR)
	proc := sys.NewProcess(servicePackage)

	_, err := New(nil, proc, component, &fakeApp{}, nil, Options{})
	assert.Error(t, err)
	_, err = New(sys, proc, "", &fakeApp{}, nil, Options{})
	assert.Error(t, err)
	_, err = New(sys, proc, component, nil, nil, Options{})
	assert.Error(t, err)
}

func TestService_RootExtras(t *testing.T) {
	t.Run("клиент протокола получает messenger и версию", func(t *testing.T) {
		app := &fakeApp{}
		f := newFixture(t, platform.RevisionR, app)
		c := f.connect(t, clientPackage, true)

		assert.Equal(t, browserproto.ServiceVersionCurrent, c.extras.GetInt(browserproto.ExtraServiceVersion, 0))
		assert.NotNil(t, c.service)
		assert.Equal(t, "yes", c.extras.GetString("app_extra"))

		app.mu.Lock()
		defer app.mu.Unlock()
		require.Len(t, app.hints, 1)
		assert.False(t, app.hints[0].ContainsKey(browserproto.ExtraClientVersion), "служебные подсказки скрыты от приложения")
		assert.False(t, app.hints[0].ContainsKey(browserproto.ExtraCallingPID))
		assert.Equal(t, "x", app.hints[0].GetString("hint"))
	})

	t.Run("обычный клиент работает без протокола", func(t *testing.T) {
		f := newFixture(t, platform.RevisionR, &fakeApp{})
		c := f.connect(t, clientPackage, false)
		assert.False(t, c.extras.ContainsKey(browserproto.ExtraMessengerBinder))
		assert.False(t, c.extras.ContainsKey(browserproto.ExtraServiceVersion))
		assert.Equal(t, "yes", c.extras.GetString("app_extra"))
	})
}

func TestService_Register(t *testing.T) {
	t.Run("подключение подтверждается ON_CONNECT", func(t *testing.T) {
		f := newFixture(t, platform.RevisionR, &fakeApp{})
		c := f.connect(t, clientPackage, true)

		msg := c.register(t, clientPackage)
		require.Equal(t, browserproto.ServiceMsgOnConnect, msg.What)
		assert.Equal(t, "root", msg.Data.GetString(browserproto.DataMediaItemID))
		assert.Equal(t, "yes", msg.Data.GetBundle(browserproto.DataRootHints).GetString("app_extra"))
		assert.Equal(t, 1, f.svc.Connections())
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.BrowserConnections.WithLabelValues(connectAccepted)))
	})

	t.Run("чужой пакет получает отказ", func(t *testing.T) {
		f := newFixture(t, platform.RevisionR, &fakeApp{})
		f.sys.NewProcess("com.example.other")
		c := f.connect(t, clientPackage, true)

		msg := c.register(t, "com.example.other")
		assert.Equal(t, browserproto.ServiceMsgOnConnectFailed, msg.What)
		assert.Zero(t, f.svc.Connections())
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.BrowserConnections.WithLabelValues(connectInvalid)))
	})

	t.Run("приложение отказало при прямом подключении", func(t *testing.T) {
		f := newFixture(t, platform.RevisionR, &fakeApp{})
		c := f.connect(t, clientPackage, true)

		banned := f.sys.NewProcess(bannedPackage)
		p := binder.Transfer(banned, func(p *binder.Parcel) { p.WriteStrongBinder(f.svc.messenger.Binder()) })
		service := looper.MessengerFromBinder(p.ReadStrongBinder())
		p.Recycle()

		data := binder.NewBundle()
		data.PutString(browserproto.DataPackageName, bannedPackage)
		msg := &looper.Message{What: browserproto.ClientMsgConnect, Arg1: 1, Data: data, ReplyTo: c.callbacks}
		require.NoError(t, service.Send(banned.Context(context.Background()), msg))

		c.expect(t, browserproto.ServiceMsgOnConnectFailed)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.BrowserConnections.WithLabelValues(connectRefused)))
	})

	t.Run("смерть клиента удаляет подключение", func(t *testing.T) {
		f := newFixture(t, platform.RevisionR, &fakeApp{children: newItems(t, "a")})
		c := f.connect(t, clientPackage, true)
		c.register(t, clientPackage)
		c.subscribe(t, "root", newToken(c.proc), nil)
		c.expect(t, browserproto.ServiceMsgOnLoadChildren)
		require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Subscriptions))

		c.proc.Kill()
		require.Eventually(t, func() bool { return f.svc.Connections() == 0 }, waitFor, tick)
		assert.Zero(t, testutil.ToFloat64(f.metrics.Subscriptions))
	})
}

func TestService_Subscriptions(t *testing.T) {
	app := &fakeApp{children: newItems(t, "c0", "c1", "c2", "c3", "c4")}
	f := newFixture(t, platform.RevisionR, app)
	c := f.connect(t, clientPackage, true)
	c.register(t, clientPackage)
	token := newToken(c.proc)

	t.Run("первая страница", func(t *testing.T) {
		c.subscribe(t, "root", token, browserproto.PageOptions(0, 2))
		msg := c.expect(t, browserproto.ServiceMsgOnLoadChildren)
		assert.Equal(t, []string{"c0", "c1"}, loaded(t, msg))
		assert.Equal(t, "root", msg.Data.GetString(browserproto.DataMediaItemID))
		page, size := browserproto.Page(msg.Data.GetBundle(browserproto.DataOptions))
		assert.Equal(t, 0, page)
		assert.Equal(t, 2, size)
	})

	t.Run("страница за концом пустая", func(t *testing.T) {
		c.subscribe(t, "root", token, browserproto.PageOptions(3, 2))
		msg := c.expect(t, browserproto.ServiceMsgOnLoadChildren)
		assert.Empty(t, loaded(t, msg))
	})

	t.Run("повторная подписка не дублирует запись", func(t *testing.T) {
		c.subscribe(t, "root", token, browserproto.PageOptions(0, 2))
		c.expectNone(t)
		assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.Subscriptions))
	})

	t.Run("приложение видит текущего клиента", func(t *testing.T) {
		app.mu.Lock()
		defer app.mu.Unlock()
		require.NotEmpty(t, app.callers)
		for _, pkg := range app.callers {
			assert.Equal(t, clientPackage, pkg)
		}
	})

	t.Run("уведомление перезагружает пересекающиеся окна", func(t *testing.T) {
		require.NoError(t, f.svc.NotifyChildrenChanged("root", browserproto.PageOptions(0, 2)))
		msg := c.expect(t, browserproto.ServiceMsgOnLoadChildren)
		assert.Equal(t, []string{"c0", "c1"}, loaded(t, msg))
		notify := msg.Data.GetBundle(browserproto.DataNotifyChildrenChangedOptions)
		require.NotNil(t, notify)
		page, _ := browserproto.Page(notify)
		assert.Equal(t, 0, page)
		c.expectNone(t)
	})

	t.Run("отписка по токену", func(t *testing.T) {
		data := binder.NewBundle()
		data.PutString(browserproto.DataMediaItemID, "root")
		data.PutBinder(browserproto.DataCallbackToken, token)
		c.send(t, browserproto.ClientMsgRemoveSubscription, data)
		require.Eventually(t, func() bool { return testutil.ToFloat64(f.metrics.Subscriptions) == 0 }, waitFor, tick)

		require.NoError(t, f.svc.NotifyChildrenChanged("root", nil))
		c.expectNone(t)
	})

	t.Run("пустой parentId в уведомлении", func(t *testing.T) {
		assert.Error(t, f.svc.NotifyChildrenChanged("", nil))
	})
}

func TestService_RemoveAllSubscriptions(t *testing.T) {
	f := newFixture(t, platform.RevisionR, &fakeApp{children: newItems(t, "a", "b")})
	c := f.connect(t, clientPackage, true)
	c.register(t, clientPackage)

	c.subscribe(t, "root", newToken(c.proc), browserproto.PageOptions(0, 1))
	c.expect(t, browserproto.ServiceMsgOnLoadChildren)
	c.subscribe(t, "root", newToken(c.proc), browserproto.PageOptions(1, 1))
	c.expect(t, browserproto.ServiceMsgOnLoadChildren)

	data := binder.NewBundle()
	data.PutString(browserproto.DataMediaItemID, "root")
	c.send(t, browserproto.ClientMsgRemoveSubscription, data)
	require.Eventually(t, func() bool { return testutil.ToFloat64(f.metrics.Subscriptions) == 0 }, waitFor, tick)
}

func TestService_LateResultAfterDisconnect(t *testing.T) {
	app := &fakeApp{children: newItems(t, "a"), detach: true}
	f := newFixture(t, platform.RevisionR, app)
	c := f.connect(t, clientPackage, true)
	c.register(t, clientPackage)
	c.subscribe(t, "root", newToken(c.proc), nil)

	require.Eventually(t, func() bool {
		app.mu.Lock()
		defer app.mu.Unlock()
		return len(app.pending) == 1
	}, waitFor, tick)

	c.send(t, browserproto.ClientMsgUnregisterCallbackMessenger, nil)
	require.Eventually(t, func() bool { return f.svc.Connections() == 0 }, waitFor, tick)

	app.mu.Lock()
	result := app.pending[0]
	app.mu.Unlock()
	result.SendResult(app.children)
	c.expectNone(t)
}

func TestService_GetMediaItem(t *testing.T) {
	tests := []struct {
		name     string
		app      Callbacks
		itemID   string
		wantCode int
	}{
		{"элемент найден", &fullApp{fakeApp{children: newItems(t, "a", "b")}}, "b", browserproto.ResultOK},
		{"элемент не найден", &fullApp{fakeApp{children: newItems(t, "a")}}, "zzz", browserproto.ResultError},
		{"загрузка не поддерживается", &fakeApp{children: newItems(t, "a")}, "a", browserproto.ResultError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, platform.RevisionR, tt.app)
			c := f.connect(t, clientPackage, true)
			c.register(t, clientPackage)

			rr := looper.NewResultReceiver(c.proc, nil, func(int, *binder.Bundle) {})
			data := binder.NewBundle()
			data.PutString(browserproto.DataMediaItemID, tt.itemID)
			data.PutParcelable(browserproto.DataResultReceiver, rr)
			c.send(t, browserproto.ClientMsgGetMediaItem, data)

			ctx, cancel := context.WithTimeout(context.Background(), waitFor)
			defer cancel()
			code, reply, err := rr.Wait(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, code)
			if tt.wantCode == browserproto.ResultOK {
				item, ok := reply.GetParcelable(browserproto.KeyMediaItem).(*media.MediaItem)
				require.True(t, ok)
				assert.Equal(t, tt.itemID, item.MediaID())
			}
		})
	}
}

func TestService_Search(t *testing.T) {
	tests := []struct {
		name     string
		app      Callbacks
		query    string
		wantCode int
		wantIDs  []string
	}{
		{"найдено", &fullApp{fakeApp{children: newItems(t, "rock1", "jazz", "rock2")}}, "rock", browserproto.ResultOK, []string{"rock1", "rock2"}},
		{"приложение вернуло nil", &fullApp{fakeApp{}}, "none", browserproto.ResultError, nil},
		{"поиск не поддерживается", &fakeApp{}, "rock", browserproto.ResultError, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, platform.RevisionR, tt.app)
			c := f.connect(t, clientPackage, true)
			c.register(t, clientPackage)

			rr := looper.NewResultReceiver(c.proc, nil, func(int, *binder.Bundle) {})
			data := binder.NewBundle()
			data.PutString(browserproto.DataSearchQuery, tt.query)
			data.PutParcelable(browserproto.DataResultReceiver, rr)
			c.send(t, browserproto.ClientMsgSearch, data)

			ctx, cancel := context.WithTimeout(context.Background(), waitFor)
			defer cancel()
			code, reply, err := rr.Wait(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, code)
			if tt.wantIDs != nil {
				got := media.MediaItemsFromParcelables(reply.GetParcelableList(browserproto.KeySearchResults))
				assert.Equal(t, tt.wantIDs, ids(got))
			}
		})
	}
}

func TestService_CustomAction(t *testing.T) {
	f := newFixture(t, platform.RevisionR, &fullApp{})
	c := f.connect(t, clientPackage, true)
	c.register(t, clientPackage)

	send := func(action string) (*looper.ResultReceiver, *codeLog) {
		codes := &codeLog{}
		rr := looper.NewResultReceiver(c.proc, nil, codes.add, looper.WithProgressCodes(browserproto.ResultProgressUpdate))
		data := binder.NewBundle()
		data.PutString(browserproto.DataCustomAction, action)
		data.PutParcelable(browserproto.DataResultReceiver, rr)
		c.send(t, browserproto.ClientMsgSendCustomAction, data)
		return rr, codes
	}

	t.Run("прогресс и результат", func(t *testing.T) {
		rr, codes := send(browserproto.CustomActionDownload)
		ctx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		code, reply, err := rr.Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, browserproto.ResultOK, code)
		assert.True(t, reply.GetBool("done", false))
		require.Eventually(t, func() bool { return len(codes.snapshot()) == 2 }, waitFor, tick)
		assert.Equal(t, []int{browserproto.ResultProgressUpdate, browserproto.ResultOK}, codes.snapshot())
	})

	t.Run("незавершенное действие превращается в ошибку", func(t *testing.T) {
		rr, _ := send("forgotten")
		ctx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		code, _, err := rr.Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, browserproto.ResultError, code)
	})
}

func TestService_UnregisteredClientIgnored(t *testing.T) {
	f := newFixture(t, platform.RevisionR, &fakeApp{children: newItems(t, "a")})
	c := f.connect(t, clientPackage, true)

	c.subscribe(t, "root", newToken(c.proc), nil)
	c.expectNone(t)
	assert.Zero(t, testutil.ToFloat64(f.metrics.Subscriptions))
}

func TestService_NativeClientPaging(t *testing.T) {
	tests := []struct {
		name string
		rev  platform.Revision
		want []string
	}{
		{"Oreo передает параметры, сервис режет окно", platform.RevisionOreo, []string{"c2", "c3"}},
		{"до Oreo параметры теряются", platform.RevisionNougat, []string{"c0", "c1", "c2", "c3", "c4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.rev, &fakeApp{children: newItems(t, "c0", "c1", "c2", "c3", "c4")})
			c := f.connect(t, clientPackage, false)

			events := &childrenEvents{loaded: make(chan []*media.MediaItem, 1)}
			require.NoError(t, c.native.Subscribe(context.Background(), "root", browserproto.PageOptions(1, 2), events))
			select {
			case got := <-events.loaded:
				assert.Equal(t, tt.want, ids(got))
			case <-time.After(waitFor):
				t.Fatal("дети не загружены")
			}
		})
	}
}

type codeLog struct {
	mu    sync.Mutex
	codes []int
}

func (l *codeLog) add(code int, _ *binder.Bundle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.codes = append(l.codes, code)
}

func (l *codeLog) snapshot() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]int(nil), l.codes...)
}

type childrenEvents struct {
	loaded chan []*media.MediaItem
}

func (c *childrenEvents) OnChildrenLoaded(_ string, children []*media.MediaItem, _ *binder.Bundle) {
	c.loaded <- children
}
func (c *childrenEvents) OnError(string, *binder.Bundle) { c.loaded <- nil }

func TestCustomActionResult_ExactlyOnce(t *testing.T) {
	var sent []bool
	var progress int
	r := newCustomActionResult("a",
		func(*binder.Bundle) { progress++ },
		func(ok bool, _ *binder.Bundle) { sent = append(sent, ok) })

	r.SendProgressUpdate(nil)
	r.SendResult(nil)
	r.SendError(nil)
	r.SendProgressUpdate(nil)
	r.checkCompleted()

	assert.Equal(t, []bool{true}, sent)
	assert.Equal(t, 1, progress, "прогресс после результата не отправляется")

	sent = nil
	detached := newCustomActionResult("b", func(*binder.Bundle) {}, func(ok bool, _ *binder.Bundle) { sent = append(sent, ok) })
	detached.Detach()
	detached.checkCompleted()
	assert.Empty(t, sent)
	detached.SendError(nil)
	assert.Equal(t, []bool{false}, sent)
}
