package browser_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"github.com/arzzra/media_compat/pkg/binder"
	"github.com/arzzra/media_compat/pkg/browser"
	"github.com/arzzra/media_compat/pkg/browserproto"
	"github.com/arzzra/media_compat/pkg/browserservice"
	"github.com/arzzra/media_compat/pkg/controller"
	"github.com/arzzra/media_compat/pkg/core/metrics"
	"github.com/arzzra/media_compat/pkg/looper"
	"github.com/arzzra/media_compat/pkg/media"
	"github.com/arzzra/media_compat/pkg/platform"
	"github.com/arzzra/media_compat/pkg/session"
)

// PlayerTestSuite плеер с сессией и каталогом и клиент с браузером и контроллером
type PlayerTestSuite struct {
	suite.Suite
	sys        *platform.System
	playerProc *binder.Process
	clientProc *binder.Process
	session    *session.Session
	service    *browserservice.Service
	browser    *browser.Browser
	handler    *looper.Handler
	events     *eventCollector
	ctx        context.Context
	cleanup    []func()
}

// eventCollector собирает события обеих сторон
type eventCollector struct {
	mu     sync.Mutex
	events []string
}

func (c *eventCollector) Add(event string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *eventCollector) Has(event string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.events {
		if e == event {
			return true
		}
	}
	return false
}

type catalog struct {
	items []*media.MediaItem
}

func (c *catalog) OnGetRoot(context.Context, string, int, *binder.Bundle) *browserservice.Root {
	return &browserservice.Root{RootID: "catalog"}
}

func (c *catalog) OnLoadChildren(_ context.Context, _ string, result *platform.Result[[]*media.MediaItem]) {
	result.SendResult(c.items)
}

type player struct {
	session.BaseCallback
	s      *PlayerTestSuite
	events *eventCollector
}

func (p *player) OnPlayFromMediaID(_ context.Context, mediaID string, _ *binder.Bundle) {
	p.events.Add("player play " + mediaID)
	p.s.session.SetPlaybackState(&media.PlaybackState{
		State:      media.StatePlaying,
		Speed:      1,
		UpdateTime: p.s.sys.ElapsedRealtime(),
	})
}

type connection struct{ events *eventCollector }

func (c connection) OnConnected()           { c.events.Add("connected") }
func (c connection) OnConnectionSuspended() { c.events.Add("suspended") }
func (c connection) OnConnectionFailed()    { c.events.Add("failed") }

type controllerEvents struct {
	controller.BaseCallback
	events *eventCollector
}

func (c *controllerEvents) OnSessionReady() { c.events.Add("session ready") }

func (c *controllerEvents) OnSessionDestroyed() { c.events.Add("session destroyed") }

func (c *controllerEvents) OnPlaybackStateChanged(state *media.PlaybackState) {
	if state != nil && state.State == media.StatePlaying {
		c.events.Add("state playing")
	}
}

type pageEvents struct{ events *eventCollector }

func (p *pageEvents) OnChildrenLoaded(_ string, children []*media.MediaItem, _ *binder.Bundle) {
	for _, c := range children {
		p.events.Add("child " + c.MediaID())
	}
}

func (p *pageEvents) OnError(parentID string, _ *binder.Bundle) { p.events.Add("error " + parentID) }

// SetupTest собирает обе стороны перед каждым тестом
func (s *PlayerTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.events = &eventCollector{}
	s.cleanup = nil
	m := metrics.NewCollector("e2e", prometheus.NewRegistry())

	s.sys = platform.NewSystem(platform.RevisionR)
	s.playerProc = s.sys.NewProcess("com.example.player")
	s.clientProc = s.sys.NewProcess("com.example.client")

	playerLooper := looper.New("player")
	clientLooper := looper.New("client")
	s.cleanup = append(s.cleanup, playerLooper.Quit, clientLooper.Quit)

	sess, err := session.New(s.sys, s.playerProc, "player", nil, session.Options{Metrics: m})
	s.Require().NoError(err)
	s.session = sess
	s.cleanup = append(s.cleanup, sess.Release)
	sess.SetCallback(&player{s: s, events: s.events}, looper.NewHandler(playerLooper, nil))

	var items []*media.MediaItem
	for _, id := range []string{"a", "b", "c"} {
		item, err := media.NewMediaItem(&media.MediaDescription{MediaID: id}, media.FlagPlayable)
		s.Require().NoError(err)
		items = append(items, item)
	}
	svc, err := browserservice.New(s.sys, s.playerProc, "com.example.player/.Catalog", &catalog{items: items}, playerLooper, browserservice.Options{Metrics: m})
	s.Require().NoError(err)
	s.service = svc
	s.cleanup = append(s.cleanup, svc.Release)
	s.Require().NoError(svc.SetSessionToken(sess.Token()))

	s.handler = looper.NewHandler(clientLooper, nil)
	b, err := browser.New(s.sys, s.clientProc, "com.example.player/.Catalog", nil, connection{s.events}, s.handler, browser.Options{Metrics: m})
	s.Require().NoError(err)
	s.browser = b
	s.Require().NoError(b.Connect(s.ctx))
	s.waitEvent("connected")
}

// TearDownTest освобождает ресурсы в обратном порядке
func (s *PlayerTestSuite) TearDownTest() {
	s.browser.Disconnect(s.ctx)
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		s.cleanup[i]()
	}
}

func (s *PlayerTestSuite) waitEvent(event string) {
	s.Require().Eventually(func() bool { return s.events.Has(event) }, time.Second, 5*time.Millisecond, "нет события %q", event)
}

func (s *PlayerTestSuite) newController() (*controller.Controller, *controllerEvents) {
	token := s.browser.SessionToken()
	s.Require().NotNil(token)
	ctrl, err := controller.New(s.ctx, s.sys, s.clientProc, token, controller.Options{})
	s.Require().NoError(err)
	cb := &controllerEvents{events: s.events}
	s.Require().NoError(ctrl.RegisterCallback(s.ctx, cb, s.handler))
	return ctrl, cb
}

// TestBrowseThenPlay клиент листает каталог и запускает найденный элемент
func (s *PlayerTestSuite) TestBrowseThenPlay() {
	s.Require().NoError(s.browser.Subscribe(s.ctx, s.browser.Root(), browserproto.PageOptions(1, 1), &pageEvents{s.events}))
	s.waitEvent("child b")
	s.False(s.events.Has("child a"), "страница содержит только свой элемент")

	ctrl, _ := s.newController()
	s.waitEvent("session ready")
	s.True(ctrl.IsSessionReady())

	s.Require().NoError(ctrl.TransportControls().PlayFromMediaID(s.ctx, "b", nil))
	s.waitEvent("player play b")
	s.waitEvent("state playing")
	s.Equal(media.StatePlaying, ctrl.PlaybackState(s.ctx).State)
}

// TestSessionReleased контроллер узнает об уничтожении сессии
func (s *PlayerTestSuite) TestSessionReleased() {
	_, _ = s.newController()
	s.waitEvent("session ready")

	s.session.Release()
	s.waitEvent("session destroyed")
}

// TestPlayerProcessDied смерть процесса плеера приостанавливает браузер
func (s *PlayerTestSuite) TestPlayerProcessDied() {
	s.playerProc.Kill()
	s.waitEvent("suspended")
	s.Equal(browser.StateSuspended, s.browser.State())
	s.Nil(s.browser.SessionToken())
}

func TestPlayerSuite(t *testing.T) {
	suite.Run(t, new(PlayerTestSuite))
}
