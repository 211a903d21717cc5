// Команда mediacompat-demo поднимает в одной эмулированной платформе плеер с
// сессией и сервисом браузера и клиента, который листает каталог страницами
// и управляет воспроизведением через контроллер.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/arzzra/media_compat/pkg/binder"
	"github.com/arzzra/media_compat/pkg/browser"
	"github.com/arzzra/media_compat/pkg/browserproto"
	"github.com/arzzra/media_compat/pkg/browserservice"
	"github.com/arzzra/media_compat/pkg/controller"
	"github.com/arzzra/media_compat/pkg/core/config"
	"github.com/arzzra/media_compat/pkg/core/logging"
	"github.com/arzzra/media_compat/pkg/core/metrics"
	"github.com/arzzra/media_compat/pkg/looper"
	"github.com/arzzra/media_compat/pkg/media"
	"github.com/arzzra/media_compat/pkg/platform"
	"github.com/arzzra/media_compat/pkg/session"
)

const (
	playerPackage = "com.example.player"
	clientPackage = "com.example.client"
	component     = playerPackage + "/.CatalogService"
)

func main() {
	var (
		configDir = flag.String("config", "", "Directory with mediacompat.yaml")
		pageSize  = flag.Int("page-size", 3, "Catalog page size")
		tracks    = flag.Int("tracks", 7, "Number of tracks in the catalog")
	)
	flag.Parse()

	cfg, err := config.Load(*configDir, "mediacompat")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.NewCollector(cfg.Metrics.Namespace, reg)

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Addr != "" {
		srv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           metricsMux(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			slog.Info("metrics endpoint listening", slog.String("addr", cfg.Metrics.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		err := runScenario(ctx, cfg, m, *tracks, *pageSize)
		if err == nil && cfg.Metrics.Addr != "" {
			slog.Info("scenario finished, serving metrics until interrupted")
			<-ctx.Done()
			return nil
		}
		if err == nil {
			stop()
		}
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("demo failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func metricsMux(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprintln(w, "ok")
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return mux
}

// runScenario проходит весь путь: подключение браузера, постраничный обход
// каталога, getItem, поиск и команда play через контроллер
func runScenario(ctx context.Context, cfg *config.Config, m *metrics.Collector, tracks, pageSize int) error {
	log := logging.Component("demo")
	sys := platform.NewSystem(platform.Revision(cfg.Platform.Revision))

	playerLooper := looper.New("player")
	defer playerLooper.Quit()
	clientLooper := looper.New("client")
	defer clientLooper.Quit()

	// процесс плеера
	playerProc := sys.NewProcess(playerPackage)
	sess, err := session.New(sys, playerProc, "demo-player", nil, session.Options{
		RequireTrustedControllers: cfg.Session.RequireTrustedControllers,
		DoubleTapTimeout:          cfg.Session.DoubleTapTimeout,
		Metrics:                   m,
	})
	if err != nil {
		return err
	}
	defer sess.Release()

	cat, err := newCatalog(tracks)
	if err != nil {
		return err
	}
	sess.SetCallback(&player{sys: sys, session: sess, catalog: cat}, looper.NewHandler(playerLooper, nil))
	sess.SetActive(true)

	svc, err := browserservice.New(sys, playerProc, component, cat, playerLooper, browserservice.Options{Metrics: m})
	if err != nil {
		return err
	}
	defer svc.Release()
	if err := svc.SetSessionToken(sess.Token()); err != nil {
		return err
	}

	// процесс клиента
	clientProc := sys.NewProcess(clientPackage)
	clientHandler := looper.NewHandler(clientLooper, nil)
	conn := make(connectionEvents, 4)
	b, err := browser.New(sys, clientProc, component, nil, conn, clientHandler, browser.Options{Metrics: m})
	if err != nil {
		return err
	}
	if err := b.Connect(ctx); err != nil {
		return err
	}
	defer b.Disconnect(context.Background())

	if err := conn.wait(ctx, cfg.Browser.ConnectTimeout); err != nil {
		return err
	}
	log.Info("browser connected",
		slog.String("root", b.Root()),
		slog.Int("service_version", b.ServiceVersion()))

	pages := make(chan pageEvent, 8)
pager:
	for page := 0; ; page++ {
		if err := b.Subscribe(ctx, b.Root(), browserproto.PageOptions(page, pageSize), pageLog(pages)); err != nil {
			return err
		}
		select {
		case ev := <-pages:
			if ev.err {
				return fmt.Errorf("page %d of %s failed", page, ev.parentID)
			}
			if len(ev.items) == 0 {
				break pager
			}
			log.Info("page loaded", slog.Int("page", page), slog.Any("items", ev.items))
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	items := make(chan string, 1)
	if err := b.GetItem(ctx, "track-1", itemLog(items)); err != nil {
		return err
	}
	if err := b.Search(ctx, "track-1", nil, searchLog(items)); err != nil {
		return err
	}
	for i := 0; i < 2; i++ {
		select {
		case line := <-items:
			log.Info(line)
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	token := b.SessionToken()
	if token == nil {
		return errors.New("service did not publish a session token")
	}
	ctrl, err := controller.New(ctx, sys, clientProc, token, controller.Options{Metrics: m})
	if err != nil {
		return err
	}
	states := &stateLog{states: make(chan *media.PlaybackState, 4)}
	if err := ctrl.RegisterCallback(ctx, states, clientHandler); err != nil {
		return err
	}
	defer ctrl.UnregisterCallback(context.Background(), states)

	if err := ctrl.TransportControls().PlayFromMediaID(ctx, "track-1", nil); err != nil {
		return err
	}
	select {
	case state := <-states.states:
		log.Info("playback state changed",
			slog.Int("state", state.State),
			slog.Int64("position", state.Position))
	case <-time.After(cfg.Browser.ConnectTimeout):
		return errors.New("no playback state from the session")
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// catalog одноуровневый каталог плеера
type catalog struct {
	tracks []*media.MediaItem
}

func newCatalog(n int) (*catalog, error) {
	c := &catalog{}
	for i := 0; i < n; i++ {
		item, err := media.NewMediaItem(&media.MediaDescription{
			MediaID: fmt.Sprintf("track-%d", i),
			Title:   fmt.Sprintf("Track %d", i),
		}, media.FlagPlayable)
		if err != nil {
			return nil, err
		}
		c.tracks = append(c.tracks, item)
	}
	return c, nil
}

func (c *catalog) find(id string) *media.MediaItem {
	for _, t := range c.tracks {
		if t.MediaID() == id {
			return t
		}
	}
	return nil
}

func (c *catalog) OnGetRoot(_ context.Context, pkg string, uid int, _ *binder.Bundle) *browserservice.Root {
	slog.Debug("catalog: root requested", slog.String("package", pkg), slog.Int("uid", uid))
	return &browserservice.Root{RootID: "catalog"}
}

func (c *catalog) OnLoadChildren(_ context.Context, _ string, result *platform.Result[[]*media.MediaItem]) {
	result.SendResult(c.tracks)
}

func (c *catalog) OnLoadItem(_ context.Context, itemID string, result *platform.Result[*media.MediaItem]) {
	result.SendResult(c.find(itemID))
}

func (c *catalog) OnSearch(_ context.Context, query string, _ *binder.Bundle, result *platform.Result[[]*media.MediaItem]) {
	var found []*media.MediaItem
	if item := c.find(query); item != nil {
		found = append(found, item)
	}
	result.SendResult(found)
}

// player реагирует на команды контроллера сменой состояния сессии
type player struct {
	session.BaseCallback
	sys     *platform.System
	session *session.Session
	catalog *catalog
}

func (p *player) OnPlayFromMediaID(_ context.Context, mediaID string, _ *binder.Bundle) {
	item := p.catalog.find(mediaID)
	if item == nil {
		p.session.SetPlaybackState(&media.PlaybackState{
			State:        media.StateError,
			ErrorMessage: "unknown media id " + mediaID,
			UpdateTime:   p.sys.ElapsedRealtime(),
		})
		return
	}
	p.session.SetMetadata(media.NewMetadataBuilder().
		PutString(media.MetadataKeyMediaID, mediaID).
		PutString(media.MetadataKeyTitle, item.Description.Title).
		Build())
	p.session.SetPlaybackState(&media.PlaybackState{
		State:      media.StatePlaying,
		Speed:      1,
		UpdateTime: p.sys.ElapsedRealtime(),
	})
}

type connectionEvents chan string

func (c connectionEvents) OnConnected()           { c <- "connected" }
func (c connectionEvents) OnConnectionSuspended() { c <- "suspended" }
func (c connectionEvents) OnConnectionFailed()    { c <- "failed" }

func (c connectionEvents) wait(ctx context.Context, timeout time.Duration) error {
	select {
	case ev := <-c:
		if ev != "connected" {
			return fmt.Errorf("browser connection %s", ev)
		}
		return nil
	case <-time.After(timeout):
		return errors.New("browser connection timed out")
	case <-ctx.Done():
		return ctx.Err()
	}
}

type pageEvent struct {
	parentID string
	items    []string
	err      bool
}

type pageLog chan pageEvent

func (p pageLog) OnChildrenLoaded(parentID string, children []*media.MediaItem, _ *binder.Bundle) {
	ids := make([]string, 0, len(children))
	for _, c := range children {
		ids = append(ids, c.MediaID())
	}
	p <- pageEvent{parentID: parentID, items: ids}
}

func (p pageLog) OnError(parentID string, _ *binder.Bundle) {
	p <- pageEvent{parentID: parentID, err: true}
}

type itemLog chan string

func (i itemLog) OnItemLoaded(item *media.MediaItem) {
	if item == nil {
		i <- "item not found"
		return
	}
	i <- "item loaded: " + item.MediaID()
}

func (i itemLog) OnError(itemID string) { i <- "item error: " + itemID }

type searchLog chan string

func (s searchLog) OnSearchResult(query string, _ *binder.Bundle, items []*media.MediaItem) {
	s <- fmt.Sprintf("search %q: %d result(s)", query, len(items))
}

func (s searchLog) OnError(query string, _ *binder.Bundle) { s <- "search error: " + query }

type stateLog struct {
	controller.BaseCallback
	states chan *media.PlaybackState
}

func (s *stateLog) OnPlaybackStateChanged(state *media.PlaybackState) {
	if state != nil {
		s.states <- state
	}
}
