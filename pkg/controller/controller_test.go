package controller

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arzzra/media_compat/pkg/binder"
	"github.com/arzzra/media_compat/pkg/core/compaterr"
	"github.com/arzzra/media_compat/pkg/core/metrics"
	"github.com/arzzra/media_compat/pkg/looper"
	"github.com/arzzra/media_compat/pkg/media"
	"github.com/arzzra/media_compat/pkg/platform"
	"github.com/arzzra/media_compat/pkg/session"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
	quiet   = 100 * time.Millisecond
)

// eventLog общий журнал событий нескольких callback
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(event string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func (l *eventLog) count(event string) int {
	n := 0
	for _, e := range l.snapshot() {
		if e == event {
			n++
		}
	}
	return n
}

// callbackLog Callback контроллера, пишущий события в журнал с префиксом name
type callbackLog struct {
	BaseCallback
	name string
	log  *eventLog
}

func newCallbackLog() *callbackLog {
	return &callbackLog{log: &eventLog{}}
}

func (c *callbackLog) add(format string, args ...any) {
	event := fmt.Sprintf(format, args...)
	if c.name != "" {
		event = c.name + " " + event
	}
	c.log.add(event)
}

func (c *callbackLog) OnSessionReady()     { c.add("ready") }
func (c *callbackLog) OnSessionDestroyed() { c.add("destroyed") }
func (c *callbackLog) OnSessionEvent(event string, _ *binder.Bundle) {
	c.add("event %s", event)
}
func (c *callbackLog) OnPlaybackStateChanged(state *media.PlaybackState) {
	c.add("state %d", state.State)
}
func (c *callbackLog) OnMetadataChanged(metadata *media.Metadata) {
	c.add("metadata %s", metadata.GetString(media.MetadataKeyTitle))
}
func (c *callbackLog) OnAudioInfoChanged(info *PlaybackInfo) {
	c.add("audio %d/%d", info.CurrentVolume, info.MaxVolume)
}
func (c *callbackLog) OnRepeatModeChanged(mode int)  { c.add("repeat %d", mode) }
func (c *callbackLog) OnShuffleModeChanged(mode int) { c.add("shuffle %d", mode) }
func (c *callbackLog) OnCaptioningEnabledChanged(enabled bool) {
	c.add("captioning %t", enabled)
}

// appRecorder callback приложения сессии
type appRecorder struct {
	session.BaseCallback
	log eventLog
}

func (a *appRecorder) add(format string, args ...any) { a.log.add(fmt.Sprintf(format, args...)) }

func (a *appRecorder) OnPrepare(context.Context) { a.add("prepare") }
func (a *appRecorder) OnPrepareFromMediaID(_ context.Context, id string, _ *binder.Bundle) {
	a.add("prepareFromMediaID %s", id)
}
func (a *appRecorder) OnPrepareFromSearch(_ context.Context, query string, _ *binder.Bundle) {
	a.add("prepareFromSearch %s", query)
}
func (a *appRecorder) OnPrepareFromURI(_ context.Context, uri string, _ *binder.Bundle) {
	a.add("prepareFromURI %s", uri)
}
func (a *appRecorder) OnPlay(context.Context) { a.add("play") }
func (a *appRecorder) OnPlayFromURI(_ context.Context, uri string, extras *binder.Bundle) {
	a.add("playFromURI %s %s", uri, extras.GetString("source"))
}
func (a *appRecorder) OnSetRating(_ context.Context, rating *media.Rating, _ *binder.Bundle) {
	a.add("rating %d", rating.Style)
}
func (a *appRecorder) OnSetPlaybackSpeed(_ context.Context, speed float32) {
	a.add("speed %.1f", speed)
}
func (a *appRecorder) OnSetCaptioningEnabled(_ context.Context, enabled bool) {
	a.add("captioning %t", enabled)
}
func (a *appRecorder) OnSetRepeatMode(_ context.Context, mode int)  { a.add("repeat %d", mode) }
func (a *appRecorder) OnSetShuffleMode(_ context.Context, mode int) { a.add("shuffle %d", mode) }
func (a *appRecorder) OnCustomAction(_ context.Context, action string, _ *binder.Bundle) {
	a.add("custom %s", action)
}
func (a *appRecorder) OnAddQueueItem(_ context.Context, d *media.MediaDescription) {
	a.add("addQueueItem %s", d.MediaID)
}
func (a *appRecorder) OnAddQueueItemAt(_ context.Context, d *media.MediaDescription, index int) {
	a.add("addQueueItemAt %s %d", d.MediaID, index)
}
func (a *appRecorder) OnRemoveQueueItem(_ context.Context, d *media.MediaDescription) {
	a.add("removeQueueItem %s", d.MediaID)
}

type fixture struct {
	sys           *platform.System
	player        *binder.Process
	client        *binder.Process
	session       *session.Session
	app           *appRecorder
	sessionLooper *looper.Looper
	clientLooper  *looper.Looper
	metrics       *metrics.Collector
}

func newFixture(t *testing.T, rev platform.Revision) *fixture {
	return newFixtureWithInfo(t, rev, nil)
}

func newFixtureWithInfo(t *testing.T, rev platform.Revision, info *binder.Bundle) *fixture {
	t.Helper()
	sys := platform.NewSystem(rev)
	player := sys.NewProcess("com.example.player")
	m := metrics.NewCollector("test", prometheus.NewRegistry())
	s, err := session.New(sys, player, "player", info, session.Options{Metrics: m})
	require.NoError(t, err)
	t.Cleanup(s.Release)

	sl := looper.New("player")
	t.Cleanup(sl.Quit)
	app := &appRecorder{}
	s.SetCallback(app, looper.NewHandler(sl, nil))

	cl := looper.New("client")
	t.Cleanup(cl.Quit)
	return &fixture{
		sys:           sys,
		player:        player,
		client:        sys.NewProcess("com.example.client"),
		session:       s,
		app:           app,
		sessionLooper: sl,
		clientLooper:  cl,
		metrics:       m,
	}
}

// token передает токен сессии в процесс клиента; extra binder при этом теряется
func (f *fixture) token(t *testing.T) *session.Token {
	t.Helper()
	parcel := binder.Transfer(f.client, func(p *binder.Parcel) { p.WriteParcelable(f.session.Token()) })
	defer parcel.Recycle()
	token, ok := parcel.ReadParcelable().(*session.Token)
	require.True(t, ok)
	require.Nil(t, token.ExtraBinder())
	return token
}

func (f *fixture) newController(t *testing.T) *Controller {
	t.Helper()
	c, err := New(context.Background(), f.sys, f.client, f.token(t), Options{Metrics: f.metrics})
	require.NoError(t, err)
	return c
}

func (f *fixture) handler() *looper.Handler {
	return looper.NewHandler(f.clientLooper, nil)
}

// blockSession занимает Looper сессии, пока не будет вызвана возвращенная функция.
// Команды сессии, включая запрос extra binder, ждут в очереди.
func (f *fixture) blockSession(t *testing.T) func() {
	t.Helper()
	started, done := make(chan struct{}), make(chan struct{})
	looper.NewHandler(f.sessionLooper, nil).Post(func() {
		close(started)
		<-done
	})
	<-started
	var once sync.Once
	release := func() { once.Do(func() { close(done) }) }
	t.Cleanup(release)
	return release
}

func waitReady(t *testing.T, c *Controller) {
	t.Helper()
	require.Eventually(t, func() bool { return c.State() == StateReady }, waitFor, tick)
}

func waitEvents(t *testing.T, l *eventLog, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return len(l.snapshot()) >= n }, waitFor, tick)
}

func TestNew_Validation(t *testing.T) {
	f := newFixture(t, platform.RevisionR)

	_, err := New(context.Background(), f.sys, f.client, nil, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, binder.ErrIllegalArgument))

	_, err = New(context.Background(), nil, f.client, f.token(t), Options{})
	assert.True(t, compaterr.IsPrecondition(err))
}

func TestController_LocalTokenIsReady(t *testing.T) {
	f := newFixture(t, platform.RevisionR)
	c, err := New(context.Background(), f.sys, f.player, f.session.Token(), Options{Metrics: f.metrics})
	require.NoError(t, err)

	assert.Equal(t, StateReady, c.State())
	assert.True(t, c.IsSessionReady())
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.Handshakes.WithLabelValues(handshakeOK)),
		"токен с extra binder не требует запроса")
}

func TestController_DegradedGettersWhileConnecting(t *testing.T) {
	f := newFixture(t, platform.RevisionR)
	f.session.SetRepeatMode(media.RepeatModeAll)
	f.session.SetShuffleMode(media.ShuffleModeGroup)
	f.session.SetCaptioningEnabled(true)
	release := f.blockSession(t)
	c := f.newController(t)
	ctx := context.Background()

	assert.Equal(t, StateConnecting, c.State())
	assert.False(t, c.IsSessionReady())
	assert.Equal(t, media.RepeatModeInvalid, c.RepeatMode(ctx))
	assert.Equal(t, media.ShuffleModeInvalid, c.ShuffleMode(ctx))
	assert.False(t, c.IsCaptioningEnabled(ctx))

	release()
	waitReady(t, c)
	assert.Equal(t, media.RepeatModeAll, c.RepeatMode(ctx))
	assert.Equal(t, media.ShuffleModeGroup, c.ShuffleMode(ctx))
	assert.True(t, c.IsCaptioningEnabled(ctx))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Handshakes.WithLabelValues(handshakeOK)))
}

func TestController_PendingCallbacksDrainedInOrder(t *testing.T) {
	f := newFixture(t, platform.RevisionR)
	release := f.blockSession(t)
	c := f.newController(t)
	ctx := context.Background()

	events := &eventLog{}
	h := f.handler()
	names := []string{"first", "second", "third"}
	for _, name := range names {
		require.NoError(t, c.RegisterCallback(ctx, &callbackLog{name: name, log: events}, h))
	}
	assert.Equal(t, 3, c.RegisteredCallbacks())
	assert.Equal(t, 0, f.session.RegisteredControllers(), "до ответа сессии регистрация ждет")

	release()
	want := []string{"first ready", "second ready", "third ready"}
	waitEvents(t, events, len(want))
	assert.Never(t, func() bool { return len(events.snapshot()) > len(want) }, quiet, tick)
	assert.Equal(t, want, events.snapshot())
	assert.Equal(t, 3, f.session.RegisteredControllers())
	assert.Equal(t, 3.0, testutil.ToFloat64(f.metrics.PendingDrained))
}

func TestController_RegisterAfterReady(t *testing.T) {
	f := newFixture(t, platform.RevisionR)
	c := f.newController(t)
	waitReady(t, c)

	cb := newCallbackLog()
	require.NoError(t, c.RegisterCallback(context.Background(), cb, f.handler()))
	require.NoError(t, c.RegisterCallback(context.Background(), cb, f.handler()), "повторная регистрация игнорируется")

	waitEvents(t, cb.log, 1)
	assert.Never(t, func() bool { return len(cb.log.snapshot()) > 1 }, quiet, tick)
	assert.Equal(t, []string{"ready"}, cb.log.snapshot())
	assert.Equal(t, 1, c.RegisteredCallbacks())
	assert.Equal(t, 1, f.session.RegisteredControllers())
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.PendingDrained))
}

func TestController_ConcurrentRegisterSameCallback(t *testing.T) {
	f := newFixture(t, platform.RevisionR)
	c := f.newController(t)
	waitReady(t, c)

	cb := newCallbackLog()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.RegisterCallback(context.Background(), cb, f.handler()))
		}()
	}
	wg.Wait()

	waitEvents(t, cb.log, 1)
	assert.Never(t, func() bool { return len(cb.log.snapshot()) > 1 }, quiet, tick)
	assert.Equal(t, 1, c.RegisteredCallbacks())
	assert.Equal(t, 1, f.session.RegisteredControllers())
}

func TestController_ModesArriveInSessionOrder(t *testing.T) {
	f := newFixture(t, platform.RevisionR)
	c := f.newController(t)
	waitReady(t, c)
	cb := newCallbackLog()
	require.NoError(t, c.RegisterCallback(context.Background(), cb, f.handler()))
	waitEvents(t, cb.log, 1)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				f.session.SetRepeatMode((g + i) % 3)
				f.session.SetShuffleMode((g + i) % 2)
				f.session.SetCaptioningEnabled((g+i)%2 == 0)
			}
		}(g)
	}
	wg.Wait()

	last := func(prefix string) string {
		events := cb.log.snapshot()
		for i := len(events) - 1; i >= 0; i-- {
			if strings.HasPrefix(events[i], prefix) {
				return events[i]
			}
		}
		return ""
	}
	want := []string{
		fmt.Sprintf("repeat %d", f.session.RepeatMode()),
		fmt.Sprintf("shuffle %d", f.session.ShuffleMode()),
		fmt.Sprintf("captioning %t", f.session.IsCaptioningEnabled()),
	}
	require.Eventually(t, func() bool {
		return last("repeat ") == want[0] && last("shuffle ") == want[1] && last("captioning ") == want[2]
	}, waitFor, tick, "последнее событие совпадает с итоговым состоянием сессии")
}

func TestController_NativeDuplicatesSuppressed(t *testing.T) {
	f := newFixture(t, platform.RevisionR)
	c := f.newController(t)
	waitReady(t, c)
	cb := newCallbackLog()
	require.NoError(t, c.RegisterCallback(context.Background(), cb, f.handler()))
	waitEvents(t, cb.log, 1)

	f.session.SetPlaybackState(&media.PlaybackState{State: media.StatePlaying})
	f.session.SetRepeatMode(media.RepeatModeOne)
	f.session.SetMetadata(media.NewMetadataBuilder().PutString(media.MetadataKeyTitle, "song").Build())

	want := []string{"ready", "state 3", "repeat 1", "metadata song"}
	waitEvents(t, cb.log, len(want))
	assert.Never(t, func() bool { return len(cb.log.snapshot()) > len(want) }, quiet, tick,
		"нативная копия состояния не доставляется")
	assert.ElementsMatch(t, want, cb.log.snapshot())
}

func TestController_PlaybackStateFromNativeWhilePending(t *testing.T) {
	f := newFixture(t, platform.RevisionR)
	release := f.blockSession(t)
	c := f.newController(t)
	cb := newCallbackLog()
	require.NoError(t, c.RegisterCallback(context.Background(), cb, f.handler()))

	f.session.SetPlaybackState(&media.PlaybackState{State: media.StatePaused})
	waitEvents(t, cb.log, 1)
	assert.Equal(t, []string{"state 2"}, cb.log.snapshot(), "без extra binder состояние приходит от нативного контроллера")
	assert.Equal(t, media.StatePaused, c.PlaybackState(context.Background()).State)

	release()
	waitReady(t, c)
	waitEvents(t, cb.log, 2)
	assert.Equal(t, media.StatePaused, c.PlaybackState(context.Background()).State)
}

func TestController_SessionEventDeduplicated(t *testing.T) {
	tests := []struct {
		name string
		rev  platform.Revision
	}{
		{name: "событие через extra binder", rev: platform.RevisionLollipop},
		{name: "событие через нативный контроллер", rev: platform.RevisionMarshmallow},
		{name: "современная платформа", rev: platform.RevisionR},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.rev)
			c := f.newController(t)
			waitReady(t, c)
			cb := newCallbackLog()
			require.NoError(t, c.RegisterCallback(context.Background(), cb, f.handler()))
			waitEvents(t, cb.log, 1)

			require.NoError(t, f.session.SendSessionEvent("com.example.EVENT", nil))
			require.Eventually(t, func() bool { return cb.log.count("event com.example.EVENT") == 1 }, waitFor, tick)
			assert.Never(t, func() bool { return cb.log.count("event com.example.EVENT") > 1 }, quiet, tick)
		})
	}
}

func TestController_SessionDestroyedOnce(t *testing.T) {
	tests := []struct {
		name    string
		destroy func(f *fixture)
	}{
		{name: "сессия освобождена", destroy: func(f *fixture) { f.session.Release() }},
		{name: "процесс плеера завершен", destroy: func(f *fixture) { f.player.Kill() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, platform.RevisionR)
			c := f.newController(t)
			waitReady(t, c)
			cb := newCallbackLog()
			require.NoError(t, c.RegisterCallback(context.Background(), cb, f.handler()))
			waitEvents(t, cb.log, 1)

			tt.destroy(f)
			require.Eventually(t, func() bool { return cb.log.count("destroyed") == 1 }, waitFor, tick)
			assert.Never(t, func() bool { return cb.log.count("destroyed") > 1 }, quiet, tick)
		})
	}
}

func TestController_UnregisterCallback(t *testing.T) {
	f := newFixture(t, platform.RevisionR)
	c := f.newController(t)
	waitReady(t, c)
	ctx := context.Background()
	cb := newCallbackLog()
	require.NoError(t, c.RegisterCallback(ctx, cb, f.handler()))
	waitEvents(t, cb.log, 1)

	c.UnregisterCallback(ctx, cb)
	assert.Equal(t, 0, c.RegisteredCallbacks())
	assert.Equal(t, 0, f.session.RegisteredControllers())

	f.session.SetRepeatMode(media.RepeatModeAll)
	f.session.SetMetadata(media.NewMetadataBuilder().PutString(media.MetadataKeyTitle, "song").Build())
	assert.Never(t, func() bool { return len(cb.log.snapshot()) > 1 }, quiet, tick)

	c.UnregisterCallback(ctx, cb)
}

func TestController_UnregisterPendingCallback(t *testing.T) {
	f := newFixture(t, platform.RevisionR)
	release := f.blockSession(t)
	c := f.newController(t)
	ctx := context.Background()
	cb := newCallbackLog()
	require.NoError(t, c.RegisterCallback(ctx, cb, f.handler()))
	c.UnregisterCallback(ctx, cb)

	release()
	waitReady(t, c)
	assert.Never(t, func() bool { return len(cb.log.snapshot()) > 0 }, quiet, tick)
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.PendingDrained))
	assert.Equal(t, 0, f.session.RegisteredControllers())
}

func TestController_QueueCommandsRequireFlag(t *testing.T) {
	f := newFixture(t, platform.RevisionR)
	c := f.newController(t)
	ctx := context.Background()
	desc := &media.MediaDescription{MediaID: "song"}

	calls := []struct {
		name string
		call func() error
	}{
		{name: "addQueueItem", call: func() error { return c.AddQueueItem(ctx, desc) }},
		{name: "addQueueItemAt", call: func() error { return c.AddQueueItemAt(ctx, desc, 0) }},
		{name: "removeQueueItem", call: func() error { return c.RemoveQueueItem(ctx, desc) }},
		{name: "removeQueueItemAt", call: func() error { return c.RemoveQueueItemAt(ctx, 0) }},
	}
	for _, tc := range calls {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call()
			require.Error(t, err)
			assert.True(t, errors.Is(err, binder.ErrUnsupportedOperation))
			assert.Equal(t, "UNSUPPORTED_OPERATION", compaterr.GetErrorCode(err))
		})
	}
	assert.Never(t, func() bool { return len(f.app.log.snapshot()) > 0 }, quiet, tick, "команда не отправлена сессии")

	f.session.SetFlags(session.FlagHandlesQueueCommands)
	require.NoError(t, c.AddQueueItem(ctx, desc))
	require.NoError(t, c.AddQueueItemAt(ctx, desc, 3))
	waitEvents(t, &f.app.log, 2)
	assert.Equal(t, []string{"addQueueItem song", "addQueueItemAt song 3"}, f.app.log.snapshot())
}

func TestController_ArgumentValidation(t *testing.T) {
	f := newFixture(t, platform.RevisionR)
	c := f.newController(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{name: "пустая команда", call: func() error { return c.SendCommand(ctx, "", nil, nil) }},
		{name: "нет события кнопки", call: func() error {
			_, err := c.DispatchMediaButtonEvent(ctx, nil)
			return err
		}},
		{name: "нет callback", call: func() error { return c.RegisterCallback(ctx, nil, nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.True(t, errors.Is(err, binder.ErrIllegalArgument))
		})
	}
}

func TestController_SessionInfo(t *testing.T) {
	info := binder.NewBundle()
	info.PutString("key", "value")

	t.Run("через extra binder", func(t *testing.T) {
		f := newFixtureWithInfo(t, platform.RevisionNougat, info)
		release := f.blockSession(t)
		c := f.newController(t)
		ctx := context.Background()

		got := c.SessionInfo(ctx)
		require.NotNil(t, got)
		assert.True(t, got.IsEmpty(), "до ответа сессии пустой Bundle")

		release()
		waitReady(t, c)
		got = c.SessionInfo(ctx)
		assert.Equal(t, "value", got.GetString("key"))

		got.PutString("key", "changed")
		assert.Equal(t, "value", c.SessionInfo(ctx).GetString("key"), "возвращается копия")
	})

	t.Run("нативный запрос", func(t *testing.T) {
		f := newFixtureWithInfo(t, platform.RevisionQ, info)
		f.blockSession(t)
		c := f.newController(t)
		assert.Equal(t, "value", c.SessionInfo(context.Background()).GetString("key"))
	})
}

func TestController_PlaybackInfo(t *testing.T) {
	f := newFixture(t, platform.RevisionR)
	c := f.newController(t)
	waitReady(t, c)
	cb := newCallbackLog()
	require.NoError(t, c.RegisterCallback(context.Background(), cb, f.handler()))
	waitEvents(t, cb.log, 1)

	f.session.SetPlaybackToRemote(media.VolumeControlAbsolute, 50, 10, nil)

	info := c.PlaybackInfo(context.Background())
	require.NotNil(t, info)
	assert.Equal(t, media.PlaybackTypeRemote, info.PlaybackType)
	assert.Equal(t, media.VolumeControlAbsolute, info.VolumeControl)
	assert.Equal(t, 50, info.MaxVolume)
	assert.Equal(t, 10, info.CurrentVolume)
	require.Eventually(t, func() bool { return cb.log.count("audio 10/50") == 1 }, waitFor, tick)
}

func TestController_NativeGetters(t *testing.T) {
	f := newFixture(t, platform.RevisionR)
	f.session.SetQueueTitle("Now playing")
	f.session.SetRatingType(media.Rating5Stars)
	require.NoError(t, f.session.SetQueue([]*media.QueueItem{
		{ID: 1, Description: &media.MediaDescription{MediaID: "a"}},
	}))
	c := f.newController(t)
	ctx := context.Background()

	assert.Equal(t, "Now playing", c.QueueTitle(ctx))
	assert.Equal(t, media.Rating5Stars, c.RatingType(ctx))
	assert.Equal(t, "com.example.player", c.PackageName(ctx))
	assert.Equal(t, "player", c.Tag(ctx))
	require.Len(t, c.Queue(ctx), 1)
	assert.Equal(t, "a", c.Queue(ctx)[0].Description.MediaID)
	assert.Equal(t, session.FlagHandlesMediaButtons|session.FlagHandlesTransportControls, c.Flags(ctx))
}

func TestTransportControls_RoutingByRevision(t *testing.T) {
	tests := []struct {
		name        string
		rev         platform.Revision
		native      bool
		nativeSpeed bool
	}{
		{name: "Lollipop кодирует действиями", rev: platform.RevisionLollipop},
		{name: "Nougat нативный prepare", rev: platform.RevisionNougat, native: true},
		{name: "R полностью нативный", rev: platform.RevisionR, native: true, nativeSpeed: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.rev)
			c := f.newController(t)
			ctx := context.Background()

			tc, ok := c.TransportControls().(*transportControls)
			require.True(t, ok)
			assert.Equal(t, tt.native, tc.caps.NativePrepare)
			assert.Equal(t, tt.native, tc.caps.NativePlayFromURI)
			assert.Equal(t, tt.nativeSpeed, tc.caps.NativePlaybackSpeed)

			extras := binder.NewBundle()
			extras.PutString("source", "radio")
			require.NoError(t, tc.Prepare(ctx))
			require.NoError(t, tc.PrepareFromMediaID(ctx, "song", nil))
			require.NoError(t, tc.PrepareFromSearch(ctx, "jazz", nil))
			require.NoError(t, tc.PrepareFromURI(ctx, "u://p", nil))
			require.NoError(t, tc.PlayFromURI(ctx, "u://x", extras))
			require.NoError(t, tc.SetPlaybackSpeed(ctx, 1.5))
			require.NoError(t, tc.SetRatingWithExtras(ctx, &media.Rating{Style: 2, Value: 1}, extras))
			require.NoError(t, tc.SetRepeatMode(ctx, media.RepeatModeAll))

			want := []string{
				"prepare",
				"prepareFromMediaID song",
				"prepareFromSearch jazz",
				"prepareFromURI u://p",
				"playFromURI u://x radio",
				"speed 1.5",
				"rating 2",
				fmt.Sprintf("repeat %d", media.RepeatModeAll),
			}
			waitEvents(t, &f.app.log, len(want))
			assert.ElementsMatch(t, want, f.app.log.snapshot())
		})
	}
}

func TestTransportControls_RejectedLocally(t *testing.T) {
	for _, rev := range []platform.Revision{platform.RevisionLollipop, platform.RevisionNougat, platform.RevisionR} {
		t.Run(fmt.Sprintf("ревизия %d", rev), func(t *testing.T) {
			f := newFixture(t, rev)
			c := f.newController(t)
			ctx := context.Background()
			tc := c.TransportControls()

			calls := []struct {
				name string
				call func() error
			}{
				{name: "нулевая скорость", call: func() error { return tc.SetPlaybackSpeed(ctx, 0) }},
				{name: "follow без атрибута", call: func() error { return tc.SendCustomAction(ctx, session.ActionFollow, nil) }},
				{name: "unfollow без атрибута", call: func() error {
					return tc.SendCustomAction(ctx, session.ActionUnfollow, binder.NewBundle())
				}},
			}
			for _, cc := range calls {
				err := cc.call()
				require.Error(t, err, cc.name)
				assert.True(t, errors.Is(err, binder.ErrIllegalArgument), cc.name)
				assert.Equal(t, "ILLEGAL_ARGUMENT", compaterr.GetErrorCode(err), cc.name)
			}
			assert.Never(t, func() bool { return len(f.app.log.snapshot()) > 0 }, quiet, tick, "сессия не получила команд")

			args := binder.NewBundle()
			args.PutInt(session.ArgumentMediaAttribute, 0)
			require.NoError(t, tc.SendCustomAction(ctx, session.ActionFollow, args))
			waitEvents(t, &f.app.log, 1)
			assert.Equal(t, []string{"custom " + session.ActionFollow}, f.app.log.snapshot())
		})
	}
}
