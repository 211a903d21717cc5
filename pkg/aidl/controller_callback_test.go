package aidl

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arzzra/media_compat/pkg/binder"
	"github.com/arzzra/media_compat/pkg/core/metrics"
	"github.com/arzzra/media_compat/pkg/media"
)

// eventLog собирает события контроллера в порядке доставки
type eventLog struct {
	BaseMediaControllerCallback
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(format string, args ...any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, fmt.Sprintf(format, args...))
	return nil
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func (l *eventLog) OnEvent(_ context.Context, event string, extras *binder.Bundle) error {
	return l.add("event %s %s", event, extras.GetString("k"))
}
func (l *eventLog) OnSessionDestroyed(context.Context) error { return l.add("destroyed") }
func (l *eventLog) OnPlaybackStateChanged(_ context.Context, s *media.PlaybackState) error {
	if s == nil {
		return l.add("state nil")
	}
	return l.add("state %d", s.State)
}
func (l *eventLog) OnMetadataChanged(_ context.Context, m *media.Metadata) error {
	return l.add("metadata %s", m.GetString(media.MetadataKeyTitle))
}
func (l *eventLog) OnQueueChanged(_ context.Context, q []*media.QueueItem) error {
	return l.add("queue %d", len(q))
}
func (l *eventLog) OnQueueTitleChanged(_ context.Context, title string) error {
	return l.add("queueTitle %s", title)
}
func (l *eventLog) OnVolumeInfoChanged(_ context.Context, v *media.VolumeInfo) error {
	return l.add("volume %d/%d", v.CurrentVolume, v.MaxVolume)
}
func (l *eventLog) OnRepeatModeChanged(_ context.Context, mode int) error {
	return l.add("repeat %d", mode)
}
func (l *eventLog) OnCaptioningEnabledChanged(_ context.Context, enabled bool) error {
	return l.add("captioning %t", enabled)
}
func (l *eventLog) OnShuffleModeChanged(_ context.Context, mode int) error {
	return l.add("shuffle %d", mode)
}
func (l *eventLog) OnSessionReady(context.Context) error { return l.add("ready") }

func TestControllerCallback_CodeTable(t *testing.T) {
	require.Len(t, controllerCallbackMethods, 13)
	for code := binder.FirstCallTransaction; code <= binder.FirstCallTransaction+12; code++ {
		assert.Contains(t, controllerCallbackMethods, code)
	}
	assert.Equal(t, "onSessionReady", controllerCallbackMethods[binder.FirstCallTransaction+12])
}

func TestControllerCallback_OnewayOrder(t *testing.T) {
	controllerProc := binder.NewProcess(300, 10300, "com.example.remote")
	sessionProc := binder.NewProcess(100, 10100, "com.example.player")
	log := &eventLog{}
	stub := NewMediaControllerCallbackStub(controllerProc, log)

	parcel := binder.Transfer(sessionProc, func(p *binder.Parcel) { p.WriteStrongBinder(stub.AsBinder()) })
	remote := parcel.ReadStrongBinder()
	parcel.Recycle()

	reg := prometheus.NewRegistry()
	m := metrics.NewCollector("test", reg)
	cb := AsMediaControllerCallback(remote, WithMetrics(m))
	_, isProxy := cb.(*MediaControllerCallbackProxy)
	require.True(t, isProxy)

	ctx := sessionProc.Context(context.Background())
	extras := binder.NewBundle()
	extras.PutString("k", "v")
	meta := media.NewMetadataBuilder().PutString(media.MetadataKeyTitle, "song").Build()

	require.NoError(t, cb.OnEvent(ctx, "custom", extras))
	require.NoError(t, cb.OnPlaybackStateChanged(ctx, &media.PlaybackState{State: media.StatePaused}))
	require.NoError(t, cb.OnPlaybackStateChanged(ctx, nil))
	require.NoError(t, cb.OnMetadataChanged(ctx, meta))
	require.NoError(t, cb.OnQueueChanged(ctx, []*media.QueueItem{{ID: 1, Description: &media.MediaDescription{MediaID: "a"}}}))
	require.NoError(t, cb.OnQueueTitleChanged(ctx, "title"))
	require.NoError(t, cb.OnVolumeInfoChanged(ctx, &media.VolumeInfo{CurrentVolume: 3, MaxVolume: 10}))
	require.NoError(t, cb.OnRepeatModeChanged(ctx, media.RepeatModeOne))
	require.NoError(t, cb.OnCaptioningEnabledChanged(ctx, true))
	require.NoError(t, cb.OnShuffleModeChanged(ctx, media.ShuffleModeAll))
	require.NoError(t, cb.OnSessionReady(ctx))
	require.NoError(t, cb.OnSessionDestroyed(ctx))

	want := []string{
		"event custom v",
		"state 2",
		"state nil",
		"metadata song",
		"queue 1",
		"queueTitle title",
		"volume 3/10",
		"repeat 1",
		"captioning true",
		"shuffle 1",
		"ready",
		"destroyed",
	}
	require.Eventually(t, func() bool { return len(log.snapshot()) == len(want) }, time.Second, 5*time.Millisecond)
	assert.Equal(t, want, log.snapshot())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Transactions.WithLabelValues(controllerCallbackInterface, "onPlaybackStateChanged", metrics.OutcomeOK)))
}

func TestControllerCallback_DeadController(t *testing.T) {
	controllerProc := binder.NewProcess(300, 10300, "com.example.remote")
	sessionProc := binder.NewProcess(100, 10100, "com.example.player")
	stub := NewMediaControllerCallbackStub(controllerProc, &eventLog{})

	parcel := binder.Transfer(sessionProc, func(p *binder.Parcel) { p.WriteStrongBinder(stub.AsBinder()) })
	remote := parcel.ReadStrongBinder()
	parcel.Recycle()
	ctx := sessionProc.Context(context.Background())

	t.Run("без запасной реализации", func(t *testing.T) {
		cb := AsMediaControllerCallback(remote, WithMetrics(metrics.NewCollector("t", prometheus.NewRegistry())))
		controllerProc.Kill()
		err := cb.OnRepeatModeChanged(ctx, media.RepeatModeAll)
		require.Error(t, err)
		assert.True(t, binder.IsTransportFailure(err))
	})

	t.Run("запасная реализация процесса", func(t *testing.T) {
		defer ResetMediaControllerCallbackDefaultImpl()
		fallback := &eventLog{}
		ok, err := SetMediaControllerCallbackDefaultImpl(fallback)
		require.NoError(t, err)
		require.True(t, ok)

		cb := AsMediaControllerCallback(remote, WithMetrics(metrics.NewCollector("t", prometheus.NewRegistry())))
		require.NoError(t, cb.OnShuffleModeChanged(ctx, media.ShuffleModeGroup))
		assert.Equal(t, []string{"shuffle 2"}, fallback.snapshot())
	})
}

func TestMediaSession_RegisterCallbackCrossesProcesses(t *testing.T) {
	var received IMediaControllerCallback
	sessionProc := binder.NewProcess(100, 10100, "com.example.player")
	controllerProc := binder.NewProcess(300, 10300, "com.example.remote")

	impl := &registeringSession{onRegister: func(cb IMediaControllerCallback) { received = cb }}
	session := NewMediaSessionStub(sessionProc, impl)
	log := &eventLog{}
	callback := NewMediaControllerCallbackStub(controllerProc, log)

	parcel := binder.Transfer(controllerProc, func(p *binder.Parcel) { p.WriteStrongBinder(session.AsBinder()) })
	proxy := AsMediaSession(parcel.ReadStrongBinder())
	parcel.Recycle()

	require.NoError(t, proxy.RegisterCallbackListener(controllerProc.Context(context.Background()), callback))
	require.NotNil(t, received)
	_, isProxy := received.(*MediaControllerCallbackProxy)
	assert.True(t, isProxy, "сессия получает прокси на callback контроллера")

	require.NoError(t, received.OnSessionReady(sessionProc.Context(context.Background())))
	require.Eventually(t, func() bool { return len(log.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"ready"}, log.snapshot())
}

type registeringSession struct {
	BaseMediaSession
	onRegister func(IMediaControllerCallback)
}

func (s *registeringSession) RegisterCallbackListener(_ context.Context, cb IMediaControllerCallback) error {
	s.onRegister(cb)
	return nil
}
