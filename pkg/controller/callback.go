package controller

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/arzzra/media_compat/pkg/aidl"
	"github.com/arzzra/media_compat/pkg/binder"
	"github.com/arzzra/media_compat/pkg/looper"
	"github.com/arzzra/media_compat/pkg/media"
	"github.com/arzzra/media_compat/pkg/platform"
)

// Callback события сессии для приложения контроллера.
// Все методы вызываются в Looper, указанном при регистрации.
type Callback interface {
	// OnSessionReady сессия ответила extra binder: доступны режимы повтора,
	// перемешивания и субтитров
	OnSessionReady()
	OnSessionDestroyed()
	OnSessionEvent(event string, extras *binder.Bundle)
	OnPlaybackStateChanged(state *media.PlaybackState)
	OnMetadataChanged(metadata *media.Metadata)
	OnQueueChanged(queue []*media.QueueItem)
	OnQueueTitleChanged(title string)
	OnExtrasChanged(extras *binder.Bundle)
	OnAudioInfoChanged(info *PlaybackInfo)
	OnCaptioningEnabledChanged(enabled bool)
	OnRepeatModeChanged(repeatMode int)
	OnShuffleModeChanged(shuffleMode int)
}

// BaseCallback пустая реализация Callback для встраивания
type BaseCallback struct{}

func (BaseCallback) OnSessionReady()                             {}
func (BaseCallback) OnSessionDestroyed()                         {}
func (BaseCallback) OnSessionEvent(string, *binder.Bundle)       {}
func (BaseCallback) OnPlaybackStateChanged(*media.PlaybackState) {}
func (BaseCallback) OnMetadataChanged(*media.Metadata)           {}
func (BaseCallback) OnQueueChanged([]*media.QueueItem)           {}
func (BaseCallback) OnQueueTitleChanged(string)                  {}
func (BaseCallback) OnExtrasChanged(*binder.Bundle)              {}
func (BaseCallback) OnAudioInfoChanged(*PlaybackInfo)            {}
func (BaseCallback) OnCaptioningEnabledChanged(bool)             {}
func (BaseCallback) OnRepeatModeChanged(int)                     {}
func (BaseCallback) OnShuffleModeChanged(int)                    {}

var _ Callback = BaseCallback{}

// PlaybackInfo параметры громкости сессии с точки зрения контроллера
type PlaybackInfo struct {
	PlaybackType  int
	AudioStream   int
	VolumeControl int
	MaxVolume     int
	CurrentVolume int
}

func playbackInfoFrom(v *media.VolumeInfo) *PlaybackInfo {
	if v == nil {
		return nil
	}
	return &PlaybackInfo{
		PlaybackType:  v.VolumeType,
		AudioStream:   v.AudioStream,
		VolumeControl: v.ControlType,
		MaxVolume:     v.MaxVolume,
		CurrentVolume: v.CurrentVolume,
	}
}

// record регистрация одного Callback.
//
// Контроллер владеет записью; адаптеры native и extra знают только запись,
// а не контроллер. Доставка идет через собственный Handler записи, поэтому
// отмена регистрации снимает все еще не доставленные события.
type record struct {
	id      uuid.UUID
	cb      Callback
	handler *looper.Handler
	native  *nativeCallback
	death   binder.DeathRecipient
	rev     platform.Revision

	mu         sync.Mutex
	registered bool
	destroyed  bool
	stub       *aidl.MediaControllerCallbackStub
}

func newRecord(cb Callback, h *looper.Handler, rev platform.Revision) *record {
	var l *looper.Looper
	if h != nil {
		l = h.Looper()
	}
	r := &record{
		id:         uuid.New(),
		cb:         cb,
		handler:    looper.NewHandler(l, nil),
		rev:        rev,
		registered: true,
	}
	r.native = &nativeCallback{r: r}
	r.death = binder.NewDeathRecipient(func() { r.post(r.sessionDestroyed) })
	return r
}

func (r *record) isRegistered() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registered
}

// hasExtra true, если callback зарегистрирован через extra binder
func (r *record) hasExtra() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stub != nil
}

func (r *record) setStub(stub *aidl.MediaControllerCallbackStub) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stub = stub
}

// release снимает регистрацию и возвращает stub extra binder, если он был
func (r *record) release() *aidl.MediaControllerCallbackStub {
	r.mu.Lock()
	r.registered = false
	stub := r.stub
	r.stub = nil
	r.mu.Unlock()
	r.handler.RemoveCallbacksAndMessages()
	return stub
}

// post ставит fn в Looper записи; fn выполняется, только пока запись зарегистрирована
func (r *record) post(fn func()) {
	r.handler.Post(func() {
		if r.isRegistered() {
			fn()
		}
	})
}

// sessionDestroyed доставляет OnSessionDestroyed один раз, из какого бы
// источника ни пришло уничтожение: native, extra binder или смерть процесса
func (r *record) sessionDestroyed() {
	r.mu.Lock()
	if r.destroyed || !r.registered {
		r.mu.Unlock()
		return
	}
	r.destroyed = true
	r.mu.Unlock()
	r.cb.OnSessionDestroyed()
}

// nativeCallback принимает события нативного контроллера.
// Вызовы уже выполняются в Looper записи.
type nativeCallback struct {
	r *record
}

var _ platform.ControllerCallback = (*nativeCallback)(nil)

func (n *nativeCallback) deliver(fn func(cb Callback)) {
	if n.r.isRegistered() {
		fn(n.r.cb)
	}
}

// OnSessionEvent до ревизии 23 событие приходит и через extra binder
func (n *nativeCallback) OnSessionEvent(event string, extras *binder.Bundle) {
	if n.r.rev < platform.RevisionMarshmallow && n.r.hasExtra() {
		return
	}
	n.deliver(func(cb Callback) { cb.OnSessionEvent(event, extras) })
}

// OnPlaybackStateChanged при наличии extra binder состояние доставляет он
func (n *nativeCallback) OnPlaybackStateChanged(state *media.PlaybackState) {
	if n.r.hasExtra() {
		return
	}
	n.deliver(func(cb Callback) { cb.OnPlaybackStateChanged(state) })
}

func (n *nativeCallback) OnMetadataChanged(metadata *media.Metadata) {
	n.deliver(func(cb Callback) { cb.OnMetadataChanged(metadata) })
}

func (n *nativeCallback) OnQueueChanged(queue []*media.QueueItem) {
	n.deliver(func(cb Callback) { cb.OnQueueChanged(queue) })
}

func (n *nativeCallback) OnQueueTitleChanged(title string) {
	n.deliver(func(cb Callback) { cb.OnQueueTitleChanged(title) })
}

func (n *nativeCallback) OnExtrasChanged(extras *binder.Bundle) {
	n.deliver(func(cb Callback) { cb.OnExtrasChanged(extras) })
}

func (n *nativeCallback) OnAudioInfoChanged(info *media.VolumeInfo) {
	if info == nil {
		return
	}
	n.deliver(func(cb Callback) { cb.OnAudioInfoChanged(playbackInfoFrom(info)) })
}

func (n *nativeCallback) OnSessionDestroyed() {
	n.r.sessionDestroyed()
}

// extraCallback принимает события через extra binder в потоке транзакции
// и переносит их в Looper записи. Метаданные, очередь и громкость сессия
// рассылает только через нативный канал.
type extraCallback struct {
	aidl.BaseMediaControllerCallback
	r *record
}

var _ aidl.MediaControllerCallback = (*extraCallback)(nil)

func (e *extraCallback) OnEvent(_ context.Context, event string, extras *binder.Bundle) error {
	e.r.post(func() { e.r.cb.OnSessionEvent(event, extras) })
	return nil
}

func (e *extraCallback) OnSessionDestroyed(context.Context) error {
	e.r.post(e.r.sessionDestroyed)
	return nil
}

func (e *extraCallback) OnPlaybackStateChanged(_ context.Context, state *media.PlaybackState) error {
	e.r.post(func() { e.r.cb.OnPlaybackStateChanged(state) })
	return nil
}

func (e *extraCallback) OnRepeatModeChanged(_ context.Context, repeatMode int) error {
	e.r.post(func() { e.r.cb.OnRepeatModeChanged(repeatMode) })
	return nil
}

func (e *extraCallback) OnCaptioningEnabledChanged(_ context.Context, enabled bool) error {
	e.r.post(func() { e.r.cb.OnCaptioningEnabledChanged(enabled) })
	return nil
}

func (e *extraCallback) OnShuffleModeChanged(_ context.Context, shuffleMode int) error {
	e.r.post(func() { e.r.cb.OnShuffleModeChanged(shuffleMode) })
	return nil
}

func (e *extraCallback) OnSessionReady(context.Context) error {
	e.r.post(e.r.cb.OnSessionReady)
	return nil
}
