package aidl

import (
	"context"

	"github.com/arzzra/media_compat/pkg/binder"
	"github.com/arzzra/media_compat/pkg/media"
)

// MediaControllerCallbackDescriptor дескриптор интерфейса IMediaControllerCallback
const MediaControllerCallbackDescriptor = "android.support.v4.media.session.IMediaControllerCallback"

const controllerCallbackInterface = "IMediaControllerCallback"

// Коды транзакций IMediaControllerCallback. Все вызовы односторонние.
const (
	transactionOnEvent                     = binder.FirstCallTransaction + 0
	transactionOnSessionDestroyed          = binder.FirstCallTransaction + 1
	transactionOnPlaybackStateChanged      = binder.FirstCallTransaction + 2
	transactionOnMetadataChanged           = binder.FirstCallTransaction + 3
	transactionOnQueueChanged              = binder.FirstCallTransaction + 4
	transactionOnQueueTitleChanged         = binder.FirstCallTransaction + 5
	transactionOnExtrasChanged             = binder.FirstCallTransaction + 6
	transactionOnVolumeInfoChanged         = binder.FirstCallTransaction + 7
	transactionOnRepeatModeChanged         = binder.FirstCallTransaction + 8
	transactionOnShuffleModeChangedRemoved = binder.FirstCallTransaction + 9
	transactionOnCaptioningEnabledChanged  = binder.FirstCallTransaction + 10
	transactionOnShuffleModeChanged        = binder.FirstCallTransaction + 11
	transactionOnSessionReady              = binder.FirstCallTransaction + 12
)

var controllerCallbackMethods = map[uint32]string{
	transactionOnEvent:                     "onEvent",
	transactionOnSessionDestroyed:          "onSessionDestroyed",
	transactionOnPlaybackStateChanged:      "onPlaybackStateChanged",
	transactionOnMetadataChanged:           "onMetadataChanged",
	transactionOnQueueChanged:              "onQueueChanged",
	transactionOnQueueTitleChanged:         "onQueueTitleChanged",
	transactionOnExtrasChanged:             "onExtrasChanged",
	transactionOnVolumeInfoChanged:         "onVolumeInfoChanged",
	transactionOnRepeatModeChanged:         "onRepeatModeChanged",
	transactionOnShuffleModeChangedRemoved: "onShuffleModeChangedRemoved",
	transactionOnCaptioningEnabledChanged:  "onCaptioningEnabledChanged",
	transactionOnShuffleModeChanged:        "onShuffleModeChanged",
	transactionOnSessionReady:              "onSessionReady",
}

// MediaControllerCallback события сессии, которые получает контроллер.
// Вызовы односторонние: прокси не ждет их выполнения.
type MediaControllerCallback interface {
	OnEvent(ctx context.Context, event string, extras *binder.Bundle) error
	OnSessionDestroyed(ctx context.Context) error
	OnPlaybackStateChanged(ctx context.Context, state *media.PlaybackState) error
	OnMetadataChanged(ctx context.Context, metadata *media.Metadata) error
	OnQueueChanged(ctx context.Context, queue []*media.QueueItem) error
	OnQueueTitleChanged(ctx context.Context, title string) error
	OnExtrasChanged(ctx context.Context, extras *binder.Bundle) error
	OnVolumeInfoChanged(ctx context.Context, info *media.VolumeInfo) error
	OnRepeatModeChanged(ctx context.Context, repeatMode int) error
	OnShuffleModeChangedRemoved(ctx context.Context, enabled bool) error
	OnCaptioningEnabledChanged(ctx context.Context, enabled bool) error
	OnShuffleModeChanged(ctx context.Context, shuffleMode int) error
	OnSessionReady(ctx context.Context) error
}

// IMediaControllerCallback callback контроллера, доступный через binder
type IMediaControllerCallback interface {
	binder.IInterface
	MediaControllerCallback
}

var controllerCallbackDefault binder.DefaultImpl[MediaControllerCallback]

// SetMediaControllerCallbackDefaultImpl устанавливает запасную реализацию для всех прокси процесса
func SetMediaControllerCallbackDefaultImpl(impl MediaControllerCallback) (bool, error) {
	return controllerCallbackDefault.Set(impl)
}

// MediaControllerCallbackDefaultImpl возвращает запасную реализацию или nil
func MediaControllerCallbackDefaultImpl() MediaControllerCallback {
	impl, _ := controllerCallbackDefault.Get()
	return impl
}

// ResetMediaControllerCallbackDefaultImpl очищает слот
func ResetMediaControllerCallbackDefaultImpl() {
	controllerCallbackDefault.Reset()
}

// AsMediaControllerCallback возвращает локальную реализацию или прокси
func AsMediaControllerCallback(b binder.IBinder, opts ...ProxyOption) IMediaControllerCallback {
	if b == nil {
		return nil
	}
	if local, ok := b.QueryLocalInterface(MediaControllerCallbackDescriptor).(IMediaControllerCallback); ok {
		return local
	}
	return NewMediaControllerCallbackProxy(b, opts...)
}

// MediaControllerCallbackStub принимает события сессии
type MediaControllerCallbackStub struct {
	MediaControllerCallback
	binder *binder.Binder
}

var _ IMediaControllerCallback = (*MediaControllerCallbackStub)(nil)

// NewMediaControllerCallbackStub создает binder процесса proc, обслуживающий impl
func NewMediaControllerCallbackStub(proc *binder.Process, impl MediaControllerCallback) *MediaControllerCallbackStub {
	s := &MediaControllerCallbackStub{MediaControllerCallback: impl}
	s.binder = binder.NewBinder(proc, MediaControllerCallbackDescriptor, s.onTransact)
	s.binder.AttachInterface(s)
	return s
}

func (s *MediaControllerCallbackStub) AsBinder() binder.IBinder {
	return s.binder
}

// Binder возвращает локальный binder stub
func (s *MediaControllerCallbackStub) Binder() *binder.Binder {
	return s.binder
}

func (s *MediaControllerCallbackStub) onTransact(ctx context.Context, code uint32, data, reply *binder.Parcel, flags uint32) (bool, error) {
	if code == binder.InterfaceTransaction {
		if reply != nil {
			reply.WriteString(MediaControllerCallbackDescriptor)
		}
		return true, nil
	}
	if _, known := controllerCallbackMethods[code]; !known {
		return false, nil
	}
	if err := data.EnforceInterface(MediaControllerCallbackDescriptor); err != nil {
		return true, err
	}

	impl := s.MediaControllerCallback
	switch code {
	case transactionOnEvent:
		event, extras := data.ReadString(), readOptionalBundle(data)
		return serve(data, reply, func() (func(*binder.Parcel), error) { return void(impl.OnEvent(ctx, event, extras)) })
	case transactionOnSessionDestroyed:
		return serve(data, reply, func() (func(*binder.Parcel), error) { return void(impl.OnSessionDestroyed(ctx)) })
	case transactionOnPlaybackStateChanged:
		state := readOptional(data, media.ReadPlaybackState)
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			return void(impl.OnPlaybackStateChanged(ctx, state))
		})
	case transactionOnMetadataChanged:
		metadata := readOptional(data, media.ReadMetadata)
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			return void(impl.OnMetadataChanged(ctx, metadata))
		})
	case transactionOnQueueChanged:
		queue := readQueue(data)
		return serve(data, reply, func() (func(*binder.Parcel), error) { return void(impl.OnQueueChanged(ctx, queue)) })
	case transactionOnQueueTitleChanged:
		title := readOptionalString(data, (*binder.Parcel).ReadCharSequence)
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			return void(impl.OnQueueTitleChanged(ctx, title))
		})
	case transactionOnExtrasChanged:
		extras := readOptionalBundle(data)
		return serve(data, reply, func() (func(*binder.Parcel), error) { return void(impl.OnExtrasChanged(ctx, extras)) })
	case transactionOnVolumeInfoChanged:
		info := readOptional(data, media.ReadVolumeInfo)
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			return void(impl.OnVolumeInfoChanged(ctx, info))
		})
	case transactionOnRepeatModeChanged:
		mode := int(data.ReadInt32())
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			return void(impl.OnRepeatModeChanged(ctx, mode))
		})
	case transactionOnShuffleModeChangedRemoved:
		enabled := data.ReadBool()
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			return void(impl.OnShuffleModeChangedRemoved(ctx, enabled))
		})
	case transactionOnCaptioningEnabledChanged:
		enabled := data.ReadBool()
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			return void(impl.OnCaptioningEnabledChanged(ctx, enabled))
		})
	case transactionOnShuffleModeChanged:
		mode := int(data.ReadInt32())
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			return void(impl.OnShuffleModeChanged(ctx, mode))
		})
	case transactionOnSessionReady:
		return serve(data, reply, func() (func(*binder.Parcel), error) { return void(impl.OnSessionReady(ctx)) })
	}
	return false, nil
}

// MediaControllerCallbackProxy отправляет события удаленному контроллеру
type MediaControllerCallbackProxy struct {
	remote binder.IBinder
	cfg    proxyConfig
}

var _ IMediaControllerCallback = (*MediaControllerCallbackProxy)(nil)

// NewMediaControllerCallbackProxy создает прокси для удаленного binder
func NewMediaControllerCallbackProxy(remote binder.IBinder, opts ...ProxyOption) *MediaControllerCallbackProxy {
	return &MediaControllerCallbackProxy{remote: remote, cfg: newProxyConfig(opts)}
}

func (p *MediaControllerCallbackProxy) AsBinder() binder.IBinder {
	return p.remote
}

func (p *MediaControllerCallbackProxy) fallback() MediaControllerCallback {
	if p.cfg.callbackFallback != nil {
		return p.cfg.callbackFallback
	}
	return MediaControllerCallbackDefaultImpl()
}

// send выполняет односторонний вызов
func (p *MediaControllerCallbackProxy) send(ctx context.Context, code uint32, write func(*binder.Parcel)) (MediaControllerCallback, error) {
	impl := p.fallback()
	t := transaction{
		iface:      controllerCallbackInterface,
		descriptor: MediaControllerCallbackDescriptor,
		code:       code,
		method:     controllerCallbackMethods[code],
		oneway:     true,
		write:      write,
	}
	res, err := t.run(ctx, p.remote, p.cfg.metrics, impl != nil)
	if res == outcomeFallback {
		return impl, nil
	}
	return nil, err
}

func (p *MediaControllerCallbackProxy) OnEvent(ctx context.Context, event string, extras *binder.Bundle) error {
	impl, err := p.send(ctx, transactionOnEvent, writeStringAndExtras(event, extras))
	if impl != nil {
		return impl.OnEvent(ctx, event, extras)
	}
	return err
}

func (p *MediaControllerCallbackProxy) OnSessionDestroyed(ctx context.Context) error {
	impl, err := p.send(ctx, transactionOnSessionDestroyed, nil)
	if impl != nil {
		return impl.OnSessionDestroyed(ctx)
	}
	return err
}

func (p *MediaControllerCallbackProxy) OnPlaybackStateChanged(ctx context.Context, state *media.PlaybackState) error {
	impl, err := p.send(ctx, transactionOnPlaybackStateChanged, func(d *binder.Parcel) { writeOptional(d, state) })
	if impl != nil {
		return impl.OnPlaybackStateChanged(ctx, state)
	}
	return err
}

func (p *MediaControllerCallbackProxy) OnMetadataChanged(ctx context.Context, metadata *media.Metadata) error {
	impl, err := p.send(ctx, transactionOnMetadataChanged, func(d *binder.Parcel) { writeOptional(d, metadata) })
	if impl != nil {
		return impl.OnMetadataChanged(ctx, metadata)
	}
	return err
}

func (p *MediaControllerCallbackProxy) OnQueueChanged(ctx context.Context, queue []*media.QueueItem) error {
	impl, err := p.send(ctx, transactionOnQueueChanged, func(d *binder.Parcel) { binder.WriteTypedList(d, queue) })
	if impl != nil {
		return impl.OnQueueChanged(ctx, queue)
	}
	return err
}

func (p *MediaControllerCallbackProxy) OnQueueTitleChanged(ctx context.Context, title string) error {
	impl, err := p.send(ctx, transactionOnQueueTitleChanged, func(d *binder.Parcel) {
		writeOptionalString(d, title, (*binder.Parcel).WriteCharSequence)
	})
	if impl != nil {
		return impl.OnQueueTitleChanged(ctx, title)
	}
	return err
}

func (p *MediaControllerCallbackProxy) OnExtrasChanged(ctx context.Context, extras *binder.Bundle) error {
	impl, err := p.send(ctx, transactionOnExtrasChanged, func(d *binder.Parcel) { writeOptionalBundle(d, extras) })
	if impl != nil {
		return impl.OnExtrasChanged(ctx, extras)
	}
	return err
}

func (p *MediaControllerCallbackProxy) OnVolumeInfoChanged(ctx context.Context, info *media.VolumeInfo) error {
	impl, err := p.send(ctx, transactionOnVolumeInfoChanged, func(d *binder.Parcel) { writeOptional(d, info) })
	if impl != nil {
		return impl.OnVolumeInfoChanged(ctx, info)
	}
	return err
}

func (p *MediaControllerCallbackProxy) OnRepeatModeChanged(ctx context.Context, repeatMode int) error {
	impl, err := p.send(ctx, transactionOnRepeatModeChanged, func(d *binder.Parcel) { d.WriteInt32(int32(repeatMode)) })
	if impl != nil {
		return impl.OnRepeatModeChanged(ctx, repeatMode)
	}
	return err
}

func (p *MediaControllerCallbackProxy) OnShuffleModeChangedRemoved(ctx context.Context, enabled bool) error {
	impl, err := p.send(ctx, transactionOnShuffleModeChangedRemoved, func(d *binder.Parcel) { d.WriteBool(enabled) })
	if impl != nil {
		return impl.OnShuffleModeChangedRemoved(ctx, enabled)
	}
	return err
}

func (p *MediaControllerCallbackProxy) OnCaptioningEnabledChanged(ctx context.Context, enabled bool) error {
	impl, err := p.send(ctx, transactionOnCaptioningEnabledChanged, func(d *binder.Parcel) { d.WriteBool(enabled) })
	if impl != nil {
		return impl.OnCaptioningEnabledChanged(ctx, enabled)
	}
	return err
}

func (p *MediaControllerCallbackProxy) OnShuffleModeChanged(ctx context.Context, shuffleMode int) error {
	impl, err := p.send(ctx, transactionOnShuffleModeChanged, func(d *binder.Parcel) { d.WriteInt32(int32(shuffleMode)) })
	if impl != nil {
		return impl.OnShuffleModeChanged(ctx, shuffleMode)
	}
	return err
}

func (p *MediaControllerCallbackProxy) OnSessionReady(ctx context.Context) error {
	impl, err := p.send(ctx, transactionOnSessionReady, nil)
	if impl != nil {
		return impl.OnSessionReady(ctx)
	}
	return err
}
