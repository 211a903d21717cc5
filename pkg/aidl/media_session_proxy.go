package aidl

import (
	"context"

	"github.com/arzzra/media_compat/pkg/binder"
	"github.com/arzzra/media_compat/pkg/looper"
	"github.com/arzzra/media_compat/pkg/media"
)

// MediaSessionProxy кодирует вызовы IMediaSession в транзакции удаленного binder
type MediaSessionProxy struct {
	remote binder.IBinder
	cfg    proxyConfig
}

var _ IMediaSession = (*MediaSessionProxy)(nil)

// NewMediaSessionProxy создает прокси для удаленного binder
func NewMediaSessionProxy(remote binder.IBinder, opts ...ProxyOption) *MediaSessionProxy {
	return &MediaSessionProxy{remote: remote, cfg: newProxyConfig(opts)}
}

func (p *MediaSessionProxy) AsBinder() binder.IBinder {
	return p.remote
}

// fallback возвращает реализацию для случая отказа механизма транзакций
func (p *MediaSessionProxy) fallback() MediaSession {
	if p.cfg.sessionFallback != nil {
		return p.cfg.sessionFallback
	}
	return MediaSessionDefaultImpl()
}

// call выполняет двусторонний вызов. Если возвращена реализация, вызов нужно
// повторить на ней: механизм транзакций отказал.
func (p *MediaSessionProxy) call(ctx context.Context, code uint32, write, read func(*binder.Parcel)) (MediaSession, error) {
	impl := p.fallback()
	t := transaction{
		iface:      mediaSessionInterface,
		descriptor: MediaSessionDescriptor,
		code:       code,
		method:     mediaSessionMethods[code],
		write:      write,
		read:       read,
	}
	res, err := t.run(ctx, p.remote, p.cfg.metrics, impl != nil)
	if res == outcomeFallback {
		return impl, nil
	}
	return nil, err
}

func (p *MediaSessionProxy) SendCommand(ctx context.Context, command string, args *binder.Bundle, cb *looper.ResultReceiver) error {
	impl, err := p.call(ctx, transactionSendCommand, func(d *binder.Parcel) {
		d.WriteString(command)
		writeOptionalBundle(d, args)
		writeResultReceiver(d, cb)
	}, nil)
	if impl != nil {
		return impl.SendCommand(ctx, command, args, cb)
	}
	return err
}

func (p *MediaSessionProxy) SendMediaButton(ctx context.Context, mediaButton *media.KeyEvent) (bool, error) {
	var handled bool
	impl, err := p.call(ctx, transactionSendMediaButton,
		func(d *binder.Parcel) { writeOptional(d, mediaButton) },
		func(r *binder.Parcel) { handled = r.ReadBool() })
	if impl != nil {
		return impl.SendMediaButton(ctx, mediaButton)
	}
	return handled, err
}

func (p *MediaSessionProxy) RegisterCallbackListener(ctx context.Context, cb IMediaControllerCallback) error {
	impl, err := p.call(ctx, transactionRegisterCallbackListener, func(d *binder.Parcel) { writeCallback(d, cb) }, nil)
	if impl != nil {
		return impl.RegisterCallbackListener(ctx, cb)
	}
	return err
}

func (p *MediaSessionProxy) UnregisterCallbackListener(ctx context.Context, cb IMediaControllerCallback) error {
	impl, err := p.call(ctx, transactionUnregisterCallbackListener, func(d *binder.Parcel) { writeCallback(d, cb) }, nil)
	if impl != nil {
		return impl.UnregisterCallbackListener(ctx, cb)
	}
	return err
}

func (p *MediaSessionProxy) IsTransportControlEnabled(ctx context.Context) (bool, error) {
	var enabled bool
	impl, err := p.call(ctx, transactionIsTransportControlEnabled, nil, func(r *binder.Parcel) { enabled = r.ReadBool() })
	if impl != nil {
		return impl.IsTransportControlEnabled(ctx)
	}
	return enabled, err
}

func (p *MediaSessionProxy) GetPackageName(ctx context.Context) (string, error) {
	var pkg string
	impl, err := p.call(ctx, transactionGetPackageName, nil, func(r *binder.Parcel) { pkg = r.ReadString() })
	if impl != nil {
		return impl.GetPackageName(ctx)
	}
	return pkg, err
}

func (p *MediaSessionProxy) GetTag(ctx context.Context) (string, error) {
	var tag string
	impl, err := p.call(ctx, transactionGetTag, nil, func(r *binder.Parcel) { tag = r.ReadString() })
	if impl != nil {
		return impl.GetTag(ctx)
	}
	return tag, err
}

func (p *MediaSessionProxy) GetLaunchPendingIntent(ctx context.Context) (*media.PendingIntent, error) {
	var pi *media.PendingIntent
	impl, err := p.call(ctx, transactionGetLaunchPendingIntent, nil, func(r *binder.Parcel) {
		pi = readOptional(r, media.ReadPendingIntent)
	})
	if impl != nil {
		return impl.GetLaunchPendingIntent(ctx)
	}
	return pi, err
}

func (p *MediaSessionProxy) GetFlags(ctx context.Context) (int64, error) {
	var flags int64
	impl, err := p.call(ctx, transactionGetFlags, nil, func(r *binder.Parcel) { flags = r.ReadInt64() })
	if impl != nil {
		return impl.GetFlags(ctx)
	}
	return flags, err
}

func (p *MediaSessionProxy) GetVolumeAttributes(ctx context.Context) (*media.VolumeInfo, error) {
	var info *media.VolumeInfo
	impl, err := p.call(ctx, transactionGetVolumeAttributes, nil, func(r *binder.Parcel) {
		info = readOptional(r, media.ReadVolumeInfo)
	})
	if impl != nil {
		return impl.GetVolumeAttributes(ctx)
	}
	return info, err
}

func (p *MediaSessionProxy) AdjustVolume(ctx context.Context, direction, flags int, packageName string) error {
	impl, err := p.call(ctx, transactionAdjustVolume, func(d *binder.Parcel) {
		d.WriteInt32(int32(direction))
		d.WriteInt32(int32(flags))
		d.WriteString(packageName)
	}, nil)
	if impl != nil {
		return impl.AdjustVolume(ctx, direction, flags, packageName)
	}
	return err
}

func (p *MediaSessionProxy) SetVolumeTo(ctx context.Context, value, flags int, packageName string) error {
	impl, err := p.call(ctx, transactionSetVolumeTo, func(d *binder.Parcel) {
		d.WriteInt32(int32(value))
		d.WriteInt32(int32(flags))
		d.WriteString(packageName)
	}, nil)
	if impl != nil {
		return impl.SetVolumeTo(ctx, value, flags, packageName)
	}
	return err
}

func (p *MediaSessionProxy) GetMetadata(ctx context.Context) (*media.Metadata, error) {
	var m *media.Metadata
	impl, err := p.call(ctx, transactionGetMetadata, nil, func(r *binder.Parcel) { m = readOptional(r, media.ReadMetadata) })
	if impl != nil {
		return impl.GetMetadata(ctx)
	}
	return m, err
}

func (p *MediaSessionProxy) GetPlaybackState(ctx context.Context) (*media.PlaybackState, error) {
	var state *media.PlaybackState
	impl, err := p.call(ctx, transactionGetPlaybackState, nil, func(r *binder.Parcel) {
		state = readOptional(r, media.ReadPlaybackState)
	})
	if impl != nil {
		return impl.GetPlaybackState(ctx)
	}
	return state, err
}

func (p *MediaSessionProxy) GetQueue(ctx context.Context) ([]*media.QueueItem, error) {
	var queue []*media.QueueItem
	impl, err := p.call(ctx, transactionGetQueue, nil, func(r *binder.Parcel) { queue = readQueue(r) })
	if impl != nil {
		return impl.GetQueue(ctx)
	}
	return queue, err
}

func (p *MediaSessionProxy) GetQueueTitle(ctx context.Context) (string, error) {
	var title string
	impl, err := p.call(ctx, transactionGetQueueTitle, nil, func(r *binder.Parcel) {
		title = readOptionalString(r, (*binder.Parcel).ReadCharSequence)
	})
	if impl != nil {
		return impl.GetQueueTitle(ctx)
	}
	return title, err
}

func (p *MediaSessionProxy) GetExtras(ctx context.Context) (*binder.Bundle, error) {
	var extras *binder.Bundle
	impl, err := p.call(ctx, transactionGetExtras, nil, func(r *binder.Parcel) { extras = readOptionalBundle(r) })
	if impl != nil {
		return impl.GetExtras(ctx)
	}
	return extras, err
}

func (p *MediaSessionProxy) GetRatingType(ctx context.Context) (int, error) {
	var ratingType int
	impl, err := p.call(ctx, transactionGetRatingType, nil, func(r *binder.Parcel) { ratingType = int(r.ReadInt32()) })
	if impl != nil {
		return impl.GetRatingType(ctx)
	}
	return ratingType, err
}

func (p *MediaSessionProxy) IsCaptioningEnabled(ctx context.Context) (bool, error) {
	var enabled bool
	impl, err := p.call(ctx, transactionIsCaptioningEnabled, nil, func(r *binder.Parcel) { enabled = r.ReadBool() })
	if impl != nil {
		return impl.IsCaptioningEnabled(ctx)
	}
	return enabled, err
}

func (p *MediaSessionProxy) GetRepeatMode(ctx context.Context) (int, error) {
	var mode int
	impl, err := p.call(ctx, transactionGetRepeatMode, nil, func(r *binder.Parcel) { mode = int(r.ReadInt32()) })
	if impl != nil {
		return impl.GetRepeatMode(ctx)
	}
	return mode, err
}

func (p *MediaSessionProxy) IsShuffleModeEnabledRemoved(ctx context.Context) (bool, error) {
	var enabled bool
	impl, err := p.call(ctx, transactionIsShuffleModeEnabledRemoved, nil, func(r *binder.Parcel) { enabled = r.ReadBool() })
	if impl != nil {
		return impl.IsShuffleModeEnabledRemoved(ctx)
	}
	return enabled, err
}

func (p *MediaSessionProxy) GetShuffleMode(ctx context.Context) (int, error) {
	var mode int
	impl, err := p.call(ctx, transactionGetShuffleMode, nil, func(r *binder.Parcel) { mode = int(r.ReadInt32()) })
	if impl != nil {
		return impl.GetShuffleMode(ctx)
	}
	return mode, err
}

func (p *MediaSessionProxy) AddQueueItem(ctx context.Context, description *media.MediaDescription) error {
	impl, err := p.call(ctx, transactionAddQueueItem, func(d *binder.Parcel) { writeOptional(d, description) }, nil)
	if impl != nil {
		return impl.AddQueueItem(ctx, description)
	}
	return err
}

func (p *MediaSessionProxy) AddQueueItemAt(ctx context.Context, description *media.MediaDescription, index int) error {
	impl, err := p.call(ctx, transactionAddQueueItemAt, func(d *binder.Parcel) {
		writeOptional(d, description)
		d.WriteInt32(int32(index))
	}, nil)
	if impl != nil {
		return impl.AddQueueItemAt(ctx, description, index)
	}
	return err
}

func (p *MediaSessionProxy) RemoveQueueItem(ctx context.Context, description *media.MediaDescription) error {
	impl, err := p.call(ctx, transactionRemoveQueueItem, func(d *binder.Parcel) { writeOptional(d, description) }, nil)
	if impl != nil {
		return impl.RemoveQueueItem(ctx, description)
	}
	return err
}

func (p *MediaSessionProxy) RemoveQueueItemAt(ctx context.Context, index int) error {
	impl, err := p.call(ctx, transactionRemoveQueueItemAt, func(d *binder.Parcel) { d.WriteInt32(int32(index)) }, nil)
	if impl != nil {
		return impl.RemoveQueueItemAt(ctx, index)
	}
	return err
}

func (p *MediaSessionProxy) GetSessionInfo(ctx context.Context) (*binder.Bundle, error) {
	var info *binder.Bundle
	impl, err := p.call(ctx, transactionGetSessionInfo, nil, func(r *binder.Parcel) { info = readOptionalBundle(r) })
	if impl != nil {
		return impl.GetSessionInfo(ctx)
	}
	return info, err
}

func (p *MediaSessionProxy) Prepare(ctx context.Context) error {
	impl, err := p.call(ctx, transactionPrepare, nil, nil)
	if impl != nil {
		return impl.Prepare(ctx)
	}
	return err
}

func (p *MediaSessionProxy) PrepareFromMediaID(ctx context.Context, mediaID string, extras *binder.Bundle) error {
	impl, err := p.call(ctx, transactionPrepareFromMediaID, writeStringAndExtras(mediaID, extras), nil)
	if impl != nil {
		return impl.PrepareFromMediaID(ctx, mediaID, extras)
	}
	return err
}

func (p *MediaSessionProxy) PrepareFromSearch(ctx context.Context, query string, extras *binder.Bundle) error {
	impl, err := p.call(ctx, transactionPrepareFromSearch, writeStringAndExtras(query, extras), nil)
	if impl != nil {
		return impl.PrepareFromSearch(ctx, query, extras)
	}
	return err
}

func (p *MediaSessionProxy) PrepareFromURI(ctx context.Context, uri string, extras *binder.Bundle) error {
	impl, err := p.call(ctx, transactionPrepareFromURI, writeURIAndExtras(uri, extras), nil)
	if impl != nil {
		return impl.PrepareFromURI(ctx, uri, extras)
	}
	return err
}

func (p *MediaSessionProxy) Play(ctx context.Context) error {
	impl, err := p.call(ctx, transactionPlay, nil, nil)
	if impl != nil {
		return impl.Play(ctx)
	}
	return err
}

func (p *MediaSessionProxy) PlayFromMediaID(ctx context.Context, mediaID string, extras *binder.Bundle) error {
	impl, err := p.call(ctx, transactionPlayFromMediaID, writeStringAndExtras(mediaID, extras), nil)
	if impl != nil {
		return impl.PlayFromMediaID(ctx, mediaID, extras)
	}
	return err
}

func (p *MediaSessionProxy) PlayFromSearch(ctx context.Context, query string, extras *binder.Bundle) error {
	impl, err := p.call(ctx, transactionPlayFromSearch, writeStringAndExtras(query, extras), nil)
	if impl != nil {
		return impl.PlayFromSearch(ctx, query, extras)
	}
	return err
}

func (p *MediaSessionProxy) PlayFromURI(ctx context.Context, uri string, extras *binder.Bundle) error {
	impl, err := p.call(ctx, transactionPlayFromURI, writeURIAndExtras(uri, extras), nil)
	if impl != nil {
		return impl.PlayFromURI(ctx, uri, extras)
	}
	return err
}

func (p *MediaSessionProxy) SkipToQueueItem(ctx context.Context, id int64) error {
	impl, err := p.call(ctx, transactionSkipToQueueItem, func(d *binder.Parcel) { d.WriteInt64(id) }, nil)
	if impl != nil {
		return impl.SkipToQueueItem(ctx, id)
	}
	return err
}

func (p *MediaSessionProxy) Pause(ctx context.Context) error {
	impl, err := p.call(ctx, transactionPause, nil, nil)
	if impl != nil {
		return impl.Pause(ctx)
	}
	return err
}

func (p *MediaSessionProxy) Stop(ctx context.Context) error {
	impl, err := p.call(ctx, transactionStop, nil, nil)
	if impl != nil {
		return impl.Stop(ctx)
	}
	return err
}

func (p *MediaSessionProxy) Next(ctx context.Context) error {
	impl, err := p.call(ctx, transactionNext, nil, nil)
	if impl != nil {
		return impl.Next(ctx)
	}
	return err
}

func (p *MediaSessionProxy) Previous(ctx context.Context) error {
	impl, err := p.call(ctx, transactionPrevious, nil, nil)
	if impl != nil {
		return impl.Previous(ctx)
	}
	return err
}

func (p *MediaSessionProxy) FastForward(ctx context.Context) error {
	impl, err := p.call(ctx, transactionFastForward, nil, nil)
	if impl != nil {
		return impl.FastForward(ctx)
	}
	return err
}

func (p *MediaSessionProxy) Rewind(ctx context.Context) error {
	impl, err := p.call(ctx, transactionRewind, nil, nil)
	if impl != nil {
		return impl.Rewind(ctx)
	}
	return err
}

func (p *MediaSessionProxy) SeekTo(ctx context.Context, pos int64) error {
	impl, err := p.call(ctx, transactionSeekTo, func(d *binder.Parcel) { d.WriteInt64(pos) }, nil)
	if impl != nil {
		return impl.SeekTo(ctx, pos)
	}
	return err
}

func (p *MediaSessionProxy) Rate(ctx context.Context, rating *media.Rating) error {
	impl, err := p.call(ctx, transactionRate, func(d *binder.Parcel) { writeOptional(d, rating) }, nil)
	if impl != nil {
		return impl.Rate(ctx, rating)
	}
	return err
}

func (p *MediaSessionProxy) RateWithExtras(ctx context.Context, rating *media.Rating, extras *binder.Bundle) error {
	impl, err := p.call(ctx, transactionRateWithExtras, func(d *binder.Parcel) {
		writeOptional(d, rating)
		writeOptionalBundle(d, extras)
	}, nil)
	if impl != nil {
		return impl.RateWithExtras(ctx, rating, extras)
	}
	return err
}

func (p *MediaSessionProxy) SetPlaybackSpeed(ctx context.Context, speed float32) error {
	impl, err := p.call(ctx, transactionSetPlaybackSpeed, func(d *binder.Parcel) { d.WriteFloat32(speed) }, nil)
	if impl != nil {
		return impl.SetPlaybackSpeed(ctx, speed)
	}
	return err
}

func (p *MediaSessionProxy) SetCaptioningEnabled(ctx context.Context, enabled bool) error {
	impl, err := p.call(ctx, transactionSetCaptioningEnabled, func(d *binder.Parcel) { d.WriteBool(enabled) }, nil)
	if impl != nil {
		return impl.SetCaptioningEnabled(ctx, enabled)
	}
	return err
}

func (p *MediaSessionProxy) SetRepeatMode(ctx context.Context, repeatMode int) error {
	impl, err := p.call(ctx, transactionSetRepeatMode, func(d *binder.Parcel) { d.WriteInt32(int32(repeatMode)) }, nil)
	if impl != nil {
		return impl.SetRepeatMode(ctx, repeatMode)
	}
	return err
}

func (p *MediaSessionProxy) SetShuffleModeEnabledRemoved(ctx context.Context, enabled bool) error {
	impl, err := p.call(ctx, transactionSetShuffleModeEnabledRemoved, func(d *binder.Parcel) { d.WriteBool(enabled) }, nil)
	if impl != nil {
		return impl.SetShuffleModeEnabledRemoved(ctx, enabled)
	}
	return err
}

func (p *MediaSessionProxy) SetShuffleMode(ctx context.Context, shuffleMode int) error {
	impl, err := p.call(ctx, transactionSetShuffleMode, func(d *binder.Parcel) { d.WriteInt32(int32(shuffleMode)) }, nil)
	if impl != nil {
		return impl.SetShuffleMode(ctx, shuffleMode)
	}
	return err
}

func (p *MediaSessionProxy) SendCustomAction(ctx context.Context, action string, args *binder.Bundle) error {
	impl, err := p.call(ctx, transactionSendCustomAction, writeStringAndExtras(action, args), nil)
	if impl != nil {
		return impl.SendCustomAction(ctx, action, args)
	}
	return err
}

func writeStringAndExtras(s string, extras *binder.Bundle) func(*binder.Parcel) {
	return func(d *binder.Parcel) {
		d.WriteString(s)
		writeOptionalBundle(d, extras)
	}
}

func writeURIAndExtras(uri string, extras *binder.Bundle) func(*binder.Parcel) {
	return func(d *binder.Parcel) {
		writeOptionalString(d, uri, (*binder.Parcel).WriteString)
		writeOptionalBundle(d, extras)
	}
}

func writeCallback(d *binder.Parcel, cb IMediaControllerCallback) {
	if cb == nil {
		d.WriteStrongBinder(nil)
		return
	}
	d.WriteStrongBinder(cb.AsBinder())
}
