package aidl

import (
	"context"

	"github.com/arzzra/media_compat/pkg/binder"
	"github.com/arzzra/media_compat/pkg/media"
)

// MediaSessionStub принимает транзакции IMediaSession и вызывает локальную реализацию
type MediaSessionStub struct {
	MediaSession
	binder *binder.Binder
}

var _ IMediaSession = (*MediaSessionStub)(nil)

// NewMediaSessionStub создает binder процесса proc, обслуживающий impl
func NewMediaSessionStub(proc *binder.Process, impl MediaSession) *MediaSessionStub {
	s := &MediaSessionStub{MediaSession: impl}
	s.binder = binder.NewBinder(proc, MediaSessionDescriptor, s.onTransact)
	s.binder.AttachInterface(s)
	return s
}

func (s *MediaSessionStub) AsBinder() binder.IBinder {
	return s.binder
}

// Binder возвращает локальный binder stub
func (s *MediaSessionStub) Binder() *binder.Binder {
	return s.binder
}

func (s *MediaSessionStub) onTransact(ctx context.Context, code uint32, data, reply *binder.Parcel, flags uint32) (bool, error) {
	if code == binder.InterfaceTransaction {
		if reply != nil {
			reply.WriteString(MediaSessionDescriptor)
		}
		return true, nil
	}
	if _, known := mediaSessionMethods[code]; !known {
		return false, nil
	}
	if err := data.EnforceInterface(MediaSessionDescriptor); err != nil {
		return true, err
	}

	impl := s.MediaSession
	switch code {
	case transactionSendCommand:
		command := data.ReadString()
		args := readOptionalBundle(data)
		cb := readResultReceiver(data)
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			return void(impl.SendCommand(ctx, command, args, cb))
		})
	case transactionSendMediaButton:
		ev := readOptional(data, media.ReadKeyEvent)
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			handled, err := impl.SendMediaButton(ctx, ev)
			return returns(handled, err, (*binder.Parcel).WriteBool)
		})
	case transactionRegisterCallbackListener:
		cb := AsMediaControllerCallback(data.ReadStrongBinder())
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			return void(impl.RegisterCallbackListener(ctx, cb))
		})
	case transactionUnregisterCallbackListener:
		cb := AsMediaControllerCallback(data.ReadStrongBinder())
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			return void(impl.UnregisterCallbackListener(ctx, cb))
		})
	case transactionIsTransportControlEnabled:
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			enabled, err := impl.IsTransportControlEnabled(ctx)
			return returns(enabled, err, (*binder.Parcel).WriteBool)
		})
	case transactionGetPackageName:
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			pkg, err := impl.GetPackageName(ctx)
			return returns(pkg, err, (*binder.Parcel).WriteString)
		})
	case transactionGetTag:
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			tag, err := impl.GetTag(ctx)
			return returns(tag, err, (*binder.Parcel).WriteString)
		})
	case transactionGetLaunchPendingIntent:
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			pi, err := impl.GetLaunchPendingIntent(ctx)
			return returns(pi, err, writeOptional[media.PendingIntent])
		})
	case transactionGetFlags:
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			flags, err := impl.GetFlags(ctx)
			return returns(flags, err, (*binder.Parcel).WriteInt64)
		})
	case transactionGetVolumeAttributes:
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			info, err := impl.GetVolumeAttributes(ctx)
			return returns(info, err, writeOptional[media.VolumeInfo])
		})
	case transactionAdjustVolume:
		direction, volumeFlags, pkg := int(data.ReadInt32()), int(data.ReadInt32()), data.ReadString()
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			return void(impl.AdjustVolume(ctx, direction, volumeFlags, pkg))
		})
	case transactionSetVolumeTo:
		value, volumeFlags, pkg := int(data.ReadInt32()), int(data.ReadInt32()), data.ReadString()
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			return void(impl.SetVolumeTo(ctx, value, volumeFlags, pkg))
		})
	case transactionPlay:
		return serve(data, reply, func() (func(*binder.Parcel), error) { return void(impl.Play(ctx)) })
	case transactionPlayFromMediaID:
		mediaID, extras := data.ReadString(), readOptionalBundle(data)
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			return void(impl.PlayFromMediaID(ctx, mediaID, extras))
		})
	case transactionPlayFromSearch:
		query, extras := data.ReadString(), readOptionalBundle(data)
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			return void(impl.PlayFromSearch(ctx, query, extras))
		})
	case transactionPlayFromURI:
		uri := readOptionalString(data, (*binder.Parcel).ReadString)
		extras := readOptionalBundle(data)
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			return void(impl.PlayFromURI(ctx, uri, extras))
		})
	case transactionSkipToQueueItem:
		id := data.ReadInt64()
		return serve(data, reply, func() (func(*binder.Parcel), error) { return void(impl.SkipToQueueItem(ctx, id)) })
	case transactionPause:
		return serve(data, reply, func() (func(*binder.Parcel), error) { return void(impl.Pause(ctx)) })
	case transactionStop:
		return serve(data, reply, func() (func(*binder.Parcel), error) { return void(impl.Stop(ctx)) })
	case transactionNext:
		return serve(data, reply, func() (func(*binder.Parcel), error) { return void(impl.Next(ctx)) })
	case transactionPrevious:
		return serve(data, reply, func() (func(*binder.Parcel), error) { return void(impl.Previous(ctx)) })
	case transactionFastForward:
		return serve(data, reply, func() (func(*binder.Parcel), error) { return void(impl.FastForward(ctx)) })
	case transactionRewind:
		return serve(data, reply, func() (func(*binder.Parcel), error) { return void(impl.Rewind(ctx)) })
	case transactionSeekTo:
		pos := data.ReadInt64()
		return serve(data, reply, func() (func(*binder.Parcel), error) { return void(impl.SeekTo(ctx, pos)) })
	case transactionRate:
		rating := readOptional(data, media.ReadRating)
		return serve(data, reply, func() (func(*binder.Parcel), error) { return void(impl.Rate(ctx, rating)) })
	case transactionRateWithExtras:
		rating := readOptional(data, media.ReadRating)
		extras := readOptionalBundle(data)
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			return void(impl.RateWithExtras(ctx, rating, extras))
		})
	case transactionSetPlaybackSpeed:
		speed := data.ReadFloat32()
		return serve(data, reply, func() (func(*binder.Parcel), error) { return void(impl.SetPlaybackSpeed(ctx, speed)) })
	case transactionSendCustomAction:
		action, args := data.ReadString(), readOptionalBundle(data)
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			return void(impl.SendCustomAction(ctx, action, args))
		})
	case transactionGetMetadata:
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			m, err := impl.GetMetadata(ctx)
			return returns(m, err, writeOptional[media.Metadata])
		})
	case transactionGetPlaybackState:
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			state, err := impl.GetPlaybackState(ctx)
			return returns(state, err, writeOptional[media.PlaybackState])
		})
	case transactionGetQueue:
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			queue, err := impl.GetQueue(ctx)
			return returns(queue, err, binder.WriteTypedList[*media.QueueItem])
		})
	case transactionGetQueueTitle:
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			title, err := impl.GetQueueTitle(ctx)
			return returns(title, err, func(p *binder.Parcel, s string) {
				writeOptionalString(p, s, (*binder.Parcel).WriteCharSequence)
			})
		})
	case transactionGetExtras:
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			extras, err := impl.GetExtras(ctx)
			return returns(extras, err, writeOptionalBundle)
		})
	case transactionGetRatingType:
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			ratingType, err := impl.GetRatingType(ctx)
			return returns(ratingType, err, writeInt)
		})
	case transactionPrepare:
		return serve(data, reply, func() (func(*binder.Parcel), error) { return void(impl.Prepare(ctx)) })
	case transactionPrepareFromMediaID:
		mediaID, extras := data.ReadString(), readOptionalBundle(data)
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			return void(impl.PrepareFromMediaID(ctx, mediaID, extras))
		})
	case transactionPrepareFromSearch:
		query, extras := data.ReadString(), readOptionalBundle(data)
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			return void(impl.PrepareFromSearch(ctx, query, extras))
		})
	case transactionPrepareFromURI:
		uri := readOptionalString(data, (*binder.Parcel).ReadString)
		extras := readOptionalBundle(data)
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			return void(impl.PrepareFromURI(ctx, uri, extras))
		})
	case transactionGetRepeatMode:
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			mode, err := impl.GetRepeatMode(ctx)
			return returns(mode, err, writeInt)
		})
	case transactionIsShuffleModeEnabledRemoved:
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			enabled, err := impl.IsShuffleModeEnabledRemoved(ctx)
			return returns(enabled, err, (*binder.Parcel).WriteBool)
		})
	case transactionSetRepeatMode:
		mode := int(data.ReadInt32())
		return serve(data, reply, func() (func(*binder.Parcel), error) { return void(impl.SetRepeatMode(ctx, mode)) })
	case transactionSetShuffleModeEnabledRemoved:
		enabled := data.ReadBool()
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			return void(impl.SetShuffleModeEnabledRemoved(ctx, enabled))
		})
	case transactionAddQueueItem:
		desc := readOptional(data, media.ReadMediaDescription)
		return serve(data, reply, func() (func(*binder.Parcel), error) { return void(impl.AddQueueItem(ctx, desc)) })
	case transactionAddQueueItemAt:
		desc := readOptional(data, media.ReadMediaDescription)
		index := int(data.ReadInt32())
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			return void(impl.AddQueueItemAt(ctx, desc, index))
		})
	case transactionRemoveQueueItem:
		desc := readOptional(data, media.ReadMediaDescription)
		return serve(data, reply, func() (func(*binder.Parcel), error) { return void(impl.RemoveQueueItem(ctx, desc)) })
	case transactionRemoveQueueItemAt:
		index := int(data.ReadInt32())
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			return void(impl.RemoveQueueItemAt(ctx, index))
		})
	case transactionIsCaptioningEnabled:
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			enabled, err := impl.IsCaptioningEnabled(ctx)
			return returns(enabled, err, (*binder.Parcel).WriteBool)
		})
	case transactionSetCaptioningEnabled:
		enabled := data.ReadBool()
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			return void(impl.SetCaptioningEnabled(ctx, enabled))
		})
	case transactionGetShuffleMode:
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			mode, err := impl.GetShuffleMode(ctx)
			return returns(mode, err, writeInt)
		})
	case transactionSetShuffleMode:
		mode := int(data.ReadInt32())
		return serve(data, reply, func() (func(*binder.Parcel), error) { return void(impl.SetShuffleMode(ctx, mode)) })
	case transactionGetSessionInfo:
		return serve(data, reply, func() (func(*binder.Parcel), error) {
			info, err := impl.GetSessionInfo(ctx)
			return returns(info, err, writeOptionalBundle)
		})
	}
	return false, nil
}

func writeInt(p *binder.Parcel, v int) {
	p.WriteInt32(int32(v))
}
