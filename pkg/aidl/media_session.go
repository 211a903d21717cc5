package aidl

import (
	"context"

	"github.com/arzzra/media_compat/pkg/binder"
	"github.com/arzzra/media_compat/pkg/looper"
	"github.com/arzzra/media_compat/pkg/media"
)

// MediaSessionDescriptor дескриптор интерфейса IMediaSession
const MediaSessionDescriptor = "android.support.v4.media.session.IMediaSession"

const mediaSessionInterface = "IMediaSession"

// Коды транзакций IMediaSession. Все вызовы двусторонние.
const (
	transactionSendCommand                  = binder.FirstCallTransaction + 0
	transactionSendMediaButton              = binder.FirstCallTransaction + 1
	transactionRegisterCallbackListener     = binder.FirstCallTransaction + 2
	transactionUnregisterCallbackListener   = binder.FirstCallTransaction + 3
	transactionIsTransportControlEnabled    = binder.FirstCallTransaction + 4
	transactionGetPackageName               = binder.FirstCallTransaction + 5
	transactionGetTag                       = binder.FirstCallTransaction + 6
	transactionGetLaunchPendingIntent       = binder.FirstCallTransaction + 7
	transactionGetFlags                     = binder.FirstCallTransaction + 8
	transactionGetVolumeAttributes          = binder.FirstCallTransaction + 9
	transactionAdjustVolume                 = binder.FirstCallTransaction + 10
	transactionSetVolumeTo                  = binder.FirstCallTransaction + 11
	transactionPlay                         = binder.FirstCallTransaction + 12
	transactionPlayFromMediaID              = binder.FirstCallTransaction + 13
	transactionPlayFromSearch               = binder.FirstCallTransaction + 14
	transactionPlayFromURI                  = binder.FirstCallTransaction + 15
	transactionSkipToQueueItem              = binder.FirstCallTransaction + 16
	transactionPause                        = binder.FirstCallTransaction + 17
	transactionStop                         = binder.FirstCallTransaction + 18
	transactionNext                         = binder.FirstCallTransaction + 19
	transactionPrevious                     = binder.FirstCallTransaction + 20
	transactionFastForward                  = binder.FirstCallTransaction + 21
	transactionRewind                       = binder.FirstCallTransaction + 22
	transactionSeekTo                       = binder.FirstCallTransaction + 23
	transactionRate                         = binder.FirstCallTransaction + 24
	transactionSendCustomAction             = binder.FirstCallTransaction + 25
	transactionGetMetadata                  = binder.FirstCallTransaction + 26
	transactionGetPlaybackState             = binder.FirstCallTransaction + 27
	transactionGetQueue                     = binder.FirstCallTransaction + 28
	transactionGetQueueTitle                = binder.FirstCallTransaction + 29
	transactionGetExtras                    = binder.FirstCallTransaction + 30
	transactionGetRatingType                = binder.FirstCallTransaction + 31
	transactionPrepare                      = binder.FirstCallTransaction + 32
	transactionPrepareFromMediaID           = binder.FirstCallTransaction + 33
	transactionPrepareFromSearch            = binder.FirstCallTransaction + 34
	transactionPrepareFromURI               = binder.FirstCallTransaction + 35
	transactionGetRepeatMode                = binder.FirstCallTransaction + 36
	transactionIsShuffleModeEnabledRemoved  = binder.FirstCallTransaction + 37
	transactionSetRepeatMode                = binder.FirstCallTransaction + 38
	transactionSetShuffleModeEnabledRemoved = binder.FirstCallTransaction + 39
	transactionAddQueueItem                 = binder.FirstCallTransaction + 40
	transactionAddQueueItemAt               = binder.FirstCallTransaction + 41
	transactionRemoveQueueItem              = binder.FirstCallTransaction + 42
	transactionRemoveQueueItemAt            = binder.FirstCallTransaction + 43
	transactionIsCaptioningEnabled          = binder.FirstCallTransaction + 44
	transactionSetCaptioningEnabled         = binder.FirstCallTransaction + 45
	transactionGetShuffleMode               = binder.FirstCallTransaction + 46
	transactionSetShuffleMode               = binder.FirstCallTransaction + 47
	transactionSetPlaybackSpeed             = binder.FirstCallTransaction + 48
	transactionGetSessionInfo               = binder.FirstCallTransaction + 49
	transactionRateWithExtras               = binder.FirstCallTransaction + 50
)

// mediaSessionMethods имена методов по кодам, используются в метриках и логах
var mediaSessionMethods = map[uint32]string{
	transactionSendCommand:                  "sendCommand",
	transactionSendMediaButton:              "sendMediaButton",
	transactionRegisterCallbackListener:     "registerCallbackListener",
	transactionUnregisterCallbackListener:   "unregisterCallbackListener",
	transactionIsTransportControlEnabled:    "isTransportControlEnabled",
	transactionGetPackageName:               "getPackageName",
	transactionGetTag:                       "getTag",
	transactionGetLaunchPendingIntent:       "getLaunchPendingIntent",
	transactionGetFlags:                     "getFlags",
	transactionGetVolumeAttributes:          "getVolumeAttributes",
	transactionAdjustVolume:                 "adjustVolume",
	transactionSetVolumeTo:                  "setVolumeTo",
	transactionPlay:                         "play",
	transactionPlayFromMediaID:              "playFromMediaId",
	transactionPlayFromSearch:               "playFromSearch",
	transactionPlayFromURI:                  "playFromUri",
	transactionSkipToQueueItem:              "skipToQueueItem",
	transactionPause:                        "pause",
	transactionStop:                         "stop",
	transactionNext:                         "next",
	transactionPrevious:                     "previous",
	transactionFastForward:                  "fastForward",
	transactionRewind:                       "rewind",
	transactionSeekTo:                       "seekTo",
	transactionRate:                         "rate",
	transactionSendCustomAction:             "sendCustomAction",
	transactionGetMetadata:                  "getMetadata",
	transactionGetPlaybackState:             "getPlaybackState",
	transactionGetQueue:                     "getQueue",
	transactionGetQueueTitle:                "getQueueTitle",
	transactionGetExtras:                    "getExtras",
	transactionGetRatingType:                "getRatingType",
	transactionPrepare:                      "prepare",
	transactionPrepareFromMediaID:           "prepareFromMediaId",
	transactionPrepareFromSearch:            "prepareFromSearch",
	transactionPrepareFromURI:               "prepareFromUri",
	transactionGetRepeatMode:                "getRepeatMode",
	transactionIsShuffleModeEnabledRemoved:  "isShuffleModeEnabledRemoved",
	transactionSetRepeatMode:                "setRepeatMode",
	transactionSetShuffleModeEnabledRemoved: "setShuffleModeEnabledRemoved",
	transactionAddQueueItem:                 "addQueueItem",
	transactionAddQueueItemAt:               "addQueueItemAt",
	transactionRemoveQueueItem:              "removeQueueItem",
	transactionRemoveQueueItemAt:            "removeQueueItemAt",
	transactionIsCaptioningEnabled:          "isCaptioningEnabled",
	transactionSetCaptioningEnabled:         "setCaptioningEnabled",
	transactionGetShuffleMode:               "getShuffleMode",
	transactionSetShuffleMode:               "setShuffleMode",
	transactionSetPlaybackSpeed:             "setPlaybackSpeed",
	transactionGetSessionInfo:               "getSessionInfo",
	transactionRateWithExtras:               "rateWithExtras",
}

// MediaSession методы удаленной сессии.
//
// Ошибка, которую вернула реализация, передается вызывающему как удаленное исключение.
// Ошибки механизма транзакций возвращает только прокси.
type MediaSession interface {
	SendCommand(ctx context.Context, command string, args *binder.Bundle, cb *looper.ResultReceiver) error
	SendMediaButton(ctx context.Context, mediaButton *media.KeyEvent) (bool, error)
	RegisterCallbackListener(ctx context.Context, cb IMediaControllerCallback) error
	UnregisterCallbackListener(ctx context.Context, cb IMediaControllerCallback) error
	IsTransportControlEnabled(ctx context.Context) (bool, error)
	GetPackageName(ctx context.Context) (string, error)
	GetTag(ctx context.Context) (string, error)
	GetLaunchPendingIntent(ctx context.Context) (*media.PendingIntent, error)
	GetFlags(ctx context.Context) (int64, error)
	GetVolumeAttributes(ctx context.Context) (*media.VolumeInfo, error)
	AdjustVolume(ctx context.Context, direction, flags int, packageName string) error
	SetVolumeTo(ctx context.Context, value, flags int, packageName string) error
	GetMetadata(ctx context.Context) (*media.Metadata, error)
	GetPlaybackState(ctx context.Context) (*media.PlaybackState, error)
	GetQueue(ctx context.Context) ([]*media.QueueItem, error)
	GetQueueTitle(ctx context.Context) (string, error)
	GetExtras(ctx context.Context) (*binder.Bundle, error)
	GetRatingType(ctx context.Context) (int, error)
	IsCaptioningEnabled(ctx context.Context) (bool, error)
	GetRepeatMode(ctx context.Context) (int, error)
	IsShuffleModeEnabledRemoved(ctx context.Context) (bool, error)
	GetShuffleMode(ctx context.Context) (int, error)
	AddQueueItem(ctx context.Context, description *media.MediaDescription) error
	AddQueueItemAt(ctx context.Context, description *media.MediaDescription, index int) error
	RemoveQueueItem(ctx context.Context, description *media.MediaDescription) error
	RemoveQueueItemAt(ctx context.Context, index int) error
	GetSessionInfo(ctx context.Context) (*binder.Bundle, error)

	Prepare(ctx context.Context) error
	PrepareFromMediaID(ctx context.Context, mediaID string, extras *binder.Bundle) error
	PrepareFromSearch(ctx context.Context, query string, extras *binder.Bundle) error
	PrepareFromURI(ctx context.Context, uri string, extras *binder.Bundle) error
	Play(ctx context.Context) error
	PlayFromMediaID(ctx context.Context, mediaID string, extras *binder.Bundle) error
	PlayFromSearch(ctx context.Context, query string, extras *binder.Bundle) error
	PlayFromURI(ctx context.Context, uri string, extras *binder.Bundle) error
	SkipToQueueItem(ctx context.Context, id int64) error
	Pause(ctx context.Context) error
	Stop(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	FastForward(ctx context.Context) error
	Rewind(ctx context.Context) error
	SeekTo(ctx context.Context, pos int64) error
	Rate(ctx context.Context, rating *media.Rating) error
	RateWithExtras(ctx context.Context, rating *media.Rating, extras *binder.Bundle) error
	SetPlaybackSpeed(ctx context.Context, speed float32) error
	SetCaptioningEnabled(ctx context.Context, enabled bool) error
	SetRepeatMode(ctx context.Context, repeatMode int) error
	SetShuffleModeEnabledRemoved(ctx context.Context, enabled bool) error
	SetShuffleMode(ctx context.Context, shuffleMode int) error
	SendCustomAction(ctx context.Context, action string, args *binder.Bundle) error
}

// IMediaSession сессия, доступная через binder
type IMediaSession interface {
	binder.IInterface
	MediaSession
}

var mediaSessionDefault binder.DefaultImpl[MediaSession]

// SetMediaSessionDefaultImpl устанавливает запасную реализацию для всех прокси процесса.
// Повторная установка возвращает binder.ErrDefaultImplAlreadySet, nil не устанавливается.
func SetMediaSessionDefaultImpl(impl MediaSession) (bool, error) {
	return mediaSessionDefault.Set(impl)
}

// MediaSessionDefaultImpl возвращает запасную реализацию или nil
func MediaSessionDefaultImpl() MediaSession {
	impl, _ := mediaSessionDefault.Get()
	return impl
}

// ResetMediaSessionDefaultImpl очищает слот; эквивалент завершения процесса
func ResetMediaSessionDefaultImpl() {
	mediaSessionDefault.Reset()
}

// AsMediaSession возвращает локальную реализацию, если b принадлежит этому процессу,
// иначе прокси. Для nil возвращает nil.
func AsMediaSession(b binder.IBinder, opts ...ProxyOption) IMediaSession {
	if b == nil {
		return nil
	}
	if local, ok := b.QueryLocalInterface(MediaSessionDescriptor).(IMediaSession); ok {
		return local
	}
	return NewMediaSessionProxy(b, opts...)
}
