package session

// Флаги сессии
const (
	FlagHandlesMediaButtons      int64 = 1 << 0
	FlagHandlesTransportControls int64 = 1 << 1
	FlagHandlesQueueCommands     int64 = 1 << 2
)

// Зарезервированные команды. Ответ на CommandGetExtraBinder содержит
// KeyExtraBinder и, если есть, KeySession2Token.
const (
	CommandGetExtraBinder    = "android.support.v4.media.session.command.GET_EXTRA_BINDER"
	CommandAddQueueItem      = "android.support.v4.media.session.command.ADD_QUEUE_ITEM"
	CommandAddQueueItemAt    = "android.support.v4.media.session.command.ADD_QUEUE_ITEM_AT"
	CommandRemoveQueueItem   = "android.support.v4.media.session.command.REMOVE_QUEUE_ITEM"
	CommandRemoveQueueItemAt = "android.support.v4.media.session.command.REMOVE_QUEUE_ITEM_AT"

	CommandArgumentMediaDescription = "android.support.v4.media.session.command.ARGUMENT_MEDIA_DESCRIPTION"
	CommandArgumentIndex            = "android.support.v4.media.session.command.ARGUMENT_INDEX"
)

// Ключи Bundle токена
const (
	KeyToken         = "android.support.v4.media.session.TOKEN"
	KeyExtraBinder   = "android.support.v4.media.session.EXTRA_BINDER"
	KeySession2Token = "android.support.v4.media.session.SESSION_TOKEN2"
)

// Пользовательские действия, которыми старые ревизии платформы передают
// операции, отсутствующие в нативных TransportControls.
const (
	ActionPlayFromURI          = "android.support.v4.media.session.action.PLAY_FROM_URI"
	ActionPrepare              = "android.support.v4.media.session.action.PREPARE"
	ActionPrepareFromMediaID   = "android.support.v4.media.session.action.PREPARE_FROM_MEDIA_ID"
	ActionPrepareFromSearch    = "android.support.v4.media.session.action.PREPARE_FROM_SEARCH"
	ActionPrepareFromURI       = "android.support.v4.media.session.action.PREPARE_FROM_URI"
	ActionSetCaptioningEnabled = "android.support.v4.media.session.action.SET_CAPTIONING_ENABLED"
	ActionSetRepeatMode        = "android.support.v4.media.session.action.SET_REPEAT_MODE"
	ActionSetShuffleMode       = "android.support.v4.media.session.action.SET_SHUFFLE_MODE"
	ActionSetRating            = "android.support.v4.media.session.action.SET_RATING"
	ActionSetPlaybackSpeed     = "android.support.v4.media.session.action.SET_PLAYBACK_SPEED"

	ActionArgumentMediaID           = "android.support.v4.media.session.action.ARGUMENT_MEDIA_ID"
	ActionArgumentQuery             = "android.support.v4.media.session.action.ARGUMENT_QUERY"
	ActionArgumentURI               = "android.support.v4.media.session.action.ARGUMENT_URI"
	ActionArgumentRating            = "android.support.v4.media.session.action.ARGUMENT_RATING"
	ActionArgumentPlaybackSpeed     = "android.support.v4.media.session.action.ARGUMENT_PLAYBACK_SPEED"
	ActionArgumentExtras            = "android.support.v4.media.session.action.ARGUMENT_EXTRAS"
	ActionArgumentCaptioningEnabled = "android.support.v4.media.session.action.ARGUMENT_CAPTIONING_ENABLED"
	ActionArgumentRepeatMode        = "android.support.v4.media.session.action.ARGUMENT_REPEAT_MODE"
	ActionArgumentShuffleMode       = "android.support.v4.media.session.action.ARGUMENT_SHUFFLE_MODE"
)

// Предопределенные действия над атрибутами элемента. Для них обязателен
// аргумент ArgumentMediaAttribute.
const (
	ActionFollow              = "android.support.v4.media.session.action.FOLLOW"
	ActionUnfollow            = "android.support.v4.media.session.action.UNFOLLOW"
	ActionSkipAd              = "android.support.v4.media.session.action.SKIP_AD"
	ActionFlagAsInappropriate = "android.support.v4.media.session.action.FLAG_AS_INAPPROPRIATE"

	ArgumentMediaAttribute      = "android.support.v4.media.session.ARGUMENT_MEDIA_ATTRIBUTE"
	ArgumentMediaAttributeValue = "android.support.v4.media.session.ARGUMENT_MEDIA_ATTRIBUTE_VALUE"
)

// Значения ArgumentMediaAttribute
const (
	MediaAttributeArtist   = 0
	MediaAttributeAlbum    = 1
	MediaAttributePlaylist = 2
)
