// Package browserproto описывает протокол сообщений между браузером и сервисом
// браузера: коды сообщений, версии, ключи данных и общие правила работы с
// параметрами подписки.
package browserproto

// Сообщения клиента сервису. Значения зафиксированы: их видит удаленная сторона.
const (
	ClientMsgConnect                     = 1
	ClientMsgDisconnect                  = 2
	ClientMsgAddSubscription             = 3
	ClientMsgRemoveSubscription          = 4
	ClientMsgGetMediaItem                = 5
	ClientMsgRegisterCallbackMessenger   = 6
	ClientMsgUnregisterCallbackMessenger = 7
	ClientMsgSearch                      = 8
	ClientMsgSendCustomAction            = 9
)

// Сообщения сервиса клиенту
const (
	ServiceMsgOnConnect       = 1
	ServiceMsgOnConnectFailed = 2
	ServiceMsgOnLoadChildren  = 3
)

// Версии протокола. Версия клиента передается в Arg1 каждого запроса и в
// подсказках корня, версия сервиса в дополнительных данных корня.
const (
	ClientVersion1       = 1
	ClientVersionCurrent = ClientVersion1

	ServiceVersion1       = 1
	ServiceVersion2       = 2
	ServiceVersionCurrent = ServiceVersion2
)

// Ключи Bundle данных сообщения
const (
	DataCallbackToken                = "data_callback_token"
	DataCallingUID                   = "data_calling_uid"
	DataCallingPID                   = "data_calling_pid"
	DataMediaItemID                  = "data_media_item_id"
	DataMediaItemList                = "data_media_item_list"
	DataMediaSessionToken            = "data_media_session_token"
	DataOptions                      = "data_options"
	DataNotifyChildrenChangedOptions = "data_notify_children_changed_options"
	DataPackageName                  = "data_package_name"
	DataResultReceiver               = "data_result_receiver"
	DataRootHints                    = "data_root_hints"
	DataSearchExtras                 = "data_search_extras"
	DataSearchQuery                  = "data_search_query"
	DataCustomAction                 = "data_custom_action"
	DataCustomActionExtras           = "data_custom_action_extras"
)

// Ключи подсказок и дополнительных данных корня
const (
	ExtraClientVersion   = "extra_client_version"
	ExtraServiceVersion  = "extra_service_version"
	ExtraMessengerBinder = "extra_messenger"
	ExtraSessionBinder   = "extra_session_binder"
	ExtraCallingPID      = "extra_calling_pid"
)

// Параметры страницы в options подписки
const (
	ExtraPage     = "android.media.browse.extra.PAGE"
	ExtraPageSize = "android.media.browse.extra.PAGE_SIZE"
)

// Коды результата одноразовых запросов (getItem, search, custom action)
const (
	ResultError          = -1
	ResultOK             = 0
	ResultProgressUpdate = 1
)

// Ключи ответа одноразовых запросов
const (
	KeyMediaItem     = "media_item"
	KeySearchResults = "search_results"
)

// Предопределенные пользовательские действия браузера
const (
	CustomActionDownload             = "android.support.v4.media.action.DOWNLOAD"
	CustomActionRemoveDownloadedFile = "android.support.v4.media.action.REMOVE_DOWNLOADED_FILE"
)

var clientMsgNames = map[int]string{
	ClientMsgConnect:                     "connect",
	ClientMsgDisconnect:                  "disconnect",
	ClientMsgAddSubscription:             "add_subscription",
	ClientMsgRemoveSubscription:          "remove_subscription",
	ClientMsgGetMediaItem:                "get_media_item",
	ClientMsgRegisterCallbackMessenger:   "register_callback_messenger",
	ClientMsgUnregisterCallbackMessenger: "unregister_callback_messenger",
	ClientMsgSearch:                      "search",
	ClientMsgSendCustomAction:            "send_custom_action",
}

var serviceMsgNames = map[int]string{
	ServiceMsgOnConnect:       "on_connect",
	ServiceMsgOnConnectFailed: "on_connect_failed",
	ServiceMsgOnLoadChildren:  "on_load_children",
}

// ClientMsgName имя сообщения клиента для логов и метрик
func ClientMsgName(what int) string {
	if name, ok := clientMsgNames[what]; ok {
		return name
	}
	return "unknown"
}

// ServiceMsgName имя сообщения сервиса для логов и метрик
func ServiceMsgName(what int) string {
	if name, ok := serviceMsgNames[what]; ok {
		return name
	}
	return "unknown"
}
