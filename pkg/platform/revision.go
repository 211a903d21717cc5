// Package platform эмулирует нативный медиа-стек платформы заданной ревизии:
// процессы, разрешения, нативные сессии, контроллеры и сервисы браузера.
package platform

import "fmt"

// Revision ревизия API платформы
type Revision int

const (
	RevisionLollipop    Revision = 21
	RevisionMarshmallow Revision = 23
	RevisionNougat      Revision = 24
	RevisionOreo        Revision = 26
	RevisionOreoMR1     Revision = 27
	RevisionPie         Revision = 28
	RevisionQ           Revision = 29
	RevisionR           Revision = 30
)

func (r Revision) String() string {
	return fmt.Sprintf("API %d", int(r))
}

// Capabilities набор возможностей нативного стека.
// Выбор реализации делается только по этой таблице, без проб во время выполнения.
type Capabilities struct {
	// NativeItemFetch нативный MediaBrowser.getItem
	NativeItemFetch bool
	// NativePlayFromURI нативный playFromUri в TransportControls
	NativePlayFromURI bool
	// NativePrepare нативные prepare* в TransportControls
	NativePrepare bool
	// CallingPackage платформа сообщает пакет вызывающего контроллера
	CallingPackage bool
	// NativeSubscribeOptions нативная подписка с параметрами страниц
	NativeSubscribeOptions bool
	// MediaButtonHandledNatively двойное нажатие обрабатывается платформой
	MediaButtonHandledNatively bool
	// FrameworkControllerInfo платформа отдает RemoteUserInfo текущего контроллера
	FrameworkControllerInfo bool
	// NativeSessionInfo нативный MediaController.getSessionInfo
	NativeSessionInfo bool
	// NativePlaybackSpeed нативный setPlaybackSpeed
	NativePlaybackSpeed bool
}

// CapabilitiesFor возвращает таблицу возможностей ревизии
func CapabilitiesFor(rev Revision) Capabilities {
	return Capabilities{
		NativeItemFetch:            rev >= RevisionMarshmallow,
		NativePlayFromURI:          rev >= RevisionMarshmallow,
		NativePrepare:              rev >= RevisionNougat,
		CallingPackage:             rev >= RevisionNougat,
		NativeSubscribeOptions:     rev >= RevisionOreo,
		MediaButtonHandledNatively: rev >= RevisionOreoMR1,
		FrameworkControllerInfo:    rev >= RevisionPie,
		NativeSessionInfo:          rev >= RevisionQ,
		NativePlaybackSpeed:        rev >= RevisionQ,
	}
}
