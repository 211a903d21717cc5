// Package trust отвечает, можно ли вызывающему процессу управлять медиа-сессиями.
package trust

import (
	"fmt"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/arzzra/media_compat/pkg/binder"
	"github.com/arzzra/media_compat/pkg/platform"
)

const (
	// LegacyController пакет, под которым регистрируются контроллеры без известного пакета
	LegacyController = "android.media.session.MediaController"

	// UnknownPID pid неизвестен
	UnknownPID = -1
	// UnknownUID uid неизвестен
	UnknownUID = -1
)

// RemoteUserInfo идентичность удаленного контроллера
type RemoteUserInfo struct {
	PackageName string
	PID         int
	UID         int
}

// NewRemoteUserInfo проверяет пакет и создает RemoteUserInfo
func NewRemoteUserInfo(pkg string, pid, uid int) (RemoteUserInfo, error) {
	if pkg == "" {
		return RemoteUserInfo{}, errors.Wrap(binder.ErrIllegalArgument, "packageName should be nonempty")
	}
	return RemoteUserInfo{PackageName: pkg, PID: pid, UID: uid}, nil
}

// FromIdentity строит RemoteUserInfo из идентичности вызывающего транзакции
func FromIdentity(pkg string, id binder.Identity) RemoteUserInfo {
	return RemoteUserInfo{PackageName: pkg, PID: id.PID, UID: id.UID}
}

// Equal сравнивает пакет и uid; pid учитывается, только если он известен у обоих
func (r RemoteUserInfo) Equal(other RemoteUserInfo) bool {
	if r.PID < 0 || other.PID < 0 {
		return r.PackageName == other.PackageName && r.UID == other.UID
	}
	return r.PackageName == other.PackageName && r.PID == other.PID && r.UID == other.UID
}

func (r RemoteUserInfo) String() string {
	return fmt.Sprintf("RemoteUserInfo{package=%s, pid=%d, uid=%d}", r.PackageName, r.PID, r.UID)
}

// Manager проверяет доверие к контроллерам от имени процесса сессии
type Manager struct {
	sys  *platform.System
	self *binder.Process
}

// NewManager создает менеджер процесса self
func NewManager(sys *platform.System, self *binder.Process) *Manager {
	return &Manager{sys: sys, self: self}
}

// IsTrustedForMediaControl сообщает, может ли user управлять сессиями.
// Доверены системный uid, собственный uid процесса, владельцы MEDIA_CONTENT_CONTROL
// или STATUS_BAR_SERVICE и включенные слушатели уведомлений.
func (m *Manager) IsTrustedForMediaControl(user RemoteUserInfo) bool {
	uid, ok := m.sys.PackageUID(user.PackageName)
	if !ok || uid != user.UID {
		slog.Debug("trust.Manager: package does not match uid",
			slog.String("user", user.String()))
		return false
	}
	trusted := m.permissionGranted(user, platform.PermissionStatusBarService) ||
		m.permissionGranted(user, platform.PermissionMediaContentControl) ||
		user.UID == platform.SystemUID ||
		(m.self != nil && user.UID == m.self.UID) ||
		m.sys.IsNotificationListenerEnabled(user.PackageName)
	if !trusted {
		slog.Debug("trust.Manager: caller is not trusted",
			slog.String("user", user.String()))
	}
	return trusted
}

func (m *Manager) permissionGranted(user RemoteUserInfo, permission string) bool {
	if user.PID < 0 {
		return m.sys.CheckPackagePermission(user.PackageName, permission)
	}
	return m.sys.CheckPermission(user.UID, permission)
}
