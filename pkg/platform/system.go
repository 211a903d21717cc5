package platform

import (
	"sync"
	"time"

	"github.com/arzzra/media_compat/pkg/binder"
)

const (
	// SystemUID uid системного сервера
	SystemUID = 1000

	firstPID    = 1000
	firstAppUID = 10000
)

// Разрешения, которые проверяет менеджер доверия
const (
	PermissionMediaContentControl = "android.permission.MEDIA_CONTENT_CONTROL"
	PermissionStatusBarService    = "android.permission.STATUS_BAR_SERVICE"
)

// System эмулируемая платформа: реестр процессов и пакетов, таблица разрешений,
// включенные слушатели уведомлений и сервисы браузера.
type System struct {
	revision Revision
	caps     Capabilities
	clock    func() time.Time
	start    time.Time

	mu            sync.Mutex
	nextPID       int
	nextUID       int
	uids          map[string]int
	packagesByUID map[int]string
	perms         map[string]map[string]bool
	listeners     map[string]bool
	services      map[string]*BrowserService
}

// Option настройка System
type Option func(*System)

// WithClock задает источник времени
func WithClock(clock func() time.Time) Option {
	return func(s *System) {
		s.clock = clock
	}
}

// NewSystem создает платформу ревизии rev
func NewSystem(rev Revision, opts ...Option) *System {
	s := &System{
		revision:      rev,
		caps:          CapabilitiesFor(rev),
		clock:         time.Now,
		nextPID:       firstPID,
		nextUID:       firstAppUID,
		uids:          make(map[string]int),
		packagesByUID: make(map[int]string),
		perms:         make(map[string]map[string]bool),
		listeners:     make(map[string]bool),
		services:      make(map[string]*BrowserService),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.start = s.clock()
	return s
}

func (s *System) Revision() Revision {
	return s.revision
}

func (s *System) Capabilities() Capabilities {
	return s.caps
}

// ElapsedRealtime миллисекунды с момента старта платформы
func (s *System) ElapsedRealtime() int64 {
	return s.clock().Sub(s.start).Milliseconds()
}

// NewProcess запускает процесс пакета. Все процессы одного пакета получают один uid.
func (s *System) NewProcess(pkg string) *binder.Process {
	s.mu.Lock()
	defer s.mu.Unlock()
	uid, ok := s.uids[pkg]
	if !ok {
		uid = s.nextUID
		s.nextUID++
		s.uids[pkg] = uid
		s.packagesByUID[uid] = pkg
	}
	return s.newProcessLocked(uid, pkg)
}

// NewSystemProcess запускает процесс с системным uid
func (s *System) NewSystemProcess(pkg string) *binder.Process {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uids[pkg] = SystemUID
	s.packagesByUID[SystemUID] = pkg
	return s.newProcessLocked(SystemUID, pkg)
}

func (s *System) newProcessLocked(uid int, pkg string) *binder.Process {
	pid := s.nextPID
	s.nextPID++
	return binder.NewProcess(pid, uid, pkg)
}

// PackageUID возвращает uid установленного пакета
func (s *System) PackageUID(pkg string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uid, ok := s.uids[pkg]
	return uid, ok
}

// PackageForUID возвращает пакет по uid или пустую строку
func (s *System) PackageForUID(uid int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.packagesByUID[uid]
}

// GrantPermission выдает разрешение пакету
func (s *System) GrantPermission(pkg, permission string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.perms[pkg]
	if !ok {
		set = make(map[string]bool)
		s.perms[pkg] = set
	}
	set[permission] = true
}

// CheckPackagePermission проверяет разрешение пакета
func (s *System) CheckPackagePermission(pkg, permission string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.perms[pkg][permission]
}

// CheckPermission проверяет разрешение процесса по uid
func (s *System) CheckPermission(uid int, permission string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if uid == SystemUID {
		return true
	}
	pkg, ok := s.packagesByUID[uid]
	if !ok {
		return false
	}
	return s.perms[pkg][permission]
}

// SetNotificationListenerEnabled включает или выключает слушатель уведомлений пакета
func (s *System) SetNotificationListenerEnabled(pkg string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if enabled {
		s.listeners[pkg] = true
	} else {
		delete(s.listeners, pkg)
	}
}

// IsNotificationListenerEnabled сообщает, включен ли слушатель уведомлений пакета
func (s *System) IsNotificationListenerEnabled(pkg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listeners[pkg]
}

func (s *System) registerBrowserService(component string, svc *BrowserService) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services[component] = svc
}

func (s *System) unregisterBrowserService(component string, svc *BrowserService) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.services[component] == svc {
		delete(s.services, component)
	}
}

func (s *System) lookupBrowserService(component string) *BrowserService {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.services[component]
}
