package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/looplab/fsm"

	"github.com/arzzra/media_compat/pkg/binder"
	"github.com/arzzra/media_compat/pkg/trust"
)

// Состояния регистрации callback контроллера
const (
	registrationUnregistered = "unregistered"
	registrationRegistered   = "registered"
)

// События регистрации
const (
	eventRegister   = "register"
	eventUnregister = "unregister"
	eventDied       = "died"
)

// registration состояние одного callback, зарегистрированного через extra binder
type registration struct {
	info trust.RemoteUserInfo
	fsm  *fsm.FSM
}

// registrations отслеживает регистрации по binder callback.
// notify вызывается при явной регистрации и явной отмене; смерть процесса только логируется.
type registrations struct {
	mu      sync.Mutex
	entries map[binder.IBinder]*registration
	notify  func(info trust.RemoteUserInfo, registered bool)
}

func newRegistrations(notify func(info trust.RemoteUserInfo, registered bool)) *registrations {
	return &registrations{
		entries: make(map[binder.IBinder]*registration),
		notify:  notify,
	}
}

func (r *registrations) newRegistration(info trust.RemoteUserInfo) *registration {
	reg := &registration{info: info}
	reg.fsm = fsm.NewFSM(
		registrationUnregistered,
		fsm.Events{
			{Name: eventRegister, Src: []string{registrationUnregistered}, Dst: registrationRegistered},
			{Name: eventUnregister, Src: []string{registrationRegistered}, Dst: registrationUnregistered},
			{Name: eventDied, Src: []string{registrationRegistered}, Dst: registrationUnregistered},
		},
		fsm.Callbacks{
			"enter_" + registrationRegistered: func(ctx context.Context, e *fsm.Event) {
				r.notify(reg.info, true)
			},
			"enter_" + registrationUnregistered: func(ctx context.Context, e *fsm.Event) {
				if e.Event == eventDied {
					slog.Debug("session.registrations: controller died",
						slog.String("controller", reg.info.String()))
					return
				}
				r.notify(reg.info, false)
			},
		},
	)
	return reg
}

// register переводит callback в registered. Повторная регистрация обновляет идентичность.
func (r *registrations) register(b binder.IBinder, info trust.RemoteUserInfo) {
	r.mu.Lock()
	reg, ok := r.entries[b]
	if !ok {
		reg = r.newRegistration(info)
		r.entries[b] = reg
	}
	reg.info = info
	r.mu.Unlock()

	if reg.fsm.Can(eventRegister) {
		_ = reg.fsm.Event(context.Background(), eventRegister)
	}
}

func (r *registrations) unregister(b binder.IBinder) {
	r.finish(b, eventUnregister)
}

func (r *registrations) died(b binder.IBinder) {
	r.finish(b, eventDied)
}

func (r *registrations) finish(b binder.IBinder, event string) {
	r.mu.Lock()
	reg, ok := r.entries[b]
	delete(r.entries, b)
	r.mu.Unlock()
	if !ok {
		return
	}
	if err := reg.fsm.Event(context.Background(), event); err != nil {
		slog.Debug("session.registrations: transition rejected",
			slog.String("event", event),
			slog.String("error", err.Error()))
	}
}

// state возвращает состояние регистрации binder
func (r *registrations) state(b binder.IBinder) string {
	r.mu.Lock()
	reg, ok := r.entries[b]
	r.mu.Unlock()
	if !ok {
		return registrationUnregistered
	}
	return reg.fsm.Current()
}

// clear сбрасывает все записи без уведомлений
func (r *registrations) clear() {
	r.mu.Lock()
	r.entries = make(map[binder.IBinder]*registration)
	r.mu.Unlock()
}
