package binder

import (
	"context"
	"sync"
)

// Process идентичность процесса и владелец его binder-объектов.
// Kill эмулирует завершение процесса: все его binder умирают, получатели смерти уведомляются.
type Process struct {
	PID     int
	UID     int
	Package string

	mu      sync.Mutex
	binders []*Binder
	dead    bool
}

// NewProcess создает живой процесс
func NewProcess(pid, uid int, pkg string) *Process {
	return &Process{PID: pid, UID: uid, Package: pkg}
}

func (p *Process) adopt(b *Binder) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dead {
		return false
	}
	p.binders = append(p.binders, b)
	return true
}

// IsAlive сообщает, жив ли процесс
func (p *Process) IsAlive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.dead
}

// Kill завершает процесс
func (p *Process) Kill() {
	p.mu.Lock()
	if p.dead {
		p.mu.Unlock()
		return
	}
	p.dead = true
	binders := p.binders
	p.binders = nil
	p.mu.Unlock()

	for _, b := range binders {
		b.Kill()
	}
}

// Context возвращает контекст, от имени которого процесс выполняет исходящие вызовы
func (p *Process) Context(ctx context.Context) context.Context {
	return WithProcess(ctx, p)
}

// Identity идентичность вызывающего процесса в транзакции
type Identity struct {
	PID     int
	UID     int
	Package string
}

// UnknownIdentity используется, когда вызывающий неизвестен
var UnknownIdentity = Identity{PID: -1, UID: -1}

type processKey struct{}
type callingKey struct{}

// WithProcess задает процесс, выполняющий вызов
func WithProcess(ctx context.Context, p *Process) context.Context {
	if p == nil {
		return ctx
	}
	return context.WithValue(ctx, processKey{}, p)
}

// ProcessFromContext возвращает процесс, от имени которого выполняется код, или nil
func ProcessFromContext(ctx context.Context) *Process {
	p, _ := ctx.Value(processKey{}).(*Process)
	return p
}

func withCallingIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, callingKey{}, id)
}

// CallingIdentity возвращает идентичность вызывающего текущей транзакции.
// Значение доступно только внутри обработчика транзакции.
func CallingIdentity(ctx context.Context) Identity {
	if id, ok := ctx.Value(callingKey{}).(Identity); ok {
		return id
	}
	return UnknownIdentity
}

func identityOf(p *Process) Identity {
	if p == nil {
		return UnknownIdentity
	}
	return Identity{PID: p.PID, UID: p.UID, Package: p.Package}
}
