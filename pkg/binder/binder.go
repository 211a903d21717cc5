package binder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pkg/errors"
)

const (
	// FirstCallTransaction первый код, доступный пользовательским методам интерфейса
	FirstCallTransaction uint32 = 0x00000001
	// LastCallTransaction последний код пользовательских методов
	LastCallTransaction uint32 = 0x00ffffff
	// InterfaceTransaction зарезервированный код запроса дескриптора ('_NTF')
	InterfaceTransaction uint32 = '_'<<24 | 'N'<<16 | 'T'<<8 | 'F'
	// FlagOneway односторонний вызов: ответа нет, вызывающий не ждет выполнения
	FlagOneway uint32 = 0x00000001
)

// IBinder базовый интерфейс удаленного объекта.
//
// Transact возвращает false, если транзакция не была обработана: код неизвестен
// получателю или механизм транзакций отказал. Во втором случае возвращается и ошибка
// (например ErrDeadObject). Ошибки, которые вернул сам вызываемый метод,
// передаются через слот исключения в reply, а не через error.
type IBinder interface {
	Transact(ctx context.Context, code uint32, data, reply *Parcel, flags uint32) (bool, error)
	QueryLocalInterface(descriptor string) IInterface
	Descriptor() string
	IsBinderAlive() bool
	LinkToDeath(r DeathRecipient) error
	UnlinkToDeath(r DeathRecipient) bool
}

// IInterface объект, доступный через binder
type IInterface interface {
	AsBinder() IBinder
}

// DeathRecipient получает уведомление о гибели процесса владельца binder
type DeathRecipient interface {
	BinderDied()
}

type funcRecipient struct {
	f func()
}

func (r *funcRecipient) BinderDied() { r.f() }

// NewDeathRecipient оборачивает функцию в DeathRecipient.
// Возвращается указатель, поэтому получатель можно снять через UnlinkToDeath.
func NewDeathRecipient(f func()) DeathRecipient {
	return &funcRecipient{f: f}
}

// TransactHandler обработчик входящих транзакций локального binder.
// Возвращенная ошибка записывается в слот исключения ответа.
type TransactHandler func(ctx context.Context, code uint32, data, reply *Parcel, flags uint32) (bool, error)

// Проверяем реализацию интерфейсов
var (
	_ IBinder = (*Binder)(nil)
	_ IBinder = BinderProxy{}
)

// Binder локальный объект, принимающий транзакции.
//
// Двусторонние вызовы выполняются синхронно в горутине вызывающего.
// Односторонние ставятся в последовательную очередь binder, что сохраняет
// порядок вызовов для одного соединения.
type Binder struct {
	descriptor string
	proc       *Process
	handler    TransactHandler

	mu         sync.Mutex
	owner      IInterface
	dead       bool
	recipients []DeathRecipient
	queue      *serialQueue
}

// NewBinder создает binder, принадлежащий процессу proc
func NewBinder(proc *Process, descriptor string, handler TransactHandler) *Binder {
	b := &Binder{
		descriptor: descriptor,
		proc:       proc,
		handler:    handler,
	}
	if proc != nil {
		if !proc.adopt(b) {
			b.dead = true
		}
	}
	return b
}

// AttachInterface связывает binder с локальной реализацией интерфейса
func (b *Binder) AttachInterface(owner IInterface) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.owner = owner
}

func (b *Binder) Descriptor() string {
	return b.descriptor
}

// Process возвращает процесс-владелец
func (b *Binder) Process() *Process {
	return b.proc
}

func (b *Binder) QueryLocalInterface(descriptor string) IInterface {
	b.mu.Lock()
	defer b.mu.Unlock()
	if descriptor == b.descriptor {
		return b.owner
	}
	return nil
}

func (b *Binder) IsBinderAlive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.dead
}

func (b *Binder) LinkToDeath(r DeathRecipient) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dead {
		return ErrDeadObject
	}
	b.recipients = append(b.recipients, r)
	return nil
}

func (b *Binder) UnlinkToDeath(r DeathRecipient) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, rr := range b.recipients {
		if rr == r {
			b.recipients = append(b.recipients[:i], b.recipients[i+1:]...)
			return true
		}
	}
	return false
}

// Transact выполняет транзакцию. Данные копируются так, как их увидит процесс получателя,
// ответ копируется обратно для процесса вызывающего.
func (b *Binder) Transact(ctx context.Context, code uint32, data, reply *Parcel, flags uint32) (bool, error) {
	if !b.IsBinderAlive() {
		return false, ErrDeadObject
	}
	caller := ProcessFromContext(ctx)
	in := data.copyFor(b.proc)
	calleeCtx := withCallingIdentity(WithProcess(ctx, b.proc), identityOf(caller))

	if flags&FlagOneway != 0 {
		calleeCtx = context.WithoutCancel(calleeCtx)
		if !b.enqueue(func() {
			defer in.Recycle()
			if _, err := b.dispatch(calleeCtx, code, in, nil, flags); err != nil {
				slog.Warn("Binder.Transact: ошибка одностороннего вызова",
					slog.String("descriptor", b.descriptor),
					slog.Int("code", int(code)),
					slog.String("error", err.Error()))
			}
		}) {
			in.Recycle()
			return false, ErrDeadObject
		}
		return true, nil
	}

	defer in.Recycle()
	out := Obtain()
	defer out.Recycle()
	handled, err := b.dispatch(calleeCtx, code, in, out, flags)
	if err != nil {
		out.Reset()
		out.WriteException(err)
		handled = true
	}
	if reply != nil {
		reply.adopt(out, caller)
	}
	return handled, nil
}

func (b *Binder) dispatch(ctx context.Context, code uint32, data, reply *Parcel, flags uint32) (handled bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			handled = true
			err = errors.Errorf("binder: panic in %s code %d: %v", b.descriptor, code, r)
		}
	}()
	if b.handler == nil {
		return false, nil
	}
	return b.handler(ctx, code, data, reply, flags)
}

// adopt заменяет содержимое p копией src, видимой из процесса to
func (p *Parcel) adopt(src *Parcel, to *Process) {
	c := src.copyFor(to)
	p.buf = append(p.buf[:0], c.buf...)
	p.objects = c.objects
	p.pos = 0
	p.err = nil
	c.objects = nil
	c.Recycle()
}

func (b *Binder) enqueue(f func()) bool {
	b.mu.Lock()
	if b.dead {
		b.mu.Unlock()
		return false
	}
	if b.queue == nil {
		b.queue = newSerialQueue()
	}
	q := b.queue
	b.mu.Unlock()
	return q.push(f)
}

// Kill помечает binder мертвым и уведомляет получателей смерти.
// Очередь односторонних вызовов отбрасывается.
func (b *Binder) Kill() {
	b.mu.Lock()
	if b.dead {
		b.mu.Unlock()
		return
	}
	b.dead = true
	recipients := b.recipients
	b.recipients = nil
	q := b.queue
	b.mu.Unlock()

	if q != nil {
		q.close()
	}
	for _, r := range recipients {
		r.BinderDied()
	}
}

func (b *Binder) String() string {
	return fmt.Sprintf("Binder{%s}", b.descriptor)
}

// BinderProxy ссылка на binder другого процесса.
// Значения сравнимы: два прокси на один binder равны, их можно использовать как ключи.
type BinderProxy struct {
	b *Binder
}

func (p BinderProxy) Transact(ctx context.Context, code uint32, data, reply *Parcel, flags uint32) (bool, error) {
	if p.b == nil {
		return false, ErrDeadObject
	}
	return p.b.Transact(ctx, code, data, reply, flags)
}

// QueryLocalInterface всегда возвращает nil: реализация находится в другом процессе
func (p BinderProxy) QueryLocalInterface(string) IInterface { return nil }

func (p BinderProxy) Descriptor() string {
	if p.b == nil {
		return ""
	}
	return p.b.descriptor
}

func (p BinderProxy) IsBinderAlive() bool {
	return p.b != nil && p.b.IsBinderAlive()
}

func (p BinderProxy) LinkToDeath(r DeathRecipient) error {
	if p.b == nil {
		return ErrDeadObject
	}
	return p.b.LinkToDeath(r)
}

func (p BinderProxy) UnlinkToDeath(r DeathRecipient) bool {
	if p.b == nil {
		return false
	}
	return p.b.UnlinkToDeath(r)
}

func (p BinderProxy) String() string {
	return fmt.Sprintf("BinderProxy{%s}", p.Descriptor())
}

func mapBinder(obj IBinder, to *Process) IBinder {
	switch t := obj.(type) {
	case *Binder:
		if t.proc == to {
			return t
		}
		return BinderProxy{b: t}
	case BinderProxy:
		if t.b != nil && t.b.proc == to {
			return t.b
		}
		return t
	}
	return obj
}

// serialQueue очередь односторонних вызовов одного binder
type serialQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []func()
	closed bool
}

func newSerialQueue() *serialQueue {
	q := &serialQueue{}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

func (q *serialQueue) push(f func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, f)
	q.cond.Signal()
	return true
}

func (q *serialQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.items = nil
	q.cond.Broadcast()
}

func (q *serialQueue) run() {
	for {
		q.mu.Lock()
		for len(q.items) == 0 && !q.closed {
			q.cond.Wait()
		}
		if q.closed {
			q.mu.Unlock()
			return
		}
		f := q.items[0]
		q.items[0] = nil
		q.items = q.items[1:]
		q.mu.Unlock()
		f()
	}
}
