package looper

import (
	"context"
	"errors"
	"sync"
)

var errTerminated = errors.New("looper: terminated")

// Looper очередь задач, которые выполняются по одной в собственной горутине.
// Это "поток" в терминах доставки callback: все задачи одного Looper
// выполняются последовательно и в порядке постановки.
type Looper struct {
	name string

	mu    sync.Mutex
	tasks []func()
	wake  chan struct{}
	quit  chan struct{}
	done  chan struct{}
	once  sync.Once
}

// New создает и запускает Looper
func New(name string) *Looper {
	l := &Looper{
		name: name,
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go l.loop()
	return l
}

var (
	mainOnce   sync.Once
	mainLooper *Looper
)

// Main возвращает Looper по умолчанию для callback, у которых не указан свой
func Main() *Looper {
	mainOnce.Do(func() {
		mainLooper = New("main")
	})
	return mainLooper
}

func (l *Looper) Name() string {
	return l.name
}

// Enqueue ставит задачу в очередь. После Quit возвращает ошибку.
func (l *Looper) Enqueue(fn func()) error {
	select {
	case <-l.quit:
		return errTerminated
	default:
	}
	l.mu.Lock()
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// Sync ждет выполнения всех задач, поставленных до вызова
func (l *Looper) Sync(ctx context.Context) error {
	barrier := make(chan struct{})
	if err := l.Enqueue(func() { close(barrier) }); err != nil {
		return err
	}
	select {
	case <-barrier:
		return nil
	case <-l.done:
		return errTerminated
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Quit останавливает Looper; невыполненные задачи отбрасываются
func (l *Looper) Quit() {
	l.once.Do(func() {
		close(l.quit)
	})
	<-l.done
}

func (l *Looper) loop() {
	defer close(l.done)
	for {
		select {
		case <-l.quit:
			return
		case <-l.wake:
		}
		for {
			select {
			case <-l.quit:
				return
			default:
			}
			l.mu.Lock()
			if len(l.tasks) == 0 {
				l.mu.Unlock()
				break
			}
			fn := l.tasks[0]
			l.tasks[0] = nil
			l.tasks = l.tasks[1:]
			l.mu.Unlock()
			fn()
		}
	}
}
