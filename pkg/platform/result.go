package platform

import (
	"log/slog"
	"sync"
)

// Result отложенный ответ сервиса браузера.
// Ответ отправляется ровно один раз: SendResult или SendError. Detach разрешает
// отправить его после возврата из callback.
type Result[T any] struct {
	debug string
	send  func(value T, ok bool)

	mu       sync.Mutex
	detached bool
	done     bool
}

// NewResult создает Result; send вызывается один раз
func NewResult[T any](debug string, send func(value T, ok bool)) *Result[T] {
	return &Result[T]{debug: debug, send: send}
}

// SendResult отправляет значение
func (r *Result[T]) SendResult(value T) {
	if !r.finish("sendResult") {
		return
	}
	r.send(value, true)
}

// SendError сообщает об ошибке
func (r *Result[T]) SendError() {
	if !r.finish("sendError") {
		return
	}
	var zero T
	r.send(zero, false)
}

// Detach откладывает отправку ответа
func (r *Result[T]) Detach() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		slog.Error("platform.Result: detach() called when result was already sent",
			slog.String("debug", r.debug))
		return
	}
	r.detached = true
}

// IsDone сообщает, что ответ уже отправлен
func (r *Result[T]) IsDone() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// IsDetached сообщает, что отправка отложена
func (r *Result[T]) IsDetached() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.detached
}

func (r *Result[T]) finish(method string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		slog.Error("platform.Result: "+method+"() called when result was already sent",
			slog.String("debug", r.debug))
		return false
	}
	r.done = true
	return true
}

// CheckCompleted вызывается после callback: результат должен быть отправлен или отложен.
// Иначе отправляется ошибка.
func (r *Result[T]) CheckCompleted() {
	r.mu.Lock()
	pending := !r.done && !r.detached
	r.mu.Unlock()
	if pending {
		slog.Error("platform.Result: callback must call detach() or sendResult() before returning",
			slog.String("debug", r.debug))
		r.SendError()
	}
}
