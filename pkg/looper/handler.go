package looper

import (
	"log/slog"
	"sync"
	"time"

	"github.com/arzzra/media_compat/pkg/binder"
)

// Message сообщение, доставляемое Handler
type Message struct {
	What int
	Arg1 int
	Arg2 int
	// Obj локальный объект; через Messenger не передается
	Obj     any
	Data    *binder.Bundle
	ReplyTo *Messenger
	// SendingUID uid процесса-отправителя, заполняется при получении через Messenger
	SendingUID int
}

type pendingMessage struct {
	msg      *Message
	canceled bool
}

// Handler ставит задачи и сообщения в очередь Looper
type Handler struct {
	looper   *Looper
	callback func(msg *Message)

	mu      sync.Mutex
	gen     uint64
	pending []*pendingMessage
}

// NewHandler создает Handler; callback обрабатывает сообщения SendMessage
func NewHandler(l *Looper, callback func(msg *Message)) *Handler {
	if l == nil {
		l = Main()
	}
	return &Handler{looper: l, callback: callback}
}

func (h *Handler) Looper() *Looper {
	return h.looper
}

// Post ставит функцию в очередь Looper
func (h *Handler) Post(fn func()) bool {
	h.mu.Lock()
	gen := h.gen
	h.mu.Unlock()
	return h.postGen(gen, fn)
}

// PostDelayed ставит функцию в очередь через d
func (h *Handler) PostDelayed(fn func(), d time.Duration) {
	h.mu.Lock()
	gen := h.gen
	h.mu.Unlock()
	time.AfterFunc(d, func() { h.postGen(gen, fn) })
}

func (h *Handler) postGen(gen uint64, fn func()) bool {
	err := h.looper.Enqueue(func() {
		h.mu.Lock()
		stale := gen != h.gen
		h.mu.Unlock()
		if !stale {
			fn()
		}
	})
	if err != nil {
		slog.Debug("Handler.Post: looper остановлен", slog.String("looper", h.looper.Name()))
		return false
	}
	return true
}

// SendMessage ставит сообщение в очередь
func (h *Handler) SendMessage(msg *Message) bool {
	pm := h.track(msg)
	return h.Post(func() { h.deliver(pm) })
}

// SendMessageDelayed ставит сообщение в очередь через d
func (h *Handler) SendMessageDelayed(msg *Message, d time.Duration) {
	pm := h.track(msg)
	h.PostDelayed(func() { h.deliver(pm) }, d)
}

// RemoveMessages отменяет ожидающие сообщения с кодом what
func (h *Handler) RemoveMessages(what int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	kept := h.pending[:0]
	for _, pm := range h.pending {
		if pm.msg.What == what {
			pm.canceled = true
			continue
		}
		kept = append(kept, pm)
	}
	h.pending = kept
}

// HasMessages проверяет наличие ожидающих сообщений с кодом what
func (h *Handler) HasMessages(what int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, pm := range h.pending {
		if pm.msg.What == what {
			return true
		}
	}
	return false
}

// RemoveCallbacksAndMessages отменяет все ожидающие задачи и сообщения
func (h *Handler) RemoveCallbacksAndMessages() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.gen++
	for _, pm := range h.pending {
		pm.canceled = true
	}
	h.pending = nil
}

func (h *Handler) track(msg *Message) *pendingMessage {
	pm := &pendingMessage{msg: msg}
	h.mu.Lock()
	h.pending = append(h.pending, pm)
	h.mu.Unlock()
	return pm
}

func (h *Handler) deliver(pm *pendingMessage) {
	h.mu.Lock()
	if pm.canceled {
		h.mu.Unlock()
		return
	}
	for i, cur := range h.pending {
		if cur == pm {
			h.pending = append(h.pending[:i], h.pending[i+1:]...)
			break
		}
	}
	h.mu.Unlock()
	if h.callback != nil {
		h.callback(pm.msg)
	}
}
