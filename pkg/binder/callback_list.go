package binder

import "sync"

// RegisteredCallback элемент снимка CallbackList
type RegisteredCallback[T IInterface] struct {
	Callback T
	Cookie   any
}

type callbackEntry[T IInterface] struct {
	callback  T
	cookie    any
	binder    IBinder
	recipient DeathRecipient
}

// CallbackList набор зарегистрированных удаленных callback.
//
// Ключом служит binder callback. Записи удаляются автоматически, когда процесс
// владельца callback умирает. Snapshot возвращает стабильную копию, по которой
// можно делать рассылку без удержания блокировки.
type CallbackList[T IInterface] struct {
	mu      sync.Mutex
	entries []*callbackEntry[T]
	killed  bool
	onDied  func(callback T, cookie any)
}

// NewCallbackList создает список; onDied вызывается после удаления умершей записи
func NewCallbackList[T IInterface](onDied func(callback T, cookie any)) *CallbackList[T] {
	return &CallbackList[T]{onDied: onDied}
}

// Register добавляет callback. Повторная регистрация заменяет cookie.
// Возвращает false, если список закрыт или процесс callback уже мертв.
func (l *CallbackList[T]) Register(callback T, cookie any) bool {
	b := callback.AsBinder()
	if b == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.killed {
		return false
	}
	if i := l.indexLocked(b); i >= 0 {
		l.entries[i].callback = callback
		l.entries[i].cookie = cookie
		return true
	}
	e := &callbackEntry[T]{callback: callback, cookie: cookie, binder: b}
	e.recipient = NewDeathRecipient(func() { l.died(e) })
	if err := b.LinkToDeath(e.recipient); err != nil {
		return false
	}
	l.entries = append(l.entries, e)
	return true
}

// Unregister удаляет callback и возвращает true, если он был зарегистрирован
func (l *CallbackList[T]) Unregister(callback T) bool {
	b := callback.AsBinder()
	if b == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexLocked(b)
	if i < 0 {
		return false
	}
	e := l.entries[i]
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	e.binder.UnlinkToDeath(e.recipient)
	return true
}

// Cookie возвращает cookie зарегистрированного callback
func (l *CallbackList[T]) Cookie(callback T) (any, bool) {
	b := callback.AsBinder()
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.indexLocked(b); i >= 0 {
		return l.entries[i].cookie, true
	}
	return nil, false
}

// Snapshot возвращает копию текущего набора в порядке регистрации
func (l *CallbackList[T]) Snapshot() []RegisteredCallback[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]RegisteredCallback[T], 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, RegisteredCallback[T]{Callback: e.callback, Cookie: e.cookie})
	}
	return out
}

// Len количество зарегистрированных callback
func (l *CallbackList[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Kill удаляет все записи и закрывает список для новых регистраций
func (l *CallbackList[T]) Kill() {
	l.mu.Lock()
	entries := l.entries
	l.entries = nil
	l.killed = true
	l.mu.Unlock()
	for _, e := range entries {
		e.binder.UnlinkToDeath(e.recipient)
	}
}

func (l *CallbackList[T]) indexLocked(b IBinder) int {
	for i, e := range l.entries {
		if e.binder == b {
			return i
		}
	}
	return -1
}

func (l *CallbackList[T]) died(e *callbackEntry[T]) {
	l.mu.Lock()
	found := false
	for i, cur := range l.entries {
		if cur == e {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			found = true
			break
		}
	}
	l.mu.Unlock()
	if found && l.onDied != nil {
		l.onDied(e.callback, e.cookie)
	}
}
