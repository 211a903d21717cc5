package binder

import "sync"

// DefaultImpl слот запасной реализации интерфейса.
//
// Прокси обращается к ней только когда отказал сам механизм транзакций.
// Значение устанавливается не более одного раза; Reset эмулирует завершение процесса.
type DefaultImpl[T any] struct {
	mu   sync.RWMutex
	impl T
	set  bool
}

// Set устанавливает реализацию. Повторный вызов возвращает ErrDefaultImplAlreadySet
// (даже с nil), nil не устанавливается и дает false.
func (d *DefaultImpl[T]) Set(impl T) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.set {
		return false, ErrDefaultImplAlreadySet
	}
	if any(impl) == nil {
		return false, nil
	}
	d.impl = impl
	d.set = true
	return true, nil
}

// Get возвращает установленную реализацию
func (d *DefaultImpl[T]) Get() (T, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.impl, d.set
}

// Reset очищает слот
func (d *DefaultImpl[T]) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	var zero T
	d.impl = zero
	d.set = false
}
