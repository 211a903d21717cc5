package binder

import "sync"

// Parcelable объект, который умеет записать себя в Parcel.
// Имя используется для поиска Creator при чтении.
type Parcelable interface {
	ParcelableName() string
	WriteToParcel(p *Parcel)
}

// Creator читает объект из Parcel. Ошибки формата фиксируются через p.Fail.
type Creator func(p *Parcel) Parcelable

var (
	creatorsMu sync.RWMutex
	creators   = make(map[string]Creator)
)

// RegisterCreator регистрирует Creator для имени класса.
// Обычно вызывается из init() пакета, объявляющего тип.
func RegisterCreator(name string, c Creator) {
	creatorsMu.Lock()
	defer creatorsMu.Unlock()
	creators[name] = c
}

func lookupCreator(name string) (Creator, bool) {
	creatorsMu.RLock()
	defer creatorsMu.RUnlock()
	c, ok := creators[name]
	return c, ok
}
