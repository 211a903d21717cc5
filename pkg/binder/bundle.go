package binder

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Теги типов значений Bundle в потоке
const (
	valNull            int32 = -1
	valString          int32 = 0
	valInteger         int32 = 1
	valBundle          int32 = 3
	valParcelable      int32 = 4
	valLong            int32 = 6
	valFloat           int32 = 7
	valDouble          int32 = 8
	valBoolean         int32 = 9
	valCharSequence    int32 = 10
	valByteArray       int32 = 13
	valStringArray     int32 = 14
	valIBinder         int32 = 15
	valParcelableArray int32 = 16
)

// CharSequence строка, которая передается с тегом текста, а не простой строки
type CharSequence string

// Bundle типизированный словарь ключ-значение.
//
// Bundle, прочитанный из Parcel, разбирается при первом обращении.
// Если содержимое повреждено, Unparcel вернет ошибку, а геттеры будут
// вести себя как для пустого Bundle. Методы безопасны для nil-получателя.
type Bundle struct {
	mu  sync.Mutex
	m   map[string]any
	raw *Parcel
	err error
}

// NewBundle создает пустой Bundle
func NewBundle() *Bundle {
	return &Bundle{m: make(map[string]any)}
}

// Unparcel разбирает отложенное содержимое и возвращает ошибку формата, если она была
func (b *Bundle) Unparcel() error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unparcelLocked()
	return b.err
}

func (b *Bundle) unparcelLocked() {
	if b.raw == nil {
		if b.m == nil {
			b.m = make(map[string]any)
		}
		return
	}
	raw := b.raw
	b.raw = nil
	b.m = make(map[string]any)
	n := raw.ReadInt32()
	for i := int32(0); i < n && raw.Err() == nil; i++ {
		key := raw.ReadString()
		v := readValue(raw)
		if raw.Err() == nil {
			b.m[key] = v
		}
	}
	if err := raw.Err(); err != nil {
		b.err = errors.Wrap(err, "bundle: unparcel")
		b.m = make(map[string]any)
	}
}

func (b *Bundle) put(key string, v any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unparcelLocked()
	b.m[key] = v
}

func (b *Bundle) get(key string) (any, bool) {
	if b == nil {
		return nil, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unparcelLocked()
	v, ok := b.m[key]
	return v, ok
}

func (b *Bundle) PutString(key, v string)               { b.put(key, v) }
func (b *Bundle) PutCharSequence(key, v string)         { b.put(key, CharSequence(v)) }
func (b *Bundle) PutInt(key string, v int)              { b.put(key, v) }
func (b *Bundle) PutLong(key string, v int64)           { b.put(key, v) }
func (b *Bundle) PutFloat(key string, v float32)        { b.put(key, v) }
func (b *Bundle) PutDouble(key string, v float64)       { b.put(key, v) }
func (b *Bundle) PutBool(key string, v bool)            { b.put(key, v) }
func (b *Bundle) PutByteArray(key string, v []byte)     { b.put(key, v) }
func (b *Bundle) PutStringArray(key string, v []string) { b.put(key, v) }

// PutBundle кладет вложенный Bundle; nil сохраняется как явное отсутствие значения
func (b *Bundle) PutBundle(key string, v *Bundle) {
	if v == nil {
		b.put(key, nil)
		return
	}
	b.put(key, v)
}

func (b *Bundle) PutBinder(key string, v IBinder) {
	if v == nil {
		b.put(key, nil)
		return
	}
	b.put(key, v)
}

func (b *Bundle) PutParcelable(key string, v Parcelable) {
	if v == nil {
		b.put(key, nil)
		return
	}
	b.put(key, v)
}

func (b *Bundle) PutParcelableList(key string, v []Parcelable) { b.put(key, v) }

// GetString возвращает строку или пустую строку, если ключа нет
func (b *Bundle) GetString(key string) string {
	v, _ := b.get(key)
	switch s := v.(type) {
	case string:
		return s
	case CharSequence:
		return string(s)
	}
	return ""
}

func (b *Bundle) GetCharSequence(key string) string {
	return b.GetString(key)
}

func (b *Bundle) GetInt(key string, def int) int {
	if v, ok := b.get(key); ok {
		if i, ok := v.(int); ok {
			return i
		}
	}
	return def
}

func (b *Bundle) GetLong(key string, def int64) int64 {
	if v, ok := b.get(key); ok {
		switch i := v.(type) {
		case int64:
			return i
		case int:
			return int64(i)
		}
	}
	return def
}

func (b *Bundle) GetFloat(key string, def float32) float32 {
	if v, ok := b.get(key); ok {
		if f, ok := v.(float32); ok {
			return f
		}
	}
	return def
}

func (b *Bundle) GetDouble(key string, def float64) float64 {
	if v, ok := b.get(key); ok {
		if f, ok := v.(float64); ok {
			return f
		}
	}
	return def
}

func (b *Bundle) GetBool(key string, def bool) bool {
	if v, ok := b.get(key); ok {
		if f, ok := v.(bool); ok {
			return f
		}
	}
	return def
}

func (b *Bundle) GetByteArray(key string) []byte {
	v, _ := b.get(key)
	bs, _ := v.([]byte)
	return bs
}

func (b *Bundle) GetStringArray(key string) []string {
	v, _ := b.get(key)
	s, _ := v.([]string)
	return s
}

func (b *Bundle) GetBundle(key string) *Bundle {
	v, _ := b.get(key)
	nb, _ := v.(*Bundle)
	return nb
}

func (b *Bundle) GetBinder(key string) IBinder {
	v, _ := b.get(key)
	ib, _ := v.(IBinder)
	return ib
}

func (b *Bundle) GetParcelable(key string) Parcelable {
	v, _ := b.get(key)
	p, _ := v.(Parcelable)
	return p
}

func (b *Bundle) GetParcelableList(key string) []Parcelable {
	v, _ := b.get(key)
	l, _ := v.([]Parcelable)
	return l
}

// ContainsKey проверяет наличие ключа
func (b *Bundle) ContainsKey(key string) bool {
	_, ok := b.get(key)
	return ok
}

func (b *Bundle) Remove(key string) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unparcelLocked()
	delete(b.m, key)
}

// Keys возвращает ключи в отсортированном порядке
func (b *Bundle) Keys() []string {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unparcelLocked()
	return b.sortedKeysLocked()
}

func (b *Bundle) sortedKeysLocked() []string {
	keys := make([]string, 0, len(b.m))
	for k := range b.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (b *Bundle) Size() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unparcelLocked()
	return len(b.m)
}

func (b *Bundle) IsEmpty() bool {
	return b.Size() == 0
}

// PutAll копирует все значения из other
func (b *Bundle) PutAll(other *Bundle) {
	if other == nil {
		return
	}
	src := other.snapshot()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unparcelLocked()
	for k, v := range src {
		b.m[k] = v
	}
}

func (b *Bundle) snapshot() map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unparcelLocked()
	m := make(map[string]any, len(b.m))
	for k, v := range b.m {
		m[k] = v
	}
	return m
}

// Copy возвращает копию; вложенные Bundle и срезы копируются
func (b *Bundle) Copy() *Bundle {
	if b == nil {
		return nil
	}
	src := b.snapshot()
	c := &Bundle{m: make(map[string]any, len(src))}
	for k, v := range src {
		c.m[k] = copyValue(v)
	}
	return c
}

func copyValue(v any) any {
	switch t := v.(type) {
	case *Bundle:
		return t.Copy()
	case []string:
		return append([]string(nil), t...)
	case []byte:
		return append([]byte(nil), t...)
	case []Parcelable:
		return append([]Parcelable(nil), t...)
	}
	return v
}

// Equal сравнивает содержимое двух Bundle
func (b *Bundle) Equal(other *Bundle) bool {
	if b == nil || other == nil {
		return b == nil && other == nil
	}
	if b == other {
		return true
	}
	m1, m2 := b.snapshot(), other.snapshot()
	if len(m1) != len(m2) {
		return false
	}
	for k, v1 := range m1 {
		v2, ok := m2[k]
		if !ok || !valuesEqual(v1, v2) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	switch x := a.(type) {
	case *Bundle:
		y, ok := b.(*Bundle)
		return ok && x.Equal(y)
	case []string:
		y, ok := b.([]string)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if x[i] != y[i] {
				return false
			}
		}
		return true
	case []byte:
		y, ok := b.([]byte)
		return ok && string(x) == string(y)
	case []Parcelable:
		y, ok := b.([]Parcelable)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if x[i] != y[i] {
				return false
			}
		}
		return true
	}
	return a == b
}

func (b *Bundle) String() string {
	if b == nil {
		return "Bundle[null]"
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.raw != nil {
		return "Bundle[mParcelledData.dataSize=" + fmt.Sprint(b.raw.Len()) + "]"
	}
	var sb strings.Builder
	sb.WriteString("Bundle[{")
	for i, k := range b.sortedKeysLocked() {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s=%v", k, b.m[k])
	}
	sb.WriteString("}]")
	return sb.String()
}

func (b *Bundle) writeEntries(p *Parcel) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unparcelLocked()
	keys := b.sortedKeysLocked()
	p.WriteInt32(int32(len(keys)))
	for _, k := range keys {
		p.WriteString(k)
		writeValue(p, b.m[k])
	}
}

func writeValue(p *Parcel, v any) {
	switch t := v.(type) {
	case nil:
		p.WriteInt32(valNull)
	case string:
		p.WriteInt32(valString)
		p.WriteString(t)
	case CharSequence:
		p.WriteInt32(valCharSequence)
		p.WriteCharSequence(string(t))
	case int:
		p.WriteInt32(valInteger)
		p.WriteInt32(int32(t))
	case int64:
		p.WriteInt32(valLong)
		p.WriteInt64(t)
	case float32:
		p.WriteInt32(valFloat)
		p.WriteFloat32(t)
	case float64:
		p.WriteInt32(valDouble)
		p.WriteFloat64(t)
	case bool:
		p.WriteInt32(valBoolean)
		p.WriteBool(t)
	case []byte:
		p.WriteInt32(valByteArray)
		p.WriteByteArray(t)
	case []string:
		p.WriteInt32(valStringArray)
		p.WriteStringArray(t)
	case *Bundle:
		p.WriteInt32(valBundle)
		p.WriteBundle(t)
	case []Parcelable:
		p.WriteInt32(valParcelableArray)
		p.WriteInt32(int32(len(t)))
		for _, item := range t {
			p.WriteParcelable(item)
		}
	case Parcelable:
		p.WriteInt32(valParcelable)
		p.WriteParcelable(t)
	case IBinder:
		p.WriteInt32(valIBinder)
		p.WriteStrongBinder(t)
	default:
		panic(fmt.Sprintf("bundle: unsupported value type %T", v))
	}
}

func readValue(p *Parcel) any {
	tag := p.ReadInt32()
	switch tag {
	case valNull:
		return nil
	case valString:
		return p.ReadString()
	case valCharSequence:
		return CharSequence(p.ReadCharSequence())
	case valInteger:
		return int(p.ReadInt32())
	case valLong:
		return p.ReadInt64()
	case valFloat:
		return p.ReadFloat32()
	case valDouble:
		return p.ReadFloat64()
	case valBoolean:
		return p.ReadBool()
	case valByteArray:
		return p.ReadByteArray()
	case valStringArray:
		return p.ReadStringArray()
	case valBundle:
		return p.ReadBundle()
	case valParcelable:
		return p.ReadParcelable()
	case valParcelableArray:
		n := p.ReadInt32()
		if n < 0 || int(n) > p.Available() {
			p.Fail(errors.Wrapf(ErrBadParcelable, "bundle: parcelable array length %d", n))
			return nil
		}
		list := make([]Parcelable, 0, n)
		for i := int32(0); i < n && p.Err() == nil; i++ {
			list = append(list, p.ReadParcelable())
		}
		return list
	case valIBinder:
		return p.ReadStrongBinder()
	}
	p.Fail(errors.Wrapf(ErrBadParcelable, "bundle: unknown value type %d", tag))
	return nil
}
