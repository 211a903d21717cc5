package binder

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/pkg/errors"
)

// bundleMagic 'BNDL' в little-endian
const bundleMagic int32 = 0x4C444E42

// strictModeHeader пишется перед дескриптором интерфейса
const strictModeHeader int32 = 0

var parcelPool = sync.Pool{
	New: func() any { return &Parcel{} },
}

// Parcel буфер транзакции.
//
// Данные пишутся последовательно в little-endian, binder-объекты хранятся
// в отдельной таблице и в потоке представлены индексом. Ошибка чтения
// "залипает": после первой ошибки все чтения возвращают нулевые значения,
// а Err() возвращает первую ошибку.
type Parcel struct {
	buf     []byte
	pos     int
	objects []IBinder
	err     error
}

// Obtain берет Parcel из пула
func Obtain() *Parcel {
	return parcelPool.Get().(*Parcel)
}

// Recycle очищает Parcel и возвращает его в пул.
// Таблица объектов не переиспользуется: на нее могут ссылаться прочитанные Bundle.
func (p *Parcel) Recycle() {
	if p == nil {
		return
	}
	p.buf = p.buf[:0]
	p.pos = 0
	p.objects = nil
	p.err = nil
	parcelPool.Put(p)
}

// Err возвращает первую ошибку чтения
func (p *Parcel) Err() error {
	return p.err
}

// Fail фиксирует ошибку, если она еще не была установлена
func (p *Parcel) Fail(err error) {
	if p.err == nil && err != nil {
		p.err = err
	}
}

// Len размер данных в байтах
func (p *Parcel) Len() int { return len(p.buf) }

// Position текущая позиция чтения
func (p *Parcel) Position() int { return p.pos }

// SetPosition устанавливает позицию чтения
func (p *Parcel) SetPosition(pos int) {
	if pos < 0 || pos > len(p.buf) {
		p.Fail(errors.Errorf("parcel: position %d out of range", pos))
		return
	}
	p.pos = pos
}

// Available количество непрочитанных байт
func (p *Parcel) Available() int { return len(p.buf) - p.pos }

// Reset очищает данные без возврата в пул
func (p *Parcel) Reset() {
	p.buf = p.buf[:0]
	p.pos = 0
	p.objects = nil
	p.err = nil
}

func (p *Parcel) next(n int) []byte {
	if p.err != nil {
		return nil
	}
	if n < 0 || p.pos+n > len(p.buf) {
		p.Fail(errors.Wrapf(ErrBadParcelable, "parcel: read %d bytes at %d of %d", n, p.pos, len(p.buf)))
		return nil
	}
	b := p.buf[p.pos : p.pos+n]
	p.pos += n
	return b
}

func (p *Parcel) WriteInt32(v int32) {
	p.buf = binary.LittleEndian.AppendUint32(p.buf, uint32(v))
}

func (p *Parcel) ReadInt32() int32 {
	b := p.next(4)
	if b == nil {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b))
}

func (p *Parcel) WriteInt64(v int64) {
	p.buf = binary.LittleEndian.AppendUint64(p.buf, uint64(v))
}

func (p *Parcel) ReadInt64() int64 {
	b := p.next(8)
	if b == nil {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(b))
}

func (p *Parcel) WriteFloat32(v float32) {
	p.buf = binary.LittleEndian.AppendUint32(p.buf, math.Float32bits(v))
}

func (p *Parcel) ReadFloat32() float32 {
	b := p.next(4)
	if b == nil {
		return 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func (p *Parcel) WriteFloat64(v float64) {
	p.buf = binary.LittleEndian.AppendUint64(p.buf, math.Float64bits(v))
}

func (p *Parcel) ReadFloat64() float64 {
	b := p.next(8)
	if b == nil {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

// WriteBool пишет bool как int32
func (p *Parcel) WriteBool(v bool) {
	if v {
		p.WriteInt32(1)
		return
	}
	p.WriteInt32(0)
}

func (p *Parcel) ReadBool() bool {
	return p.ReadInt32() != 0
}

// WriteString пишет длину и байты строки
func (p *Parcel) WriteString(s string) {
	p.WriteInt32(int32(len(s)))
	p.buf = append(p.buf, s...)
}

// writeNullString пишет отсутствующую строку (длина -1)
func (p *Parcel) writeNullString() {
	p.WriteInt32(-1)
}

// ReadString читает строку; отсутствующая строка читается как пустая
func (p *Parcel) ReadString() string {
	s, _ := p.readNullableString()
	return s
}

func (p *Parcel) readNullableString() (string, bool) {
	n := p.ReadInt32()
	if p.err != nil || n < 0 {
		return "", false
	}
	b := p.next(int(n))
	if b == nil {
		return "", false
	}
	return string(b), true
}

// WriteCharSequence пишет текст в формате TextUtils: тип (1 = простая строка) и строка
func (p *Parcel) WriteCharSequence(s string) {
	p.WriteInt32(1)
	p.WriteString(s)
}

func (p *Parcel) ReadCharSequence() string {
	kind := p.ReadInt32()
	if kind != 1 {
		p.Fail(errors.Wrapf(ErrBadParcelable, "parcel: unsupported char sequence kind %d", kind))
		return ""
	}
	return p.ReadString()
}

// WriteByteArray пишет массив байт, nil кодируется длиной -1
func (p *Parcel) WriteByteArray(b []byte) {
	if b == nil {
		p.WriteInt32(-1)
		return
	}
	p.WriteInt32(int32(len(b)))
	p.buf = append(p.buf, b...)
}

func (p *Parcel) ReadByteArray() []byte {
	n := p.ReadInt32()
	if p.err != nil || n < 0 {
		return nil
	}
	b := p.next(int(n))
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

func (p *Parcel) WriteStringArray(list []string) {
	if list == nil {
		p.WriteInt32(-1)
		return
	}
	p.WriteInt32(int32(len(list)))
	for _, s := range list {
		p.WriteString(s)
	}
}

func (p *Parcel) ReadStringArray() []string {
	n := p.ReadInt32()
	if p.err != nil || n < 0 {
		return nil
	}
	if int(n) > p.Available() {
		p.Fail(errors.Wrapf(ErrBadParcelable, "parcel: string array length %d", n))
		return nil
	}
	list := make([]string, 0, n)
	for i := int32(0); i < n && p.err == nil; i++ {
		list = append(list, p.ReadString())
	}
	return list
}

// WriteStrongBinder кладет binder в таблицу объектов и пишет его индекс
func (p *Parcel) WriteStrongBinder(b IBinder) {
	if b == nil {
		p.WriteInt32(-1)
		return
	}
	p.objects = append(p.objects, b)
	p.WriteInt32(int32(len(p.objects) - 1))
}

func (p *Parcel) ReadStrongBinder() IBinder {
	idx := p.ReadInt32()
	if p.err != nil || idx < 0 {
		return nil
	}
	if int(idx) >= len(p.objects) {
		p.Fail(errors.Wrapf(ErrBadParcelable, "parcel: binder index %d out of range", idx))
		return nil
	}
	return p.objects[idx]
}

// WriteInterfaceToken пишет заголовок транзакции с дескриптором интерфейса
func (p *Parcel) WriteInterfaceToken(descriptor string) {
	p.WriteInt32(strictModeHeader)
	p.WriteString(descriptor)
}

// EnforceInterface проверяет дескриптор интерфейса в начале транзакции
func (p *Parcel) EnforceInterface(descriptor string) error {
	p.ReadInt32()
	got := p.ReadString()
	if p.err != nil {
		return errors.Wrap(ErrSecurity, "binder: missing interface token")
	}
	if got != descriptor {
		return errors.Wrapf(ErrSecurity, "binder: invalid interface token: expected %q, got %q", descriptor, got)
	}
	return nil
}

// WriteNoException пишет пустой слот исключения
func (p *Parcel) WriteNoException() {
	p.WriteInt32(ExceptionNone)
}

// WriteException пишет код и сообщение ошибки в слот исключения
func (p *Parcel) WriteException(err error) {
	p.WriteInt32(ExceptionCode(err))
	p.WriteString(err.Error())
}

// ReadException читает слот исключения; удаленная ошибка возвращается как *RemoteException
func (p *Parcel) ReadException() error {
	code := p.ReadInt32()
	if p.err != nil {
		return p.err
	}
	if code == ExceptionNone {
		return nil
	}
	return &RemoteException{Code: code, Message: p.ReadString()}
}

// WriteParcelable пишет имя класса и содержимое объекта
func (p *Parcel) WriteParcelable(v Parcelable) {
	if v == nil {
		p.writeNullString()
		return
	}
	p.WriteString(v.ParcelableName())
	v.WriteToParcel(p)
}

// ReadParcelable читает объект, созданный зарегистрированным Creator
func (p *Parcel) ReadParcelable() Parcelable {
	name, ok := p.readNullableString()
	if !ok {
		return nil
	}
	create, found := lookupCreator(name)
	if !found {
		p.Fail(errors.Wrapf(ErrBadParcelable, "ClassNotFoundException when unmarshalling: %s", name))
		return nil
	}
	return create(p)
}

// WriteBundle пишет Bundle: длина (-1 для nil), magic и записи
func (p *Parcel) WriteBundle(b *Bundle) {
	if b == nil {
		p.WriteInt32(-1)
		return
	}
	lengthPos := len(p.buf)
	p.WriteInt32(0)
	p.WriteInt32(bundleMagic)
	start := len(p.buf)
	b.writeEntries(p)
	binary.LittleEndian.PutUint32(p.buf[lengthPos:], uint32(len(p.buf)-start))
}

// ReadBundle читает Bundle. Записи разбираются лениво, при первом обращении.
func (p *Parcel) ReadBundle() *Bundle {
	length := p.ReadInt32()
	if p.err != nil || length < 0 {
		return nil
	}
	magic := p.ReadInt32()
	if magic != bundleMagic {
		p.Fail(errors.Wrapf(ErrBadParcelable, "parcel: bad bundle magic 0x%x", magic))
		return nil
	}
	raw := p.next(int(length))
	if raw == nil {
		return nil
	}
	return &Bundle{raw: &Parcel{buf: append([]byte(nil), raw...), objects: p.objects}}
}

// WriteTypedList пишет список объектов известного типа: количество, затем маркер и содержимое каждого
func WriteTypedList[T Parcelable](p *Parcel, list []T) {
	if list == nil {
		p.WriteInt32(-1)
		return
	}
	p.WriteInt32(int32(len(list)))
	for _, v := range list {
		p.WriteInt32(1)
		v.WriteToParcel(p)
	}
}

// ReadTypedList читает список, записанный WriteTypedList
func ReadTypedList[T any](p *Parcel, create func(*Parcel) T) []T {
	n := p.ReadInt32()
	if p.err != nil || n < 0 {
		return nil
	}
	if int(n) > p.Available() {
		p.Fail(errors.Wrapf(ErrBadParcelable, "parcel: typed list length %d", n))
		return nil
	}
	list := make([]T, 0, n)
	for i := int32(0); i < n && p.err == nil; i++ {
		if p.ReadInt32() == 0 {
			var zero T
			list = append(list, zero)
			continue
		}
		list = append(list, create(p))
	}
	if p.err != nil {
		return nil
	}
	return list
}

// copyFor создает копию Parcel, видимую из процесса to.
// Локальные binder чужих процессов превращаются в BinderProxy, прокси на binder процесса to
// снова становятся локальными.
func (p *Parcel) copyFor(to *Process) *Parcel {
	q := Obtain()
	q.buf = append(q.buf[:0], p.buf...)
	if len(p.objects) > 0 {
		q.objects = make([]IBinder, len(p.objects))
		for i, obj := range p.objects {
			q.objects[i] = mapBinder(obj, to)
		}
	}
	return q
}

// Transfer сериализует данные через Parcel так, как если бы они пересекли границу процесса.
// Возвращенный Parcel готов к чтению в процессе to, вызывающий должен вызвать Recycle.
func Transfer(to *Process, write func(p *Parcel)) *Parcel {
	src := Obtain()
	defer src.Recycle()
	write(src)
	return src.copyFor(to)
}
