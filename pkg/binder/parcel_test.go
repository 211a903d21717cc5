package binder

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testParcelable struct {
	Name  string
	Count int32
}

const testParcelableName = "test.TestParcelable"

func (t *testParcelable) ParcelableName() string { return testParcelableName }

func (t *testParcelable) WriteToParcel(p *Parcel) {
	p.WriteString(t.Name)
	p.WriteInt32(t.Count)
}

func readTestParcelable(p *Parcel) *testParcelable {
	return &testParcelable{Name: p.ReadString(), Count: p.ReadInt32()}
}

func init() {
	RegisterCreator(testParcelableName, func(p *Parcel) Parcelable { return readTestParcelable(p) })
}

type unknownParcelable struct{}

func (unknownParcelable) ParcelableName() string  { return "test.NotRegistered" }
func (unknownParcelable) WriteToParcel(p *Parcel) { p.WriteInt32(7) }

func TestParcel_Primitives(t *testing.T) {
	p := Obtain()
	defer p.Recycle()

	p.WriteInt32(-5)
	p.WriteInt64(1 << 40)
	p.WriteFloat32(1.5)
	p.WriteFloat64(-2.25)
	p.WriteBool(true)
	p.WriteString("привет")
	p.WriteCharSequence("title")
	p.WriteByteArray([]byte{1, 2, 3})
	p.WriteStringArray([]string{"a", "b"})
	p.WriteByteArray(nil)

	p.SetPosition(0)
	assert.Equal(t, int32(-5), p.ReadInt32())
	assert.Equal(t, int64(1<<40), p.ReadInt64())
	assert.Equal(t, float32(1.5), p.ReadFloat32())
	assert.Equal(t, -2.25, p.ReadFloat64())
	assert.True(t, p.ReadBool())
	assert.Equal(t, "привет", p.ReadString())
	assert.Equal(t, "title", p.ReadCharSequence())
	assert.Equal(t, []byte{1, 2, 3}, p.ReadByteArray())
	assert.Equal(t, []string{"a", "b"}, p.ReadStringArray())
	assert.Nil(t, p.ReadByteArray())
	require.NoError(t, p.Err())
	assert.Equal(t, 0, p.Available())
}

func TestParcel_StickyError(t *testing.T) {
	p := Obtain()
	defer p.Recycle()
	p.WriteInt32(1)
	p.SetPosition(0)

	assert.Equal(t, int32(1), p.ReadInt32())
	assert.Equal(t, int64(0), p.ReadInt64())
	require.Error(t, p.Err())
	assert.True(t, errors.Is(p.Err(), ErrBadParcelable))

	// после ошибки все чтения возвращают нулевые значения
	assert.Equal(t, "", p.ReadString())
	assert.Equal(t, int32(0), p.ReadInt32())
}

func TestParcel_InterfaceToken(t *testing.T) {
	tests := []struct {
		name    string
		written string
		wantErr bool
	}{
		{name: "Совпадающий дескриптор", written: "iface.A", wantErr: false},
		{name: "Чужой дескриптор", written: "iface.B", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Obtain()
			defer p.Recycle()
			p.WriteInterfaceToken(tt.written)
			p.SetPosition(0)
			err := p.EnforceInterface("iface.A")
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrSecurity))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestParcel_Exception(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		code     int32
	}{
		{name: "IllegalArgument", err: errors.Wrap(ErrIllegalArgument, "empty id"), sentinel: ErrIllegalArgument, code: ExceptionIllegalArgument},
		{name: "UnsupportedOperation", err: ErrUnsupportedOperation, sentinel: ErrUnsupportedOperation, code: ExceptionUnsupportedOperation},
		{name: "Security", err: errors.Wrap(ErrSecurity, "untrusted"), sentinel: ErrSecurity, code: ExceptionSecurity},
		{name: "Неизвестная ошибка", err: errors.New("boom"), sentinel: ErrRemote, code: ExceptionRemote},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Obtain()
			defer p.Recycle()
			p.WriteException(tt.err)
			p.SetPosition(0)

			err := p.ReadException()
			require.Error(t, err)
			var re *RemoteException
			require.True(t, errors.As(err, &re))
			assert.Equal(t, tt.code, re.Code)
			assert.True(t, errors.Is(err, tt.sentinel))
		})
	}

	p := Obtain()
	defer p.Recycle()
	p.WriteNoException()
	p.SetPosition(0)
	assert.NoError(t, p.ReadException())
}

func TestParcel_TypedList(t *testing.T) {
	p := Obtain()
	defer p.Recycle()

	in := []*testParcelable{{Name: "a", Count: 1}, {Name: "b", Count: 2}}
	WriteTypedList(p, in)
	WriteTypedList[*testParcelable](p, nil)
	p.SetPosition(0)

	out := ReadTypedList(p, readTestParcelable)
	assert.Equal(t, in, out)
	assert.Nil(t, ReadTypedList(p, readTestParcelable))
	require.NoError(t, p.Err())
}

func TestParcel_Parcelable(t *testing.T) {
	p := Obtain()
	defer p.Recycle()

	p.WriteParcelable(&testParcelable{Name: "x", Count: 3})
	p.WriteParcelable(nil)
	p.SetPosition(0)

	v := p.ReadParcelable()
	require.IsType(t, &testParcelable{}, v)
	assert.Equal(t, "x", v.(*testParcelable).Name)
	assert.Nil(t, p.ReadParcelable())

	q := Obtain()
	defer q.Recycle()
	q.WriteParcelable(unknownParcelable{})
	q.SetPosition(0)
	assert.Nil(t, q.ReadParcelable())
	assert.True(t, errors.Is(q.Err(), ErrBadParcelable))
}

func TestParcel_TransferMapsBinders(t *testing.T) {
	a := NewProcess(100, 10100, "com.example.a")
	b := NewProcess(200, 10200, "com.example.b")
	local := NewBinder(a, "iface.X", nil)

	in := Transfer(b, func(p *Parcel) { p.WriteStrongBinder(local) })
	got := in.ReadStrongBinder()
	in.Recycle()

	require.IsType(t, BinderProxy{}, got)
	assert.Nil(t, got.QueryLocalInterface("iface.X"))

	// при возврате в процесс-владелец прокси снова становится локальным binder
	back := Transfer(a, func(p *Parcel) { p.WriteStrongBinder(got) })
	assert.Same(t, local, back.ReadStrongBinder())
	back.Recycle()
}
