package looper

import (
	"context"

	"github.com/pkg/errors"

	"github.com/arzzra/media_compat/pkg/binder"
)

const (
	// MessengerDescriptor дескриптор интерфейса Messenger
	MessengerDescriptor = "android.os.IMessenger"
	messengerParcelable = "android.os.Messenger"

	transactionSend = binder.FirstCallTransaction
)

func init() {
	binder.RegisterCreator(messengerParcelable, func(p *binder.Parcel) binder.Parcelable {
		if m := MessengerFromBinder(p.ReadStrongBinder()); m != nil {
			return m
		}
		return nil
	})
}

// Messenger односторонний канал сообщений поверх binder.
// Полученные сообщения ставятся в очередь Handler получателя.
type Messenger struct {
	binder binder.IBinder
}

var _ binder.Parcelable = (*Messenger)(nil)

// NewMessenger создает Messenger, доставляющий сообщения в h
func NewMessenger(proc *binder.Process, h *Handler) *Messenger {
	b := binder.NewBinder(proc, MessengerDescriptor, func(ctx context.Context, code uint32, data, reply *binder.Parcel, flags uint32) (bool, error) {
		if code != transactionSend {
			return false, nil
		}
		if err := data.EnforceInterface(MessengerDescriptor); err != nil {
			return true, err
		}
		msg := readMessage(data)
		if err := data.Err(); err != nil {
			return true, errors.Wrap(err, "messenger: read message")
		}
		msg.SendingUID = binder.CallingIdentity(ctx).UID
		h.SendMessage(msg)
		return true, nil
	})
	return &Messenger{binder: b}
}

// MessengerFromBinder оборачивает удаленный binder
func MessengerFromBinder(b binder.IBinder) *Messenger {
	if b == nil {
		return nil
	}
	return &Messenger{binder: b}
}

func (m *Messenger) Binder() binder.IBinder {
	return m.binder
}

// Equal сравнивает Messenger по binder
func (m *Messenger) Equal(other *Messenger) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.binder == other.binder
}

// Send отправляет сообщение. Вызов односторонний и не ждет обработки.
func (m *Messenger) Send(ctx context.Context, msg *Message) error {
	data := binder.Obtain()
	defer data.Recycle()
	data.WriteInterfaceToken(MessengerDescriptor)
	writeMessage(data, msg)
	ok, err := m.binder.Transact(ctx, transactionSend, data, nil, binder.FlagOneway)
	if err != nil {
		return errors.Wrap(err, "messenger: send")
	}
	if !ok {
		return binder.ErrTransactionFailed
	}
	return nil
}

func (m *Messenger) ParcelableName() string { return messengerParcelable }

func (m *Messenger) WriteToParcel(p *binder.Parcel) {
	p.WriteStrongBinder(m.binder)
}

func writeMessage(p *binder.Parcel, msg *Message) {
	p.WriteInt32(int32(msg.What))
	p.WriteInt32(int32(msg.Arg1))
	p.WriteInt32(int32(msg.Arg2))
	p.WriteBundle(msg.Data)
	if msg.ReplyTo != nil {
		p.WriteStrongBinder(msg.ReplyTo.binder)
	} else {
		p.WriteStrongBinder(nil)
	}
}

func readMessage(p *binder.Parcel) *Message {
	msg := &Message{
		What: int(p.ReadInt32()),
		Arg1: int(p.ReadInt32()),
		Arg2: int(p.ReadInt32()),
	}
	msg.Data = p.ReadBundle()
	msg.ReplyTo = MessengerFromBinder(p.ReadStrongBinder())
	return msg
}
