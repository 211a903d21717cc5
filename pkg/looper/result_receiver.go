package looper

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/arzzra/media_compat/pkg/binder"
)

const (
	resultReceiverDescriptor = "com.android.internal.os.IResultReceiver"
	resultReceiverParcelable = "android.os.ResultReceiver"
)

func init() {
	binder.RegisterCreator(resultReceiverParcelable, func(p *binder.Parcel) binder.Parcelable {
		if r := ResultReceiverFromBinder(p.ReadStrongBinder()); r != nil {
			return r
		}
		return nil
	})
}

// ResultReceiver одноразовый канал ответа.
//
// Первый результат с терминальным кодом завершает получателя: Done закрывается,
// Wait возвращает результат, callback вызывается ровно один раз. Коды, объявленные
// через WithProgressCodes, доставляются в callback, но не завершают получателя;
// после терминального результата они отбрасываются.
type ResultReceiver struct {
	local  *receiverState
	remote binder.IBinder
}

type receiverState struct {
	handler  *Handler
	onResult func(code int, data *binder.Bundle)
	progress map[int]bool
	binder   *binder.Binder

	mu       sync.Mutex
	finished bool
	done     chan struct{}
	code     int
	data     *binder.Bundle
}

// ReceiverOption настройка ResultReceiver
type ReceiverOption func(*receiverState)

// WithProgressCodes объявляет нетерминальные коды результата
func WithProgressCodes(codes ...int) ReceiverOption {
	return func(s *receiverState) {
		for _, c := range codes {
			s.progress[c] = true
		}
	}
}

var _ binder.Parcelable = (*ResultReceiver)(nil)

// NewResultReceiver создает локального получателя. Если h не nil, callback
// выполняется в его Looper, иначе в горутине доставки.
func NewResultReceiver(proc *binder.Process, h *Handler, onResult func(code int, data *binder.Bundle), opts ...ReceiverOption) *ResultReceiver {
	s := &receiverState{
		handler:  h,
		onResult: onResult,
		progress: make(map[int]bool),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.binder = binder.NewBinder(proc, resultReceiverDescriptor, func(ctx context.Context, code uint32, data, reply *binder.Parcel, flags uint32) (bool, error) {
		if code != transactionSend {
			return false, nil
		}
		if err := data.EnforceInterface(resultReceiverDescriptor); err != nil {
			return true, err
		}
		resultCode := int(data.ReadInt32())
		var bundle *binder.Bundle
		if data.ReadInt32() != 0 {
			bundle = data.ReadBundle()
		}
		if err := data.Err(); err != nil {
			return true, errors.Wrap(err, "result receiver: read result")
		}
		s.deliver(resultCode, bundle)
		return true, nil
	})
	return &ResultReceiver{local: s}
}

// ResultReceiverFromBinder оборачивает удаленного получателя
func ResultReceiverFromBinder(b binder.IBinder) *ResultReceiver {
	if b == nil {
		return nil
	}
	return &ResultReceiver{remote: b}
}

// Send отправляет результат. Для удаленного получателя вызов односторонний.
func (r *ResultReceiver) Send(ctx context.Context, code int, data *binder.Bundle) error {
	if r.local != nil {
		r.local.deliver(code, data)
		return nil
	}
	p := binder.Obtain()
	defer p.Recycle()
	p.WriteInterfaceToken(resultReceiverDescriptor)
	p.WriteInt32(int32(code))
	if data != nil {
		p.WriteInt32(1)
		p.WriteBundle(data)
	} else {
		p.WriteInt32(0)
	}
	ok, err := r.remote.Transact(ctx, transactionSend, p, nil, binder.FlagOneway)
	if err != nil {
		return errors.Wrap(err, "result receiver: send")
	}
	if !ok {
		return binder.ErrTransactionFailed
	}
	return nil
}

// Done закрывается при получении терминального результата.
// Для удаленного получателя возвращает nil.
func (r *ResultReceiver) Done() <-chan struct{} {
	if r.local == nil {
		return nil
	}
	return r.local.done
}

// Wait ждет терминальный результат
func (r *ResultReceiver) Wait(ctx context.Context) (int, *binder.Bundle, error) {
	if r.local == nil {
		return 0, nil, errors.New("result receiver: wait on remote receiver")
	}
	select {
	case <-r.local.done:
		return r.local.code, r.local.data, nil
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
}

// Binder возвращает binder получателя
func (r *ResultReceiver) Binder() binder.IBinder {
	if r.local != nil {
		return r.local.binder
	}
	return r.remote
}

func (r *ResultReceiver) ParcelableName() string { return resultReceiverParcelable }

func (r *ResultReceiver) WriteToParcel(p *binder.Parcel) {
	p.WriteStrongBinder(r.Binder())
}

func (s *receiverState) deliver(code int, data *binder.Bundle) {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	if !s.progress[code] {
		s.finished = true
		s.code = code
		s.data = data
		close(s.done)
	}
	s.mu.Unlock()
	s.dispatch(code, data)
}

func (s *receiverState) dispatch(code int, data *binder.Bundle) {
	if s.onResult == nil {
		return
	}
	if s.handler != nil {
		s.handler.Post(func() { s.onResult(code, data) })
		return
	}
	s.onResult(code, data)
}
