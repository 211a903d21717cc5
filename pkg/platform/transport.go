package platform

import (
	"context"
	"log/slog"
	"reflect"

	"github.com/pkg/errors"

	"github.com/arzzra/media_compat/pkg/binder"
)

// Нативные интерфейсы передают операцию по имени и аргументы в Bundle.
// Формат нативного транспорта для слоя совместимости непрозрачен.
const (
	transactionCall  = binder.FirstCallTransaction
	transactionEvent = binder.FirstCallTransaction + 1
)

type opHandler func(ctx context.Context, op string, args *binder.Bundle) (*binder.Bundle, error)

func newOpBinder(proc *binder.Process, descriptor string, handle opHandler) *binder.Binder {
	return binder.NewBinder(proc, descriptor, func(ctx context.Context, code uint32, data, reply *binder.Parcel, flags uint32) (bool, error) {
		if code != transactionCall && code != transactionEvent {
			return false, nil
		}
		if err := data.EnforceInterface(descriptor); err != nil {
			return true, err
		}
		op := data.ReadString()
		args := data.ReadBundle()
		if err := data.Err(); err != nil {
			return true, errors.Wrapf(err, "%s: read %s", descriptor, op)
		}
		out, err := handle(ctx, op, args)
		if err != nil {
			return true, err
		}
		if reply != nil {
			reply.WriteNoException()
			reply.WriteBundle(out)
		}
		return true, nil
	})
}

func callOp(ctx context.Context, remote binder.IBinder, descriptor, op string, args *binder.Bundle) (*binder.Bundle, error) {
	data := binder.Obtain()
	reply := binder.Obtain()
	defer data.Recycle()
	defer reply.Recycle()

	data.WriteInterfaceToken(descriptor)
	data.WriteString(op)
	data.WriteBundle(args)
	ok, err := remote.Transact(ctx, transactionCall, data, reply, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "%s.%s", descriptor, op)
	}
	if !ok {
		return nil, errors.Wrapf(binder.ErrTransactionFailed, "%s.%s", descriptor, op)
	}
	if err := reply.ReadException(); err != nil {
		return nil, err
	}
	out := reply.ReadBundle()
	return out, reply.Err()
}

func sendEvent(ctx context.Context, remote binder.IBinder, descriptor, op string, args *binder.Bundle) error {
	data := binder.Obtain()
	defer data.Recycle()

	data.WriteInterfaceToken(descriptor)
	data.WriteString(op)
	data.WriteBundle(args)
	ok, err := remote.Transact(ctx, transactionEvent, data, nil, binder.FlagOneway)
	if err != nil {
		return errors.Wrapf(err, "%s.%s", descriptor, op)
	}
	if !ok {
		return errors.Wrapf(binder.ErrTransactionFailed, "%s.%s", descriptor, op)
	}
	return nil
}

// binderRef IInterface поверх удаленного binder, нужен для CallbackList
type binderRef struct {
	b binder.IBinder
}

func (r binderRef) AsBinder() binder.IBinder { return r.b }

func logOpFailure(op string, err error) {
	slog.Warn("platform: native call failed",
		slog.String("op", op),
		slog.String("error", err.Error()))
}

func bundleOf(kv ...any) *binder.Bundle {
	b := binder.NewBundle()
	for i := 0; i+1 < len(kv); i += 2 {
		key := kv[i].(string)
		if isNil(kv[i+1]) {
			continue
		}
		switch v := kv[i+1].(type) {
		case string:
			b.PutString(key, v)
		case int:
			b.PutInt(key, v)
		case int64:
			b.PutLong(key, v)
		case float32:
			b.PutFloat(key, v)
		case bool:
			b.PutBool(key, v)
		case *binder.Bundle:
			b.PutBundle(key, v)
		case binder.IBinder:
			b.PutBinder(key, v)
		case binder.Parcelable:
			b.PutParcelable(key, v)
		case []binder.Parcelable:
			b.PutParcelableList(key, v)
		default:
			panic(errors.Errorf("platform: unsupported argument %T for %s", v, key))
		}
	}
	return b
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}
