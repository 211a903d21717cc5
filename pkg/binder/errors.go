package binder

import (
	"fmt"

	"github.com/pkg/errors"
)

// Коды исключений, которые передаются в слоте исключения ответа.
// Значения совпадают с кодами платформы, так как их читает удаленная сторона.
const (
	ExceptionNone                 int32 = 0
	ExceptionSecurity             int32 = -1
	ExceptionBadParcelable        int32 = -2
	ExceptionIllegalArgument      int32 = -3
	ExceptionNullPointer          int32 = -4
	ExceptionIllegalState         int32 = -5
	ExceptionUnsupportedOperation int32 = -7
	// ExceptionRemote используется для ошибок без известного кода
	ExceptionRemote int32 = -8
)

var (
	// ErrDeadObject возвращается, когда процесс владельца binder уже завершен.
	ErrDeadObject = errors.New("binder: dead object")
	// ErrTransactionFailed возвращается, когда транзакция не была обработана и запасной реализации нет.
	ErrTransactionFailed = errors.New("binder: transaction failed")
	// ErrDefaultImplAlreadySet возвращается при повторной установке запасной реализации.
	ErrDefaultImplAlreadySet = errors.New("setDefaultImpl() called twice")

	ErrSecurity             = errors.New("security violation")
	ErrBadParcelable        = errors.New("bad parcelable")
	ErrIllegalArgument      = errors.New("illegal argument")
	ErrNullPointer          = errors.New("null pointer")
	ErrIllegalState         = errors.New("illegal state")
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrRemote               = errors.New("remote exception")
)

var exceptionSentinels = map[int32]error{
	ExceptionSecurity:             ErrSecurity,
	ExceptionBadParcelable:        ErrBadParcelable,
	ExceptionIllegalArgument:      ErrIllegalArgument,
	ExceptionNullPointer:          ErrNullPointer,
	ExceptionIllegalState:         ErrIllegalState,
	ExceptionUnsupportedOperation: ErrUnsupportedOperation,
	ExceptionRemote:               ErrRemote,
}

// RemoteException ошибка, прочитанная из слота исключения ответа.
// Транзакция при этом выполнилась успешно, ошибку вернул вызываемый метод.
type RemoteException struct {
	Code    int32
	Message string
}

func (e *RemoteException) Error() string {
	return fmt.Sprintf("remote exception %d: %s", e.Code, e.Message)
}

// Unwrap позволяет сравнивать удаленные ошибки через errors.Is с локальными sentinel-ошибками
func (e *RemoteException) Unwrap() error {
	if s, ok := exceptionSentinels[e.Code]; ok {
		return s
	}
	return ErrRemote
}

// ExceptionCode подбирает код исключения для ошибки, которую вернул локальный обработчик.
func ExceptionCode(err error) int32 {
	var re *RemoteException
	if errors.As(err, &re) {
		return re.Code
	}
	for _, code := range []int32{
		ExceptionSecurity,
		ExceptionBadParcelable,
		ExceptionIllegalArgument,
		ExceptionNullPointer,
		ExceptionIllegalState,
		ExceptionUnsupportedOperation,
	} {
		if errors.Is(err, exceptionSentinels[code]) {
			return code
		}
	}
	return ExceptionRemote
}

// IsTransportFailure сообщает, что ошибка относится к механизму транзакций, а не к вызываемому методу.
func IsTransportFailure(err error) bool {
	return errors.Is(err, ErrDeadObject) || errors.Is(err, ErrTransactionFailed)
}
