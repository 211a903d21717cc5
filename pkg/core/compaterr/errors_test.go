package compaterr

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/arzzra/media_compat/pkg/binder"
)

func TestCompatError_Classification(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category ErrorCategory
		sentinel error
		code     int32
	}{
		{
			name:     "Пустой аргумент",
			err:      ErrIllegalArgument("getItem", "mediaId is empty"),
			category: ErrorCategoryPrecondition,
			sentinel: binder.ErrIllegalArgument,
			code:     binder.ExceptionIllegalArgument,
		},
		{
			name:     "Операция не поддерживается",
			err:      ErrUnsupportedOperation("addQueueItem", "queue commands not supported"),
			category: ErrorCategoryPrecondition,
			sentinel: binder.ErrUnsupportedOperation,
			code:     binder.ExceptionUnsupportedOperation,
		},
		{
			name:     "Недоверенный вызывающий",
			err:      ErrUntrustedCaller("com.example", 1, 2),
			category: ErrorCategoryPrecondition,
			sentinel: binder.ErrSecurity,
			code:     binder.ExceptionSecurity,
		},
		{
			name:     "Мертвый процесс",
			err:      ErrTransport("play", binder.ErrDeadObject),
			category: ErrorCategoryTransport,
			sentinel: binder.ErrDeadObject,
			code:     binder.ExceptionRemote,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.category, GetErrorCategory(tt.err))
			assert.True(t, errors.Is(tt.err, tt.sentinel))
			assert.Equal(t, tt.code, binder.ExceptionCode(tt.err))
		})
	}
}

func TestCompatError_Helpers(t *testing.T) {
	assert.True(t, IsTransport(binder.ErrDeadObject))
	assert.True(t, IsTransport(errors.Wrap(binder.ErrTransactionFailed, "x")))
	assert.False(t, IsTransport(ErrIllegalState("search", "disconnected")))
	assert.True(t, IsPrecondition(ErrIllegalState("search", "disconnected")))

	assert.Equal(t, ErrorCategoryProtocol, GetErrorCategory(errors.Wrap(binder.ErrBadParcelable, "x")))
	assert.Equal(t, ErrorCategoryApplication, GetErrorCategory(errors.New("x")))
	assert.Equal(t, "UNKNOWN_ERROR", GetErrorCode(errors.New("x")))

	dup := ErrDuplicateQueueID(5)
	assert.Equal(t, ErrorSeverityWarning, dup.Severity)
	assert.Equal(t, int64(5), dup.Fields["queue_id"])
}
