// Package compaterr структурированные ошибки слоя совместимости.
package compaterr

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/arzzra/media_compat/pkg/binder"
)

// ErrorCategory категории ошибок для классификации
type ErrorCategory string

const (
	// Отказ механизма транзакций: процесс собеседника мертв или транзакция не обработана
	ErrorCategoryTransport ErrorCategory = "TRANSPORT"
	// Нарушение протокола: неверный дескриптор, поврежденная нагрузка
	ErrorCategoryProtocol ErrorCategory = "PROTOCOL"
	// Ошибка логики вызываемой стороны
	ErrorCategoryApplication ErrorCategory = "APPLICATION"
	// Нарушение предусловий на стороне вызывающего
	ErrorCategoryPrecondition ErrorCategory = "PRECONDITION"
	// Нарушение целостности данных, обработка продолжается
	ErrorCategoryIntegrity ErrorCategory = "INTEGRITY"
)

func (ec ErrorCategory) String() string {
	return string(ec)
}

// ErrorSeverity уровни критичности ошибок
type ErrorSeverity string

const (
	ErrorSeverityError   ErrorSeverity = "ERROR"   // Операция не может быть выполнена
	ErrorSeverityWarning ErrorSeverity = "WARNING" // Операция продолжается
)

func (es ErrorSeverity) String() string {
	return string(es)
}

// CompatError структурированная ошибка с контекстом
type CompatError struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Category  ErrorCategory          `json:"category"`
	Severity  ErrorSeverity          `json:"severity"`
	Timestamp time.Time              `json:"timestamp"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Cause     error                  `json:"cause,omitempty"`
}

func (e *CompatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap позволяет использовать errors.Is и errors.As
func (e *CompatError) Unwrap() error {
	return e.Cause
}

// WithField добавляет поле контекста
func (e *CompatError) WithField(key string, value interface{}) *CompatError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

// WithCause задает исходную ошибку
func (e *CompatError) WithCause(cause error) *CompatError {
	e.Cause = cause
	return e
}

// New создает ошибку
func New(code, message string, category ErrorCategory, severity ErrorSeverity) *CompatError {
	return &CompatError{
		Code:      code,
		Message:   message,
		Category:  category,
		Severity:  severity,
		Timestamp: time.Now(),
		Fields:    make(map[string]interface{}),
	}
}

// ErrIllegalArgument пустой или отсутствующий обязательный аргумент
func ErrIllegalArgument(operation, message string) *CompatError {
	return New("ILLEGAL_ARGUMENT", message, ErrorCategoryPrecondition, ErrorSeverityError).
		WithCause(binder.ErrIllegalArgument).
		WithField("operation", operation)
}

// ErrIllegalState вызов в неподходящем состоянии
func ErrIllegalState(operation, state string) *CompatError {
	return New("ILLEGAL_STATE",
		fmt.Sprintf("%s() called while not connected (state=%s)", operation, state),
		ErrorCategoryPrecondition, ErrorSeverityError).
		WithCause(binder.ErrIllegalState).
		WithField("operation", operation).
		WithField("state", state)
}

// ErrUnsupportedOperation сессия не поддерживает операцию
func ErrUnsupportedOperation(operation, reason string) *CompatError {
	return New("UNSUPPORTED_OPERATION", reason, ErrorCategoryPrecondition, ErrorSeverityError).
		WithCause(binder.ErrUnsupportedOperation).
		WithField("operation", operation)
}

// ErrUntrustedCaller вызывающий не имеет права управлять сессией
func ErrUntrustedCaller(pkg string, pid, uid int) *CompatError {
	return New("UNTRUSTED_CALLER",
		fmt.Sprintf("caller %s (pid=%d, uid=%d) is not trusted for media control", pkg, pid, uid),
		ErrorCategoryPrecondition, ErrorSeverityError).
		WithCause(binder.ErrSecurity).
		WithField("package", pkg).
		WithField("pid", pid).
		WithField("uid", uid)
}

// ErrTransport отказ механизма транзакций
func ErrTransport(operation string, cause error) *CompatError {
	return New("TRANSPORT_FAILURE",
		fmt.Sprintf("transaction %s failed", operation),
		ErrorCategoryTransport, ErrorSeverityError).
		WithCause(cause).
		WithField("operation", operation)
}

// ErrDuplicateQueueID повторяющийся id в очереди; только предупреждение
func ErrDuplicateQueueID(id int64) *CompatError {
	return New("DUPLICATE_QUEUE_ID",
		fmt.Sprintf("Found duplicate queue id: %d", id),
		ErrorCategoryIntegrity, ErrorSeverityWarning).
		WithField("queue_id", id)
}

// IsTransport проверяет, что ошибка вызвана отказом механизма транзакций
func IsTransport(err error) bool {
	if GetErrorCategory(err) == ErrorCategoryTransport {
		return true
	}
	return binder.IsTransportFailure(err)
}

// IsPrecondition проверяет, что ошибка вызвана нарушением предусловий
func IsPrecondition(err error) bool {
	return GetErrorCategory(err) == ErrorCategoryPrecondition
}

// GetErrorCode извлекает код ошибки
func GetErrorCode(err error) string {
	var ce *CompatError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return "UNKNOWN_ERROR"
}

// GetErrorCategory извлекает категорию ошибки
func GetErrorCategory(err error) ErrorCategory {
	var ce *CompatError
	if errors.As(err, &ce) {
		return ce.Category
	}
	if errors.Is(err, binder.ErrBadParcelable) || errors.Is(err, binder.ErrSecurity) {
		return ErrorCategoryProtocol
	}
	if binder.IsTransportFailure(err) {
		return ErrorCategoryTransport
	}
	return ErrorCategoryApplication
}
