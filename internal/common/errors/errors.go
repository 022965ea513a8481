package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrorCode classifies an error for the command handlers.
type ErrorCode string

const (
	// ErrCodeDomain is a business rejection declared by the backend.
	ErrCodeDomain ErrorCode = "DOMAIN_ERROR"
	// ErrCodeTransport means the backend call could not complete.
	ErrCodeTransport ErrorCode = "TRANSPORT_ERROR"
	// ErrCodeInvalidArgument is a caller-side precondition violation.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeTimeout means an awaited human response did not arrive.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeCheckFailure means the invoker is not allowed to run the command here.
	ErrCodeCheckFailure ErrorCode = "CHECK_FAILURE"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
)

// Domain status values reported by the attendance endpoints.
const (
	StatusError           = "error"
	StatusExistAttendance = "exist_attendance"
	StatusMaxKeyCount     = "max_key_count"
	StatusInsufficientKey = "insufficient_key"
)

// AppError is the typed error shared by the backend client and the command handlers.
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Status    string                 `json:"status,omitempty"`
	Message   string                 `json:"message"`
	Level     zerolog.Level          `json:"-"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Stack     []string               `json:"stack,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	if e.Status != "" {
		return fmt.Sprintf("[%s/%s] %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// UserFacing reports whether Message may be shown to the invoker verbatim.
func (e *AppError) UserFacing() bool {
	switch e.Code {
	case ErrCodeDomain, ErrCodeNotFound, ErrCodeCheckFailure:
		return e.Message != ""
	}
	return false
}

// WithDetail attaches a structured detail to the error.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithStack records the current call stack.
func (e *AppError) WithStack() *AppError {
	e.Stack = getStackTrace()
	return e
}

// New creates an application error logged at warn level by default.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Level:     zerolog.WarnLevel,
		Timestamp: time.Now(),
	}
}

// Wrap creates an application error with an underlying cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

func getStackTrace() []string {
	var stack []string
	for i := 2; ; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		if strings.Contains(fn.Name(), "internal/common/errors") {
			continue
		}
		stack = append(stack, fmt.Sprintf("%s:%d %s", file, line, fn.Name()))
		if len(stack) >= 10 {
			break
		}
	}
	return stack
}

// NewDomainError creates a backend-declared business rejection. Level drives the log severity.
func NewDomainError(level zerolog.Level, status, message string) *AppError {
	e := New(ErrCodeDomain, message)
	e.Status = status
	e.Level = level
	return e
}

// NewTransportError wraps a failed round trip to the backend.
func NewTransportError(method, path string, err error) *AppError {
	return Wrap(err, ErrCodeTransport, fmt.Sprintf("%s %s failed", method, path)).
		WithDetail("method", method).
		WithDetail("path", path)
}

func NewInvalidArgument(field, reason string) *AppError {
	return New(ErrCodeInvalidArgument, fmt.Sprintf("invalid argument '%s': %s", field, reason)).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

// NewTimeoutError reports that the awaited response did not arrive before its deadline.
func NewTimeoutError(what string, after time.Duration) *AppError {
	e := New(ErrCodeTimeout, fmt.Sprintf("%s timed out after %s", what, after))
	e.Level = zerolog.InfoLevel
	return e
}

// NewCheckFailure carries the fixed access-denied text for a command group.
func NewCheckFailure(message string) *AppError {
	e := New(ErrCodeCheckFailure, message)
	e.Level = zerolog.DebugLevel
	return e
}

func NewNotFound(message string) *AppError {
	e := New(ErrCodeNotFound, message)
	e.Level = zerolog.InfoLevel
	return e
}

// AsAppError unwraps err into an AppError if it carries one.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if err != nil && stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func hasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

func IsTimeout(err error) bool      { return hasCode(err, ErrCodeTimeout) }
func IsTransport(err error) bool    { return hasCode(err, ErrCodeTransport) }
func IsCheckFailure(err error) bool { return hasCode(err, ErrCodeCheckFailure) }
func IsInvalidArgument(err error) bool {
	return hasCode(err, ErrCodeInvalidArgument)
}

// HasStatus reports whether err is a DomainError with the given status.
func HasStatus(err error, status string) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == ErrCodeDomain && appErr.Status == status
}
