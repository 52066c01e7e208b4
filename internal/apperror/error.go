package apperror

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"
)

// AppError is the error type returned across module boundaries. Callers
// branch on Code with HasCode; Context names the token, pool or transaction
// involved.
type AppError struct {
	Code      Code      `json:"code"`
	Message   string    `json:"message"`
	Context   string    `json:"context,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	cause     error
	stack     []uintptr
}

func (e *AppError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Code))
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Context != "" {
		sb.WriteString(" [")
		sb.WriteString(e.Context)
		sb.WriteString("]")
	}
	if e.cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.cause.Error())
	}
	return sb.String()
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// Is matches any AppError carrying the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// LogValue renders the error as a group when passed to slog.
func (e *AppError) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("code", string(e.Code)),
		slog.String("message", e.Message),
	}
	if e.Context != "" {
		attrs = append(attrs, slog.String("context", e.Context))
	}
	if e.cause != nil {
		attrs = append(attrs, slog.String("cause", e.cause.Error()))
	}
	if frame, ok := e.origin(); ok {
		attrs = append(attrs, slog.String("origin", fmt.Sprintf("%s:%d", frame.File, frame.Line)))
	}
	return slog.GroupValue(attrs...)
}

// Stack returns the call stack captured at construction, one frame per line.
func (e *AppError) Stack() string {
	var sb strings.Builder
	frames := runtime.CallersFrames(e.stack)
	for {
		frame, more := frames.Next()
		if frame.Function != "" && !strings.HasPrefix(frame.Function, "runtime.") {
			fmt.Fprintf(&sb, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		}
		if !more {
			break
		}
	}
	return sb.String()
}

func (e *AppError) origin() (runtime.Frame, bool) {
	if len(e.stack) == 0 {
		return runtime.Frame{}, false
	}
	frame, _ := runtime.CallersFrames(e.stack[:1]).Next()
	return frame, frame.File != ""
}

// Option configures an AppError.
type Option func(*AppError)

// WithMessage overrides the catalog message.
func WithMessage(message string) Option {
	return func(e *AppError) { e.Message = message }
}

// WithContext names what the error is about.
func WithContext(context string) Option {
	return func(e *AppError) { e.Context = context }
}

// WithCause wraps an underlying error.
func WithCause(cause error) Option {
	return func(e *AppError) { e.cause = cause }
}

// New builds an AppError for code. The message comes from the catalog
// unless overridden; codes missing from it use the code itself.
func New(code Code, opts ...Option) *AppError {
	err := &AppError{
		Code:      code,
		Message:   messages[code],
		Timestamp: time.Now(),
		stack:     captureStack(),
	}
	for _, opt := range opts {
		opt(err)
	}
	if err.Message == "" {
		err.Message = string(code)
	}
	return err
}

// NotFound reports a missing token, pool or path.
func NotFound(code Code, context string) *AppError {
	return New(code, WithContext(context))
}

// Wrap converts err into an AppError. An AppError already in the chain is
// returned as is, gaining context if it had none.
func Wrap(err error, code Code, context string) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		if context != "" && appErr.Context == "" {
			appErr.Context = context
		}
		return appErr
	}
	return New(code, WithContext(context), WithCause(err))
}

// GetCode returns the outermost AppError code in err's chain.
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknownError
}

// HasCode reports whether any AppError in err's chain carries code.
func HasCode(err error, code Code) bool {
	return errors.Is(err, &AppError{Code: code})
}

func captureStack() []uintptr {
	var pcs [32]uintptr
	// skip runtime.Callers, captureStack and New
	n := runtime.Callers(3, pcs[:])
	return pcs[:n]
}
