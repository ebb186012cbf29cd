package httpsys

import (
	"errors"
	"fmt"
)

// Native status codes interpreted by this package. Values match winerror.h.
const (
	ErrorSuccess            uint32 = 0
	ErrorFileNotFound       uint32 = 2
	ErrorAccessDenied       uint32 = 5
	ErrorSharingViolation   uint32 = 32
	ErrorHandleEOF          uint32 = 38
	ErrorNotSupported       uint32 = 50
	ErrorInvalidParameter   uint32 = 87
	ErrorInvalidName        uint32 = 123
	ErrorAlreadyExists      uint32 = 183
	ErrorMoreData           uint32 = 234
	ErrorOperationAborted   uint32 = 995
	ErrorIOPending          uint32 = 997
	ErrorNotFound           uint32 = 1168
	ErrorConnectionInvalid  uint32 = 1229
	ErrorAbandonedWait0     uint32 = 735
	ErrorInvalidHandleValue uint32 = 6
)

var statusNames = map[uint32]string{
	ErrorSuccess:            "ERROR_SUCCESS",
	ErrorFileNotFound:       "ERROR_FILE_NOT_FOUND",
	ErrorAccessDenied:       "ERROR_ACCESS_DENIED",
	ErrorInvalidHandleValue: "ERROR_INVALID_HANDLE",
	ErrorSharingViolation:   "ERROR_SHARING_VIOLATION",
	ErrorHandleEOF:          "ERROR_HANDLE_EOF",
	ErrorNotSupported:       "ERROR_NOT_SUPPORTED",
	ErrorInvalidParameter:   "ERROR_INVALID_PARAMETER",
	ErrorInvalidName:        "ERROR_INVALID_NAME",
	ErrorAlreadyExists:      "ERROR_ALREADY_EXISTS",
	ErrorMoreData:           "ERROR_MORE_DATA",
	ErrorAbandonedWait0:     "ERROR_ABANDONED_WAIT_0",
	ErrorOperationAborted:   "ERROR_OPERATION_ABORTED",
	ErrorIOPending:          "ERROR_IO_PENDING",
	ErrorNotFound:           "ERROR_NOT_FOUND",
	ErrorConnectionInvalid:  "ERROR_CONNECTION_INVALID",
}

// StatusText returns the symbolic name of a native status code.
func StatusText(code uint32) string {
	if name, ok := statusNames[code]; ok {
		return name
	}
	return fmt.Sprintf("0x%08X", code)
}

// Sentinel errors.
var (
	// ErrNotSupported is returned when the HTTP Server API is not available
	// on this platform or could not be initialized.
	ErrNotSupported = errors.New("httpsys: HTTP Server API is not supported on this platform")

	// ErrClosed is returned by operations on a closed component.
	ErrClosed = errors.New("httpsys: use of closed resource")

	// ErrQueueNotCreated is returned when a queue-wide property is mutated on
	// a queue this process attached to instead of creating.
	ErrQueueNotCreated = errors.New("httpsys: request queue was not created by this instance")

	// ErrEntryPointNotFound reports a native entry point missing from httpapi.dll.
	ErrEntryPointNotFound = errors.New("httpsys: entry point not found")

	// ErrBoundHandleClosed is returned when allocating overlapped I/O on a
	// bound handle that has been closed.
	ErrBoundHandleClosed = errors.New("httpsys: bound handle is closed")

	// Status-code sentinels usable with errors.Is.
	ErrAlreadyExists = &Error{code: ErrorAlreadyExists}
	ErrFileNotFound  = &Error{code: ErrorFileNotFound}
	ErrAccessDenied  = &Error{code: ErrorAccessDenied}
	ErrInvalidName   = &Error{code: ErrorInvalidName}
)

// Error is a failure reported by the HTTP Server API. It carries the native
// status code so callers can log or switch on it.
type Error struct {
	code    uint32
	message string
}

// NewError creates an Error for a native status code. An empty message uses
// the symbolic name of the code.
func NewError(code uint32, format string, args ...any) *Error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{code: code, message: msg}
}

// statusError builds a generic Error for an unrecognized failure of op.
func statusError(op string, code uint32) *Error {
	return &Error{
		code:    code,
		message: fmt.Sprintf("%s failed with %s (%d)", op, StatusText(code), code),
	}
}

// Code returns the native status code.
func (e *Error) Code() uint32 { return e.code }

// Message returns the human-readable message without the status suffix.
func (e *Error) Message() string {
	if e.message == "" {
		return StatusText(e.code)
	}
	return e.message
}

func (e *Error) Error() string {
	if e.message == "" {
		return fmt.Sprintf("httpsys: %s (%d)", StatusText(e.code), e.code)
	}
	return fmt.Sprintf("httpsys: %s (status %d)", e.message, e.code)
}

// Is matches any *Error with the same status code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.code == e.code
}

// StatusCode extracts the native status code from err. The second result is
// false when err does not carry one.
func StatusCode(err error) (uint32, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.code, true
	}
	return 0, false
}
