package httpsys

import (
	"sync/atomic"
)

// SafeHandle owns a native resource and releases it exactly once, no matter
// how many times or from how many goroutines Close is called.
type SafeHandle struct {
	released atomic.Bool
	release  func() error
}

// Close releases the resource. Only the first call runs the release function;
// later calls return nil.
func (h *SafeHandle) Close() error {
	if !h.released.CompareAndSwap(false, true) {
		return nil
	}
	if h.release == nil {
		return nil
	}
	return h.release()
}

// IsClosed reports whether Close has been called.
func (h *SafeHandle) IsClosed() bool {
	return h.released.Load()
}

// RequestQueueHandle owns a kernel request queue handle.
type RequestQueueHandle struct {
	SafeHandle
	value uintptr
}

func newRequestQueueHandle(native Native, value uintptr) *RequestQueueHandle {
	h := &RequestQueueHandle{value: value}
	h.release = func() error {
		if status := native.CloseRequestQueue(value); status != ErrorSuccess {
			return statusError("HttpCloseRequestQueue", status)
		}
		return nil
	}
	return h
}

// Value returns the raw handle. It stays valid until Close.
func (h *RequestQueueHandle) Value() uintptr { return h.value }

// ServerSessionHandle owns an HTTP server session id.
type ServerSessionHandle struct {
	SafeHandle
	id uint64
}

func newServerSessionHandle(native Native, id uint64) *ServerSessionHandle {
	h := &ServerSessionHandle{id: id}
	h.release = func() error {
		if status := native.CloseServerSession(id); status != ErrorSuccess {
			return statusError("HttpCloseServerSession", status)
		}
		return nil
	}
	return h
}

// ID returns the server session id.
func (h *ServerSessionHandle) ID() uint64 { return h.id }

// LibraryHandle owns a loaded native module.
type LibraryHandle struct {
	SafeHandle
	value uintptr
}

// NewLibraryHandle wraps a module handle with the function that frees it.
func NewLibraryHandle(value uintptr, free func(uintptr) error) *LibraryHandle {
	h := &LibraryHandle{value: value}
	h.release = func() error {
		if free == nil {
			return nil
		}
		return free(value)
	}
	return h
}

// Value returns the raw module handle.
func (h *LibraryHandle) Value() uintptr { return h.value }
