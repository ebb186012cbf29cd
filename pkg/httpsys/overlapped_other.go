//go:build !windows

package httpsys

// nativeOverlapped mirrors the OVERLAPPED layout so Overlapped has the same
// shape on every platform.
type nativeOverlapped struct {
	Internal     uintptr
	InternalHigh uintptr
	Offset       uint32
	OffsetHigh   uint32
	HEvent       uintptr
}
