//go:build windows

package httpsys

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

type nativeOverlapped = windows.Overlapped

// raw returns the pointer handed to the kernel.
func (o *Overlapped) raw() *windows.Overlapped {
	return &o.native
}

// overlappedFromRaw recovers the Overlapped that owns a kernel pointer.
func overlappedFromRaw(ov *windows.Overlapped) *Overlapped {
	return (*Overlapped)(unsafe.Pointer(ov))
}
