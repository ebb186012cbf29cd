package httpsys

import (
	"sync/atomic"
)

// CompletionCallback runs on a completion worker when an overlapped
// operation finishes. status is the native completion status.
type CompletionCallback func(status uint32, bytes uint32, ov *Overlapped)

// Overlapped is an owned native OVERLAPPED structure allocated from a
// BoundHandle. It stays pinned in the bound handle until Free is called.
//
// The native field must stay first: completion ports hand back a pointer to
// it, which is converted back to the enclosing Overlapped.
type Overlapped struct {
	native   nativeOverlapped
	callback CompletionCallback
	owner    *BoundHandle
	freed    atomic.Bool
}

// Free unpins the overlapped from its bound handle. Only the first call has
// an effect.
func (o *Overlapped) Free() {
	if !o.freed.CompareAndSwap(false, true) {
		return
	}
	if o.owner != nil {
		o.owner.release(o)
	}
}

// IsFreed reports whether Free has been called.
func (o *Overlapped) IsFreed() bool {
	return o.freed.Load()
}
