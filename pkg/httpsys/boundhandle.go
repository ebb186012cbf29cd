package httpsys

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
)

// BoundHandle is a native handle bound to a completion port, with a pool of
// worker goroutines dispatching completions to the callbacks of the
// overlapped structures allocated from it.
type BoundHandle struct {
	port CompletionPort
	log  *slog.Logger

	mu      sync.Mutex
	pending map[*Overlapped]struct{}

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
	workers   sync.WaitGroup
}

// BindHandle binds handle to a new completion port and starts workers
// dispatch goroutines. workers <= 0 uses runtime.NumCPU().
func BindHandle(native Native, handle uintptr, workers int, log *slog.Logger) (*BoundHandle, error) {
	port, err := native.BindCompletionPort(handle)
	if err != nil {
		return nil, fmt.Errorf("bind handle to completion port: %w", err)
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if log == nil {
		log = componentLogger("bound_handle")
	}

	b := &BoundHandle{
		port:    port,
		log:     log,
		pending: make(map[*Overlapped]struct{}),
	}
	b.workers.Add(workers)
	for i := 0; i < workers; i++ {
		go b.run()
	}
	return b, nil
}

// AllocateOverlapped returns an overlapped structure whose completion will be
// delivered to cb. The structure is pinned until Free.
func (b *BoundHandle) AllocateOverlapped(cb CompletionCallback) (*Overlapped, error) {
	if b.closed.Load() {
		return nil, ErrBoundHandleClosed
	}
	ov := &Overlapped{callback: cb, owner: b}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed.Load() {
		return nil, ErrBoundHandleClosed
	}
	b.pending[ov] = struct{}{}
	return ov, nil
}

// Pending returns the number of overlapped structures not yet freed.
func (b *BoundHandle) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

func (b *BoundHandle) release(ov *Overlapped) {
	b.mu.Lock()
	delete(b.pending, ov)
	b.mu.Unlock()
}

// IsClosed reports whether Close has been called.
func (b *BoundHandle) IsClosed() bool { return b.closed.Load() }

// Close closes the completion port and waits for every dispatch goroutine to
// return. No callback runs after Close returns. Overlapped structures still
// owned by the kernel stay referenced until the bound native handle itself is
// closed.
func (b *BoundHandle) Close() error {
	b.closeOnce.Do(func() {
		b.closed.Store(true)
		b.closeErr = b.port.Close()
		b.workers.Wait()
	})
	return b.closeErr
}

func (b *BoundHandle) run() {
	defer b.workers.Done()
	for {
		c, ok := b.port.Dequeue()
		if !ok {
			return
		}
		if b.closed.Load() {
			continue
		}
		b.dispatch(c)
	}
}

// dispatch invokes the completion callback. A panic in the callback is logged
// and swallowed so it cannot stop the worker.
func (b *BoundHandle) dispatch(c Completion) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("Completion callback panicked",
				"event", "completion_callback_panic",
				"status_code", c.Status,
				"panic", fmt.Sprint(r))
		}
	}()

	if c.Overlapped == nil || c.Overlapped.callback == nil {
		return
	}
	c.Overlapped.callback(c.Status, c.Bytes, c.Overlapped)
}
