package httpsys

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/marmos91/httpsys/pkg/metrics"
)

// DisconnectListener hands out one context per connection id. The context is
// cancelled when the kernel reports that the connection went away.
type DisconnectListener struct {
	queue        *RequestQueue
	native       Native
	log          *slog.Logger
	metrics      *metrics.ListenerMetrics
	onDisconnect func(connectionID uint64)

	connections sync.Map // uint64 -> *connectionCancellation
	tracked     atomic.Int64
}

// DisconnectOption configures a DisconnectListener.
type DisconnectOption func(*DisconnectListener)

// WithDisconnectMetrics records registrations and disconnects in m.
func WithDisconnectMetrics(m *metrics.ListenerMetrics) DisconnectOption {
	return func(l *DisconnectListener) { l.metrics = m }
}

// WithOnDisconnect runs fn on the completion goroutine after a connection's
// context has been cancelled. A panic in fn is recovered and logged.
func WithOnDisconnect(fn func(connectionID uint64)) DisconnectOption {
	return func(l *DisconnectListener) { l.onDisconnect = fn }
}

// NewDisconnectListener creates a listener issuing its waits on queue.
func NewDisconnectListener(queue *RequestQueue, log *slog.Logger, opts ...DisconnectOption) *DisconnectListener {
	l := &DisconnectListener{
		queue:  queue,
		native: queue.api.native,
		log:    orDefault(log, "disconnect_listener"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// connectionCancellation is the per-connection wrapper. Constructing one has
// no side effects; the native wait is issued by the first token call on the
// wrapper that won publication in the map.
type connectionCancellation struct {
	owner        *DisconnectListener
	connectionID uint64

	mu          sync.Mutex
	initialized atomic.Bool
	ctx         context.Context
}

func (c *connectionCancellation) token() (context.Context, error) {
	if c.initialized.Load() {
		return c.ctx, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized.Load() {
		return c.ctx, nil
	}

	ctx, err := c.owner.createDisconnectToken(c)
	if err != nil {
		ctx = context.Background()
	}
	c.ctx = ctx
	c.initialized.Store(true)
	return ctx, err
}

// TokenForConnection returns the disconnect context of connectionID. Every
// caller for the same pending connection gets the same context. If the wait
// cannot be registered the result is context.Background(), which is never
// cancelled.
func (l *DisconnectListener) TokenForConnection(connectionID uint64) context.Context {
	c := l.lookup(connectionID)

	ctx, err := c.token()
	if err != nil {
		l.log.Error("Unable to register for disconnect notifications",
			"event", "disconnect_registration_error",
			"connection_id", connectionID,
			"error", err)
		l.metrics.RecordDisconnectRegistration("failed")
		l.remove(c)
		return context.Background()
	}
	return ctx
}

func (l *DisconnectListener) lookup(connectionID uint64) *connectionCancellation {
	if v, ok := l.connections.Load(connectionID); ok {
		return v.(*connectionCancellation)
	}

	fresh := &connectionCancellation{owner: l, connectionID: connectionID}
	v, loaded := l.connections.LoadOrStore(connectionID, fresh)
	if !loaded {
		l.metrics.SetTrackedConnections(float64(l.tracked.Add(1)))
	}
	return v.(*connectionCancellation)
}

// remove drops c from the map unless a newer wrapper replaced it.
func (l *DisconnectListener) remove(c *connectionCancellation) {
	if l.connections.CompareAndDelete(c.connectionID, c) {
		l.metrics.SetTrackedConnections(float64(l.tracked.Add(-1)))
	}
}

// Tracked returns the number of connections with a wrapper in the map.
func (l *DisconnectListener) Tracked() int {
	return int(l.tracked.Load())
}

func (l *DisconnectListener) createDisconnectToken(c *connectionCancellation) (context.Context, error) {
	connectionID := c.connectionID
	l.log.Debug("Registering connection for disconnect",
		"event", "disconnect_register",
		"connection_id", connectionID)

	ctx, cancel := context.WithCancel(context.Background())

	ov, err := l.queue.BoundHandle().AllocateOverlapped(func(status, bytes uint32, ov *Overlapped) {
		l.handleDisconnect(c, cancel, ov)
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("allocate overlapped: %w", err)
	}

	status, err := l.native.WaitForDisconnect(l.queue.Handle(), connectionID, ov)
	if err != nil {
		ov.Free()
		cancel()
		return nil, fmt.Errorf("wait for disconnect: %w", err)
	}

	switch {
	case status != ErrorIOPending && status != ErrorSuccess:
		// The connection is most likely gone already.
		ov.Free()
		l.remove(c)
		l.log.Debug("Unknown disconnect error",
			"event", "disconnect_unknown_error",
			"connection_id", connectionID,
			"status_code", status,
			"status_text", StatusText(status))
		l.metrics.RecordDisconnectRegistration("immediate")
		cancel()

	case status == ErrorSuccess && l.queue.SkipsCompletionPortOnSuccess():
		// Completed inline and no completion packet will follow.
		ov.Free()
		l.remove(c)
		l.metrics.RecordDisconnectRegistration("immediate")
		cancel()

	case status == ErrorSuccess:
		// Completed inline; the completion packet still runs the callback.
		l.metrics.RecordDisconnectRegistration("completed_inline")

	default:
		l.metrics.RecordDisconnectRegistration("pending")
	}

	return ctx, nil
}

// handleDisconnect runs on a completion goroutine. Nothing may escape it.
func (l *DisconnectListener) handleDisconnect(c *connectionCancellation, cancel context.CancelFunc, ov *Overlapped) {
	defer func() {
		if r := recover(); r != nil {
			l.metrics.RecordHandlerPanic()
			l.log.Error("Disconnect handler error",
				"event", "disconnect_handler_error",
				"connection_id", c.connectionID,
				"panic", fmt.Sprint(r))
		}
	}()

	l.log.Debug("Disconnect triggered",
		"event", "disconnect_triggered",
		"connection_id", c.connectionID)

	ov.Free()
	l.remove(c)
	cancel()
	l.metrics.RecordDisconnect()

	if l.onDisconnect != nil {
		l.onDisconnect(c.connectionID)
	}
}
