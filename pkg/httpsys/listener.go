package httpsys

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"

	"github.com/marmos91/httpsys/internal/telemetry"
	"github.com/marmos91/httpsys/pkg/metrics"
)

// ListenerState is the lifecycle state of a Listener.
type ListenerState int

const (
	ListenerStopped ListenerState = iota
	ListenerStarted
	ListenerClosed
)

func (s ListenerState) String() string {
	switch s {
	case ListenerStopped:
		return "stopped"
	case ListenerStarted:
		return "started"
	case ListenerClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ListenerOptions configures a Listener.
type ListenerOptions struct {
	// QueueName names the request queue. Required for attach modes.
	QueueName string
	QueueMode RequestQueueMode

	// Controller creates the queue as a controller queue.
	Controller bool

	// Prefixes are the url prefixes routed to the queue, for example
	// "http://+:8080/app/". A missing trailing slash is added.
	Prefixes []string

	// MaxConnections caps concurrent connections. Zero keeps the kernel
	// default, a negative value removes the limit.
	MaxConnections int64

	// RequestQueueLimit is the number of requests the kernel queues before
	// answering 503. Zero keeps the kernel default.
	RequestQueueLimit uint32

	// RejectionVerbosity controls the detail of 503 responses.
	RejectionVerbosity Verbosity

	SkipCompletionPortOnSuccess bool
	CompletionWorkers           int
}

// ListenerOption configures optional collaborators of a Listener.
type ListenerOption func(*Listener)

// WithMetrics records listener and disconnect metrics in m.
func WithMetrics(m *metrics.ListenerMetrics) ListenerOption {
	return func(l *Listener) { l.metrics = m }
}

// WithDisconnectHandler runs fn whenever a tracked connection disconnects.
func WithDisconnectHandler(fn func(connectionID uint64)) ListenerOption {
	return func(l *Listener) { l.onDisconnect = fn }
}

// ListenerStatus is a point-in-time description of a Listener.
type ListenerStatus struct {
	ID                 string             `json:"id" yaml:"id"`
	State              string             `json:"state" yaml:"state"`
	QueueName          string             `json:"queue_name" yaml:"queue_name"`
	QueueMode          string             `json:"queue_mode" yaml:"queue_mode"`
	QueueCreated       bool               `json:"queue_created" yaml:"queue_created"`
	Prefixes           []string           `json:"prefixes" yaml:"prefixes"`
	TrackedConnections int                `json:"tracked_connections" yaml:"tracked_connections"`
	PendingOverlapped  int                `json:"pending_overlapped" yaml:"pending_overlapped"`
	DelegationRules    []DelegationStatus `json:"delegation_rules" yaml:"delegation_rules"`
	StartedAt          *time.Time         `json:"started_at,omitempty" yaml:"started_at,omitempty"`
}

// Listener owns a server session, a request queue, the url group routing its
// prefixes to that queue and the disconnect listener of the queue.
type Listener struct {
	id           string
	api          *API
	opts         ListenerOptions
	log          *slog.Logger
	metrics      *metrics.ListenerMetrics
	onDisconnect func(connectionID uint64)

	session     *ServerSession
	queue       *RequestQueue
	urlGroup    *URLGroup
	disconnects *DisconnectListener

	mu        sync.Mutex
	state     ListenerState
	startedAt time.Time
	rules     []*DelegationRule
}

// NewListener builds the session, queue, url group and disconnect listener.
// Anything already built is closed again if a later step fails.
func NewListener(api *API, opts ListenerOptions, log *slog.Logger, options ...ListenerOption) (*Listener, error) {
	prefixes, err := normalizePrefixes(opts.Prefixes)
	if err != nil {
		return nil, err
	}
	opts.Prefixes = prefixes

	if opts.QueueMode != RequestQueueCreate && opts.QueueName == "" {
		return nil, NewError(ErrorInvalidName, "a request queue name is required to %s", strings.ReplaceAll(opts.QueueMode.String(), "_", " "))
	}

	id := uuid.New().String()
	l := &Listener{
		id:   id,
		api:  api,
		opts: opts,
		log:  orDefault(log, "listener").With("listener_id", id),
	}
	for _, o := range options {
		o(l)
	}

	l.session, err = NewServerSession(api, l.log)
	if err != nil {
		return nil, fmt.Errorf("create server session: %w", err)
	}

	l.queue, err = NewRequestQueue(api, RequestQueueOptions{
		Name:                        opts.QueueName,
		Mode:                        opts.QueueMode,
		Controller:                  opts.Controller,
		SkipCompletionPortOnSuccess: opts.SkipCompletionPortOnSuccess,
		CompletionWorkers:           opts.CompletionWorkers,
		Metrics:                     l.metrics,
	}, l.log)
	if err != nil {
		return nil, errors.Join(err, l.session.Close())
	}

	l.urlGroup, err = NewURLGroup(l.session, l.queue, l.log)
	if err != nil {
		return nil, errors.Join(err, l.queue.Close(), l.session.Close())
	}

	l.disconnects = NewDisconnectListener(l.queue, l.log,
		WithDisconnectMetrics(l.metrics),
		WithOnDisconnect(l.onDisconnect))

	l.metrics.SetStarted(false)
	return l, nil
}

func normalizePrefixes(prefixes []string) ([]string, error) {
	out := make([]string, 0, len(prefixes))
	seen := make(map[string]struct{}, len(prefixes))
	for _, p := range prefixes {
		p = strings.TrimSpace(p)
		if !strings.HasSuffix(p, "/") {
			p += "/"
		}
		lower := strings.ToLower(p)
		if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
			return nil, NewError(ErrorInvalidParameter, "invalid url prefix %q: scheme must be http or https", p)
		}
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

// ID returns the listener instance id.
func (l *Listener) ID() string { return l.id }

// API returns the API the listener was built on.
func (l *Listener) API() *API { return l.api }

// Queue returns the listener's request queue.
func (l *Listener) Queue() *RequestQueue { return l.queue }

// URLGroup returns the listener's url group.
func (l *Listener) URLGroup() *URLGroup { return l.urlGroup }

// Session returns the listener's server session.
func (l *Listener) Session() *ServerSession { return l.session }

// Disconnects returns the disconnect listener bound to the queue.
func (l *Listener) Disconnects() *DisconnectListener { return l.disconnects }

// Prefixes returns the normalized url prefixes.
func (l *Listener) Prefixes() []string {
	return append([]string(nil), l.opts.Prefixes...)
}

// State returns the current lifecycle state.
func (l *Listener) State() ListenerState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// DisconnectToken returns the disconnect context of connectionID.
func (l *Listener) DisconnectToken(connectionID uint64) context.Context {
	return l.disconnects.TokenForConnection(connectionID)
}

// Start routes the prefixes to the queue. When the queue was attached, its
// creator owns the configuration and Start only marks the listener started.
func (l *Listener) Start(ctx context.Context) error {
	ctx, span := telemetry.StartListenerSpan(ctx, "start", l.id,
		telemetry.QueueName(l.opts.QueueName),
		telemetry.QueueMode(l.opts.QueueMode.String()),
		telemetry.QueueCreated(l.queue.Created()),
		telemetry.URLPrefixes(l.opts.Prefixes))
	defer span.End()

	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case ListenerClosed:
		return ErrClosed
	case ListenerStarted:
		return nil
	}

	if l.queue.Created() {
		if err := l.configure(); err != nil {
			telemetry.RecordError(ctx, err)
			l.log.Error("Listener failed to start", "error", err)
			return err
		}
	} else {
		l.log.Info("Request queue attached, url group configuration is left to its owner",
			"queue_name", l.opts.QueueName)
	}

	l.state = ListenerStarted
	l.startedAt = time.Now()
	l.metrics.SetStarted(true)
	span.SetStatus(codes.Ok, "")
	l.log.Info("Listener started", "queue_name", l.opts.QueueName, "prefixes", len(l.opts.Prefixes))
	return nil
}

func (l *Listener) configure() error {
	if err := l.urlGroup.AttachToQueue(); err != nil {
		return err
	}

	if err := l.applyLimits(); err != nil {
		l.urlGroup.DetachFromQueue()
		return err
	}

	for i, prefix := range l.opts.Prefixes {
		if err := l.urlGroup.RegisterPrefix(prefix, uint64(i+1)); err != nil {
			l.metrics.RecordPrefixRegistration("failed")
			for _, registered := range l.opts.Prefixes[:i] {
				l.urlGroup.UnregisterPrefix(registered)
			}
			l.urlGroup.DetachFromQueue()
			return err
		}
		l.metrics.RecordPrefixRegistration("registered")
	}
	return nil
}

func (l *Listener) applyLimits() error {
	if l.opts.MaxConnections != 0 {
		if err := l.urlGroup.SetMaxConnections(l.opts.MaxConnections); err != nil {
			return err
		}
	}
	if l.opts.RequestQueueLimit != 0 {
		if err := l.queue.SetLengthLimit(l.opts.RequestQueueLimit); err != nil {
			return err
		}
	}
	if l.opts.RejectionVerbosity != VerbosityBasic {
		if err := l.queue.SetRejectionVerbosity(l.opts.RejectionVerbosity); err != nil {
			return err
		}
	}
	return nil
}

// Stop withdraws the prefixes and unbinds the url group from the queue. It
// returns ErrClosed after Close, and ctx.Err() without touching the url
// group when ctx is already done; Close still tears everything down then.
func (l *Listener) Stop(ctx context.Context) error {
	ctx, span := telemetry.StartListenerSpan(ctx, "stop", l.id)
	defer span.End()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == ListenerClosed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		telemetry.RecordError(ctx, err)
		return err
	}
	l.stopLocked()
	return nil
}

func (l *Listener) stopLocked() {
	if l.state != ListenerStarted {
		return
	}

	if l.queue.Created() {
		for _, prefix := range l.opts.Prefixes {
			if l.urlGroup.UnregisterPrefix(prefix) {
				l.metrics.RecordPrefixRegistration("unregistered")
			}
		}
		l.urlGroup.DetachFromQueue()
	}

	l.state = ListenerStopped
	l.startedAt = time.Time{}
	l.metrics.SetStarted(false)
	l.log.Info("Listener stopped", "queue_name", l.opts.QueueName)
}

// CreateDelegationRule delegates requests for prefix to the queue named
// queueName, owned by another process.
func (l *Listener) CreateDelegationRule(ctx context.Context, queueName, prefix string) (*DelegationRule, error) {
	ctx, span := telemetry.StartDelegationSpan(ctx, "create", queueName, prefix)
	defer span.End()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == ListenerClosed {
		return nil, ErrClosed
	}

	rule, err := newDelegationRule(l.api, l.urlGroup, queueName, prefix, l.opts.CompletionWorkers, l.log)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}
	l.rules = append(l.rules, rule)
	return rule, nil
}

// DelegationRules returns the rules created by this listener.
func (l *Listener) DelegationRules() []*DelegationRule {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*DelegationRule(nil), l.rules...)
}

// Status returns a snapshot of the listener.
func (l *Listener) Status() ListenerStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	st := ListenerStatus{
		ID:                 l.id,
		State:              l.state.String(),
		QueueName:          l.opts.QueueName,
		QueueMode:          l.opts.QueueMode.String(),
		QueueCreated:       l.queue.Created(),
		Prefixes:           append([]string(nil), l.opts.Prefixes...),
		TrackedConnections: l.disconnects.Tracked(),
		PendingOverlapped:  l.queue.BoundHandle().Pending(),
		DelegationRules:    make([]DelegationStatus, 0, len(l.rules)),
	}
	for _, r := range l.rules {
		st.DelegationRules = append(st.DelegationRules, r.Status())
	}
	if !l.startedAt.IsZero() {
		started := l.startedAt
		st.StartedAt = &started
	}
	return st
}

// Close stops the listener, closes its delegation rules and releases the
// queue, url group and session in that order. Safe to call more than once.
func (l *Listener) Close() error {
	_, span := telemetry.StartListenerSpan(context.Background(), "close", l.id)
	defer span.End()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == ListenerClosed {
		return nil
	}

	l.stopLocked()

	var errs []error
	for _, r := range l.rules {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	l.rules = nil

	if err := l.queue.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := l.urlGroup.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := l.session.Close(); err != nil {
		errs = append(errs, err)
	}

	l.state = ListenerClosed
	l.log.Info("Listener closed", "queue_name", l.opts.QueueName)
	return errors.Join(errs...)
}
