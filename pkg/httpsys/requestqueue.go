package httpsys

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/marmos91/httpsys/pkg/metrics"
)

// RequestQueueMode selects how a RequestQueue obtains its kernel queue.
type RequestQueueMode int

const (
	// RequestQueueCreate creates a new queue. Fails if a queue with the
	// same name already exists.
	RequestQueueCreate RequestQueueMode = iota
	// RequestQueueAttach opens an existing named queue.
	RequestQueueAttach
	// RequestQueueCreateOrAttach creates the queue, or attaches when it
	// already exists.
	RequestQueueCreateOrAttach
)

func (m RequestQueueMode) String() string {
	switch m {
	case RequestQueueCreate:
		return "create"
	case RequestQueueAttach:
		return "attach"
	case RequestQueueCreateOrAttach:
		return "create_or_attach"
	default:
		return "unknown"
	}
}

// ParseRequestQueueMode parses create, attach or create_or_attach.
func ParseRequestQueueMode(s string) (RequestQueueMode, error) {
	switch strings.ToLower(strings.ReplaceAll(s, "-", "_")) {
	case "create", "":
		return RequestQueueCreate, nil
	case "attach":
		return RequestQueueAttach, nil
	case "create_or_attach", "createorattach":
		return RequestQueueCreateOrAttach, nil
	default:
		return RequestQueueCreate, fmt.Errorf("unknown request queue mode %q", s)
	}
}

// RequestQueueOptions configures NewRequestQueue.
type RequestQueueOptions struct {
	// Name of the queue. Empty creates an anonymous queue; attaching needs a name.
	Name string

	Mode RequestQueueMode

	// Controller creates the queue as a controller queue: this process owns
	// its configuration while worker processes attach to receive requests.
	Controller bool

	// SkipCompletionPortOnSuccess suppresses completion packets for
	// operations that complete synchronously.
	SkipCompletionPortOnSuccess bool

	// CompletionWorkers is the number of goroutines dispatching completions.
	// Zero uses runtime.NumCPU().
	CompletionWorkers int

	Metrics *metrics.ListenerMetrics
}

// RequestQueue is a kernel request queue bound to a completion port.
type RequestQueue struct {
	api           *API
	name          string
	mode          RequestQueueMode
	created       bool
	skipOnSuccess bool

	handle *RequestQueueHandle
	bound  *BoundHandle
	log    *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// NewRequestQueue creates or attaches to a request queue according to
// opts.Mode and binds it to a completion port.
func NewRequestQueue(api *API, opts RequestQueueOptions, log *slog.Logger) (*RequestQueue, error) {
	if err := api.ensureSupported(); err != nil {
		return nil, err
	}
	log = orDefault(log, "request_queue")

	mode := opts.Mode
	created := mode != RequestQueueAttach

	flags := CreateQueueFlagNone
	if !created {
		flags = CreateQueueFlagOpenExisting
	}
	if opts.Controller && created {
		flags |= CreateQueueFlagController
	}

	raw, status := api.native.CreateRequestQueue(api.version, opts.Name, flags)
	if mode == RequestQueueCreateOrAttach && status == ErrorAlreadyExists {
		created = false
		flags = CreateQueueFlagOpenExisting
		raw, status = api.native.CreateRequestQueue(api.version, opts.Name, flags)
	}

	switch {
	case status == ErrorSuccess:
	case flags&CreateQueueFlagOpenExisting != 0 && status == ErrorFileNotFound:
		opts.Metrics.RecordQueueOpen(mode.String(), "not_found")
		return nil, NewError(status, "Failed to attach to the given request queue '%s', the queue could not be found.", opts.Name)
	case status == ErrorInvalidName:
		opts.Metrics.RecordQueueOpen(mode.String(), "invalid_name")
		return nil, NewError(status, "The given request queue name '%s' is invalid.", opts.Name)
	default:
		opts.Metrics.RecordQueueOpen(mode.String(), "error")
		return nil, statusError("HttpCreateRequestQueue", status)
	}

	handle := newRequestQueueHandle(api.native, raw)

	if opts.SkipCompletionPortOnSuccess {
		if err := api.native.SetFileCompletionNotificationModes(raw, SkipCompletionPortOnSuccess|SkipSetEventOnHandle); err != nil {
			closeErr := handle.Close()
			opts.Metrics.RecordQueueOpen(mode.String(), "error")
			return nil, errors.Join(fmt.Errorf("failed to set file completion notification modes: %w", err), closeErr)
		}
	}

	bound, err := BindHandle(api.native, raw, opts.CompletionWorkers, log)
	if err != nil {
		closeErr := handle.Close()
		opts.Metrics.RecordQueueOpen(mode.String(), "error")
		return nil, errors.Join(err, closeErr)
	}

	if created {
		opts.Metrics.RecordQueueOpen(mode.String(), "created")
		log.Debug("Request queue created", "queue_name", opts.Name, "queue_mode", mode.String())
	} else {
		opts.Metrics.RecordQueueOpen(mode.String(), "attached")
		log.Info("Attached to an existing request queue", "queue_name", opts.Name, "queue_mode", mode.String())
	}

	return &RequestQueue{
		api:           api,
		name:          opts.Name,
		mode:          mode,
		created:       created,
		skipOnSuccess: opts.SkipCompletionPortOnSuccess,
		handle:        handle,
		bound:         bound,
		log:           log,
	}, nil
}

// Name returns the queue name, empty for anonymous queues.
func (q *RequestQueue) Name() string { return q.name }

// Mode returns the mode the queue was opened with.
func (q *RequestQueue) Mode() RequestQueueMode { return q.mode }

// Created reports whether this instance created the kernel queue, as opposed
// to attaching to an existing one.
func (q *RequestQueue) Created() bool { return q.created }

// Handle returns the raw queue handle.
func (q *RequestQueue) Handle() uintptr { return q.handle.Value() }

// BoundHandle returns the completion port binding of the queue.
func (q *RequestQueue) BoundHandle() *BoundHandle { return q.bound }

// SkipsCompletionPortOnSuccess reports whether synchronously completed
// operations skip the completion port.
func (q *RequestQueue) SkipsCompletionPortOnSuccess() bool { return q.skipOnSuccess }

// IsClosed reports whether Close has been called.
func (q *RequestQueue) IsClosed() bool { return q.handle.IsClosed() }

// SetLengthLimit sets the maximum number of requests the kernel queues
// before rejecting with 503.
func (q *RequestQueue) SetLengthLimit(length uint32) error {
	if err := q.checkConfigurable(); err != nil {
		return err
	}
	return q.setProperty(QueueLengthLimit(length))
}

// SetRejectionVerbosity sets how much detail 503 rejections carry.
func (q *RequestQueue) SetRejectionVerbosity(verbosity Verbosity) error {
	if err := q.checkConfigurable(); err != nil {
		return err
	}
	return q.setProperty(RejectionVerbosity(verbosity))
}

func (q *RequestQueue) checkConfigurable() error {
	if q.handle.IsClosed() {
		return ErrClosed
	}
	if !q.created {
		return ErrQueueNotCreated
	}
	return nil
}

func (q *RequestQueue) setProperty(info PropertyInfo) error {
	status := q.api.native.SetRequestQueueProperty(q.handle.Value(), info)
	if status != ErrorSuccess {
		return statusError("HttpSetRequestQueueProperty("+info.Property().String()+")", status)
	}
	return nil
}

// Close releases the completion port binding, then the queue handle. The
// binding goes first so no completion runs against a closed queue handle.
func (q *RequestQueue) Close() error {
	q.closeOnce.Do(func() {
		var errs []error
		if err := q.bound.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := q.handle.Close(); err != nil {
			errs = append(errs, err)
		}
		q.closeErr = errors.Join(errs...)
		if q.closeErr != nil {
			q.log.Warn("Request queue closed with errors", "queue_name", q.name, "error", q.closeErr)
		}
	})
	return q.closeErr
}
