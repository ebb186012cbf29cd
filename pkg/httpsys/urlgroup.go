package httpsys

import (
	"errors"
	"fmt"
	"log/slog"
	"os/user"
	"sync"
)

// URLGroup is a set of url prefixes routed to one request queue.
//
// A group created by NewURLGroup is owned by this process and closed on
// Close. A group found with FindURLGroup belongs to whoever created it, so
// Close only forgets the id.
type URLGroup struct {
	api     *API
	queue   *RequestQueue
	created bool
	log     *slog.Logger

	mu sync.Mutex
	id uint64
}

// NewURLGroup creates a url group under session for queue.
func NewURLGroup(session *ServerSession, queue *RequestQueue, log *slog.Logger) (*URLGroup, error) {
	api := session.api
	id, status := api.native.CreateURLGroup(session.ID())
	if status != ErrorSuccess {
		return nil, statusError("HttpCreateUrlGroup", status)
	}
	if id == 0 {
		return nil, NewError(ErrorInvalidHandleValue, "HttpCreateUrlGroup returned an invalid url group id")
	}

	log = orDefault(log, "url_group")
	log.Debug("Url group created", "url_group_id", id, "session_id", session.ID())

	return &URLGroup{api: api, queue: queue, created: true, log: log, id: id}, nil
}

// FindURLGroup looks up the group that routes prefix to queue. The group is
// not owned by the caller.
func FindURLGroup(queue *RequestQueue, prefix string, log *slog.Logger) (*URLGroup, error) {
	id, status := queue.api.native.FindURLGroupID(prefix, queue.Handle())
	if status != ErrorSuccess {
		return nil, statusError("HttpFindUrlGroupId", status)
	}

	log = orDefault(log, "url_group")
	log.Debug("Url group found", "url_group_id", id, "url_prefix", prefix)

	return &URLGroup{api: queue.api, queue: queue, created: false, log: log, id: id}, nil
}

// ID returns the url group id, zero after Close.
func (g *URLGroup) ID() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.id
}

// Created reports whether this process created the group.
func (g *URLGroup) Created() bool { return g.created }

// SetMaxConnections limits concurrent connections for the group. A negative
// value removes the limit.
func (g *URLGroup) SetMaxConnections(max int64) error {
	limit := LimitInfinite
	if max >= 0 {
		if max >= int64(LimitInfinite) {
			return NewError(ErrorInvalidParameter, "max connections %d is out of range", max)
		}
		limit = uint32(max)
	}
	return g.setProperty(QosConnectionLimit{Flags: PropertyFlagPresent, MaxConnections: limit}, true)
}

// AttachToQueue routes the group's prefixes to its request queue.
func (g *URLGroup) AttachToQueue() error {
	return g.setProperty(BindingInfo{Flags: PropertyFlagPresent, QueueHandle: g.queue.Handle()}, true)
}

// DetachFromQueue removes the queue binding. Failures are logged only, since
// this runs while tearing down.
func (g *URLGroup) DetachFromQueue() {
	_ = g.setProperty(BindingInfo{}, false)
}

// SetDelegationProperty lets requests for this group be delegated to
// destination.
func (g *URLGroup) SetDelegationProperty(destination *RequestQueue) error {
	return g.setProperty(DelegationInfo{Flags: PropertyFlagPresent, QueueHandle: destination.Handle()}, true)
}

// UnSetDelegationProperty withdraws delegation to destination. With
// throwOnError false a failure is only logged.
func (g *URLGroup) UnSetDelegationProperty(destination *RequestQueue, throwOnError bool) error {
	return g.setProperty(DelegationInfo{QueueHandle: destination.Handle()}, throwOnError)
}

func (g *URLGroup) setProperty(info PropertyInfo, throwOnError bool) error {
	id := g.ID()
	if id == 0 {
		if throwOnError {
			return ErrClosed
		}
		return nil
	}

	status := g.api.native.SetURLGroupProperty(id, info)
	if status == ErrorSuccess {
		return nil
	}

	err := statusError("HttpSetUrlGroupProperty("+info.Property().String()+")", status)
	g.log.Error("Failed to set url group property",
		"url_group_id", id,
		"property", info.Property().String(),
		"status_code", status,
		"status_text", StatusText(status))
	if throwOnError {
		return err
	}
	return nil
}

// RegisterPrefix adds prefix to the group. contextID is handed back by the
// kernel with every request matching the prefix.
//
// When the queue was attached rather than created, a prefix already routed to
// the same queue by its owner counts as registered.
func (g *URLGroup) RegisterPrefix(prefix string, contextID uint64) error {
	id := g.ID()
	if id == 0 {
		return ErrClosed
	}

	g.log.Debug("Registering url prefix", "url_prefix", prefix, "url_group_id", id)
	status := g.api.native.AddURLToURLGroup(id, prefix, contextID)
	switch status {
	case ErrorSuccess:
		return nil
	case ErrorAlreadyExists:
		if !g.queue.Created() {
			if _, found := g.api.native.FindURLGroupID(prefix, g.queue.Handle()); found == ErrorSuccess {
				g.log.Debug("Url prefix already registered on attached queue", "url_prefix", prefix)
				return nil
			}
		}
		return NewError(status, "The prefix '%s' is already registered.", prefix)
	case ErrorAccessDenied:
		return NewError(status,
			"Access denied when registering the prefix '%s'. Run as administrator or reserve the prefix with 'netsh http add urlacl url=%s user=%s'.",
			prefix, prefix, currentUsername())
	default:
		return statusError(fmt.Sprintf("HttpAddUrlToUrlGroup(%s)", prefix), status)
	}
}

// UnregisterPrefix removes prefix from the group. It reports whether the
// removal succeeded.
func (g *URLGroup) UnregisterPrefix(prefix string) bool {
	id := g.ID()
	if id == 0 {
		return false
	}

	g.log.Debug("Unregistering url prefix", "url_prefix", prefix, "url_group_id", id)
	status := g.api.native.RemoveURLFromURLGroup(id, prefix)
	return status == ErrorSuccess
}

// Close closes the group if this process created it. Safe to call repeatedly.
func (g *URLGroup) Close() error {
	g.mu.Lock()
	id := g.id
	g.id = 0
	g.mu.Unlock()

	if id == 0 || !g.created {
		return nil
	}

	if status := g.api.native.CloseURLGroup(id); status != ErrorSuccess {
		err := statusError("HttpCloseUrlGroup", status)
		g.log.Error("Failed to close url group", "url_group_id", id, "error", err)
		return err
	}
	return nil
}

func currentUsername() string {
	u, err := user.Current()
	if err != nil || u.Username == "" {
		return "<user>"
	}
	return u.Username
}

// IsPrefixConflict reports whether err came from registering a prefix that
// another group already owns.
func IsPrefixConflict(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}
