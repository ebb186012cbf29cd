package httpsys

import (
	"errors"
	"log/slog"
	"sync"
)

// DelegationRule routes requests that arrive on a listener's queue for one
// prefix to the named queue of another process.
type DelegationRule struct {
	queueName string
	prefix    string

	source   *URLGroup
	queue    *RequestQueue
	urlGroup *URLGroup
	log      *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// DelegationStatus describes a delegation rule.
type DelegationStatus struct {
	QueueName string `json:"queue_name" yaml:"queue_name"`
	Prefix    string `json:"prefix" yaml:"prefix"`
}

// newDelegationRule attaches to queueName, looks up the url group routing
// prefix to it and enables delegation from source.
func newDelegationRule(api *API, source *URLGroup, queueName, prefix string, workers int, log *slog.Logger) (*DelegationRule, error) {
	if !api.SupportsDelegation() {
		return nil, ErrNotSupported
	}
	log = orDefault(log, "delegation_rule")

	queue, err := NewRequestQueue(api, RequestQueueOptions{
		Name:              queueName,
		Mode:              RequestQueueAttach,
		CompletionWorkers: workers,
	}, log)
	if err != nil {
		return nil, err
	}

	group, err := FindURLGroup(queue, prefix, log)
	if err != nil {
		return nil, errors.Join(err, queue.Close())
	}

	if err := source.SetDelegationProperty(queue); err != nil {
		return nil, errors.Join(err, group.Close(), queue.Close())
	}

	log.Info("Delegation rule created", "queue_name", queueName, "url_prefix", prefix)

	return &DelegationRule{
		queueName: queueName,
		prefix:    prefix,
		source:    source,
		queue:     queue,
		urlGroup:  group,
		log:       log,
	}, nil
}

// QueueName returns the destination queue name.
func (r *DelegationRule) QueueName() string { return r.queueName }

// Prefix returns the delegated url prefix.
func (r *DelegationRule) Prefix() string { return r.prefix }

// Queue returns the attached destination queue.
func (r *DelegationRule) Queue() *RequestQueue { return r.queue }

// URLGroup returns the destination url group.
func (r *DelegationRule) URLGroup() *URLGroup { return r.urlGroup }

// Status returns a description of the rule.
func (r *DelegationRule) Status() DelegationStatus {
	return DelegationStatus{QueueName: r.queueName, Prefix: r.prefix}
}

// Close withdraws delegation, then releases the destination url group and
// queue. Safe to call more than once.
func (r *DelegationRule) Close() error {
	r.closeOnce.Do(func() {
		_ = r.source.UnSetDelegationProperty(r.queue, false)
		r.closeErr = errors.Join(r.urlGroup.Close(), r.queue.Close())
		r.log.Debug("Delegation rule closed", "queue_name", r.queueName, "url_prefix", r.prefix)
	})
	return r.closeErr
}
