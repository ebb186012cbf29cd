package config

import (
	"fmt"

	"github.com/marmos91/httpsys/pkg/httpsys"
	"github.com/marmos91/httpsys/pkg/metrics"
)

// ListenerOptions converts the listener section into httpsys options.
func (c *ListenerConfig) ListenerOptions() (httpsys.ListenerOptions, error) {
	mode, err := httpsys.ParseRequestQueueMode(c.QueueMode)
	if err != nil {
		return httpsys.ListenerOptions{}, fmt.Errorf("listener.queue_mode: %w", err)
	}

	verbosity, err := httpsys.ParseVerbosity(c.RejectionVerbosity)
	if err != nil {
		return httpsys.ListenerOptions{}, fmt.Errorf("listener.rejection_verbosity: %w", err)
	}

	prefixes := make([]string, len(c.Prefixes))
	copy(prefixes, c.Prefixes)

	return httpsys.ListenerOptions{
		QueueName:                   c.QueueName,
		QueueMode:                   mode,
		Controller:                  c.Controller,
		Prefixes:                    prefixes,
		MaxConnections:              c.MaxConnections,
		RequestQueueLimit:           c.RequestQueueLimit,
		RejectionVerbosity:          verbosity,
		SkipCompletionPortOnSuccess: c.SkipCompletionPortOnSuccess,
		CompletionWorkers:           c.CompletionWorkers,
	}, nil
}

// InitializeMetrics creates the metrics registry and listener collectors
// when metrics are enabled. It returns nil otherwise, which every recorder
// accepts.
func InitializeMetrics(cfg *Config) *metrics.ListenerMetrics {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return metrics.NewListenerMetrics(metrics.InitRegistry())
}
