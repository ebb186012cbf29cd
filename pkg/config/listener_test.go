package config

import (
	"testing"

	"github.com/marmos91/httpsys/pkg/httpsys"
)

func TestListenerOptions(t *testing.T) {
	cfg := ListenerConfig{
		QueueName:                   "frontend",
		QueueMode:                   "create_or_attach",
		Controller:                  true,
		Prefixes:                    []string{"http://+:8080/"},
		MaxConnections:              100,
		RequestQueueLimit:           500,
		RejectionVerbosity:          "full",
		SkipCompletionPortOnSuccess: true,
		CompletionWorkers:           3,
	}

	opts, err := cfg.ListenerOptions()
	if err != nil {
		t.Fatalf("ListenerOptions failed: %v", err)
	}

	if opts.QueueMode != httpsys.RequestQueueCreateOrAttach {
		t.Errorf("Expected create_or_attach mode, got %v", opts.QueueMode)
	}
	if opts.RejectionVerbosity != httpsys.VerbosityFull {
		t.Errorf("Expected full verbosity, got %v", opts.RejectionVerbosity)
	}
	if opts.QueueName != "frontend" || !opts.Controller || !opts.SkipCompletionPortOnSuccess {
		t.Errorf("Unexpected options: %+v", opts)
	}
	if opts.MaxConnections != 100 || opts.RequestQueueLimit != 500 || opts.CompletionWorkers != 3 {
		t.Errorf("Unexpected limits: %+v", opts)
	}

	// The options own their prefix slice.
	opts.Prefixes[0] = "http://changed/"
	if cfg.Prefixes[0] != "http://+:8080/" {
		t.Error("Expected config prefixes to be copied")
	}
}

func TestListenerOptions_InvalidValues(t *testing.T) {
	if _, err := (&ListenerConfig{QueueMode: "borrow"}).ListenerOptions(); err == nil {
		t.Error("Expected error for unknown queue mode")
	}
	if _, err := (&ListenerConfig{QueueMode: "create", RejectionVerbosity: "loud"}).ListenerOptions(); err == nil {
		t.Error("Expected error for unknown verbosity")
	}
}

func TestInitializeMetrics_Disabled(t *testing.T) {
	if m := InitializeMetrics(&Config{}); m != nil {
		t.Error("Expected nil metrics when disabled")
	}
}
