package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for HTTP.sys operations.
const (
	// ========================================================================
	// Request queue attributes
	// ========================================================================
	AttrQueueName    = "httpsys.queue.name"
	AttrQueueMode    = "httpsys.queue.mode"
	AttrQueueCreated = "httpsys.queue.created"

	// ========================================================================
	// Url group attributes
	// ========================================================================
	AttrURLGroupID  = "httpsys.url_group.id"
	AttrURLPrefix   = "httpsys.url.prefix"
	AttrURLPrefixes = "httpsys.url.prefixes"

	// ========================================================================
	// Listener attributes
	// ========================================================================
	AttrListenerID    = "httpsys.listener.id"
	AttrListenerState = "httpsys.listener.state"

	// ========================================================================
	// Native call attributes
	// ========================================================================
	AttrStatusCode   = "httpsys.status.code"
	AttrStatusText   = "httpsys.status.text"
	AttrConnectionID = "httpsys.connection.id"
)

// Span names for operations.
// Format: <component>.<operation>
const (
	SpanListenerStart = "listener.start"
	SpanListenerStop  = "listener.stop"
	SpanListenerClose = "listener.close"

	SpanDelegationCreate = "delegation.create"
)

// ============================================================================
// Attribute helpers
// ============================================================================

// QueueName returns an attribute for a request queue name.
func QueueName(name string) attribute.KeyValue {
	return attribute.String(AttrQueueName, name)
}

// QueueMode returns an attribute for the request queue open mode.
func QueueMode(mode string) attribute.KeyValue {
	return attribute.String(AttrQueueMode, mode)
}

// QueueCreated returns an attribute telling whether the queue was created.
func QueueCreated(created bool) attribute.KeyValue {
	return attribute.Bool(AttrQueueCreated, created)
}

// URLGroupID returns an attribute for a url group id, in hex.
func URLGroupID(id uint64) attribute.KeyValue {
	return attribute.String(AttrURLGroupID, fmt.Sprintf("%016x", id))
}

// URLPrefix returns an attribute for a single url prefix.
func URLPrefix(prefix string) attribute.KeyValue {
	return attribute.String(AttrURLPrefix, prefix)
}

// URLPrefixes returns an attribute for a set of url prefixes.
func URLPrefixes(prefixes []string) attribute.KeyValue {
	return attribute.StringSlice(AttrURLPrefixes, prefixes)
}

// ListenerID returns an attribute for a listener instance id.
func ListenerID(id string) attribute.KeyValue {
	return attribute.String(AttrListenerID, id)
}

// ListenerState returns an attribute for a listener state.
func ListenerState(state string) attribute.KeyValue {
	return attribute.String(AttrListenerState, state)
}

// StatusCode returns an attribute for a native status code.
func StatusCode(code uint32) attribute.KeyValue {
	return attribute.Int64(AttrStatusCode, int64(code))
}

// StatusText returns an attribute for the symbolic name of a status code.
func StatusText(text string) attribute.KeyValue {
	return attribute.String(AttrStatusText, text)
}

// ConnectionID returns an attribute for an HTTP.sys connection id.
func ConnectionID(id uint64) attribute.KeyValue {
	return attribute.Int64(AttrConnectionID, int64(id))
}

// StartListenerSpan starts a span for a listener lifecycle operation.
func StartListenerSpan(ctx context.Context, operation string, listenerID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		ListenerID(listenerID),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "listener."+operation, trace.WithAttributes(allAttrs...))
}

// StartDelegationSpan starts a span for a delegation rule operation.
func StartDelegationSpan(ctx context.Context, operation string, queueName, prefix string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		QueueName(queueName),
		URLPrefix(prefix),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "delegation."+operation, trace.WithAttributes(allAttrs...))
}
