package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently so log aggregation can query across components.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Component
	// ========================================================================
	KeyComponent  = "component"   // Emitting component: listener, request_queue, ...
	KeyListenerID = "listener_id" // Listener instance id (uuid)
	KeyEvent      = "event"       // Stable event name for alerting and queries

	// ========================================================================
	// Request Queue
	// ========================================================================
	KeyQueueName = "queue_name" // Request queue name, empty when anonymous
	KeyQueueMode = "queue_mode" // create, attach, create_or_attach

	// ========================================================================
	// Url Group & Session
	// ========================================================================
	KeyURLPrefix  = "url_prefix"   // Registered url prefix
	KeyURLGroupID = "url_group_id" // HTTP_URL_GROUP_ID
	KeySessionID  = "session_id"   // HTTP_SERVER_SESSION_ID
	KeyProperty   = "property"     // HTTP_SERVER_PROPERTY name

	// ========================================================================
	// Connections
	// ========================================================================
	KeyConnectionID = "connection_id" // HTTP_CONNECTION_ID

	// ========================================================================
	// Native Status
	// ========================================================================
	KeyStatusCode = "status_code" // Win32 status code
	KeyStatusText = "status_text" // Symbolic status name (ERROR_ALREADY_EXISTS)

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyAddress    = "address"     // Listen address of the status API
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Component returns a slog.Attr naming the emitting component
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// ListenerID returns a slog.Attr for a listener instance id
func ListenerID(id string) slog.Attr {
	return slog.String(KeyListenerID, id)
}

// Event returns a slog.Attr for a stable event name
func Event(name string) slog.Attr {
	return slog.String(KeyEvent, name)
}

// QueueName returns a slog.Attr for a request queue name
func QueueName(name string) slog.Attr {
	return slog.String(KeyQueueName, name)
}

// QueueMode returns a slog.Attr for a request queue open mode
func QueueMode(mode string) slog.Attr {
	return slog.String(KeyQueueMode, mode)
}

// URLPrefix returns a slog.Attr for a url prefix
func URLPrefix(prefix string) slog.Attr {
	return slog.String(KeyURLPrefix, prefix)
}

// URLGroupID returns a slog.Attr for a url group id, formatted as hex
func URLGroupID(id uint64) slog.Attr {
	return slog.String(KeyURLGroupID, fmt.Sprintf("%016x", id))
}

// SessionID returns a slog.Attr for a server session id, formatted as hex
func SessionID(id uint64) slog.Attr {
	return slog.String(KeySessionID, fmt.Sprintf("%016x", id))
}

// Property returns a slog.Attr for a server property name
func Property(name string) slog.Attr {
	return slog.String(KeyProperty, name)
}

// ConnectionID returns a slog.Attr for a connection id
func ConnectionID(id uint64) slog.Attr {
	return slog.Uint64(KeyConnectionID, id)
}

// StatusCode returns a slog.Attr for a native status code
func StatusCode(code uint32) slog.Attr {
	return slog.Uint64(KeyStatusCode, uint64(code))
}

// StatusText returns a slog.Attr for a symbolic status name
func StatusText(text string) slog.Attr {
	return slog.String(KeyStatusText, text)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error. A nil error yields an empty attr,
// which handlers drop.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Address returns a slog.Attr for a listen address
func Address(addr string) slog.Attr {
	return slog.String(KeyAddress, addr)
}
