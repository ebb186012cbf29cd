package handlers

import (
	"net/http"
	"time"

	"github.com/marmos91/httpsys/pkg/httpsys"
)

// StatusSource reports the state of the served listener.
type StatusSource interface {
	Status() httpsys.ListenerStatus
}

// HealthHandler handles the liveness and readiness probes.
type HealthHandler struct {
	listener  StatusSource
	startedAt time.Time
}

// NewHealthHandler creates a health handler. listener may be nil, in which
// case the readiness probe fails.
func NewHealthHandler(listener StatusSource) *HealthHandler {
	return &HealthHandler{listener: listener, startedAt: time.Now()}
}

// Liveness handles GET /health. It succeeds while the process serves HTTP.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startedAt)
	writeJSON(w, http.StatusOK, healthyResponse(map[string]interface{}{
		"service":    "httpsys",
		"started_at": h.startedAt.UTC().Format(time.RFC3339),
		"uptime":     uptime.Round(time.Second).String(),
		"uptime_sec": int64(uptime.Seconds()),
	}))
}

// Readiness handles GET /health/ready. The server is ready once its listener
// has started and its prefixes are routed to the queue.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.listener == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("listener not initialized"))
		return
	}

	st := h.listener.Status()
	data := map[string]interface{}{
		"state":    st.State,
		"queue":    st.QueueName,
		"prefixes": len(st.Prefixes),
	}
	if st.State != httpsys.ListenerStarted.String() {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponseWithData("listener is "+st.State, data))
		return
	}

	writeJSON(w, http.StatusOK, healthyResponse(data))
}
