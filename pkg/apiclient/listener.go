package apiclient

import (
	"github.com/marmos91/httpsys/pkg/httpsys"
)

// Health is the liveness payload.
type Health struct {
	Service   string `json:"service"`
	StartedAt string `json:"started_at"`
	Uptime    string `json:"uptime"`
	UptimeSec int64  `json:"uptime_sec"`
}

// Readiness is the readiness payload.
type Readiness struct {
	State    string `json:"state"`
	Queue    string `json:"queue"`
	Prefixes int    `json:"prefixes"`
}

// Health calls GET /health.
func (c *Client) Health() (*Health, error) {
	var h Health
	if err := c.get("/health", &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Ready calls GET /health/ready. A listener that is not started is reported
// as an *APIError for which IsUnavailable is true.
func (c *Client) Ready() (*Readiness, error) {
	var r Readiness
	if err := c.get("/health/ready", &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Status returns the listener status.
func (c *Client) Status() (*httpsys.ListenerStatus, error) {
	var st httpsys.ListenerStatus
	if err := c.get("/api/v1/status", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Features returns the HTTP Server API capabilities detected by the server.
func (c *Client) Features() (*httpsys.Features, error) {
	var f httpsys.Features
	if err := c.get("/api/v1/features", &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Delegations lists the delegation rules of the listener.
func (c *Client) Delegations() ([]httpsys.DelegationStatus, error) {
	var rules []httpsys.DelegationStatus
	if err := c.get("/api/v1/delegations", &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// CreateDelegation delegates prefix to the queue queueName.
func (c *Client) CreateDelegation(queueName, prefix string) (*httpsys.DelegationStatus, error) {
	req := map[string]string{"queue_name": queueName, "prefix": prefix}
	var rule httpsys.DelegationStatus
	if err := c.post("/api/v1/delegations", req, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}
