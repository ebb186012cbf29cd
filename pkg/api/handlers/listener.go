package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/marmos91/httpsys/pkg/httpsys"
)

// ListenerService is the part of a listener the management endpoints use.
type ListenerService interface {
	StatusSource
	CreateDelegationRule(ctx context.Context, queueName, prefix string) (*httpsys.DelegationRule, error)
}

// FeatureSource reports the detected HTTP Server API capabilities.
type FeatureSource interface {
	Features() httpsys.Features
}

// ListenerHandler serves listener status, capabilities and delegation rules.
type ListenerHandler struct {
	listener ListenerService
	features FeatureSource
}

// NewListenerHandler creates a listener handler.
func NewListenerHandler(listener ListenerService, features FeatureSource) *ListenerHandler {
	return &ListenerHandler{listener: listener, features: features}
}

// Status handles GET /api/v1/status.
func (h *ListenerHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, okResponse(h.listener.Status()))
}

// Features handles GET /api/v1/features.
func (h *ListenerHandler) Features(w http.ResponseWriter, r *http.Request) {
	if h.features == nil {
		NotFound(w, "feature detection is not available")
		return
	}
	writeJSON(w, http.StatusOK, okResponse(h.features.Features()))
}

// ListDelegations handles GET /api/v1/delegations.
func (h *ListenerHandler) ListDelegations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, okResponse(h.listener.Status().DelegationRules))
}

// CreateDelegationRequest is the body of POST /api/v1/delegations.
type CreateDelegationRequest struct {
	QueueName string `json:"queue_name"`
	Prefix    string `json:"prefix"`
}

// CreateDelegation handles POST /api/v1/delegations.
func (h *ListenerHandler) CreateDelegation(w http.ResponseWriter, r *http.Request) {
	var req CreateDelegationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "Invalid request body")
		return
	}
	req.QueueName = strings.TrimSpace(req.QueueName)
	req.Prefix = strings.TrimSpace(req.Prefix)
	if req.QueueName == "" || req.Prefix == "" {
		BadRequest(w, "queue_name and prefix are required")
		return
	}

	rule, err := h.listener.CreateDelegationRule(r.Context(), req.QueueName, req.Prefix)
	if err != nil {
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, okResponse(rule.Status()))
}
