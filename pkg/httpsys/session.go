package httpsys

import (
	"log/slog"
)

// ServerSession owns a kernel server session. Closing it invalidates every
// url group created under it.
type ServerSession struct {
	api    *API
	handle *ServerSessionHandle
	log    *slog.Logger
}

// NewServerSession creates a server session.
func NewServerSession(api *API, log *slog.Logger) (*ServerSession, error) {
	if err := api.ensureSupported(); err != nil {
		return nil, err
	}

	id, status := api.native.CreateServerSession(api.version)
	if status != ErrorSuccess {
		return nil, statusError("HttpCreateServerSession", status)
	}
	if id == 0 {
		return nil, NewError(ErrorInvalidHandleValue, "HttpCreateServerSession returned an invalid session id")
	}

	log = orDefault(log, "server_session")
	log.Debug("Server session created", "session_id", id)

	return &ServerSession{
		api:    api,
		handle: newServerSessionHandle(api.native, id),
		log:    log,
	}, nil
}

// ID returns the server session id.
func (s *ServerSession) ID() uint64 { return s.handle.ID() }

// Handle returns the owned session handle.
func (s *ServerSession) Handle() *ServerSessionHandle { return s.handle }

// Close closes the session. It is safe to call more than once.
func (s *ServerSession) Close() error {
	if s.handle.IsClosed() {
		return nil
	}
	if err := s.handle.Close(); err != nil {
		s.log.Error("Failed to close server session", "session_id", s.handle.ID(), "error", err)
		return err
	}
	return nil
}
