package httpsys_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/httpsys/pkg/httpsys"
	"github.com/marmos91/httpsys/pkg/httpsys/httpsystest"
)

const waitTimeout = 2 * time.Second

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestAPI(t *testing.T) (*httpsys.API, *httpsystest.Native) {
	t.Helper()
	api, native := httpsystest.NewAPI()
	require.True(t, api.Supported())
	return api, native
}

func newTestQueue(t *testing.T, api *httpsys.API, opts httpsys.RequestQueueOptions) *httpsys.RequestQueue {
	t.Helper()
	if opts.CompletionWorkers == 0 {
		opts.CompletionWorkers = 2
	}
	q, err := httpsys.NewRequestQueue(api, opts, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func newTestSession(t *testing.T, api *httpsys.API) *httpsys.ServerSession {
	t.Helper()
	s, err := httpsys.NewServerSession(api, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestGroup(t *testing.T, session *httpsys.ServerSession, queue *httpsys.RequestQueue) *httpsys.URLGroup {
	t.Helper()
	g, err := httpsys.NewURLGroup(session, queue, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func waitDone(t *testing.T, ctx context.Context) {
	t.Helper()
	select {
	case <-ctx.Done():
	case <-time.After(waitTimeout):
		t.Fatal("context was not cancelled in time")
	}
}

func indexOf(log []string, call string) int {
	for i, c := range log {
		if c == call {
			return i
		}
	}
	return -1
}
