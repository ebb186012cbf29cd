package httpsys_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/httpsys/pkg/httpsys"
	"github.com/marmos91/httpsys/pkg/httpsys/httpsystest"
	"github.com/marmos91/httpsys/pkg/metrics"
)

func newTestDisconnects(t *testing.T, opts httpsys.RequestQueueOptions, dopts ...httpsys.DisconnectOption) (*httpsys.DisconnectListener, *httpsys.RequestQueue, *httpsystest.Native) {
	t.Helper()
	api, native := newTestAPI(t)
	queue := newTestQueue(t, api, opts)
	return httpsys.NewDisconnectListener(queue, quietLogger(), dopts...), queue, native
}

func TestDisconnectTokenIsShared(t *testing.T) {
	dl, _, native := newTestDisconnects(t, httpsys.RequestQueueOptions{})

	const callers = 32
	tokens := make([]context.Context, callers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			tokens[i] = dl.TokenForConnection(99)
		}()
	}
	close(start)
	wg.Wait()

	for i := 1; i < callers; i++ {
		assert.True(t, tokens[0] == tokens[i], "caller %d got a different context", i)
	}
	assert.Equal(t, 1, native.Calls("WaitForDisconnect"))
	assert.Equal(t, 1, dl.Tracked())
	assert.NoError(t, tokens[0].Err())
}

func TestDisconnectCancelsToken(t *testing.T) {
	var hooked []uint64
	var mu sync.Mutex
	dl, queue, native := newTestDisconnects(t, httpsys.RequestQueueOptions{},
		httpsys.WithOnDisconnect(func(id uint64) {
			mu.Lock()
			hooked = append(hooked, id)
			mu.Unlock()
		}))

	ctx := dl.TokenForConnection(1)
	other := dl.TokenForConnection(2)
	require.Equal(t, 2, dl.Tracked())

	require.Equal(t, 1, native.Disconnect(1))
	waitDone(t, ctx)

	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.NoError(t, other.Err())
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(hooked) == 1 && hooked[0] == 1
	}, waitTimeout, 5*time.Millisecond)
	assert.Equal(t, 1, dl.Tracked())
	assert.Eventually(t, func() bool { return queue.BoundHandle().Pending() == 1 }, waitTimeout, 5*time.Millisecond)
}

func TestDisconnectReRegistersAfterDisconnect(t *testing.T) {
	dl, _, native := newTestDisconnects(t, httpsys.RequestQueueOptions{})

	first := dl.TokenForConnection(5)
	native.Disconnect(5)
	waitDone(t, first)

	second := dl.TokenForConnection(5)
	assert.False(t, first == second)
	assert.NoError(t, second.Err())
	assert.Equal(t, 2, native.Calls("WaitForDisconnect"))
	assert.Equal(t, 1, native.PendingWaits())
}

func TestDisconnectRegistrationFailure(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := metrics.NewListenerMetrics(registry)
	dl, queue, native := newTestDisconnects(t, httpsys.RequestQueueOptions{}, httpsys.WithDisconnectMetrics(m))
	native.FailWithError("WaitForDisconnect", errors.New("handle gone"))

	ctx := dl.TokenForConnection(3)

	assert.Nil(t, ctx.Done())
	assert.Zero(t, dl.Tracked())
	assert.Zero(t, queue.BoundHandle().Pending())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DisconnectRegistrationTotal.WithLabelValues("failed")))

	// The failed wrapper is dropped so the next call tries again.
	native.FailWithError("WaitForDisconnect", nil)
	retry := dl.TokenForConnection(3)
	assert.NotNil(t, retry.Done())
	assert.Equal(t, 2, native.Calls("WaitForDisconnect"))
	assert.Equal(t, 1, dl.Tracked())
}

func TestDisconnectImmediateStatus(t *testing.T) {
	m := metrics.NewListenerMetrics(prometheus.NewRegistry())
	dl, queue, native := newTestDisconnects(t, httpsys.RequestQueueOptions{}, httpsys.WithDisconnectMetrics(m))
	native.Fail("WaitForDisconnect", httpsys.ErrorConnectionInvalid)

	ctx := dl.TokenForConnection(8)

	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.Zero(t, dl.Tracked())
	assert.Zero(t, queue.BoundHandle().Pending())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DisconnectRegistrationTotal.WithLabelValues("immediate")))
}

func TestDisconnectSynchronousSuccess(t *testing.T) {
	t.Run("SkipCompletionPort", func(t *testing.T) {
		dl, queue, native := newTestDisconnects(t, httpsys.RequestQueueOptions{SkipCompletionPortOnSuccess: true})
		native.SetWaitStatus(httpsys.ErrorSuccess)

		ctx := dl.TokenForConnection(4)

		assert.ErrorIs(t, ctx.Err(), context.Canceled)
		assert.Zero(t, dl.Tracked())
		assert.Zero(t, queue.BoundHandle().Pending())
	})

	t.Run("CompletionPortDelivers", func(t *testing.T) {
		m := metrics.NewListenerMetrics(prometheus.NewRegistry())
		dl, queue, native := newTestDisconnects(t, httpsys.RequestQueueOptions{}, httpsys.WithDisconnectMetrics(m))
		native.SetWaitStatus(httpsys.ErrorSuccess)

		ctx := dl.TokenForConnection(4)
		waitDone(t, ctx)

		results := m.DisconnectRegistrationTotal
		assert.Eventually(t, func() bool {
			return testutil.ToFloat64(results.WithLabelValues("completed_inline")) == 1
		}, waitTimeout, 5*time.Millisecond)
		assert.Zero(t, testutil.ToFloat64(results.WithLabelValues("pending")))

		assert.Eventually(t, func() bool {
			return dl.Tracked() == 0 && queue.BoundHandle().Pending() == 0
		}, waitTimeout, 5*time.Millisecond)
	})
}

func TestDisconnectHookPanicIsRecovered(t *testing.T) {
	m := metrics.NewListenerMetrics(prometheus.NewRegistry())
	dl, _, native := newTestDisconnects(t, httpsys.RequestQueueOptions{CompletionWorkers: 1},
		httpsys.WithDisconnectMetrics(m),
		httpsys.WithOnDisconnect(func(uint64) { panic("hook exploded") }))

	first := dl.TokenForConnection(1)
	second := dl.TokenForConnection(2)

	native.Disconnect(1)
	waitDone(t, first)
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(m.DisconnectHandlerPanicTotal) == 1
	}, waitTimeout, 5*time.Millisecond)

	// The single worker survived and still delivers completions.
	native.Disconnect(2)
	waitDone(t, second)
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(m.DisconnectTotal) == 2
	}, waitTimeout, 5*time.Millisecond)
}

func TestDisconnectMetrics(t *testing.T) {
	m := metrics.NewListenerMetrics(prometheus.NewRegistry())
	dl, _, native := newTestDisconnects(t, httpsys.RequestQueueOptions{}, httpsys.WithDisconnectMetrics(m))

	for id := uint64(1); id <= 3; id++ {
		dl.TokenForConnection(id)
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DisconnectRegistrationTotal.WithLabelValues("pending")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.TrackedConnections))

	ctx := dl.TokenForConnection(2)
	native.Disconnect(2)
	waitDone(t, ctx)

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(m.TrackedConnections) == 2 && testutil.ToFloat64(m.DisconnectTotal) == 1
	}, waitTimeout, 5*time.Millisecond)
}
