package telemetry

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "httpsys", cfg.ServiceName)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestConfigSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.5, "AlwaysOnSampler"},
		{1, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}

	for _, tt := range tests {
		desc := Config{SampleRate: tt.rate}.sampler().Description()
		assert.Contains(t, desc, tt.want, "rate %v", tt.rate)
	}
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()

	shutdown, err := Init(ctx, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(ctx))
	assert.False(t, IsEnabled())
}

func TestTracerBeforeInit(t *testing.T) {
	setTracer(nil, nil)

	tr := Tracer()
	require.NotNil(t, tr)

	ctx, span := StartSpan(context.Background(), "listener.start")
	defer span.End()
	assert.False(t, span.SpanContext().IsValid())
	assert.Equal(t, "", TraceID(ctx))
}

func TestRecordError(t *testing.T) {
	ctx := context.Background()

	require.NotPanics(t, func() { RecordError(ctx, nil) })
	require.NotPanics(t, func() { RecordError(ctx, errors.New("queue closed")) })
}

func TestInitProfilingDisabled(t *testing.T) {
	shutdown, err := InitProfiling(ProfilingConfig{})
	require.NoError(t, err)
	assert.NoError(t, shutdown())
	assert.False(t, IsProfilingEnabled())
}

func TestParseProfileTypes(t *testing.T) {
	types, err := parseProfileTypes([]string{"cpu", "mutex_count", "goroutines"})
	require.NoError(t, err)
	assert.Equal(t, []pyroscope.ProfileType{
		pyroscope.ProfileCPU,
		pyroscope.ProfileMutexCount,
		pyroscope.ProfileGoroutines,
	}, types)

	_, err = parseProfileTypes([]string{"cpu", "heap"})
	assert.ErrorContains(t, err, `unknown profile type "heap"`)

	_, err = InitProfiling(ProfilingConfig{Enabled: true, ProfileTypes: []string{"heap"}})
	assert.Error(t, err)
	assert.False(t, IsProfilingEnabled())
}

func TestProfileTypeNames(t *testing.T) {
	names := ProfileTypeNames()
	assert.Len(t, names, 10)
	assert.True(t, sort.StringsAreSorted(names))
	assert.Contains(t, names, "block_duration")
}

func TestAttributeHelpers(t *testing.T) {
	t.Run("QueueName", func(t *testing.T) {
		attr := QueueName("controller")
		assert.Equal(t, AttrQueueName, string(attr.Key))
		assert.Equal(t, "controller", attr.Value.AsString())
	})

	t.Run("QueueMode", func(t *testing.T) {
		attr := QueueMode("create_or_attach")
		assert.Equal(t, AttrQueueMode, string(attr.Key))
		assert.Equal(t, "create_or_attach", attr.Value.AsString())
	})

	t.Run("QueueCreated", func(t *testing.T) {
		attr := QueueCreated(true)
		assert.Equal(t, AttrQueueCreated, string(attr.Key))
		assert.True(t, attr.Value.AsBool())
	})

	t.Run("URLGroupID", func(t *testing.T) {
		attr := URLGroupID(0xff00000000000001)
		assert.Equal(t, AttrURLGroupID, string(attr.Key))
		assert.Equal(t, "ff00000000000001", attr.Value.AsString())
	})

	t.Run("URLPrefixes", func(t *testing.T) {
		attr := URLPrefixes([]string{"http://+:80/a/", "http://+:80/b/"})
		assert.Equal(t, AttrURLPrefixes, string(attr.Key))
		assert.Equal(t, []string{"http://+:80/a/", "http://+:80/b/"}, attr.Value.AsStringSlice())
	})

	t.Run("StatusCode", func(t *testing.T) {
		attr := StatusCode(183)
		assert.Equal(t, AttrStatusCode, string(attr.Key))
		assert.Equal(t, int64(183), attr.Value.AsInt64())
	})

	t.Run("ConnectionID", func(t *testing.T) {
		attr := ConnectionID(42)
		assert.Equal(t, AttrConnectionID, string(attr.Key))
		assert.Equal(t, int64(42), attr.Value.AsInt64())
	})
}

func TestStartListenerSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartListenerSpan(ctx, "start", "3f1c", QueueName("controller"))
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}

func TestStartDelegationSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartDelegationSpan(ctx, "create", "worker", "http://+:80/api/")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}
