package httpsys_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/httpsys/pkg/httpsys"
	"github.com/marmos91/httpsys/pkg/httpsys/httpsystest"
)

const delegatedPrefix = "http://localhost:8080/delegated/"

// newDestination plays the receiving process: it creates the named queue and
// routes delegatedPrefix to it.
func newDestination(t *testing.T, api *httpsys.API, name string) *httpsys.URLGroup {
	t.Helper()
	session := newTestSession(t, api)
	queue := newTestQueue(t, api, httpsys.RequestQueueOptions{Name: name})
	group := newTestGroup(t, session, queue)
	require.NoError(t, group.AttachToQueue())
	require.NoError(t, group.RegisterPrefix(delegatedPrefix, 1))
	return group
}

func newTestListener(t *testing.T, api *httpsys.API, opts httpsys.ListenerOptions, options ...httpsys.ListenerOption) *httpsys.Listener {
	t.Helper()
	if opts.CompletionWorkers == 0 {
		opts.CompletionWorkers = 2
	}
	l, err := httpsys.NewListener(api, opts, quietLogger(), options...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestCreateDelegationRule(t *testing.T) {
	api, native := newTestAPI(t)
	dest := newDestination(t, api, "receiver")
	l := newTestListener(t, api, httpsys.ListenerOptions{Prefixes: []string{"http://localhost:8080/"}})
	require.NoError(t, l.Start(context.Background()))
	native.ResetCalls()

	rule, err := l.CreateDelegationRule(context.Background(), "receiver", delegatedPrefix)
	require.NoError(t, err)

	assert.Equal(t, "receiver", rule.QueueName())
	assert.Equal(t, delegatedPrefix, rule.Prefix())
	assert.False(t, rule.Queue().Created())
	assert.False(t, rule.URLGroup().Created())
	assert.Equal(t, dest.ID(), rule.URLGroup().ID())
	assert.Equal(t, httpsys.DelegationStatus{QueueName: "receiver", Prefix: delegatedPrefix}, rule.Status())

	props := native.Properties()
	require.Len(t, props, 1)
	assert.Equal(t, l.URLGroup().ID(), props[0].ID)
	assert.Equal(t, httpsys.DelegationInfo{Flags: httpsys.PropertyFlagPresent, QueueHandle: rule.Queue().Handle()}, props[0].Info)

	assert.Len(t, l.DelegationRules(), 1)
	assert.Equal(t, []httpsys.DelegationStatus{rule.Status()}, l.Status().DelegationRules)
}

func TestDelegationRuleClose(t *testing.T) {
	api, native := newTestAPI(t)
	dest := newDestination(t, api, "receiver")
	l := newTestListener(t, api, httpsys.ListenerOptions{})

	rule, err := l.CreateDelegationRule(context.Background(), "receiver", delegatedPrefix)
	require.NoError(t, err)
	native.ResetCalls()

	require.NoError(t, rule.Close())
	require.NoError(t, rule.Close())

	log := native.CallLog()
	assert.Equal(t, []string{"SetURLGroupProperty", "ClosePort", "CloseRequestQueue"}, log)
	assert.True(t, rule.Queue().IsClosed())

	// The destination's own group and queue are untouched.
	assert.True(t, native.GroupExists(dest.ID()))
	assert.True(t, native.QueueExists("receiver"))
}

func TestDelegationRuleFailures(t *testing.T) {
	t.Run("NotSupported", func(t *testing.T) {
		native := httpsystest.New()
		native.SetFeature(httpsys.FeatureDelegateEx, false)
		api := httpsys.NewAPI(native)
		l := newTestListener(t, api, httpsys.ListenerOptions{})

		_, err := l.CreateDelegationRule(context.Background(), "receiver", delegatedPrefix)
		assert.ErrorIs(t, err, httpsys.ErrNotSupported)
		assert.Equal(t, 1, native.Calls("CreateRequestQueue"))
	})

	t.Run("MissingQueue", func(t *testing.T) {
		api, _ := newTestAPI(t)
		l := newTestListener(t, api, httpsys.ListenerOptions{})

		_, err := l.CreateDelegationRule(context.Background(), "nowhere", delegatedPrefix)
		assert.ErrorIs(t, err, httpsys.ErrFileNotFound)
		assert.Empty(t, l.DelegationRules())
	})

	t.Run("PrefixNotRoutedToQueue", func(t *testing.T) {
		api, native := newTestAPI(t)
		newTestQueue(t, api, httpsys.RequestQueueOptions{Name: "receiver"})
		l := newTestListener(t, api, httpsys.ListenerOptions{})
		native.ResetCalls()

		_, err := l.CreateDelegationRule(context.Background(), "receiver", delegatedPrefix)
		require.Error(t, err)
		assert.Equal(t, 1, native.Calls("CloseRequestQueue"))
		assert.True(t, native.QueueExists("receiver"))
	})

	t.Run("PropertyRejected", func(t *testing.T) {
		api, native := newTestAPI(t)
		newDestination(t, api, "receiver")
		l := newTestListener(t, api, httpsys.ListenerOptions{})
		native.Fail("SetURLGroupProperty", httpsys.ErrorInvalidParameter)
		native.ResetCalls()

		_, err := l.CreateDelegationRule(context.Background(), "receiver", delegatedPrefix)
		require.Error(t, err)
		assert.Zero(t, native.Calls("CloseURLGroup"))
		assert.Equal(t, 1, native.Calls("CloseRequestQueue"))
	})

	t.Run("ClosedListener", func(t *testing.T) {
		api, _ := newTestAPI(t)
		newDestination(t, api, "receiver")
		l := newTestListener(t, api, httpsys.ListenerOptions{})
		require.NoError(t, l.Close())

		_, err := l.CreateDelegationRule(context.Background(), "receiver", delegatedPrefix)
		assert.ErrorIs(t, err, httpsys.ErrClosed)
	})
}

func TestListenerCloseReleasesDelegationRules(t *testing.T) {
	api, native := newTestAPI(t)
	newDestination(t, api, "receiver")
	l := newTestListener(t, api, httpsys.ListenerOptions{})

	rule, err := l.CreateDelegationRule(context.Background(), "receiver", delegatedPrefix)
	require.NoError(t, err)

	require.NoError(t, l.Close())
	assert.True(t, rule.Queue().IsClosed())
	assert.Empty(t, l.DelegationRules())
	assert.True(t, native.QueueExists("receiver"))
}
