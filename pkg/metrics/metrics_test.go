package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledRegistryYieldsNilMetrics(t *testing.T) {
	InitRegistry(false)
	t.Cleanup(func() { InitRegistry(false) })

	assert.False(t, IsEnabled())
	assert.Nil(t, GetRegistry())
	assert.Nil(t, NewSessionMetrics())
	assert.Nil(t, NewCallMetrics())
	assert.Nil(t, NewDelegateMetrics())
}

func TestNilMetricsMethodsAreNoOps(t *testing.T) {
	var sm *SessionMetrics
	var cm *CallMetrics
	var dm *DelegateMetrics

	assert.NotPanics(t, func() {
		sm.RecordOpened()
		sm.RecordClosed("client_disconnect")
		cm.Observe("Greeter", "Say", "success", time.Millisecond)
		dm.Observe("success")
	})
}

func TestEnabledRegistryRecordsSamples(t *testing.T) {
	InitRegistry(true)
	t.Cleanup(func() { InitRegistry(false) })

	require.True(t, IsEnabled())
	require.NotNil(t, GetRegistry())

	sm := NewSessionMetrics()
	require.NotNil(t, sm)
	sm.RecordOpened()
	sm.RecordClosed("idle_timeout")

	cm := NewCallMetrics()
	require.NotNil(t, cm)
	cm.Observe("Greeter", "Say", "success", 5*time.Millisecond)

	dm := NewDelegateMetrics()
	require.NotNil(t, dm)
	dm.Observe("success")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "coreremoting_sessions_opened_total")
	assert.Contains(t, body, "coreremoting_calls_total")
	assert.Contains(t, body, "coreremoting_delegate_invocations_total")
}

func TestHandlerServesEmptyRegistryWhenDisabled(t *testing.T) {
	InitRegistry(false)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
}
