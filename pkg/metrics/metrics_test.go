package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storekit/storekit/pkg/metrics"
)

func TestNew_RegistersAndCounts(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	m.ConnectionsActive.Inc()
	m.ConnectionsActive.Inc()
	m.ConnectionsActive.Dec()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConnectionsActive))

	observe := m.BroadcastObserver()
	observe("order:created", 3)
	observe("order:created", 2)
	assert.Equal(t, 5.0, testutil.ToFloat64(m.EventsBroadcast.WithLabelValues("order:created")))

	task := m.TaskObserver()
	task("completed")
	task("completed")
	task("failed")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TasksProcessed.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksProcessed.WithLabelValues("failed")))

	rooms := m.RoomObserver()
	rooms("order:o1", 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RoomMembers.WithLabelValues("order:o1")))

	// Emptying a room drops its series entirely.
	rooms("order:o1", 0)
	assert.Equal(t, 0, testutil.CollectAndCount(m.RoomMembers))
}

func TestNew_DoubleRegistrationFails(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := metrics.New(reg)
	require.NoError(t, err)

	_, err = metrics.New(reg)
	assert.Error(t, err)
}
