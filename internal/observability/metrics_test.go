package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/tickets", "GET", 200, time.Millisecond)
	m.RecordRequest("/tickets", "GET", 200, time.Millisecond)
	m.RecordError("/tickets/:id", "PATCH", "FORBIDDEN")
	m.RecordPushDropped()
	m.RecordJobRun("escalation")

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Requests["/tickets|GET|200"])
	assert.Equal(t, int64(1), snap.Errors["/tickets/:id|PATCH|FORBIDDEN"])
	assert.Equal(t, int64(1), snap.PushDropped)
	assert.Equal(t, int64(1), snap.JobRuns["escalation"])
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, 0)
	m.RecordError("/", "GET", "X")
	m.RecordPushDropped()
	m.RecordJobRun("x")
	assert.Empty(t, m.Snapshot().Requests)
}
