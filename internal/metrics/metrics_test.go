package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// value returns the counter or gauge value of the series of family name
// whose labels include want.
func value(t *testing.T, r *Recorder, name string, want map[string]string) float64 {
	t.Helper()
	families, err := r.Registry().Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	series:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if v, ok := want[lp.GetName()]; ok && v != lp.GetValue() {
					continue series
				}
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			if m.GetGauge() != nil {
				return m.GetGauge().GetValue()
			}
			if m.GetHistogram() != nil {
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return 0
}

func TestRecorder(t *testing.T) {
	r := New()

	r.Turn("respond", 10*time.Millisecond)
	r.Turn("respond", 20*time.Millisecond)
	r.Turn("learn", time.Millisecond)
	r.Action("tell_time", false)
	r.Action("open_website", true)
	r.Learned("committed")
	r.Lookup(0.93)
	r.SetKnowledgeSize(4)

	assert.Equal(t, 2.0, value(t, r, "jarvis_turns_total", map[string]string{"state": "respond"}))
	assert.Equal(t, 1.0, value(t, r, "jarvis_turns_total", map[string]string{"state": "learn"}))
	assert.Equal(t, 1.0, value(t, r, "jarvis_actions_total", map[string]string{"action": "open_website"}))
	assert.Equal(t, 1.0, value(t, r, "jarvis_action_failures_total", map[string]string{"action": "open_website"}))
	assert.Equal(t, 0.0, value(t, r, "jarvis_action_failures_total", map[string]string{"action": "tell_time"}))
	assert.Equal(t, 1.0, value(t, r, "jarvis_learning_total", map[string]string{"outcome": "committed"}))
	assert.Equal(t, 4.0, value(t, r, "jarvis_knowledge_entries", nil))
	assert.Equal(t, 1.0, value(t, r, "jarvis_match_score", nil))
	assert.Equal(t, 3.0, value(t, r, "jarvis_turn_duration_seconds", nil))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Turn("respond", time.Second)
		r.Action("x", true)
		r.Learned("failed")
		r.Lookup(1)
		r.SetKnowledgeSize(1)
	})
	assert.Nil(t, r.Registry())

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.Turn("shutdown", time.Millisecond)

	server := httptest.NewServer(r.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `jarvis_turns_total{state="shutdown"} 1`))
	assert.Contains(t, string(body), "go_goroutines")
}
