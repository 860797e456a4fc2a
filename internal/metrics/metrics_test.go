package metrics

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/michaelgoldpiano/datastructures/arraylist"
)

func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewCollector(reg), reg
}

func TestCollector_ObserveResize(t *testing.T) {
	collector, _ := newTestCollector(t)

	collector.ObserveResize(arraylist.ResizeEvent{OldCapacity: 10, NewCapacity: 14, Length: 7, Reason: arraylist.ReasonFix})
	collector.ObserveResize(arraylist.ResizeEvent{OldCapacity: 14, NewCapacity: 28, Length: 10, Reason: arraylist.ReasonFix})
	collector.ObserveResize(arraylist.ResizeEvent{OldCapacity: 28, NewCapacity: 2, Length: 2, Reason: arraylist.ReasonReserve})

	assert.Equal(t, float64(2), testutil.ToFloat64(collector.reallocations.WithLabelValues("grow", "fix")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.reallocations.WithLabelValues("shrink", "reserve")))
	assert.Equal(t, 1, testutil.CollectAndCount(collector.capacity))
}

func TestCollector_AsListObserver(t *testing.T) {
	collector, _ := newTestCollector(t)

	l, err := arraylist.New[int](0, &arraylist.Options[int]{Observer: collector})
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Append(i))
	}
	require.NoError(t, l.Clear())

	stats := l.Stats()
	grows := testutil.ToFloat64(collector.reallocations.WithLabelValues("grow", "fix"))
	shrinks := testutil.ToFloat64(collector.reallocations.WithLabelValues("shrink", "fix"))
	assert.Equal(t, float64(stats.Grows), grows)
	assert.Equal(t, float64(stats.Shrinks), shrinks)
	assert.Positive(t, grows)
}

func TestCollector_Counters(t *testing.T) {
	collector, _ := newTestCollector(t)

	collector.ObserveAllocFailure(100, errors.New("out of memory"))
	collector.RecordOperation("push", "ok")
	collector.RecordOperation("push", "ok")
	collector.RecordOperation("pop", "alloc_failure")
	collector.RecordViolation()
	collector.SetBudgetInUse(512)

	assert.Equal(t, float64(1), testutil.ToFloat64(collector.allocFailures))
	assert.Equal(t, float64(2), testutil.ToFloat64(collector.operations.WithLabelValues("push", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.operations.WithLabelValues("pop", "alloc_failure")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.violations))
	assert.Equal(t, float64(512), testutil.ToFloat64(collector.budgetInUse))
}

func TestStatusClass(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{200, "2xx"},
		{304, "3xx"},
		{404, "4xx"},
		{503, "5xx"},
		{101, "101"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusClass(tt.status))
	}
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/", normalizePath("/"))
	assert.Equal(t, "/metrics", normalizePath("/metrics/"))
	assert.Equal(t, "/healthz", normalizePath("/healthz"))
	assert.Equal(t, "other", normalizePath("/api/v1/unknown/123"))
}

func TestHandler(t *testing.T) {
	collector, reg := newTestCollector(t)
	collector.RecordOperation("set", "ok")

	var latest interface{}
	handler := NewHandler(collector, reg, func() interface{} { return latest }, zap.NewNop())
	router := handler.Router()

	t.Run("GET /healthz", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "ok", body["status"])
	})

	t.Run("GET /metrics", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, strings.Contains(w.Body.String(), `arraylist_soak_operations_total{op="set",result="ok"} 1`))
	})

	t.Run("GET /api/v1/soak/report before run", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/soak/report", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("GET /api/v1/soak/report after run", func(t *testing.T) {
		latest = map[string]int{"operations": 10}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/soak/report", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"operations":10}`, w.Body.String())
	})

	t.Run("requests are counted", func(t *testing.T) {
		assert.GreaterOrEqual(t, testutil.ToFloat64(collector.requests.WithLabelValues("GET", "/healthz", "2xx")), float64(1))
		assert.GreaterOrEqual(t, testutil.ToFloat64(collector.requests.WithLabelValues("GET", "/api/v1/soak/report", "4xx")), float64(1))
	})
}
