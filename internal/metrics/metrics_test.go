package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := New()
	m.MoodAdded(4, 11)
	m.MoodAdded(4, 12)
	m.Click("cluster", "zoomed")
	m.AssetLoad(nil)
	m.AssetLoad(errors.New("boom"))
	m.RenderDiff(2, 1, 0)
	m.SourceUpdate(true)
	m.SourceUpdate(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.moodsAdded.WithLabelValues("4")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.storeSize))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.clicks.WithLabelValues("cluster", "zoomed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.assetLoads.WithLabelValues("error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.renderChanges.WithLabelValues("added")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sourceUpdates.WithLabelValues("unchanged")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.MoodAdded(1, 1)
		m.StoreSize(3)
		m.Click("point", "popup")
		m.AssetLoad(nil)
		m.RenderDiff(1, 1, 1)
		m.SourceUpdate(true)
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.MoodAdded(2, 1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `moodmap_moods_added_total{mood="2"} 1`))
}
