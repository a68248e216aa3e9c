package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounts(t *testing.T) {
	c := New()

	c.PageFetched(true)
	c.PageFetched(true)
	c.PageFetched(false)
	c.RecordWritten()
	c.ProductSkipped("filtered")
	c.ProductSkipped("filtered")
	c.ProductSkipped("fetch")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.pages.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.pages.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.records))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.skips.WithLabelValues("filtered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.skips.WithLabelValues("fetch")))
}

func TestCollectorsAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.RecordWritten()

	assert.Equal(t, 0.0, testutil.ToFloat64(b.records))
}

func TestHandler(t *testing.T) {
	c := New()
	c.RecordWritten()

	server := httptest.NewServer(c.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "hacico_records_written_total 1")
}
