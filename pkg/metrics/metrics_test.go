package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruslano69/mssql-typeload/pkg/harness"
)

func TestObserve(t *testing.T) {
	m := New()

	m.Observe(harness.Result{Name: "bit", Mode: harness.ModeBulk, RowsSent: 10, RowsAffected: 10, Duration: time.Second})
	m.Observe(harness.Result{Name: "bit", Mode: harness.ModeBulk, RowsSent: 5, Err: errors.New("boom")})
	m.Observe(harness.Result{Name: "money", Mode: harness.ModeExec, RowsSent: 1, RowsAffected: 1})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.casesTotal.WithLabelValues("bulk", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.casesTotal.WithLabelValues("bulk", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.casesTotal.WithLabelValues("exec", "success")))
	assert.Equal(t, 15.0, testutil.ToFloat64(m.rowsSentTotal.WithLabelValues("bit")))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.rowsAffectedTotal.WithLabelValues("bit")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.caseDuration))
}

func TestHandler(t *testing.T) {
	m := New()
	m.Observe(harness.Result{Name: "xml", Mode: harness.ModeExec, RowsSent: 1, RowsAffected: 1})

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `typeload_rows_affected_total{case="xml"} 1`)

	health, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}
