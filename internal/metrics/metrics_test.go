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
)

func TestCollector_Observe(t *testing.T) {
	c := NewCollector()

	c.Observe("decode", 2*time.Millisecond, nil)
	c.Observe("decode", 3*time.Millisecond, nil)
	c.Observe("decode", time.Millisecond, errors.New("bad image"))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Total("decode", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Total("decode", OutcomeError)))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.Total("predict", OutcomeOK)))
}

func TestCollector_ModelLoaded(t *testing.T) {
	c := NewCollector()
	assert.Equal(t, 0.0, testutil.ToFloat64(c.modelLoaded))

	c.SetModelLoaded(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.modelLoaded))

	c.SetModelLoaded(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.modelLoaded))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.Observe("encode", time.Millisecond, nil)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `visionhook_hook_total{hook="encode",outcome="ok"} 1`)
	assert.Contains(t, string(body), "visionhook_hook_duration_seconds_bucket")
}
