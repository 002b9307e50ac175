package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(e *echo.Echo, path string) (*httptest.ResponseRecorder, Report) {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var r Report
	_ = json.Unmarshal(rec.Body.Bytes(), &r)
	return rec, r
}

func TestChecker(t *testing.T) {
	e := echo.New()
	c := NewChecker("1.2.3")
	c.RegisterRoutes(e)

	rec, r := get(e, "/health/live")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StatusHealthy, r.Status)
	assert.Equal(t, "1.2.3", r.Version)
	assert.Empty(t, r.ActivePass)

	rec, r = get(e, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, r.Probes, "startup")

	c.SetReady(true)
	assert.True(t, c.IsReady())

	c.AddCheck("graph", func(context.Context) error { return nil })
	rec, r = get(e, "/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StatusHealthy, r.Probes["graph"].Status)

	c.AddCheck("redis", func(context.Context) error { return errors.New("dial tcp: refused") })
	rec, r = get(e, "/health/ready")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, StatusUnhealthy, r.Status)
	assert.Equal(t, StatusHealthy, r.Probes["graph"].Status)
	assert.Equal(t, "dial tcp: refused", r.Probes["redis"].Message)
}

func TestChecker_ReportsActivePass(t *testing.T) {
	e := echo.New()
	c := NewChecker("dev")
	c.RegisterRoutes(e)

	c.ReportPass(func() string { return "sizecharts" })

	_, r := get(e, "/health/live")
	assert.Equal(t, "sizecharts", r.ActivePass)
}

func TestChecker_ProbeTimeout(t *testing.T) {
	e := echo.New()
	c := NewChecker("dev")
	c.RegisterRoutes(e)
	c.SetReady(true)

	c.AddCheck("graph", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		if !ok {
			return errors.New("probe has no deadline")
		}
		return nil
	})

	rec, _ := get(e, "/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
}
