// Package health serves the liveness and readiness probes of the fern ops server.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// Status is the reported state of the process or of one dependency
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// probeTimeout bounds a single dependency probe
const probeTimeout = 5 * time.Second

// Probe is the outcome of one dependency check
type Probe struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Report is the body of both probe endpoints
type Report struct {
	Status     Status           `json:"status"`
	Version    string           `json:"version,omitempty"`
	Uptime     string           `json:"uptime,omitempty"`
	ActivePass string           `json:"active_pass,omitempty"`
	Probes     map[string]Probe `json:"probes,omitempty"`
	ReportedAt time.Time        `json:"reported_at"`
}

// CheckFunc probes one dependency, such as the graph store or the lock store
type CheckFunc func(ctx context.Context) error

// Checker tracks startup readiness and the dependencies a pass needs
type Checker struct {
	version string
	started time.Time

	mu         sync.RWMutex
	ready      bool
	checks     map[string]CheckFunc
	activePass func() string
}

// NewChecker creates a checker that is not ready until SetReady(true)
func NewChecker(version string) *Checker {
	return &Checker{
		version: version,
		started: time.Now(),
		checks:  make(map[string]CheckFunc),
	}
}

// AddCheck registers a dependency probe run on every readiness request
func (c *Checker) AddCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// ReportPass sets the function used to name the running pass in reports
func (c *Checker) ReportPass(fn func() string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activePass = fn
}

// SetReady flips readiness once every dependency has started
func (c *Checker) SetReady(ready bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = ready
}

// IsReady returns whether startup has completed
func (c *Checker) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// LivenessHandler answers 200 for as long as the process can serve HTTP
func (c *Checker) LivenessHandler(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.report(StatusHealthy, nil))
}

// ReadinessHandler answers 503 until startup has finished or while any probe fails
func (c *Checker) ReadinessHandler(ctx echo.Context) error {
	if !c.IsReady() {
		return ctx.JSON(http.StatusServiceUnavailable, c.report(StatusUnhealthy, map[string]Probe{
			"startup": {Status: StatusUnhealthy, Message: "dependencies are still starting"},
		}))
	}

	probes := c.probe(ctx.Request().Context())

	status := StatusHealthy
	for _, p := range probes {
		if p.Status == StatusUnhealthy {
			status = StatusUnhealthy
			break
		}
	}

	code := http.StatusOK
	if status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	return ctx.JSON(code, c.report(status, probes))
}

func (c *Checker) report(status Status, probes map[string]Probe) Report {
	c.mu.RLock()
	activePass := c.activePass
	c.mu.RUnlock()

	r := Report{
		Status:     status,
		Version:    c.version,
		Uptime:     time.Since(c.started).Round(time.Second).String(),
		Probes:     probes,
		ReportedAt: time.Now().UTC(),
	}
	if activePass != nil {
		r.ActivePass = activePass()
	}
	return r
}

// probe runs every registered check concurrently
func (c *Checker) probe(ctx context.Context) map[string]Probe {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		probes = make(map[string]Probe, len(checks))
	)
	for name, check := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := runCheck(ctx, check)

			mu.Lock()
			probes[name] = p
			mu.Unlock()
		}()
	}
	wg.Wait()

	return probes
}

func runCheck(ctx context.Context, check CheckFunc) Probe {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	start := time.Now()
	err := check(ctx)
	p := Probe{Status: StatusHealthy, Latency: time.Since(start).String()}
	if err != nil {
		p.Status = StatusUnhealthy
		p.Message = err.Error()
	}
	return p
}

// RegisterRoutes mounts /health/live and /health/ready
func (c *Checker) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/health")
	g.GET("/live", c.LivenessHandler)
	g.GET("/ready", c.ReadinessHandler)
}
