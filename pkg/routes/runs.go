package routes

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/mapper"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/pipeline"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// maxPriorityFileBytes bounds the uploaded priority CSV
const maxPriorityFileBytes = 10 << 20

// Runner executes migration passes
type Runner interface {
	RunProducts(ctx context.Context) (*models.PassSummary, error)
	RunSizeCharts(ctx context.Context, variant mapper.Variant) (*models.PassSummary, error)
	RunCombined(ctx context.Context) ([]*models.PassSummary, error)
	RunPriorities(ctx context.Context, r io.Reader) (*models.PassSummary, error)
}

// RunStatus describes the current or most recent triggered run
type RunStatus struct {
	Pass      string                `json:"pass"`
	Running   bool                  `json:"running"`
	Started   time.Time             `json:"started"`
	Finished  *time.Time            `json:"finished,omitempty"`
	Error     string                `json:"error,omitempty"`
	Summaries []*models.PassSummary `json:"summaries,omitempty"`
}

// RunHandler triggers passes in the background, one at a time
type RunHandler struct {
	runner Runner
	logger ectologger.Logger

	// base is the parent context of every triggered run
	base context.Context

	mu     sync.Mutex
	status *RunStatus
	wg     sync.WaitGroup
}

// NewRunHandler creates a new run handler. Runs are cancelled when base is done.
func NewRunHandler(base context.Context, runner Runner, logger ectologger.Logger) *RunHandler {
	return &RunHandler{
		runner: runner,
		logger: logger,
		base:   base,
	}
}

// Trigger starts the pass named in the path. The priorities pass reads the
// CSV from the request body.
func (h *RunHandler) Trigger(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "RunHandler.Trigger")
	defer span.End()

	name := c.Param("pass")

	var run func(ctx context.Context) ([]*models.PassSummary, error)
	switch name {
	case models.PassProducts:
		run = single(func(ctx context.Context) (*models.PassSummary, error) {
			return h.runner.RunProducts(ctx)
		})
	case models.PassSizeCharts:
		run = single(func(ctx context.Context) (*models.PassSummary, error) {
			return h.runner.RunSizeCharts(ctx, mapper.VariantSizeChartOnly)
		})
	case models.PassCombined, "migrate":
		run = h.runner.RunCombined
	case models.PassPriorities:
		body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxPriorityFileBytes))
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "failed to read priority file")
		}
		if _, err := pipeline.ParsePriorities(bytes.NewReader(body)); err != nil {
			return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid priority file: %s", err.Error())
		}
		run = single(func(ctx context.Context) (*models.PassSummary, error) {
			return h.runner.RunPriorities(ctx, bytes.NewReader(body))
		})
	default:
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "unknown pass %q", name)
	}

	status, ok := h.start(name)
	if !ok {
		return httperror.NewHTTPErrorf(http.StatusConflict, "pass %q is already running", h.current().Pass)
	}

	h.logger.WithContext(ctx).WithField("pass", name).Info("Triggered migration pass")

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		summaries, err := run(h.base)
		h.finish(summaries, err)
	}()

	return c.JSON(http.StatusAccepted, status)
}

// Status returns the current or most recent run
func (h *RunHandler) Status(c echo.Context) error {
	status := h.current()
	if status == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "no run has been triggered")
	}
	return c.JSON(http.StatusOK, status)
}

// ActivePass returns the name of the running pass, or "" when idle
func (h *RunHandler) ActivePass() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.status == nil || !h.status.Running {
		return ""
	}
	return h.status.Pass
}

// Wait blocks until the background run, if any, has finished
func (h *RunHandler) Wait() {
	h.wg.Wait()
}

func (h *RunHandler) start(name string) (RunStatus, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.status != nil && h.status.Running {
		return RunStatus{}, false
	}

	h.status = &RunStatus{
		Pass:    name,
		Running: true,
		Started: time.Now().UTC(),
	}
	return *h.status, true
}

func (h *RunHandler) finish(summaries []*models.PassSummary, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now().UTC()
	h.status.Running = false
	h.status.Finished = &now
	h.status.Summaries = summaries

	if err != nil {
		h.status.Error = err.Error()
		log := h.logger.WithError(err).WithField("pass", h.status.Pass)
		if errors.Is(err, pipeline.ErrPassInProgress) {
			log.Warn("Triggered pass did not start, another pass holds the run lock")
			return
		}
		log.Error("Triggered pass failed")
	}
}

func (h *RunHandler) current() *RunStatus {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.status == nil {
		return nil
	}
	status := *h.status
	return &status
}

func single(fn func(ctx context.Context) (*models.PassSummary, error)) func(ctx context.Context) ([]*models.PassSummary, error) {
	return func(ctx context.Context) ([]*models.PassSummary, error) {
		summary, err := fn(ctx)
		if summary == nil {
			return nil, err
		}
		return []*models.PassSummary{summary}, err
	}
}
