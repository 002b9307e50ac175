package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Priority file columns
const (
	ColumnTypeLabelLong  = "type_label_long"
	ColumnTypeLabelShort = "type_label_short"
	ColumnPriority       = "priority"
)

var priorityColumns = []string{ColumnTypeLabelLong, ColumnTypeLabelShort, ColumnPriority}

var validate = validator.New()

// ParsePriorities reads the priority CSV. The header row must name the
// type_label_long, type_label_short and priority columns; their order is free
// and other columns are ignored. Every row is validated before any is returned.
func ParsePriorities(r io.Reader) ([]models.PriorityAssignment, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("priority file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read priority header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		index[name] = i
	}
	for _, col := range priorityColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("priority file is missing column %q", col)
		}
	}

	var assignments []models.PriorityAssignment
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read priority row %d: %w", line, err)
		}
		if isBlank(record) {
			continue
		}

		field := func(col string) string {
			i := index[col]
			if i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		priority, err := strconv.ParseFloat(field(ColumnPriority), 64)
		if err != nil {
			return nil, fmt.Errorf("priority row %d: invalid priority %q", line, field(ColumnPriority))
		}

		a := models.PriorityAssignment{
			TypeLabelLong:  field(ColumnTypeLabelLong),
			TypeLabelShort: field(ColumnTypeLabelShort),
			Priority:       priority,
		}
		if err := validate.Struct(a); err != nil {
			return nil, fmt.Errorf("priority row %d: %w", line, err)
		}

		assignments = append(assignments, a)
	}

	return assignments, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// RunPriorities links Type nodes to SizeCharts with the priorities from r.
// When the graph store becomes unreachable the pass stops, is reported as
// aborted, and RunPriorities returns a nil error. Other write errors are
// returned.
func (d *Driver) RunPriorities(ctx context.Context, r io.Reader) (*models.PassSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Driver.RunPriorities")
	defer span.End()

	assignments, err := ParsePriorities(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse priority file: %w", err)
	}

	p, err := d.begin(ctx, models.PassPriorities)
	if err != nil {
		return nil, err
	}

	err = d.writePriorities(ctx, p, assignments)
	if errors.Is(err, graph.ErrUnavailable) {
		p.logger.WithError(err).Error("Graph store unavailable, stopping priority pass")
		p.summary.Aborted = true
		err = nil
	}
	p.end(ctx, err)

	return p.summary, err
}

func (d *Driver) writePriorities(ctx context.Context, p *pass, assignments []models.PriorityAssignment) error {
	for i := range assignments {
		if err := ctx.Err(); err != nil {
			return err
		}

		a := &assignments[i]
		result := models.DocumentResult{ID: a.TypeLabelLong}

		summary, err := d.writer.MergeTypePriority(ctx, a)
		if err != nil {
			result.Outcome = models.OutcomeFailed
			result.Reason = err.Error()
			p.record(ctx, result)
			return err
		}

		p.logger.WithFields(map[string]any{
			"type_label_long":  a.TypeLabelLong,
			"type_label_short": a.TypeLabelShort,
			"priority":         a.Priority,
			"size_charts":      summary.Matched,
		}).Info("Relationship created")

		result.Outcome = models.OutcomeProcessed
		result.Records = int(summary.Matched)
		p.record(ctx, result)
	}
	return nil
}
