package models

import "time"

// Outcome is the per-document processing result
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// Pass names
const (
	PassProducts   = "products"
	PassSizeCharts = "sizecharts"
	PassCombined   = "combined"
	PassPriorities = "priorities"
)

// DocumentResult describes what happened to a single source document
type DocumentResult struct {
	ID      string  `json:"id"`
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason,omitempty"`
	Records int     `json:"records"`
}

// PassSummary counts document outcomes for one top-level pass
type PassSummary struct {
	Pass      string    `json:"pass"`
	RunID     string    `json:"run_id"`
	Processed int       `json:"processed"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	Aborted   bool      `json:"aborted"`
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished"`
}

// Record adds a document result to the summary
func (s *PassSummary) Record(result DocumentResult) {
	switch result.Outcome {
	case OutcomeProcessed:
		s.Processed++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	}
}

// Duration returns how long the pass ran
func (s *PassSummary) Duration() time.Duration {
	if s.Finished.IsZero() {
		return time.Since(s.Started)
	}
	return s.Finished.Sub(s.Started)
}
