package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskIntegrationSweep is the task type for the settled-entry sweep.
	TaskIntegrationSweep = "integration:sweep"
)

// IntegrationSweepPayload bounds one sweep run. A zero OrgID sweeps every
// organization with settled entries in the window.
type IntegrationSweepPayload struct {
	OrgID      int64  `json:"org_id"`
	WindowDays int    `json:"window_days"`
	RunDate    string `json:"run_date,omitempty"`
}

// NewIntegrationSweepTask constructs an Asynq task for the sweep.
func NewIntegrationSweepTask(orgID int64, windowDays int) (*asynq.Task, error) {
	if windowDays <= 0 {
		windowDays = 7
	}
	data, err := json.Marshal(IntegrationSweepPayload{OrgID: orgID, WindowDays: windowDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIntegrationSweep, data), nil
}

// Window resolves the sweep date range from the payload, anchored on the
// run date (today when absent).
func (p IntegrationSweepPayload) Window(now time.Time) (time.Time, time.Time) {
	anchor := now
	if p.RunDate != "" {
		if parsed, err := time.Parse("2006-01-02", p.RunDate); err == nil {
			anchor = parsed
		}
	}
	days := p.WindowDays
	if days <= 0 {
		days = 7
	}
	to := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, time.UTC)
	return to.AddDate(0, 0, -days), to
}
