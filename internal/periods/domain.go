package periods

import (
	"time"

	"github.com/condoledger/condoledger/internal/shared"
)

// Status enumerates accounting period states.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Period represents an organization-scoped competency window. Once closed,
// no posting may target a competency date inside it until reopened.
type Period struct {
	ID        int64
	OrgID     int64
	StartDate time.Time
	EndDate   time.Time
	Status    Status
	ClosedAt  *time.Time
	ClosedBy  *int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Contains reports whether the date falls inside the period window.
func (p Period) Contains(date time.Time) bool {
	return !date.Before(p.StartDate) && !date.After(p.EndDate)
}

// CreateInput groups fields for creating a period.
type CreateInput struct {
	OrgID     int64
	StartDate time.Time
	EndDate   time.Time
}

// Validate checks the window ordering.
func (in CreateInput) Validate() error {
	if in.OrgID == 0 {
		return shared.Validationf("periods: organization required")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return shared.Validationf("periods: start and end dates required")
	}
	if in.EndDate.Before(in.StartDate) {
		return shared.Validationf("periods: end date before start date")
	}
	return nil
}
