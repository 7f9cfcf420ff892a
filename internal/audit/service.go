package audit

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/condoledger/condoledger/internal/platform/db"
)

// TimelineRow is one audit record as exposed to readers.
type TimelineRow struct {
	ID       int64          `json:"id"`
	ActorID  int64          `json:"actor_id"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entity_id"`
	Meta     map[string]any `json:"meta,omitempty"`
	At       time.Time      `json:"at"`
}

// TimelineFilters narrows the audit timeline query.
type TimelineFilters struct {
	Entity   string
	EntityID string
	Action   string
	From     time.Time
	To       time.Time
	Page     int
	PageSize int
}

// PagingInfo describes the slice of the timeline returned.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Result wraps timeline rows with paging information.
type Result struct {
	Rows   []TimelineRow `json:"rows"`
	Paging PagingInfo    `json:"paging"`
}

// Service reads the audit trail back out for operators.
type Service struct {
	pool *pgxpool.Pool
}

// NewService builds the audit read service.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// Timeline returns audit rows newest-first with limit-plus-one paging.
func (s *Service) Timeline(ctx context.Context, orgID int64, filters TimelineFilters) (Result, error) {
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize

	rows, err := s.pool.Query(ctx, `
		SELECT id, actor_id, action, entity, entity_id, meta, at
		FROM audit_logs
		WHERE org_id = $1
		  AND ($2 = '' OR entity = $2)
		  AND ($3 = '' OR entity_id = $3)
		  AND ($4 = '' OR action = $4)
		  AND ($5::timestamptz IS NULL OR at >= $5)
		  AND ($6::timestamptz IS NULL OR at <= $6)
		ORDER BY at DESC, id DESC
		OFFSET $7 LIMIT $8`,
		orgID,
		strings.TrimSpace(filters.Entity),
		strings.TrimSpace(filters.EntityID),
		strings.TrimSpace(filters.Action),
		nullableTime(filters.From),
		nullableTime(filters.To),
		offset, pageSize+1)
	if err != nil {
		return Result{}, db.Translate(err)
	}
	defer rows.Close()

	var out []TimelineRow
	for rows.Next() {
		var row TimelineRow
		var meta []byte
		if err := rows.Scan(&row.ID, &row.ActorID, &row.Action, &row.Entity, &row.EntityID, &meta, &row.At); err != nil {
			return Result{}, err
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &row.Meta)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return Result{}, db.Translate(err)
	}

	hasNext := len(out) > pageSize
	if hasNext {
		out = out[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: out, Paging: paging}, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
