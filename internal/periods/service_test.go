package periods

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/condoledger/condoledger/internal/shared"
)

type memoryPeriodRepo struct {
	periods map[int64]Period
	nextID  int64
}

func newMemoryPeriodRepo() *memoryPeriodRepo {
	return &memoryPeriodRepo{periods: make(map[int64]Period)}
}

func (r *memoryPeriodRepo) WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	return fn(ctx, nil)
}

func (r *memoryPeriodRepo) Insert(ctx context.Context, in CreateInput) (Period, error) {
	r.nextID++
	p := Period{ID: r.nextID, OrgID: in.OrgID, StartDate: in.StartDate, EndDate: in.EndDate, Status: StatusOpen}
	r.periods[p.ID] = p
	return p, nil
}

func (r *memoryPeriodRepo) RangeConflict(ctx context.Context, orgID int64, start, end time.Time) (bool, error) {
	for _, p := range r.periods {
		if p.OrgID != orgID {
			continue
		}
		if !end.Before(p.StartDate) && !start.After(p.EndDate) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryPeriodRepo) Get(ctx context.Context, orgID, id int64) (Period, error) {
	p, ok := r.periods[id]
	if !ok || p.OrgID != orgID {
		return Period{}, shared.NotFoundf("periods: period %d not found", id)
	}
	return p, nil
}

func (r *memoryPeriodRepo) List(ctx context.Context, orgID int64) ([]Period, error) {
	var out []Period
	for _, p := range r.periods {
		if p.OrgID == orgID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memoryPeriodRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, orgID, id int64) (Period, error) {
	return r.Get(ctx, orgID, id)
}

func (r *memoryPeriodRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id int64, status Status, closedBy *int64, closedAt *time.Time) error {
	p, ok := r.periods[id]
	if !ok {
		return shared.NotFoundf("periods: period %d not found", id)
	}
	p.Status = status
	p.ClosedBy = closedBy
	p.ClosedAt = closedAt
	r.periods[id] = p
	return nil
}

func (r *memoryPeriodRepo) ClosedPeriodCovering(ctx context.Context, orgID int64, date time.Time) (*Period, error) {
	for _, p := range r.periods {
		if p.OrgID == orgID && p.Status == StatusClosed && p.Contains(date) {
			found := p
			return &found, nil
		}
	}
	return nil, nil
}

func newPeriodService(t *testing.T) (*Service, *memoryPeriodRepo) {
	t.Helper()
	repo := newMemoryPeriodRepo()
	svc := NewService(repo, nil)
	svc.WithNow(func() time.Time { return time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC) })
	return svc, repo
}

func january() CreateInput {
	return CreateInput{
		OrgID:     1,
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreateRejectsOverlap(t *testing.T) {
	svc, _ := newPeriodService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, 7, january())
	require.NoError(t, err)

	overlap := january()
	overlap.StartDate = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	overlap.EndDate = time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	_, err = svc.Create(ctx, 7, overlap)
	require.True(t, shared.IsKind(err, shared.KindValidation))
}

func TestCloseAndReopenLifecycle(t *testing.T) {
	svc, _ := newPeriodService(t)
	ctx := context.Background()

	period, err := svc.Create(ctx, 7, january())
	require.NoError(t, err)

	closed, err := svc.Close(ctx, 1, 7, period.ID)
	require.NoError(t, err)
	require.Equal(t, StatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)
	require.NotNil(t, closed.ClosedBy)

	// closing again conflicts
	_, err = svc.Close(ctx, 1, 7, period.ID)
	require.True(t, shared.IsKind(err, shared.KindStateConflict))

	reopened, err := svc.Reopen(ctx, 1, 7, period.ID)
	require.NoError(t, err)
	require.Equal(t, StatusOpen, reopened.Status)
	require.Nil(t, reopened.ClosedAt)

	_, err = svc.Reopen(ctx, 1, 7, period.ID)
	require.True(t, shared.IsKind(err, shared.KindStateConflict))
}

func TestEnsureOpenForCompetency(t *testing.T) {
	svc, _ := newPeriodService(t)
	ctx := context.Background()

	period, err := svc.Create(ctx, 7, january())
	require.NoError(t, err)

	inside := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.EnsureOpenForCompetency(ctx, 1, inside))

	_, err = svc.Close(ctx, 1, 7, period.ID)
	require.NoError(t, err)

	err = svc.EnsureOpenForCompetency(ctx, 1, inside)
	require.True(t, shared.IsKind(err, shared.KindStateConflict))

	// outside the closed window stays unaffected
	require.NoError(t, svc.EnsureOpenForCompetency(ctx, 1, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)))

	_, err = svc.Reopen(ctx, 1, 7, period.ID)
	require.NoError(t, err)
	require.NoError(t, svc.EnsureOpenForCompetency(ctx, 1, inside))
}

func TestCloseHookReceivesWindow(t *testing.T) {
	svc, _ := newPeriodService(t)
	ctx := context.Background()

	period, err := svc.Create(ctx, 7, january())
	require.NoError(t, err)

	var gotOrg int64
	var gotStart, gotEnd time.Time
	svc.SetCloseHook(func(ctx context.Context, orgID int64, start, end time.Time) error {
		gotOrg = orgID
		gotStart = start
		gotEnd = end
		return nil
	})

	_, err = svc.Close(ctx, 1, 7, period.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, gotOrg)
	require.Equal(t, january().StartDate, gotStart)
	require.Equal(t, january().EndDate, gotEnd)
}
