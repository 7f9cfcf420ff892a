package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/condoledger/condoledger/internal/shared"
)

type memoryEntryRepo struct {
	entries map[int64]LedgerEntry
	nextID  int64
}

func newMemoryEntryRepo() *memoryEntryRepo {
	return &memoryEntryRepo{entries: make(map[int64]LedgerEntry)}
}

func (r *memoryEntryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryEntryTx{repo: r})
}

func (r *memoryEntryRepo) Get(ctx context.Context, orgID, id int64) (LedgerEntry, error) {
	entry, ok := r.entries[id]
	if !ok || entry.OrgID != orgID {
		return LedgerEntry{}, shared.NotFoundf("ledger: entry %d not found", id)
	}
	return entry, nil
}

func (r *memoryEntryRepo) List(ctx context.Context, orgID int64, filter ListFilter) ([]LedgerEntry, error) {
	var out []LedgerEntry
	for _, entry := range r.entries {
		if entry.OrgID != orgID {
			continue
		}
		if filter.Situation != "" && entry.Situation != filter.Situation {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func (r *memoryEntryRepo) SettledBetween(ctx context.Context, orgID int64, from, to time.Time) ([]LedgerEntry, error) {
	var out []LedgerEntry
	for _, entry := range r.entries {
		if entry.OrgID != orgID || entry.Situation != SituationPaid || entry.SettlementDate == nil {
			continue
		}
		if entry.SettlementDate.Before(from) || entry.SettlementDate.After(to) {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func (r *memoryEntryRepo) SettledForIntegration(ctx context.Context, orgID int64, from, to time.Time) ([]LedgerEntry, error) {
	var out []LedgerEntry
	for _, entry := range r.entries {
		if entry.OrgID != orgID {
			continue
		}
		switch entry.Situation {
		case SituationPaid, SituationReconciled, SituationClosed:
		default:
			continue
		}
		if entry.Competency.Before(from) || entry.Competency.After(to) {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

type memoryEntryTx struct {
	repo *memoryEntryRepo
}

func (tx *memoryEntryTx) Insert(ctx context.Context, in CreateInput) (LedgerEntry, error) {
	tx.repo.nextID++
	entry := LedgerEntry{
		ID:                 tx.repo.nextID,
		OrgID:              in.OrgID,
		Direction:          in.Direction,
		Situation:          in.Situation,
		CounterpartyID:     in.CounterpartyID,
		Category:           in.Category,
		CostCenter:         in.CostCenter,
		FinancialAccountID: in.FinancialAccountID,
		Amount:             in.Amount,
		Competency:         in.Competency,
		DueDate:            in.DueDate,
		SettlementDate:     in.SettlementDate,
		PaymentMethod:      in.PaymentMethod,
		Description:        in.Description,
		Reference:          in.Reference,
	}
	tx.repo.entries[entry.ID] = entry
	return entry, nil
}

func (tx *memoryEntryTx) GetForUpdate(ctx context.Context, orgID, id int64) (LedgerEntry, error) {
	return tx.repo.Get(ctx, orgID, id)
}

func (tx *memoryEntryTx) UpdateSituation(ctx context.Context, id int64, situation Situation, settlementDate *time.Time, reference *string) error {
	entry, ok := tx.repo.entries[id]
	if !ok {
		return shared.NotFoundf("ledger: entry %d not found", id)
	}
	entry.Situation = situation
	if settlementDate != nil {
		entry.SettlementDate = settlementDate
	}
	if reference != nil {
		entry.Reference = *reference
	}
	tx.repo.entries[id] = entry
	return nil
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

var (
	testActor = shared.Identity{OrgID: 1, ActorID: 7}
	testAdmin = shared.Identity{OrgID: 1, ActorID: 8, Admin: true}
)

func newTestService(t *testing.T) (*Service, *memoryEntryRepo, *recordingAudit) {
	t.Helper()
	repo := newMemoryEntryRepo()
	recorder := &recordingAudit{}
	svc := NewService(repo, recorder)
	svc.WithNow(func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) })
	return svc, repo, recorder
}

func receivableInput() CreateInput {
	return CreateInput{
		Direction:          DirectionReceivable,
		CounterpartyID:     10,
		Category:           "condo-fee",
		FinancialAccountID: 1,
		Amount:             decimal.RequireFromString("480.50"),
		Competency:         time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		DueDate:            timePtr(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)),
	}
}

func timePtr(t time.Time) *time.Time { return &t }

func TestCreateDefaultsToOpen(t *testing.T) {
	svc, _, recorder := newTestService(t)

	entry, err := svc.Create(context.Background(), testActor, receivableInput())
	require.NoError(t, err)
	require.Equal(t, SituationOpen, entry.Situation)
	require.True(t, entry.Amount.Equal(decimal.RequireFromString("480.50")))
	require.Len(t, recorder.logs, 1)
	require.Equal(t, "entry.create", recorder.logs[0].Action)
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	cases := map[string]func(*CreateInput){
		"zero amount":      func(in *CreateInput) { in.Amount = decimal.Zero },
		"negative amount":  func(in *CreateInput) { in.Amount = decimal.RequireFromString("-5") },
		"no direction":     func(in *CreateInput) { in.Direction = "" },
		"no competency":    func(in *CreateInput) { in.Competency = time.Time{} },
		"due before comp":  func(in *CreateInput) { in.DueDate = timePtr(in.Competency.AddDate(0, 0, -1)) },
		"no fin account":   func(in *CreateInput) { in.FinancialAccountID = 0 },
		"created approved": func(in *CreateInput) { in.Situation = SituationApproved },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := receivableInput()
			mutate(&in)
			_, err := svc.Create(context.Background(), testActor, in)
			require.True(t, shared.IsKind(err, shared.KindValidation), "expected validation error, got %v", err)
		})
	}
}

func TestCreateDirectlyPaidDefaultsSettlement(t *testing.T) {
	svc, _, _ := newTestService(t)

	in := receivableInput()
	in.Situation = SituationPaid
	entry, err := svc.Create(context.Background(), testActor, in)
	require.NoError(t, err)
	require.Equal(t, SituationPaid, entry.Situation)
	require.NotNil(t, entry.SettlementDate)
	require.Equal(t, time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC), *entry.SettlementDate)
}

func TestLifecycleHappyPath(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	entry, err := svc.Create(ctx, testActor, receivableInput())
	require.NoError(t, err)

	entry, err = svc.Approve(ctx, testActor, entry.ID)
	require.NoError(t, err)
	require.Equal(t, SituationApproved, entry.Situation)

	entry, err = svc.Pay(ctx, testActor, entry.ID, PayInput{})
	require.NoError(t, err)
	require.Equal(t, SituationPaid, entry.Situation)
	require.NotNil(t, entry.SettlementDate)

	entry, err = svc.Reconcile(ctx, testActor, entry.ID, ReconcileInput{ConfirmedDate: time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.Equal(t, SituationReconciled, entry.Situation)

	entry, err = svc.Close(ctx, testActor, entry.ID)
	require.NoError(t, err)
	require.Equal(t, SituationClosed, entry.Situation)
}

func TestCancelPaidEntryFails(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	entry, err := svc.Create(ctx, testActor, receivableInput())
	require.NoError(t, err)
	_, err = svc.Approve(ctx, testActor, entry.ID)
	require.NoError(t, err)
	_, err = svc.Pay(ctx, testActor, entry.ID, PayInput{})
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, testActor, entry.ID)
	require.True(t, shared.IsKind(err, shared.KindStateConflict), "expected state conflict, got %v", err)

	// Failed transition leaves the stored situation untouched.
	stored, err := repo.Get(ctx, testActor.OrgID, entry.ID)
	require.NoError(t, err)
	require.Equal(t, SituationPaid, stored.Situation)
}

func TestIllegalTransitionsRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	entry, err := svc.Create(ctx, testActor, receivableInput())
	require.NoError(t, err)

	// pay without approval
	_, err = svc.Pay(ctx, testActor, entry.ID, PayInput{})
	require.True(t, shared.IsKind(err, shared.KindStateConflict))

	// reconcile an open entry
	_, err = svc.Reconcile(ctx, testActor, entry.ID, ReconcileInput{})
	require.True(t, shared.IsKind(err, shared.KindStateConflict))

	// close an open entry
	_, err = svc.Close(ctx, testActor, entry.ID)
	require.True(t, shared.IsKind(err, shared.KindStateConflict))
}

func TestCancelFromOpenAndApproved(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	open, err := svc.Create(ctx, testActor, receivableInput())
	require.NoError(t, err)
	cancelled, err := svc.Cancel(ctx, testActor, open.ID)
	require.NoError(t, err)
	require.Equal(t, SituationCancelled, cancelled.Situation)

	approved, err := svc.Create(ctx, testActor, receivableInput())
	require.NoError(t, err)
	_, err = svc.Approve(ctx, testActor, approved.ID)
	require.NoError(t, err)
	cancelled, err = svc.Cancel(ctx, testActor, approved.ID)
	require.NoError(t, err)
	require.Equal(t, SituationCancelled, cancelled.Situation)

	// cancelled is terminal
	_, err = svc.Approve(ctx, testActor, cancelled.ID)
	require.True(t, shared.IsKind(err, shared.KindStateConflict))
}

func TestReopenRequiresAdmin(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	entry, err := svc.Create(ctx, testActor, receivableInput())
	require.NoError(t, err)
	_, err = svc.Approve(ctx, testActor, entry.ID)
	require.NoError(t, err)
	_, err = svc.Pay(ctx, testActor, entry.ID, PayInput{})
	require.NoError(t, err)
	_, err = svc.Reconcile(ctx, testActor, entry.ID, ReconcileInput{})
	require.NoError(t, err)
	_, err = svc.Close(ctx, testActor, entry.ID)
	require.NoError(t, err)

	_, err = svc.Reopen(ctx, testActor, entry.ID)
	require.True(t, shared.IsKind(err, shared.KindStateConflict))

	reopened, err := svc.Reopen(ctx, testAdmin, entry.ID)
	require.NoError(t, err)
	require.Equal(t, SituationOpen, reopened.Situation)
}

func TestTransitionAuditTrail(t *testing.T) {
	svc, _, recorder := newTestService(t)
	ctx := context.Background()

	entry, err := svc.Create(ctx, testActor, receivableInput())
	require.NoError(t, err)
	_, err = svc.Approve(ctx, testActor, entry.ID)
	require.NoError(t, err)

	require.Len(t, recorder.logs, 2)
	last := recorder.logs[1]
	require.Equal(t, "entry.approved", last.Action)
	require.Equal(t, SituationOpen, last.Meta["before"])
	require.Equal(t, SituationApproved, last.Meta["after"])
}
