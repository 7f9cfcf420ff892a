package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/condoledger/condoledger/internal/accounts"
	"github.com/condoledger/condoledger/internal/audit"
	"github.com/condoledger/condoledger/internal/ledger"
	"github.com/condoledger/condoledger/internal/mappings"
	"github.com/condoledger/condoledger/internal/periods"
	"github.com/condoledger/condoledger/internal/posting"
	"github.com/condoledger/condoledger/internal/reconciliation"
	"github.com/condoledger/condoledger/jobs"
)

// newTestRouter mounts the full route tree with zero-value handlers; the
// tests below exercise middleware ordering, not handler behaviour.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(RouterParams{
		Logger:                logger,
		AccountsHandler:       &accounts.Handler{},
		LedgerHandler:         &ledger.Handler{},
		PeriodsHandler:        &periods.Handler{},
		MappingsHandler:       &mappings.Handler{},
		PostingHandler:        &posting.Handler{},
		ReconciliationHandler: &reconciliation.Handler{},
		AuditHandler:          &audit.Handler{},
		JobHandler:            jobs.NewHandler(nil, nil, logger),
	})
}

func TestSweepTriggerRequiresIdentity(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/jobs/sweep", strings.NewReader(`{"org_id":1}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSweepTriggerRequiresAdmin(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/jobs/sweep", strings.NewReader(`{"org_id":1}`))
	req.Header.Set(HeaderOrgID, "12")
	req.Header.Set(HeaderActorID, "7")
	req.Header.Set(HeaderActorRole, "manager")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// an admin clears both gates; without a queue client the handler
	// reports unavailable rather than rejecting the caller
	req = httptest.NewRequest(http.MethodPost, "/jobs/sweep", strings.NewReader(`{"org_id":1}`))
	req.Header.Set(HeaderOrgID, "12")
	req.Header.Set(HeaderActorID, "7")
	req.Header.Set(HeaderActorRole, "admin")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestJobsHealthStaysPublic(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/jobs/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"queue"`)
}
