package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/condoledger/condoledger/internal/shared"
)

func identityProbe(t *testing.T) (http.Handler, *shared.Identity) {
	t.Helper()
	var captured shared.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := shared.IdentityFromContext(r.Context())
		require.True(t, ok)
		captured = id
		w.WriteHeader(http.StatusOK)
	})
	return IdentityMiddleware(next), &captured
}

func TestIdentityMiddlewareResolvesHeaders(t *testing.T) {
	handler, captured := identityProbe(t)

	req := httptest.NewRequest(http.MethodGet, "/entries", nil)
	req.Header.Set(HeaderOrgID, "12")
	req.Header.Set(HeaderActorID, "7")
	req.Header.Set(HeaderActorRole, "admin")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 12, captured.OrgID)
	require.EqualValues(t, 7, captured.ActorID)
	require.True(t, captured.Admin)
}

func TestIdentityMiddlewareNonAdminRole(t *testing.T) {
	handler, captured := identityProbe(t)

	req := httptest.NewRequest(http.MethodGet, "/entries", nil)
	req.Header.Set(HeaderOrgID, "12")
	req.Header.Set(HeaderActorID, "7")
	req.Header.Set(HeaderActorRole, "manager")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, captured.Admin)
}

func TestIdentityMiddlewareRejectsMissingHeaders(t *testing.T) {
	handler, _ := identityProbe(t)

	cases := map[string]map[string]string{
		"no headers":    {},
		"missing actor": {HeaderOrgID: "12"},
		"bad org":       {HeaderOrgID: "abc", HeaderActorID: "7"},
		"zero org":      {HeaderOrgID: "0", HeaderActorID: "7"},
		"negative actor": {
			HeaderOrgID:   "12",
			HeaderActorID: "-1",
		},
	}
	for name, headers := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/entries", nil)
			for k, v := range headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := IdentityMiddleware(RequireAdmin(next))

	req := httptest.NewRequest(http.MethodPost, "/periods/1/close", nil)
	req.Header.Set(HeaderOrgID, "12")
	req.Header.Set(HeaderActorID, "7")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req.Header.Set(HeaderActorRole, "admin")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
