package app

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/condoledger/condoledger/internal/platform/httpx"
	"github.com/condoledger/condoledger/internal/shared"
)

// Identity headers injected by the membership gateway in front of this
// service. The gateway authenticates; we only trust its forwarded claims.
const (
	HeaderOrgID     = "X-Org-ID"
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"

	roleAdmin = "admin"
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger *slog.Logger
	Config *Config
}

// MiddlewareStack installs the default middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLRedirect:        cfg.Config != nil && cfg.Config.IsProduction(),
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
	})

	timeout := 30 * time.Second
	if cfg.Config != nil && cfg.Config.AppRequestTimeout > 0 {
		timeout = cfg.Config.AppRequestTimeout
	}

	return []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					cfg.Logger.Warn("secure headers blocked request", slog.Any("error", err))
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				next.ServeHTTP(w, r)
			})
		},
		middleware.Compress(5),
		httprate.Limit(120, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)),
	}
}

// IdentityMiddleware resolves the acting principal from gateway headers and
// stores it in the request context. Requests without a valid organization
// and actor are rejected before reaching any handler.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		orgID, err := strconv.ParseInt(r.Header.Get(HeaderOrgID), 10, 64)
		if err != nil || orgID <= 0 {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing organization identity")
			return
		}
		actorID, err := strconv.ParseInt(r.Header.Get(HeaderActorID), 10, 64)
		if err != nil || actorID <= 0 {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing actor identity")
			return
		}
		identity := shared.Identity{
			OrgID:   orgID,
			ActorID: actorID,
			Admin:   r.Header.Get(HeaderActorRole) == roleAdmin,
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), identity)))
	})
}

// RequireAdmin gates administrative routes.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := shared.IdentityFromContext(r.Context())
		if !ok || !identity.Admin {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "administrative role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
