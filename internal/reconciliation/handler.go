package reconciliation

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/condoledger/condoledger/internal/platform/httpx"
	"github.com/condoledger/condoledger/internal/shared"
)

// Handler manages statement import and confirmation endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers reconciliation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/reconciliation/import", h.importStatement)
	r.Post("/reconciliation/confirm", h.confirm)
}

type importRequest struct {
	Format  string `json:"format" validate:"omitempty,oneof=delimited ofx"`
	Content string `json:"content" validate:"required"`
}

type importResponse struct {
	BatchID   string          `json:"batch_id"`
	Lines     []StatementLine `json:"lines"`
	Total     int             `json:"total"`
	Skipped   int             `json:"skipped"`
	Matched   int             `json:"matched"`
	Unmatched int             `json:"unmatched"`
}

func (h *Handler) importStatement(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.IdentityFromContext(r.Context())
	var req importRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	imported, err := h.service.ImportAndMatch(r.Context(), actor, []byte(req.Content), Format(req.Format))
	if err != nil {
		h.logger.Error("statement import", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, importResponse{
		BatchID:   imported.BatchID,
		Lines:     imported.Match.Lines,
		Total:     imported.Match.Total,
		Skipped:   imported.Parse.Skipped,
		Matched:   imported.Match.Matched,
		Unmatched: imported.Match.Unmatched,
	})
}

type confirmRequest struct {
	EntryID       int64   `json:"entry_id" validate:"required"`
	ConfirmedDate string  `json:"confirmed_date" validate:"omitempty,datetime=2006-01-02"`
	Reference     *string `json:"reference"`
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.IdentityFromContext(r.Context())
	var req confirmRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	in := ConfirmInput{EntryID: req.EntryID, Reference: req.Reference}
	if req.ConfirmedDate != "" {
		in.ConfirmedDate, _ = time.Parse("2006-01-02", req.ConfirmedDate)
	}
	entry, err := h.service.Confirm(r.Context(), actor, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}
