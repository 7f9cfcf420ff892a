package mappings

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/condoledger/condoledger/internal/platform/httpx"
	"github.com/condoledger/condoledger/internal/shared"
)

// Handler manages category mapping endpoints; all routes are admin-only.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountAdminRoutes registers mapping management routes.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/mappings", h.list)
	r.Post("/mappings", h.create)
	r.Delete("/mappings/{id}", h.delete)
}

type createMappingRequest struct {
	Category        string `json:"category" validate:"required"`
	Direction       string `json:"direction" validate:"required,oneof=payable receivable"`
	DebitAccountID  int64  `json:"debit_account_id" validate:"required"`
	CreditAccountID int64  `json:"credit_account_id" validate:"required"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	id, _ := shared.IdentityFromContext(r.Context())
	var req createMappingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	mapping, err := h.service.Create(r.Context(), id.ActorID, CategoryMapping{
		OrgID:           id.OrgID,
		Category:        req.Category,
		Direction:       req.Direction,
		DebitAccountID:  req.DebitAccountID,
		CreditAccountID: req.CreditAccountID,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, mapping)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	id, _ := shared.IdentityFromContext(r.Context())
	out, err := h.service.List(r.Context(), id.OrgID)
	if err != nil {
		h.logger.Error("list mappings", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, _ := shared.IdentityFromContext(r.Context())
	mappingID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid mapping id")
		return
	}
	if err := h.service.Delete(r.Context(), id.OrgID, id.ActorID, mappingID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
