package ledger

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/condoledger/condoledger/internal/platform/httpx"
	"github.com/condoledger/condoledger/internal/shared"
)

// Handler manages ledger entry endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers operational ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/entries", h.list)
	r.Post("/entries", h.create)
	r.Get("/entries/{id}", h.get)
	r.Post("/entries/{id}/approve", h.approve)
	r.Post("/entries/{id}/pay", h.pay)
	r.Post("/entries/{id}/reconcile", h.reconcile)
	r.Post("/entries/{id}/close", h.close)
	r.Post("/entries/{id}/cancel", h.cancel)
}

// MountAdminRoutes registers the privileged reopen route.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Post("/entries/{id}/reopen", h.reopen)
}

type createEntryRequest struct {
	Direction          string  `json:"direction" validate:"required,oneof=payable receivable"`
	Situation          string  `json:"situation" validate:"omitempty,oneof=open paid"`
	CounterpartyID     int64   `json:"counterparty_id"`
	Category           string  `json:"category"`
	CostCenter         *string `json:"cost_center"`
	FinancialAccountID int64   `json:"financial_account_id" validate:"required"`
	Amount             string  `json:"amount" validate:"required"`
	Competency         string  `json:"competency" validate:"required,datetime=2006-01-02"`
	DueDate            *string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	SettlementDate     *string `json:"settlement_date" validate:"omitempty,datetime=2006-01-02"`
	PaymentMethod      string  `json:"payment_method"`
	Description        string  `json:"description"`
	Reference          string  `json:"reference"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.IdentityFromContext(r.Context())
	var req createEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid amount")
		return
	}
	competency, _ := time.Parse("2006-01-02", req.Competency)
	in := CreateInput{
		Direction:          Direction(req.Direction),
		Situation:          Situation(req.Situation),
		CounterpartyID:     req.CounterpartyID,
		Category:           req.Category,
		CostCenter:         req.CostCenter,
		FinancialAccountID: req.FinancialAccountID,
		Amount:             amount,
		Competency:         competency,
		PaymentMethod:      req.PaymentMethod,
		Description:        req.Description,
		Reference:          req.Reference,
	}
	if req.DueDate != nil {
		due, _ := time.Parse("2006-01-02", *req.DueDate)
		in.DueDate = &due
	}
	if req.SettlementDate != nil {
		settled, _ := time.Parse("2006-01-02", *req.SettlementDate)
		in.SettlementDate = &settled
	}
	entry, err := h.service.Create(r.Context(), actor, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.IdentityFromContext(r.Context())
	q := r.URL.Query()
	filter := ListFilter{
		Situation: Situation(q.Get("situation")),
		Direction: Direction(q.Get("direction")),
	}
	if v := q.Get("from"); v != "" {
		filter.CompetencyFrom, _ = time.Parse("2006-01-02", v)
	}
	if v := q.Get("to"); v != "" {
		filter.CompetencyTo, _ = time.Parse("2006-01-02", v)
	}
	if v := q.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := q.Get("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v)
	}
	entries, err := h.service.List(r.Context(), actor.OrgID, filter)
	if err != nil {
		h.logger.Error("list entries", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.IdentityFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry id")
		return
	}
	entry, err := h.service.Get(r.Context(), actor.OrgID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Approve)
}

type payRequest struct {
	SettlementDate *string `json:"settlement_date" validate:"omitempty,datetime=2006-01-02"`
	PaymentMethod  string  `json:"payment_method"`
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.IdentityFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry id")
		return
	}
	var req payRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
			return
		}
		if err := h.validate.Struct(req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
	}
	in := PayInput{PaymentMethod: req.PaymentMethod}
	if req.SettlementDate != nil {
		settled, _ := time.Parse("2006-01-02", *req.SettlementDate)
		in.SettlementDate = &settled
	}
	entry, err := h.service.Pay(r.Context(), actor, id, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

type reconcileRequest struct {
	ConfirmedDate string  `json:"confirmed_date" validate:"omitempty,datetime=2006-01-02"`
	Reference     *string `json:"reference"`
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.IdentityFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry id")
		return
	}
	var req reconcileRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
			return
		}
		if err := h.validate.Struct(req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
	}
	in := ReconcileInput{Reference: req.Reference}
	if req.ConfirmedDate != "" {
		in.ConfirmedDate, _ = time.Parse("2006-01-02", req.ConfirmedDate)
	}
	entry, err := h.service.Reconcile(r.Context(), actor, id, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Close)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Cancel)
}

func (h *Handler) reopen(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Reopen)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actor shared.Identity, id int64) (LedgerEntry, error)) {
	actor, _ := shared.IdentityFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry id")
		return
	}
	entry, err := fn(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}
