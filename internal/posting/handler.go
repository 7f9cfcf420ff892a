package posting

import (
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

// Handler manages posting and report endpoints.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	integrator *Integrator
	validate   *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, integrator *Integrator) *Handler {
	return &Handler{logger: logger, service: service, integrator: integrator, validate: validator.New()}
}

// MountRoutes registers read-only posting and report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/postings", h.list)
	r.Get("/postings/{id}", h.get)
	r.Get("/reports/trial-balance", h.trialBalance)
	r.Get("/reports/income-statement", h.incomeStatement)
	r.Get("/reports/balance-sheet", h.balanceSheet)
}

// MountAdminRoutes registers manual posting and the sweep trigger.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Post("/postings", h.postManual)
	r.Post("/integration/sweep", h.sweep)
}

type postingLineRequest struct {
	AccountID  int64   `json:"account_id" validate:"required"`
	Side       string  `json:"side" validate:"required,oneof=debit credit"`
	Amount     string  `json:"amount" validate:"required"`
	CostCenter *string `json:"cost_center"`
}

type postManualRequest struct {
	PostingDate string               `json:"posting_date" validate:"omitempty,datetime=2006-01-02"`
	Competency  string               `json:"competency" validate:"required,datetime=2006-01-02"`
	Historical  string               `json:"historical" validate:"required"`
	Origin      string               `json:"origin" validate:"omitempty,oneof=manual adjustment"`
	Lines       []postingLineRequest `json:"lines" validate:"required,min=2,dive"`
}

func (h *Handler) postManual(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.IdentityFromContext(r.Context())
	var req postManualRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	competency, _ := time.Parse("2006-01-02", req.Competency)
	draft := Draft{
		Competency: competency,
		Historical: req.Historical,
		Origin:     Origin(req.Origin),
	}
	if req.PostingDate != "" {
		draft.PostingDate, _ = time.Parse("2006-01-02", req.PostingDate)
	}
	for _, line := range req.Lines {
		amount, err := decimal.NewFromString(line.Amount)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid line amount")
			return
		}
		draft.Lines = append(draft.Lines, DraftLine{
			AccountID:  line.AccountID,
			Side:       Side(line.Side),
			Amount:     amount,
			CostCenter: line.CostCenter,
		})
	}
	created, err := h.service.PostManual(r.Context(), actor, draft)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

type sweepRequest struct {
	From string `json:"from" validate:"required,datetime=2006-01-02"`
	To   string `json:"to" validate:"required,datetime=2006-01-02"`
}

func (h *Handler) sweep(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.IdentityFromContext(r.Context())
	var req sweepRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	from, _ := time.Parse("2006-01-02", req.From)
	to, _ := time.Parse("2006-01-02", req.To)
	result, err := h.integrator.Sweep(r.Context(), actor, from, to)
	if err != nil {
		h.logger.Error("integration sweep", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.IdentityFromContext(r.Context())
	from, to, ok := parseWindow(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	out, err := h.service.List(r.Context(), actor.OrgID, from, to, limit, offset)
	if err != nil {
		h.logger.Error("list postings", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.IdentityFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid posting id")
		return
	}
	p, err := h.service.Get(r.Context(), actor.OrgID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.IdentityFromContext(r.Context())
	from, to, ok := parseWindow(w, r)
	if !ok {
		return
	}
	out, err := h.service.TrialBalance(r.Context(), actor.OrgID, from, to)
	if err != nil {
		h.logger.Error("trial balance", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) incomeStatement(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.IdentityFromContext(r.Context())
	from, to, ok := parseWindow(w, r)
	if !ok {
		return
	}
	out, err := h.service.IncomeStatement(r.Context(), actor.OrgID, from, to)
	if err != nil {
		h.logger.Error("income statement", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) balanceSheet(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.IdentityFromContext(r.Context())
	cutoffStr := r.URL.Query().Get("cutoff")
	cutoff, err := time.Parse("2006-01-02", cutoffStr)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "cutoff date required as YYYY-MM-DD")
		return
	}
	out, err := h.service.BalanceSheet(r.Context(), actor.OrgID, cutoff)
	if err != nil {
		h.logger.Error("balance sheet", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func parseWindow(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from date required as YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to date required as YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}
