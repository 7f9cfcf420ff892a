package accounts

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/condoledger/condoledger/internal/platform/httpx"
	"github.com/condoledger/condoledger/internal/shared"
)

// Handler manages account registry endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers account registry routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/accounts", h.listAccounts)
	r.Post("/accounts", h.createAccount)
	r.Get("/accounts/by-code/{code}", h.getAccountByCode)
	r.Get("/accounts/{id}", h.getAccount)
	r.Put("/accounts/{id}", h.updateAccount)
	r.Post("/accounts/{id}/deactivate", h.deactivateAccount)

	r.Get("/financial-accounts", h.listFinancialAccounts)
	r.Post("/financial-accounts", h.createFinancialAccount)
	r.Get("/financial-accounts/{id}", h.getFinancialAccount)
	r.Put("/financial-accounts/{id}", h.updateFinancialAccount)
	r.Post("/financial-accounts/{id}/status", h.setFinancialAccountStatus)
}

type createAccountRequest struct {
	Code     string `json:"code" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Group    string `json:"group" validate:"required,oneof=asset liability equity result"`
	Nature   string `json:"nature" validate:"required,oneof=debit credit"`
	Level    int    `json:"level"`
	ParentID *int64 `json:"parent_id"`
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	id, _ := shared.IdentityFromContext(r.Context())
	var req createAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	account, err := h.service.CreateAccount(r.Context(), id.ActorID, CreateAccountInput{
		OrgID:    id.OrgID,
		Code:     req.Code,
		Name:     req.Name,
		Group:    AccountGroup(req.Group),
		Nature:   AccountNature(req.Nature),
		Level:    req.Level,
		ParentID: req.ParentID,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, account)
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	id, _ := shared.IdentityFromContext(r.Context())
	accounts, err := h.service.ListAccounts(r.Context(), id.OrgID)
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, accounts)
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	id, _ := shared.IdentityFromContext(r.Context())
	accountID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid account id")
		return
	}
	account, err := h.service.GetAccount(r.Context(), id.OrgID, accountID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) getAccountByCode(w http.ResponseWriter, r *http.Request) {
	id, _ := shared.IdentityFromContext(r.Context())
	code := chi.URLParam(r, "code")
	if code == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "account code required")
		return
	}
	account, err := h.service.GetAccountByCode(r.Context(), id.OrgID, code)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

type updateAccountRequest struct {
	Name string `json:"name" validate:"required"`
}

func (h *Handler) updateAccount(w http.ResponseWriter, r *http.Request) {
	id, _ := shared.IdentityFromContext(r.Context())
	accountID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid account id")
		return
	}
	var req updateAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	account, err := h.service.UpdateAccount(r.Context(), id.OrgID, id.ActorID, accountID, UpdateAccountInput{Name: req.Name})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) deactivateAccount(w http.ResponseWriter, r *http.Request) {
	id, _ := shared.IdentityFromContext(r.Context())
	accountID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid account id")
		return
	}
	if err := h.service.DeactivateAccount(r.Context(), id.OrgID, id.ActorID, accountID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "inactive"})
}

type createFinancialAccountRequest struct {
	Name           string `json:"name" validate:"required"`
	Kind           string `json:"kind" validate:"required"`
	BankCode       string `json:"bank_code"`
	BankBranch     string `json:"bank_branch"`
	BankNumber     string `json:"bank_number"`
	OpeningBalance string `json:"opening_balance"`
}

func (h *Handler) createFinancialAccount(w http.ResponseWriter, r *http.Request) {
	id, _ := shared.IdentityFromContext(r.Context())
	var req createFinancialAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	balance := decimal.Zero
	if req.OpeningBalance != "" {
		var err error
		balance, err = decimal.NewFromString(req.OpeningBalance)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid opening balance")
			return
		}
	}
	fa, err := h.service.CreateFinancialAccount(r.Context(), id.ActorID, CreateFinancialAccountInput{
		OrgID:          id.OrgID,
		Name:           req.Name,
		Kind:           req.Kind,
		BankCode:       req.BankCode,
		BankBranch:     req.BankBranch,
		BankNumber:     req.BankNumber,
		OpeningBalance: balance,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, fa)
}

func (h *Handler) listFinancialAccounts(w http.ResponseWriter, r *http.Request) {
	id, _ := shared.IdentityFromContext(r.Context())
	out, err := h.service.ListFinancialAccounts(r.Context(), id.OrgID)
	if err != nil {
		h.logger.Error("list financial accounts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) getFinancialAccount(w http.ResponseWriter, r *http.Request) {
	id, _ := shared.IdentityFromContext(r.Context())
	faID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid financial account id")
		return
	}
	fa, err := h.service.GetFinancialAccount(r.Context(), id.OrgID, faID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, fa)
}

type updateFinancialAccountRequest struct {
	Name       string `json:"name" validate:"required"`
	BankCode   string `json:"bank_code"`
	BankBranch string `json:"bank_branch"`
	BankNumber string `json:"bank_number"`
}

func (h *Handler) updateFinancialAccount(w http.ResponseWriter, r *http.Request) {
	id, _ := shared.IdentityFromContext(r.Context())
	faID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid financial account id")
		return
	}
	var req updateFinancialAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	fa, err := h.service.UpdateFinancialAccount(r.Context(), id.OrgID, id.ActorID, faID, UpdateFinancialAccountInput{
		Name:       req.Name,
		BankCode:   req.BankCode,
		BankBranch: req.BankBranch,
		BankNumber: req.BankNumber,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, fa)
}

type setFinancialAccountStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive"`
}

func (h *Handler) setFinancialAccountStatus(w http.ResponseWriter, r *http.Request) {
	id, _ := shared.IdentityFromContext(r.Context())
	faID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid financial account id")
		return
	}
	var req setFinancialAccountStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.SetFinancialAccountStatus(r.Context(), id.OrgID, id.ActorID, faID, FinancialAccountStatus(req.Status)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": req.Status})
}
