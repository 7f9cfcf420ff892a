package accounts

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/condoledger/condoledger/internal/shared"
)

// AccountGroup enumerates chart of accounts classifications.
type AccountGroup string

const (
	GroupAsset     AccountGroup = "asset"
	GroupLiability AccountGroup = "liability"
	GroupEquity    AccountGroup = "equity"
	GroupResult    AccountGroup = "result"
)

// AccountNature enumerates the normal balance side of an account.
type AccountNature string

const (
	NatureDebit  AccountNature = "debit"
	NatureCredit AccountNature = "credit"
)

// FinancialAccountStatus enumerates bank/cash account states.
type FinancialAccountStatus string

const (
	FinancialAccountActive   FinancialAccountStatus = "active"
	FinancialAccountInactive FinancialAccountStatus = "inactive"
)

// Account models a chart of accounts node. Codes are dot-hierarchical
// ("2.05") and unique per organization.
type Account struct {
	ID        int64
	OrgID     int64
	Code      string
	Name      string
	Group     AccountGroup
	Nature    AccountNature
	Level     int
	ParentID  *int64
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FinancialAccount models a bank or cash account owned by the organization.
type FinancialAccount struct {
	ID             int64
	OrgID          int64
	Name           string
	Kind           string
	BankCode       string
	BankBranch     string
	BankNumber     string
	OpeningBalance decimal.Decimal
	Status         FinancialAccountStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CreateAccountInput groups fields for creating a chart of accounts node.
type CreateAccountInput struct {
	OrgID    int64
	Code     string
	Name     string
	Group    AccountGroup
	Nature   AccountNature
	Level    int
	ParentID *int64
}

// Validate checks required fields and derives the level from the code depth
// when not supplied.
func (in *CreateAccountInput) Validate() error {
	if in.OrgID == 0 {
		return shared.Validationf("accounts: organization required")
	}
	in.Code = strings.TrimSpace(in.Code)
	if in.Code == "" {
		return shared.Validationf("accounts: code required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return shared.Validationf("accounts: name required")
	}
	switch in.Group {
	case GroupAsset, GroupLiability, GroupEquity, GroupResult:
	default:
		return shared.Validationf("accounts: unknown group %q", in.Group)
	}
	switch in.Nature {
	case NatureDebit, NatureCredit:
	default:
		return shared.Validationf("accounts: unknown nature %q", in.Nature)
	}
	if in.Level == 0 {
		in.Level = strings.Count(in.Code, ".") + 1
	}
	if in.Level <= 0 {
		return shared.Validationf("accounts: level must be positive")
	}
	return nil
}

// UpdateAccountInput carries the mutable account fields. Code, group and
// nature are fixed at creation.
type UpdateAccountInput struct {
	Name string
}

// Validate checks required fields.
func (in *UpdateAccountInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return shared.Validationf("accounts: name required")
	}
	return nil
}

// CreateFinancialAccountInput groups fields for creating a financial account.
type CreateFinancialAccountInput struct {
	OrgID          int64
	Name           string
	Kind           string
	BankCode       string
	BankBranch     string
	BankNumber     string
	OpeningBalance decimal.Decimal
}

// Validate checks required fields.
func (in *CreateFinancialAccountInput) Validate() error {
	if in.OrgID == 0 {
		return shared.Validationf("accounts: organization required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return shared.Validationf("accounts: name required")
	}
	if strings.TrimSpace(in.Kind) == "" {
		return shared.Validationf("accounts: kind required")
	}
	return nil
}

// UpdateFinancialAccountInput carries the mutable financial account fields.
type UpdateFinancialAccountInput struct {
	Name       string
	BankCode   string
	BankBranch string
	BankNumber string
}

// Validate checks required fields.
func (in *UpdateFinancialAccountInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return shared.Validationf("accounts: name required")
	}
	return nil
}
