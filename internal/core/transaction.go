package core

import (
	"errors"
	"strings"
)

const (
	// Uncategorised is the bucket for transactions without a category.
	Uncategorised = "uncategorised"
	// UnknownAccount is stored when the source does not name an account type.
	UnknownAccount = "unknown"
)

var (
	ErrEmptyDescription = errors.New("empty description")
	ErrAmountPrecision  = errors.New("amount has more than two decimals")
)

// Transaction is a ledger record. Amount is signed: income is positive,
// expense negative.
type Transaction struct {
	ID             int64   `json:"id,omitempty"`
	UserID         string  `json:"user_id"`
	PostedDate     Date    `json:"posted_date"`
	Description    string  `json:"description"`
	Amount         float64 `json:"amount"`
	Category       string  `json:"category"`
	AccountType    string  `json:"account_type"`
	SourceDocument string  `json:"source_document,omitempty"`
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return ErrEmptyUserID
	}
	if err := t.PostedDate.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if !HasCentPrecision(t.Amount) {
		return ErrAmountPrecision
	}
	return nil
}

// Normalize trims text fields and fills the category and account defaults.
func (t Transaction) Normalize() Transaction {
	t.Description = strings.TrimSpace(t.Description)
	t.Category = CategoryOrDefault(t.Category)
	t.AccountType = strings.TrimSpace(t.AccountType)
	if t.AccountType == "" {
		t.AccountType = UnknownAccount
	}
	return t
}

// CategoryOrDefault maps an empty or blank category to Uncategorised.
func CategoryOrDefault(category string) string {
	category = strings.TrimSpace(category)
	if category == "" {
		return Uncategorised
	}
	return category
}

// CashflowSummary holds totals rounded to two decimals.
type CashflowSummary struct {
	TotalIncome  float64 `json:"total_income"`
	TotalExpense float64 `json:"total_expense"`
	NetCashflow  float64 `json:"net_cashflow"`
	SavingRate   float64 `json:"saving_rate"`
}

// CategoryAmount is an expense total for one category.
type CategoryAmount struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}
