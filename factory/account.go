/*
Package factory provides JSON to Go account conversion.

PURPOSE:
  Converts JSON account definitions into engine.Account and
  engine.Transaction values. Missing settings get the house defaults;
  present settings are validated, never silently replaced.

JSON SCHEMA:
  {
    "id": "icl-acme",
    "name": "Acme Pvt Ltd",
    "address": "12 MG Road, Bengaluru",
    "start_date": "2023-01-01",
    "end_date": "2024-03-31",
    "annual_rate": "12",
    "tds_rate": "10",
    "penalty_rate": "2",
    "interest_type": "compound",
    "frequency": "quarterly",
    "repayment_convention": "exclusive",
    "grace_period_days": 30
  }

  Rates accept JSON numbers or strings; strings keep exact decimals.

DEFAULTS:
  annual_rate 12, tds_rate 10, penalty_rate 2, compound, quarterly,
  exclusive, grace_period_days 30.

USAGE:
  f := factory.NewAccountFactory()

  acct, err := f.ParseAccount(jsonString)

  // File input for the CLI: {"account": {...}, "transactions": [...]}
  acct, txs, err := f.ParseInput(data)

SEE ALSO:
  - engine/types.go: Account and Transaction
  - engine/validate.go: The checks applied after defaults
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/icl-engine/engine"
)

// =============================================================================
// DEFAULTS
// =============================================================================

var (
	DefaultAnnualRate  = decimal.NewFromInt(12)
	DefaultTDSRate     = decimal.NewFromInt(10)
	DefaultPenaltyRate = decimal.NewFromInt(2)
)

const (
	DefaultInterestType        = engine.InterestCompound
	DefaultFrequency           = engine.FrequencyQuarterly
	DefaultRepaymentConvention = engine.ConventionExclusive
	DefaultGracePeriodDays     = 30
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// AccountJSON is the JSON representation of an ICL account.
type AccountJSON struct {
	ID                  string           `json:"id,omitempty"`
	Name                string           `json:"name"`
	Address             string           `json:"address,omitempty"`
	StartDate           engine.Date      `json:"start_date"`
	EndDate             *engine.Date     `json:"end_date,omitempty"`
	AnnualRate          *decimal.Decimal `json:"annual_rate,omitempty"`
	TDSRate             *decimal.Decimal `json:"tds_rate,omitempty"`
	PenaltyRate         *decimal.Decimal `json:"penalty_rate,omitempty"`
	InterestType        string           `json:"interest_type,omitempty"`        // simple, compound
	Frequency           string           `json:"frequency,omitempty"`            // monthly, quarterly, yearly
	RepaymentConvention string           `json:"repayment_convention,omitempty"` // inclusive, exclusive
	GracePeriodDays     *int             `json:"grace_period_days,omitempty"`

	// Derived state, written by ToJSON only.
	Status      string       `json:"status,omitempty"`
	OverdueDays int          `json:"overdue_days,omitempty"`
	ClosureDate *engine.Date `json:"closure_date,omitempty"`
}

// TransactionJSON is the JSON representation of a transaction.
type TransactionJSON struct {
	ID          string          `json:"id,omitempty"`
	Date        engine.Date     `json:"date"`
	Description string          `json:"description,omitempty"`
	Paid        decimal.Decimal `json:"paid"`
	Received    decimal.Decimal `json:"received"`
}

// InputJSON bundles an account with its transactions.
type InputJSON struct {
	Account      AccountJSON       `json:"account"`
	Transactions []TransactionJSON `json:"transactions"`
}

// =============================================================================
// ACCOUNT FACTORY
// =============================================================================

// AccountFactory converts JSON accounts to engine values.
type AccountFactory struct{}

// NewAccountFactory creates a new account factory.
func NewAccountFactory() *AccountFactory {
	return &AccountFactory{}
}

// ParseAccount parses a JSON string into a validated Account.
func (f *AccountFactory) ParseAccount(jsonStr string) (engine.Account, error) {
	var aj AccountJSON
	if err := json.Unmarshal([]byte(jsonStr), &aj); err != nil {
		return engine.Account{}, fmt.Errorf("failed to parse account JSON: %w", err)
	}
	return f.FromJSON(aj)
}

// FromJSON applies defaults and validates. Derived state in aj is ignored;
// new accounts start active.
func (f *AccountFactory) FromJSON(aj AccountJSON) (engine.Account, error) {
	a := engine.Account{
		ID:                  aj.ID,
		Name:                aj.Name,
		Address:             aj.Address,
		StartDate:           aj.StartDate,
		EndDate:             aj.EndDate,
		AnnualRate:          decimalOr(aj.AnnualRate, DefaultAnnualRate),
		TDSRate:             decimalOr(aj.TDSRate, DefaultTDSRate),
		PenaltyRate:         decimalOr(aj.PenaltyRate, DefaultPenaltyRate),
		InterestType:        engine.InterestType(stringOr(aj.InterestType, string(DefaultInterestType))),
		Frequency:           engine.Frequency(stringOr(aj.Frequency, string(DefaultFrequency))),
		RepaymentConvention: engine.RepaymentConvention(stringOr(aj.RepaymentConvention, string(DefaultRepaymentConvention))),
		GracePeriodDays:     DefaultGracePeriodDays,
		Status:              engine.StatusActive,
	}
	if aj.GracePeriodDays != nil {
		a.GracePeriodDays = *aj.GracePeriodDays
	}
	if a.EndDate != nil && a.EndDate.IsZero() {
		a.EndDate = nil
	}

	if err := engine.ValidateAccount(a); err != nil {
		return engine.Account{}, err
	}
	return a, nil
}

// ToJSON converts an Account to AccountJSON, derived state included.
func (f *AccountFactory) ToJSON(a engine.Account) AccountJSON {
	annual, tds, penalty, grace := a.AnnualRate, a.TDSRate, a.PenaltyRate, a.GracePeriodDays
	return AccountJSON{
		ID:                  a.ID,
		Name:                a.Name,
		Address:             a.Address,
		StartDate:           a.StartDate,
		EndDate:             a.EndDate,
		AnnualRate:          &annual,
		TDSRate:             &tds,
		PenaltyRate:         &penalty,
		InterestType:        string(a.InterestType),
		Frequency:           string(a.Frequency),
		RepaymentConvention: string(a.RepaymentConvention),
		GracePeriodDays:     &grace,
		Status:              string(a.Status),
		OverdueDays:         a.OverdueDays,
		ClosureDate:         a.ClosureDate,
	}
}

// ParseTransaction decodes one transaction without account checks.
func (f *AccountFactory) ParseTransaction(data []byte) (engine.Transaction, error) {
	var tj TransactionJSON
	if err := json.Unmarshal(data, &tj); err != nil {
		return engine.Transaction{}, fmt.Errorf("failed to parse transaction JSON: %w", err)
	}
	return tj.Transaction(), nil
}

// ParseInput decodes an account with its transactions and validates every
// transaction against the account.
func (f *AccountFactory) ParseInput(data []byte) (engine.Account, []engine.Transaction, error) {
	var in InputJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return engine.Account{}, nil, fmt.Errorf("failed to parse input JSON: %w", err)
	}

	a, err := f.FromJSON(in.Account)
	if err != nil {
		return engine.Account{}, nil, fmt.Errorf("account: %w", err)
	}

	txs := make([]engine.Transaction, 0, len(in.Transactions))
	for i, tj := range in.Transactions {
		tx := tj.Transaction()
		if tx.ID == "" {
			tx.ID = fmt.Sprintf("tx-%d", i+1)
		}
		if err := engine.ValidateTransaction(a, tx); err != nil {
			return engine.Account{}, nil, fmt.Errorf("transaction %d: %w", i+1, err)
		}
		txs = append(txs, tx)
	}
	return a, txs, nil
}

// Transaction converts to the engine type.
func (tj TransactionJSON) Transaction() engine.Transaction {
	return engine.Transaction{
		ID:          tj.ID,
		Date:        tj.Date,
		Description: tj.Description,
		Paid:        tj.Paid,
		Received:    tj.Received,
	}
}

// TransactionToJSON converts an engine transaction for output.
func TransactionToJSON(tx engine.Transaction) TransactionJSON {
	return TransactionJSON{
		ID:          tx.ID,
		Date:        tx.Date,
		Description: tx.Description,
		Paid:        tx.Paid,
		Received:    tx.Received,
	}
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func decimalOr(v *decimal.Decimal, fallback decimal.Decimal) decimal.Decimal {
	if v == nil {
		return fallback
	}
	return *v
}

func stringOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
