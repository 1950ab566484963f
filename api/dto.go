/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Account:
    factory.AccountJSON (request and response)

  Transactions:
    TransactionDTO, factory.TransactionJSON (request)

  Calculations:
    TimelineDTO, EntryDTO, BalanceDTO, SettlementDTO, ClosureDTO

  Admin:
    StatusRefreshDTO, ScenarioDTO

MONEY:
  Amounts are decimals encoded as JSON strings, rounded to 2 places for
  display. The engine keeps full precision internally.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/account.go: AccountJSON type
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/icl-engine/engine"
	"github.com/warp/icl-engine/factory"
	"github.com/warp/icl-engine/loan"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// TransactionDTO represents a stored transaction.
type TransactionDTO struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"account_id,omitempty"`
	Date        engine.Date     `json:"date"`
	Description string          `json:"description"`
	Paid        decimal.Decimal `json:"paid"`
	Received    decimal.Decimal `json:"received"`
	CreatedAt   string          `json:"created_at,omitempty"`
}

// EntryDTO is one timeline row.
type EntryDTO struct {
	Date            engine.Date     `json:"date"`
	Description     string          `json:"description"`
	Kind            string          `json:"kind"`
	Period          string          `json:"period,omitempty"`
	TransactionID   string          `json:"transaction_id,omitempty"`
	Paid            decimal.Decimal `json:"paid"`
	Received        decimal.Decimal `json:"received"`
	Days            int             `json:"days"`
	Interest        decimal.Decimal `json:"interest"`
	PenaltyInterest decimal.Decimal `json:"penalty_interest"`
	TotalInterest   decimal.Decimal `json:"total_interest"`
	TDS             decimal.Decimal `json:"tds"`
	NetInterest     decimal.Decimal `json:"net_interest"`
	Outstanding     decimal.Decimal `json:"outstanding"`
	Principal       decimal.Decimal `json:"principal"`
	Overdue         bool            `json:"overdue,omitempty"`
}

// TotalsDTO sums a run of entries.
type TotalsDTO struct {
	Paid          decimal.Decimal `json:"paid"`
	Received      decimal.Decimal `json:"received"`
	Interest      decimal.Decimal `json:"interest"`
	Penalty       decimal.Decimal `json:"penalty"`
	TotalInterest decimal.Decimal `json:"total_interest"`
	TDS           decimal.Decimal `json:"tds"`
	NetInterest   decimal.Decimal `json:"net_interest"`
}

// TimelineDTO is the full ledger response.
type TimelineDTO struct {
	Account        factory.AccountJSON `json:"account"`
	Strategy       string              `json:"strategy"`
	Status         string              `json:"status"`
	OverdueDays    int                 `json:"overdue_days"`
	AsOf           engine.Date         `json:"as_of"`
	ClosingBalance decimal.Decimal     `json:"closing_balance"`
	Totals         TotalsDTO           `json:"totals"`
	Entries        []EntryDTO          `json:"entries"`
}

// BalanceDTO is the point-in-time balance response.
type BalanceDTO struct {
	TargetDate           engine.Date     `json:"target_date"`
	CalculationDate      engine.Date     `json:"calculation_date"`
	Outstanding          decimal.Decimal `json:"outstanding"`
	Principal            decimal.Decimal `json:"principal"`
	Totals               TotalsDTO       `json:"totals"`
	DaysFromStart        int             `json:"days_from_start"`
	TransactionCount     int             `json:"transaction_count"`
	LastTransactionDate  *engine.Date    `json:"last_transaction_date,omitempty"`
	ExtrapolatedDays     int             `json:"extrapolated_days"`
	ExtrapolatedInterest decimal.Decimal `json:"extrapolated_interest"`
	IsPredicted          bool            `json:"is_predicted"`
	IsBeyondEndDate      bool            `json:"is_beyond_end_date"`
}

// SettlementDTO is the settlement quote.
type SettlementDTO struct {
	ClosureDate     engine.Date     `json:"closure_date"`
	Outstanding     decimal.Decimal `json:"outstanding"`
	AdditionalDays  int             `json:"additional_days"`
	AccruedInterest decimal.Decimal `json:"accrued_interest"`
	PenaltyAmount   decimal.Decimal `json:"penalty_amount"`
	TDS             decimal.Decimal `json:"tds"`
	NetAdditional   decimal.Decimal `json:"net_additional"`
	TotalSettlement decimal.Decimal `json:"total_settlement"`
	OverdueDays     int             `json:"overdue_days"`
}

// CloseLoanRequest is the request to close a loan.
type CloseLoanRequest struct {
	ClosureDate engine.Date `json:"closure_date"`
}

// ClosureDTO is the result of closing a loan.
type ClosureDTO struct {
	Account     factory.AccountJSON `json:"account"`
	Settlement  SettlementDTO       `json:"settlement"`
	Transaction TransactionDTO      `json:"transaction"`
}

// StatusRefreshDTO reports a portfolio status refresh.
type StatusRefreshDTO struct {
	Counts      map[string]int `json:"counts"`
	RefreshedAt string         `json:"refreshed_at"`
}

// DeletedDTO reports how many rows a bulk delete removed.
type DeletedDTO struct {
	Deleted int `json:"deleted"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func toTransactionDTO(tx engine.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:          tx.ID,
		Date:        tx.Date,
		Description: tx.Description,
		Paid:        money(tx.Paid),
		Received:    money(tx.Received),
	}
}

func toTransactionDTOs(txs []engine.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	return dtos
}

func toRecordDTOs(recs []loan.TransactionRecord) []TransactionDTO {
	dtos := make([]TransactionDTO, len(recs))
	for i, rec := range recs {
		dto := toTransactionDTO(rec.Transaction)
		dto.AccountID = rec.AccountID
		if !rec.CreatedAt.IsZero() {
			dto.CreatedAt = rec.CreatedAt.Format(time.RFC3339)
		}
		dtos[i] = dto
	}
	return dtos
}

func toTotalsDTO(t engine.Totals) TotalsDTO {
	return TotalsDTO{
		Paid:          money(t.Paid),
		Received:      money(t.Received),
		Interest:      money(t.Interest),
		Penalty:       money(t.Penalty),
		TotalInterest: money(t.TotalInterest),
		TDS:           money(t.TDS),
		NetInterest:   money(t.NetInterest),
	}
}

// NewTimelineDTO converts a timeline to its wire form.
func NewTimelineDTO(f *factory.AccountFactory, a engine.Account, tl engine.Timeline) TimelineDTO {
	entries := make([]EntryDTO, len(tl.Entries))
	for i, e := range tl.Entries {
		entries[i] = EntryDTO{
			Date:            e.Date,
			Description:     e.Description,
			Kind:            string(e.Kind),
			Period:          e.Period,
			TransactionID:   e.TransactionID,
			Paid:            money(e.Paid),
			Received:        money(e.Received),
			Days:            e.Days,
			Interest:        money(e.Interest),
			PenaltyInterest: money(e.PenaltyInterest),
			TotalInterest:   money(e.TotalInterest),
			TDS:             money(e.TDS),
			NetInterest:     money(e.NetInterest),
			Outstanding:     money(e.Outstanding),
			Principal:       money(e.Principal),
			Overdue:         e.Overdue,
		}
	}
	return TimelineDTO{
		Account:        f.ToJSON(a),
		Strategy:       tl.Strategy,
		Status:         string(tl.Status),
		OverdueDays:    tl.OverdueDays,
		AsOf:           tl.AsOf,
		ClosingBalance: money(tl.ClosingBalance()),
		Totals:         toTotalsDTO(tl.Totals()),
		Entries:        entries,
	}
}

// NewBalanceDTO converts a balance result to its wire form.
func NewBalanceDTO(b engine.BalanceResult) BalanceDTO {
	return BalanceDTO{
		TargetDate:           b.TargetDate,
		CalculationDate:      b.CalculationDate,
		Outstanding:          money(b.Outstanding),
		Principal:            money(b.Principal),
		Totals:               toTotalsDTO(b.Totals),
		DaysFromStart:        b.DaysFromStart,
		TransactionCount:     b.TransactionCount,
		LastTransactionDate:  b.LastTransactionDate,
		ExtrapolatedDays:     b.ExtrapolatedDays,
		ExtrapolatedInterest: money(b.ExtrapolatedInterest),
		IsPredicted:          b.IsPredicted,
		IsBeyondEndDate:      b.IsBeyondEndDate,
	}
}

// NewSettlementDTO converts a settlement quote to its wire form.
func NewSettlementDTO(s engine.SettlementResult) SettlementDTO {
	return SettlementDTO{
		ClosureDate:     s.ClosureDate,
		Outstanding:     money(s.Outstanding),
		AdditionalDays:  s.AdditionalDays,
		AccruedInterest: money(s.AccruedInterest),
		PenaltyAmount:   money(s.PenaltyAmount),
		TDS:             money(s.TDS),
		NetAdditional:   money(s.NetAdditional),
		TotalSettlement: money(s.TotalSettlement),
		OverdueDays:     s.OverdueDays,
	}
}
