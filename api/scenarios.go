/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
  Provides pre-built ICL accounts with transaction histories that
  demonstrate specific engine behaviors. Each scenario goes through
  loan.Service, so the same validation and status resolution apply.

AVAILABLE SCENARIOS:
  q1-compound:        One disbursement, quarterly compound, Q1 2023
  exclusive-override: Repayment on a quarter-end date under exclusive
  yearly-remainder:   Yearly compound with a stub period to the end date
  npa-loan:           Matured loan left unpaid well past its grace period

USAGE VIA API:
  POST /api/scenarios/load
  {"scenario_id": "q1-compound"}

ADDING NEW SCENARIOS:
  1. Add to 'scenarios' slice with ID, name, description
  2. Add an entry to scenarioData with the account and transactions

NOTE:
  Scenarios add accounts; they never delete existing data.

SEE ALSO:
  - handlers.go: Shared helpers
  - factory/account.go: Account JSON definitions
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "q1-compound",
		Name:        "Q1 Compound",
		Description: "100,000 disbursed on 1 Jan 2023 at 12%, quarterly compound, 10% TDS",
	},
	{
		ID:          "exclusive-override",
		Name:        "Exclusive Override",
		Description: "Repayment on 31 Mar under the exclusive convention keeps the last day",
	},
	{
		ID:          "yearly-remainder",
		Name:        "Yearly Remainder",
		Description: "Yearly compound ICL whose end date falls mid-year",
	},
	{
		ID:          "npa-loan",
		Name:        "NPA Loan",
		Description: "Loan matured on 30 Jun 2023 and never repaid",
	},
}

// scenarioData holds each scenario as the same JSON the CLI accepts.
var scenarioData = map[string]string{
	"q1-compound": `{
		"account": {"name": "Acme Pvt Ltd", "start_date": "2023-01-01"},
		"transactions": [
			{"date": "2023-01-01", "description": "Disbursement", "paid": "100000"}
		]
	}`,
	"exclusive-override": `{
		"account": {"name": "Blue Meridian Ltd", "start_date": "2023-01-01", "repayment_convention": "exclusive"},
		"transactions": [
			{"date": "2023-01-01", "description": "Disbursement", "paid": "100000"},
			{"date": "2023-03-31", "description": "Part repayment", "received": "50000"}
		]
	}`,
	"yearly-remainder": `{
		"account": {
			"name": "Northwind Traders",
			"start_date": "2024-01-01",
			"end_date": "2025-03-31",
			"frequency": "yearly"
		},
		"transactions": [
			{"date": "2024-01-01", "description": "Disbursement", "paid": "100000"}
		]
	}`,
	"npa-loan": `{
		"account": {
			"name": "Sundown Infra",
			"start_date": "2023-01-01",
			"end_date": "2023-06-30",
			"grace_period_days": 15
		},
		"transactions": [
			{"date": "2023-01-01", "description": "Disbursement", "paid": "250000"},
			{"date": "2023-04-15", "description": "Interest servicing", "received": "5000"}
		]
	}`,
}

// ListScenarios returns all available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario creates a scenario's account and transactions.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	data, ok := scenarioData[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}

	accountID, err := h.loadScenario(r.Context(), data)
	if err != nil {
		h.writeServiceError(w, "Failed to load scenario", err)
		return
	}

	a, err := h.Service.GetAccount(r.Context(), accountID)
	if err != nil {
		h.writeServiceError(w, "Failed to load scenario", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.AccountFactory.ToJSON(a))
}

func (h *Handler) loadScenario(ctx context.Context, data string) (string, error) {
	a, txs, err := h.AccountFactory.ParseInput([]byte(data))
	if err != nil {
		return "", fmt.Errorf("parse scenario: %w", err)
	}

	created, err := h.Service.CreateAccount(ctx, a)
	if err != nil {
		return "", err
	}
	for _, tx := range txs {
		tx.ID = "" // positional IDs from ParseInput would collide across loads
		if _, err := h.Service.AddTransaction(ctx, created.ID, tx); err != nil {
			return "", fmt.Errorf("add %s: %w", tx.Date, err)
		}
	}
	return created.ID, nil
}
