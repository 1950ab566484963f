/*
handlers.go - HTTP API handlers for ICL accounts

PURPOSE:
  Exposes the loan service via REST API. Handles HTTP request/response
  and JSON serialization, and delegates everything else to loan.Service.
  No handler does interest math.

ENDPOINTS:
  Accounts:
    GET    /api/accounts                     List accounts
    POST   /api/accounts                     Create account (factory defaults)
    GET    /api/accounts/{id}                Get account
    PUT    /api/accounts/{id}                Replace settings
    DELETE /api/accounts/{id}                Delete account and transactions

  Transactions:
    GET    /api/accounts/{id}/transactions   List in insertion order
    POST   /api/accounts/{id}/transactions   Add disbursement/repayment
    DELETE /api/accounts/{id}/transactions   Clear history
    DELETE /api/transactions/{id}            Delete one transaction
    GET    /api/transactions/recent?limit=N  Newest across accounts

  Calculations:
    GET    /api/accounts/{id}/timeline       Full ledger
    GET    /api/accounts/{id}/balance        ?date=YYYY-MM-DD (default today)
    GET    /api/accounts/{id}/settlement     ?date=YYYY-MM-DD (default today)
    POST   /api/accounts/{id}/close          {"closure_date": "YYYY-MM-DD"}
    GET    /api/accounts/{id}/export         XLSX workbook

  Admin:
    POST   /api/admin/status-refresh         Resolve and persist all statuses

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Account or transaction not found
  - 409: Write to a closed account
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - loan/service.go: The operations behind each endpoint
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/icl-engine/engine"
	"github.com/warp/icl-engine/export"
	"github.com/warp/icl-engine/factory"
	"github.com/warp/icl-engine/loan"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service        *loan.Service
	AccountFactory *factory.AccountFactory
	Logger         *zap.Logger
}

// NewHandler creates a new handler around the service.
func NewHandler(svc *loan.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Service:        svc,
		AccountFactory: factory.NewAccountFactory(),
		Logger:         logger,
	}
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// ListAccounts returns all accounts.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Service.ListAccounts(r.Context())
	if err != nil {
		h.writeServiceError(w, "Failed to list accounts", err)
		return
	}

	dtos := make([]factory.AccountJSON, len(accounts))
	for i, a := range accounts {
		dtos[i] = h.AccountFactory.ToJSON(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetAccount returns a single account.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	a, err := h.Service.GetAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, "Failed to get account", err)
		return
	}
	writeJSON(w, http.StatusOK, h.AccountFactory.ToJSON(a))
}

// CreateAccount creates an account from JSON, applying defaults.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	a, ok := h.decodeAccount(w, r)
	if !ok {
		return
	}

	created, err := h.Service.CreateAccount(r.Context(), a)
	if err != nil {
		h.writeServiceError(w, "Failed to create account", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.AccountFactory.ToJSON(created))
}

// UpdateAccount replaces an account's settings.
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	a, ok := h.decodeAccount(w, r)
	if !ok {
		return
	}

	updated, err := h.Service.UpdateAccount(r.Context(), chi.URLParam(r, "id"), a)
	if err != nil {
		h.writeServiceError(w, "Failed to update account", err)
		return
	}
	writeJSON(w, http.StatusOK, h.AccountFactory.ToJSON(updated))
}

// DeleteAccount removes an account and its transactions.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteAccount(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, "Failed to delete account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeAccount(w http.ResponseWriter, r *http.Request) (engine.Account, bool) {
	var req factory.AccountJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return engine.Account{}, false
	}
	a, err := h.AccountFactory.FromJSON(req)
	if err != nil {
		h.writeServiceError(w, "Invalid account", err)
		return engine.Account{}, false
	}
	return a, true
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// GetTransactions lists an account's transactions.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Service.Transactions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, "Failed to list transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// AddTransaction records a disbursement or repayment.
func (h *Handler) AddTransaction(w http.ResponseWriter, r *http.Request) {
	var req factory.TransactionJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	accountID := chi.URLParam(r, "id")
	tx, err := h.Service.AddTransaction(r.Context(), accountID, req.Transaction())
	if err != nil {
		h.writeServiceError(w, "Failed to add transaction", err)
		return
	}

	dto := toTransactionDTO(tx)
	dto.AccountID = accountID
	writeJSON(w, http.StatusCreated, dto)
}

// DeleteTransaction removes one transaction.
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteTransaction(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, "Failed to delete transaction", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAllTransactions clears an account's history.
func (h *Handler) DeleteAllTransactions(w http.ResponseWriter, r *http.Request) {
	n, err := h.Service.DeleteAllTransactions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, "Failed to delete transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, DeletedDTO{Deleted: n})
}

// RecentTransactions returns the newest transactions across accounts.
func (h *Handler) RecentTransactions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	recs, err := h.Service.RecentTransactions(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, "Failed to list recent transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTOs(recs))
}

// =============================================================================
// CALCULATION HANDLERS
// =============================================================================

// GetTimeline returns the full ledger and persists any status change.
func (h *Handler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	a, tl, err := h.Service.Timeline(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, "Failed to build timeline", err)
		return
	}
	writeJSON(w, http.StatusOK, NewTimelineDTO(h.AccountFactory, a, tl))
}

// GetBalance returns the balance on ?date (default today).
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	target, ok := h.queryDate(w, r)
	if !ok {
		return
	}

	res, err := h.Service.BalanceAt(r.Context(), chi.URLParam(r, "id"), target)
	if err != nil {
		h.writeServiceError(w, "Failed to compute balance", err)
		return
	}
	writeJSON(w, http.StatusOK, NewBalanceDTO(res))
}

// GetSettlement quotes the settlement on ?date (default today).
func (h *Handler) GetSettlement(w http.ResponseWriter, r *http.Request) {
	closure, ok := h.queryDate(w, r)
	if !ok {
		return
	}

	res, err := h.Service.Settlement(r.Context(), chi.URLParam(r, "id"), closure)
	if err != nil {
		h.writeServiceError(w, "Failed to compute settlement", err)
		return
	}
	writeJSON(w, http.StatusOK, NewSettlementDTO(res))
}

// CloseLoan settles and closes the loan.
func (h *Handler) CloseLoan(w http.ResponseWriter, r *http.Request) {
	var req CloseLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ClosureDate.IsZero() {
		writeError(w, http.StatusBadRequest, "closure_date is required (use YYYY-MM-DD)", nil)
		return
	}

	res, err := h.Service.CloseLoan(r.Context(), chi.URLParam(r, "id"), req.ClosureDate)
	if err != nil {
		h.writeServiceError(w, "Failed to close loan", err)
		return
	}

	tx := toTransactionDTO(res.Transaction)
	tx.AccountID = res.Account.ID
	writeJSON(w, http.StatusOK, ClosureDTO{
		Account:     h.AccountFactory.ToJSON(res.Account),
		Settlement:  NewSettlementDTO(res.Settlement),
		Transaction: tx,
	})
}

// ExportTimeline streams the timeline as an XLSX workbook.
func (h *Handler) ExportTimeline(w http.ResponseWriter, r *http.Request) {
	a, tl, err := h.Service.Timeline(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, "Failed to build timeline", err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteTimeline(&buf, a, tl); err != nil {
		h.writeServiceError(w, "Failed to export timeline", err)
		return
	}

	filename := fmt.Sprintf("icl-%s-%s.xlsx", a.ID, tl.AsOf)
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// TriggerStatusRefresh resolves and persists status for every account.
func (h *Handler) TriggerStatusRefresh(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Service.RefreshStatuses(r.Context())
	if err != nil {
		h.writeServiceError(w, "Failed to refresh statuses", err)
		return
	}
	writeJSON(w, http.StatusOK, toStatusRefreshDTO(counts))
}

func toStatusRefreshDTO(counts map[engine.Status]int) StatusRefreshDTO {
	dto := StatusRefreshDTO{
		Counts:      make(map[string]int, len(counts)),
		RefreshedAt: time.Now().UTC().Format(time.RFC3339),
	}
	for status, n := range counts {
		dto.Counts[string(status)] = n
	}
	return dto
}

// Health reports liveness. It answers 503 when the store is unreachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Ping(r.Context()); err != nil {
		h.Logger.Warn("health check failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "store unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) queryDate(w http.ResponseWriter, r *http.Request) (engine.Date, bool) {
	s := r.URL.Query().Get("date")
	if s == "" {
		return h.Service.Engine.Today(), true
	}
	d, err := engine.ParseDate(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return engine.Date{}, false
	}
	return d, true
}

// writeServiceError maps service errors to HTTP status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, engine.ErrAccountClosed):
		writeError(w, http.StatusConflict, message, err)
	case loan.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case engine.IsClientError(err):
		var verr *engine.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   message,
				Code:    verr.Field,
				Details: err.Error(),
			})
			return
		}
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Logger.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
