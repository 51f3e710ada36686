/*
handlers.go - HTTP API handlers for the studio ledger

PURPOSE:
  Exposes the ledger engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Transactions:
    GET    /api/transactions             List (filter: staff, status, from, to)
    POST   /api/transactions             Book a session
    GET    /api/transactions/{id}        Get one row
    GET    /api/transactions/{id}/chain  Full correction chain
    POST   /api/transactions/{id}/correct  Correct (supersede + replace)
    POST   /api/transactions/{id}/void   Void a mistaken booking

  Staff:
    GET    /api/staff                    Staff directory
    POST   /api/staff                    Add staff member
    GET    /api/staff/{name}/balance     Computed balance
    GET    /api/staff/{name}/payments    Payout history

  Payments:
    POST   /api/payments                 Record a payout

  Pricing:
    GET    /api/pricing                  List catalog rules
    POST   /api/pricing                  Create/replace a rule
    DELETE /api/pricing/{id}             Remove a rule

  Roster:
    GET    /api/roster                   Today's roster
    POST   /api/roster                   Add entry
    DELETE /api/roster/{position}        Remove entry
    POST   /api/roster/reorder           Swap two positions
    POST   /api/roster/{position}/busy   Mark busy until a time
    POST   /api/roster/clear             Empty the roster

  Admin:
    POST   /api/admin/seed               Load demo catalog and staff
    POST   /api/admin/reset              Wipe the database (dev only)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Transaction, rule or roster position not found
  - 409: Correction/void race (row no longer ACTIVE, chain branching)
  - 422: No pricing rule for the requested combination
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - seed.go: Demo data loader
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/studio-ledger/balance"
	"github.com/warp/studio-ledger/ledger"
	"github.com/warp/studio-ledger/pricing"
	"github.com/warp/studio-ledger/roster"
	"github.com/warp/studio-ledger/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       *sqlite.Store
	Ledger      *ledger.TransactionLedger
	Corrections *ledger.CorrectionEngine
	Catalog     *pricing.Catalog
	Balances    *balance.Calculator
	Roster      *roster.Roster

	Log   zerolog.Logger
	clock func() time.Time
}

// NewHandler wires the domain components around one store.
func NewHandler(store *sqlite.Store, cfg balance.Config, log zerolog.Logger) *Handler {
	catalog := pricing.NewCatalog(store)
	led := ledger.New(store, catalog)
	return &Handler{
		Store:       store,
		Ledger:      led,
		Corrections: ledger.NewCorrectionEngine(led),
		Catalog:     catalog,
		Balances:    balance.NewCalculator(led, store, cfg),
		Roster:      roster.New(),
		Log:         log,
		clock:       time.Now,
	}
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// CreateTransaction books a session. The price and staff fee come from the
// pricing catalog; the client never supplies them.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in, err := req.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	tx, err := h.Ledger.Append(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, "Failed to book session", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx))
}

// ListTransactions returns ledger rows, optionally filtered by query params.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	f := ledger.Filter{
		StaffName: r.URL.Query().Get("staff"),
		Status:    ledger.Status(r.URL.Query().Get("status")),
	}
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from time (use RFC3339)", err)
			return
		}
		f.From = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to time (use RFC3339)", err)
			return
		}
		f.To = t
	}

	txs, err := h.Ledger.List(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// GetTransaction returns a single row by ID, whatever its status.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id := ledger.TransactionID(chi.URLParam(r, "id"))

	tx, err := h.Ledger.GetByID(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

// GetTransactionChain returns the full correction chain containing the row,
// oldest first. Works from any link in the chain.
func (h *Handler) GetTransactionChain(w http.ResponseWriter, r *http.Request) {
	id := ledger.TransactionID(chi.URLParam(r, "id"))

	chain, err := h.Corrections.Chain(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get correction chain", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(chain))
}

// CorrectTransaction supersedes the original and appends a corrected
// replacement in one atomic step.
func (h *Handler) CorrectTransaction(w http.ResponseWriter, r *http.Request) {
	id := ledger.TransactionID(chi.URLParam(r, "id"))

	var req CorrectTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	up, err := req.toUpdate()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	replacement, err := h.Corrections.Correct(r.Context(), id, up)
	if err != nil {
		h.writeDomainError(w, "Failed to correct transaction", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(*replacement))
}

// VoidTransaction marks an ACTIVE booking VOID. The row stays in the ledger.
func (h *Handler) VoidTransaction(w http.ResponseWriter, r *http.Request) {
	id := ledger.TransactionID(chi.URLParam(r, "id"))

	if err := h.Ledger.Void(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to void transaction", err)
		return
	}

	tx, err := h.Ledger.GetByID(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

// =============================================================================
// STAFF AND BALANCE HANDLERS
// =============================================================================

// ListStaff returns the staff directory.
func (h *Handler) ListStaff(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListStaff(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list staff", err)
		return
	}

	dtos := make([]StaffDTO, 0, len(records))
	for _, st := range records {
		dtos = append(dtos, StaffDTO{
			ID:        st.ID,
			Name:      st.Name,
			Phone:     st.Phone,
			Active:    st.Active,
			CreatedAt: st.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateStaff adds a staff member to the directory.
func (h *Handler) CreateStaff(w http.ResponseWriter, r *http.Request) {
	var req CreateStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return
	}

	st := sqlite.Staff{ID: newStaffID(), Name: req.Name, Phone: req.Phone, Active: true}
	if err := h.Store.SaveStaff(r.Context(), st); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create staff", err)
		return
	}
	writeJSON(w, http.StatusCreated, StaffDTO{
		ID:     st.ID,
		Name:   st.Name,
		Phone:  st.Phone,
		Active: st.Active,
	})
}

// GetStaffBalance computes the financial position for one staff member.
// The balance is derived on every call, never read from a stored field.
func (h *Handler) GetStaffBalance(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	b, err := h.Balances.StaffBalance(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toStaffBalanceDTO(b))
}

// GetStaffPayments returns the payout history for one staff member.
func (h *Handler) GetStaffPayments(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	payments, err := h.Store.PaymentsByStaff(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}

	dtos := make([]PaymentDTO, 0, len(payments))
	for _, p := range payments {
		dtos = append(dtos, toPaymentDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecordPayment appends a payout to the payment log.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	paidAt, err := time.Parse(time.RFC3339, req.PaidAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid paid_at time (use RFC3339)", err)
		return
	}

	p, err := balance.NewPaymentRecord(req.StaffName, amount, paidAt, req.Method)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payment", err)
		return
	}
	if err := h.Store.AppendPayment(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(p))
}

// =============================================================================
// PRICING HANDLERS
// =============================================================================

// ListPricingRules returns the catalog.
func (h *Handler) ListPricingRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Catalog.Rules(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list pricing rules", err)
		return
	}

	dtos := make([]PricingRuleDTO, 0, len(rules))
	for _, rule := range rules {
		dtos = append(dtos, toPricingRuleDTO(rule))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// UpsertPricingRule creates or replaces the rule for one
// location/service/duration combination.
func (h *Handler) UpsertPricingRule(w http.ResponseWriter, r *http.Request) {
	var req UpsertPricingRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid price", err)
		return
	}
	fee, err := decimal.NewFromString(req.StaffFee)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid staff_fee", err)
		return
	}

	rule, err := h.Catalog.Upsert(r.Context(), pricing.Rule{
		Location:        req.Location,
		ServiceName:     req.ServiceName,
		DurationMinutes: req.DurationMinutes,
		Price:           price,
		StaffFee:        fee,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to save pricing rule", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPricingRuleDTO(rule))
}

// DeletePricingRule removes a rule from the catalog. Past transactions keep
// the price they were booked at.
func (h *Handler) DeletePricingRule(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete pricing rule", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ROSTER HANDLERS
// =============================================================================

// GetRoster returns today's roster with busy status derived at response time.
func (h *Handler) GetRoster(w http.ResponseWriter, r *http.Request) {
	now := h.clock()
	entries := h.Roster.Entries()

	dtos := make([]RosterEntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toRosterEntryDTO(e, now))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// AddRosterEntry appends a staff member at the next position.
func (h *Handler) AddRosterEntry(w http.ResponseWriter, r *http.Request) {
	var req AddRosterEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	e, err := h.Roster.Add(req.StaffName)
	if err != nil {
		h.writeDomainError(w, "Failed to add roster entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRosterEntryDTO(e, h.clock()))
}

// RemoveRosterEntry deletes the entry at a position and compacts the order.
func (h *Handler) RemoveRosterEntry(w http.ResponseWriter, r *http.Request) {
	position, err := strconv.Atoi(chi.URLParam(r, "position"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid position", err)
		return
	}

	if err := h.Roster.Remove(position); err != nil {
		h.writeDomainError(w, "Failed to remove roster entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReorderRoster swaps the entries at two positions.
func (h *Handler) ReorderRoster(w http.ResponseWriter, r *http.Request) {
	var req ReorderRosterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Roster.Reorder(req.PositionA, req.PositionB); err != nil {
		h.writeDomainError(w, "Failed to reorder roster", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetRosterBusy marks the entry at a position busy until the given time.
// No timer is started; the status lapses on its own when reads pass the time.
func (h *Handler) SetRosterBusy(w http.ResponseWriter, r *http.Request) {
	position, err := strconv.Atoi(chi.URLParam(r, "position"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid position", err)
		return
	}

	var req SetBusyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	until, err := time.Parse(time.RFC3339, req.Until)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid until time (use RFC3339)", err)
		return
	}

	if err := h.Roster.SetBusy(position, until); err != nil {
		h.writeDomainError(w, "Failed to set busy", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearRoster empties today's roster.
func (h *Handler) ClearRoster(w http.ResponseWriter, r *http.Request) {
	h.Roster.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// ResetDatabase wipes all persisted data. Dev/demo only.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.Roster.Clear()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// HELPERS
// =============================================================================

func (r CreateTransactionRequest) toInput() (ledger.Input, error) {
	start, err := time.Parse(time.RFC3339, r.StartTime)
	if err != nil {
		return ledger.Input{}, errors.New("invalid start_time (use RFC3339)")
	}
	end, err := time.Parse(time.RFC3339, r.EndTime)
	if err != nil {
		return ledger.Input{}, errors.New("invalid end_time (use RFC3339)")
	}
	return ledger.Input{
		StaffName:       r.StaffName,
		ServiceName:     r.ServiceName,
		Location:        r.Location,
		DurationMinutes: r.DurationMinutes,
		PaymentMethod:   r.PaymentMethod,
		StartTime:       start,
		EndTime:         end,
		CustomerContact: r.CustomerContact,
	}, nil
}

func (r CorrectTransactionRequest) toUpdate() (ledger.Update, error) {
	up := ledger.Update{
		StaffName:       r.StaffName,
		ServiceName:     r.ServiceName,
		Location:        r.Location,
		DurationMinutes: r.DurationMinutes,
		PaymentMethod:   r.PaymentMethod,
		CustomerContact: r.CustomerContact,
	}
	if r.StartTime != nil {
		t, err := time.Parse(time.RFC3339, *r.StartTime)
		if err != nil {
			return ledger.Update{}, errors.New("invalid start_time (use RFC3339)")
		}
		up.StartTime = &t
	}
	if r.EndTime != nil {
		t, err := time.Parse(time.RFC3339, *r.EndTime)
		if err != nil {
			return ledger.Update{}, errors.New("invalid end_time (use RFC3339)")
		}
		up.EndTime = &t
	}
	return up, nil
}

func newStaffID() string { return uuid.NewString() }

// writeDomainError maps domain errors onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case ledger.IsNotFound(err) || errors.Is(err, roster.ErrPositionNotFound):
		writeError(w, http.StatusNotFound, message, err)
	case ledger.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case errors.Is(err, pricing.ErrPricingNotFound):
		writeError(w, http.StatusUnprocessableEntity, message, err)
	case ledger.IsClientError(err) || errors.Is(err, roster.ErrEmptyStaffName):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Log.Error().Err(err).Msg(message)
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
