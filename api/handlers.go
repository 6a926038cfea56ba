/*
handlers.go - HTTP API handlers for the admin console

PURPOSE:
  Exposes the workflow engine and the domain services via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Charts:
    GET    /api/charts/monthly?year=YYYY       Monthly buckets (all years without ?year)
    GET    /api/charts/daily?date=YYYY-MM-DD   Daily buckets of the month
    GET    /api/charts/{granularity}/html      Rendered ECharts page

  Ledger / workflow / audit:
    GET    /api/transactions                   Paid transactions (?from=&to=)
    POST   /api/transactions                   Record a paid transaction
    POST   /api/workflow/validate              Dry-run a status change
    GET    /api/audit                          Audit trail (?actor=&domain=&recordId=&limit=)

  Tickets, withdrawals, sales, products:
    GET|POST /api/tickets, /api/withdrawals, /api/sales, /api/products
    GET      /api/{collection}/{id}
    PATCH    /api/tickets/{id}/status, /api/withdrawals/{id}
    POST     /api/tickets/{id}/close, /api/tickets/{id}/reopen
    PUT      /api/sales/{id}                   Approve or reject
    PUT|DELETE /api/products/{id}, PATCH /api/products/{id}/status

ACTING ADMIN:
  Every mutation names its admin, either in the X-Admin-ID header or in the
  body's adminId field. The header wins. There is no session lookup.

ERROR HANDLING:
  Errors are returned as {"error", "details", "code"} with:
  - 400: Invalid payload, unknown status/domain/granularity
  - 404: Record not found
  - 409: Invalid transition, duplicate idempotency key
  - 413: Body larger than the upload limit
  - 422: Missing required field (admin, reply, cancellation reason)
  - 500: Internal errors

SECURITY NOTE:
  No authentication. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - dashboard.go: Summary endpoint
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/admin-console/catalog"
	"github.com/warp/admin-console/charts"
	"github.com/warp/admin-console/factory"
	"github.com/warp/admin-console/generic"
	"github.com/warp/admin-console/logging"
	"github.com/warp/admin-console/payouts"
	"github.com/warp/admin-console/sales"
	"github.com/warp/admin-console/store/sqlite"
	"github.com/warp/admin-console/tickets"
)

// HeaderAdminID carries the acting admin on mutations.
const HeaderAdminID = "X-Admin-ID"

const defaultMaxUploadBytes = 2 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Options configures NewHandler. Zero values get defaults.
type Options struct {
	Notifier       generic.Notifier
	Logger         *logging.Logger
	ChartTheme     string
	ChartCacheTTL  time.Duration
	MaxUploadBytes int64
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      *sqlite.Store
	Dispatcher *generic.Dispatcher
	Ledger     *generic.SalesLedger
	Payloads   *factory.PayloadFactory

	Tickets *tickets.Service
	Payouts *payouts.Service
	Sales   *sales.Service
	Catalog *catalog.Service
	Charts  *charts.Service

	Logger         *logging.Logger
	MaxUploadBytes int64
	Now            func() time.Time

	scenarios *scenarioRegistry
}

// NewHandler wires every service on top of one SQLite store.
func NewHandler(store *sqlite.Store, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}

	dispatcher := generic.NewDispatcher(store.AuditLog(), opts.Notifier, logger)
	ledger := generic.NewSalesLedger(store)
	catalogSvc := catalog.NewService(store, dispatcher)
	chartSvc := charts.NewService(ledger, charts.NewRenderer(opts.ChartTheme), charts.NewCache(opts.ChartCacheTTL))
	salesSvc := sales.NewService(store, catalogSvc, ledger, dispatcher)
	salesSvc.OnPayment(func(context.Context, sales.Sale) { chartSvc.Invalidate() })

	return &Handler{
		Store:          store,
		Dispatcher:     dispatcher,
		Ledger:         ledger,
		Payloads:       factory.NewPayloadFactory(),
		Tickets:        tickets.NewService(store, dispatcher),
		Payouts:        payouts.NewService(store, dispatcher),
		Sales:          salesSvc,
		Catalog:        catalogSvc,
		Charts:         chartSvc,
		Logger:         logger.WithComponent(logging.ComponentHTTP),
		MaxUploadBytes: maxUpload,
		Now:            time.Now,
		scenarios:      newScenarioRegistry(),
	}
}

// Health reports database reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Database unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// CHART HANDLERS
// =============================================================================

// MonthlyChart returns twelve month buckets. With ?year the buckets only
// count that year; without it every year folds into its calendar month.
// GET /api/charts/monthly
func (h *Handler) MonthlyChart(w http.ResponseWriter, r *http.Request) {
	ref, yearScoped, err := h.chartReference(r, generic.GranularityMonth)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}
	h.writeChart(w, r, generic.GranularityMonth, ref, yearScoped)
}

// DailyChart returns one bucket per day of the month containing ?date.
// GET /api/charts/daily
func (h *Handler) DailyChart(w http.ResponseWriter, r *http.Request) {
	ref, _, err := h.chartReference(r, generic.GranularityDay)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	h.writeChart(w, r, generic.GranularityDay, ref, true)
}

// ChartHTML renders the chart page for a granularity.
// GET /api/charts/{granularity}/html
func (h *Handler) ChartHTML(w http.ResponseWriter, r *http.Request) {
	g, err := generic.ParseGranularity(chi.URLParam(r, "granularity"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	ref, yearScoped, err := h.chartReference(r, g)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid chart reference", err)
		return
	}

	html, err := h.Charts.HTML(r.Context(), g, ref, yearScoped)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, html)
}

// chartReference reads ?year (monthly) or ?date (daily). Defaults to now.
func (h *Handler) chartReference(r *http.Request, g generic.Granularity) (time.Time, bool, error) {
	now := h.now()
	if g == generic.GranularityDay {
		raw := r.URL.Query().Get("date")
		if raw == "" {
			return now, true, nil
		}
		ref, err := generic.ParseDate(raw)
		return ref, true, err
	}

	raw := r.URL.Query().Get("year")
	if raw == "" || raw == "all" {
		return now, false, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1 {
		return time.Time{}, false, fmt.Errorf("year must be a positive number, got %q", raw)
	}
	return generic.NewDate(year, time.January, 1), true, nil
}

func (h *Handler) writeChart(w http.ResponseWriter, r *http.Request, g generic.Granularity, ref time.Time, yearScoped bool) {
	buckets, err := h.Charts.Buckets(r.Context(), g, ref, yearScoped)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	title, subtitle := charts.Titles(g, ref, yearScoped)
	dto := ChartDTO{
		Granularity: string(g),
		Title:       title,
		Subtitle:    subtitle,
		YearScoped:  yearScoped,
		Buckets:     make([]BucketDTO, len(buckets)),
		Total:       formatAmount(generic.Total(buckets)),
	}
	for i, b := range buckets {
		dto.Buckets[i] = BucketDTO{Label: b.Label, Total: formatAmount(b.Total)}
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// LEDGER HANDLERS
// =============================================================================

// ListTransactions returns paid transactions, optionally within [from, to).
// GET /api/transactions
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var (
		txs []generic.Transaction
		err error
	)
	if q.Get("from") != "" || q.Get("to") != "" {
		from, to, perr := parseRange(q.Get("from"), q.Get("to"))
		if perr != nil {
			writeError(w, http.StatusBadRequest, "Invalid date range (use YYYY-MM-DD)", perr)
			return
		}
		txs, err = h.Ledger.Store.LoadRange(ctx, from, to)
	} else {
		txs, err = h.Ledger.Store.All(ctx)
	}
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTransaction appends a paid transaction to the sales ledger.
// POST /api/transactions
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if !h.decode(w, r, factory.KindTransaction, &req) {
		return
	}

	tx, err := h.Ledger.Record(r.Context(), generic.Transaction{
		Amount:         req.Amount,
		PaidAt:         req.PaidAt,
		Reference:      req.Reference,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.Charts.Invalidate()
	writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
}

func parseRange(fromRaw, toRaw string) (time.Time, time.Time, error) {
	from := time.Time{}
	to := time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)
	var err error
	if fromRaw != "" {
		if from, err = generic.ParseDate(fromRaw); err != nil {
			return from, to, err
		}
	}
	if toRaw != "" {
		if to, err = generic.ParseDate(toRaw); err != nil {
			return from, to, err
		}
	}
	return from, to, nil
}

// =============================================================================
// WORKFLOW HANDLERS
// =============================================================================

// ValidateTransition is a dry run of the validator. Refusals are a normal
// answer (200 with valid=false), not an error.
// POST /api/workflow/validate
func (h *Handler) ValidateTransition(w http.ResponseWriter, r *http.Request) {
	var req ValidateTransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	domain, err := generic.ParseDomain(req.Domain)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	workflow, err := generic.WorkflowFor(domain)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	t, err := workflow.Check(generic.Status(req.CurrentStatus), generic.Status(req.RequestedStatus), generic.Payload{
		Action:               generic.Action(req.Action),
		Reply:                req.Reply,
		CancellationReason:   req.CancellationReason,
		TransactionReference: req.TransactionReference,
	})
	if err != nil {
		writeJSON(w, http.StatusOK, ValidateTransitionResponse{Error: err.Error(), Code: errorCode(err)})
		return
	}

	action := t.Action()
	if req.Action != "" {
		action = generic.Action(req.Action)
	}
	writeJSON(w, http.StatusOK, ValidateTransitionResponse{Valid: true, Action: string(action)})
}

// ListAudit returns the audit trail, newest first.
// GET /api/audit
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := generic.AuditFilter{}

	if v := q.Get("actor"); v != "" {
		actor := generic.AdminID(v)
		filter.ActorID = &actor
	}
	if v := q.Get("domain"); v != "" {
		domain := generic.Domain(v)
		if parsed, err := generic.ParseDomain(v); err == nil {
			domain = parsed
		}
		filter.Domain = &domain
	}
	if v := q.Get("recordId"); v != "" {
		id := generic.RecordID(v)
		filter.RecordID = &id
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		filter.Limit = limit
	}

	entries, err := h.Dispatcher.Audit.Query(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toAuditEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// TICKET HANDLERS
// =============================================================================

// GET /api/tickets
func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	list, set, err := h.Tickets.Classify(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(list, set, toTicketDTO))
}

// CreateTicket files a customer ticket. No admin is needed.
// POST /api/tickets
func (h *Handler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	var req CreateTicketRequest
	if !h.decode(w, r, factory.KindTicket, &req) {
		return
	}
	t, err := h.Tickets.Open(r.Context(), tickets.NewTicket{
		Subject:     req.Subject,
		Description: req.Description,
		Priority:    req.Priority,
		Name:        req.Name,
		Email:       req.Email,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTicketDTO(t))
}

// GET /api/tickets/{id}
func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	t, err := h.Tickets.Get(r.Context(), recordID(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTicketDTO(t))
}

// UpdateTicketStatus applies {status, reply, action} to a ticket.
// PATCH /api/tickets/{id}/status
func (h *Handler) UpdateTicketStatus(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeTransition(w, r, generic.DomainTicket)
	if !ok {
		return
	}
	t, err := h.Tickets.Transition(r.Context(), recordID(r), req.AdminID, req.Status, req.Payload)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTicketDTO(t))
}

// POST /api/tickets/{id}/close
func (h *Handler) CloseTicket(w http.ResponseWriter, r *http.Request) {
	t, err := h.Tickets.Close(r.Context(), recordID(r), adminFrom(r, ""))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTicketDTO(t))
}

// POST /api/tickets/{id}/reopen
func (h *Handler) ReopenTicket(w http.ResponseWriter, r *http.Request) {
	t, err := h.Tickets.Reopen(r.Context(), recordID(r), adminFrom(r, ""))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTicketDTO(t))
}

// =============================================================================
// WITHDRAWAL HANDLERS
// =============================================================================

// GET /api/withdrawals
func (h *Handler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	list, set, err := h.Payouts.Classify(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(list, set, toWithdrawalDTO))
}

// POST /api/withdrawals
func (h *Handler) CreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req CreateWithdrawalRequest
	if !h.decode(w, r, factory.KindWithdrawal, &req) {
		return
	}
	wd, err := h.Payouts.Request(r.Context(), payouts.NewWithdrawal{
		UserID: req.UserID,
		Amount: req.Amount,
		Bank: payouts.BankDetails{
			AccountName:   req.BankDetails.AccountName,
			AccountNumber: req.BankDetails.AccountNumber,
			BankName:      req.BankDetails.BankName,
		},
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWithdrawalDTO(wd))
}

// GET /api/withdrawals/{id}
func (h *Handler) GetWithdrawal(w http.ResponseWriter, r *http.Request) {
	wd, err := h.Payouts.Get(r.Context(), recordID(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWithdrawalDTO(wd))
}

// UpdateWithdrawal completes or cancels a pending withdrawal.
// PATCH /api/withdrawals/{id}
func (h *Handler) UpdateWithdrawal(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeTransition(w, r, generic.DomainWithdrawal)
	if !ok {
		return
	}
	wd, err := h.Payouts.Update(r.Context(), recordID(r), req.AdminID, req.Status, req.Payload)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWithdrawalDTO(wd))
}

// =============================================================================
// SALE HANDLERS
// =============================================================================

// GET /api/sales
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	list, set, err := h.Sales.Classify(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(list, set, func(s sales.Sale) SaleDTO {
		return toSaleDTO(s, false)
	}))
}

// CreateSale records a manual sale with its payment receipt.
// POST /api/sales
func (h *Handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest
	if !h.decode(w, r, factory.KindSale, &req) {
		return
	}
	sale, err := h.Sales.Submit(r.Context(), sales.Submission{
		FirstName:            req.FirstName,
		LastName:             req.LastName,
		ProductID:            generic.RecordID(req.ProductID),
		Quantity:             req.Quantity,
		TransactionReference: req.TransactionReference,
		SubmittedBy:          adminFrom(r, req.SubmittedBy),
		PaymentReceipt:       req.PaymentReceipt,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSaleDTO(sale, false))
}

// GET /api/sales/{id}
func (h *Handler) GetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := h.Sales.Get(r.Context(), recordID(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSaleDTO(sale, true))
}

// ReviewSale approves or rejects a pending sale.
// PUT /api/sales/{id}
func (h *Handler) ReviewSale(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeTransition(w, r, generic.DomainSale)
	if !ok {
		return
	}
	if req.Payload.Action != "" {
		// The service infers the action; an explicit one must still agree
		// with the requested status.
		current, err := h.Sales.Get(r.Context(), recordID(r))
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		if err := generic.ValidateTransition(generic.DomainSale, current.Status, req.Status, req.Payload); err != nil {
			h.writeDomainError(w, r, err)
			return
		}
	}
	sale, err := h.Sales.Review(r.Context(), recordID(r), req.AdminID, req.Status, req.Payload.TransactionReference)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSaleDTO(sale, false))
}

// =============================================================================
// PRODUCT HANDLERS
// =============================================================================

// GET /api/products
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	list, err := h.Catalog.List(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	set := generic.Classify(list, catalog.KnownStatuses()...)
	writeJSON(w, http.StatusOK, newListResponse(list, set, toProductDTO))
}

// POST /api/products
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !h.decode(w, r, factory.KindProduct, &req) {
		return
	}
	p, err := h.Catalog.Create(r.Context(), adminFrom(r, req.AdminID), req.toInput())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductDTO(p))
}

// GET /api/products/{id}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.Get(r.Context(), recordID(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(p))
}

// PUT /api/products/{id}
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !h.decode(w, r, factory.KindProduct, &req) {
		return
	}
	p, err := h.Catalog.Update(r.Context(), adminFrom(r, req.AdminID), recordID(r), req.toInput())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(p))
}

// PATCH /api/products/{id}/status
func (h *Handler) SetProductStatus(w http.ResponseWriter, r *http.Request) {
	var req ProductStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	p, err := h.Catalog.SetStatus(r.Context(), adminFrom(r, req.AdminID), recordID(r), req.Status)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(p))
}

// DELETE /api/products/{id}
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.Delete(r.Context(), adminFrom(r, ""), recordID(r)); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

func recordID(r *http.Request) generic.RecordID {
	return generic.RecordID(chi.URLParam(r, "id"))
}

// adminFrom resolves the acting admin: header first, then the body field.
func adminFrom(r *http.Request, bodyAdmin string) generic.AdminID {
	if v := strings.TrimSpace(r.Header.Get(HeaderAdminID)); v != "" {
		return generic.AdminID(v)
	}
	return generic.AdminID(strings.TrimSpace(bodyAdmin))
}

// readBody reads the request body up to the upload limit.
func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.MaxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrorCode(w, http.StatusRequestEntityTooLarge, "Request body too large", "payload_too_large", err)
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return nil, false
	}
	return body, true
}

// decode validates the body against the schema for kind and decodes it.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, kind factory.Kind, v any) bool {
	body, ok := h.readBody(w, r)
	if !ok {
		return false
	}
	if err := h.Payloads.Decode(kind, body, v); err != nil {
		h.writeDomainError(w, r, err)
		return false
	}
	return true
}

func (h *Handler) decodeTransition(w http.ResponseWriter, r *http.Request, d generic.Domain) (factory.TransitionRequest, bool) {
	body, ok := h.readBody(w, r)
	if !ok {
		return factory.TransitionRequest{}, false
	}
	req, err := h.Payloads.ParseTransition(d, body)
	if err != nil {
		h.writeDomainError(w, r, err)
		return req, false
	}
	req.AdminID = adminFrom(r, string(req.AdminID))
	return req, true
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	writeErrorCode(w, status, message, "", err)
}

func writeErrorCode(w http.ResponseWriter, status int, message, code string, err error) {
	resp := ErrorResponse{Error: message, Code: code}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine and service errors to HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logging.FromContext(r.Context()).ErrorContext(r.Context(), "request failed",
			logging.FieldMethod, r.Method,
			logging.FieldPath, r.URL.Path,
			logging.FieldError, err,
		)
		writeErrorCode(w, status, "Internal error", errorCode(err), err)
		return
	}
	writeErrorCode(w, status, err.Error(), errorCode(err), err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, generic.ErrMissingRequiredField):
		return http.StatusUnprocessableEntity
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case generic.IsConflict(err):
		return http.StatusConflict
	case generic.IsClientError(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, generic.ErrMissingRequiredField):
		return "missing_field"
	case errors.Is(err, generic.ErrRecordNotFound):
		return "not_found"
	case errors.Is(err, generic.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, generic.ErrDuplicateIdempotencyKey):
		return "duplicate"
	case errors.Is(err, generic.ErrUnknownStatus):
		return "unknown_status"
	case errors.Is(err, generic.ErrUnknownDomain):
		return "unknown_domain"
	case errors.Is(err, generic.ErrUnknownGranularity):
		return "unknown_granularity"
	case errors.Is(err, generic.ErrInvalidPayload):
		return "invalid_payload"
	}
	return "internal"
}
