/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the domain model from the wire contract the dashboard SPA already speaks
  (camelCase keys, decimal amounts as strings).

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Request bodies are checked against the embedded JSON Schemas in factory/
  before they are decoded into these types. Domain rules run in the services.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/schemas/: Request body schemas
*/
package api

import (
	"time"

	"github.com/ettle/strcase"
	"github.com/shopspring/decimal"

	"github.com/warp/admin-console/catalog"
	"github.com/warp/admin-console/generic"
	"github.com/warp/admin-console/payouts"
	"github.com/warp/admin-console/sales"
	"github.com/warp/admin-console/tickets"
)

// =============================================================================
// ERRORS AND LISTS
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code,omitempty"`
}

// TabDTO is one status tab of a list view.
type TabDTO struct {
	Status string `json:"status"`
	Label  string `json:"label"`
	Count  int    `json:"count"`
}

// ListResponse wraps every list endpoint: the flat list plus the classifier's
// groups and badge counts.
type ListResponse[T any] struct {
	Items    []T            `json:"items"`
	Groups   map[string][]T `json:"groups"`
	Counts   map[string]int `json:"counts"`
	Tabs     []TabDTO       `json:"tabs"`
	Warnings []string       `json:"warnings,omitempty"`
}

func newListResponse[R generic.Statused, T any](records []R, set generic.StatusBucketSet[R], convert func(R) T) ListResponse[T] {
	resp := ListResponse[T]{
		Items:  make([]T, len(records)),
		Groups: make(map[string][]T),
		Counts: make(map[string]int),
	}
	for i, r := range records {
		resp.Items[i] = convert(r)
	}
	for _, status := range set.Statuses() {
		group := set.Group(status)
		items := make([]T, len(group))
		for i, r := range group {
			items[i] = convert(r)
		}
		resp.Groups[string(status)] = items
		resp.Counts[string(status)] = len(group)
		resp.Tabs = append(resp.Tabs, TabDTO{
			Status: string(status),
			Label:  strcase.ToPascal(string(status)),
			Count:  len(group),
		})
	}
	for _, w := range set.Warnings {
		resp.Warnings = append(resp.Warnings, w.Error())
	}
	return resp
}

func countsDTO(counts map[generic.Status]int) map[string]int {
	out := make(map[string]int, len(counts))
	for s, n := range counts {
		out[string(s)] = n
	}
	return out
}

func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// =============================================================================
// TICKETS
// =============================================================================

type TicketDTO struct {
	ID          string `json:"id"`
	Number      string `json:"ticketNumber"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	Name        string `json:"name,omitempty"`
	Email       string `json:"email"`
	Reply       string `json:"reply,omitempty"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

type CreateTicketRequest struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Name        string `json:"name"`
	Email       string `json:"email"`
}

func toTicketDTO(t tickets.Ticket) TicketDTO {
	return TicketDTO{
		ID:          string(t.ID),
		Number:      t.Number,
		Subject:     t.Subject,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		Name:        t.Name,
		Email:       t.Email,
		Reply:       t.Reply,
		CreatedAt:   formatTime(t.CreatedAt),
		UpdatedAt:   formatTime(t.UpdatedAt),
	}
}

// =============================================================================
// WITHDRAWALS
// =============================================================================

type BankDetailsDTO struct {
	AccountName   string `json:"accountName"`
	AccountNumber string `json:"accountNumber"`
	BankName      string `json:"bankName"`
}

type WithdrawalDTO struct {
	ID                   string         `json:"id"`
	UserID               string         `json:"userId"`
	Amount               string         `json:"amount"`
	BankDetails          BankDetailsDTO `json:"bankDetails"`
	Status               string         `json:"status"`
	TransactionReference string         `json:"transactionReference,omitempty"`
	CancellationReason   string         `json:"cancellationReason,omitempty"`
	ProcessedBy          string         `json:"processedBy,omitempty"`
	CreatedAt            string         `json:"createdAt"`
	UpdatedAt            string         `json:"updatedAt"`
}

type CreateWithdrawalRequest struct {
	UserID      string          `json:"userId"`
	Amount      decimal.Decimal `json:"amount"`
	BankDetails BankDetailsDTO  `json:"bankDetails"`
}

func toWithdrawalDTO(w payouts.Withdrawal) WithdrawalDTO {
	return WithdrawalDTO{
		ID:     string(w.ID),
		UserID: w.UserID,
		Amount: formatAmount(w.Amount),
		BankDetails: BankDetailsDTO{
			AccountName:   w.Bank.AccountName,
			AccountNumber: w.Bank.AccountNumber,
			BankName:      w.Bank.BankName,
		},
		Status:               string(w.Status),
		TransactionReference: w.TransactionReference,
		CancellationReason:   w.CancellationReason,
		ProcessedBy:          string(w.ProcessedBy),
		CreatedAt:            formatTime(w.CreatedAt),
		UpdatedAt:            formatTime(w.UpdatedAt),
	}
}

// =============================================================================
// SALES
// =============================================================================

type ProductRefDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
}

type SaleDTO struct {
	ID                   string        `json:"id"`
	Product              ProductRefDTO `json:"product"`
	Quantity             int           `json:"quantity"`
	Total                string        `json:"total"`
	TransactionReference string        `json:"transactionReference,omitempty"`
	Status               string        `json:"status"`
	FirstName            string        `json:"firstName"`
	LastName             string        `json:"lastName"`
	SubmittedBy          string        `json:"submittedBy"`
	ReviewedBy           string        `json:"reviewedBy,omitempty"`
	PaymentReceipt       string        `json:"paymentReceipt,omitempty"`
	CreatedAt            string        `json:"createdAt"`
	UpdatedAt            string        `json:"updatedAt"`
}

type CreateSaleRequest struct {
	FirstName            string `json:"firstName"`
	LastName             string `json:"lastName"`
	ProductID            string `json:"productId"`
	Quantity             int    `json:"quantity"`
	TransactionReference string `json:"transactionReference"`
	SubmittedBy          string `json:"submittedBy"`
	PaymentReceipt       string `json:"paymentReceipt"`
}

// toSaleDTO leaves the receipt out of list views; withReceipt adds it for
// the detail endpoint.
func toSaleDTO(s sales.Sale, withReceipt bool) SaleDTO {
	dto := SaleDTO{
		ID: string(s.ID),
		Product: ProductRefDTO{
			ID:    string(s.Product.ID),
			Name:  s.Product.Name,
			Price: formatAmount(s.Product.Price),
		},
		Quantity:             s.Quantity,
		Total:                formatAmount(s.Total()),
		TransactionReference: s.TransactionReference,
		Status:               string(s.Status),
		FirstName:            s.FirstName,
		LastName:             s.LastName,
		SubmittedBy:          string(s.SubmittedBy),
		ReviewedBy:           string(s.ReviewedBy),
		CreatedAt:            formatTime(s.CreatedAt),
		UpdatedAt:            formatTime(s.UpdatedAt),
	}
	if withReceipt {
		dto.PaymentReceipt = s.PaymentReceipt
	}
	return dto
}

// =============================================================================
// PRODUCTS
// =============================================================================

type ProductDTO struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Price       string   `json:"price"`
	Status      string   `json:"status"`
	Images      []string `json:"images"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

type ProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Status      string          `json:"status"`
	Images      []string        `json:"images"`
	AdminID     string          `json:"adminId"`
}

func (p ProductRequest) toInput() catalog.Input {
	return catalog.Input{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Status:      p.Status,
		Images:      p.Images,
	}
}

type ProductStatusRequest struct {
	Status  string `json:"status"`
	AdminID string `json:"adminId"`
}

func toProductDTO(p catalog.Product) ProductDTO {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return ProductDTO{
		ID:          string(p.ID),
		Name:        p.Name,
		Description: p.Description,
		Price:       formatAmount(p.Price),
		Status:      string(p.Status),
		Images:      images,
		CreatedAt:   formatTime(p.CreatedAt),
		UpdatedAt:   formatTime(p.UpdatedAt),
	}
}

// =============================================================================
// LEDGER AND CHARTS
// =============================================================================

type TransactionDTO struct {
	ID             string `json:"id"`
	Amount         string `json:"amount"`
	PaidAt         string `json:"paidAt"`
	Reference      string `json:"reference,omitempty"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
	CreatedAt      string `json:"createdAt,omitempty"`
}

type CreateTransactionRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	PaidAt         time.Time       `json:"paidAt"`
	Reference      string          `json:"reference"`
	IdempotencyKey string          `json:"idempotencyKey"`
}

func toTransactionDTO(tx generic.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:             string(tx.ID),
		Amount:         formatAmount(tx.Amount),
		PaidAt:         formatTime(tx.PaidAt),
		Reference:      tx.Reference,
		IdempotencyKey: tx.IdempotencyKey,
		CreatedAt:      formatTime(tx.CreatedAt),
	}
}

type BucketDTO struct {
	Label string `json:"label"`
	Total string `json:"total"`
}

type ChartDTO struct {
	Granularity string      `json:"granularity"`
	Title       string      `json:"title"`
	Subtitle    string      `json:"subtitle"`
	YearScoped  bool        `json:"yearScoped"`
	Buckets     []BucketDTO `json:"buckets"`
	Total       string      `json:"total"`
}

// =============================================================================
// WORKFLOW AND AUDIT
// =============================================================================

type ValidateTransitionRequest struct {
	Domain               string `json:"domain"`
	CurrentStatus        string `json:"currentStatus"`
	RequestedStatus      string `json:"requestedStatus"`
	Action               string `json:"action"`
	Reply                string `json:"reply"`
	CancellationReason   string `json:"cancellationReason"`
	TransactionReference string `json:"transactionReference"`
}

type ValidateTransitionResponse struct {
	Valid  bool   `json:"valid"`
	Action string `json:"action,omitempty"`
	Error  string `json:"error,omitempty"`
	Code   string `json:"code,omitempty"`
}

type AuditEntryDTO struct {
	ID         string         `json:"id"`
	Timestamp  string         `json:"timestamp"`
	ActorID    string         `json:"actorId,omitempty"`
	Action     string         `json:"action"`
	Domain     string         `json:"domain"`
	RecordID   string         `json:"recordId"`
	From       string         `json:"from,omitempty"`
	To         string         `json:"to,omitempty"`
	Transition string         `json:"transition,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
}

func toAuditEntryDTO(e generic.AuditEntry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:         e.ID,
		Timestamp:  formatTime(e.Timestamp),
		ActorID:    string(e.ActorID),
		Action:     string(e.Action),
		Domain:     string(e.Domain),
		RecordID:   string(e.RecordID),
		From:       string(e.From),
		To:         string(e.To),
		Transition: string(e.Transition),
		Payload:    e.Payload,
	}
}

// =============================================================================
// DASHBOARD AND SCENARIOS
// =============================================================================

type DashboardSummaryDTO struct {
	Tickets     map[string]int `json:"tickets"`
	Withdrawals map[string]int `json:"withdrawals"`
	Sales       map[string]int `json:"sales"`
	Month       string         `json:"month"`
	MonthTotal  string         `json:"monthTotal"`
	Badges      map[string]int `json:"badges"`
}

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenarioId"`
}
