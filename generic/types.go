/*
Package generic provides the core of the admin console engine.

PURPOSE:
  This package contains the domain-agnostic types and algorithms behind the
  back office: folding paid transactions into chart buckets, deciding which
  status changes are legal for tickets, withdrawals and sales, and grouping
  records by status for tabbed views. Domain packages (tickets, payouts,
  sales, catalog) build on these types; nothing here performs I/O.

KEY CONCEPTS IN THIS FILE (types.go):
  - Transaction: An immutable paid amount with the time it was paid
  - Domain/Status: The three workflow domains and their status values
  - Record: The minimal workflow view of any domain record
  - Typed IDs: RecordID, TransactionID, AdminID

DESIGN PRINCIPLES:
  1. Immutability: Transactions are never modified once recorded
  2. Precision: Amounts use decimal.Decimal, never float64
  3. Type Safety: Distinct ID types prevent mixing records and admins
  4. Explicit actors: The acting admin travels with every mutation

USAGE:
  tx := generic.Transaction{
      ID:     "tx-1",
      Amount: generic.MustParseDecimal("500.00"),
      PaidAt: time.Date(2024, time.February, 29, 10, 0, 0, 0, time.UTC),
  }
  buckets, err := generic.Aggregate([]generic.Transaction{tx}, generic.GranularityDay, ref)

SEE ALSO:
  - aggregate.go: Time-bucket aggregation
  - workflow.go: Transition table and validator
  - classify.go: Status grouping
*/
package generic

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNTS
// =============================================================================

func NewAmount(value float64) decimal.Decimal {
	return decimal.NewFromFloat(value)
}

func NewAmountFromInt(value int64) decimal.Decimal {
	return decimal.NewFromInt(value)
}

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type RecordID string
type TransactionID string

// AdminID identifies the operator performing a mutation. It is always passed
// explicitly; the engine never reads it from ambient state.
type AdminID string

func (a AdminID) IsZero() bool { return a == "" }

// =============================================================================
// TRANSACTION - A paid amount (read-only snapshot for aggregation)
// =============================================================================

type Transaction struct {
	ID     TransactionID
	Amount decimal.Decimal
	PaidAt time.Time

	// Reference links the payment to its origin (sale id, bank reference).
	Reference      string
	IdempotencyKey string
	CreatedAt      time.Time
}

// =============================================================================
// DOMAINS AND STATUSES
// =============================================================================

type Domain string

const (
	DomainTicket     Domain = "ticket"
	DomainWithdrawal Domain = "withdrawal"
	DomainSale       Domain = "sale"

	// DomainProduct has no status workflow; it only appears in the audit trail.
	DomainProduct Domain = "product"
)

// ParseDomain accepts the domain names used across the dashboard, including
// "promotion" as an alias for sales.
func ParseDomain(s string) (Domain, error) {
	switch s {
	case "ticket", "tickets":
		return DomainTicket, nil
	case "withdrawal", "withdrawals", "payout", "payouts":
		return DomainWithdrawal, nil
	case "sale", "sales", "promotion", "promotions":
		return DomainSale, nil
	}
	return "", &UnknownDomainError{Domain: Domain(s)}
}

type Status string

const (
	TicketOpen   Status = "open"
	TicketClosed Status = "closed"

	WithdrawalPending   Status = "pending"
	WithdrawalCompleted Status = "completed"
	WithdrawalCancelled Status = "cancelled"

	SalePending  Status = "pending"
	SaleApproved Status = "approved"
	SaleRejected Status = "rejected"

	// StatusUnknown collects records whose status is outside the domain enum.
	StatusUnknown Status = "unknown"
)

// Statused is implemented by every record that carries a workflow status.
type Statused interface {
	CurrentStatus() Status
}

// Record is the minimal workflow view shared by tickets, withdrawals and sales.
type Record struct {
	ID        RecordID
	Domain    Domain
	Status    Status
	Reference string
	Reason    string
	Reply     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r Record) CurrentStatus() Status { return r.Status }
