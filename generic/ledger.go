/*
ledger.go - Sales ledger feeding the dashboard charts

PURPOSE:
  SalesLedger records paid transactions (approved sales, manual entries) and
  answers chart queries by loading a snapshot from the store and running the
  aggregator over it.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: Transactions are never edited or removed
  2. IDEMPOTENT: Same idempotency key = same transaction (no duplicates)
  3. POSITIVE: Recorded amounts are > 0 and carry a paid-at time

YEAR SCOPING:
  Aggregate's monthly view ignores the year by contract. Buckets applies the
  caller-side pre-filter when yearScoped is true, so API clients can ask for
  "this year's months" without changing the aggregator.

SEE ALSO:
  - aggregate.go: Bucketing rules
  - store.go: TransactionStore
  - sales/service.go: Posts approved sales here
*/
package generic

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SalesLedger struct {
	Store TransactionStore
	Now   func() time.Time
}

func NewSalesLedger(store TransactionStore) *SalesLedger {
	return &SalesLedger{Store: store, Now: time.Now}
}

// Record validates and appends a paid transaction. A missing ID is generated.
func (l *SalesLedger) Record(ctx context.Context, tx Transaction) (Transaction, error) {
	if !tx.Amount.IsPositive() {
		return tx, &PayloadError{Field: "amount", Message: "must be greater than zero"}
	}
	if tx.PaidAt.IsZero() {
		return tx, &PayloadError{Field: "paidAt", Message: "is required"}
	}
	if tx.ID == "" {
		tx.ID = TransactionID(uuid.NewString())
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = l.now()
	}

	if tx.IdempotencyKey != "" {
		exists, err := l.Store.Exists(ctx, tx.IdempotencyKey)
		if err != nil {
			return tx, err
		}
		if exists {
			return tx, ErrDuplicateIdempotencyKey
		}
	}
	if err := l.Store.Append(ctx, tx); err != nil {
		return tx, fmt.Errorf("failed to record transaction: %w", err)
	}
	return tx, nil
}

// Buckets loads the transactions relevant to the view and aggregates them.
func (l *SalesLedger) Buckets(ctx context.Context, g Granularity, ref time.Time, yearScoped bool) ([]Bucket, error) {
	var (
		txs []Transaction
		err error
	)
	switch g {
	case GranularityMonth:
		txs, err = l.Store.All(ctx)
		if err == nil && yearScoped {
			txs = InYear(txs, ref.Year(), ref.Location())
		}
	case GranularityDay:
		// One day of slack on each side covers any location offset; the
		// aggregator applies the exact month/year rule.
		from := StartOfMonth(ref.Year(), ref.Month(), ref.Location()).AddDate(0, 0, -1)
		to := StartOfMonth(ref.Year(), ref.Month(), ref.Location()).AddDate(0, 1, 1)
		txs, err = l.Store.LoadRange(ctx, from, to)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownGranularity, g)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	return Aggregate(txs, g, ref)
}

// MonthTotal is the sum of the reference month's daily buckets.
func (l *SalesLedger) MonthTotal(ctx context.Context, ref time.Time) (decimal.Decimal, error) {
	buckets, err := l.Buckets(ctx, GranularityDay, ref, true)
	if err != nil {
		return decimal.Zero, err
	}
	return Total(buckets), nil
}

func (l *SalesLedger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}
