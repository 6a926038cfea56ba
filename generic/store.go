/*
store.go - Persistence interfaces for transactions and the audit trail

PURPOSE:
  Defines the boundary between the engine and the database. The engine only
  reads snapshots through these interfaces; it never fetches or caches on
  its own.

KEY INTERFACES:
  TransactionStore: Append-only paid transactions (chart source)
  AuditLog:         Who changed which record, when, and how
  Transactor:       One unit of work spanning both, plus the record write

APPEND-ONLY CONTRACT:
  Transactions are never updated or deleted. A duplicate idempotency key is
  rejected with ErrDuplicateIdempotencyKey so retries are safe.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite
  - generic/store/memory.go: In-memory for tests and file-based CLI runs

SEE ALSO:
  - ledger.go: SalesLedger built on TransactionStore
  - mutation.go: Dispatcher writes AuditEntry values
*/
package generic

import (
	"context"
	"time"
)

// =============================================================================
// TRANSACTION STORE - Append-only
// =============================================================================

type TransactionStore interface {
	// Append persists a transaction. Returns ErrDuplicateIdempotencyKey if the
	// key already exists.
	Append(ctx context.Context, tx Transaction) error

	// AppendBatch persists multiple transactions atomically.
	AppendBatch(ctx context.Context, txs []Transaction) error

	// LoadRange returns transactions with from <= PaidAt < to, ordered by PaidAt.
	LoadRange(ctx context.Context, from, to time.Time) ([]Transaction, error)

	// All returns every transaction ordered by PaidAt.
	All(ctx context.Context) ([]Transaction, error)

	Exists(ctx context.Context, idempotencyKey string) (bool, error)
}

// =============================================================================
// TRANSACTOR - Atomic unit of work
// =============================================================================

// Transactor runs fn atomically. Store calls made with the context passed to
// fn take part in the same unit of work; an error from fn discards all of it.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// =============================================================================
// AUDIT LOG - Tracks who did what when
// =============================================================================

type AuditEntry struct {
	ID         string
	Timestamp  time.Time
	ActorID    AdminID
	Action     AuditAction
	Domain     Domain
	RecordID   RecordID
	From       Status
	To         Status
	Transition Action
	Payload    map[string]any
}

type AuditAction string

const (
	AuditStatusChanged       AuditAction = "status_changed"
	AuditRecordCreated       AuditAction = "record_created"
	AuditRecordUpdated       AuditAction = "record_updated"
	AuditRecordDeleted       AuditAction = "record_deleted"
	AuditTransactionRecorded AuditAction = "transaction_recorded"
)

// AuditLog stores audit entries. Also append-only.
type AuditLog interface {
	Append(ctx context.Context, entry AuditEntry) error
	Query(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

type AuditFilter struct {
	ActorID  *AdminID
	Domain   *Domain
	RecordID *RecordID
	Actions  []AuditAction
	From     *time.Time
	To       *time.Time
	Limit    int
}

// Matches reports whether an entry passes the filter. Stores that cannot
// express a filter in their query language apply it in memory.
func (f AuditFilter) Matches(e AuditEntry) bool {
	if f.ActorID != nil && e.ActorID != *f.ActorID {
		return false
	}
	if f.Domain != nil && e.Domain != *f.Domain {
		return false
	}
	if f.RecordID != nil && e.RecordID != *f.RecordID {
		return false
	}
	if len(f.Actions) > 0 {
		found := false
		for _, a := range f.Actions {
			if a == e.Action {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.From != nil && e.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && !e.Timestamp.Before(*f.To) {
		return false
	}
	return true
}
