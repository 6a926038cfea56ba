// Package store provides in-memory implementations of the engine's store
// interfaces.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/admin-console/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements generic.TransactionStore and generic.AuditLog.
type Memory struct {
	mu           sync.RWMutex
	transactions []generic.Transaction
	idempotency  map[string]bool
	audit        []generic.AuditEntry
}

func NewMemory() *Memory {
	return &Memory{
		idempotency: make(map[string]bool),
	}
}

// Append adds a single transaction. Append-only.
func (m *Memory) Append(_ context.Context, tx generic.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tx.IdempotencyKey != "" && m.idempotency[tx.IdempotencyKey] {
		return generic.ErrDuplicateIdempotencyKey
	}
	m.appendLocked(tx)
	return nil
}

// AppendBatch adds multiple transactions atomically.
func (m *Memory) AppendBatch(_ context.Context, txs []generic.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check all idempotency keys first (atomic check), including duplicates
	// inside the batch itself.
	seen := make(map[string]bool)
	for _, tx := range txs {
		if tx.IdempotencyKey == "" {
			continue
		}
		if m.idempotency[tx.IdempotencyKey] || seen[tx.IdempotencyKey] {
			return generic.ErrDuplicateIdempotencyKey
		}
		seen[tx.IdempotencyKey] = true
	}

	for _, tx := range txs {
		m.appendLocked(tx)
	}
	return nil
}

func (m *Memory) appendLocked(tx generic.Transaction) {
	// Binary search keeps the slice ordered by PaidAt; equal times keep
	// insertion order.
	i := sort.Search(len(m.transactions), func(i int) bool {
		return m.transactions[i].PaidAt.After(tx.PaidAt)
	})
	m.transactions = append(m.transactions, generic.Transaction{})
	copy(m.transactions[i+1:], m.transactions[i:])
	m.transactions[i] = tx

	if tx.IdempotencyKey != "" {
		m.idempotency[tx.IdempotencyKey] = true
	}
}

func (m *Memory) LoadRange(_ context.Context, from, to time.Time) ([]generic.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []generic.Transaction
	for _, tx := range m.transactions {
		if !tx.PaidAt.Before(from) && tx.PaidAt.Before(to) {
			result = append(result, tx)
		}
	}
	return result, nil
}

func (m *Memory) All(_ context.Context) ([]generic.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]generic.Transaction, len(m.transactions))
	copy(result, m.transactions)
	return result, nil
}

func (m *Memory) Exists(_ context.Context, idempotencyKey string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idempotency[idempotencyKey], nil
}

// =============================================================================
// AUDIT LOG
// =============================================================================

// AuditLog exposes the audit side of the store under its interface name.
func (m *Memory) AuditLog() generic.AuditLog {
	return memoryAudit{m}
}

type memoryAudit struct {
	m *Memory
}

func (a memoryAudit) Append(_ context.Context, entry generic.AuditEntry) error {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	a.m.audit = append(a.m.audit, entry)
	return nil
}

// Query returns matching entries, newest first.
func (a memoryAudit) Query(_ context.Context, filter generic.AuditFilter) ([]generic.AuditEntry, error) {
	a.m.mu.RLock()
	defer a.m.mu.RUnlock()

	var result []generic.AuditEntry
	for i := len(a.m.audit) - 1; i >= 0; i-- {
		e := a.m.audit[i]
		if !filter.Matches(e) {
			continue
		}
		result = append(result, e)
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	return result, nil
}
