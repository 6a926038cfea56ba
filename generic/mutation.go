/*
mutation.go - Validated status mutations

PURPOSE:
  Handles the lifecycle of a status change on a workflow record:
  1. Guard: the acting admin must be known, the transition must be legal
  2. Apply: the domain's sink persists the new state
  3. Audit: who moved which record from where to where
  4. Notify: downstream consumers learn about the change

  Apply and Audit form one unit of work when the Dispatcher has a
  Transactor: a failed audit append leaves the record untouched.

MUTATION FLOW:
  ┌───────────────────────────────────────────────────────────────────┐
  │                                                                   │
  │  Admin action    ValidateTransition    sink.Apply    AuditLog     │
  │  (id, status) ──▶  (table lookup)  ──▶  (persist) ──▶ (append) ─┐ │
  │                          │                                      │ │
  │                          ▼                                      ▼ │
  │                   Rejected: error,                       Notifier │
  │                   nothing dispatched                  (best effort)│
  │                                                                   │
  └───────────────────────────────────────────────────────────────────┘

STALE READS:
  Services validate against the status they read. Sinks write with a
  condition on that status; a store reporting ErrStatusChanged means a
  concurrent mutation won, and the loser gets an InvalidTransitionError.

ACTING ADMIN:
  Mutation.Actor is mandatory and always passed in by the caller. There is
  no session lookup here.

NOTIFICATION:
  Notifier failures are logged and swallowed: the mutation is already
  persisted and audited.

SEE ALSO:
  - workflow.go: Transition table
  - events/publisher.go: AMQP Notifier
  - tickets/, payouts/, sales/: Domain services built on Dispatcher
*/
package generic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/warp/admin-console/logging"
)

// =============================================================================
// MUTATION - A requested status change
// =============================================================================

type Mutation struct {
	Domain   Domain
	RecordID RecordID
	From     Status
	To       Status
	Payload  Payload
	Actor    AdminID

	// Set by the Dispatcher once the mutation is accepted.
	Action Action
	At     time.Time
}

// MutationSink persists an accepted mutation. Implementations write only if
// the record is still in m.From and return ErrStatusChanged otherwise.
type MutationSink interface {
	Apply(ctx context.Context, m Mutation) error
}

// MutationSinkFunc adapts a function to MutationSink.
type MutationSinkFunc func(ctx context.Context, m Mutation) error

func (f MutationSinkFunc) Apply(ctx context.Context, m Mutation) error { return f(ctx, m) }

// MutationEvent is what downstream consumers receive.
type MutationEvent struct {
	ID         string         `json:"id"`
	Domain     Domain         `json:"domain"`
	RecordID   RecordID       `json:"record_id"`
	From       Status         `json:"from"`
	To         Status         `json:"to"`
	Action     Action         `json:"action"`
	Actor      AdminID        `json:"actor"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

type Notifier interface {
	Notify(ctx context.Context, event MutationEvent) error
}

// =============================================================================
// DISPATCHER - Validate, apply, audit, notify
// =============================================================================

type Dispatcher struct {
	Audit    AuditLog
	Notifier Notifier
	Logger   *logging.Logger
	Now      func() time.Time

	// Tx wraps apply and audit in one unit of work. Nil runs them in
	// sequence.
	Tx Transactor
}

// NewDispatcher builds a Dispatcher. An audit log that is also a Transactor
// (store/sqlite) becomes its Tx.
func NewDispatcher(audit AuditLog, notifier Notifier, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Nop()
	}
	d := &Dispatcher{
		Audit:    audit,
		Notifier: notifier,
		Logger:   logger.WithComponent(logging.ComponentWorkflow),
		Now:      time.Now,
	}
	if tx, ok := audit.(Transactor); ok {
		d.Tx = tx
	}
	return d
}

// Validate runs the guard without applying anything.
func (d *Dispatcher) Validate(m Mutation) (Transition, error) {
	if m.Actor.IsZero() {
		return Transition{}, &MissingFieldError{Domain: m.Domain, Field: FieldAdminID}
	}
	w, err := WorkflowFor(m.Domain)
	if err != nil {
		return Transition{}, err
	}
	return w.Check(m.From, m.To, m.Payload)
}

// Dispatch validates m and, when legal, hands it to sink. The returned
// mutation carries the resolved action and timestamp.
func (d *Dispatcher) Dispatch(ctx context.Context, m Mutation, sink MutationSink) (Mutation, error) {
	log := d.logger().With(
		logging.FieldDomain, m.Domain,
		logging.FieldRecordID, m.RecordID,
		logging.FieldAdminID, m.Actor,
	)

	t, err := d.Validate(m)
	if err != nil {
		log.DebugContext(ctx, "mutation rejected",
			logging.FieldFrom, m.From, logging.FieldTo, m.To, logging.FieldError, err)
		return m, err
	}

	m.Action = t.Action()
	if m.Payload.Action != "" {
		m.Action = m.Payload.Action
	}
	m.At = d.now()

	err = d.InTx(ctx, func(ctx context.Context) error {
		return d.apply(ctx, m, sink)
	})
	if err != nil {
		log.DebugContext(ctx, "mutation not applied",
			logging.FieldFrom, m.From, logging.FieldTo, m.To, logging.FieldError, err)
		return m, err
	}

	log.InfoContext(ctx, "mutation applied",
		logging.FieldAction, m.Action, logging.FieldFrom, m.From, logging.FieldTo, m.To)

	if d.Notifier != nil {
		event := MutationEvent{
			ID:         uuid.NewString(),
			Domain:     m.Domain,
			RecordID:   m.RecordID,
			From:       m.From,
			To:         m.To,
			Action:     m.Action,
			Actor:      m.Actor,
			Payload:    m.Payload.Fields(),
			OccurredAt: m.At,
		}
		if err := d.Notifier.Notify(ctx, event); err != nil {
			log.WarnContext(ctx, "mutation notification failed", logging.FieldError, err)
		}
	}

	return m, nil
}

// apply persists m through sink and audits it.
func (d *Dispatcher) apply(ctx context.Context, m Mutation, sink MutationSink) error {
	if err := sink.Apply(ctx, m); err != nil {
		if errors.Is(err, ErrStatusChanged) {
			return &InvalidTransitionError{
				Domain: m.Domain,
				From:   m.From,
				To:     m.To,
				Action: m.Action,
				Reason: fmt.Sprintf("%s %s is no longer %s", m.Domain, m.RecordID, m.From),
			}
		}
		return fmt.Errorf("failed to apply %s %s: %w", m.Domain, m.Action, err)
	}

	if d.Audit == nil {
		return nil
	}
	entry := AuditEntry{
		ID:         uuid.NewString(),
		Timestamp:  m.At,
		ActorID:    m.Actor,
		Action:     AuditStatusChanged,
		Domain:     m.Domain,
		RecordID:   m.RecordID,
		From:       m.From,
		To:         m.To,
		Transition: m.Action,
		Payload:    m.Payload.Fields(),
	}
	if err := d.Audit.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// InTx runs fn in the Dispatcher's unit of work, or directly without one.
// Services use it to group follow-up writes with a mutation.
func (d *Dispatcher) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if d.Tx == nil {
		return fn(ctx)
	}
	return d.Tx.InTx(ctx, fn)
}

// Record appends a non-transition audit entry (creation, edits, deletion).
func (d *Dispatcher) Record(ctx context.Context, actor AdminID, action AuditAction, domain Domain, id RecordID, payload map[string]any) error {
	if d.Audit == nil {
		return nil
	}
	return d.Audit.Append(ctx, AuditEntry{
		ID:        uuid.NewString(),
		Timestamp: d.now(),
		ActorID:   actor,
		Action:    action,
		Domain:    domain,
		RecordID:  id,
		Payload:   payload,
	})
}

func (d *Dispatcher) logger() *logging.Logger {
	if d.Logger == nil {
		return logging.Nop()
	}
	return d.Logger
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
