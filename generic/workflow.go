/*
workflow.go - Status workflow table and transition validator

PURPOSE:
  The single source of truth for which status changes are legal in each
  approval domain. Every mutation of a ticket, withdrawal or sale is checked
  here before anything is persisted or published.

TRANSITION TABLE:
  ┌────────────┬──────────────────────┬──────────────────────────────────────┐
  │ Domain     │ States               │ Legal transitions (action)           │
  ├────────────┼──────────────────────┼──────────────────────────────────────┤
  │ ticket     │ open, closed         │ open → closed      (close | update)  │
  │            │                      │ closed → open      (reopen)          │
  │            │                      │ open → open        (update + reply)  │
  ├────────────┼──────────────────────┼──────────────────────────────────────┤
  │ withdrawal │ pending, completed,  │ pending → completed (complete)       │
  │            │ cancelled            │ pending → cancelled (cancel + reason)│
  ├────────────┼──────────────────────┼──────────────────────────────────────┤
  │ sale       │ pending, approved,   │ pending → approved  (approve)        │
  │            │ rejected             │ pending → rejected  (reject)         │
  └────────────┴──────────────────────┴──────────────────────────────────────┘

  A closed ticket is soft-terminal: every attempt except reopen is refused,
  however well-formed the request is.

VALIDATION ORDER:
  1. Both statuses must belong to the domain      → UnknownStatusError
  2. (current, requested) must be in the table    → InvalidTransitionError
  3. An explicit action must match the transition → InvalidTransitionError
  4. Required payload fields must be non-blank    → MissingFieldError

  Validation is a guard only: no side effects, no retries. The caller
  dispatches the mutation only when the result is nil.

SEE ALSO:
  - mutation.go: Dispatcher that validates, applies, audits and notifies
  - errors.go: Error types returned here
*/
package generic

import (
	"fmt"
	"strings"
)

// =============================================================================
// ACTIONS, FIELDS, PAYLOAD
// =============================================================================

type Action string

const (
	ActionUpdate   Action = "update"
	ActionClose    Action = "close"
	ActionReopen   Action = "reopen"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
)

type Field string

const (
	FieldReply                Field = "reply"
	FieldCancellationReason   Field = "cancellationReason"
	FieldTransactionReference Field = "transactionReference"
	FieldAdminID              Field = "adminId"
)

// Payload carries the auxiliary fields of a mutation. Action is optional;
// when empty it is inferred from the status pair.
type Payload struct {
	Action               Action
	Reply                string
	CancellationReason   string
	TransactionReference string
}

func (p Payload) Value(f Field) string {
	switch f {
	case FieldReply:
		return p.Reply
	case FieldCancellationReason:
		return p.CancellationReason
	case FieldTransactionReference:
		return p.TransactionReference
	}
	return ""
}

// Fields returns the non-empty payload values keyed by field name, for audit.
func (p Payload) Fields() map[string]any {
	out := make(map[string]any)
	for _, f := range []Field{FieldReply, FieldCancellationReason, FieldTransactionReference} {
		if v := p.Value(f); v != "" {
			out[string(f)] = v
		}
	}
	return out
}

// =============================================================================
// WORKFLOW - One state machine per domain
// =============================================================================

// Transition is one legal edge. Actions[0] is the canonical action name.
type Transition struct {
	From     Status
	To       Status
	Actions  []Action
	Requires []Field
}

func (t Transition) Action() Action { return t.Actions[0] }

func (t Transition) allows(a Action) bool {
	for _, candidate := range t.Actions {
		if candidate == a {
			return true
		}
	}
	return false
}

type Workflow struct {
	Domain      Domain
	Initial     Status
	States      []Status
	Terminal    []Status
	Transitions []Transition

	// Locked explains why a status refuses everything outside its own
	// transitions (closed tickets can only be reopened).
	Locked map[Status]string
}

var workflows = map[Domain]*Workflow{
	DomainTicket: {
		Domain:   DomainTicket,
		Initial:  TicketOpen,
		States:   []Status{TicketOpen, TicketClosed},
		Terminal: []Status{TicketClosed},
		Transitions: []Transition{
			{From: TicketOpen, To: TicketClosed, Actions: []Action{ActionClose, ActionUpdate}},
			{From: TicketClosed, To: TicketOpen, Actions: []Action{ActionReopen}},
			{From: TicketOpen, To: TicketOpen, Actions: []Action{ActionUpdate}, Requires: []Field{FieldReply}},
		},
		Locked: map[Status]string{
			TicketClosed: "closed tickets can only be reopened",
		},
	},
	DomainWithdrawal: {
		Domain:   DomainWithdrawal,
		Initial:  WithdrawalPending,
		States:   []Status{WithdrawalPending, WithdrawalCompleted, WithdrawalCancelled},
		Terminal: []Status{WithdrawalCompleted, WithdrawalCancelled},
		Transitions: []Transition{
			{From: WithdrawalPending, To: WithdrawalCompleted, Actions: []Action{ActionComplete}},
			{From: WithdrawalPending, To: WithdrawalCancelled, Actions: []Action{ActionCancel}, Requires: []Field{FieldCancellationReason}},
		},
	},
	DomainSale: {
		Domain:   DomainSale,
		Initial:  SalePending,
		States:   []Status{SalePending, SaleApproved, SaleRejected},
		Terminal: []Status{SaleApproved, SaleRejected},
		Transitions: []Transition{
			{From: SalePending, To: SaleApproved, Actions: []Action{ActionApprove}},
			{From: SalePending, To: SaleRejected, Actions: []Action{ActionReject}},
		},
	},
}

// Domains lists the workflow domains in a stable order.
func Domains() []Domain {
	return []Domain{DomainTicket, DomainWithdrawal, DomainSale}
}

// WorkflowFor returns the state machine of a domain.
func WorkflowFor(d Domain) (*Workflow, error) {
	w, ok := workflows[d]
	if !ok {
		return nil, &UnknownDomainError{Domain: d}
	}
	return w, nil
}

// KnownStatuses returns the status enum of a domain in table order, or nil
// for an unknown domain.
func KnownStatuses(d Domain) []Status {
	w, ok := workflows[d]
	if !ok {
		return nil
	}
	out := make([]Status, len(w.States))
	copy(out, w.States)
	return out
}

// ValidateTransition reports whether a record of the domain may move from
// current to requested with the given payload. nil means the mutation may be
// dispatched.
func ValidateTransition(d Domain, current, requested Status, p Payload) error {
	w, err := WorkflowFor(d)
	if err != nil {
		return err
	}
	return w.Validate(current, requested, p)
}

func (w *Workflow) Validate(current, requested Status, p Payload) error {
	_, err := w.Check(current, requested, p)
	return err
}

// Check validates like Validate and also returns the matched transition.
func (w *Workflow) Check(current, requested Status, p Payload) (Transition, error) {
	if !w.Knows(current) {
		return Transition{}, &UnknownStatusError{Domain: w.Domain, Status: current}
	}
	if !w.Knows(requested) {
		return Transition{}, &UnknownStatusError{Domain: w.Domain, Status: requested}
	}

	t, ok := w.find(current, requested)
	if !ok || (p.Action != "" && !t.allows(p.Action)) {
		return Transition{}, &InvalidTransitionError{
			Domain: w.Domain,
			From:   current,
			To:     requested,
			Action: p.Action,
			Reason: w.refusal(current),
		}
	}

	for _, f := range t.Requires {
		if strings.TrimSpace(p.Value(f)) == "" {
			return Transition{}, &MissingFieldError{Domain: w.Domain, Field: f}
		}
	}
	return t, nil
}

func (w *Workflow) Knows(s Status) bool {
	for _, known := range w.States {
		if known == s {
			return true
		}
	}
	return false
}

func (w *Workflow) IsTerminal(s Status) bool {
	for _, t := range w.Terminal {
		if t == s {
			return true
		}
	}
	return false
}

// From returns the transitions leaving a status.
func (w *Workflow) From(s Status) []Transition {
	var out []Transition
	for _, t := range w.Transitions {
		if t.From == s {
			out = append(out, t)
		}
	}
	return out
}

func (w *Workflow) find(from, to Status) (Transition, bool) {
	for _, t := range w.Transitions {
		if t.From == from && t.To == to {
			return t, true
		}
	}
	return Transition{}, false
}

func (w *Workflow) refusal(current Status) string {
	if reason, ok := w.Locked[current]; ok {
		return reason
	}
	if w.IsTerminal(current) && len(w.From(current)) == 0 {
		return fmt.Sprintf("%s is final", current)
	}
	return ""
}
