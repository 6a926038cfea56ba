// Package tickets implements the support ticket desk.
// Status changes go through the generic workflow: a ticket is open or closed,
// and a closed ticket can only be reopened.
package tickets

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/warp/admin-console/generic"
)

// =============================================================================
// PRIORITY
// =============================================================================

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority defaults an empty value to medium.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PriorityMedium, nil
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	}
	return "", &generic.PayloadError{Field: "priority", Message: fmt.Sprintf("unknown priority %q", s)}
}

// =============================================================================
// TICKET
// =============================================================================

type Ticket struct {
	ID          generic.RecordID
	Number      string // TCK-0001
	Subject     string
	Description string
	Status      generic.Status
	Priority    Priority
	Name        string
	Email       string
	Reply       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (t Ticket) CurrentStatus() generic.Status { return t.Status }
func (t Ticket) RecordKey() generic.RecordID    { return t.ID }

var _ generic.Statused = Ticket{}

func FormatNumber(seq int) string {
	return fmt.Sprintf("TCK-%04d", seq)
}

// NewTicket is what a customer submits.
type NewTicket struct {
	Subject     string
	Description string
	Priority    string
	Name        string
	Email       string
}

func (n NewTicket) Validate() error {
	if strings.TrimSpace(n.Subject) == "" {
		return &generic.PayloadError{Field: "subject", Message: "is required"}
	}
	if strings.TrimSpace(n.Description) == "" {
		return &generic.PayloadError{Field: "description", Message: "is required"}
	}
	if _, err := mail.ParseAddress(n.Email); err != nil {
		return &generic.PayloadError{Field: "email", Message: "must be a valid address"}
	}
	if _, err := ParsePriority(n.Priority); err != nil {
		return err
	}
	return nil
}

// =============================================================================
// STORE
// =============================================================================

// Store persists tickets. GetTicket returns nil, nil when the id is unknown.
type Store interface {
	SaveTicket(ctx context.Context, t Ticket) error
	// TransitionTicket writes status and reply only if the stored status is
	// still from, else generic.ErrStatusChanged.
	TransitionTicket(ctx context.Context, t Ticket, from generic.Status) error
	GetTicket(ctx context.Context, id generic.RecordID) (*Ticket, error)
	ListTickets(ctx context.Context) ([]Ticket, error)
	CountTickets(ctx context.Context) (int, error)
}
