package tickets

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/warp/admin-console/generic"
)

// Service owns the ticket lifecycle. Every status change is dispatched
// through the workflow so it is validated, audited and published.
type Service struct {
	store      Store
	dispatcher *generic.Dispatcher
	now        func() time.Time

	// numbering is serialised so two tickets never share a TCK number.
	mu sync.Mutex
}

func NewService(store Store, dispatcher *generic.Dispatcher) *Service {
	return &Service{store: store, dispatcher: dispatcher, now: time.Now}
}

// SetClock overrides the creation clock (tests, scenario loading).
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Open files a new ticket in the open status.
func (s *Service) Open(ctx context.Context, n NewTicket) (Ticket, error) {
	if err := n.Validate(); err != nil {
		return Ticket{}, err
	}
	priority, _ := ParsePriority(n.Priority)

	s.mu.Lock()
	defer s.mu.Unlock()

	count, err := s.store.CountTickets(ctx)
	if err != nil {
		return Ticket{}, fmt.Errorf("failed to number ticket: %w", err)
	}

	now := s.now()
	t := Ticket{
		ID:          generic.RecordID(uuid.NewString()),
		Number:      FormatNumber(count + 1),
		Subject:     strings.TrimSpace(n.Subject),
		Description: strings.TrimSpace(n.Description),
		Status:      generic.TicketOpen,
		Priority:    priority,
		Name:        strings.TrimSpace(n.Name),
		Email:       strings.TrimSpace(n.Email),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.SaveTicket(ctx, t); err != nil {
		return Ticket{}, fmt.Errorf("failed to save ticket: %w", err)
	}
	if err := s.dispatcher.Record(ctx, "", generic.AuditRecordCreated, generic.DomainTicket, t.ID,
		map[string]any{"number": t.Number, "priority": string(t.Priority)}); err != nil {
		return t, fmt.Errorf("failed to audit ticket: %w", err)
	}
	return t, nil
}

func (s *Service) Get(ctx context.Context, id generic.RecordID) (Ticket, error) {
	t, err := s.store.GetTicket(ctx, id)
	if err != nil {
		return Ticket{}, err
	}
	if t == nil {
		return Ticket{}, &generic.NotFoundError{Domain: generic.DomainTicket, ID: id}
	}
	return *t, nil
}

// List returns every ticket, newest first.
func (s *Service) List(ctx context.Context) ([]Ticket, error) {
	list, err := s.store.ListTickets(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

// Classify groups tickets by status for the desk tabs.
func (s *Service) Classify(ctx context.Context) ([]Ticket, generic.StatusBucketSet[Ticket], error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, generic.StatusBucketSet[Ticket]{}, err
	}
	return list, generic.Classify(list, generic.KnownStatuses(generic.DomainTicket)...), nil
}

func (s *Service) Close(ctx context.Context, id generic.RecordID, admin generic.AdminID) (Ticket, error) {
	return s.Transition(ctx, id, admin, generic.TicketClosed, generic.Payload{Action: generic.ActionClose})
}

func (s *Service) Reopen(ctx context.Context, id generic.RecordID, admin generic.AdminID) (Ticket, error) {
	return s.Transition(ctx, id, admin, generic.TicketOpen, generic.Payload{Action: generic.ActionReopen})
}

// Update posts a reply and moves the ticket to status (open or closed).
func (s *Service) Update(ctx context.Context, id generic.RecordID, admin generic.AdminID, status generic.Status, reply string) (Ticket, error) {
	return s.Transition(ctx, id, admin, status, generic.Payload{Action: generic.ActionUpdate, Reply: reply})
}

// Transition is the general entry point used by the HTTP layer.
func (s *Service) Transition(ctx context.Context, id generic.RecordID, admin generic.AdminID, status generic.Status, p generic.Payload) (Ticket, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return Ticket{}, err
	}

	m := generic.Mutation{
		Domain:   generic.DomainTicket,
		RecordID: t.ID,
		From:     t.Status,
		To:       status,
		Payload:  p,
		Actor:    admin,
	}
	_, err = s.dispatcher.Dispatch(ctx, m, generic.MutationSinkFunc(func(ctx context.Context, m generic.Mutation) error {
		t.Status = m.To
		if reply := strings.TrimSpace(m.Payload.Reply); reply != "" {
			t.Reply = reply
		}
		t.UpdatedAt = m.At
		return s.store.TransitionTicket(ctx, t, m.From)
	}))
	if err != nil {
		return Ticket{}, err
	}
	return t, nil
}
