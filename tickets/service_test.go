package tickets_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/admin-console/generic"
	"github.com/warp/admin-console/store/sqlite"
	"github.com/warp/admin-console/tickets"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestService(t *testing.T) (*tickets.Service, generic.AuditLog) {
	t.Helper()
	store := newTestStore(t)

	audit := store.AuditLog()
	svc := tickets.NewService(store, generic.NewDispatcher(audit, nil, nil))
	return svc, audit
}

func openTicket(t *testing.T, svc *tickets.Service, subject string) tickets.Ticket {
	t.Helper()
	ticket, err := svc.Open(context.Background(), tickets.NewTicket{
		Subject:     subject,
		Description: "details",
		Email:       "customer@example.com",
	})
	require.NoError(t, err)
	return ticket
}

func TestOpen_NumbersAndDefaults(t *testing.T) {
	svc, _ := newTestService(t)

	first := openTicket(t, svc, "First")
	second := openTicket(t, svc, "Second")

	assert.Equal(t, "TCK-0001", first.Number)
	assert.Equal(t, "TCK-0002", second.Number)
	assert.Equal(t, generic.TicketOpen, first.Status)
	assert.Equal(t, tickets.PriorityMedium, first.Priority)
}

func TestOpen_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := map[string]tickets.NewTicket{
		"no subject":   {Description: "d", Email: "a@b.co"},
		"bad email":    {Subject: "s", Description: "d", Email: "not-an-email"},
		"bad priority": {Subject: "s", Description: "d", Email: "a@b.co", Priority: "urgent"},
	}
	for name, n := range cases {
		_, err := svc.Open(ctx, n)
		if !generic.IsClientError(err) {
			t.Errorf("%s: expected client error, got %v", name, err)
		}
	}
}

func TestCloseThenReopen(t *testing.T) {
	// GIVEN: An open ticket
	svc, audit := newTestService(t)
	ctx := context.Background()
	ticket := openTicket(t, svc, "Payment failed")

	// WHEN: It is closed, then reopened
	closed, err := svc.Close(ctx, ticket.ID, "admin-1")
	require.NoError(t, err)
	reopened, err := svc.Reopen(ctx, ticket.ID, "admin-2")
	require.NoError(t, err)

	// THEN: Both changes are persisted and audited
	assert.Equal(t, generic.TicketClosed, closed.Status)
	assert.Equal(t, generic.TicketOpen, reopened.Status)

	changed, err := audit.Query(ctx, generic.AuditFilter{Actions: []generic.AuditAction{generic.AuditStatusChanged}})
	require.NoError(t, err)
	require.Len(t, changed, 2)
	assert.Equal(t, generic.ActionReopen, changed[0].Transition)
	assert.Equal(t, generic.AdminID("admin-2"), changed[0].ActorID)
}

func TestUpdate_ClosedTicketRefused(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	ticket := openTicket(t, svc, "Refund")
	_, err := svc.Close(ctx, ticket.ID, "admin-1")
	require.NoError(t, err)

	_, err = svc.Update(ctx, ticket.ID, "admin-1", generic.TicketClosed, "one more thing")

	var invalid *generic.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "closed tickets can only be reopened", invalid.Reason)

	got, err := svc.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Reply, "refused update must not be saved")
}

func TestUpdate_ClosedTicketWithoutReply(t *testing.T) {
	// GIVEN: A closed ticket
	svc, _ := newTestService(t)
	ctx := context.Background()
	ticket := openTicket(t, svc, "Refund")
	_, err := svc.Close(ctx, ticket.ID, "admin-1")
	require.NoError(t, err)

	// WHEN: An admin posts an empty update
	_, err = svc.Update(ctx, ticket.ID, "admin-1", generic.TicketClosed, "")

	// THEN: The lock on closed tickets wins over the missing reply
	var invalid *generic.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "closed tickets can only be reopened", invalid.Reason)
	assert.NotErrorIs(t, err, generic.ErrMissingRequiredField)
}

func TestUpdate_ReplyRequired(t *testing.T) {
	svc, _ := newTestService(t)
	ticket := openTicket(t, svc, "Question")

	_, err := svc.Update(context.Background(), ticket.ID, "admin-1", generic.TicketOpen, "  ")
	assert.ErrorIs(t, err, generic.ErrMissingRequiredField)
}

func TestUpdate_ReplyAndClose(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	ticket := openTicket(t, svc, "Question")

	updated, err := svc.Update(ctx, ticket.ID, "admin-1", generic.TicketClosed, "Answered by email")
	require.NoError(t, err)
	assert.Equal(t, generic.TicketClosed, updated.Status)
	assert.Equal(t, "Answered by email", updated.Reply)
}

func TestTransition_RequiresAdmin(t *testing.T) {
	svc, _ := newTestService(t)
	ticket := openTicket(t, svc, "Question")

	_, err := svc.Close(context.Background(), ticket.ID, "")
	var missing *generic.MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, generic.FieldAdminID, missing.Field)
}

func TestGet_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Get(context.Background(), "missing")
	assert.True(t, generic.IsNotFound(err))
}

func TestList_NewestFirstAndClassified(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	base := time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)
	for i, subject := range []string{"a", "b", "c"} {
		created := base.Add(time.Duration(i) * time.Hour)
		svc.SetClock(func() time.Time { return created })
		openTicket(t, svc, subject)
	}
	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "c", list[0].Subject)

	_, err = svc.Close(ctx, list[0].ID, "admin-1")
	require.NoError(t, err)

	_, set, err := svc.Classify(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[generic.Status]int{"open": 2, "closed": 1}, set.Counts())
}

// lockstepStore holds every GetTicket until all expected readers have read,
// so each of them validates against the same status.
type lockstepStore struct {
	*sqlite.Store
	reads sync.WaitGroup
}

func (s *lockstepStore) GetTicket(ctx context.Context, id generic.RecordID) (*tickets.Ticket, error) {
	ticket, err := s.Store.GetTicket(ctx, id)
	s.reads.Done()
	s.reads.Wait()
	return ticket, err
}

func TestClose_ConcurrentClosesApplyOnce(t *testing.T) {
	// GIVEN: An open ticket two admins both read as open
	ctx := context.Background()
	store := newTestStore(t)
	dispatcher := generic.NewDispatcher(store.AuditLog(), nil, nil)
	ticket := openTicket(t, tickets.NewService(store, dispatcher), "Refund")

	racing := &lockstepStore{Store: store}
	racing.reads.Add(2)
	svc := tickets.NewService(racing, dispatcher)

	// WHEN: Both close it
	errs := make(chan error, 2)
	for _, admin := range []generic.AdminID{"admin-1", "admin-2"} {
		admin := admin
		go func() {
			_, err := svc.Close(ctx, ticket.ID, admin)
			errs <- err
		}()
	}
	var failed []error
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			failed = append(failed, err)
		}
	}

	// THEN: One close applies, the other is refused
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0], generic.ErrInvalidTransition)

	changed, err := store.AuditLog().Query(ctx, generic.AuditFilter{Actions: []generic.AuditAction{generic.AuditStatusChanged}})
	require.NoError(t, err)
	assert.Len(t, changed, 1)
}
