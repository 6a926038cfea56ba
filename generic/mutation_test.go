package generic_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/admin-console/generic"
	"github.com/warp/admin-console/generic/store"
)

type recordingNotifier struct {
	events []generic.MutationEvent
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, e generic.MutationEvent) error {
	n.events = append(n.events, e)
	return n.err
}

func newTestDispatcher(t *testing.T) (*generic.Dispatcher, generic.AuditLog, *recordingNotifier) {
	t.Helper()
	audit := store.NewMemory().AuditLog()
	notifier := &recordingNotifier{}
	d := generic.NewDispatcher(audit, notifier, nil)
	d.Now = func() time.Time { return time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC) }
	return d, audit, notifier
}

func TestDispatch_AcceptedMutationIsAppliedAuditedAndNotified(t *testing.T) {
	ctx := context.Background()
	d, audit, notifier := newTestDispatcher(t)

	var applied []generic.Mutation
	sink := generic.MutationSinkFunc(func(_ context.Context, m generic.Mutation) error {
		applied = append(applied, m)
		return nil
	})

	m, err := d.Dispatch(ctx, generic.Mutation{
		Domain:   generic.DomainWithdrawal,
		RecordID: "wd-1",
		From:     generic.WithdrawalPending,
		To:       generic.WithdrawalCancelled,
		Payload:  generic.Payload{CancellationReason: "fraud"},
		Actor:    "admin-7",
	}, sink)
	require.NoError(t, err)

	assert.Equal(t, generic.ActionCancel, m.Action)
	require.Len(t, applied, 1)
	assert.Equal(t, generic.ActionCancel, applied[0].Action)

	entries, err := audit.Query(ctx, generic.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, generic.AdminID("admin-7"), entries[0].ActorID)
	assert.Equal(t, generic.AuditStatusChanged, entries[0].Action)
	assert.Equal(t, "fraud", entries[0].Payload["cancellationReason"])

	require.Len(t, notifier.events, 1)
	assert.Equal(t, generic.WithdrawalCancelled, notifier.events[0].To)
}

func TestDispatch_RejectedMutationNeverReachesSink(t *testing.T) {
	ctx := context.Background()
	d, audit, notifier := newTestDispatcher(t)

	called := false
	sink := generic.MutationSinkFunc(func(context.Context, generic.Mutation) error {
		called = true
		return nil
	})

	_, err := d.Dispatch(ctx, generic.Mutation{
		Domain:   generic.DomainTicket,
		RecordID: "t-1",
		From:     generic.TicketClosed,
		To:       generic.TicketClosed,
		Payload:  generic.Payload{Action: generic.ActionUpdate, Reply: "x"},
		Actor:    "admin-1",
	}, sink)

	assert.ErrorIs(t, err, generic.ErrInvalidTransition)
	assert.False(t, called)
	entries, _ := audit.Query(ctx, generic.AuditFilter{})
	assert.Empty(t, entries)
	assert.Empty(t, notifier.events)
}

func TestDispatch_RequiresActor(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	_, err := d.Dispatch(context.Background(), generic.Mutation{
		Domain: generic.DomainSale,
		From:   generic.SalePending,
		To:     generic.SaleApproved,
	}, generic.MutationSinkFunc(func(context.Context, generic.Mutation) error { return nil }))

	var missing *generic.MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, generic.FieldAdminID, missing.Field)
}

func TestDispatch_SinkFailureIsNotAudited(t *testing.T) {
	ctx := context.Background()
	d, audit, _ := newTestDispatcher(t)
	boom := errors.New("disk full")

	_, err := d.Dispatch(ctx, generic.Mutation{
		Domain: generic.DomainSale,
		From:   generic.SalePending,
		To:     generic.SaleApproved,
		Actor:  "admin-1",
	}, generic.MutationSinkFunc(func(context.Context, generic.Mutation) error { return boom }))

	assert.ErrorIs(t, err, boom)
	entries, _ := audit.Query(ctx, generic.AuditFilter{})
	assert.Empty(t, entries)
}

func TestDispatch_NotifierFailureDoesNotFailMutation(t *testing.T) {
	d, _, notifier := newTestDispatcher(t)
	notifier.err = errors.New("broker down")

	_, err := d.Dispatch(context.Background(), generic.Mutation{
		Domain: generic.DomainSale,
		From:   generic.SalePending,
		To:     generic.SaleRejected,
		Actor:  "admin-1",
	}, generic.MutationSinkFunc(func(context.Context, generic.Mutation) error { return nil }))

	assert.NoError(t, err)
	assert.Len(t, notifier.events, 1)
}

func TestDispatch_StatusChangedIsInvalidTransition(t *testing.T) {
	// GIVEN: A sink whose conditional write finds the record already moved
	ctx := context.Background()
	d, audit, notifier := newTestDispatcher(t)
	sink := generic.MutationSinkFunc(func(context.Context, generic.Mutation) error {
		return fmt.Errorf("save withdrawal: %w", generic.ErrStatusChanged)
	})

	// WHEN: The mutation is dispatched
	_, err := d.Dispatch(ctx, generic.Mutation{
		Domain:   generic.DomainWithdrawal,
		RecordID: "wd-1",
		From:     generic.WithdrawalPending,
		To:       generic.WithdrawalCompleted,
		Actor:    "admin-1",
	}, sink)

	// THEN: The caller sees a conflict, and nothing is audited or published
	var invalid *generic.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, generic.ActionComplete, invalid.Action)
	assert.Contains(t, invalid.Reason, "no longer pending")
	assert.True(t, generic.IsConflict(err))

	entries, _ := audit.Query(ctx, generic.AuditFilter{})
	assert.Empty(t, entries)
	assert.Empty(t, notifier.events)
}

type recordingTx struct {
	calls  int
	result error
}

func (r *recordingTx) InTx(ctx context.Context, fn func(context.Context) error) error {
	r.calls++
	r.result = fn(ctx)
	return r.result
}

type failingAudit struct{ generic.AuditLog }

func (failingAudit) Append(context.Context, generic.AuditEntry) error {
	return errors.New("audit log offline")
}

func TestDispatch_AuditFailureFailsTheUnitOfWork(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	tx := &recordingTx{}
	d := generic.NewDispatcher(failingAudit{store.NewMemory().AuditLog()}, notifier, nil)
	d.Tx = tx

	applied := false
	_, err := d.Dispatch(ctx, generic.Mutation{
		Domain: generic.DomainSale,
		From:   generic.SalePending,
		To:     generic.SaleApproved,
		Actor:  "admin-1",
	}, generic.MutationSinkFunc(func(context.Context, generic.Mutation) error {
		applied = true
		return nil
	}))

	require.Error(t, err)
	assert.True(t, applied)
	assert.Equal(t, 1, tx.calls)
	assert.Error(t, tx.result, "the sink write and the audit append share one unit of work")
	assert.Empty(t, notifier.events)
}

func TestNewDispatcher_AdoptsTransactionalAuditLog(t *testing.T) {
	type txAudit struct {
		generic.AuditLog
		*recordingTx
	}
	tx := &recordingTx{}
	d := generic.NewDispatcher(txAudit{store.NewMemory().AuditLog(), tx}, nil, nil)

	_, err := d.Dispatch(context.Background(), generic.Mutation{
		Domain: generic.DomainSale,
		From:   generic.SalePending,
		To:     generic.SaleRejected,
		Actor:  "admin-1",
	}, generic.MutationSinkFunc(func(context.Context, generic.Mutation) error { return nil }))

	require.NoError(t, err)
	assert.Equal(t, 1, tx.calls)

	plain := generic.NewDispatcher(store.NewMemory().AuditLog(), nil, nil)
	assert.Nil(t, plain.Tx)
}

func TestAuditFilter_ByActorAndDomain(t *testing.T) {
	ctx := context.Background()
	audit := store.NewMemory().AuditLog()
	require.NoError(t, audit.Append(ctx, generic.AuditEntry{ID: "1", ActorID: "a", Domain: generic.DomainSale}))
	require.NoError(t, audit.Append(ctx, generic.AuditEntry{ID: "2", ActorID: "b", Domain: generic.DomainSale}))
	require.NoError(t, audit.Append(ctx, generic.AuditEntry{ID: "3", ActorID: "a", Domain: generic.DomainTicket}))

	actor := generic.AdminID("a")
	domain := generic.DomainSale
	got, err := audit.Query(ctx, generic.AuditFilter{ActorID: &actor, Domain: &domain})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)
}
