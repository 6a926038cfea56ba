package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/admin-console/generic"
)

type fakeChannel struct {
	exchange, key string
	published     []amqp091.Publishing
	err           error
	closed        bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.exchange, f.key = exchange, key
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func sampleEvent() generic.MutationEvent {
	return generic.MutationEvent{
		ID:         "evt-1",
		Domain:     generic.DomainWithdrawal,
		RecordID:   "wd-1",
		From:       generic.WithdrawalPending,
		To:         generic.WithdrawalCancelled,
		Action:     generic.ActionCancel,
		Actor:      "admin-7",
		Payload:    map[string]any{"cancellationReason": "fraud"},
		OccurredAt: time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestNotify_PublishesPersistentJSON(t *testing.T) {
	ch := &fakeChannel{}
	p := newPublisher(ch, "admin.events", "admin.mutations", nil)

	require.NoError(t, p.Notify(context.Background(), sampleEvent()))

	require.Len(t, ch.published, 1)
	msg := ch.published[0]
	assert.Equal(t, "admin.events", ch.exchange)
	assert.Equal(t, "admin.mutations", ch.key)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp091.Persistent, msg.DeliveryMode)
	assert.Equal(t, "evt-1", msg.MessageId)

	decoded, err := MessageFromJSON(msg.Body)
	require.NoError(t, err)
	assert.Equal(t, TypeStatusChanged, decoded.Type)
	assert.Equal(t, generic.RecordID("wd-1"), decoded.Event.RecordID)
	assert.Equal(t, "fraud", decoded.Event.Payload["cancellationReason"])
}

func TestNotify_ReturnsPublishError(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	p := newPublisher(ch, "x", "q", nil)

	err := p.Notify(context.Background(), sampleEvent())
	assert.ErrorContains(t, err, "channel closed")
}

func TestPublisherAsDispatcherNotifier(t *testing.T) {
	// GIVEN: A dispatcher whose notifier cannot reach the broker
	ch := &fakeChannel{err: errors.New("broker down")}
	d := generic.NewDispatcher(nil, newPublisher(ch, "x", "q", nil), nil)

	// WHEN: A legal mutation is dispatched
	_, err := d.Dispatch(context.Background(), generic.Mutation{
		Domain: generic.DomainSale, RecordID: "s1",
		From: generic.SalePending, To: generic.SaleApproved, Actor: "admin-1",
	}, generic.MutationSinkFunc(func(context.Context, generic.Mutation) error { return nil }))

	// THEN: The mutation still succeeds
	assert.NoError(t, err)
}

func TestMessageFromJSON_RejectsGarbage(t *testing.T) {
	_, err := MessageFromJSON([]byte(`{"version":1}`))
	assert.Error(t, err)
	_, err = MessageFromJSON([]byte(`not json`))
	assert.Error(t, err)
}

func TestClose(t *testing.T) {
	ch := &fakeChannel{}
	require.NoError(t, newPublisher(ch, "x", "q", nil).Close())
	assert.True(t, ch.closed)
}
