package generic_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/admin-console/generic"
	"github.com/warp/admin-console/generic/store"
)

func newTestLedger() *generic.SalesLedger {
	return generic.NewSalesLedger(store.NewMemory())
}

func TestSalesLedger_RecordRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger()

	tx := paid("", "25", 2024, time.May, 3)
	tx.IdempotencyKey = "sale:42"

	recorded, err := ledger.Record(ctx, tx)
	require.NoError(t, err)
	assert.NotEmpty(t, recorded.ID, "missing ids are generated")

	_, err = ledger.Record(ctx, tx)
	assert.ErrorIs(t, err, generic.ErrDuplicateIdempotencyKey)
}

func TestSalesLedger_RecordValidatesAmount(t *testing.T) {
	_, err := newTestLedger().Record(context.Background(), paid("x", "0", 2024, time.May, 3))
	assert.ErrorIs(t, err, generic.ErrInvalidPayload)
}

func TestSalesLedger_MonthlyYearScoping(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger()
	for _, tx := range []generic.Transaction{
		paid("a", "10", 2023, time.March, 1),
		paid("b", "20", 2024, time.March, 1),
	} {
		_, err := ledger.Record(ctx, tx)
		require.NoError(t, err)
	}
	ref := generic.NewDate(2024, time.June, 1)

	all, err := ledger.Buckets(ctx, generic.GranularityMonth, ref, false)
	require.NoError(t, err)
	assert.True(t, all[2].Total.Equal(dec("30")), "unscoped monthly view spans years")

	scoped, err := ledger.Buckets(ctx, generic.GranularityMonth, ref, true)
	require.NoError(t, err)
	assert.True(t, scoped[2].Total.Equal(dec("20")), "scoped view keeps only 2024")
}

func TestSalesLedger_DailyMatchesAggregate(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger()
	txs := []generic.Transaction{
		paid("a", "500", 2024, time.February, 29),
		paid("b", "700", 2023, time.February, 28),
		paid("c", "5", 2024, time.March, 1),
	}
	for _, tx := range txs {
		_, err := ledger.Record(ctx, tx)
		require.NoError(t, err)
	}
	ref := generic.NewDate(2024, time.February, 10)

	fromLedger, err := ledger.Buckets(ctx, generic.GranularityDay, ref, false)
	require.NoError(t, err)
	direct, err := generic.Aggregate(txs, generic.GranularityDay, ref)
	require.NoError(t, err)

	assert.Equal(t, direct, fromLedger)

	total, err := ledger.MonthTotal(ctx, ref)
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("500")))
}

func TestSalesLedger_YearScopingFollowsReferenceLocation(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger()
	east := time.FixedZone("UTC+3", 3*60*60)

	_, err := ledger.Record(ctx, generic.Transaction{
		Amount: generic.NewAmountFromInt(10),
		PaidAt: time.Date(2024, time.December, 31, 22, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	buckets, err := ledger.Buckets(ctx, generic.GranularityMonth, time.Date(2025, time.June, 1, 0, 0, 0, 0, east), true)
	require.NoError(t, err)

	assert.Equal(t, "10", buckets[0].Total.String(), "January in UTC+3")
	assert.True(t, buckets[11].Total.IsZero())
	assert.Equal(t, "10", generic.Total(buckets).String())
}
