/*
aggregate.go - Time-bucket aggregation of paid transactions

PURPOSE:
  Folds a snapshot of transactions into fixed-size, ordered buckets for the
  dashboard charts: twelve calendar months, or one bucket per day of the
  reference month.

BUCKETING RULES:
  Month: 12 buckets "Jan".."Dec". A transaction lands in month(paidAt)
         whatever its year. Callers wanting a single year pre-filter with
         InYear (SalesLedger.Buckets does this when asked).

  Day:   DaysInMonth(ref) buckets "1".."N". A transaction counts only when
         paidAt is in the same month AND year as ref.

  Calendar fields of paidAt are read in ref's location.

INVARIANTS:
  - len(buckets) == 12 (month) or DaysInMonth(ref) (day)
  - Every bucket starts at zero and only accumulates by addition
  - Total(buckets) == sum of the amounts that matched
  - Same input, same output (no clock, no state)

EXAMPLE:
  ref := time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC)
  buckets, _ := generic.Aggregate(txs, generic.GranularityDay, ref)
  // len(buckets) == 29, buckets[28].Label == "29"

SEE ALSO:
  - ledger.go: Loads transactions from a store and aggregates them
  - charts/render.go: Turns buckets into chart HTML
*/
package generic

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// GRANULARITY
// =============================================================================

type Granularity string

const (
	GranularityMonth Granularity = "month"
	GranularityDay   Granularity = "day"
)

func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "month", "monthly":
		return GranularityMonth, nil
	case "day", "daily":
		return GranularityDay, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownGranularity, s)
}

// =============================================================================
// BUCKETS
// =============================================================================

// Bucket is one labelled accumulator of a chart series.
type Bucket struct {
	Label string
	Total decimal.Decimal
}

// Aggregate folds txs into buckets of the given granularity around ref.
// Empty input yields all-zero buckets; the only error is an unknown granularity.
func Aggregate(txs []Transaction, g Granularity, ref time.Time) ([]Bucket, error) {
	switch g {
	case GranularityMonth:
		return aggregateMonths(txs, ref.Location()), nil
	case GranularityDay:
		return aggregateDays(txs, ref), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownGranularity, g)
}

func aggregateMonths(txs []Transaction, loc *time.Location) []Bucket {
	buckets := make([]Bucket, 12)
	for i := range buckets {
		buckets[i] = Bucket{Label: MonthLabel(time.Month(i + 1)), Total: decimal.Zero}
	}
	for _, tx := range txs {
		m := tx.PaidAt.In(locOrUTC(loc)).Month()
		buckets[m-1].Total = buckets[m-1].Total.Add(tx.Amount)
	}
	return buckets
}

func aggregateDays(txs []Transaction, ref time.Time) []Bucket {
	n := DaysInMonth(ref.Year(), ref.Month())
	buckets := make([]Bucket, n)
	for i := range buckets {
		buckets[i] = Bucket{Label: strconv.Itoa(i + 1), Total: decimal.Zero}
	}
	for _, tx := range txs {
		paid := tx.PaidAt.In(locOrUTC(ref.Location()))
		if !SameMonth(paid, ref) {
			continue
		}
		d := paid.Day() - 1
		buckets[d].Total = buckets[d].Total.Add(tx.Amount)
	}
	return buckets
}

// Total sums all bucket totals.
func Total(buckets []Bucket) decimal.Decimal {
	sum := decimal.Zero
	for _, b := range buckets {
		sum = sum.Add(b.Total)
	}
	return sum
}

// InYear keeps the transactions paid in the given calendar year, read in loc
// the way Aggregate reads months in the reference date's location. A nil loc
// means UTC.
func InYear(txs []Transaction, year int, loc *time.Location) []Transaction {
	loc = locOrUTC(loc)
	var out []Transaction
	for _, tx := range txs {
		if tx.PaidAt.In(loc).Year() == year {
			out = append(out, tx)
		}
	}
	return out
}
