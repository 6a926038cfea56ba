/*
classify.go - Status grouping for tabbed views and badge counts

PURPOSE:
  Partitions a flat list of workflow records into named subsets by their
  current status. The result is a derived view: it is recomputed on every
  read and never stored.

RULES:
  - Input order is preserved inside each group
  - Every record lands in exactly one group, chosen by its status alone
  - A status outside the known list goes to StatusUnknown and is reported
    as a non-fatal UnknownStatusError warning
  - With no known list, every non-empty status is its own group

EXAMPLE:
  set := generic.Classify(sales, generic.KnownStatuses(generic.DomainSale)...)
  pending := set.Group(generic.SalePending)
  badge := generic.Count(sales, generic.SalePending)
*/
package generic

// StatusBucketSet groups records by status.
type StatusBucketSet[R Statused] struct {
	groups map[Status][]R
	order  []Status

	// Warnings holds one UnknownStatusError per record whose status was not
	// recognised. They never prevent classification.
	Warnings []error
}

// Classify partitions records by status. known fixes the group order and the
// set of recognised statuses; every known status gets a (possibly empty) group.
func Classify[R Statused](records []R, known ...Status) StatusBucketSet[R] {
	set := StatusBucketSet[R]{groups: make(map[Status][]R)}

	recognised := make(map[Status]bool, len(known))
	for _, s := range known {
		if recognised[s] {
			continue
		}
		recognised[s] = true
		set.order = append(set.order, s)
		set.groups[s] = []R{}
	}

	for _, r := range records {
		s := r.CurrentStatus()
		if s == "" || (len(known) > 0 && !recognised[s]) {
			set.Warnings = append(set.Warnings, &UnknownStatusError{Status: s, RecordID: recordID(r)})
			s = StatusUnknown
		}
		if _, ok := set.groups[s]; !ok {
			set.order = append(set.order, s)
		}
		set.groups[s] = append(set.groups[s], r)
	}
	return set
}

// Group returns the records with the given status, in input order.
func (s StatusBucketSet[R]) Group(status Status) []R {
	return s.groups[status]
}

// Statuses returns the group keys: known statuses first, then any others in
// order of first appearance.
func (s StatusBucketSet[R]) Statuses() []Status {
	out := make([]Status, len(s.order))
	copy(out, s.order)
	return out
}

// Counts returns the size of every group.
func (s StatusBucketSet[R]) Counts() map[Status]int {
	counts := make(map[Status]int, len(s.groups))
	for status, records := range s.groups {
		counts[status] = len(records)
	}
	return counts
}

// Count returns how many records currently have the given status.
func Count[R Statused](records []R, status Status) int {
	n := 0
	for _, r := range records {
		if r.CurrentStatus() == status {
			n++
		}
	}
	return n
}

type identified interface {
	RecordKey() RecordID
}

func recordID(v any) RecordID {
	switch r := v.(type) {
	case Record:
		return r.ID
	case identified:
		return r.RecordKey()
	}
	return ""
}
