package api

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/warp/admin-console/generic"
)

// DashboardSummary returns the status counts of every workflow domain and the
// current month's sales total. The four reads run concurrently.
// GET /api/dashboard/summary
func (h *Handler) DashboardSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Summary(r.Context(), h.now())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Summary builds the dashboard summary for the month containing ref.
func (h *Handler) Summary(ctx context.Context, ref time.Time) (DashboardSummaryDTO, error) {
	summary := DashboardSummaryDTO{Month: ref.Format("2006-01")}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		_, set, err := h.Tickets.Classify(ctx)
		summary.Tickets = countsDTO(set.Counts())
		return err
	})
	g.Go(func() error {
		_, set, err := h.Payouts.Classify(ctx)
		summary.Withdrawals = countsDTO(set.Counts())
		return err
	})
	g.Go(func() error {
		_, set, err := h.Sales.Classify(ctx)
		summary.Sales = countsDTO(set.Counts())
		return err
	})
	g.Go(func() error {
		total, err := h.Ledger.MonthTotal(ctx, ref)
		summary.MonthTotal = formatAmount(total)
		return err
	})

	if err := g.Wait(); err != nil {
		return DashboardSummaryDTO{}, err
	}
	summary.Badges = pendingBadges(summary)
	return summary, nil
}

// pendingBadges is the number shown next to each sidebar entry.
func pendingBadges(s DashboardSummaryDTO) map[string]int {
	return map[string]int{
		"tickets":     s.Tickets[string(generic.TicketOpen)],
		"withdrawals": s.Withdrawals[string(generic.WithdrawalPending)],
		"sales":       s.Sales[string(generic.SalePending)],
	}
}
