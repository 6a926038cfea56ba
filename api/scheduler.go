/*
scheduler.go - Chart cache warmer

PURPOSE:
  Periodically re-renders the charts the dashboard opens on: the monthly
  chart for the current year and for all years, and the daily chart of the
  current month. The first visitor after an approval then hits a warm cache.

DESIGN:
  - Runs a background goroutine with configurable interval
  - Renders through charts.Service, so the cache key already follows the data
  - Errors are logged; a failed warm-up never stops the loop

CONFIGURATION:
  - Interval: How often to warm (CHART_REFRESH_INTERVAL, default 1 minute)
  - Enabled:  Whether the warmer runs (an interval of 0 disables it)

USAGE:
  warmer := NewChartWarmer(handler.Charts, logger)
  warmer.Start()
  // ... later
  warmer.Stop()

SEE ALSO:
  - charts/render.go: Renderer and cache
  - handlers.go: ChartHTML endpoint
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/warp/admin-console/charts"
	"github.com/warp/admin-console/generic"
	"github.com/warp/admin-console/logging"
)

// ChartWarmer keeps the default chart views rendered.
type ChartWarmer struct {
	Charts   *charts.Service
	Interval time.Duration
	Enabled  bool
	Now      func() time.Time

	logger *logging.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewChartWarmer creates a warmer with a one minute interval.
func NewChartWarmer(svc *charts.Service, logger *logging.Logger) *ChartWarmer {
	if logger == nil {
		logger = logging.Nop()
	}
	return &ChartWarmer{
		Charts:   svc,
		Interval: time.Minute,
		Enabled:  true,
		Now:      time.Now,
		logger:   logger.WithComponent(logging.ComponentCharts),
	}
}

// Start begins the warm-up loop. It renders once immediately.
func (cw *ChartWarmer) Start() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if !cw.Enabled || cw.Interval <= 0 {
		cw.logger.Info("chart warmer disabled")
		return
	}
	if cw.ticker != nil {
		return
	}

	cw.ticker = time.NewTicker(cw.Interval)
	cw.stop = make(chan struct{})
	cw.wg.Add(1)
	go cw.run()

	cw.logger.Info("chart warmer started", "interval", cw.Interval.String())
}

// Stop stops the loop and waits for an in-flight warm-up to finish.
func (cw *ChartWarmer) Stop() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.ticker == nil {
		return
	}
	cw.ticker.Stop()
	close(cw.stop)
	cw.wg.Wait()
	cw.ticker = nil
	cw.logger.Info("chart warmer stopped")
}

func (cw *ChartWarmer) run() {
	defer cw.wg.Done()

	cw.Warm(context.Background())
	for {
		select {
		case <-cw.ticker.C:
			cw.Warm(context.Background())
		case <-cw.stop:
			return
		}
	}
}

// Warm renders every default view once and returns how many succeeded.
func (cw *ChartWarmer) Warm(ctx context.Context) int {
	now := cw.Now()
	views := []struct {
		g          generic.Granularity
		yearScoped bool
	}{
		{generic.GranularityMonth, true},
		{generic.GranularityMonth, false},
		{generic.GranularityDay, true},
	}

	rendered := 0
	for _, v := range views {
		if _, err := cw.Charts.HTML(ctx, v.g, now, v.yearScoped); err != nil {
			cw.logger.WarnContext(ctx, "chart warm-up failed",
				logging.FieldOperation, logging.OpRender,
				logging.FieldChart, string(v.g),
				logging.FieldError, err,
			)
			continue
		}
		rendered++
	}
	cw.logger.DebugContext(ctx, "charts warmed", "rendered", rendered)
	return rendered
}
