/*
Package charts renders the dashboard sales charts.

PURPOSE:
  Turns aggregated buckets into self-contained ECharts HTML. The monthly view
  is a bar chart of twelve months; the daily view is a smooth line across the
  days of the reference month.

CACHING:
  One rendering is kept per view (granularity, reference period, theme)
  together with a sha1 digest of its bucket values. A rendering is reused
  only while the digest matches and the TTL has not run out; sale approvals
  and manual transactions call Invalidate so the next fetch re-renders.

USAGE:
  svc := charts.NewService(ledger, charts.NewRenderer(types.ThemeWesteros), charts.NewCache(5*time.Minute))
  html, err := svc.HTML(ctx, generic.GranularityMonth, time.Now(), true)

SEE ALSO:
  - generic/aggregate.go: Bucketing rules
  - generic/ledger.go: Where the transactions come from
  - api/scheduler.go: Keeps the current charts warm
*/
package charts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	echarts "github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/warp/admin-console/generic"
)

const defaultChartHeight = "360px"

// =============================================================================
// RENDERER
// =============================================================================

type Renderer struct {
	theme      string
	assetsHost string
}

type RendererOption func(*Renderer)

// WithAssetsHost rewrites the host the ECharts JS is loaded from.
func WithAssetsHost(host string) RendererOption {
	return func(r *Renderer) { r.assetsHost = host }
}

func NewRenderer(theme string, options ...RendererOption) *Renderer {
	if theme == "" {
		theme = types.ThemeWesteros
	}
	r := &Renderer{theme: theme}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Render produces the chart for one granularity. Title and subtitle are
// escaped by go-echarts.
func (r *Renderer) Render(g generic.Granularity, title, subtitle string, buckets []generic.Bucket) (string, error) {
	labels := make([]string, len(buckets))
	for i, b := range buckets {
		labels[i] = b.Label
	}

	switch g {
	case generic.GranularityMonth:
		bar := echarts.NewBar()
		bar.SetGlobalOptions(r.globalOptions(title, subtitle)...)
		bar.SetXAxis(labels)
		bar.AddSeries("Sales", toBarData(buckets))
		return renderChart(bar)
	case generic.GranularityDay:
		line := echarts.NewLine()
		line.SetGlobalOptions(r.globalOptions(title, subtitle)...)
		line.SetXAxis(labels)
		line.AddSeries("Sales", toLineData(buckets))
		line.SetSeriesOptions(echarts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
		return renderChart(line)
	}
	return "", fmt.Errorf("%w: %q", generic.ErrUnknownGranularity, g)
}

func (r *Renderer) Theme() string { return r.theme }

func (r *Renderer) globalOptions(title, subtitle string) []echarts.GlobalOpts {
	initOpts := opts.Initialization{
		Theme:  r.theme,
		Width:  "100%",
		Height: defaultChartHeight,
	}
	if r.assetsHost != "" {
		initOpts.AssetsHost = r.assetsHost
	}
	return []echarts.GlobalOpts{
		echarts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		echarts.WithInitializationOpts(initOpts),
		echarts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		echarts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	}
}

func renderChart(renderable interface{ Render(io.Writer) error }) (string, error) {
	var buf bytes.Buffer
	if err := renderable.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func toBarData(buckets []generic.Bucket) []opts.BarData {
	data := make([]opts.BarData, len(buckets))
	for i, b := range buckets {
		data[i] = opts.BarData{Name: b.Label, Value: b.Total.InexactFloat64()}
	}
	return data
}

func toLineData(buckets []generic.Bucket) []opts.LineData {
	data := make([]opts.LineData, len(buckets))
	for i, b := range buckets {
		data[i] = opts.LineData{Name: b.Label, Value: b.Total.InexactFloat64()}
	}
	return data
}

// =============================================================================
// SERVICE - Ledger + renderer + cache
// =============================================================================

type Service struct {
	Ledger   *generic.SalesLedger
	Renderer *Renderer
	Cache    RenderCache
}

func NewService(ledger *generic.SalesLedger, renderer *Renderer, cache RenderCache) *Service {
	return &Service{Ledger: ledger, Renderer: renderer, Cache: cache}
}

// Buckets returns the chart data without rendering.
func (s *Service) Buckets(ctx context.Context, g generic.Granularity, ref time.Time, yearScoped bool) ([]generic.Bucket, error) {
	return s.Ledger.Buckets(ctx, g, ref, yearScoped)
}

// HTML renders the chart for the view, serving cached markup when the data
// is unchanged.
func (s *Service) HTML(ctx context.Context, g generic.Granularity, ref time.Time, yearScoped bool) (string, error) {
	buckets, err := s.Buckets(ctx, g, ref, yearScoped)
	if err != nil {
		return "", err
	}
	title, subtitle := Titles(g, ref, yearScoped)
	render := func() (string, error) {
		return s.Renderer.Render(g, title, subtitle, buckets)
	}
	if s.Cache == nil {
		return render()
	}
	view := fmt.Sprintf("%s:%s:%s", g, subtitle, s.Renderer.Theme())
	return s.Cache.Render(view, bucketDigest(buckets), render)
}

// Invalidate drops cached markup after the ledger changed.
func (s *Service) Invalidate() {
	if s.Cache != nil {
		s.Cache.Invalidate()
	}
}

// Titles names a chart view.
func Titles(g generic.Granularity, ref time.Time, yearScoped bool) (string, string) {
	if g == generic.GranularityDay {
		return "Daily sales", ref.Format("January 2006")
	}
	if yearScoped {
		return "Monthly sales", strconv.Itoa(ref.Year())
	}
	return "Monthly sales", "All years"
}
