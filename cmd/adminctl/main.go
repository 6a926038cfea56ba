// Command adminctl runs the console's engine offline: bucket a transaction
// file, dry-run a status change, inspect or seed a database.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/ettle/strcase"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/warp/admin-console/api"
	"github.com/warp/admin-console/generic"
	"github.com/warp/admin-console/generic/store"
	"github.com/warp/admin-console/logging"
	"github.com/warp/admin-console/store/sqlite"
)

type cli struct {
	LogLevel string `default:"warn" env:"LOG_LEVEL" help:"Log level (debug, info, warn, error)."`

	Aggregate aggregateCmd `cmd:"" help:"Bucket paid transactions by month or day."`
	Validate  validateCmd  `cmd:"" help:"Dry-run a status change against the workflow table."`
	Classify  classifyCmd  `cmd:"" help:"Count the records of a domain per status."`
	Migrate   migrateCmd   `cmd:"" help:"Apply database migrations and print the schema version."`
	Seed      seedCmd      `cmd:"" help:"Reset a database and load a demo scenario."`
}

// env carries what every command needs besides its flags.
type env struct {
	out    io.Writer
	logger *logging.Logger
}

func main() {
	_ = godotenv.Load()

	var root cli
	e := &env{out: os.Stdout}
	parser := kong.Parse(&root,
		kong.Name("adminctl"),
		kong.Description("Offline tooling for the admin console engine."),
		kong.UsageOnError(),
		kong.BindTo(context.Background(), (*context.Context)(nil)),
		kong.Bind(e),
	)

	e.logger = logging.New(logging.Config{
		Level:     logging.ParseLevel(root.LogLevel),
		Component: logging.ComponentCLI,
		Output:    os.Stderr,
	})
	err := parser.Run()
	parser.FatalIfErrorf(err)
}

// =============================================================================
// AGGREGATE
// =============================================================================

type aggregateCmd struct {
	Granularity string `short:"g" default:"month" enum:"month,day" help:"Bucket size (month or day)."`
	Ref         string `help:"Reference date YYYY-MM-DD (default: today)."`
	YearScoped  bool   `name:"year-scoped" help:"Only count the reference year in the monthly view."`
	DB          string `name:"db" xor:"source" type:"path" help:"SQLite database to read transactions from."`
	File        string `xor:"source" type:"existingfile" help:"YAML file of transactions (amount, paidAt, reference)."`
	Output      string `short:"o" default:"text" enum:"text,json,yaml" help:"Output format."`
}

// transactionFile is the YAML shape read by aggregate --file.
type transactionFile struct {
	Transactions []struct {
		Amount    string `yaml:"amount"`
		PaidAt    string `yaml:"paidAt"`
		Reference string `yaml:"reference"`
	} `yaml:"transactions"`
}

type bucketRow struct {
	Label string `json:"label" yaml:"label"`
	Total string `json:"total" yaml:"total"`
}

func (cmd *aggregateCmd) Run(ctx context.Context, e *env) error {
	g, err := generic.ParseGranularity(cmd.Granularity)
	if err != nil {
		return err
	}
	ref := generic.Today()
	if cmd.Ref != "" {
		if ref, err = generic.ParseDate(cmd.Ref); err != nil {
			return err
		}
	}

	var ledger *generic.SalesLedger
	switch {
	case cmd.DB != "":
		db, err := sqlite.New(cmd.DB)
		if err != nil {
			return err
		}
		defer db.Close()
		ledger = generic.NewSalesLedger(db)
	case cmd.File != "":
		mem, err := loadTransactionFile(ctx, cmd.File)
		if err != nil {
			return err
		}
		ledger = generic.NewSalesLedger(mem)
	default:
		return errors.New("adminctl: one of --db or --file is required")
	}

	yearScoped := cmd.YearScoped || g == generic.GranularityDay
	buckets, err := ledger.Buckets(ctx, g, ref, yearScoped)
	if err != nil {
		return err
	}
	e.logger.DebugContext(ctx, "aggregated", "granularity", g, "buckets", len(buckets))
	return writeBuckets(e.out, cmd.Output, buckets)
}

func loadTransactionFile(ctx context.Context, path string) (*store.Memory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("adminctl: read %s: %w", path, err)
	}
	var doc transactionFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("adminctl: parse %s: %w", path, err)
	}

	txs := make([]generic.Transaction, 0, len(doc.Transactions))
	for i, row := range doc.Transactions {
		amount, err := decimal.NewFromString(strings.TrimSpace(row.Amount))
		if err != nil {
			return nil, fmt.Errorf("adminctl: transaction %d: amount: %w", i, err)
		}
		paidAt, err := parsePaidAt(row.PaidAt)
		if err != nil {
			return nil, fmt.Errorf("adminctl: transaction %d: %w", i, err)
		}
		txs = append(txs, generic.Transaction{
			ID:        generic.TransactionID(fmt.Sprintf("file-%d", i)),
			Amount:    amount,
			PaidAt:    paidAt,
			Reference: row.Reference,
		})
	}

	mem := store.NewMemory()
	if err := mem.AppendBatch(ctx, txs); err != nil {
		return nil, err
	}
	return mem, nil
}

// parsePaidAt accepts a date or an RFC 3339 timestamp.
func parsePaidAt(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return generic.ParseDate(s)
}

func writeBuckets(w io.Writer, format string, buckets []generic.Bucket) error {
	rows := make([]bucketRow, len(buckets))
	for i, b := range buckets {
		rows[i] = bucketRow{Label: b.Label, Total: b.Total.StringFixed(2)}
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(rows)
	}

	for _, r := range rows {
		fmt.Fprintf(w, "%-4s %12s\n", r.Label, r.Total)
	}
	fmt.Fprintf(w, "%-4s %12s\n", "=", generic.Total(buckets).StringFixed(2))
	return nil
}

// =============================================================================
// VALIDATE
// =============================================================================

type validateCmd struct {
	Domain    string `arg:"" help:"ticket, withdrawal or sale (plural and promotion aliases accepted)."`
	Current   string `arg:"" help:"Current status."`
	Requested string `arg:"" help:"Requested status."`
	Action    string `help:"Explicit action (close, update, reopen, complete, cancel, approve, reject)."`
	Reason    string `help:"Cancellation reason."`
	Reply     string `help:"Ticket reply."`
	Reference string `help:"Transaction reference."`
}

func (cmd *validateCmd) Run(ctx context.Context, e *env) error {
	domain, err := generic.ParseDomain(strings.ToLower(cmd.Domain))
	if err != nil {
		return err
	}
	w, err := generic.WorkflowFor(domain)
	if err != nil {
		return err
	}
	t, err := w.Check(generic.Status(cmd.Current), generic.Status(cmd.Requested), generic.Payload{
		Action:               generic.Action(cmd.Action),
		Reply:                cmd.Reply,
		CancellationReason:   cmd.Reason,
		TransactionReference: cmd.Reference,
	})
	if err != nil {
		return err
	}

	action := t.Action()
	if cmd.Action != "" {
		action = generic.Action(cmd.Action)
	}
	fmt.Fprintf(e.out, "ok: %s %s -> %s (%s)\n", domain, cmd.Current, cmd.Requested, action)
	return nil
}

// =============================================================================
// CLASSIFY
// =============================================================================

type classifyCmd struct {
	Domain string `short:"d" required:"" help:"ticket, withdrawal or sale."`
	DB     string `name:"db" required:"" type:"path" help:"SQLite database path."`
}

type statusCount struct {
	status generic.Status
	count  int
}

func (cmd *classifyCmd) Run(ctx context.Context, e *env) error {
	domain, err := generic.ParseDomain(strings.ToLower(cmd.Domain))
	if err != nil {
		return err
	}
	db, err := sqlite.New(cmd.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	h := api.NewHandler(db, api.Options{Logger: e.logger})

	var (
		counts   []statusCount
		warnings []error
	)
	switch domain {
	case generic.DomainTicket:
		_, set, err := h.Tickets.Classify(ctx)
		if err != nil {
			return err
		}
		counts, warnings = countsOf(set.Statuses(), set.Counts()), set.Warnings
	case generic.DomainWithdrawal:
		_, set, err := h.Payouts.Classify(ctx)
		if err != nil {
			return err
		}
		counts, warnings = countsOf(set.Statuses(), set.Counts()), set.Warnings
	case generic.DomainSale:
		_, set, err := h.Sales.Classify(ctx)
		if err != nil {
			return err
		}
		counts, warnings = countsOf(set.Statuses(), set.Counts()), set.Warnings
	}

	for _, c := range counts {
		fmt.Fprintf(e.out, "%-12s %d\n", strcase.ToPascal(string(c.status)), c.count)
	}
	for _, w := range warnings {
		e.logger.WarnContext(ctx, "unclassified record", logging.FieldError, w)
	}
	return nil
}

func countsOf(order []generic.Status, counts map[generic.Status]int) []statusCount {
	out := make([]statusCount, len(order))
	for i, s := range order {
		out[i] = statusCount{status: s, count: counts[s]}
	}
	return out
}

// =============================================================================
// MIGRATE AND SEED
// =============================================================================

type migrateCmd struct {
	DB string `name:"db" required:"" type:"path" help:"SQLite database path."`
}

func (cmd *migrateCmd) Run(ctx context.Context, e *env) error {
	db, err := sqlite.New(cmd.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	version, dirty, err := db.SchemaVersion()
	if err != nil {
		return err
	}
	e.logger.InfoContext(ctx, "migrations applied", logging.FieldOperation, logging.OpMigrate, "version", version)
	fmt.Fprintf(e.out, "schema version %d (dirty=%t)\n", version, dirty)
	return nil
}

type seedCmd struct {
	Scenario string `short:"s" required:"" help:"Scenario id (demo-shop, support-backlog)."`
	DB       string `name:"db" required:"" type:"path" help:"SQLite database path. Existing data is erased."`
}

func (cmd *seedCmd) Run(ctx context.Context, e *env) error {
	db, err := sqlite.New(cmd.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	h := api.NewHandler(db, api.Options{Logger: e.logger})
	if err := h.ApplyScenario(ctx, cmd.Scenario); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "loaded scenario %s into %s\n", cmd.Scenario, cmd.DB)
	return nil
}
