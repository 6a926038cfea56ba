/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Populates the database with realistic data for demos. Each scenario is a
	YAML fixture embedded from scenarios/ and is replayed through the domain
	services, so every record passes the same validation, workflow and audit
	path as a real request.

AVAILABLE SCENARIOS:

	demo-shop:        Products, reviewed promotions, months of paid sales
	support-backlog:  Open/answered tickets, withdrawals in every status

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create products, remembering their fixture keys
 3. Open tickets, request withdrawals, submit sales
 4. Move records to their fixture status through the workflow
 5. Append paid transactions dated relative to now

USAGE VIA API:

	POST /api/scenarios/load
	{"scenarioId": "demo-shop"}

ADDING NEW SCENARIOS:
 1. Drop a <id>.yaml file into scenarios/
 2. Nothing else: the registry picks it up at startup

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Service wiring
  - cmd/adminctl: seed command
*/
package api

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/warp/admin-console/catalog"
	"github.com/warp/admin-console/generic"
	"github.com/warp/admin-console/payouts"
	"github.com/warp/admin-console/sales"
	"github.com/warp/admin-console/tickets"
)

//go:embed scenarios/*.yaml
var scenarioFS embed.FS

// sampleReceipt is a minimal PNG used as the payment receipt of demo sales.
const sampleReceipt = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJ"

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type Scenario struct {
	ID           string                `yaml:"id"`
	Name         string                `yaml:"name"`
	Description  string                `yaml:"description"`
	Admin        string                `yaml:"admin"`
	Products     []scenarioProduct     `yaml:"products"`
	Tickets      []scenarioTicket      `yaml:"tickets"`
	Withdrawals  []scenarioWithdrawal  `yaml:"withdrawals"`
	Sales        []scenarioSale        `yaml:"sales"`
	Transactions []scenarioTransaction `yaml:"transactions"`
}

type scenarioProduct struct {
	Key         string `yaml:"key"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Price       string `yaml:"price"`
	Status      string `yaml:"status"`
}

type scenarioTicket struct {
	Subject     string `yaml:"subject"`
	Description string `yaml:"description"`
	Priority    string `yaml:"priority"`
	Name        string `yaml:"name"`
	Email       string `yaml:"email"`
	Reply       string `yaml:"reply"`
	Status      string `yaml:"status"`
}

type scenarioWithdrawal struct {
	UserID string `yaml:"userId"`
	Amount string `yaml:"amount"`
	Bank   struct {
		AccountName   string `yaml:"accountName"`
		AccountNumber string `yaml:"accountNumber"`
		BankName      string `yaml:"bankName"`
	} `yaml:"bank"`
	Status    string `yaml:"status"`
	Reference string `yaml:"reference"`
	Reason    string `yaml:"reason"`
}

type scenarioSale struct {
	Product   string `yaml:"product"`
	FirstName string `yaml:"firstName"`
	LastName  string `yaml:"lastName"`
	Quantity  int    `yaml:"quantity"`
	Reference string `yaml:"reference"`
	Status    string `yaml:"status"`
}

type scenarioTransaction struct {
	Amount    string `yaml:"amount"`
	DaysAgo   int    `yaml:"daysAgo"`
	Reference string `yaml:"reference"`
}

// ParseScenario decodes one YAML fixture.
func ParseScenario(data []byte) (Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Scenario{}, fmt.Errorf("parsing scenario: %w", err)
	}
	if s.ID == "" {
		return Scenario{}, fmt.Errorf("parsing scenario: missing id")
	}
	if s.Admin == "" {
		s.Admin = "admin-demo"
	}
	return s, nil
}

func (s Scenario) DTO() ScenarioDTO {
	return ScenarioDTO{ID: s.ID, Name: s.Name, Description: s.Description}
}

// =============================================================================
// REGISTRY
// =============================================================================

type scenarioRegistry struct {
	byID map[string]Scenario
	ids  []string

	mu      sync.Mutex
	current string
}

func newScenarioRegistry() *scenarioRegistry {
	reg, err := loadScenarioRegistry(scenarioFS, "scenarios")
	if err != nil {
		// The fixtures are embedded; a parse failure is a build defect.
		panic(err)
	}
	return reg
}

func loadScenarioRegistry(fsys fs.FS, dir string) (*scenarioRegistry, error) {
	files, err := fs.Glob(fsys, path.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	reg := &scenarioRegistry{byID: make(map[string]Scenario)}
	for _, name := range files {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		s, err := ParseScenario(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if _, dup := reg.byID[s.ID]; dup {
			return nil, fmt.Errorf("%s: duplicate scenario id %q", name, s.ID)
		}
		reg.byID[s.ID] = s
		reg.ids = append(reg.ids, s.ID)
	}
	sort.Strings(reg.ids)
	return reg, nil
}

func (r *scenarioRegistry) list() []ScenarioDTO {
	out := make([]ScenarioDTO, len(r.ids))
	for i, id := range r.ids {
		out[i] = r.byID[id].DTO()
	}
	return out
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.scenarios.list())
}

// GetCurrentScenario returns the currently loaded scenario, if any.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.scenarios.mu.Lock()
	current := h.scenarios.current
	h.scenarios.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, h.scenarios.byID[current].DTO())
}

// LoadScenario resets the database and replays a scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if _, known := h.scenarios.byID[req.ScenarioID]; !known {
		writeError(w, http.StatusNotFound, "Unknown scenario", fmt.Errorf("no scenario %q", req.ScenarioID))
		return
	}

	if err := h.ApplyScenario(r.Context(), req.ScenarioID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": req.ScenarioID,
	})
}

// ResetDatabase clears all data.
// POST /api/scenarios/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.scenarios.mu.Lock()
	h.scenarios.current = ""
	h.scenarios.mu.Unlock()
	h.Charts.Invalidate()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// LOADER
// =============================================================================

// ApplyScenario resets the store and replays the named scenario.
func (h *Handler) ApplyScenario(ctx context.Context, id string) error {
	s, ok := h.scenarios.byID[id]
	if !ok {
		return fmt.Errorf("unknown scenario %q", id)
	}

	h.scenarios.mu.Lock()
	defer h.scenarios.mu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	defer h.Charts.Invalidate()
	if err := h.replay(ctx, s); err != nil {
		return fmt.Errorf("scenario %s: %w", id, err)
	}
	h.scenarios.current = id
	return nil
}

func (h *Handler) replay(ctx context.Context, s Scenario) error {
	admin := generic.AdminID(s.Admin)

	products := make(map[string]generic.RecordID)
	for _, p := range s.Products {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return fmt.Errorf("product %s: price: %w", p.Key, err)
		}
		created, err := h.Catalog.Create(ctx, admin, catalog.Input{
			Name:        p.Name,
			Description: p.Description,
			Price:       price,
			Status:      p.Status,
		})
		if err != nil {
			return fmt.Errorf("product %s: %w", p.Key, err)
		}
		products[p.Key] = created.ID
	}

	for _, t := range s.Tickets {
		if err := h.replayTicket(ctx, admin, t); err != nil {
			return fmt.Errorf("ticket %q: %w", t.Subject, err)
		}
	}

	for _, wd := range s.Withdrawals {
		if err := h.replayWithdrawal(ctx, admin, wd); err != nil {
			return fmt.Errorf("withdrawal %s: %w", wd.UserID, err)
		}
	}

	for _, sale := range s.Sales {
		id, ok := products[sale.Product]
		if !ok {
			return fmt.Errorf("sale %s %s: unknown product %q", sale.FirstName, sale.LastName, sale.Product)
		}
		if err := h.replaySale(ctx, admin, id, sale); err != nil {
			return fmt.Errorf("sale %s %s: %w", sale.FirstName, sale.LastName, err)
		}
	}

	now := h.now()
	for i, tx := range s.Transactions {
		amount, err := decimal.NewFromString(tx.Amount)
		if err != nil {
			return fmt.Errorf("transaction %d: amount: %w", i, err)
		}
		if _, err := h.Ledger.Record(ctx, generic.Transaction{
			Amount:         amount,
			PaidAt:         now.AddDate(0, 0, -tx.DaysAgo),
			Reference:      tx.Reference,
			IdempotencyKey: fmt.Sprintf("scenario:%s:%d", s.ID, i),
		}); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
	}
	return nil
}

func (h *Handler) replayTicket(ctx context.Context, admin generic.AdminID, st scenarioTicket) error {
	t, err := h.Tickets.Open(ctx, tickets.NewTicket{
		Subject:     st.Subject,
		Description: st.Description,
		Priority:    st.Priority,
		Name:        st.Name,
		Email:       st.Email,
	})
	if err != nil {
		return err
	}

	target := generic.Status(st.Status)
	if target == "" {
		target = generic.TicketOpen
	}
	switch {
	case st.Reply != "":
		_, err = h.Tickets.Update(ctx, t.ID, admin, target, st.Reply)
	case target == generic.TicketClosed:
		_, err = h.Tickets.Close(ctx, t.ID, admin)
	}
	return err
}

func (h *Handler) replayWithdrawal(ctx context.Context, admin generic.AdminID, sw scenarioWithdrawal) error {
	amount, err := decimal.NewFromString(sw.Amount)
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	wd, err := h.Payouts.Request(ctx, payouts.NewWithdrawal{
		UserID: sw.UserID,
		Amount: amount,
		Bank: payouts.BankDetails{
			AccountName:   sw.Bank.AccountName,
			AccountNumber: sw.Bank.AccountNumber,
			BankName:      sw.Bank.BankName,
		},
	})
	if err != nil {
		return err
	}

	switch generic.Status(sw.Status) {
	case "", generic.WithdrawalPending:
		return nil
	case generic.WithdrawalCompleted:
		_, err = h.Payouts.Complete(ctx, wd.ID, admin, sw.Reference)
	case generic.WithdrawalCancelled:
		_, err = h.Payouts.Cancel(ctx, wd.ID, admin, sw.Reason)
	default:
		err = &generic.UnknownStatusError{Domain: generic.DomainWithdrawal, Status: generic.Status(sw.Status)}
	}
	return err
}

func (h *Handler) replaySale(ctx context.Context, admin generic.AdminID, productID generic.RecordID, ss scenarioSale) error {
	sale, err := h.Sales.Submit(ctx, sales.Submission{
		FirstName:            ss.FirstName,
		LastName:             ss.LastName,
		ProductID:            productID,
		Quantity:             ss.Quantity,
		TransactionReference: ss.Reference,
		SubmittedBy:          admin,
		PaymentReceipt:       sampleReceipt,
	})
	if err != nil {
		return err
	}

	switch generic.Status(ss.Status) {
	case "", generic.SalePending:
		return nil
	case generic.SaleApproved:
		_, err = h.Sales.Approve(ctx, sale.ID, admin, ss.Reference)
	case generic.SaleRejected:
		_, err = h.Sales.Reject(ctx, sale.ID, admin)
	default:
		err = &generic.UnknownStatusError{Domain: generic.DomainSale, Status: generic.Status(ss.Status)}
	}
	return err
}
