/*
Package factory provides JSON to Go payload conversion.

PURPOSE:
  Turns raw request bodies into typed submissions and workflow payloads.
  Every body is checked against an embedded JSON Schema first, so handlers
  and the CLI only ever see structurally valid input. Business rules (is the
  transition legal, does the product exist) stay in the domain services.

SCHEMAS (schemas/*.json):
  ticket.json                 New support ticket
  withdrawal.json             New withdrawal request
  sale.json                   Manual sale submission
  product.json                Catalog product create/update
  transaction.json            Paid transaction for the sales ledger
  <domain>_transition.json    Status change for ticket, withdrawal, sale

TRANSITION JSON:
  {
    "status": "cancelled",
    "adminId": "admin-7",
    "cancellationReason": "Account flagged",
    "transactionReference": ""
  }

USAGE:
  f := factory.NewPayloadFactory()

  var t NewTicketDTO
  if err := f.Decode(factory.KindTicket, body, &t); err != nil { ... }

  req, err := f.ParseTransition(generic.DomainWithdrawal, body)
  err = generic.ValidateTransition(req.Domain, current, req.Status, req.Payload)

SEE ALSO:
  - generic/workflow.go: Payload and the transition table
  - image.go: Base64 image rules shared by receipts and product images
*/
package factory

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/warp/admin-console/generic"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// =============================================================================
// KINDS
// =============================================================================

// Kind names a submission schema.
type Kind string

const (
	KindTicket      Kind = "ticket"
	KindWithdrawal  Kind = "withdrawal"
	KindSale        Kind = "sale"
	KindProduct     Kind = "product"
	KindTransaction Kind = "transaction"
)

func transitionKind(d generic.Domain) Kind {
	return Kind(string(d) + "_transition")
}

// =============================================================================
// TRANSITION REQUEST
// =============================================================================

// TransitionJSON is the wire shape of a status change.
type TransitionJSON struct {
	Status               string `json:"status"`
	Action               string `json:"action,omitempty"`
	AdminID              string `json:"adminId,omitempty"`
	Reply                string `json:"reply,omitempty"`
	CancellationReason   string `json:"cancellationReason,omitempty"`
	TransactionReference string `json:"transactionReference,omitempty"`
}

// TransitionRequest is a decoded status change, ready for the validator.
type TransitionRequest struct {
	Domain  generic.Domain
	Status  generic.Status
	AdminID generic.AdminID
	Payload generic.Payload
}

// ToTransitionRequest converts the wire shape for domain d.
func (j TransitionJSON) ToTransitionRequest(d generic.Domain) TransitionRequest {
	return TransitionRequest{
		Domain:  d,
		Status:  generic.Status(strings.TrimSpace(j.Status)),
		AdminID: generic.AdminID(strings.TrimSpace(j.AdminID)),
		Payload: generic.Payload{
			Action:               generic.Action(j.Action),
			Reply:                j.Reply,
			CancellationReason:   j.CancellationReason,
			TransactionReference: j.TransactionReference,
		},
	}
}

// =============================================================================
// FACTORY
// =============================================================================

// PayloadFactory compiles embedded schemas on first use and caches them.
type PayloadFactory struct {
	mu       sync.RWMutex
	compiled map[Kind]*jsonschema.Schema
}

func NewPayloadFactory() *PayloadFactory {
	return &PayloadFactory{compiled: make(map[Kind]*jsonschema.Schema)}
}

// Decode validates raw against the schema for kind and unmarshals it into v.
// Validation failures are returned as *generic.PayloadError.
func (f *PayloadFactory) Decode(kind Kind, raw []byte, v any) error {
	if err := f.Validate(kind, raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &generic.PayloadError{Message: err.Error()}
	}
	return nil
}

// Validate checks raw against the schema for kind without decoding it.
func (f *PayloadFactory) Validate(kind Kind, raw []byte) error {
	schema, err := f.schemaFor(kind)
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return &generic.PayloadError{Message: "malformed JSON: " + err.Error()}
	}

	if err := schema.Validate(doc); err != nil {
		return schemaError(err)
	}
	return nil
}

// ParseTransition decodes a status change for domain d.
func (f *PayloadFactory) ParseTransition(d generic.Domain, raw []byte) (TransitionRequest, error) {
	if _, err := generic.WorkflowFor(d); err != nil {
		return TransitionRequest{}, err
	}
	var j TransitionJSON
	if err := f.Decode(transitionKind(d), raw, &j); err != nil {
		return TransitionRequest{}, err
	}
	return j.ToTransitionRequest(d), nil
}

// Kinds lists every schema the factory knows about.
func Kinds() []Kind {
	kinds := []Kind{KindTicket, KindWithdrawal, KindSale, KindProduct, KindTransaction}
	for _, d := range generic.Domains() {
		kinds = append(kinds, transitionKind(d))
	}
	return kinds
}

func (f *PayloadFactory) schemaFor(kind Kind) (*jsonschema.Schema, error) {
	f.mu.RLock()
	schema, ok := f.compiled[kind]
	f.mu.RUnlock()
	if ok {
		return schema, nil
	}

	name := "schemas/" + string(kind) + ".json"
	data, err := schemaFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("factory: no schema for %s: %w", kind, err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("factory: load schema %s: %w", kind, err)
	}
	compiled, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("factory: compile schema %s: %w", kind, err)
	}

	f.mu.Lock()
	f.compiled[kind] = compiled
	f.mu.Unlock()
	return compiled, nil
}

// schemaError reduces a validation tree to its first leaf.
func schemaError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &generic.PayloadError{Message: err.Error()}
	}
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	return &generic.PayloadError{
		Field:   strings.TrimPrefix(leaf.InstanceLocation, "/"),
		Message: leaf.Message,
	}
}
