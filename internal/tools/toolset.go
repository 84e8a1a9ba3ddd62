// Package tools is the catalog of operations the assistant may call on
// invoice drafts.
//
// A Toolset is bound to one caller (owner and conversation). Each tool has a
// JSON schema generated from its argument struct; Invoke decodes the raw
// arguments strictly, validates them and only then runs the tool body. Tool
// bodies never return errors: store failures, missing selections and guest
// callers come back as plain sentences the model can relay.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai/jsonschema"

	"invoiceai/internal/drafting"
	"invoiceai/internal/logger"
	"invoiceai/internal/session"
	"invoiceai/internal/store"
	"invoiceai/pkg/models"
)

// Store is the subset of the record store the tools use. Every call is scoped
// by owner; a nil owner addresses guest records only.
type Store interface {
	FindOne(ctx context.Context, owner *string, q store.Query) (*models.InvoiceDraft, error)
	FindMany(ctx context.Context, owner *string, q store.Query) ([]models.InvoiceDraft, error)
	Create(ctx context.Context, owner *string, draft store.NewDraft) (*models.InvoiceDraft, error)
	UpdateSection(ctx context.Context, owner *string, draftID string, section models.Section) (*models.InvoiceDraft, error)
	UpdateCustomNote(ctx context.Context, owner *string, draftID string, note *string) (*models.InvoiceDraft, error)
	UpdateStatus(ctx context.Context, owner *string, draftID string, status models.DraftStatus) (*models.InvoiceDraft, error)
	Delete(ctx context.Context, owner string, draftID string) error
	Count(ctx context.Context, owner *string, status *models.DraftStatus) (int64, error)
	DraftNumbers(ctx context.Context, owner *string) ([]string, error)
	SaveInvoice(ctx context.Context, inv *models.Invoice) error
	CountInvoices(ctx context.Context, owner string) (int64, error)
}

// UsageRecorder counts drafts created by the assistant against the owner's
// monthly plan.
type UsageRecorder interface {
	RecordInvoice(ctx context.Context, userID string) error
}

// Deps are shared by every Toolset in the process.
type Deps struct {
	Store    Store
	Selector *session.Selector
	// AppURL is the base of preview links, without a trailing slash.
	AppURL string
	// Usage is optional.
	Usage UsageRecorder
	Now   func() time.Time
}

// Caller identifies who the tools act for.
type Caller struct {
	OwnerID        *string
	ConversationID string
}

// Definition describes one tool to a model.
type Definition struct {
	Name        string
	Description string
	Parameters  *jsonschema.Definition
}

type tool struct {
	def    Definition
	invoke func(ctx context.Context, raw json.RawMessage) (any, error)
}

// Toolset is the tool catalog bound to one caller.
type Toolset struct {
	deps      Deps
	caller    Caller
	key       string
	evaluator *drafting.Evaluator
	log       zerolog.Logger

	tools map[string]*tool
	order []string
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// New builds the catalog for caller.
func New(deps Deps, caller Caller) *Toolset {
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	ts := &Toolset{
		deps:      deps,
		caller:    caller,
		key:       session.Key(caller.ConversationID, caller.OwnerID),
		evaluator: drafting.NewEvaluator(deps.Store),
		log:       logger.WithOwner(logger.WithComponent("tools"), caller.OwnerID),
		tools:     make(map[string]*tool),
	}
	ts.registerAll()
	return ts
}

// register adds a tool whose arguments decode into A. Schema generation only
// fails for unsupported field kinds, which is a programming error.
func register[A any](ts *Toolset, name, description string, body func(context.Context, *A) any) {
	var zero A
	schema, err := jsonschema.GenerateSchemaForType(zero)
	if err != nil {
		panic(fmt.Sprintf("tools: schema for %s: %v", name, err))
	}

	ts.tools[name] = &tool{
		def: Definition{Name: name, Description: description, Parameters: schema},
		invoke: func(ctx context.Context, raw json.RawMessage) (any, error) {
			args := new(A)
			if err := decodeArgs(raw, args); err != nil {
				return nil, newArgumentError(name, err)
			}
			return body(ctx, args), nil
		},
	}
	ts.order = append(ts.order, name)
}

// decodeArgs rejects unknown fields and trailing data, then validates.
func decodeArgs(raw json.RawMessage, dst any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	if dec.More() {
		return errors.New("decode arguments: trailing data after JSON object")
	}
	return validate.Struct(dst)
}

// Definitions returns the catalog in registration order.
func (ts *Toolset) Definitions() []Definition {
	defs := make([]Definition, 0, len(ts.order))
	for _, name := range ts.order {
		defs = append(defs, ts.tools[name].def)
	}
	return defs
}

// Invoke runs the named tool with raw JSON arguments. The error is non-nil
// only for an unknown tool or rejected arguments.
func (ts *Toolset) Invoke(ctx context.Context, name string, raw json.RawMessage) (any, error) {
	t, ok := ts.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	log := ts.log.With().Str("tool", name).Logger()
	start := time.Now()

	result, err := t.invoke(ctx, raw)
	if err != nil {
		log.Warn().Err(err).Msg("Rejected tool arguments")
		return nil, err
	}

	log.Debug().Dur("duration", time.Since(start)).Msg("Tool executed")
	return result, nil
}

// selection returns the caller's active draft, read fresh on every call.
func (ts *Toolset) selection() (string, bool) {
	return ts.deps.Selector.Selected(ts.key)
}

func (ts *Toolset) today() string {
	return ts.deps.Now().Format(time.DateOnly)
}

// failure turns a store error into the sentence returned to the model.
func (ts *Toolset) failure(err error, action string) any {
	if errors.Is(err, store.ErrNotFound) {
		return MessageResult{Message: MsgDraftNotFound}
	}
	ts.log.Error().Err(err).Str("action", action).Msg("Tool failed")
	return MsgSomethingWrong
}

// check runs the completeness evaluator on a freshly written draft.
func (ts *Toolset) check(ctx context.Context, draft *models.InvoiceDraft, message string) (*DraftCheck, error) {
	result, current, err := ts.evaluator.Check(ctx, draft)
	if err != nil {
		return nil, err
	}
	return &DraftCheck{
		Message:         message,
		Draft:           current,
		IsDraftComplete: result.IsComplete,
		DraftID:         current.ID,
		LastUpdated:     current.UpdatedAt,
		MissingSections: result.Missing,
	}, nil
}

func (ts *Toolset) checkResult(ctx context.Context, draft *models.InvoiceDraft, action string) any {
	result, err := ts.check(ctx, draft, "")
	if err != nil {
		return ts.failure(err, action)
	}
	return result
}
