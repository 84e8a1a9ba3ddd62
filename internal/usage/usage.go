// Package usage meters AI consumption against monthly plan limits.
package usage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"invoiceai/internal/logger"
	"invoiceai/pkg/models"
)

// ErrUnknownPlan is returned for a plan name outside the catalog.
var ErrUnknownPlan = errors.New("unknown usage plan")

type Plan string

const (
	PlanGuest    Plan = "guest"
	PlanFree     Plan = "free"
	PlanPro      Plan = "pro"
	PlanBusiness Plan = "business"
)

// Limits caps one calendar month of usage. One finished invoice takes about
// 20K tokens.
type Limits struct {
	Invoices int64 `json:"invoices"`
	Tokens   int64 `json:"tokens"`
}

var plans = map[Plan]Limits{
	PlanGuest:    {Invoices: 1, Tokens: 20_000},
	PlanFree:     {Invoices: 1, Tokens: 200_000},
	PlanPro:      {Invoices: 50, Tokens: 1_000_000},
	PlanBusiness: {Invoices: 200, Tokens: 4_000_000},
}

// LimitsFor returns the limits of plan.
func LimitsFor(plan Plan) (Limits, error) {
	limits, ok := plans[plan]
	if !ok {
		return Limits{}, fmt.Errorf("%w: %q", ErrUnknownPlan, plan)
	}
	return limits, nil
}

// Allows reports whether the assistant may make another model call.
func (l Limits) Allows(u models.MonthlyUsage) bool {
	return u.Tokens < l.Tokens
}

// AllowsInvoice reports whether another AI draft fits the plan.
func (l Limits) AllowsInvoice(u models.MonthlyUsage) bool {
	return u.Invoices < l.Invoices
}

// Store persists monthly counters.
type Store interface {
	AddUsage(ctx context.Context, userID string, year, month int, tokens, invoices int64) (*models.MonthlyUsage, error)
	Usage(ctx context.Context, userID string, year, month int) (*models.MonthlyUsage, error)
}

// DefaultGuestConversations caps how many guest conversations are metered in
// one month. Once full, new guest conversations get no allowance.
const DefaultGuestConversations = 1000

// Subject is who is being metered: an owner, or a guest conversation.
type Subject struct {
	OwnerID        *string
	ConversationID string
}

// Tracker reads and records usage. Owners are persisted through the store;
// guests are counted in memory per conversation.
type Tracker struct {
	store Store
	plan  Plan
	now   func() time.Time
	log   zerolog.Logger

	mu          sync.Mutex
	guests      map[string]*models.MonthlyUsage
	guestPeriod [2]int
	guestCap    int
}

// NewTracker meters owners on plan.
func NewTracker(store Store, plan Plan, now func() time.Time) (*Tracker, error) {
	if _, err := LimitsFor(plan); err != nil {
		return nil, err
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Tracker{
		store:    store,
		plan:     plan,
		now:      now,
		log:      logger.WithComponent("usage"),
		guests:   make(map[string]*models.MonthlyUsage),
		guestCap: DefaultGuestConversations,
	}, nil
}

// LimitGuests changes how many guest conversations are metered per month.
func (t *Tracker) LimitGuests(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.guestCap = n
}

// Limits returns the limits that apply to subject.
func (t *Tracker) Limits(subject Subject) Limits {
	if subject.OwnerID == nil {
		return plans[PlanGuest]
	}
	return plans[t.plan]
}

// Current returns this month's counters for subject.
func (t *Tracker) Current(ctx context.Context, subject Subject) (models.MonthlyUsage, error) {
	year, month := t.period()
	if subject.OwnerID == nil {
		return t.guest(subject.ConversationID, year, month, 0, 0), nil
	}

	u, err := t.store.Usage(ctx, *subject.OwnerID, year, month)
	if err != nil {
		return models.MonthlyUsage{}, fmt.Errorf("load usage: %w", err)
	}
	return *u, nil
}

// Allowed reports whether subject may make another model call this month.
func (t *Tracker) Allowed(ctx context.Context, subject Subject) (bool, error) {
	u, err := t.Current(ctx, subject)
	if err != nil {
		return false, err
	}
	return t.Limits(subject).Allows(u), nil
}

// RecordTokens adds consumed model tokens.
func (t *Tracker) RecordTokens(ctx context.Context, subject Subject, tokens int64) error {
	if tokens <= 0 {
		return nil
	}
	year, month := t.period()
	if subject.OwnerID == nil {
		t.guest(subject.ConversationID, year, month, tokens, 0)
		return nil
	}

	u, err := t.store.AddUsage(ctx, *subject.OwnerID, year, month, tokens, 0)
	if err != nil {
		return fmt.Errorf("record tokens: %w", err)
	}
	t.log.Debug().
		Str("user_id", u.UserID).
		Int64("tokens", u.Tokens).
		Msg("Recorded token usage")
	return nil
}

// RecordInvoice counts one AI-created draft for an owner.
func (t *Tracker) RecordInvoice(ctx context.Context, userID string) error {
	year, month := t.period()
	if _, err := t.store.AddUsage(ctx, userID, year, month, 0, 1); err != nil {
		return fmt.Errorf("record invoice: %w", err)
	}
	return nil
}

func (t *Tracker) period() (int, int) {
	now := t.now()
	return now.Year(), int(now.Month())
}

// guest adds to and returns the in-memory counters of a guest conversation.
// The whole table is dropped when the month rolls over. A conversation that
// does not fit under the cap reports an exhausted allowance and is not stored.
func (t *Tracker) guest(conversationID string, year, month int, tokens, invoices int64) models.MonthlyUsage {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.guestPeriod != [2]int{year, month} {
		t.guests = make(map[string]*models.MonthlyUsage)
		t.guestPeriod = [2]int{year, month}
	}

	u, ok := t.guests[conversationID]
	if !ok {
		if len(t.guests) >= t.guestCap {
			t.log.Warn().
				Str("conversation_id", conversationID).
				Int("guests", len(t.guests)).
				Msg("Guest conversation cap reached")
			limits := plans[PlanGuest]
			return models.MonthlyUsage{Year: year, Month: month, Tokens: limits.Tokens, Invoices: limits.Invoices}
		}
		if tokens == 0 && invoices == 0 {
			return models.MonthlyUsage{Year: year, Month: month}
		}
		u = &models.MonthlyUsage{Year: year, Month: month}
		t.guests[conversationID] = u
	}
	u.Tokens += tokens
	u.Invoices += invoices
	return *u
}
