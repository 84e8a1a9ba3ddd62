// Package store persists invoice drafts, finalized invoices and monthly AI
// usage through gorm.
//
// Every query is scoped by owner. A non-nil owner matches only that owner's
// records; a nil owner matches only guest records (owner_id IS NULL). No
// operation ever reads or writes across owners, which is how ownership
// violations fail closed: the scoped lookup simply finds nothing.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"invoiceai/internal/logger"
	"invoiceai/pkg/models"
)

// Query narrows an owner-scoped draft lookup. Zero values are ignored.
type Query struct {
	ID            string
	InvoiceNumber string
	Statuses      []models.DraftStatus
	// WithSections requires these sections to be present.
	WithSections []models.SectionName
	Limit        int
}

// NewDraft describes a draft to create. Sections may carry prefilled values.
type NewDraft struct {
	Type          models.InvoiceType
	InvoiceNumber string
	Sections      models.DraftSections
	CustomNote    *string
}

// Store is the gorm-backed record store.
type Store struct {
	db  *gorm.DB
	now func() time.Time
	log zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for created/updated stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New wraps an open gorm connection.
func New(db *gorm.DB, opts ...Option) *Store {
	s := &Store{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
		log: logger.WithComponent("store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates or updates the tables.
func (s *Store) Migrate(ctx context.Context) error {
	const op = "Migrate"
	if err := s.db.WithContext(ctx).AutoMigrate(&draftRow{}, &invoiceRow{}, &usageRow{}); err != nil {
		return wrap(op, err)
	}
	return nil
}

func ownerScope(owner *string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if owner == nil {
			return db.Where("owner_id IS NULL")
		}
		return db.Where("owner_id = ?", *owner)
	}
}

func (q Query) scope(db *gorm.DB) *gorm.DB {
	if q.ID != "" {
		db = db.Where("id = ?", q.ID)
	}
	if q.InvoiceNumber != "" {
		db = db.Where("invoice_number = ?", q.InvoiceNumber)
	}
	if len(q.Statuses) > 0 {
		statuses := make([]string, len(q.Statuses))
		for i, st := range q.Statuses {
			statuses[i] = string(st)
		}
		db = db.Where("status IN ?", statuses)
	}
	for _, name := range q.WithSections {
		if column, ok := sectionColumns[name]; ok {
			db = db.Where(column + " IS NOT NULL")
		}
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}
	return db.Order("updated_at DESC").Order("id DESC")
}

// FindOne returns the most recently updated draft matching q, or ErrNotFound.
func (s *Store) FindOne(ctx context.Context, owner *string, q Query) (*models.InvoiceDraft, error) {
	const op = "FindOne"

	var row draftRow
	err := s.db.WithContext(ctx).
		Scopes(ownerScope(owner), q.scope).
		Take(&row).Error
	if err != nil {
		return nil, wrap(op, err)
	}
	draft, err := row.toModel()
	if err != nil {
		return nil, wrap(op, err)
	}
	return draft, nil
}

// FindMany returns every draft matching q, newest first.
func (s *Store) FindMany(ctx context.Context, owner *string, q Query) ([]models.InvoiceDraft, error) {
	const op = "FindMany"

	var rows []draftRow
	if err := s.db.WithContext(ctx).Scopes(ownerScope(owner), q.scope).Find(&rows).Error; err != nil {
		return nil, wrap(op, err)
	}

	drafts := make([]models.InvoiceDraft, 0, len(rows))
	for i := range rows {
		draft, err := rows[i].toModel()
		if err != nil {
			return nil, wrap(op, err)
		}
		drafts = append(drafts, *draft)
	}
	return drafts, nil
}

// Create inserts a new IN_PROGRESS draft for owner.
func (s *Store) Create(ctx context.Context, owner *string, draft NewDraft) (*models.InvoiceDraft, error) {
	const op = "Create"

	if draft.Type == "" {
		draft.Type = models.TypeInvoice
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, wrap(op, err)
	}
	row, err := newDraftRow(id.String(), owner, draft, s.now())
	if err != nil {
		return nil, wrap(op, err)
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, wrap(op, err)
	}

	s.log.Debug().
		Str("draft_id", row.ID).
		Str("invoice_number", row.InvoiceNumber).
		Bool("guest", owner == nil).
		Msg("Created invoice draft")

	return row.toModel()
}

// updateColumns applies values to one owner-scoped draft and returns the
// fresh record.
func (s *Store) updateColumns(ctx context.Context, op string, owner *string, draftID string, values map[string]any) (*models.InvoiceDraft, error) {
	values["updated_at"] = s.now()

	res := s.db.WithContext(ctx).
		Model(&draftRow{}).
		Scopes(ownerScope(owner)).
		Where("id = ?", draftID).
		Updates(values)
	if res.Error != nil {
		return nil, wrap(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, wrap(op, ErrNotFound)
	}
	return s.FindOne(ctx, owner, Query{ID: draftID})
}

// UpdateSection replaces one structured section of a draft.
func (s *Store) UpdateSection(ctx context.Context, owner *string, draftID string, section models.Section) (*models.InvoiceDraft, error) {
	const op = "UpdateSection"

	column, value, err := encodeSection(section)
	if err != nil {
		return nil, wrap(op, err)
	}
	return s.updateColumns(ctx, op, owner, draftID, map[string]any{column: value})
}

// UpdateCustomNote replaces the free-form note. A nil note clears it.
func (s *Store) UpdateCustomNote(ctx context.Context, owner *string, draftID string, note *string) (*models.InvoiceDraft, error) {
	const op = "UpdateCustomNote"
	return s.updateColumns(ctx, op, owner, draftID, map[string]any{"custom_note": note})
}

// UpdateStatus writes status without any lifecycle checks.
func (s *Store) UpdateStatus(ctx context.Context, owner *string, draftID string, status models.DraftStatus) (*models.InvoiceDraft, error) {
	const op = "UpdateStatus"
	return s.updateColumns(ctx, op, owner, draftID, map[string]any{"status": string(status)})
}

// Delete removes the draft identified by (owner, draftID).
func (s *Store) Delete(ctx context.Context, owner string, draftID string) error {
	const op = "Delete"

	if owner == "" {
		return wrap(op, ErrOwnerRequired)
	}
	res := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", draftID, owner).
		Delete(&draftRow{})
	if res.Error != nil {
		return wrap(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return wrap(op, ErrNotFound)
	}

	s.log.Info().
		Str("draft_id", draftID).
		Str("owner_id", owner).
		Msg("Deleted invoice draft")
	return nil
}

// Count returns the number of owner drafts, optionally with one status.
func (s *Store) Count(ctx context.Context, owner *string, status *models.DraftStatus) (int64, error) {
	const op = "Count"

	db := s.db.WithContext(ctx).Model(&draftRow{}).Scopes(ownerScope(owner))
	if status != nil {
		db = db.Where("status = ?", string(*status))
	}
	var n int64
	if err := db.Count(&n).Error; err != nil {
		return 0, wrap(op, err)
	}
	return n, nil
}

// DraftNumbers returns the invoice numbers of every draft in the owner scope.
func (s *Store) DraftNumbers(ctx context.Context, owner *string) ([]string, error) {
	const op = "DraftNumbers"

	var numbers []string
	err := s.db.WithContext(ctx).
		Model(&draftRow{}).
		Scopes(ownerScope(owner)).
		Pluck("invoice_number", &numbers).Error
	if err != nil {
		return nil, wrap(op, err)
	}
	return numbers, nil
}

// CountByStatus returns per-status draft counts. Every status is present in
// the result, zero when the owner has none.
func (s *Store) CountByStatus(ctx context.Context, owner *string) (map[models.DraftStatus]int64, error) {
	const op = "CountByStatus"

	var grouped []struct {
		Status string
		Total  int64
	}
	err := s.db.WithContext(ctx).
		Model(&draftRow{}).
		Scopes(ownerScope(owner)).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&grouped).Error
	if err != nil {
		return nil, wrap(op, err)
	}

	counts := make(map[models.DraftStatus]int64, len(models.AllStatuses))
	for _, st := range models.AllStatuses {
		counts[st] = 0
	}
	for _, g := range grouped {
		counts[models.DraftStatus(g.Status)] = g.Total
	}
	return counts, nil
}

// SaveInvoice inserts or replaces a finalized invoice. Guest invoices are not
// persisted.
func (s *Store) SaveInvoice(ctx context.Context, inv *models.Invoice) error {
	const op = "SaveInvoice"

	if inv.OwnerID == nil || *inv.OwnerID == "" {
		return wrap(op, ErrOwnerRequired)
	}
	now := s.now()
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = now
	}
	inv.UpdatedAt = now

	row, err := newInvoiceRow(inv)
	if err != nil {
		return wrap(op, err)
	}

	// An id collision with another owner's invoice must not overwrite it.
	var existing invoiceRow
	err = s.db.WithContext(ctx).Select("id", "owner_id").Where("id = ?", row.ID).Take(&existing).Error
	if err == nil && existing.OwnerID != row.OwnerID {
		return wrap(op, ErrNotFound)
	}

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(row).Error
	if err != nil {
		return wrap(op, err)
	}

	s.log.Info().
		Str("invoice_id", row.ID).
		Str("number", row.Number).
		Str("total", row.Total.String()).
		Msg("Saved finalized invoice")
	return nil
}

// ListInvoices returns the owner's finalized invoices, newest first.
func (s *Store) ListInvoices(ctx context.Context, owner string) ([]models.Invoice, error) {
	const op = "ListInvoices"

	var rows []invoiceRow
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", owner).
		Order("updated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, wrap(op, err)
	}

	invoices := make([]models.Invoice, 0, len(rows))
	for i := range rows {
		inv, err := rows[i].toModel()
		if err != nil {
			return nil, wrap(op, err)
		}
		invoices = append(invoices, *inv)
	}
	return invoices, nil
}

// CountInvoices returns how many finalized invoices the owner has.
func (s *Store) CountInvoices(ctx context.Context, owner string) (int64, error) {
	const op = "CountInvoices"

	var n int64
	if err := s.db.WithContext(ctx).Model(&invoiceRow{}).Where("owner_id = ?", owner).Count(&n).Error; err != nil {
		return 0, wrap(op, err)
	}
	return n, nil
}

// AddUsage increments the monthly counters for userID, creating the row on
// first use, and returns the updated totals.
func (s *Store) AddUsage(ctx context.Context, userID string, year, month int, tokens, invoices int64) (*models.MonthlyUsage, error) {
	const op = "AddUsage"

	var row usageRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		key := usageRow{UserID: userID, Year: year, Month: month}
		if err := tx.Where(&key).FirstOrCreate(&row).Error; err != nil {
			return err
		}
		err := tx.Model(&usageRow{}).
			Where("id = ?", row.ID).
			UpdateColumns(map[string]any{
				"tokens":     gorm.Expr("tokens + ?", tokens),
				"invoices":   gorm.Expr("invoices + ?", invoices),
				"updated_at": s.now(),
			}).Error
		if err != nil {
			return err
		}
		return tx.Take(&row, row.ID).Error
	})
	if err != nil {
		return nil, wrap(op, fmt.Errorf("user %s %04d-%02d: %w", userID, year, month, err))
	}
	return row.toModel(), nil
}

// Usage returns the counters for one month. A month without activity yields
// zero counters, not ErrNotFound.
func (s *Store) Usage(ctx context.Context, userID string, year, month int) (*models.MonthlyUsage, error) {
	const op = "Usage"

	var row usageRow
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND year = ? AND month = ?", userID, year, month).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.MonthlyUsage{UserID: userID, Year: year, Month: month}, nil
	}
	if err != nil {
		return nil, wrap(op, err)
	}
	return row.toModel(), nil
}
