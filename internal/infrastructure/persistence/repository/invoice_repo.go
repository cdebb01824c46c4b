package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/invoice-insights/internal/application/port"
	"github.com/garyjia/invoice-insights/internal/domain/entity"
	"github.com/garyjia/invoice-insights/internal/infrastructure/persistence/sqlite"
)

const invoicesTable = "invoices"

var invoiceColumns = []string{
	"id", "user_id", "vendor", "invoice_number", "amount", "currency",
	"invoice_date", "due_date", "description", "category", "status",
	"ai_confidence", "source", "file_url", "file_key", "file_name", "file_size",
	"file_type", "extracted_data", "error_message", "created_at", "updated_at",
}

// InvoiceRepository implements port.InvoiceRepository on SQLite
type InvoiceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *sql.DB, logger *zap.Logger) *InvoiceRepository {
	return &InvoiceRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new invoice record
func (r *InvoiceRepository) Create(ctx context.Context, invoice *entity.Invoice) error {
	if invoice.ID == "" {
		invoice.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = now
	}
	invoice.CreatedAt = invoice.CreatedAt.UTC()
	invoice.UpdatedAt = now

	query, args, err := squirrel.Insert(invoicesTable).
		SetMap(r.valueMap(invoice)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}

	if _, err := r.exec(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("Failed to create invoice",
			zap.String("id", invoice.ID),
			zap.String("user_id", invoice.UserID),
			zap.Error(err))
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	return nil
}

// GetByID retrieves an invoice owned by userID
func (r *InvoiceRepository) GetByID(ctx context.Context, userID, id string) (*entity.Invoice, error) {
	query, args, err := squirrel.Select(invoiceColumns...).
		From(invoicesTable).
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}

	invoice, err := scanInvoice(r.exec(ctx).QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get invoice by ID",
			zap.String("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	return invoice, nil
}

// List returns the user's invoices matching filter, newest first
func (r *InvoiceRepository) List(ctx context.Context, filter entity.InvoiceFilter) ([]*entity.Invoice, error) {
	builder := applyFilter(squirrel.Select(invoiceColumns...).From(invoicesTable), filter).
		OrderBy("created_at DESC", "id")
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
		if filter.Offset > 0 {
			builder = builder.Offset(uint64(filter.Offset))
		}
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}

	rows, err := r.exec(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list invoices",
			zap.String("user_id", filter.UserID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	return scanInvoices(rows)
}

// Count returns the number of invoices matching filter
func (r *InvoiceRepository) Count(ctx context.Context, filter entity.InvoiceFilter) (int, error) {
	query, args, err := applyFilter(squirrel.Select("COUNT(*)").From(invoicesTable), filter).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count: %w", err)
	}

	var count int
	if err := r.exec(ctx).QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count invoices: %w", err)
	}
	return count, nil
}

// Update overwrites the mutable fields of an invoice. Returns
// entity.ErrNotFound when the user owns no such record.
func (r *InvoiceRepository) Update(ctx context.Context, invoice *entity.Invoice) error {
	invoice.UpdatedAt = time.Now().UTC()

	values := r.valueMap(invoice)
	delete(values, "id")
	delete(values, "user_id")
	delete(values, "created_at")

	query, args, err := squirrel.Update(invoicesTable).
		SetMap(values).
		Where(squirrel.Eq{"id": invoice.ID, "user_id": invoice.UserID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}

	result, err := r.exec(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update invoice",
			zap.String("id", invoice.ID),
			zap.Error(err))
		return fmt.Errorf("failed to update invoice: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return entity.ErrNotFound
	}
	return nil
}

// ListByStatus returns the oldest invoices of any user in status
func (r *InvoiceRepository) ListByStatus(ctx context.Context, status string, limit int) ([]*entity.Invoice, error) {
	builder := squirrel.Select(invoiceColumns...).
		From(invoicesTable).
		Where(squirrel.Eq{"status": status}).
		OrderBy("created_at", "id")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}

	rows, err := r.exec(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list invoices by status",
			zap.String("status", status),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	return scanInvoices(rows)
}

func (r *InvoiceRepository) exec(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

func (r *InvoiceRepository) valueMap(inv *entity.Invoice) map[string]interface{} {
	var confidence interface{}
	if inv.AIConfidence != nil {
		confidence = *inv.AIConfidence
	}

	return map[string]interface{}{
		"id":             inv.ID,
		"user_id":        inv.UserID,
		"vendor":         inv.Vendor,
		"invoice_number": inv.InvoiceNumber,
		"amount":         inv.Amount.String(),
		"currency":       inv.Currency,
		"invoice_date":   inv.Date,
		"due_date":       inv.DueDate,
		"description":    inv.Description,
		"category":       inv.Category,
		"status":         inv.Status,
		"ai_confidence":  confidence,
		"source":         inv.Source,
		"file_url":       inv.FileURL,
		"file_key":       inv.FileKey,
		"file_name":      inv.FileName,
		"file_size":      inv.FileSize,
		"file_type":      inv.FileType,
		"extracted_data": inv.ExtractedData,
		"error_message":  inv.ErrorMessage,
		"created_at":     inv.CreatedAt,
		"updated_at":     inv.UpdatedAt,
	}
}

func applyFilter(builder squirrel.SelectBuilder, f entity.InvoiceFilter) squirrel.SelectBuilder {
	builder = builder.Where(squirrel.Eq{"user_id": f.UserID})

	if len(f.Statuses) > 0 {
		builder = builder.Where(squirrel.Eq{"status": f.Statuses})
	}
	if f.Category != "" {
		builder = builder.Where(squirrel.Eq{"category": f.Category})
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		pattern := "%" + q + "%"
		builder = builder.Where(squirrel.Or{
			squirrel.Like{"vendor": pattern},
			squirrel.Like{"invoice_number": pattern},
			squirrel.Like{"description": pattern},
		})
	}
	if f.From != nil {
		builder = builder.Where(squirrel.GtOrEq{"created_at": f.From.UTC()})
	}
	if f.To != nil {
		builder = builder.Where(squirrel.LtOrEq{"created_at": f.To.UTC()})
	}
	return builder
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInvoice(row rowScanner) (*entity.Invoice, error) {
	var (
		inv        entity.Invoice
		amount     string
		confidence sql.NullInt64
	)

	err := row.Scan(
		&inv.ID,
		&inv.UserID,
		&inv.Vendor,
		&inv.InvoiceNumber,
		&amount,
		&inv.Currency,
		&inv.Date,
		&inv.DueDate,
		&inv.Description,
		&inv.Category,
		&inv.Status,
		&confidence,
		&inv.Source,
		&inv.FileURL,
		&inv.FileKey,
		&inv.FileName,
		&inv.FileSize,
		&inv.FileType,
		&inv.ExtractedData,
		&inv.ErrorMessage,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	inv.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid stored amount %q for invoice %s: %w", amount, inv.ID, err)
	}
	if confidence.Valid {
		c := int(confidence.Int64)
		inv.AIConfidence = &c
	}

	return &inv, nil
}

func scanInvoices(rows *sql.Rows) ([]*entity.Invoice, error) {
	invoices := make([]*entity.Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// Verify interface compliance
var _ port.InvoiceRepository = (*InvoiceRepository)(nil)
