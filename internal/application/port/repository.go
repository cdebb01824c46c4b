package port

import (
	"context"

	"github.com/garyjia/invoice-insights/internal/domain/entity"
)

// InvoiceRepository defines persistence operations for Invoice records.
// Every user-facing lookup is scoped by user ID.
type InvoiceRepository interface {
	// Create inserts a new record. ID, CreatedAt and UpdatedAt are filled when empty.
	Create(ctx context.Context, invoice *entity.Invoice) error

	// GetByID returns the record owned by userID, or nil when absent
	GetByID(ctx context.Context, userID, id string) (*entity.Invoice, error)

	// List returns the records matching filter, newest first
	List(ctx context.Context, filter entity.InvoiceFilter) ([]*entity.Invoice, error)

	// Count returns the number of records matching filter, ignoring paging
	Count(ctx context.Context, filter entity.InvoiceFilter) (int, error)

	// Update overwrites the mutable fields of an existing record
	Update(ctx context.Context, invoice *entity.Invoice) error

	// ListByStatus returns up to limit records of any user in the given
	// status, oldest first. Used by background workers.
	ListByStatus(ctx context.Context, status string, limit int) ([]*entity.Invoice, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
