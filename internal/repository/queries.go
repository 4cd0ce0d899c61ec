package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// Queries groups the repositories that share one connection or transaction.
type Queries struct {
	Documents     DocumentRepository
	Organizations OrganizationRepository
	Customers     PartyRepository
	Suppliers     PartyRepository
	Products      ProductRepository
	Invoices      InvoiceRepository
	Purchases     PurchaseRepository
}

// NewQueries binds every repository to q, which is either the pool driver or
// an open transaction.
func NewQueries(q dialect.ExecQuerier, dialectName string, logger *slog.Logger) *Queries {
	if logger == nil {
		logger = slog.Default()
	}
	b := entsql.Dialect(dialectName)
	return &Queries{
		Documents:     &documentRepository{q: q, b: b, logger: logger},
		Organizations: &organizationRepository{q: q, b: b, logger: logger},
		Customers:     &partyRepository{q: q, b: b, table: "customers", logger: logger},
		Suppliers:     &partyRepository{q: q, b: b, table: "suppliers", logger: logger},
		Products:      &productRepository{q: q, b: b, logger: logger},
		Invoices:      &invoiceRepository{q: q, b: b, logger: logger},
		Purchases:     &purchaseRepository{q: q, b: b, logger: logger},
	}
}

func execAffected(ctx context.Context, q dialect.ExecQuerier, query string, args []any) (int64, error) {
	var res sql.Result
	if err := q.Exec(ctx, query, args, &res); err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func queryEach(ctx context.Context, q dialect.ExecQuerier, query string, args []any, scan func(rows *entsql.Rows) error) error {
	var rows entsql.Rows
	if err := q.Query(ctx, query, args, &rows); err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		if err := scan(&rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Nullable helpers hand drivers plain values or nil instead of typed pointers.
func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
