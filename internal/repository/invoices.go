package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/paperia/internal/common"
	"github.com/joseph-ayodele/paperia/internal/entity"
)

// InvoiceFilter narrows an invoice listing. Zero values disable a filter.
type InvoiceFilter struct {
	OrganizationID uuid.UUID
	From           *time.Time
	To             *time.Time
	Limit          int
}

type InvoiceRepository interface {
	// Create always inserts a new invoice and its items; it never merges.
	Create(ctx context.Context, inv *entity.Invoice) error
	List(ctx context.Context, filter InvoiceFilter) ([]*entity.Invoice, error)
	Items(ctx context.Context, invoiceID uuid.UUID) ([]entity.InvoiceItem, error)
}

type invoiceRepository struct {
	q      dialect.ExecQuerier
	b      *entsql.DialectBuilder
	logger *slog.Logger
}

func (r *invoiceRepository) Create(ctx context.Context, inv *entity.Invoice) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	if inv.Created.IsZero() {
		inv.Created = time.Now().UTC()
	}
	if inv.Amount == 0 {
		inv.Amount = inv.Total
	}

	query, args := r.b.Insert("invoices").
		Columns("id", "organization_id", "number", "date", "customer_id", "subtotal", "discount", "tax",
			"total", "amount", "created", "updated").
		Values(inv.ID.String(), inv.OrganizationID.String(), inv.Number, dateOnly(inv.Date), inv.CustomerID.String(),
			inv.Subtotal, nullFloat(inv.Discount), nullFloat(inv.Tax), inv.Total, inv.Amount, inv.Created, inv.Created).
		Query()
	if err := r.q.Exec(ctx, query, args, nil); err != nil {
		r.logger.Error("failed to create invoice", "number", inv.Number, "error", err)
		return fmt.Errorf("%w: create invoice: %v", common.ErrDatabase, err)
	}

	for i := range inv.Items {
		item := &inv.Items[i]
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.InvoiceID = inv.ID
		item.Total = float64(item.Qty) * item.UnitPrice

		query, args := r.b.Insert("invoice_items").
			Columns("id", "organization_id", "invoice_id", "product_id", "qty", "unit_price", "subtotal",
				"total", "amount", "created", "updated").
			Values(item.ID.String(), inv.OrganizationID.String(), inv.ID.String(), item.ProductID.String(), item.Qty,
				item.UnitPrice, item.Total, item.Total, item.Total, inv.Created, inv.Created).
			Query()
		if err := r.q.Exec(ctx, query, args, nil); err != nil {
			r.logger.Error("failed to create invoice item", "invoice_id", inv.ID, "product_id", item.ProductID, "error", err)
			return fmt.Errorf("%w: create invoice item: %v", common.ErrDatabase, err)
		}
	}
	return nil
}

func (r *invoiceRepository) List(ctx context.Context, filter InvoiceFilter) ([]*entity.Invoice, error) {
	i := r.b.Table("invoices").As("i")
	c := r.b.Table("customers").As("c")
	s := r.b.Select(
		i.C("id"), i.C("organization_id"), i.C("number"), i.C("date"), i.C("customer_id"), c.C("name"),
		i.C("subtotal"), i.C("discount"), i.C("tax"), i.C("total"), i.C("amount"), i.C("created"),
	).From(i).LeftJoin(c).On(i.C("customer_id"), c.C("id"))

	if filter.OrganizationID != uuid.Nil {
		s.Where(entsql.EQ(i.C("organization_id"), filter.OrganizationID.String()))
	}
	if filter.From != nil {
		s.Where(entsql.GTE(i.C("date"), dateOnly(*filter.From)))
	}
	if filter.To != nil {
		s.Where(entsql.LTE(i.C("date"), dateOnly(*filter.To)))
	}
	s.OrderBy(entsql.Desc(i.C("date")), entsql.Desc(i.C("created")))
	if filter.Limit > 0 {
		s.Limit(filter.Limit)
	}

	query, args := s.Query()
	var out []*entity.Invoice
	err := queryEach(ctx, r.q, query, args, func(rows *entsql.Rows) error {
		var (
			inv          entity.Invoice
			number, name *string
		)
		if err := rows.Scan(&inv.ID, &inv.OrganizationID, &number, &inv.Date, &inv.CustomerID, &name,
			&inv.Subtotal, &inv.Discount, &inv.Tax, &inv.Total, &inv.Amount, &inv.Created); err != nil {
			return err
		}
		inv.Number = deref(number)
		inv.CustomerName = deref(name)
		out = append(out, &inv)
		return nil
	})
	if err != nil {
		r.logger.Error("failed to list invoices", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return out, nil
}

func (r *invoiceRepository) Items(ctx context.Context, invoiceID uuid.UUID) ([]entity.InvoiceItem, error) {
	it := r.b.Table("invoice_items").As("it")
	p := r.b.Table("products").As("p")
	query, args := r.b.Select(
		it.C("id"), it.C("invoice_id"), it.C("product_id"), p.C("name"), it.C("qty"), it.C("unit_price"), it.C("total"),
	).From(it).LeftJoin(p).On(it.C("product_id"), p.C("id")).
		Where(entsql.EQ(it.C("invoice_id"), invoiceID.String())).
		OrderBy(entsql.Asc(it.C("created"))).
		Query()

	var out []entity.InvoiceItem
	err := queryEach(ctx, r.q, query, args, func(rows *entsql.Rows) error {
		var (
			item entity.InvoiceItem
			name *string
		)
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.ProductID, &name, &item.Qty, &item.UnitPrice, &item.Total); err != nil {
			return err
		}
		item.ProductName = deref(name)
		out = append(out, item)
		return nil
	})
	if err != nil {
		r.logger.Error("failed to list invoice items", "invoice_id", invoiceID, "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return out, nil
}
