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

type PurchaseRepository interface {
	Create(ctx context.Context, p *entity.Purchase) error
	List(ctx context.Context, orgID uuid.UUID, limit int) ([]*entity.Purchase, error)
}

type purchaseRepository struct {
	q      dialect.ExecQuerier
	b      *entsql.DialectBuilder
	logger *slog.Logger
}

func (r *purchaseRepository) Create(ctx context.Context, p *entity.Purchase) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Created.IsZero() {
		p.Created = time.Now().UTC()
	}
	if p.Amount == 0 {
		p.Amount = p.Total
	}

	query, args := r.b.Insert("purchases").
		Columns("id", "organization_id", "number", "date", "supplier_id", "subtotal", "discount", "tax",
			"total", "amount", "created", "updated").
		Values(p.ID.String(), p.OrganizationID.String(), p.Number, dateOnly(p.Date), p.SupplierID.String(),
			p.Subtotal, nullFloat(p.Discount), nullFloat(p.Tax), p.Total, p.Amount, p.Created, p.Created).
		Query()
	if err := r.q.Exec(ctx, query, args, nil); err != nil {
		r.logger.Error("failed to create purchase", "number", p.Number, "error", err)
		return fmt.Errorf("%w: create purchase: %v", common.ErrDatabase, err)
	}

	for i := range p.Items {
		item := &p.Items[i]
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.PurchaseID = p.ID
		item.Total = float64(item.Qty) * item.UnitPrice

		query, args := r.b.Insert("purchase_items").
			Columns("id", "organization_id", "purchase_id", "product_id", "qty", "unit_price", "subtotal",
				"total", "amount", "created", "updated").
			Values(item.ID.String(), p.OrganizationID.String(), p.ID.String(), item.ProductID.String(), item.Qty,
				item.UnitPrice, item.Total, item.Total, item.Total, p.Created, p.Created).
			Query()
		if err := r.q.Exec(ctx, query, args, nil); err != nil {
			r.logger.Error("failed to create purchase item", "purchase_id", p.ID, "error", err)
			return fmt.Errorf("%w: create purchase item: %v", common.ErrDatabase, err)
		}
	}
	return nil
}

func (r *purchaseRepository) List(ctx context.Context, orgID uuid.UUID, limit int) ([]*entity.Purchase, error) {
	s := r.b.Select("id", "organization_id", "number", "date", "supplier_id", "subtotal", "discount", "tax",
		"total", "amount", "created").
		From(r.b.Table("purchases")).
		Where(entsql.EQ("organization_id", orgID.String())).
		OrderBy(entsql.Desc("date"))
	if limit > 0 {
		s.Limit(limit)
	}
	query, args := s.Query()

	var out []*entity.Purchase
	err := queryEach(ctx, r.q, query, args, func(rows *entsql.Rows) error {
		var (
			p      entity.Purchase
			number *string
		)
		if err := rows.Scan(&p.ID, &p.OrganizationID, &number, &p.Date, &p.SupplierID, &p.Subtotal,
			&p.Discount, &p.Tax, &p.Total, &p.Amount, &p.Created); err != nil {
			return err
		}
		p.Number = deref(number)
		out = append(out, &p)
		return nil
	})
	if err != nil {
		r.logger.Error("failed to list purchases", "organization_id", orgID, "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return out, nil
}
