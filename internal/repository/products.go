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

type ProductRepository interface {
	FindByName(ctx context.Context, orgID uuid.UUID, name string) (*entity.Product, bool, error)
	Create(ctx context.Context, p *entity.Product) error
	GetOrCreate(ctx context.Context, p *entity.Product) (*entity.Product, bool, error)
}

type productRepository struct {
	q      dialect.ExecQuerier
	b      *entsql.DialectBuilder
	logger *slog.Logger
}

func (r *productRepository) FindByName(ctx context.Context, orgID uuid.UUID, name string) (*entity.Product, bool, error) {
	query, args := r.b.Select("id", "organization_id", "name", "unit_price", "selling_price", "purchase_price", "created").
		From(r.b.Table("products")).
		Where(entsql.And(
			entsql.EQ("organization_id", orgID.String()),
			entsql.EQ("name", name),
		)).
		OrderBy(entsql.Asc("created")).
		Limit(1).
		Query()

	var found *entity.Product
	err := queryEach(ctx, r.q, query, args, func(rows *entsql.Rows) error {
		var p entity.Product
		if err := rows.Scan(&p.ID, &p.OrganizationID, &p.Name, &p.UnitPrice, &p.SellingPrice, &p.PurchasePrice, &p.Created); err != nil {
			return err
		}
		found = &p
		return nil
	})
	if err != nil {
		r.logger.Error("failed to find product", "name", name, "error", err)
		return nil, false, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return found, found != nil, nil
}

func (r *productRepository) Create(ctx context.Context, p *entity.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Created.IsZero() {
		p.Created = time.Now().UTC()
	}
	query, args := r.b.Insert("products").
		Columns("id", "organization_id", "name", "unit_price", "selling_price", "purchase_price", "created", "updated").
		Values(p.ID.String(), p.OrganizationID.String(), p.Name, nullFloat(p.UnitPrice), nullFloat(p.SellingPrice),
			nullFloat(p.PurchasePrice), p.Created, p.Created).
		Query()
	if err := r.q.Exec(ctx, query, args, nil); err != nil {
		r.logger.Error("failed to create product", "name", p.Name, "error", err)
		return fmt.Errorf("%w: create product: %v", common.ErrDatabase, err)
	}
	return nil
}

func (r *productRepository) GetOrCreate(ctx context.Context, p *entity.Product) (*entity.Product, bool, error) {
	existing, ok, err := r.FindByName(ctx, p.OrganizationID, p.Name)
	if err != nil {
		return nil, false, err
	}
	if ok {
		return existing, false, nil
	}
	if err := r.Create(ctx, p); err != nil {
		return nil, false, err
	}
	return p, true, nil
}
