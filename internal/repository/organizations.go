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

type OrganizationRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Organization, error)
	GetOrCreateByName(ctx context.Context, name string) (*entity.Organization, error)
}

type organizationRepository struct {
	q      dialect.ExecQuerier
	b      *entsql.DialectBuilder
	logger *slog.Logger
}

var organizationColumns = []string{"id", "name", "phone", "email", "address", "created"}

func (r *organizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Organization, error) {
	orgs, err := r.selectOrgs(ctx, entsql.EQ("id", id.String()))
	if err != nil {
		r.logger.Error("failed to get organization", "organization_id", id, "error", err)
		return nil, err
	}
	if len(orgs) == 0 {
		return nil, common.NewAppError("ORGANIZATION_NOT_FOUND", fmt.Sprintf("organization %s", id), common.ErrNotFound)
	}
	return orgs[0], nil
}

func (r *organizationRepository) GetOrCreateByName(ctx context.Context, name string) (*entity.Organization, error) {
	orgs, err := r.selectOrgs(ctx, entsql.EQ("name", name))
	if err != nil {
		r.logger.Error("failed to look up organization", "name", name, "error", err)
		return nil, err
	}
	if len(orgs) > 0 {
		return orgs[0], nil
	}

	now := time.Now().UTC()
	org := &entity.Organization{ID: uuid.New(), Name: name, Created: now}
	query, args := r.b.Insert("organizations").
		Columns("id", "name", "created", "updated").
		Values(org.ID.String(), org.Name, now, now).
		Query()
	if err := r.q.Exec(ctx, query, args, nil); err != nil {
		r.logger.Error("failed to create organization", "name", name, "error", err)
		return nil, fmt.Errorf("%w: create organization: %v", common.ErrDatabase, err)
	}
	r.logger.Info("organization created", "organization_id", org.ID, "name", name)
	return org, nil
}

func (r *organizationRepository) selectOrgs(ctx context.Context, p *entsql.Predicate) ([]*entity.Organization, error) {
	query, args := r.b.Select(organizationColumns...).
		From(r.b.Table("organizations")).
		Where(p).
		OrderBy(entsql.Asc("created")).
		Query()
	var out []*entity.Organization
	err := queryEach(ctx, r.q, query, args, func(rows *entsql.Rows) error {
		var o entity.Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.Phone, &o.Email, &o.Address, &o.Created); err != nil {
			return err
		}
		out = append(out, &o)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return out, nil
}
