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

// PartyRepository serves both the customers and the suppliers table. Rows are
// matched on exact name within an organization; no uniqueness is enforced.
type PartyRepository interface {
	FindByName(ctx context.Context, orgID uuid.UUID, name string) (*entity.Party, bool, error)
	Create(ctx context.Context, p *entity.Party) error
	GetOrCreate(ctx context.Context, p *entity.Party) (*entity.Party, bool, error)
	List(ctx context.Context, orgID uuid.UUID) ([]*entity.Party, error)
}

type partyRepository struct {
	q      dialect.ExecQuerier
	b      *entsql.DialectBuilder
	table  string
	logger *slog.Logger
}

var partyColumns = []string{"id", "organization_id", "name", "phone", "email", "address", "created"}

func (r *partyRepository) FindByName(ctx context.Context, orgID uuid.UUID, name string) (*entity.Party, bool, error) {
	parties, err := r.selectParties(ctx, entsql.And(
		entsql.EQ("organization_id", orgID.String()),
		entsql.EQ("name", name),
	), 1)
	if err != nil {
		r.logger.Error("failed to find by name", "table", r.table, "name", name, "error", err)
		return nil, false, err
	}
	if len(parties) == 0 {
		return nil, false, nil
	}
	return parties[0], true, nil
}

func (r *partyRepository) Create(ctx context.Context, p *entity.Party) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Created.IsZero() {
		p.Created = time.Now().UTC()
	}
	query, args := r.b.Insert(r.table).
		Columns("id", "organization_id", "name", "phone", "email", "address", "created", "updated").
		Values(p.ID.String(), p.OrganizationID.String(), p.Name, nullString(p.Phone), nullString(p.Email),
			nullString(p.Address), p.Created, p.Created).
		Query()
	if err := r.q.Exec(ctx, query, args, nil); err != nil {
		r.logger.Error("failed to create row", "table", r.table, "name", p.Name, "error", err)
		return fmt.Errorf("%w: create %s: %v", common.ErrDatabase, r.table, err)
	}
	return nil
}

// GetOrCreate returns the existing row named p.Name or inserts p. The bool
// reports whether a row was created.
func (r *partyRepository) GetOrCreate(ctx context.Context, p *entity.Party) (*entity.Party, bool, error) {
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

func (r *partyRepository) List(ctx context.Context, orgID uuid.UUID) ([]*entity.Party, error) {
	parties, err := r.selectParties(ctx, entsql.EQ("organization_id", orgID.String()), 0)
	if err != nil {
		r.logger.Error("failed to list", "table", r.table, "organization_id", orgID, "error", err)
		return nil, err
	}
	return parties, nil
}

func (r *partyRepository) selectParties(ctx context.Context, p *entsql.Predicate, limit int) ([]*entity.Party, error) {
	s := r.b.Select(partyColumns...).
		From(r.b.Table(r.table)).
		Where(p).
		OrderBy(entsql.Asc("created"))
	if limit > 0 {
		s.Limit(limit)
	}
	query, args := s.Query()
	var out []*entity.Party
	err := queryEach(ctx, r.q, query, args, func(rows *entsql.Rows) error {
		var e entity.Party
		if err := rows.Scan(&e.ID, &e.OrganizationID, &e.Name, &e.Phone, &e.Email, &e.Address, &e.Created); err != nil {
			return err
		}
		out = append(out, &e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return out, nil
}
