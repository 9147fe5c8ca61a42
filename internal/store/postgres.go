package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/confhub/backend/pkg/database"
)

// Pool is the connection surface Postgres needs; *pgxpool.Pool satisfies it.
type Pool interface {
	database.DBTX
	database.Beginner
}

// Postgres is the pgx-backed Store.
type Postgres struct {
	*queries
	pool         Pool
	rolesChanged RolesChangedFunc
}

// queries implements Queries on either the pool or a transaction.
type queries struct {
	db      database.DBTX
	touched func(ctx context.Context, ids []uuid.UUID)
}

// NewPostgres creates a Store on pool. rolesChanged may be nil.
func NewPostgres(pool Pool, rolesChanged RolesChangedFunc) *Postgres {
	p := &Postgres{pool: pool, rolesChanged: rolesChanged}
	p.queries = &queries{db: pool, touched: p.notify}
	return p
}

// WithTx runs fn in a transaction and notifies role changes after commit.
func (p *Postgres) WithTx(ctx context.Context, fn func(q Queries) error) error {
	var touched []uuid.UUID
	err := database.WithTx(ctx, p.pool, func(tx pgx.Tx) error {
		q := &queries{db: tx, touched: func(_ context.Context, ids []uuid.UUID) {
			touched = append(touched, ids...)
		}}
		return fn(q)
	})
	if err != nil {
		return err
	}
	p.notify(ctx, touched)
	return nil
}

func (p *Postgres) notify(ctx context.Context, ids []uuid.UUID) {
	if p.rolesChanged != nil && len(ids) > 0 {
		p.rolesChanged(ctx, ids)
	}
}
