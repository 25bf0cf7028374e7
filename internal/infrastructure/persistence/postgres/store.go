// Package postgres implements the persistence ports on PostgreSQL via pgx.
package postgres

import (
	"context"
	"embed"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/port"
	pgpkg "github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/postgres"
)

// Migrations holds the schema, applied with pkg/postgres.RunMigrations.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations.
const MigrationsDir = "migrations"

const uniqueViolation = "23505"

// Store implements port.UnitOfWork over a connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new PostgreSQL-backed unit of work.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var _ port.UnitOfWork = (*Store)(nil)

// txAttempts bounds retries of deadlocked or serialization-failed units of work.
const txAttempts = 3

// Do runs fn in a read-committed transaction. Loans and suspense rows read
// through the transactional repositories are locked FOR UPDATE.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, repos port.Repositories) error) error {
	return pgpkg.WithRetry(ctx, s.pool, txAttempts, func(tx pgx.Tx) error {
		return fn(ctx, repositories(tx, true))
	})
}

// Repos returns repositories that run each statement on its own connection.
func (s *Store) Repos() port.Repositories {
	return repositories(s.pool, false)
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return pgpkg.HealthCheck(ctx, s.pool)
}

func repositories(q pgpkg.Querier, inTx bool) port.Repositories {
	return port.Repositories{
		Loans:        &LoanRepo{q: q, forUpdate: inTx},
		Waivers:      &WaiverRepo{q: q},
		Restructures: &RestructureRepo{q: q},
		Rollovers:    &RolloverRepo{q: q},
		Suspense:     &SuspenseRepo{q: q, forUpdate: inTx},
		Receipts:     &ReceiptRepo{q: q},
		Outbox:       &OutboxRepo{q: q, skipLocked: inTx},
	}
}

func lockClause(forUpdate bool) string {
	if forUpdate {
		return " FOR UPDATE"
	}
	return ""
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
