package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/complaintdesk/internal/domain"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so every repository
// can run inside or outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool       *pgxpool.Pool
	tenants    *TenantRepo
	users      *UserRepo
	identities *IdentityRepo
	complaints *ComplaintRepo
	audit      *AuditRepo
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Store{
		pool:       pool,
		tenants:    NewTenantRepo(pool),
		users:      NewUserRepo(pool),
		identities: NewIdentityRepo(pool),
		complaints: NewComplaintRepo(pool),
		audit:      NewAuditRepo(pool),
	}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Tenants() domain.TenantRepository       { return s.tenants }
func (s *Store) Users() domain.UserRepository           { return s.users }
func (s *Store) Identities() domain.IdentityRepository  { return s.identities }
func (s *Store) Complaints() domain.ComplaintRepository { return s.complaints }
func (s *Store) Audit() domain.AuditRepository          { return s.audit }

// InTx runs fn in a read-committed transaction. Row locks taken through
// GetByReferenceForUpdate are held until commit or rollback.
func (s *Store) InTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("postgres.InTx: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(&txRepos{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres.InTx: commit: %w", err)
	}
	return nil
}

type txRepos struct {
	tx pgx.Tx
}

func (t *txRepos) Complaints() domain.ComplaintRepository { return &ComplaintRepo{db: t.tx} }
func (t *txRepos) Audit() domain.AuditRepository          { return &AuditRepo{db: t.tx} }
func (t *txRepos) Identities() domain.IdentityRepository  { return &IdentityRepo{db: t.tx} }

const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique violation, optionally of
// a specific named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
