package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gosuda/complaintdesk/internal/domain"
)

type IdentityRepo struct {
	db querier
}

func NewIdentityRepo(db querier) *IdentityRepo {
	return &IdentityRepo{db: db}
}

func (r *IdentityRepo) Create(ctx context.Context, id *domain.Identity) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO identities (user_id, tenant_id, role, created_at)
		 VALUES ($1, $2, $3, $4)`,
		id.UserID, id.TenantID, id.Role, id.CreatedAt,
	)
	if isUniqueViolation(err, "identities_pkey") {
		return fmt.Errorf("identityRepo.Create: user already bound: %w", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("identityRepo.Create: %w", err)
	}

	return nil
}

func (r *IdentityRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Identity, error) {
	var id domain.Identity

	err := r.db.QueryRow(ctx,
		`SELECT i.user_id, u.username, i.tenant_id, i.role, i.created_at
		 FROM identities i JOIN users u ON u.id = i.user_id
		 WHERE i.user_id = $1`,
		userID,
	).Scan(&id.UserID, &id.Username, &id.TenantID, &id.Role, &id.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("identityRepo.GetByUserID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("identityRepo.GetByUserID: %w", err)
	}

	return &id, nil
}

func (r *IdentityRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, roles ...domain.Role) ([]*domain.Identity, error) {
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}

	rows, err := r.db.Query(ctx,
		`SELECT i.user_id, u.username, i.tenant_id, i.role, i.created_at
		 FROM identities i JOIN users u ON u.id = i.user_id
		 WHERE i.tenant_id = $1 AND (cardinality($2::text[]) = 0 OR i.role = ANY($2))
		 ORDER BY u.username
		 LIMIT 1000`,
		tenantID, names,
	)
	if err != nil {
		return nil, fmt.Errorf("identityRepo.ListByTenant: %w", err)
	}
	defer rows.Close()

	var out []*domain.Identity
	for rows.Next() {
		var id domain.Identity

		err = rows.Scan(&id.UserID, &id.Username, &id.TenantID, &id.Role, &id.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("identityRepo.ListByTenant: scan: %w", err)
		}

		out = append(out, &id)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("identityRepo.ListByTenant: rows: %w", err)
	}

	return out, nil
}
