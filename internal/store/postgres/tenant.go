package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gosuda/complaintdesk/internal/domain"
)

type TenantRepo struct {
	db querier
}

func NewTenantRepo(db querier) *TenantRepo {
	return &TenantRepo{db: db}
}

func (r *TenantRepo) Create(ctx context.Context, t *domain.Tenant) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO tenants (id, name, slug, active, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.Name, t.Slug, t.Active, t.CreatedAt,
	)
	if isUniqueViolation(err, "") {
		return fmt.Errorf("tenantRepo.Create: %w", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("tenantRepo.Create: %w", err)
	}

	return nil
}

func (r *TenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	var t domain.Tenant

	err := r.db.QueryRow(ctx,
		`SELECT id, name, slug, active, created_at
		 FROM tenants WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.Name, &t.Slug, &t.Active, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("tenantRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("tenantRepo.GetByID: %w", err)
	}

	return &t, nil
}

func (r *TenantRepo) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	var t domain.Tenant

	err := r.db.QueryRow(ctx,
		`SELECT id, name, slug, active, created_at
		 FROM tenants WHERE slug = $1`,
		slug,
	).Scan(&t.ID, &t.Name, &t.Slug, &t.Active, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("tenantRepo.GetBySlug: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("tenantRepo.GetBySlug: %w", err)
	}

	return &t, nil
}

func (r *TenantRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE tenants SET active = $1 WHERE id = $2`,
		active, id,
	)
	if err != nil {
		return fmt.Errorf("tenantRepo.SetActive: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("tenantRepo.SetActive: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *TenantRepo) List(ctx context.Context) ([]*domain.Tenant, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, slug, active, created_at
		 FROM tenants ORDER BY name
		 LIMIT 500`,
	)
	if err != nil {
		return nil, fmt.Errorf("tenantRepo.List: %w", err)
	}
	defer rows.Close()

	var tenants []*domain.Tenant
	for rows.Next() {
		var t domain.Tenant

		err = rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Active, &t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("tenantRepo.List: scan: %w", err)
		}

		tenants = append(tenants, &t)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("tenantRepo.List: rows: %w", err)
	}

	return tenants, nil
}
