package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gosuda/complaintdesk/internal/domain"
)

type UserRepo struct {
	db querier
}

func NewUserRepo(db querier) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, username, password_hash, created_at)
		 VALUES ($1, $2, $3, $4)`,
		u.ID, u.Username, u.PasswordHash, u.CreatedAt,
	)
	if isUniqueViolation(err, "users_username_key") {
		return fmt.Errorf("userRepo.Create: username %q: %w", u.Username, domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("userRepo.Create: %w", err)
	}

	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.getOne(ctx, "userRepo.GetByID",
		`SELECT id, username, password_hash, created_at FROM users WHERE id = $1`, id)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, "userRepo.GetByUsername",
		`SELECT id, username, password_hash, created_at FROM users WHERE username = $1`, username)
}

func (r *UserRepo) getOne(ctx context.Context, caller, query string, arg any) (*domain.User, error) {
	var u domain.User

	err := r.db.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", caller, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", caller, err)
	}

	return &u, nil
}
