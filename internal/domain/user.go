package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User is an authenticated principal. It carries no tenant or role; those
// live on its Identity.
type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string // argon2id
	CreatedAt    time.Time
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
}
