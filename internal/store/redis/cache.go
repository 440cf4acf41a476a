package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/gosuda/complaintdesk/internal/domain"
)

type cachedIdentity struct {
	UserID    uuid.UUID   `json:"user_id"`
	Username  string      `json:"username"`
	TenantID  uuid.UUID   `json:"tenant_id"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

// IdentityKey is the cache key for a user's identity.
func IdentityKey(userID uuid.UUID) string {
	return "identity:" + userID.String()
}

// GetIdentity returns the cached identity, or ok=false on a miss.
func (c *Client) GetIdentity(ctx context.Context, userID uuid.UUID) (*domain.Identity, bool, error) {
	raw, err := c.client.Get(ctx, IdentityKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis.Client.GetIdentity: %w", err)
	}

	id, err := decodeIdentity(raw)
	if err != nil {
		return nil, false, fmt.Errorf("redis.Client.GetIdentity: %w", err)
	}
	return id, true, nil
}

func (c *Client) SetIdentity(ctx context.Context, id *domain.Identity, ttl time.Duration) error {
	raw, err := encodeIdentity(id)
	if err != nil {
		return fmt.Errorf("redis.Client.SetIdentity: %w", err)
	}
	if err := c.client.Set(ctx, IdentityKey(id.UserID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis.Client.SetIdentity: %w", err)
	}
	return nil
}

func encodeIdentity(id *domain.Identity) ([]byte, error) {
	return json.Marshal(cachedIdentity{
		UserID:    id.UserID,
		Username:  id.Username,
		TenantID:  id.TenantID,
		Role:      id.Role,
		CreatedAt: id.CreatedAt,
	})
}

func decodeIdentity(raw []byte) (*domain.Identity, error) {
	var ci cachedIdentity
	if err := json.Unmarshal(raw, &ci); err != nil {
		return nil, err
	}
	if !ci.Role.Valid() || ci.UserID == uuid.Nil {
		return nil, errors.New("malformed cached identity")
	}
	return &domain.Identity{
		UserID:    ci.UserID,
		Username:  ci.Username,
		TenantID:  ci.TenantID,
		Role:      ci.Role,
		CreatedAt: ci.CreatedAt,
	}, nil
}
