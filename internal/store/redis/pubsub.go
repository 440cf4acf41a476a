package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/gosuda/complaintdesk/internal/domain"
)

// Client wraps a redis connection used for complaint event fan-out and the
// identity cache.
type Client struct {
	client *redis.Client
}

func New(ctx context.Context, addr, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.New: ping: %w", err)
	}

	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("redis.Client.Close: %w", err)
	}
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := c.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis.Client.Publish: %w", err)
	}
	return nil
}

// PublishComplaintEvent sends ev to its tenant's complaint channel.
func (c *Client) PublishComplaintEvent(ctx context.Context, ev domain.ComplaintEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("redis.Client.PublishComplaintEvent: marshal: %w", err)
	}
	return c.Publish(ctx, ComplaintChannel(ev.TenantID), payload)
}

func (c *Client) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	sub := c.client.Subscribe(ctx, channel)

	// Wait for subscription confirmation.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis.Client.Subscribe: receive confirmation: %w", err)
	}

	out := make(chan []byte, 64)
	redisCh := sub.Channel()

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-redisCh:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	cleanup := func() {
		_ = sub.Close()
	}

	return out, cleanup, nil
}

// SubscribeComplaints streams decoded events for one tenant. Undecodable
// payloads are dropped.
func (c *Client) SubscribeComplaints(ctx context.Context, tenantID uuid.UUID) (<-chan domain.ComplaintEvent, func(), error) {
	raw, cleanup, err := c.Subscribe(ctx, ComplaintChannel(tenantID))
	if err != nil {
		return nil, nil, err
	}

	out := make(chan domain.ComplaintEvent, 64)
	go func() {
		defer close(out)
		for payload := range raw {
			ev, err := DecodeComplaintEvent(payload)
			if err != nil {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, cleanup, nil
}

func DecodeComplaintEvent(payload []byte) (domain.ComplaintEvent, error) {
	var ev domain.ComplaintEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return domain.ComplaintEvent{}, fmt.Errorf("redis.DecodeComplaintEvent: %w", err)
	}
	return ev, nil
}

// ComplaintChannel returns the Redis channel name for a tenant's complaint
// events.
func ComplaintChannel(tenantID uuid.UUID) string {
	return "complaints:" + tenantID.String()
}
