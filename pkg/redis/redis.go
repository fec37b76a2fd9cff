package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ecopool/carpool/pkg/config"
	"github.com/ecopool/carpool/pkg/models"
)

// Live-location entries expire on their own so a crashed driver app
// doesn't leave a stale point behind.
const liveLocationTTL = 5 * time.Minute

// Client wraps the Redis client
type Client struct {
	*redis.Client
}

// NewRedisClient creates a new Redis client
func NewRedisClient(cfg *config.RedisConfig) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("unable to connect to redis: %w", err)
	}

	return &Client{Client: client}, nil
}

// SetWithExpiration sets a key-value pair with expiration
func (c *Client) SetWithExpiration(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.Set(ctx, key, value, expiration).Err()
}

// GetString gets a string value by key
func (c *Client) GetString(ctx context.Context, key string) (string, error) {
	return c.Get(ctx, key).Result()
}

// Delete deletes a key
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	return c.Del(ctx, keys...).Err()
}

// Exists checks if a key exists
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	result, err := c.Client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return result > 0, nil
}

// Close closes the Redis client
func (c *Client) Close() error {
	return c.Client.Close()
}

func liveLocationKey(rideID string) string {
	return "ride:location:" + rideID
}

// SetLiveLocation caches the latest reported position for an in-progress
// ride. Postgres keeps the durable copy; this is the fast read path for
// passengers polling the ride.
func (c *Client) SetLiveLocation(ctx context.Context, rideID string, point models.GeoPoint) error {
	data, err := json.Marshal(point)
	if err != nil {
		return fmt.Errorf("marshal location: %w", err)
	}
	return c.Set(ctx, liveLocationKey(rideID), data, liveLocationTTL).Err()
}

// GetLiveLocation returns the cached position for a ride, or redis.Nil
// when nothing has been reported recently.
func (c *Client) GetLiveLocation(ctx context.Context, rideID string) (*models.GeoPoint, error) {
	data, err := c.Get(ctx, liveLocationKey(rideID)).Bytes()
	if err != nil {
		return nil, err
	}
	var point models.GeoPoint
	if err := json.Unmarshal(data, &point); err != nil {
		return nil, fmt.Errorf("unmarshal location: %w", err)
	}
	return &point, nil
}

// ClearLiveLocation drops the cached position once a ride ends.
func (c *Client) ClearLiveLocation(ctx context.Context, rideID string) error {
	return c.Del(ctx, liveLocationKey(rideID)).Err()
}
