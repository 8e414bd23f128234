package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ActiveCharge is the hot-path view of a running transaction kept in redis
// for external consumers (dashboards, billing) to read without hitting
// Postgres.
type ActiveCharge struct {
	TransactionID int64  `json:"transaction_id"`
	SessionID     string `json:"session_id"`
	StationID     string `json:"station_id"`
	ConnectorID   int    `json:"connector_id"`
	IDTag         string `json:"id_tag"`
	MeterStart    int64  `json:"meter_start"`
}

// ActiveChargeCache caches in-progress charges keyed by transaction id.
type ActiveChargeCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewActiveChargeCache returns redis-backed cache.
func NewActiveChargeCache(client *redis.Client, ttl time.Duration) *ActiveChargeCache {
	return &ActiveChargeCache{client: client, ttl: ttl}
}

func (c *ActiveChargeCache) key(transactionID int64) string {
	return fmt.Sprintf("charges:active:%d", transactionID)
}

// Save caches a running charge.
func (c *ActiveChargeCache) Save(ctx context.Context, charge ActiveCharge) error {
	data, err := json.Marshal(charge)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(charge.TransactionID), data, c.ttl).Err()
}

// Get returns the cached charge, or nil when absent.
func (c *ActiveChargeCache) Get(ctx context.Context, transactionID int64) (*ActiveCharge, error) {
	result, err := c.client.Get(ctx, c.key(transactionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var charge ActiveCharge
	if err := json.Unmarshal([]byte(result), &charge); err != nil {
		return nil, err
	}
	return &charge, nil
}

// Delete evicts a finished charge.
func (c *ActiveChargeCache) Delete(ctx context.Context, transactionID int64) error {
	return c.client.Del(ctx, c.key(transactionID)).Err()
}
