package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/decrement_stock.lua
var decrementStockScript string

type Client struct {
	rdb             *redis.Client
	decrementScript *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:             rdb,
		decrementScript: redis.NewScript(decrementStockScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func stockKey(productID int64) string {
	return fmt.Sprintf("stock:%d", productID)
}

// InitStock seeds the mirrored stock level for a product
func (c *Client) InitStock(ctx context.Context, productID int64, stock int) error {
	return c.rdb.Set(ctx, stockKey(productID), stock, 0).Err()
}

// DecrementStock atomically decrements the mirrored stock level using a
// Lua script. Returns the new level, or false when the mirror has no
// entry for the product.
func (c *Client) DecrementStock(ctx context.Context, productID int64, quantity int) (int, bool, error) {
	result, err := c.decrementScript.Run(ctx, c.rdb, []string{stockKey(productID)}, quantity).Result()
	if err != nil {
		return 0, false, fmt.Errorf("decrement stock script failed: %w", err)
	}

	newStock, ok := result.(int64)
	if !ok {
		return 0, false, fmt.Errorf("unexpected script result type")
	}
	if newStock == -1 {
		return 0, false, nil
	}

	return int(newStock), true, nil
}

// GetStock retrieves the mirrored stock level for a product
func (c *Client) GetStock(ctx context.Context, productID int64) (int, error) {
	stock, err := c.rdb.Get(ctx, stockKey(productID)).Int()
	if err == redis.Nil {
		return 0, fmt.Errorf("stock mirror not found for product %d", productID)
	}
	return stock, err
}

// SetConfirmResult caches the committed order id for a remote order so
// duplicate confirmations can be answered without a database read.
func (c *Client) SetConfirmResult(ctx context.Context, remoteOrderID string, orderID int64, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("confirm:%s", remoteOrderID), orderID, ttl).Err()
}

// GetConfirmResult returns the cached order id for a remote order.
// The second return value is false on a cache miss.
func (c *Client) GetConfirmResult(ctx context.Context, remoteOrderID string) (int64, bool, error) {
	orderID, err := c.rdb.Get(ctx, fmt.Sprintf("confirm:%s", remoteOrderID)).Int64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return orderID, true, nil
}
