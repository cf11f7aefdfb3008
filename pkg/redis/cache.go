package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache provides typed caching utilities
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

func (c *Cache) key(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a cached value
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, found, err := c.GetRaw(ctx, key)
	if err != nil || !found {
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// GetRaw retrieves the stored bytes as-is
func (c *Cache) GetRaw(ctx context.Context, key string) ([]byte, bool, error) {
	if !c.client.Enabled() {
		return nil, false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get failed: %w", err)
	}

	return data, true, nil
}

// Set stores a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return c.SetRaw(ctx, key, data, ttl)
}

// SetRaw stores already-encoded bytes with TTL
func (c *Cache) SetRaw(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}
	return c.client.Redis().Set(ctx, c.key(key), data, ttl).Err()
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.client.Enabled() {
		return nil
	}
	return c.client.Redis().Del(ctx, c.key(key)).Err()
}

// GetOrSet retrieves from cache or calls fn to populate it
func (c *Cache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, fn func() (interface{}, error)) error {
	// 캐시 읽기 실패는 miss 로 처리
	if found, err := c.Get(ctx, key, dest); err == nil && found {
		return nil
	}

	value, err := fn()
	if err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	// 캐시 저장 실패는 결과 반환을 막지 않음
	_ = c.SetRaw(ctx, key, data, ttl)

	return json.Unmarshal(data, dest)
}

// Predefined TTLs
const (
	TTLShort  = 1 * time.Minute  // 헬스/상태
	TTLMedium = 10 * time.Minute // 장중 재계산
	TTLLong   = 6 * time.Hour    // 장 마감 후 리포트
	TTLDaily  = 24 * time.Hour   // 일봉 히스토리
)

// ReportKey identifies a forecast report for a symbol and model config
func ReportKey(symbol, configHash string) string {
	return fmt.Sprintf("report:%s:%s", normalizeSymbol(symbol), configHash)
}

// HistoryKey identifies a cached daily history range
func HistoryKey(symbol, from, to string) string {
	return fmt.Sprintf("history:%s:%s:%s", normalizeSymbol(symbol), from, to)
}

// normalizeSymbol strips the index caret so keys stay shell-friendly
func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimPrefix(symbol, "^"))
}
