package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"tradeflow/internal/domain"
)

// keyCart holds one hash per user: field productId, value the JSON CartItem.
const keyCart = "cart:%s"

type RedisStore struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewRedisStore returns a cart store whose keys expire ttl after the last edit.
func NewRedisStore(client *goredis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func cartKey(userID string) string {
	return fmt.Sprintf(keyCart, userID)
}

func (s *RedisStore) Get(ctx context.Context, userID string) ([]domain.CartItem, error) {
	fields, err := s.client.HGetAll(ctx, cartKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading cart of user %s: %w", userID, err)
	}

	items := make([]domain.CartItem, 0, len(fields))
	for field, raw := range fields {
		var item domain.CartItem
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, fmt.Errorf("decoding cart field %s: %w", field, err)
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
	return items, nil
}

// Find returns the cart line for productID, or nil when the cart has none.
func (s *RedisStore) Find(ctx context.Context, userID string, productID int) (*domain.CartItem, error) {
	raw, err := s.client.HGet(ctx, cartKey(userID), strconv.Itoa(productID)).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cart line %d: %w", productID, err)
	}

	var item domain.CartItem
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return nil, fmt.Errorf("decoding cart line %d: %w", productID, err)
	}
	return &item, nil
}

func (s *RedisStore) Put(ctx context.Context, userID string, item domain.CartItem) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encoding cart line %d: %w", item.ProductID, err)
	}

	key := cartKey(userID)
	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, key, strconv.Itoa(item.ProductID), raw)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing cart line %d: %w", item.ProductID, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, userID string, productID int) error {
	if err := s.client.HDel(ctx, cartKey(userID), strconv.Itoa(productID)).Err(); err != nil {
		return fmt.Errorf("deleting cart line %d: %w", productID, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("clearing cart of user %s: %w", userID, err)
	}
	return nil
}
