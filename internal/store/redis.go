package store

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient creates and pings a Redis client with optional password auth.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return rdb, nil
}

// KVStore is the durable per-user key-value surface: dark-mode flag,
// wallet-connected sentinel, recent-search history. Best-effort preference
// storage; callers tolerate failures.
type KVStore struct {
	rdb *redis.Client
}

func NewKVStore(rdb *redis.Client) *KVStore {
	return &KVStore{rdb: rdb}
}

func (s *KVStore) SetDarkMode(ctx context.Context, userID string, on bool) error {
	val := "0"
	if on {
		val = "1"
	}
	return s.rdb.Set(ctx, "prefs:"+userID+":dark_mode", val, 0).Err()
}

func (s *KVStore) DarkMode(ctx context.Context, userID string) (bool, error) {
	val, err := s.rdb.Get(ctx, "prefs:"+userID+":dark_mode").Result()
	if err == redis.Nil {
		return false, nil
	}
	return val == "1", err
}

// SetWalletConnected records (or clears) the wallet-was-connected sentinel
// used to offer reconnection on the next visit.
func (s *KVStore) SetWalletConnected(ctx context.Context, userID string, connected bool) error {
	key := "prefs:" + userID + ":wallet_connected"
	if !connected {
		return s.rdb.Del(ctx, key).Err()
	}
	return s.rdb.Set(ctx, key, "1", 0).Err()
}

func (s *KVStore) WalletConnected(ctx context.Context, userID string) (bool, error) {
	val, err := s.rdb.Get(ctx, "prefs:"+userID+":wallet_connected").Result()
	if err == redis.Nil {
		return false, nil
	}
	return val == "1", err
}

// PushRecentSearch prepends query to the user's recent-search list, dropping
// any earlier occurrence and trimming the list to max entries.
func (s *KVStore) PushRecentSearch(ctx context.Context, userID, query string, max int64) error {
	key := "recent:" + userID
	pipe := s.rdb.TxPipeline()
	pipe.LRem(ctx, key, 0, query)
	pipe.LPush(ctx, key, query)
	pipe.LTrim(ctx, key, 0, max-1)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *KVStore) RecentSearches(ctx context.Context, userID string) ([]string, error) {
	return s.rdb.LRange(ctx, "recent:"+userID, 0, -1).Result()
}
