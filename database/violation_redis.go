package database

import (
	"context"
	"fmt"
	"strings"

	"discord-automod/models"

	"github.com/redis/go-redis/v9"
)

var redisViolationPrefix = "automod:violation:"

const (
	fieldStrikes = "strike_timestamps"
	fieldTerms   = "warned_terms"
)

// RedisStore keeps each violation record in a hash
// automod:violation:{guild}:{user}.
type RedisStore struct {
	Client *redis.Client
}

func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{Client: rdb}, nil
}

func (s *RedisStore) Driver() string { return DriverRedis }

func redisKey(key Key) string {
	return redisViolationPrefix + key.GuildID + ":" + key.UserID
}

func (s *RedisStore) Load(ctx context.Context, key Key) (models.ViolationRecord, bool, error) {
	vals, err := s.Client.HGetAll(ctx, redisKey(key)).Result()
	if err != nil {
		return models.ViolationRecord{}, false, fmt.Errorf("failed to load violations of %s: %w", key, err)
	}
	if len(vals) == 0 {
		return models.ViolationRecord{}, false, nil
	}

	rec, err := decodeRecord(vals[fieldStrikes], vals[fieldTerms])
	if err != nil {
		return models.ViolationRecord{}, false, fmt.Errorf("corrupt violations hash %s: %w", key, err)
	}
	return rec, true, nil
}

func (s *RedisStore) Save(ctx context.Context, key Key, rec models.ViolationRecord) error {
	strikes, terms, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	if err := s.Client.HSet(ctx, redisKey(key), fieldStrikes, strikes, fieldTerms, terms).Err(); err != nil {
		return fmt.Errorf("failed to save violations of %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Keys(ctx context.Context) ([]Key, error) {
	var keys []Key
	iter := s.Client.Scan(ctx, 0, redisViolationPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		rest := strings.TrimPrefix(iter.Val(), redisViolationPrefix)
		guildID, userID, ok := strings.Cut(rest, ":")
		if !ok {
			continue
		}
		keys = append(keys, Key{GuildID: guildID, UserID: userID})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list violation keys: %w", err)
	}
	return keys, nil
}

func (s *RedisStore) Close() error {
	return s.Client.Close()
}
