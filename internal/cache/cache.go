// cache реализует необязательный Redis-кэш активных refresh-дайджестов.
//
// Кэш — ускоритель проверки членства при обновлении access-токена; источником
// истины остаётся PostgreSQL. Любая ошибка кэша трактуется вызывающим как
// промах: сервис продолжает работу через хранилище.
package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Entry описывает данные, которые мы храним в Redis по дайджесту refresh-токена.
type Entry struct {
	UserID    uuid.UUID
	ExpiresAt time.Time
}

// RefreshCache — минимальный контракт кэша refresh-дайджестов.
type RefreshCache interface {
	// Get возвращает запись и признак её наличия в кэше.
	Get(ctx context.Context, hash string) (*Entry, bool, error)
	// Add сохраняет запись и привязывает дайджест к коллекции пользователя.
	Add(ctx context.Context, hash string, e *Entry) error
	// Remove удаляет один дайджест пользователя.
	Remove(ctx context.Context, userID uuid.UUID, hash string) error
	// RemoveAll удаляет все дайджесты пользователя (logout everywhere).
	RemoveAll(ctx context.Context, userID uuid.UUID) error
	// Close закрывает клиент Redis.
	Close() error
}

type redisCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCache создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "auth:rt:".
func NewRedisCache(redisURL, prefix string) (RefreshCache, error) {
	if prefix == "" {
		prefix = "auth:rt:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return &redisCache{rdb: rdb, prefix: prefix}, nil
}

// key — ключ записи по дайджесту; userKey — SET дайджестов пользователя
// (нужен, чтобы RemoveAll находил все ключи без SCAN).
func (c *redisCache) key(hash string) string          { return c.prefix + hash }
func (c *redisCache) userKey(userID uuid.UUID) string { return c.prefix + "u:" + userID.String() }

// Храним как Redis Hash с полями: uid, exp (unix).
func (c *redisCache) Get(ctx context.Context, hash string) (*Entry, bool, error) {
	m, err := c.rdb.HGetAll(ctx, c.key(hash)).Result()
	if err != nil {
		return nil, false, err
	}

	if len(m) == 0 {
		return nil, false, nil
	}

	uid, err := uuid.Parse(m["uid"])
	if err != nil {
		return nil, false, err
	}

	expUnix, err := strconv.ParseInt(m["exp"], 10, 64)
	if err != nil {
		return nil, false, err
	}

	return &Entry{
		UserID:    uid,
		ExpiresAt: time.Unix(expUnix, 0).UTC(),
	}, true, nil
}

func (c *redisCache) Add(ctx context.Context, hash string, e *Entry) error {
	ttl := time.Until(e.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	kv := map[string]string{
		"uid": e.UserID.String(),
		"exp": strconv.FormatInt(e.ExpiresAt.Unix(), 10),
	}

	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, c.key(hash), kv)
	pipe.Expire(ctx, c.key(hash), ttl)
	pipe.SAdd(ctx, c.userKey(e.UserID), hash)
	pipe.Expire(ctx, c.userKey(e.UserID), ttl)

	_, err := pipe.Exec(ctx)
	return err
}

func (c *redisCache) Remove(ctx context.Context, userID uuid.UUID, hash string) error {
	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, c.key(hash))
	pipe.SRem(ctx, c.userKey(userID), hash)

	_, err := pipe.Exec(ctx)
	return err
}

func (c *redisCache) RemoveAll(ctx context.Context, userID uuid.UUID) error {
	hashes, err := c.rdb.SMembers(ctx, c.userKey(userID)).Result()
	if err != nil {
		return err
	}

	pipe := c.rdb.TxPipeline()
	for _, h := range hashes {
		pipe.Del(ctx, c.key(h))
	}
	pipe.Del(ctx, c.userKey(userID))

	_, err = pipe.Exec(ctx)
	return err
}

func (c *redisCache) Close() error { return c.rdb.Close() }
