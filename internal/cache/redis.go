package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/wavepick/wavepick/internal/config"
	"github.com/wavepick/wavepick/internal/repository"
	"github.com/wavepick/wavepick/pkg/errors"
	"github.com/wavepick/wavepick/pkg/logger"
)

// maxRetries 乐观锁冲突时的重试次数
const maxRetries = 5

// RedisCache 基于 Redis 的最优结果缓存
// 比较并写入通过 WATCH/MULTI 完成，多个进程可以同时提交
type RedisCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache 创建 Redis 缓存，连接延迟到第一次使用
func NewRedisCache(cfg *config.RedisConfig) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	return &RedisCache{rdb: rdb, prefix: cfg.Prefix, ttl: cfg.TTL}
}

// NewRedisCacheFromURL 通过 redis:// 地址创建缓存
func NewRedisCacheFromURL(url, prefix string, ttl time.Duration) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "Redis 地址无效")
	}
	return &RedisCache{rdb: redis.NewClient(opt), prefix: prefix, ttl: ttl}, nil
}

// Open 按配置创建 Redis 缓存，设置了 URL 时使用 URL
func Open(cfg *config.RedisConfig) (*RedisCache, error) {
	if cfg.URL != "" {
		return NewRedisCacheFromURL(cfg.URL, cfg.Prefix, cfg.TTL)
	}
	return NewRedisCache(cfg), nil
}

// Ping 检查连接
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, errors.CodeCacheError, "Redis 连接失败")
	}
	return nil
}

// Close 关闭连接
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

func (c *RedisCache) key(name string) string {
	return c.prefix + name
}

// Offer 比较并写入
func (c *RedisCache) Offer(ctx context.Context, key string, record *repository.RunRecord) (bool, error) {
	if !Better(record, nil) {
		return false, nil
	}
	data, err := json.Marshal(record)
	if err != nil {
		return false, errors.Wrap(err, errors.CodeInternal, "序列化运行记录失败")
	}

	k := c.key(key)
	for attempt := 0; attempt < maxRetries; attempt++ {
		improved := false
		err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
			current, err := readRecord(ctx, tx, k)
			if err != nil {
				return err
			}
			if !Better(record, current) {
				return nil
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, k, data, c.ttl)
				return nil
			})
			if err == nil {
				improved = true
			}
			return err
		}, k)

		if err == redis.TxFailedErr {
			logger.Debug().Str("key", k).Int("attempt", attempt+1).Msg("最优结果写入冲突，重试")
			continue
		}
		if err != nil {
			return false, errors.Wrap(err, errors.CodeCacheError, "写入最优结果失败").WithField("key", k)
		}
		return improved, nil
	}
	return false, errors.New(errors.CodeCacheError, "写入最优结果冲突次数过多").WithField("key", k)
}

// Get 读取已知最优结果
func (c *RedisCache) Get(ctx context.Context, key string) (*repository.RunRecord, error) {
	r, err := readRecord(ctx, c.rdb, c.key(key))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeCacheError, "读取最优结果失败").WithField("key", key)
	}
	return r, nil
}

// getter *redis.Client 与 *redis.Tx 共有的读接口
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// readRecord 读取并解码，键不存在时返回 nil
func readRecord(ctx context.Context, cmd getter, key string) (*repository.RunRecord, error) {
	data, err := cmd.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var r repository.RunRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
