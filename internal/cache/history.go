package cache

import (
	"context"
	"sync"

	"github.com/wavepick/wavepick/internal/repository"
	"github.com/wavepick/wavepick/pkg/errors"
	"github.com/wavepick/wavepick/pkg/logger"
)

// History 已保存的运行记录，按实例指纹取最优
type History interface {
	Best(ctx context.Context, fingerprint string) (*repository.RunRecord, error)
}

// HistoryCache 内层缓存没有某个实例时，先用历史最优回填
type HistoryCache struct {
	inner   BestCache
	history History

	mu     sync.Mutex
	loaded map[string]bool
}

// WithHistory 为缓存加上历史回填
func WithHistory(inner BestCache, history History) *HistoryCache {
	return &HistoryCache{inner: inner, history: history, loaded: make(map[string]bool)}
}

// Offer 回填后比较并写入，回填失败只记录日志
func (c *HistoryCache) Offer(ctx context.Context, key string, record *repository.RunRecord) (bool, error) {
	if err := c.load(ctx, key); err != nil {
		logger.WithContext(ctx).Warn().Err(err).Str("fingerprint", key).Msg("回填历史最优失败")
	}
	return c.inner.Offer(ctx, key, record)
}

// Get 回填后读取
func (c *HistoryCache) Get(ctx context.Context, key string) (*repository.RunRecord, error) {
	if err := c.load(ctx, key); err != nil {
		return nil, err
	}
	return c.inner.Get(ctx, key)
}

// load 每个键最多成功回填一次
func (c *HistoryCache) load(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded[key] {
		return nil
	}

	current, err := c.inner.Get(ctx, key)
	if err != nil {
		return err
	}
	if current == nil {
		best, err := c.history.Best(ctx, key)
		switch {
		case errors.Is(err, errors.CodeNotFound):
		case err != nil:
			return err
		default:
			if _, err := c.inner.Offer(ctx, key, best); err != nil {
				return err
			}
		}
	}
	c.loaded[key] = true
	return nil
}
