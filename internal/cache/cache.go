// Package cache 按实例指纹保存已知最优结果
package cache

import (
	"context"
	"sync"

	"github.com/wavepick/wavepick/internal/repository"
)

// BestCache 已知最优结果缓存
type BestCache interface {
	// Offer 当记录优于已有结果时写入，返回是否写入
	Offer(ctx context.Context, key string, record *repository.RunRecord) (bool, error)
	// Get 返回已知最优结果，不存在时返回 nil
	Get(ctx context.Context, key string) (*repository.RunRecord, error)
}

// Better 判断 candidate 是否优于 current
// 只接受可行记录，目标值相同时保留旧记录
func Better(candidate, current *repository.RunRecord) bool {
	if candidate == nil || !candidate.Feasible {
		return false
	}
	if current == nil || !current.Feasible {
		return true
	}
	return candidate.Objective > current.Objective
}

// MemoryCache 进程内缓存
type MemoryCache struct {
	mu   sync.RWMutex
	best map[string]*repository.RunRecord
}

// NewMemoryCache 创建进程内缓存
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{best: make(map[string]*repository.RunRecord)}
}

// Offer 比较并写入
func (c *MemoryCache) Offer(_ context.Context, key string, record *repository.RunRecord) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !Better(record, c.best[key]) {
		return false, nil
	}
	cp := *record
	c.best[key] = &cp
	return true, nil
}

// Get 读取已知最优结果
func (c *MemoryCache) Get(_ context.Context, key string) (*repository.RunRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if r, ok := c.best[key]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}
