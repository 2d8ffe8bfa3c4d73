package repository

import (
	"context"
	"sync"
)

// MemorySink 内存输出，按写入顺序保存记录
type MemorySink struct {
	mu      sync.Mutex
	records []*RunRecord
}

// NewMemorySink 创建内存输出
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Save 保存记录副本
func (m *MemorySink) Save(_ context.Context, record *RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *record
	cp.Orders = append([]int(nil), record.Orders...)
	cp.Aisles = append([]int(nil), record.Aisles...)
	m.records = append(m.records, &cp)
	return nil
}

// Records 返回已保存的记录
func (m *MemorySink) Records() []*RunRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*RunRecord(nil), m.records...)
}
