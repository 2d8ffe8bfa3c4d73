// Package repository 提供运行结果的持久化
package repository

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/wavepick/wavepick/pkg/wave"
)

// RunRecord 一次求解运行的结果
type RunRecord struct {
	ID           uuid.UUID     `json:"id"`
	Dataset      string        `json:"dataset"`
	Fingerprint  string        `json:"fingerprint"`
	Constructive string        `json:"constructive"`
	Refinement   string        `json:"refinement"`
	Seed         int64         `json:"seed"`
	Objective    float64       `json:"objective"`
	Items        int           `json:"items"`
	AisleCount   int           `json:"aisle_count"`
	Orders       []int         `json:"orders"`
	Aisles       []int         `json:"aisles"`
	Feasible     bool          `json:"feasible"`
	Elapsed      time.Duration `json:"elapsed"`
	CreatedAt    time.Time     `json:"created_at"`
}

// NewRunRecord 从解生成运行记录
func NewRunRecord(dataset, constructive, refinement string, seed int64, s *wave.Solution) *RunRecord {
	return &RunRecord{
		ID:           uuid.New(),
		Dataset:      dataset,
		Fingerprint:  s.Problem().Fingerprint(),
		Constructive: constructive,
		Refinement:   refinement,
		Seed:         seed,
		Objective:    s.Objective,
		Items:        s.ItemTotal,
		AisleCount:   s.AisleTotal,
		Orders:       sortedIDs(s.Orders),
		Aisles:       sortedIDs(s.Aisles),
		Feasible:     s.Feasible,
		Elapsed:      s.Elapsed,
		CreatedAt:    time.Now().UTC(),
	}
}

func sortedIDs(ids []int) []int {
	out := append([]int(nil), ids...)
	sort.Ints(out)
	return out
}

// Sink 运行结果输出
type Sink interface {
	Save(ctx context.Context, record *RunRecord) error
}

// MultiSink 依次写入多个输出，返回第一个错误
type MultiSink []Sink

// Save 写入全部输出
func (m MultiSink) Save(ctx context.Context, record *RunRecord) error {
	var first error
	for _, s := range m {
		if err := s.Save(ctx, record); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ListFilter 列表查询过滤器
type ListFilter struct {
	Dataset      string `json:"dataset,omitempty"`
	Fingerprint  string `json:"fingerprint,omitempty"`
	FeasibleOnly bool   `json:"feasible_only,omitempty"`
	Offset       int    `json:"offset"`
	Limit        int    `json:"limit"`
	OrderBy      string `json:"order_by,omitempty"`
	OrderDir     string `json:"order_dir,omitempty"` // asc/desc
}

// DefaultListFilter 返回默认过滤器
func DefaultListFilter() ListFilter {
	return ListFilter{
		Offset:   0,
		Limit:    20,
		OrderBy:  "created_at",
		OrderDir: "desc",
	}
}

// WithDataset 设置数据集过滤
func (f ListFilter) WithDataset(dataset string) ListFilter {
	f.Dataset = dataset
	return f
}

// WithLimit 设置限制
func (f ListFilter) WithLimit(limit int) ListFilter {
	f.Limit = limit
	return f
}

// DB 数据库接口
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Scanner 行扫描接口
type Scanner interface {
	Scan(dest ...interface{}) error
}
