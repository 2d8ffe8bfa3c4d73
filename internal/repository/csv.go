package repository

import (
	"context"
	"encoding/csv"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/wavepick/wavepick/pkg/errors"
)

// csvHeader 结果文件表头
var csvHeader = []string{
	"id", "dataset", "constructive", "refinement", "seed", "objective",
	"items", "aisle_count", "orders", "aisles", "feasible", "elapsed_ms", "created_at",
}

// CSVSink 每次运行向文件追加一行
type CSVSink struct {
	path string
	mu   sync.Mutex
}

// NewCSVSink 创建 CSV 输出
func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

// Save 追加一行，文件为空时先写表头
func (s *CSVSink) Save(_ context.Context, record *RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "打开结果文件失败").WithField("path", s.path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "读取结果文件失败").WithField("path", s.path)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			return errors.Wrap(err, errors.CodeInternal, "写入表头失败")
		}
	}
	if err := w.Write(csvRow(record)); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "写入运行记录失败")
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "写入运行记录失败")
	}
	return nil
}

func csvRow(r *RunRecord) []string {
	return []string{
		r.ID.String(),
		r.Dataset,
		r.Constructive,
		r.Refinement,
		strconv.FormatInt(r.Seed, 10),
		strconv.FormatFloat(r.Objective, 'f', 6, 64),
		strconv.Itoa(r.Items),
		strconv.Itoa(r.AisleCount),
		joinIDs(r.Orders),
		joinIDs(r.Aisles),
		strconv.FormatBool(r.Feasible),
		strconv.FormatInt(r.Elapsed.Milliseconds(), 10),
		r.CreatedAt.Format(time.RFC3339),
	}
}

// joinIDs 编号以空格分隔
func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, " ")
}
