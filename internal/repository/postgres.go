package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/wavepick/wavepick/pkg/errors"
)

const runColumns = `id, dataset, fingerprint, constructive, refinement, seed,
	objective, items, aisle_count, orders, aisles, feasible, elapsed_ms, created_at`

// 允许排序的列
var sortable = map[string]bool{
	"created_at": true,
	"objective":  true,
	"elapsed_ms": true,
}

// PostgresSink 运行结果仓储，写入 wave_runs 表
type PostgresSink struct {
	db DB
}

// NewPostgresSink 创建 PostgreSQL 输出
func NewPostgresSink(db DB) *PostgresSink {
	return &PostgresSink{db: db}
}

// Save 插入一条运行记录
func (r *PostgresSink) Save(ctx context.Context, record *RunRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO wave_runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.ExecContext(ctx, query,
		record.ID, record.Dataset, record.Fingerprint, record.Constructive, record.Refinement, record.Seed,
		record.Objective, record.Items, record.AisleCount, pq.Array(toInt64(record.Orders)), pq.Array(toInt64(record.Aisles)),
		record.Feasible, record.Elapsed.Milliseconds(), record.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "保存运行记录失败").WithField("dataset", record.Dataset)
	}
	return nil
}

// GetByID 根据ID获取运行记录
func (r *PostgresSink) GetByID(ctx context.Context, id uuid.UUID) (*RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM wave_runs WHERE id = $1`
	rec, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.CodeNotFound, "运行记录不存在").WithField("id", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "查询运行记录失败")
	}
	return rec, nil
}

// Best 返回同一实例目标值最高的可行记录
func (r *PostgresSink) Best(ctx context.Context, fingerprint string) (*RunRecord, error) {
	records, err := r.List(ctx, ListFilter{
		Fingerprint:  fingerprint,
		FeasibleOnly: true,
		Limit:        1,
		OrderBy:      "objective",
		OrderDir:     "desc",
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New(errors.CodeNotFound, "实例没有可行记录").WithField("fingerprint", fingerprint)
	}
	return records[0], nil
}

// List 列出运行记录
func (r *PostgresSink) List(ctx context.Context, filter ListFilter) ([]*RunRecord, error) {
	query, args := buildListQuery(filter)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "查询运行记录列表失败")
	}
	defer rows.Close()

	var records []*RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取运行记录失败")
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取运行记录失败")
	}
	return records, nil
}

// buildListQuery 拼装列表查询，排序列只接受白名单
func buildListQuery(filter ListFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.Dataset != "" {
		conditions = append(conditions, fmt.Sprintf("dataset = $%d", argNum))
		args = append(args, filter.Dataset)
		argNum++
	}
	if filter.Fingerprint != "" {
		conditions = append(conditions, fmt.Sprintf("fingerprint = $%d", argNum))
		args = append(args, filter.Fingerprint)
		argNum++
	}
	if filter.FeasibleOnly {
		conditions = append(conditions, "feasible")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	orderBy := filter.OrderBy
	if !sortable[orderBy] {
		orderBy = "created_at"
	}
	orderDir := "DESC"
	if strings.EqualFold(filter.OrderDir, "asc") {
		orderDir = "ASC"
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	query := fmt.Sprintf(`SELECT %s FROM wave_runs %s ORDER BY %s %s, id LIMIT $%d OFFSET $%d`,
		runColumns, whereClause, orderBy, orderDir, argNum, argNum+1)
	args = append(args, limit, filter.Offset)
	return query, args
}

func scanRun(row Scanner) (*RunRecord, error) {
	var rec RunRecord
	var orders, aisles pq.Int64Array
	var elapsedMs int64
	err := row.Scan(
		&rec.ID, &rec.Dataset, &rec.Fingerprint, &rec.Constructive, &rec.Refinement, &rec.Seed,
		&rec.Objective, &rec.Items, &rec.AisleCount, &orders, &aisles,
		&rec.Feasible, &elapsedMs, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Orders = fromInt64(orders)
	rec.Aisles = fromInt64(aisles)
	rec.Elapsed = time.Duration(elapsedMs) * time.Millisecond
	return &rec, nil
}

func toInt64(ids []int) []int64 {
	out := make([]int64, len(ids))
	for i, v := range ids {
		out[i] = int64(v)
	}
	return out
}

func fromInt64(ids []int64) []int {
	out := make([]int, len(ids))
	for i, v := range ids {
		out[i] = int(v)
	}
	return out
}
