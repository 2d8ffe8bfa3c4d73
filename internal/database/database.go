// Package database 提供数据库连接和管理
package database

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq" // PostgreSQL 驱动

	"github.com/wavepick/wavepick/internal/config"
	"github.com/wavepick/wavepick/pkg/errors"
	"github.com/wavepick/wavepick/pkg/logger"
)

// slowQuery 超过该耗时的语句记录告警
const slowQuery = 100 * time.Millisecond

// schema 运行结果表
const schema = `
CREATE TABLE IF NOT EXISTS wave_runs (
	id           UUID PRIMARY KEY,
	dataset      TEXT NOT NULL,
	fingerprint  TEXT NOT NULL,
	constructive TEXT NOT NULL,
	refinement   TEXT NOT NULL,
	seed         BIGINT NOT NULL,
	objective    DOUBLE PRECISION NOT NULL,
	items        INTEGER NOT NULL,
	aisle_count  INTEGER NOT NULL,
	orders       INTEGER[] NOT NULL,
	aisles       INTEGER[] NOT NULL,
	feasible     BOOLEAN NOT NULL,
	elapsed_ms   BIGINT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_wave_runs_dataset ON wave_runs (dataset, objective DESC);
CREATE INDEX IF NOT EXISTS idx_wave_runs_fingerprint ON wave_runs (fingerprint, objective DESC);
`

// DB 数据库连接封装
type DB struct {
	*sql.DB
	cfg *config.DatabaseConfig
}

// New 创建新的数据库连接
func New(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "打开数据库连接失败")
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "数据库连接测试失败").
			WithField("host", cfg.Host)
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Name).
		Msg("数据库连接成功")

	return &DB{DB: db, cfg: cfg}, nil
}

// Migrate 创建运行结果表
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.DB.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "创建 wave_runs 表失败")
	}
	return nil
}

// Close 关闭数据库连接
func (db *DB) Close() error {
	if db.DB != nil {
		logger.Info().Msg("关闭数据库连接")
		return db.DB.Close()
	}
	return nil
}

// ExecContext 执行SQL语句，慢查询记录告警
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := db.DB.ExecContext(ctx, query, args...)
	logSlow(query, time.Since(start))
	return result, err
}

// QueryContext 执行查询
func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()
	rows, err := db.DB.QueryContext(ctx, query, args...)
	logSlow(query, time.Since(start))
	return rows, err
}

// QueryRowContext 执行单行查询
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return db.DB.QueryRowContext(ctx, query, args...)
}

func logSlow(query string, duration time.Duration) {
	if duration > slowQuery {
		logger.Warn().
			Str("query", truncateQuery(query)).
			Dur("duration", duration).
			Msg("慢SQL查询")
	}
}

// truncateQuery 截断长查询
func truncateQuery(query string) string {
	if len(query) > 200 {
		return query[:200] + "..."
	}
	return query
}
