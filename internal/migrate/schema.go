package migrate

import (
	"database/sql"
	"geojson2xml/internal/logger"
	"geojson2xml/internal/store"
	"strings"
)

// 背景：首次运行自动创建审计表，PostgreSQL 与 SQLite 共用同一份结构
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；时间列在 PostgreSQL 上使用带时区类型
func EnsureSchema(db *sql.DB, d store.Dialect) error {
	ts := "TIMESTAMP"
	if d == store.Postgres {
		ts = "TIMESTAMPTZ"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS _convert_batches (
            run_id TEXT PRIMARY KEY,
            dir TEXT NOT NULL,
            labels INTEGER NOT NULL DEFAULT 0,
            files_total INTEGER NOT NULL DEFAULT 0,
            files_ok INTEGER NOT NULL DEFAULT 0,
            files_failed INTEGER NOT NULL DEFAULT 0,
            started_at {ts} NOT NULL,
            finished_at {ts}
        )`,
		`CREATE TABLE IF NOT EXISTS _convert_files (
            run_id TEXT NOT NULL,
            file TEXT NOT NULL,
            output TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL,
            stage TEXT NOT NULL DEFAULT '',
            annotations INTEGER NOT NULL DEFAULT 0,
            regions INTEGER NOT NULL DEFAULT 0,
            vertices INTEGER NOT NULL DEFAULT 0,
            error TEXT NOT NULL DEFAULT '',
            converted_at {ts} NOT NULL,
            PRIMARY KEY (run_id, file)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_convert_files_status ON _convert_files(status)`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i, "dialect", string(d))
		if _, err := db.Exec(strings.ReplaceAll(s, "{ts}", ts)); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
