// 包 store: 转换审计数据访问层，记录每次批处理与每个文件的结果
package store

import (
	"context"
	"database/sql"
	"geojson2xml/internal/logger"
	"strconv"
	"strings"
	"time"
)

// Dialect：审计库类型；两者共用同一组语句，仅占位符不同
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Store: 数据库访问入口，持有连接池
type Store struct {
	db      *sql.DB
	dialect Dialect
}

func AttachDB(db *sql.DB, d Dialect) *Store { return &Store{db: db, dialect: d} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// BatchRecord: 一次批处理运行
type BatchRecord struct {
	RunID      string
	Dir        string
	Labels     int
	FilesTotal int
	FilesOK    int
	FilesFail  int
	StartedAt  time.Time
	FinishedAt time.Time
}

// FileRecord: 单个输入文件的转换结果；Status 为 converted 或 failed
type FileRecord struct {
	RunID       string
	File        string
	Output      string
	Status      string
	Stage       string
	Annotations int
	Regions     int
	Vertices    int
	Error       string
	ConvertedAt time.Time
}

func (s *Store) BeginBatch(ctx context.Context, b BatchRecord) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO _convert_batches(run_id, dir, files_total, started_at) VALUES(?, ?, ?, ?)`),
		b.RunID, b.Dir, b.FilesTotal, b.StartedAt.UTC())
	if err == nil {
		logger.L().Debug("audit_batch_begin", "run_id", b.RunID)
	}
	return err
}

func (s *Store) RecordFile(ctx context.Context, f FileRecord) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO _convert_files(run_id, file, output, status, stage, annotations, regions, vertices, error, converted_at)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		f.RunID, f.File, f.Output, f.Status, f.Stage, f.Annotations, f.Regions, f.Vertices, f.Error, f.ConvertedAt.UTC())
	return err
}

func (s *Store) FinishBatch(ctx context.Context, b BatchRecord) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`UPDATE _convert_batches SET labels=?, files_total=?, files_ok=?, files_failed=?, finished_at=? WHERE run_id=?`),
		b.Labels, b.FilesTotal, b.FilesOK, b.FilesFail, b.FinishedAt.UTC(), b.RunID)
	return err
}

// FileStatus: 查询某次运行中单个文件的状态，未记录返回空串
func (s *Store) FileStatus(ctx context.Context, runID, file string) (string, error) {
	var status string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT status FROM _convert_files WHERE run_id=? AND file=?`), runID, file).Scan(&status)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return status, err
}

// BatchCounts: 读取批次汇总计数
func (s *Store) BatchCounts(ctx context.Context, runID string) (ok, failed int, err error) {
	err = s.db.QueryRowContext(ctx, s.rebind(`SELECT files_ok, files_failed FROM _convert_batches WHERE run_id=?`), runID).Scan(&ok, &failed)
	return ok, failed, err
}

// rebind: 将 ? 占位符改写为 PostgreSQL 的 $n
// 约束：语句中不得出现字面量问号
func (s *Store) rebind(q string) string {
	if s.dialect != Postgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
