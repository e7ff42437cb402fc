// 程序入口：读取配置、初始化可选的审计库与标签缓存，然后对输入目录执行一次批量转换
package main

import (
	"context"
	"database/sql"
	"geojson2xml/internal/batch"
	"geojson2xml/internal/config"
	"geojson2xml/internal/imagescope"
	"geojson2xml/internal/labelcache"
	"geojson2xml/internal/logger"
	"geojson2xml/internal/metrics"
	"geojson2xml/internal/migrate"
	"geojson2xml/internal/notify"
	"geojson2xml/internal/store"
	"geojson2xml/internal/utils"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

// 退出码：1 配置或初始化失败；2 批次中有文件转换失败
const (
	exitConfig = 1
	exitFailed = 2
)

func main() { os.Exit(run()) }

func run() int {
	_ = godotenv.Load(".env")
	l := logger.Setup()
	l.Debug("log_init_ok")

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		l.Error("config_error", "err", err)
		return exitConfig
	}
	l.Debug("config_ok", "dir", cfg.Dir, "workers", cfg.Workers, "on_error", cfg.OnError,
		"label_policy", cfg.LabelPolicy, "shape_policy", cfg.ShapePolicy, "audit", cfg.AuditDriver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := &batch.Runner{
		Options: batch.Options{
			InputExt:    cfg.InputExt,
			OutputExt:   cfg.OutputExt,
			Workers:     cfg.Workers,
			ErrorPolicy: batch.ErrorPolicy(cfg.OnError),
			LabelPolicy: batch.LabelPolicy(cfg.LabelPolicy),
			ShapePolicy: imagescope.ShapePolicy(cfg.ShapePolicy),
		},
		Logger:   l,
		Notifier: notify.New(os.Stdout),
	}

	st, err := openAudit(l, cfg)
	if err != nil {
		l.Error("audit_open_error", "driver", cfg.AuditDriver, "err", err)
		return exitConfig
	}
	if st != nil {
		defer st.Close()
		r.Recorder = st
	}

	if cfg.LabelCache {
		c, rc, err := labelcache.Open(ctx, cfg.LabelCacheTTL)
		if err != nil {
			l.Warn("redis_ping_error", "err", err)
		} else {
			l.Info("redis_ping_ok")
			defer rc.Close()
			r.Cache = c
		}
	}

	sum, err := r.Run(ctx, cfg.Dir)
	if sum == nil {
		l.Error("batch_error", "dir", cfg.Dir, "err", err)
		return exitConfig
	}
	if werr := metrics.WriteTextfile(cfg.MetricsTextfile); werr != nil {
		l.Warn("metrics_textfile_error", "path", cfg.MetricsTextfile, "err", werr)
	}
	if err != nil {
		if batch.IsLabelScanFailure(err) {
			l.Error("batch_not_written", "reason", "label_scan_failed", "failed", len(sum.Failed))
		}
		return exitFailed
	}
	return 0
}

// openAudit：按驱动打开审计库并确保表结构；driver 为 none 时返回 nil
func openAudit(l *slog.Logger, cfg config.Config) (*store.Store, error) {
	var (
		db  *sql.DB
		d   store.Dialect
		err error
	)
	switch cfg.AuditDriver {
	case "postgres":
		db, err = utils.OpenPostgresFromEnv()
		d = store.Postgres
	case "sqlite":
		db, err = utils.OpenSQLite(cfg.AuditSQLitePath)
		d = store.SQLite
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	l.Info("db_open_ok", "driver", cfg.AuditDriver)
	if err := migrate.EnsureSchema(db, d); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store.AttachDB(db, d), nil
}
