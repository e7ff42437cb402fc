package main

import (
	"bufio"
	"context"
	"geojson2xml/internal/batch"
	"geojson2xml/internal/config"
	"geojson2xml/internal/labelcache"
	"geojson2xml/internal/logger"
	"os"

	"github.com/joho/godotenv"
)

// 文档注释：只执行第一遍扫描，按转换时使用的顺序逐行输出全局标签
// 背景：用于在转换前核对批次中的标签集合，不写出任何 XML；发现、缓存与标签策略与 geojson2xml 相同。
// 约束：严格模式下有文件失败时不输出标签；宽松模式下输出其余文件的标签。两种情况退出码均为 2。
func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		l.Error("config_error", "err", err)
		os.Exit(1)
	}
	ctx := context.Background()
	r := &batch.Runner{
		Options: batch.Options{InputExt: cfg.InputExt, LabelPolicy: batch.LabelPolicy(cfg.LabelPolicy)},
		Logger:  l,
	}
	if cfg.LabelCache {
		c, rc, err := labelcache.Open(ctx, cfg.LabelCacheTTL)
		if err != nil {
			l.Warn("redis_ping_error", "err", err)
		} else {
			defer rc.Close()
			r.Cache = c
		}
	}

	res, err := r.Scan(ctx, cfg.Dir)
	if res == nil {
		l.Error("list_error", "dir", cfg.Dir, "err", err)
		os.Exit(1)
	}
	if batch.IsLabelScanFailure(err) {
		os.Exit(2)
	}
	w := bufio.NewWriter(os.Stdout)
	for _, name := range res.Labels {
		_, _ = w.WriteString(name + "\n")
	}
	_ = w.Flush()
	if err != nil {
		os.Exit(2)
	}
}
