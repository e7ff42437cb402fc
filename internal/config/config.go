// 包 config：批处理配置，来源依次为默认值、可选 YAML 文件、环境变量（含 .env）
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config：一次批处理运行所需的全部设置
type Config struct {
	Dir             string        `yaml:"dir"`
	InputExt        string        `yaml:"input_ext"`
	OutputExt       string        `yaml:"output_ext"`
	Workers         int           `yaml:"workers"`
	OnError         string        `yaml:"on_error"`
	LabelPolicy     string        `yaml:"label_policy"`
	ShapePolicy     string        `yaml:"shape_policy"`
	MetricsTextfile string        `yaml:"metrics_textfile"`
	AuditDriver     string        `yaml:"audit_driver"`
	AuditSQLitePath string        `yaml:"audit_sqlite_path"`
	LabelCache      bool          `yaml:"label_cache"`
	LabelCacheTTL   time.Duration `yaml:"label_cache_ttl"`
}

func Defaults() Config {
	return Config{
		InputExt:        ".geojson",
		OutputExt:       ".xml",
		Workers:         runtime.NumCPU(),
		OnError:         "continue",
		LabelPolicy:     "strict",
		ShapePolicy:     "skip",
		AuditDriver:     "none",
		AuditSQLitePath: "geojson2xml-audit.db",
		LabelCacheTTL:   24 * time.Hour,
	}
}

// 文档注释：加载配置
// 背景：与其他命令行工具一致，先读取 .env，再读环境变量；CONVERT_CONFIG 指向的 YAML 文件作为中间层。
// 约束：args 的第一个位置参数作为输入目录，优先于 GEOJSON_DIR；返回前执行 Validate。
func Load(args []string) (Config, error) {
	_ = godotenv.Load(".env")
	c := Defaults()
	if p := os.Getenv("CONVERT_CONFIG"); p != "" {
		if err := c.LoadFile(p); err != nil {
			return c, fmt.Errorf("load config file: %w", err)
		}
	}
	if err := c.applyEnv(); err != nil {
		return c, err
	}
	if len(args) > 0 && args[0] != "" {
		c.Dir = args[0]
	}
	return c, c.Validate()
}

// LoadFile：YAML 中出现的键覆盖当前值
func (c *Config) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, c)
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str("GEOJSON_DIR", &c.Dir)
	str("CONVERT_INPUT_EXT", &c.InputExt)
	str("CONVERT_OUTPUT_EXT", &c.OutputExt)
	str("CONVERT_ON_ERROR", &c.OnError)
	str("CONVERT_LABEL_POLICY", &c.LabelPolicy)
	str("CONVERT_SHAPE_POLICY", &c.ShapePolicy)
	str("METRICS_TEXTFILE", &c.MetricsTextfile)
	str("AUDIT_DRIVER", &c.AuditDriver)
	str("AUDIT_SQLITE_PATH", &c.AuditSQLitePath)
	if v := os.Getenv("CONVERT_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CONVERT_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v := os.Getenv("LABEL_CACHE"); v != "" {
		c.LabelCache = v == "true" || v == "1"
	}
	if v := os.Getenv("LABEL_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("LABEL_CACHE_TTL: %w", err)
		}
		c.LabelCacheTTL = d
	}
	return nil
}

// Validate：拒绝未知策略取值与非正并发数
func (c Config) Validate() error {
	var errs []error
	if c.Dir == "" {
		errs = append(errs, errors.New("input directory is required"))
	}
	if !strings.HasPrefix(c.InputExt, ".") || !strings.HasPrefix(c.OutputExt, ".") {
		errs = append(errs, fmt.Errorf("extensions must start with a dot: %q, %q", c.InputExt, c.OutputExt))
	} else if c.InputExt == c.OutputExt {
		errs = append(errs, fmt.Errorf("input and output extension are both %q", c.InputExt))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	errs = append(errs,
		oneOf("on_error", c.OnError, "continue", "abort"),
		oneOf("label_policy", c.LabelPolicy, "strict", "lenient"),
		oneOf("shape_policy", c.ShapePolicy, "skip", "fail"),
		oneOf("audit_driver", c.AuditDriver, "none", "postgres", "sqlite"),
	)
	if c.LabelCache && c.LabelCacheTTL < 0 {
		errs = append(errs, fmt.Errorf("label_cache_ttl must not be negative, got %s", c.LabelCacheTTL))
	}
	return errors.Join(errs...)
}

func oneOf(key, v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("%s: %q is not one of %s", key, v, strings.Join(allowed, "|"))
}
