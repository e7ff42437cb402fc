// 包 batch：目录级批处理，先扫描全部文件构建 LabelOrder，再逐文件并发转换
package batch

import (
	"context"
	"errors"
	"fmt"
	"geojson2xml/internal/geojson"
	"geojson2xml/internal/imagescope"
	"geojson2xml/internal/labels"
	"geojson2xml/internal/logger"
	"geojson2xml/internal/metrics"
	"geojson2xml/internal/store"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// ErrorPolicy：单个文件转换失败时批次的走向
type ErrorPolicy string

const (
	ErrorContinue ErrorPolicy = "continue"
	ErrorAbort    ErrorPolicy = "abort"
)

// LabelPolicy：标签扫描阶段遇到无法解析的文件时的处理方式
type LabelPolicy string

const (
	LabelStrict  LabelPolicy = "strict"
	LabelLenient LabelPolicy = "lenient"
)

type Options struct {
	InputExt    string
	OutputExt   string
	Workers     int
	ErrorPolicy ErrorPolicy
	LabelPolicy LabelPolicy
	ShapePolicy imagescope.ShapePolicy
}

// Notifier：逐文件完成提示
type Notifier interface {
	LabelsFound(n int)
	Saved(path string)
	Failed(path string, err error)
}

// Recorder：审计写入；*store.Store 满足
type Recorder interface {
	BeginBatch(ctx context.Context, b store.BatchRecord) error
	RecordFile(ctx context.Context, f store.FileRecord) error
	FinishBatch(ctx context.Context, b store.BatchRecord) error
}

// LabelCache：按批次指纹缓存 LabelOrder；*labelcache.Cache 满足
type LabelCache interface {
	Get(ctx context.Context, fingerprint string) (labels.LabelOrder, bool, error)
	Put(ctx context.Context, fingerprint string, order labels.LabelOrder) error
}

// Runner：Notifier / Recorder / Cache 均可为空
type Runner struct {
	Options  Options
	Logger   *slog.Logger
	Notifier Notifier
	Recorder Recorder
	Cache    LabelCache
}

// Result：一个成功转换的文件
type Result struct {
	Path   string
	Output string
	Stats  imagescope.Stats
}

type Summary struct {
	RunID     string
	Dir       string
	Labels    labels.LabelOrder
	Files     int
	Converted []Result
	Failed    []*FileError
	Skipped   []string
	Duration  time.Duration
}

// ScanResult：第一遍扫描的结果
type ScanResult struct {
	Labels labels.LabelOrder
	// Inputs：扫描成功、进入第二遍的文件
	Inputs []Input
	// Failed：发现或解码失败的文件
	Failed []*FileError
	Cached bool
}

// Files：参与扫描的文件总数
func (s *ScanResult) Files() int { return len(s.Inputs) + len(s.Failed) }

// Err：按标签策略给出扫描结论；严格模式下有失败即包装 ErrLabelScan
func (s *ScanResult) Err(p LabelPolicy) error {
	if len(s.Failed) == 0 {
		return nil
	}
	if p == LabelLenient {
		return combine(s.Failed)
	}
	return fmt.Errorf("%w: %w", ErrLabelScan, combine(s.Failed))
}

// Scan：只执行第一遍扫描，不写出任何文件；与 Run 使用同一套发现、缓存与标签策略
func (r *Runner) Scan(ctx context.Context, dir string) (*ScanResult, error) {
	opts := r.options()
	l := r.logger()
	inputs, bad, err := Discover(dir, opts.InputExt)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	res := r.scan(ctx, l, opts, inputs, bad)
	for _, fe := range res.Failed {
		logFailure(l, fe)
	}
	l.Info("label_scan_done", "dir", dir, "files", res.Files(), "failed", len(res.Failed),
		"labels", len(res.Labels), "cached", res.Cached)
	return res, res.Err(opts.LabelPolicy)
}

// 文档注释：执行一次批处理
// 背景：第一遍扫描所有输入得到全局标签顺序，第二遍把同一份只读顺序传入每个文件的转换，保证同名标签在所有输出中的序号与位置一致。
// 约束：
//   - 严格模式下任一文件在发现或扫描阶段失败则整批不写出，返回 ErrLabelScan；宽松模式下剔除失败文件继续；
//   - 每个文件在内存中完整渲染后才落盘，失败不留下半截输出；
//   - abort 策略在首个失败后取消尚未开始的转换，未执行的文件记入 Skipped；
//   - 返回的 error 为全部 FileError 的聚合，Summary 始终非空（目录不可读时除外）。
func (r *Runner) Run(ctx context.Context, dir string) (*Summary, error) {
	start := time.Now()
	opts := r.options()
	sum := &Summary{RunID: ulid.Make().String(), Dir: dir}
	l := r.logger().With("run_id", sum.RunID)

	inputs, bad, err := Discover(dir, opts.InputExt)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	sum.Files = len(inputs) + len(bad)
	l.Info("batch_begin", "dir", dir, "files", sum.Files, "workers", opts.Workers)
	r.audit(ctx, l, func(rec Recorder) error {
		return rec.BeginBatch(ctx, store.BatchRecord{RunID: sum.RunID, Dir: dir, FilesTotal: sum.Files, StartedAt: start})
	})

	res := r.scan(ctx, l, opts, inputs, bad)
	for _, fe := range res.Failed {
		r.fail(ctx, l, sum, fe)
	}
	if err := res.Err(opts.LabelPolicy); IsLabelScanFailure(err) {
		sum.Duration = time.Since(start)
		r.finish(ctx, l, sum)
		return sum, err
	}
	sum.Labels = res.Labels
	metrics.BatchLabels.Set(float64(len(res.Labels)))
	if r.Notifier != nil {
		r.Notifier.LabelsFound(len(res.Labels))
	}
	l.Info("labels_ready", "labels", len(res.Labels), "cached", res.Cached)

	r.convertAll(ctx, l, opts, sum, res.Inputs, res.Labels)

	sum.Duration = time.Since(start)
	r.finish(ctx, l, sum)
	return sum, combine(sum.Failed)
}

// scan：第一遍扫描；命中缓存时跳过解码。bad 为发现阶段已失败的条目，有失败的扫描不写入缓存
func (r *Runner) scan(ctx context.Context, l *slog.Logger, opts Options, inputs []Input, bad []*FileError) *ScanResult {
	res := &ScanResult{Failed: append([]*FileError(nil), bad...)}
	var fp string
	if r.Cache != nil {
		fp = fingerprint(opts.InputExt, inputs)
		order, ok, err := r.Cache.Get(ctx, fp)
		switch {
		case err != nil:
			metrics.LabelCacheTotal.WithLabelValues("error").Inc()
			l.Warn("label_cache_get_error", "err", err)
		case ok && order.Valid():
			metrics.LabelCacheTotal.WithLabelValues("hit").Inc()
			l.Info("label_cache_hit", "fingerprint", fp, "labels", len(order))
			res.Labels, res.Inputs, res.Cached = order, inputs, true
			return res
		default:
			metrics.LabelCacheTotal.WithLabelValues("miss").Inc()
		}
	}

	docs := make([]*geojson.Document, 0, len(inputs))
	for _, in := range inputs {
		doc, err := geojson.DecodeFile(in.Path)
		if err != nil {
			res.Failed = append(res.Failed, &FileError{Path: in.Path, Stage: StageLabels, Err: err})
			continue
		}
		docs = append(docs, doc)
		res.Inputs = append(res.Inputs, in)
	}
	res.Labels = labels.Build(docs)
	if r.Cache != nil && len(res.Failed) == 0 {
		if err := r.Cache.Put(ctx, fp, res.Labels); err != nil {
			l.Warn("label_cache_put_error", "err", err)
		}
	}
	return res
}

func (r *Runner) convertAll(ctx context.Context, l *slog.Logger, opts Options, sum *Summary, inputs []Input, order labels.LabelOrder) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	var mu sync.Mutex
	for _, in := range inputs {
		g.Go(func() error {
			if gctx.Err() != nil {
				mu.Lock()
				sum.Skipped = append(sum.Skipped, in.Path)
				mu.Unlock()
				return nil
			}
			t0 := time.Now()
			res, fe := r.convert(in, order, opts)
			mu.Lock()
			defer mu.Unlock()
			if fe != nil {
				r.fail(ctx, l, sum, fe)
				if opts.ErrorPolicy == ErrorAbort {
					return fe
				}
				return nil
			}
			metrics.ObserveConversion(res.Stats, time.Since(t0))
			sum.Converted = append(sum.Converted, res)
			l.Info("convert_done", "file", in.Path, "output", res.Output,
				"annotations", res.Stats.Annotations, "regions", res.Stats.Regions,
				"skipped_label", res.Stats.UnknownLabel, "skipped_shape", res.Stats.UnknownShape)
			if r.Notifier != nil {
				r.Notifier.Saved(in.Path)
			}
			r.audit(ctx, l, func(rec Recorder) error {
				return rec.RecordFile(ctx, store.FileRecord{
					RunID: sum.RunID, File: in.Path, Output: res.Output, Status: "converted",
					Annotations: res.Stats.Annotations, Regions: res.Stats.Regions, Vertices: res.Stats.Vertices,
					ConvertedAt: time.Now(),
				})
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		l.Warn("batch_aborted", "err", err, "skipped", len(sum.Skipped))
	}
}

// convert：单个文件的完整转换；只读共享 order
func (r *Runner) convert(in Input, order labels.LabelOrder, opts Options) (Result, *FileError) {
	res := Result{Path: in.Path, Output: OutputPath(in.Path, opts.InputExt, opts.OutputExt)}
	doc, err := geojson.DecodeFile(in.Path)
	if err != nil {
		return res, &FileError{Path: in.Path, Stage: StageDecode, Err: err}
	}
	ann, st, err := imagescope.Assemble(doc, order, imagescope.Options{ShapePolicy: opts.ShapePolicy})
	if err != nil {
		return res, &FileError{Path: in.Path, Stage: StageAssemble, Err: err}
	}
	data, err := imagescope.Marshal(ann)
	if err != nil {
		return res, &FileError{Path: in.Path, Stage: StageEncode, Err: err}
	}
	if err := writeFileAtomic(res.Output, data); err != nil {
		return res, &FileError{Path: in.Path, Stage: StageWrite, Err: err}
	}
	res.Stats = st
	return res, nil
}

// fail：调用方持有 sum 的锁或处于单协程阶段
func (r *Runner) fail(ctx context.Context, l *slog.Logger, sum *Summary, fe *FileError) {
	sum.Failed = append(sum.Failed, fe)
	metrics.ObserveFailure()
	logFailure(l, fe)
	if r.Notifier != nil {
		r.Notifier.Failed(fe.Path, fe.Err)
	}
	r.audit(ctx, l, func(rec Recorder) error {
		return rec.RecordFile(ctx, store.FileRecord{
			RunID: sum.RunID, File: fe.Path, Status: "failed", Stage: fe.Stage,
			Error: fe.Err.Error(), ConvertedAt: time.Now(),
		})
	})
}

func (r *Runner) finish(ctx context.Context, l *slog.Logger, sum *Summary) {
	l.Info("batch_done", "files", sum.Files, "converted", len(sum.Converted),
		"failed", len(sum.Failed), "skipped", len(sum.Skipped), "labels", len(sum.Labels), "took", sum.Duration)
	r.audit(ctx, l, func(rec Recorder) error {
		return rec.FinishBatch(ctx, store.BatchRecord{
			RunID: sum.RunID, Labels: len(sum.Labels), FilesTotal: sum.Files,
			FilesOK: len(sum.Converted), FilesFail: len(sum.Failed), FinishedAt: time.Now(),
		})
	})
}

// audit：审计失败只记日志，不影响转换结果
func (r *Runner) audit(ctx context.Context, l *slog.Logger, fn func(Recorder) error) {
	if r.Recorder == nil {
		return
	}
	if err := fn(r.Recorder); err != nil {
		l.Warn("audit_record_error", "err", err)
	}
}

func logFailure(l *slog.Logger, fe *FileError) {
	event := "convert_error"
	switch fe.Stage {
	case StageDiscover:
		event = "discover_error"
	case StageLabels:
		event = "label_scan_error"
	}
	l.Error(event, "file", fe.Path, "stage", fe.Stage, "err", fe.Err)
}

func combine(fes []*FileError) error {
	var err error
	for _, fe := range fes {
		err = multierr.Append(err, fe)
	}
	return err
}

func (r *Runner) options() Options {
	o := r.Options
	if o.InputExt == "" {
		o.InputExt = ".geojson"
	}
	if o.OutputExt == "" {
		o.OutputExt = ".xml"
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.ErrorPolicy == "" {
		o.ErrorPolicy = ErrorContinue
	}
	if o.LabelPolicy == "" {
		o.LabelPolicy = LabelStrict
	}
	if o.ShapePolicy == "" {
		o.ShapePolicy = imagescope.ShapeSkip
	}
	return o
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return logger.L()
}

// IsLabelScanFailure：批次是否因标签扫描失败而未写出任何文件
func IsLabelScanFailure(err error) bool { return errors.Is(err, ErrLabelScan) }
