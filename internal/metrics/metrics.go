package metrics

import (
	"geojson2xml/internal/imagescope"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	FilesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geojson2xml_files_total",
		Help: "Input files processed by status",
	}, []string{"status"})
	AnnotationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geojson2xml_annotations_total",
		Help: "Annotation layers written",
	})
	RegionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geojson2xml_regions_total",
		Help: "Regions written",
	})
	VerticesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geojson2xml_vertices_total",
		Help: "Vertices written, closing points included",
	})
	FeaturesSkippedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geojson2xml_features_skipped_total",
		Help: "Features skipped during assembly by reason",
	}, []string{"reason"})
	ConvertDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "geojson2xml_convert_duration_ms",
		Help:    "Per-file conversion duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	})
	BatchLabels = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geojson2xml_batch_labels",
		Help: "Unique labels in the last batch",
	})
	LabelCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geojson2xml_label_cache_total",
		Help: "Label cache lookups by result",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(FilesTotal)
	prometheus.MustRegister(AnnotationsTotal)
	prometheus.MustRegister(RegionsTotal)
	prometheus.MustRegister(VerticesTotal)
	prometheus.MustRegister(FeaturesSkippedTotal)
	prometheus.MustRegister(ConvertDurationMs)
	prometheus.MustRegister(BatchLabels)
	prometheus.MustRegister(LabelCacheTotal)
}

// ObserveConversion：记录一次成功转换的统计
func ObserveConversion(st imagescope.Stats, d time.Duration) {
	FilesTotal.WithLabelValues("converted").Inc()
	AnnotationsTotal.Add(float64(st.Annotations))
	RegionsTotal.Add(float64(st.Regions))
	VerticesTotal.Add(float64(st.Vertices))
	FeaturesSkippedTotal.WithLabelValues("unknown_label").Add(float64(st.UnknownLabel))
	FeaturesSkippedTotal.WithLabelValues("unknown_shape").Add(float64(st.UnknownShape))
	ConvertDurationMs.Observe(float64(d.Microseconds()) / 1000)
}

func ObserveFailure() { FilesTotal.WithLabelValues("failed").Inc() }

// 文档注释：将当前指标写入 node_exporter textfile 目录
// 背景：批处理进程运行时间短，无法被拉取；退出前落盘由 node_exporter 采集。
// 约束：path 为空时不写出；写入为临时文件再改名，采集端不会读到半截文件。
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
