package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	FilesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trackdb_files_total",
		Help: "Track files processed by outcome (committed, already_imported, skipped, failed)",
	}, []string{"outcome"})
	PointsInsertedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trackdb_points_inserted_total",
		Help: "Total track points written",
	})
	PointDuplicatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trackdb_point_duplicates_total",
		Help: "Track points skipped because (timestamp, user) already exists",
	})
	LinesInsertedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trackdb_lines_inserted_total",
		Help: "Total track lines written",
	})
	WaypointsInsertedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trackdb_waypoints_inserted_total",
		Help: "Total waypoints written",
	})
	SegmentsSkippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trackdb_segments_skipped_total",
		Help: "Segments dropped for having fewer than two points",
	})
	RegionLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trackdb_region_lookups_total",
		Help: "Region lookups by result (hit, unknown, empty)",
	}, []string{"result"})
	RegionCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trackdb_region_cache_hits_total",
		Help: "Region lookups answered from cache",
	})
	FilePersistDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "trackdb_file_persist_duration_ms",
		Help:    "Per-file transaction duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	})
)

func init() {
	prometheus.MustRegister(FilesTotal)
	prometheus.MustRegister(PointsInsertedTotal)
	prometheus.MustRegister(PointDuplicatesTotal)
	prometheus.MustRegister(LinesInsertedTotal)
	prometheus.MustRegister(WaypointsInsertedTotal)
	prometheus.MustRegister(SegmentsSkippedTotal)
	prometheus.MustRegister(RegionLookupsTotal)
	prometheus.MustRegister(RegionCacheHitsTotal)
	prometheus.MustRegister(FilePersistDurationMs)
}

// 文档注释：把默认注册表写成文本格式文件
// 背景：命令行工具运行时间短，不适合被抓取；结束时落盘供 node_exporter textfile 收集器读取。
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
