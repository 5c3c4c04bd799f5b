// 包 extract：把解析后的轨迹记录转换为轨迹点、分段汇总线与航点，并补齐航向、速度与区域
package extract

import (
	"context"
	"log/slog"
	"time"
	"track-spatial/internal/geomath"
	"track-spatial/internal/logger"
	"track-spatial/internal/metrics"
	"track-spatial/internal/model"
	"track-spatial/internal/recording"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

// Resolver：按坐标解析区域，*revgeo.Index 满足该接口
type Resolver interface {
	Resolve(ctx context.Context, lon, lat float64) int64
}

// Options：单次提取的开关
type Options struct {
	SkipRegionLookup bool
	SkipWaypoints    bool
}

// Result：一份记录的提取结果
// 约束：Points 按分段、段内序号排列；Segments 与 Lines 一一对应且顺序一致
type Result struct {
	Points    []model.TrackPoint
	Lines     []model.TrackLine
	FirstTS   time.Time
	LastTS    time.Time
	Waypoints []model.Waypoint
	Segments  []uuid.UUID
}

// Empty：解析失败或无时间信息
func (r Result) Empty() bool { return r.FirstTS.IsZero() && r.LastTS.IsZero() }

// Extractor：轨迹提取器，无内部状态，可复用
type Extractor struct {
	resolver Resolver
	log      *slog.Logger
	newToken func() uuid.UUID
}

// New：resolver 可为 nil，此时所有点都视为未解析
func New(resolver Resolver, log *slog.Logger) *Extractor {
	return &Extractor{resolver: resolver, log: logger.Or(log), newToken: uuid.New}
}

// ExtractBytes：解析并提取
// 约束：格式错误时记录日志并返回空结果，不向调用方抛错，批量导入据此跳过该文件
func (e *Extractor) ExtractBytes(ctx context.Context, name string, data []byte, opts Options) Result {
	rec, err := recording.ParseGPX(data)
	if err != nil {
		e.log.Warn("recording_parse_error", "file", name, "err", err)
		return Result{}
	}
	return e.Extract(ctx, rec, opts)
}

// 文档注释：提取一份记录
// 背景：每个至少两点的分段生成一个分段令牌、若干轨迹点与一条汇总线；航向与速度只相对同段前一点计算。
// 约束：少于两点的分段整体丢弃并告警；缺失高程按 0 处理并告警；无时间戳的轨迹点丢弃并告警，序号保持连续。
func (e *Extractor) Extract(ctx context.Context, rec *recording.Recording, opts Options) Result {
	var res Result
	if rec == nil {
		return res
	}
	res.FirstTS, res.LastTS = rec.TimeBounds()
	resolver := e.resolver
	if opts.SkipRegionLookup {
		resolver = nil
	}
	for ti, tr := range rec.Tracks {
		for si, seg := range tr.Segments {
			pts := e.timedPoints(seg.Points, ti, si)
			if len(pts) < 2 {
				metrics.SegmentsSkippedTotal.Inc()
				e.log.Warn("segment_skipped", "track", ti, "segment", si, "points", len(pts), "reason", "fewer than two points")
				continue
			}
			token := e.newToken()
			res.Segments = append(res.Segments, token)
			res.Points = append(res.Points, e.segmentPoints(ctx, token, pts, resolver)...)
			res.Lines = append(res.Lines, segmentLine(token, pts))
		}
	}
	if !opts.SkipWaypoints {
		for _, w := range rec.Waypoints {
			res.Waypoints = append(res.Waypoints, e.waypoint(ctx, w, resolver))
		}
	}
	e.log.Debug("extract_done", "points", len(res.Points), "lines", len(res.Lines), "waypoints", len(res.Waypoints))
	return res
}

func (e *Extractor) timedPoints(pts []recording.Point, track, segment int) []recording.Point {
	out := make([]recording.Point, 0, len(pts))
	for i, p := range pts {
		if p.Time.IsZero() {
			e.log.Warn("point_without_timestamp", "track", track, "segment", segment, "index", i, "lat", p.Lat, "lon", p.Lon)
			continue
		}
		out = append(out, p)
	}
	return out
}

func (e *Extractor) segmentPoints(ctx context.Context, token uuid.UUID, pts []recording.Point, resolver Resolver) []model.TrackPoint {
	out := make([]model.TrackPoint, 0, len(pts))
	for i, p := range pts {
		tp := model.TrackPoint{
			Segment:   token,
			Seq:       i,
			Elevation: e.elevation(p, "point"),
			Time:      p.Time,
			RegionID:  resolve(ctx, resolver, p),
			Geom:      orb.Point{p.Lon, p.Lat},
		}
		if p.Speed != nil && *p.Speed != 0 {
			tp.Speed = *p.Speed
		}
		if i > 0 {
			prev := pts[i-1]
			tp.Bearing = geomath.InitialBearing(prev.Lat, prev.Lon, p.Lat, p.Lon)
			if tp.Speed == 0 {
				tp.Speed = geomath.SpeedBetween(sample(prev), sample(p))
			}
		}
		out = append(out, tp)
	}
	return out
}

func segmentLine(token uuid.UUID, pts []recording.Point) model.TrackLine {
	samples := make([]geomath.Sample, len(pts))
	ls := make(orb.LineString, len(pts))
	for i, p := range pts {
		samples[i] = sample(p)
		ls[i] = orb.Point{p.Lon, p.Lat}
	}
	start, end := recording.Segment{Points: pts}.TimeBounds()
	length := geomath.Length2D(samples)
	duration := geomath.Duration(samples)
	return model.TrackLine{
		Segment:   token,
		Start:     start,
		End:       end,
		LengthM:   length,
		DurationS: duration,
		SpeedKph:  geomath.SpeedKph(length, duration),
		Geom:      ls,
	}
}

func (e *Extractor) waypoint(ctx context.Context, w recording.Waypoint, resolver Resolver) model.Waypoint {
	return model.Waypoint{
		Name:      w.Name,
		Symbol:    w.Symbol,
		Elevation: e.elevation(w.Point, "waypoint"),
		Time:      w.Time,
		RegionID:  resolve(ctx, resolver, w.Point),
		Geom:      orb.Point{w.Lon, w.Lat},
	}
}

func (e *Extractor) elevation(p recording.Point, kind string) float64 {
	if p.Elevation == nil {
		e.log.Warn("elevation_missing", "kind", kind, "ts", p.Time, "lat", p.Lat, "lon", p.Lon, "default", 0)
		return 0
	}
	return *p.Elevation
}

func resolve(ctx context.Context, r Resolver, p recording.Point) int64 {
	if r == nil {
		return model.RegionNotLookedUp
	}
	return r.Resolve(ctx, p.Lon, p.Lat)
}

func sample(p recording.Point) geomath.Sample {
	return geomath.Sample{Lat: p.Lat, Lon: p.Lon, Time: p.Time}
}
