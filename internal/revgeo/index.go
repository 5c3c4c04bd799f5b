package revgeo

import (
    "context"
    "encoding/binary"
    "fmt"
    "hash/fnv"
    "io"
    "log/slog"
    "math"
    "strconv"
    "track-spatial/internal/logger"
    "track-spatial/internal/metrics"
    "track-spatial/internal/model"

    "github.com/paulmach/orb"
    "github.com/paulmach/orb/encoding/wkt"
)

// 文档注释：区域索引（包围盒过滤 → 精确点入面判定 → 未知区域兜底）
// 背景：区域目录整体加载到内存，逐点解析不再访问数据库；可选结果缓存。
// 约束：构造后只读，可被多个调用方共享；除缓存外无副作用；目录为空时一律返回未知区域。
type Index struct {
    entries []entry
    version string
    cache   Cache
    log     *slog.Logger
}

var _ Resolver = (*Index)(nil)

// Option：索引构造选项
type Option func(*Index)

// WithCache：挂载解析结果缓存
func WithCache(c Cache) Option { return func(ix *Index) { ix.cache = c } }

// WithLogger：注入日志器
func WithLogger(l *slog.Logger) Option { return func(ix *Index) { ix.log = l } }

// NewIndex：由区域列表构造索引
func NewIndex(regions []model.Region, opts ...Option) *Index {
    ix := &Index{}
    for _, o := range opts {
        o(ix)
    }
    ix.log = logger.Or(ix.log)
    h := fnv.New64a()
    skipped := 0
    for _, r := range regions {
        writeVersion(h, r)
        if r.IsUnknown() {
            continue
        }
        if r.Geom == nil || !isAreal(r.Geom) {
            skipped++
            ix.log.Warn("region_geometry_unusable", "region_id", r.ID, "name", r.Name, "qualifier", r.Qualifier)
            continue
        }
        ix.entries = append(ix.entries, entry{region: r, bound: r.Geom.Bound()})
    }
    ix.version = strconv.FormatUint(h.Sum64(), 36)
    ix.log.Debug("region_index_built", "regions", len(ix.entries), "skipped", skipped, "version", ix.version)
    return ix
}

// 版本号覆盖 id、名称与几何，目录任何变化都会改变缓存键
func writeVersion(h io.Writer, r model.Region) {
    var b [8]byte
    binary.LittleEndian.PutUint64(b[:], uint64(r.ID))
    _, _ = h.Write(b[:])
    _, _ = h.Write([]byte(r.Name))
    _, _ = h.Write([]byte{0})
    _, _ = h.Write([]byte(r.Qualifier))
    _, _ = h.Write([]byte{0})
    if r.Geom != nil {
        _, _ = h.Write([]byte(wkt.MarshalString(r.Geom)))
    }
}

// Len：参与判定的区域数
func (ix *Index) Len() int { return len(ix.entries) }

// Version：目录版本（FNV-64a），用于缓存键
func (ix *Index) Version() string { return ix.version }

// Lookup：返回包含该点的区域；多个区域重叠时取目录顺序中的第一个
func (ix *Index) Lookup(lon, lat float64) (model.Region, bool) {
    if math.IsNaN(lon) || math.IsNaN(lat) {
        return model.Region{}, false
    }
    pt := orb.Point{lon, lat}
    for i := range ix.entries {
        e := &ix.entries[i]
        if !e.bound.Contains(pt) {
            continue
        }
        if contains(e.region.Geom, pt) {
            return e.region, true
        }
    }
    return model.Region{}, false
}

// Resolve：坐标 → 区域 id；无命中返回 model.RegionUnknown，不返回错误
func (ix *Index) Resolve(ctx context.Context, lon, lat float64) int64 {
    if len(ix.entries) == 0 {
        metrics.RegionLookupsTotal.WithLabelValues("empty").Inc()
        return model.RegionUnknown
    }
    key := ""
    if ix.cache != nil {
        key = ix.cacheKey(lon, lat)
        if id, ok := ix.cache.Get(ctx, key); ok {
            metrics.RegionCacheHitsTotal.Inc()
            return id
        }
    }
    id := model.RegionUnknown
    if r, ok := ix.Lookup(lon, lat); ok {
        id = r.ID
        metrics.RegionLookupsTotal.WithLabelValues("hit").Inc()
    } else {
        metrics.RegionLookupsTotal.WithLabelValues("unknown").Inc()
    }
    if ix.cache != nil {
        ix.cache.Set(ctx, key, id)
    }
    return id
}

// 坐标按 1e-7 度精确取键，不做网格量化，避免跨边界误命中
func (ix *Index) cacheKey(lon, lat float64) string {
    return fmt.Sprintf("revgeo:%s:%.7f,%.7f", ix.version, lon, lat)
}

// 文档注释：批量区域回填
// 背景：位置回填时对库中点重新判定；force=true 时输入为全部点，否则为尚未解析或已判为未知的点。
// 约束（force）：每个点都会得到结果，未命中即为未知区域。
// 约束（增量）：命中则更新；未命中且此前从未解析（NULL）或几何不可用的点固定为未知区域；
// 已是未知区域且仍未命中的点不产生更新。
func (ix *Index) ResolveBatch(ctx context.Context, points []model.PointRef, force bool) []model.Assignment {
    out := make([]model.Assignment, 0, len(points))
    for _, p := range points {
        if !p.HasGeom {
            if force || p.RegionID == nil {
                out = append(out, model.Assignment{RegionID: model.RegionUnknown, PointID: p.ID})
            }
            continue
        }
        id := ix.Resolve(ctx, p.Geom.Lon(), p.Geom.Lat())
        switch {
        case id != model.RegionUnknown:
            out = append(out, model.Assignment{RegionID: id, PointID: p.ID})
        case force, p.RegionID == nil:
            out = append(out, model.Assignment{RegionID: model.RegionUnknown, PointID: p.ID})
        }
    }
    return out
}
