package revgeo

import (
    "context"
    "track-spatial/internal/model"

    "github.com/paulmach/orb"
)

// 文档注释：区域索引项
// 背景：区域几何与其包围盒一并常驻内存，包围盒用于候选过滤，减少精确判定次数。
// 约束：仅 Polygon/MultiPolygon 参与判定；保留的未知区域不参与。
type entry struct {
    region model.Region
    bound  orb.Bound
}

// Resolver：按坐标解析区域 id 的最小接口，提取与回填流程依赖此接口
type Resolver interface {
    Resolve(ctx context.Context, lon, lat float64) int64
}

// CatalogSource：区域目录的读取来源（通常为存储层）
type CatalogSource interface {
    Regions(ctx context.Context) ([]model.Region, error)
}

// Cache：解析结果缓存，键由索引构造并包含目录版本
type Cache interface {
    Get(ctx context.Context, key string) (int64, bool)
    Set(ctx context.Context, key string, id int64)
}
