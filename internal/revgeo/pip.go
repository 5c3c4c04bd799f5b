package revgeo

import (
    "github.com/paulmach/orb"
    "github.com/paulmach/orb/planar"
)

// 文档注释：点入多边形判定
// 背景：精确判定交由 orb/planar；支持洞与多面结构。
// 约束：外环边界上的点视为命中，洞边界上的点视为未命中（orb 的射线法约定）；其他几何类型一律不命中。
func contains(g orb.Geometry, pt orb.Point) bool {
    switch v := g.(type) {
    case orb.Polygon:
        return planar.PolygonContains(v, pt)
    case orb.MultiPolygon:
        return planar.MultiPolygonContains(v, pt)
    case orb.Ring:
        return planar.RingContains(v, pt)
    }
    return false
}

// 是否为可参与判定的面几何
func isAreal(g orb.Geometry) bool {
    switch v := g.(type) {
    case orb.Polygon:
        return len(v) > 0 && len(v[0]) >= 4
    case orb.MultiPolygon:
        for _, p := range v {
            if len(p) > 0 && len(p[0]) >= 4 {
                return true
            }
        }
    case orb.Ring:
        return len(v) >= 4
    }
    return false
}
