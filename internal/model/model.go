// 包 model：轨迹点、轨迹线、航点、文件与区域的领域结构，供提取、存储与区域解析共享
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

const (
	// RegionNotLookedUp：未执行区域解析，落库为 NULL
	RegionNotLookedUp int64 = -1
	// RegionUnknown：保留的“未知”区域，建库时以固定 id 写入
	RegionUnknown int64 = 1
	// SRID：所有几何统一使用 WGS84
	SRID = 4326
	// UnknownRegionName：保留区域的名称与限定
	UnknownRegionName      = "Unknown"
	UnknownRegionQualifier = "Unknown"
)

// TrackPoint：单个轨迹采样点
// 约束：Seq 在所属分段内从 0 连续递增；Geom 为 (lon, lat)
type TrackPoint struct {
	Segment   uuid.UUID
	Seq       int
	Elevation float64
	Time      time.Time
	Bearing   float64
	Speed     float64
	RegionID  int64
	Geom      orb.Point
}

// TrackLine：分段汇总，每个至少两点的分段对应一条
type TrackLine struct {
	Segment   uuid.UUID
	Start     time.Time
	End       time.Time
	LengthM   float64
	DurationS float64
	SpeedKph  float64
	Geom      orb.LineString
}

// Waypoint：独立于分段的航点
type Waypoint struct {
	Name      string
	Symbol    string
	Elevation float64
	Time      time.Time
	RegionID  int64
	Geom      orb.Point
}

// FileRecord：已导入文件，ContentHash 唯一
type FileRecord struct {
	Filename    string
	ContentHash string
	IngestedAt  time.Time
	FirstTS     time.Time
	LastTS      time.Time
	UserID      int64
}

// Region：命名区域，(Name, Qualifier) 唯一；几何为 Polygon 或 MultiPolygon
type Region struct {
	ID        int64
	Name      string
	Qualifier string
	Geom      orb.Geometry
}

// IsUnknown：是否为保留的未知区域
func (r Region) IsUnknown() bool { return r.ID == RegionUnknown }

// PointRef：区域回填时读取的点，Geom 为空表示库中几何无法解析
type PointRef struct {
	ID       int64
	RegionID *int64
	Geom     orb.Point
	HasGeom  bool
}

// Assignment：回填结果，点 id 与区域 id 成对
type Assignment struct {
	RegionID int64
	PointID  int64
}
