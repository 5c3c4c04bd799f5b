// 包 recording：轨迹记录的解析边界；将 GPX 等输入转换为与解析库无关的轨迹/分段/点结构
package recording

import (
	"time"
)

// Point：带时间戳的地理采样
// 约束：Elevation/Speed 为 nil 表示记录中缺失；Time 为零值表示无时间戳
type Point struct {
	Lat       float64
	Lon       float64
	Elevation *float64
	Time      time.Time
	Speed     *float64
}

// Segment：连续采样序列
type Segment struct {
	Points []Point
}

// Track：命名轨迹，包含若干分段
type Track struct {
	Name     string
	Segments []Segment
}

// Waypoint：独立航点
type Waypoint struct {
	Point
	Name   string
	Symbol string
}

// Recording：一次解析结果
type Recording struct {
	Tracks    []Track
	Waypoints []Waypoint
}

// TimeBounds：分段内首个与最后一个带时间戳点的时间
func (s Segment) TimeBounds() (time.Time, time.Time) {
	return bounds(s.Points, time.Time{}, time.Time{})
}

// TimeBounds：整份记录（仅轨迹点）的首尾时间；没有任何时间戳时均为零值
func (r *Recording) TimeBounds() (time.Time, time.Time) {
	var first, last time.Time
	if r == nil {
		return first, last
	}
	for _, t := range r.Tracks {
		for _, s := range t.Segments {
			first, last = bounds(s.Points, first, last)
		}
	}
	return first, last
}

func bounds(pts []Point, first, last time.Time) (time.Time, time.Time) {
	for _, p := range pts {
		if p.Time.IsZero() {
			continue
		}
		if first.IsZero() {
			first = p.Time
		}
		last = p.Time
	}
	return first, last
}

// PointCount：轨迹点总数
func (r *Recording) PointCount() int {
	n := 0
	for _, t := range r.Tracks {
		for _, s := range t.Segments {
			n += len(s.Points)
		}
	}
	return n
}
