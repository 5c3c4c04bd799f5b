package recording

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/tkrajina/gpxgo/gpx"
)

// ParseGPX：解析 GPX 文档
// 约束：格式错误返回错误，由调用方决定跳过
// 速度来源：GPX 1.0 的 <speed> 元素；GPX 1.1 扩展中的 speed 或 TrackPointExtension/speed（米/秒）。都没有时 Speed 为 nil
func ParseGPX(data []byte) (*Recording, error) {
	doc, err := gpx.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse gpx: %w", err)
	}
	var v10 [][][]*float64
	if doc.Version == "1.0" {
		v10 = gpx10Speeds(data)
	}
	rec := &Recording{}
	for ti, t := range doc.Tracks {
		tr := Track{Name: t.Name}
		for si, s := range t.Segments {
			seg := Segment{Points: make([]Point, 0, len(s.Points))}
			for pi, p := range s.Points {
				pt := fromGPX(p)
				if pt.Speed == nil {
					pt.Speed = lookup(v10, ti, si, pi)
				}
				seg.Points = append(seg.Points, pt)
			}
			tr.Segments = append(tr.Segments, seg)
		}
		rec.Tracks = append(rec.Tracks, tr)
	}
	for _, w := range doc.Waypoints {
		rec.Waypoints = append(rec.Waypoints, Waypoint{Point: fromGPX(w), Name: w.Name, Symbol: w.Symbol})
	}
	return rec, nil
}

func fromGPX(p gpx.GPXPoint) Point {
	out := Point{Lat: p.Latitude, Lon: p.Longitude, Time: p.Timestamp.UTC()}
	if p.Elevation.NotNull() {
		v := p.Elevation.Value()
		out.Elevation = &v
	}
	out.Speed = extensionSpeed(p.Extensions)
	return out
}

func extensionSpeed(ex gpx.Extension) *float64 {
	node, ok := ex.GetNode(gpx.AnyNamespace, "speed")
	if !ok {
		var tpx *gpx.ExtensionNode
		if tpx, ok = ex.GetNode(gpx.AnyNamespace, "TrackPointExtension"); ok {
			node, ok = tpx.GetNode("speed")
		}
	}
	if !ok {
		return nil
	}
	return parseSpeed(node.Data)
}

func parseSpeed(s string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}

// gpx10Speeds：按 轨迹/分段/点 的文档顺序收集 GPX 1.0 的 <speed>；gpx 解析库不保留该元素
func gpx10Speeds(data []byte) [][][]*float64 {
	var doc struct {
		Tracks []struct {
			Segments []struct {
				Points []struct {
					Speed string `xml:"speed"`
				} `xml:"trkpt"`
			} `xml:"trkseg"`
		} `xml:"trk"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil
	}
	out := make([][][]*float64, len(doc.Tracks))
	for ti, t := range doc.Tracks {
		out[ti] = make([][]*float64, len(t.Segments))
		for si, s := range t.Segments {
			out[ti][si] = make([]*float64, len(s.Points))
			for pi, p := range s.Points {
				if p.Speed != "" {
					out[ti][si][pi] = parseSpeed(p.Speed)
				}
			}
		}
	}
	return out
}

func lookup(speeds [][][]*float64, ti, si, pi int) *float64 {
	if ti >= len(speeds) || si >= len(speeds[ti]) || pi >= len(speeds[ti][si]) {
		return nil
	}
	return speeds[ti][si][pi]
}
