package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
	"track-spatial/internal/geomath"
	"track-spatial/internal/logger"
	"track-spatial/internal/model"
	"track-spatial/internal/recording"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 经度大于 13 的点视为区域 2，其余未知
type lonResolver struct{ calls int }

func (r *lonResolver) Resolve(_ context.Context, lon, _ float64) int64 {
	r.calls++
	if lon > 13 {
		return 2
	}
	return model.RegionUnknown
}

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("..", "..", "testdata", name))
	require.NoError(t, err)
	return b
}

func TestExtractSampleRecording(t *testing.T) {
	r := &lonResolver{}
	ex := New(r, logger.Discard())
	res := ex.ExtractBytes(context.Background(), "berlin.gpx", fixture(t, "berlin.gpx"), Options{})

	require.Len(t, res.Points, 4)
	require.Len(t, res.Lines, 1)
	require.Len(t, res.Segments, 1)
	require.Len(t, res.Waypoints, 2)
	assert.Equal(t, 6, r.calls)

	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, t0, res.FirstTS)
	assert.Equal(t, t0.Add(15*time.Minute), res.LastTS)
	assert.False(t, res.Empty())

	for i, p := range res.Points {
		assert.Equal(t, i, p.Seq)
		assert.Equal(t, res.Segments[0], p.Segment)
		assert.Equal(t, int64(2), p.RegionID)
	}
	first := res.Points[0]
	assert.Equal(t, 0.0, first.Bearing)
	assert.Equal(t, 0.0, first.Speed)
	assert.Equal(t, 34.0, first.Elevation)
	// 缺失高程按 0
	assert.Equal(t, 0.0, res.Points[2].Elevation)

	second := res.Points[1]
	assert.InDelta(t, geomath.InitialBearing(52.5163, 13.3777, 52.5145, 13.3501), second.Bearing, 1e-12)
	wantSpeed := geomath.Distance2D(52.5163, 13.3777, 52.5145, 13.3501) / 300
	assert.InDelta(t, wantSpeed, second.Speed, 1e-9)
	assert.Less(t, second.Bearing, 0.0) // 向西

	line := res.Lines[0]
	assert.Equal(t, res.Segments[0], line.Segment)
	require.Len(t, line.Geom, 4)
	for i, p := range res.Points {
		assert.Equal(t, p.Geom, line.Geom[i])
	}
	assert.Equal(t, t0, line.Start)
	assert.Equal(t, t0.Add(15*time.Minute), line.End)
	assert.Equal(t, 900.0, line.DurationS)
	assert.Greater(t, line.LengthM, 0.0)
	assert.InDelta(t, line.LengthM/900*3.6, line.SpeedKph, 1e-9)

	w := res.Waypoints
	assert.Equal(t, "Brandenburger Tor", w[0].Name)
	assert.Equal(t, int64(2), w[0].RegionID)
	assert.Equal(t, 34.0, w[0].Elevation)
	assert.Equal(t, "Marienplatz", w[1].Name)
	assert.Equal(t, model.RegionUnknown, w[1].RegionID)
	assert.Equal(t, 0.0, w[1].Elevation)
}

func TestExtractSkipFlags(t *testing.T) {
	r := &lonResolver{}
	ex := New(r, logger.Discard())
	res := ex.ExtractBytes(context.Background(), "berlin.gpx", fixture(t, "berlin.gpx"), Options{SkipRegionLookup: true, SkipWaypoints: true})

	assert.Zero(t, r.calls)
	assert.Empty(t, res.Waypoints)
	require.Len(t, res.Points, 4)
	for _, p := range res.Points {
		assert.Equal(t, model.RegionNotLookedUp, p.RegionID)
	}

	// 未注入解析器同样视为未解析
	res = New(nil, logger.Discard()).ExtractBytes(context.Background(), "berlin.gpx", fixture(t, "berlin.gpx"), Options{})
	assert.Equal(t, model.RegionNotLookedUp, res.Waypoints[0].RegionID)
}

func TestExtractSegments(t *testing.T) {
	ex := New(&lonResolver{}, logger.Discard())
	res := ex.ExtractBytes(context.Background(), "segments.gpx", fixture(t, "segments.gpx"), Options{})

	// 三个分段中单点分段被丢弃
	require.Len(t, res.Segments, 2)
	require.Len(t, res.Lines, 2)
	require.Len(t, res.Points, 5)
	assert.NotEqual(t, res.Segments[0], res.Segments[1])

	seqs := make([]int, 0, len(res.Points))
	for _, p := range res.Points {
		seqs = append(seqs, p.Seq)
	}
	assert.Equal(t, []int{0, 1, 2, 0, 1}, seqs)
	assert.Equal(t, res.Segments[1], res.Points[3].Segment)
	// 新分段首点不继承上一分段
	assert.Equal(t, 0.0, res.Points[3].Bearing)
	assert.Equal(t, 0.0, res.Points[3].Speed)
	assert.InDelta(t, 90.0, res.Points[4].Bearing, 0.01)

	for i, l := range res.Lines {
		assert.Equal(t, res.Segments[i], l.Segment)
	}
	assert.Len(t, res.Lines[0].Geom, 3)
	assert.Equal(t, 30.0, res.Lines[1].DurationS)

	// 记录级时间边界包含被丢弃分段
	assert.Equal(t, time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC), res.FirstTS)
	assert.Equal(t, time.Date(2024, 6, 2, 10, 0, 30, 0, time.UTC), res.LastTS)
}

func TestExtractMalformedReturnsEmpty(t *testing.T) {
	res := New(&lonResolver{}, logger.Discard()).ExtractBytes(context.Background(), "broken.gpx", fixture(t, "broken.gpx"), Options{})
	assert.True(t, res.Empty())
	assert.Empty(t, res.Points)
	assert.Empty(t, res.Lines)
	assert.Empty(t, res.Waypoints)
	assert.Empty(t, res.Segments)
}

func TestExtractDropsUntimedPoints(t *testing.T) {
	res := New(nil, logger.Discard()).ExtractBytes(context.Background(), "notime.gpx", fixture(t, "notime.gpx"), Options{})
	assert.True(t, res.Empty())
	assert.Empty(t, res.Points)
	assert.Empty(t, res.Lines)
}

func TestExtractRecordingSpeedPreferred(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fast, zero := 12.5, 0.0
	rec := &recording.Recording{Tracks: []recording.Track{{Segments: []recording.Segment{{Points: []recording.Point{
		{Lat: 0, Lon: 0, Time: t0, Speed: &fast},
		{Lat: 0, Lon: 0.001, Time: t0.Add(10 * time.Second), Speed: &fast},
		{Lat: 0, Lon: 0.002, Time: t0.Add(20 * time.Second), Speed: &zero},
		{Lat: 0, Lon: 0.003, Time: t0.Add(20 * time.Second)},
	}}}}}}
	res := New(nil, logger.Discard()).Extract(context.Background(), rec, Options{})
	require.Len(t, res.Points, 4)
	assert.Equal(t, fast, res.Points[0].Speed)
	assert.Equal(t, fast, res.Points[1].Speed)
	// 记录速度为 0 时回退为两点间速度
	assert.InDelta(t, geomath.Distance2D(0, 0.001, 0, 0.002)/10, res.Points[2].Speed, 1e-9)
	// 时间差为 0 时为 0
	assert.Equal(t, 0.0, res.Points[3].Speed)
	assert.Equal(t, 20.0, res.Lines[0].DurationS)

	assert.True(t, New(nil, nil).Extract(context.Background(), nil, Options{}).Empty())
}
