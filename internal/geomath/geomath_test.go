package geomath

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInitialBearing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
	}{
		{name: "north pole", lat1: 90, lon1: 0, lat2: 10, lon2: 10, want: 180.0},
		{name: "near north pole", lat1: 90 - 1e-11, lon1: 5, lat2: 0, lon2: 0, want: 180.0},
		{name: "south pole", lat1: -90, lon1: 0, lat2: 10, lon2: 10, want: 0.0},
		{name: "due north", lat1: 0, lon1: 0, lat2: 1, lon2: 0, want: 0},
		{name: "due east", lat1: 0, lon1: 0, lat2: 0, lon2: 1, want: 90},
		{name: "due west", lat1: 0, lon1: 0, lat2: 0, lon2: -1, want: -90},
		{name: "due south", lat1: 1, lon1: 0, lat2: 0, lon2: 0, want: 180},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, InitialBearing(tt.lat1, tt.lon1, tt.lat2, tt.lon2), 1e-9)
		})
	}
}

func TestInitialBearingRange(t *testing.T) {
	t.Parallel()

	for lat1 := -80.0; lat1 <= 80; lat1 += 20 {
		for lon2 := -170.0; lon2 <= 170; lon2 += 17 {
			for lat2 := -85.0; lat2 <= 85; lat2 += 34 {
				b := InitialBearing(lat1, 3.5, lat2, lon2)
				assert.Greater(t, b, -180.0)
				assert.LessOrEqual(t, b, 180.0)
			}
		}
	}
}

func TestSpeedKph(t *testing.T) {
	t.Parallel()

	for _, l := range []float64{0, 1, 1234.5, 1e9} {
		assert.Equal(t, 0.0, SpeedKph(l, 0))
	}
	assert.InDelta(t, 36.0, SpeedKph(1000, 100), 1e-12)
	assert.InDelta(t, 1234.5/17.0*3.6, SpeedKph(1234.5, 17), 1e-12)
}

func TestDistance2D(t *testing.T) {
	t.Parallel()

	// 赤道上经度差 0.01 度
	d := Distance2D(0, 0, 0, 0.01)
	assert.InDelta(t, 0.01*oneDegreeM, d, 1e-6)

	// 大跨度回退到 haversine，一度约 111km
	far := Distance2D(0, 0, 0, 1)
	assert.InDelta(t, 111319, far, 100)

	assert.Equal(t, 0.0, Distance2D(52.5, 13.4, 52.5, 13.4))
}

func TestSpeedBetween(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	a := Sample{Lat: 0, Lon: 0, Time: t0}
	b := Sample{Lat: 0, Lon: 0.01, Time: t0.Add(10 * time.Second)}

	assert.InDelta(t, 0.01*oneDegreeM/10, SpeedBetween(a, b), 1e-9)
	// 顺序无关
	assert.InDelta(t, SpeedBetween(a, b), SpeedBetween(b, a), 1e-12)

	same := b
	same.Time = t0
	assert.Equal(t, 0.0, SpeedBetween(a, same))

	noTime := b
	noTime.Time = time.Time{}
	assert.Equal(t, 0.0, SpeedBetween(a, noTime))
}

func TestLengthAndDuration(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	pts := []Sample{
		{Lat: 0, Lon: 0, Time: t0},
		{Lat: 0, Lon: 0.01, Time: t0.Add(10 * time.Second)},
		{Lat: 0.01, Lon: 0.01, Time: t0.Add(25 * time.Second)},
	}
	want := 0.01*oneDegreeM + 0.01*oneDegreeM
	assert.InDelta(t, want, Length2D(pts), 1e-6)
	assert.Equal(t, 25.0, Duration(pts))

	assert.Equal(t, 0.0, Length2D(pts[:1]))
	assert.Equal(t, 0.0, Duration(nil))
	assert.False(t, math.IsNaN(Length2D(nil)))
}
