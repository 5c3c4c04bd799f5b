// 包 geomath：航向、距离与速度等纯函数，无 I/O，供轨迹提取与统计复用
package geomath

import (
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

const (
	// 极点判定容差（度）
	poleEpsilon = 1e-10
	// 平面近似下一度对应的米数（地球子午线四分之一周长 10000.8km / 90）
	oneDegreeM = 1000.0 * 10000.8 / 90.0
	// 超过该经纬度差时改用球面距离，平面近似误差过大
	planarLimitDeg = 0.2
)

// InitialBearing：从点1到点2的大圆初始航向（度）
// 背景：用于轨迹点的 course 字段；-90 西，0 北，90 东，180 南
// 约束：点1位于北极时恒为 180，位于南极时恒为 0；其余情况取值范围 (-180, 180]
func InitialBearing(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1+poleEpsilon > 90 {
		return 180.0
	}
	if lat1-poleEpsilon < -90 {
		return 0.0
	}
	b := geo.Bearing(orb.Point{lon1, lat1}, orb.Point{lon2, lat2})
	if b <= -180 {
		b = 180
	}
	return b
}

// SpeedKph：平均速度（千米/时）
// 约束：时长为 0 时返回 0.0，不视为错误
func SpeedKph(lengthM, durationS float64) float64 {
	if durationS == 0 {
		return 0.0
	}
	return lengthM / durationS * 3.6
}

// Distance2D：两点间水平距离（米），忽略高程
// 背景：短距离采用等距圆柱近似，与常见 GPX 工具的 length_2d 口径一致；相距超过 0.2 度时回退到 haversine
func Distance2D(lat1, lon1, lat2, lon2 float64) float64 {
	if math.Abs(lat1-lat2) > planarLimitDeg || math.Abs(lon1-lon2) > planarLimitDeg {
		return geo.DistanceHaversine(orb.Point{lon1, lat1}, orb.Point{lon2, lat2})
	}
	coef := math.Cos(lat1 / 180.0 * math.Pi)
	x := lat1 - lat2
	y := (lon1 - lon2) * coef
	return math.Sqrt(x*x+y*y) * oneDegreeM
}

// Sample：参与速度与长度计算的最小点表示
type Sample struct {
	Lat  float64
	Lon  float64
	Time time.Time
}

// SpeedBetween：两点间瞬时速度（米/秒）
// 约束：任一时间缺失或时间差为 0 时返回 0；时间差取绝对值
func SpeedBetween(a, b Sample) float64 {
	if a.Time.IsZero() || b.Time.IsZero() {
		return 0
	}
	dt := math.Abs(b.Time.Sub(a.Time).Seconds())
	if dt == 0 {
		return 0
	}
	return Distance2D(a.Lat, a.Lon, b.Lat, b.Lon) / dt
}

// Length2D：折线水平长度（米）
func Length2D(pts []Sample) float64 {
	total := 0.0
	for i := 1; i < len(pts); i++ {
		total += Distance2D(pts[i-1].Lat, pts[i-1].Lon, pts[i].Lat, pts[i].Lon)
	}
	return total
}

// Duration：相邻点正向时间差之和（秒），时间缺失或回退的区间不计入
func Duration(pts []Sample) float64 {
	total := 0.0
	for i := 1; i < len(pts); i++ {
		if pts[i-1].Time.IsZero() || pts[i].Time.IsZero() {
			continue
		}
		if d := pts[i].Time.Sub(pts[i-1].Time).Seconds(); d > 0 {
			total += d
		}
	}
	return total
}
