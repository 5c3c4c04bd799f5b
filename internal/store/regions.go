package store

import (
	"context"
	"database/sql"
	"fmt"
	"track-spatial/internal/model"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// Regions: 读取区域目录，按限定（国家）再按名称排序
// 约束：几何无法解析的行保留但 Geom 为空，由索引跳过并告警
func (s *Store) Regions(ctx context.Context) ([]model.Region, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT region_id, name, qualifier, "+s.geomOut("geom")+" FROM regions ORDER BY qualifier, name, region_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Region
	for rows.Next() {
		var r model.Region
		var text string
		if err := rows.Scan(&r.ID, &r.Name, &r.Qualifier, &text); err != nil {
			return nil, err
		}
		g, err := ParseRegionWKT(text)
		if err != nil && r.ID != model.RegionUnknown {
			s.log.Warn("region_geometry_invalid", "region_id", r.ID, "name", r.Name, "err", err)
		}
		r.Geom = g
		out = append(out, r)
	}
	return out, rows.Err()
}

// ParseRegionWKT: 解析区域几何，仅接受 Polygon 与 MultiPolygon
func ParseRegionWKT(text string) (orb.Geometry, error) {
	g, err := wkt.Unmarshal(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
		return g, nil
	}
	return nil, fmt.Errorf("%w: %s is not a polygon", ErrInvalidGeometry, g.GeoJSONType())
}

// InsertRegion: 写入区域；WKT 经解析后重新序列化，保证库内格式统一
// 异常：(name, qualifier) 冲突返回 ErrDuplicateRegion；几何非法返回 ErrInvalidGeometry
func (s *Store) InsertRegion(ctx context.Context, name, qualifier, text string) (int64, error) {
	g, err := ParseRegionWKT(text)
	if err != nil {
		return 0, err
	}
	var id int64
	err = s.db.QueryRowContext(ctx,
		"INSERT INTO regions (name, qualifier, geom) VALUES ($1, $2, "+s.geomIn(3)+") RETURNING region_id",
		name, qualifier, wkt.MarshalString(g)).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s, %s", ErrDuplicateRegion, name, qualifier)
		}
		return 0, fmt.Errorf("insert region %s, %s: %w", name, qualifier, err)
	}
	return id, nil
}

// PointRefs: 读取待回填的轨迹点
// 约束：unknownOnly 时只返回区域为 NULL 或未知区域的点；几何无法解析时 HasGeom=false
func (s *Store) PointRefs(ctx context.Context, unknownOnly bool) ([]model.PointRef, error) {
	q := "SELECT point_id, region_id, " + s.geomOut("geom") + " FROM trackpoints"
	var args []any
	if unknownOnly {
		q += " WHERE region_id IS NULL OR region_id = $1"
		args = append(args, model.RegionUnknown)
	}
	q += " ORDER BY point_id"
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.PointRef
	for rows.Next() {
		var p model.PointRef
		var region sql.NullInt64
		var text sql.NullString
		if err := rows.Scan(&p.ID, &region, &text); err != nil {
			return nil, err
		}
		if region.Valid {
			id := region.Int64
			p.RegionID = &id
		}
		if text.Valid {
			if g, err := wkt.Unmarshal(text.String); err == nil {
				if pt, ok := g.(orb.Point); ok {
					p.Geom = pt
					p.HasGeom = true
				}
			}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdatePointRegions: 在单个事务内批量写入回填结果，返回更新行数
func (s *Store) UpdatePointRegions(ctx context.Context, as []model.Assignment) (int, error) {
	if len(as) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, "UPDATE trackpoints SET region_id = $1 WHERE point_id = $2")
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	n := 0
	for _, a := range as {
		res, err := stmt.ExecContext(ctx, a.RegionID, a.PointID)
		if err != nil {
			return 0, fmt.Errorf("update point %d: %w", a.PointID, err)
		}
		if k, err := res.RowsAffected(); err == nil {
			n += int(k)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}
