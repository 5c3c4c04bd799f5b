package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
	"track-spatial/internal/model"

	"github.com/google/uuid"
	"github.com/paulmach/orb/encoding/wkt"
)

// Tx: 单个文件的写事务
// 约束：事务存续期间所有写入都经由本对象；提交或回滚后预编译语句随事务一起释放
type Tx struct {
	s         *Store
	tx        *sql.Tx
	pointStmt *sql.Stmt
}

// Begin: 开启文件级事务
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{s: s, tx: tx}, nil
}

func (t *Tx) Commit() error { return t.tx.Commit() }

// Rollback: 已提交后调用返回 sql.ErrTxDone，可安全 defer
func (t *Tx) Rollback() error { return t.tx.Rollback() }

// InsertSegment: 写入分段并立即读回持久化 id
func (t *Tx) InsertSegment(ctx context.Context, token uuid.UUID) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx, "INSERT INTO segments (segment_token) VALUES ($1) RETURNING segment_id", token.String()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert segment %s: %w", token, err)
	}
	return id, nil
}

// InsertFile: 写入文件记录；摘要冲突返回 ErrDuplicateFile
func (t *Tx) InsertFile(ctx context.Context, f model.FileRecord) (int64, error) {
	ingested := f.IngestedAt
	if ingested.IsZero() {
		ingested = time.Now()
	}
	var id int64
	err := t.tx.QueryRowContext(ctx,
		"INSERT INTO files (filename, content_hash, ingested_at, first_ts, last_ts, user_id) VALUES ($1, $2, $3, $4, $5, $6) RETURNING file_id",
		f.Filename, f.ContentHash, ingested.UTC(), nullTime(f.FirstTS), nullTime(f.LastTS), f.UserID).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateFile, f.Filename)
		}
		return 0, fmt.Errorf("insert file %s: %w", f.Filename, err)
	}
	return id, nil
}

// InsertPoint: 写入轨迹点；(时间戳, 用户) 已存在时不写入并返回 inserted=false
// 背景：使用 ON CONFLICT DO NOTHING 而非捕获约束错误，PostgreSQL 事务不会因此失效
func (t *Tx) InsertPoint(ctx context.Context, p model.TrackPoint, segmentID, fileID, userID int64) (bool, error) {
	if t.pointStmt == nil {
		stmt, err := t.tx.PrepareContext(ctx,
			"INSERT INTO trackpoints (segment_id, seq_in_segment, elevation, utc_timestamp, bearing, speed, region_id, file_id, user_id, geom) "+
				"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, "+t.s.geomIn(10)+") ON CONFLICT (utc_timestamp, user_id) DO NOTHING")
		if err != nil {
			return false, err
		}
		t.pointStmt = stmt
	}
	res, err := t.pointStmt.ExecContext(ctx, segmentID, p.Seq, p.Elevation, p.Time.UTC(), p.Bearing, p.Speed,
		nullRegion(p.RegionID), fileID, userID, wkt.MarshalString(p.Geom))
	if err != nil {
		return false, fmt.Errorf("insert point %s: %w", p.Time.UTC().Format(time.RFC3339), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// InsertLine: 写入分段汇总线
func (t *Tx) InsertLine(ctx context.Context, l model.TrackLine, segmentID, fileID, userID int64) error {
	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO tracklines (segment_id, start_ts, end_ts, length_m, duration_s, speed_kph, file_id, user_id, geom) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, "+t.s.geomIn(9)+")",
		segmentID, nullTime(l.Start), nullTime(l.End), l.LengthM, l.DurationS, l.SpeedKph, fileID, userID, wkt.MarshalString(l.Geom))
	if err != nil {
		return fmt.Errorf("insert line: %w", err)
	}
	return nil
}

// InsertWaypoint: 写入航点
func (t *Tx) InsertWaypoint(ctx context.Context, w model.Waypoint, fileID, userID int64) error {
	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO waypoints (name, elevation, utc_timestamp, symbol, region_id, file_id, user_id, geom) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, "+t.s.geomIn(8)+")",
		w.Name, w.Elevation, nullTime(w.Time), w.Symbol, nullRegion(w.RegionID), fileID, userID, wkt.MarshalString(w.Geom))
	if err != nil {
		return fmt.Errorf("insert waypoint %q: %w", w.Name, err)
	}
	return nil
}
