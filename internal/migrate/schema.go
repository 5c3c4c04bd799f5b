package migrate

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "track-spatial/internal/logger"
    "track-spatial/internal/utils"
)

// ErrSchemaMissing：必需的表不存在，调用方应终止整个进程
var ErrSchemaMissing = errors.New("database schema missing")

// 必需表，导入前逐一校验
var requiredTables = []string{"users", "files", "segments", "trackpoints", "tracklines", "waypoints", "regions"}

// 未知区域固定写入 id=1，几何为退化多边形，不参与任何判定
const unknownRegionWKT = "POLYGON((0 0,0 0,0 0,0 0,0 0))"

// 背景：首次运行自动创建所需表与索引，保障后续导入与查询
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；SQLite 以 WKT 文本保存几何，PostGIS 使用 geometry 列（SRID 4326）
func EnsureSchema(ctx context.Context, db *sql.DB, d utils.Dialect) error {
    var stmts []string
    switch d {
    case utils.Postgres:
        stmts = postgresSchema()
    case utils.SQLite:
        stmts = sqliteSchema()
    default:
        return fmt.Errorf("unsupported driver %q", d)
    }
    for i, s := range stmts {
        logger.L().Debug("schema_exec", "idx", i)
        if _, err := db.ExecContext(ctx, s); err != nil {
            return fmt.Errorf("schema statement %d: %w", i, err)
        }
    }
    logger.L().Debug("schema_done", "driver", string(d))
    return nil
}

func sqliteSchema() []string {
    return []string{
        `CREATE TABLE IF NOT EXISTS users (
            user_id INTEGER PRIMARY KEY AUTOINCREMENT,
            username TEXT NOT NULL UNIQUE
        )`,
        `CREATE TABLE IF NOT EXISTS files (
            file_id INTEGER PRIMARY KEY AUTOINCREMENT,
            filename TEXT NOT NULL,
            content_hash TEXT NOT NULL UNIQUE,
            ingested_at TIMESTAMP NOT NULL,
            first_ts TIMESTAMP,
            last_ts TIMESTAMP,
            user_id INTEGER NOT NULL REFERENCES users(user_id)
        )`,
        `CREATE TABLE IF NOT EXISTS segments (
            segment_id INTEGER PRIMARY KEY AUTOINCREMENT,
            segment_token TEXT NOT NULL UNIQUE
        )`,
        `CREATE TABLE IF NOT EXISTS regions (
            region_id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            qualifier TEXT NOT NULL,
            geom TEXT NOT NULL,
            UNIQUE (name, qualifier)
        )`,
        `CREATE TABLE IF NOT EXISTS trackpoints (
            point_id INTEGER PRIMARY KEY AUTOINCREMENT,
            segment_id INTEGER NOT NULL REFERENCES segments(segment_id),
            seq_in_segment INTEGER NOT NULL,
            elevation REAL NOT NULL DEFAULT 0,
            utc_timestamp TIMESTAMP NOT NULL,
            bearing REAL NOT NULL DEFAULT 0,
            speed REAL NOT NULL DEFAULT 0,
            region_id INTEGER REFERENCES regions(region_id),
            file_id INTEGER NOT NULL REFERENCES files(file_id),
            user_id INTEGER NOT NULL REFERENCES users(user_id),
            geom TEXT NOT NULL,
            UNIQUE (utc_timestamp, user_id)
        )`,
        `CREATE INDEX IF NOT EXISTS idx_trackpoints_region ON trackpoints(region_id)`,
        `CREATE INDEX IF NOT EXISTS idx_trackpoints_segment ON trackpoints(segment_id, seq_in_segment)`,
        `CREATE TABLE IF NOT EXISTS tracklines (
            line_id INTEGER PRIMARY KEY AUTOINCREMENT,
            segment_id INTEGER NOT NULL REFERENCES segments(segment_id),
            start_ts TIMESTAMP,
            end_ts TIMESTAMP,
            length_m REAL NOT NULL,
            duration_s REAL NOT NULL,
            speed_kph REAL NOT NULL,
            file_id INTEGER NOT NULL REFERENCES files(file_id),
            user_id INTEGER NOT NULL REFERENCES users(user_id),
            geom TEXT NOT NULL
        )`,
        `CREATE TABLE IF NOT EXISTS waypoints (
            waypoint_id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT,
            elevation REAL NOT NULL DEFAULT 0,
            utc_timestamp TIMESTAMP,
            symbol TEXT,
            region_id INTEGER REFERENCES regions(region_id),
            file_id INTEGER NOT NULL REFERENCES files(file_id),
            user_id INTEGER NOT NULL REFERENCES users(user_id),
            geom TEXT NOT NULL
        )`,
        `INSERT INTO regions (region_id, name, qualifier, geom)
         VALUES (1, 'Unknown', 'Unknown', '` + unknownRegionWKT + `')
         ON CONFLICT DO NOTHING`,
    }
}

func postgresSchema() []string {
    return []string{
        `CREATE EXTENSION IF NOT EXISTS postgis`,
        `CREATE TABLE IF NOT EXISTS users (
            user_id BIGSERIAL PRIMARY KEY,
            username TEXT NOT NULL UNIQUE
        )`,
        `CREATE TABLE IF NOT EXISTS files (
            file_id BIGSERIAL PRIMARY KEY,
            filename TEXT NOT NULL,
            content_hash TEXT NOT NULL UNIQUE,
            ingested_at TIMESTAMPTZ NOT NULL,
            first_ts TIMESTAMPTZ,
            last_ts TIMESTAMPTZ,
            user_id BIGINT NOT NULL REFERENCES users(user_id)
        )`,
        `CREATE TABLE IF NOT EXISTS segments (
            segment_id BIGSERIAL PRIMARY KEY,
            segment_token TEXT NOT NULL UNIQUE
        )`,
        // 区域允许 Polygon 与 MultiPolygon
        `CREATE TABLE IF NOT EXISTS regions (
            region_id BIGSERIAL PRIMARY KEY,
            name TEXT NOT NULL,
            qualifier TEXT NOT NULL,
            geom geometry(Geometry, 4326) NOT NULL,
            UNIQUE (name, qualifier)
        )`,
        `CREATE INDEX IF NOT EXISTS idx_regions_geom ON regions USING GIST (geom)`,
        `CREATE TABLE IF NOT EXISTS trackpoints (
            point_id BIGSERIAL PRIMARY KEY,
            segment_id BIGINT NOT NULL REFERENCES segments(segment_id),
            seq_in_segment INT NOT NULL,
            elevation DOUBLE PRECISION NOT NULL DEFAULT 0,
            utc_timestamp TIMESTAMPTZ NOT NULL,
            bearing DOUBLE PRECISION NOT NULL DEFAULT 0,
            speed DOUBLE PRECISION NOT NULL DEFAULT 0,
            region_id BIGINT REFERENCES regions(region_id),
            file_id BIGINT NOT NULL REFERENCES files(file_id),
            user_id BIGINT NOT NULL REFERENCES users(user_id),
            geom geometry(Point, 4326) NOT NULL,
            UNIQUE (utc_timestamp, user_id)
        )`,
        `CREATE INDEX IF NOT EXISTS idx_trackpoints_region ON trackpoints(region_id)`,
        `CREATE INDEX IF NOT EXISTS idx_trackpoints_segment ON trackpoints(segment_id, seq_in_segment)`,
        `CREATE INDEX IF NOT EXISTS idx_trackpoints_geom ON trackpoints USING GIST (geom)`,
        `CREATE TABLE IF NOT EXISTS tracklines (
            line_id BIGSERIAL PRIMARY KEY,
            segment_id BIGINT NOT NULL REFERENCES segments(segment_id),
            start_ts TIMESTAMPTZ,
            end_ts TIMESTAMPTZ,
            length_m DOUBLE PRECISION NOT NULL,
            duration_s DOUBLE PRECISION NOT NULL,
            speed_kph DOUBLE PRECISION NOT NULL,
            file_id BIGINT NOT NULL REFERENCES files(file_id),
            user_id BIGINT NOT NULL REFERENCES users(user_id),
            geom geometry(LineString, 4326) NOT NULL
        )`,
        `CREATE TABLE IF NOT EXISTS waypoints (
            waypoint_id BIGSERIAL PRIMARY KEY,
            name TEXT,
            elevation DOUBLE PRECISION NOT NULL DEFAULT 0,
            utc_timestamp TIMESTAMPTZ,
            symbol TEXT,
            region_id BIGINT REFERENCES regions(region_id),
            file_id BIGINT NOT NULL REFERENCES files(file_id),
            user_id BIGINT NOT NULL REFERENCES users(user_id),
            geom geometry(Point, 4326) NOT NULL
        )`,
        `INSERT INTO regions (region_id, name, qualifier, geom)
         VALUES (1, 'Unknown', 'Unknown', ST_GeomFromText('` + unknownRegionWKT + `', 4326))
         ON CONFLICT DO NOTHING`,
        // 显式写入 id=1 后同步序列，避免后续插入撞主键
        `SELECT setval(pg_get_serial_sequence('regions', 'region_id'), GREATEST((SELECT MAX(region_id) FROM regions), 1))`,
    }
}

// TableExists：按方言查询表是否存在
func TableExists(ctx context.Context, db *sql.DB, d utils.Dialect, table string) (bool, error) {
    q := `SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = $1`
    if d == utils.Postgres {
        q = `SELECT 1 FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1`
    }
    var one int
    err := db.QueryRowContext(ctx, q, table).Scan(&one)
    if errors.Is(err, sql.ErrNoRows) {
        return false, nil
    }
    if err != nil {
        return false, err
    }
    return true, nil
}

// CheckSchema：校验必需表均已存在
// 异常：缺表时返回包装 ErrSchemaMissing 的错误，并指明表名与建库命令
func CheckSchema(ctx context.Context, db *sql.DB, d utils.Dialect) error {
    for _, t := range requiredTables {
        ok, err := TableExists(ctx, db, d, t)
        if err != nil {
            return err
        }
        if !ok {
            return fmt.Errorf("%w: table %q not found, run create-db first", ErrSchemaMissing, t)
        }
    }
    return nil
}
