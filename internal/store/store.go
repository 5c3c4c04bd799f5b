// 包 store: 提供轨迹空间库的数据访问层，兼容 SQLite（WKT 文本几何）与 PostgreSQL/PostGIS
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"
	"track-spatial/internal/logger"
	"track-spatial/internal/migrate"
	"track-spatial/internal/model"
	"track-spatial/internal/utils"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

var (
	// ErrDuplicateFile：内容摘要已存在，写入阶段才发现说明存在并发导入或逻辑缺陷
	ErrDuplicateFile = errors.New("file already entered")
	// ErrDuplicateRegion：(name, qualifier) 已存在
	ErrDuplicateRegion = errors.New("region already defined")
	// ErrInvalidGeometry：WKT 无法解析或类型不符
	ErrInvalidGeometry = errors.New("invalid geometry")
)

// Store: 数据库访问入口，持有连接池与方言
type Store struct {
	db      *sql.DB
	dialect utils.Dialect
	log     *slog.Logger
}

func AttachDB(db *sql.DB, d utils.Dialect, log *slog.Logger) *Store {
	return &Store{db: db, dialect: d, log: logger.Or(log)}
}

// Open: 按方言打开数据库
func Open(d utils.Dialect, dsn string, log *slog.Logger) (*Store, error) {
	db, err := utils.Open(d, dsn)
	if err != nil {
		return nil, err
	}
	return AttachDB(db, d, log), nil
}

// Close: 关闭数据库连接
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Dialect() utils.Dialect { return s.dialect }

// EnsureSchema: 建表并写入未知区域
func (s *Store) EnsureSchema(ctx context.Context) error {
	return migrate.EnsureSchema(ctx, s.db, s.dialect)
}

// CheckSchema: 校验必需表，缺失时返回 migrate.ErrSchemaMissing
func (s *Store) CheckSchema(ctx context.Context) error {
	return migrate.CheckSchema(ctx, s.db, s.dialect)
}

func (s *Store) TableExists(ctx context.Context, table string) (bool, error) {
	return migrate.TableExists(ctx, s.db, s.dialect, table)
}

// geomIn: 几何参数占位；PostGIS 由 WKT 构造 geometry，SQLite 直接保存文本
func (s *Store) geomIn(n int) string {
	p := "$" + strconv.Itoa(n)
	if s.dialect == utils.Postgres {
		return "ST_GeomFromText(" + p + ", " + strconv.Itoa(model.SRID) + ")"
	}
	return p
}

// geomOut: 读取几何列为 WKT
func (s *Store) geomOut(col string) string {
	if s.dialect == utils.Postgres {
		return "ST_AsText(" + col + ")"
	}
	return col
}

// UserID: 按用户名查询，不存在时 ok=false
func (s *Store) UserID(ctx context.Context, name string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, "SELECT user_id FROM users WHERE username = $1", name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// InsertUser: 新建用户并返回 id
func (s *Store) InsertUser(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, "INSERT INTO users (username) VALUES ($1) RETURNING user_id", name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert user %q: %w", name, err)
	}
	s.log.Info("user_created", "user", name, "user_id", id)
	return id, nil
}

// FileExists: 按内容摘要判定是否已导入
func (s *Store) FileExists(ctx context.Context, hash string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM files WHERE content_hash = $1", hash).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Counts: 各表行数快照
type Counts struct {
	Users     int
	Files     int
	Segments  int
	Points    int
	Lines     int
	Waypoints int
	Regions   int
}

func (c Counts) String() string {
	return fmt.Sprintf("users\t%d\nfiles\t%d\nsegments\t%d\ntrackpoints\t%d\ntracklines\t%d\nwaypoints\t%d\nregions\t%d\n",
		c.Users, c.Files, c.Segments, c.Points, c.Lines, c.Waypoints, c.Regions)
}

func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	targets := []struct {
		table string
		dst   *int
	}{
		{"users", &c.Users},
		{"files", &c.Files},
		{"segments", &c.Segments},
		{"trackpoints", &c.Points},
		{"tracklines", &c.Lines},
		{"waypoints", &c.Waypoints},
		{"regions", &c.Regions},
	}
	for _, t := range targets {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.table).Scan(t.dst); err != nil {
			return c, fmt.Errorf("count %s: %w", t.table, err)
		}
	}
	return c, nil
}

// ExecScript: 执行整段 SQL 脚本（建库时的自定义脚本）
func (s *Store) ExecScript(ctx context.Context, script string) error {
	_, err := s.db.ExecContext(ctx, script)
	return err
}

// isUniqueViolation: 识别两种驱动的唯一约束冲突
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		return sqErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// 零值时间落库为 NULL；非零统一转为 UTC
func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// 未解析区域（-1）落库为 NULL
func nullRegion(id int64) sql.NullInt64 {
	if id == model.RegionNotLookedUp {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: id, Valid: true}
}
