package catalog

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"track-spatial/internal/logger"
	"track-spatial/internal/model"
	"track-spatial/internal/store"

	"github.com/paulmach/orb/encoding/wkt"
)

// Source：导出所需的区域读取
type Source interface {
	Regions(ctx context.Context) ([]model.Region, error)
}

// Sink：导入所需的区域写入，冲突返回 store.ErrDuplicateRegion
type Sink interface {
	InsertRegion(ctx context.Context, name, qualifier, text string) (int64, error)
}

// 文档注释：导出区域目录
// 背景：按限定再按名称排序输出 INSERT 脚本，首尾为事务标记。几何以 ST_GeomFromText 构造，
// 脚本可在 PostGIS 或 SpatiaLite 中直接执行；本工具的 SQLite 库以 WKT 文本存几何，需经 Import 读回。
// 约束：单引号按 SQL 规则成对转义；几何不可用的区域跳过并告警。返回导出条数。
func Export(ctx context.Context, src Source, w io.Writer, log *slog.Logger) (int, error) {
	log = logger.Or(log)
	regions, err := src.Regions(ctx)
	if err != nil {
		return 0, err
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "BEGIN TRANSACTION;")
	n := 0
	for _, r := range regions {
		if r.Geom == nil {
			log.Warn("region_export_skipped", "region_id", r.ID, "name", r.Name, "reason", "geometry unusable")
			continue
		}
		fmt.Fprintf(bw, "INSERT INTO regions (name, qualifier, geom) VALUES(%s, %s, ST_GeomFromText(%s, %d));\n",
			quote(r.Name), quote(r.Qualifier), quote(wkt.MarshalString(r.Geom)), model.SRID)
		n++
	}
	fmt.Fprintln(bw, "COMMIT;")
	if err := bw.Flush(); err != nil {
		return 0, err
	}
	log.Info("regions_exported", "count", n)
	return n, nil
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// 文档注释：导入区域目录
// 背景：逐条执行脚本中的区域插入，语句之间相互独立；脚本自带的事务标记与其他语句被忽略。
// 约束：唯一约束冲突、几何非法与无法解析的插入计为失败并继续；其余数据库错误立即返回。
func Import(ctx context.Context, dst Sink, r io.Reader, log *slog.Logger) (inserted, failed int, err error) {
	log = logger.Or(log)
	sc, err := ParseScript(r)
	if err != nil {
		return 0, 0, err
	}
	for _, bad := range sc.Invalid {
		failed++
		log.Warn("region_statement_invalid", "statement", abbreviate(bad.Text), "err", bad.Err)
	}
	for _, ins := range sc.Inserts {
		if _, err := dst.InsertRegion(ctx, ins.Name, ins.Qualifier, ins.WKT); err != nil {
			if errors.Is(err, store.ErrDuplicateRegion) || errors.Is(err, store.ErrInvalidGeometry) {
				failed++
				log.Warn("region_import_failed", "name", ins.Name, "qualifier", ins.Qualifier, "err", err)
				continue
			}
			return inserted, failed, err
		}
		inserted++
	}
	log.Info("regions_imported", "inserted", inserted, "failed", failed, "ignored", sc.Ignored)
	return inserted, failed, nil
}

func abbreviate(s string) string {
	const max = 120
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
