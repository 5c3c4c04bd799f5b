package ingest

import (
	"context"
	"log/slog"
	"track-spatial/internal/logger"
	"track-spatial/internal/model"
	"track-spatial/internal/store"
)

// BatchResolver：批量区域判定，*revgeo.Index 满足该接口
type BatchResolver interface {
	ResolveBatch(ctx context.Context, points []model.PointRef, force bool) []model.Assignment
}

// 文档注释：轨迹点区域回填
// 背景：区域目录变化后重新为库中轨迹点判定区域。all=true 时处理全部点，未命中一律为未知区域；
// 否则只处理区域为 NULL 或未知的点，从未解析（NULL）的点即使未命中也固定为未知区域。
// 约束：全部更新位于同一事务；返回实际更新的行数。
func UpdateLocations(ctx context.Context, st *store.Store, r BatchResolver, all bool, log *slog.Logger) (int, error) {
	log = logger.Or(log)
	refs, err := st.PointRefs(ctx, !all)
	if err != nil {
		return 0, err
	}
	as := r.ResolveBatch(ctx, refs, all)
	n, err := st.UpdatePointRegions(ctx, as)
	if err != nil {
		return 0, err
	}
	log.Info("locations_updated", "candidates", len(refs), "updated", n, "all", all)
	return n, nil
}
