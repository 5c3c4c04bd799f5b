package ingest

import (
	"context"

	"github.com/google/uuid"
)

// SegmentInserter：写入分段并读回持久化 id，*store.Tx 满足该接口
type SegmentInserter interface {
	InsertSegment(ctx context.Context, token uuid.UUID) (int64, error)
}

// 文档注释：分段登记
// 背景：提取阶段只生成内存中的分段令牌；落库前逐个写入分段表换取持久化 id，后续点与线按映射引用。
// 约束：按输入顺序逐个写入；输入中重复的令牌只写一次并映射到同一 id。
type SegmentRegistry struct {
	ins SegmentInserter
}

func NewSegmentRegistry(ins SegmentInserter) *SegmentRegistry {
	return &SegmentRegistry{ins: ins}
}

// Register：令牌 → 持久化 id
func (r *SegmentRegistry) Register(ctx context.Context, tokens []uuid.UUID) (map[uuid.UUID]int64, error) {
	ids := make(map[uuid.UUID]int64, len(tokens))
	for _, tok := range tokens {
		if _, ok := ids[tok]; ok {
			continue
		}
		id, err := r.ins.InsertSegment(ctx, tok)
		if err != nil {
			return nil, err
		}
		ids[tok] = id
	}
	return ids, nil
}
