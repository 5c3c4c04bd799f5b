package revgeo

import (
    "context"
    "fmt"
)

// 文档注释：从区域目录加载索引
// 背景：导入开始前一次性读取区域表构造只读快照；导入过程中目录不再变化。
// 异常：读取失败直接返回错误；目录为空不是错误，索引将全部解析为未知区域。
func Load(ctx context.Context, src CatalogSource, opts ...Option) (*Index, error) {
    regions, err := src.Regions(ctx)
    if err != nil {
        return nil, fmt.Errorf("load regions: %w", err)
    }
    return NewIndex(regions, opts...), nil
}
