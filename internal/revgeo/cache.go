package revgeo

import (
    "context"
    "errors"
    "log/slog"
    "time"
    "track-spatial/internal/logger"

    gocache "github.com/patrickmn/go-cache"
    "github.com/redis/go-redis/v9"
)

// 文档注释：进程内缓存
// 背景：同一批导入中相邻轨迹点常落在同一坐标（静止、重复采样），命中后跳过几何判定。
// 约束：不启动后台清理协程，过期项在读取时判定；进程退出即丢弃。
type MemoryCache struct {
    c *gocache.Cache
}

// NewMemoryCache：ttl<=0 时条目不过期
func NewMemoryCache(ttl time.Duration) *MemoryCache {
    if ttl <= 0 {
        ttl = gocache.NoExpiration
    }
    return &MemoryCache{c: gocache.New(ttl, 0)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (int64, bool) {
    v, ok := m.c.Get(key)
    if !ok {
        return 0, false
    }
    id, ok := v.(int64)
    return id, ok
}

func (m *MemoryCache) Set(_ context.Context, key string, id int64) {
    m.c.SetDefault(key, id)
}

// ItemCount：当前条目数（含未清理的过期项）
func (m *MemoryCache) ItemCount() int { return m.c.ItemCount() }

// 文档注释：Redis 共享缓存
// 背景：多次导入或多台机器共用同一区域目录时复用解析结果；键带目录版本，目录变化后旧键自然失效。
// 约束：Redis 不可用时视为未命中，只记录调试日志，不阻断导入。
type RedisCache struct {
    rc  *redis.Client
    ttl time.Duration
    log *slog.Logger
}

// NewRedisCache：rc 为 nil 时返回 nil，调用方据此跳过该层
func NewRedisCache(rc *redis.Client, ttl time.Duration, log *slog.Logger) *RedisCache {
    if rc == nil {
        return nil
    }
    return &RedisCache{rc: rc, ttl: ttl, log: logger.Or(log)}
}

func (r *RedisCache) Get(ctx context.Context, key string) (int64, bool) {
    id, err := r.rc.Get(ctx, key).Int64()
    if err != nil {
        if !errors.Is(err, redis.Nil) {
            r.log.Debug("redis_get_error", "key", key, "err", err)
        }
        return 0, false
    }
    return id, true
}

func (r *RedisCache) Set(ctx context.Context, key string, id int64) {
    if err := r.rc.Set(ctx, key, id, r.ttl).Err(); err != nil {
        r.log.Debug("redis_set_error", "key", key, "err", err)
    }
}

// 文档注释：分层缓存（进程内 → Redis）
// 约束：读取时逐层查找，低层命中后回填高层；写入时写全部层。
type TieredCache struct {
    tiers []Cache
}

// NewTieredCache：忽略 nil 层；没有可用层时返回 nil
func NewTieredCache(tiers ...Cache) Cache {
    var ts []Cache
    for _, t := range tiers {
        if t == nil {
            continue
        }
        // 带类型的 nil 指针同样跳过
        if rc, ok := t.(*RedisCache); ok && rc == nil {
            continue
        }
        if mc, ok := t.(*MemoryCache); ok && mc == nil {
            continue
        }
        ts = append(ts, t)
    }
    if len(ts) == 0 {
        return nil
    }
    return &TieredCache{tiers: ts}
}

func (t *TieredCache) Get(ctx context.Context, key string) (int64, bool) {
    for i, c := range t.tiers {
        if id, ok := c.Get(ctx, key); ok {
            for j := 0; j < i; j++ {
                t.tiers[j].Set(ctx, key, id)
            }
            return id, true
        }
    }
    return 0, false
}

func (t *TieredCache) Set(ctx context.Context, key string, id int64) {
    for _, c := range t.tiers {
        c.Set(ctx, key, id)
    }
}
