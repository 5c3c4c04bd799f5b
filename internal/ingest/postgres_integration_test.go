//go:build integration

package ingest

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
	"track-spatial/internal/catalog"
	"track-spatial/internal/extract"
	"track-spatial/internal/logger"
	"track-spatial/internal/model"
	"track-spatial/internal/revgeo"
	"track-spatial/internal/store"
	"track-spatial/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// openPostGIS：启动一次性 PostGIS 容器，返回建好表结构的存储
func openPostGIS(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgis/postgis:16-3.4",
		postgres.WithDatabase("trackdb"),
		postgres.WithUsername("tracks"),
		postgres.WithPassword("tracks"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	st, err := store.Open(utils.Postgres, dsn, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	deadline := time.Now().Add(30 * time.Second)
	for st.DB().PingContext(ctx) != nil && time.Now().Before(deadline) {
		time.Sleep(250 * time.Millisecond)
	}
	require.NoError(t, st.EnsureSchema(ctx))
	// 重复执行不报错
	require.NoError(t, st.EnsureSchema(ctx))
	return st
}

func TestPostGISImportAndBackfill(t *testing.T) {
	ctx := context.Background()
	st := openPostGIS(t)

	// 未知区域预置后，新区域的编号从 2 开始
	berlin, err := st.InsertRegion(ctx, "Berlin", "Germany", berlinWKT)
	require.NoError(t, err)
	assert.Greater(t, berlin, model.RegionUnknown)
	_, err = st.InsertRegion(ctx, "Berlin", "Germany", berlinWKT)
	require.ErrorIs(t, err, store.ErrDuplicateRegion)

	uid, err := ResolveUser(ctx, st, "alice", AutoConfirm, logger.Discard())
	require.NoError(t, err)

	imp := NewImporter(st, extract.New(nil, logger.Discard()), Options{
		Extract: extract.Options{SkipRegionLookup: true},
	}, logger.Discard())
	br, err := imp.ImportBatch(ctx, uid, []string{
		fixturePath("berlin.gpx"),
		fixturePath("segments.gpx"),
		fixturePath("broken.gpx"),
		fixturePath("berlin.gpx"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, br.Committed)
	assert.Equal(t, 1, br.Skipped)
	assert.Equal(t, 1, br.AlreadyImported)

	var nullRegions int
	require.NoError(t, st.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM trackpoints WHERE region_id IS NULL").Scan(&nullRegions))
	assert.Equal(t, br.Points, nullRegions)

	ix, err := revgeo.Load(ctx, st, revgeo.WithLogger(logger.Discard()))
	require.NoError(t, err)
	n, err := UpdateLocations(ctx, st, ix, false, logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, br.Points, n)

	var inBerlin int
	require.NoError(t, st.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM trackpoints WHERE region_id = $1", berlin).Scan(&inBerlin))
	// berlin.gpx 的 4 个点与 segments.gpx 第一段的 3 个点
	assert.Equal(t, 7, inBerlin)

	// 几何以 PostGIS 类型存储，可直接做空间查询
	var within int
	require.NoError(t, st.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM trackpoints p JOIN regions r ON ST_Contains(r.geom, p.geom) WHERE r.region_id = $1", berlin).Scan(&within))
	assert.Equal(t, inBerlin, within)

	var buf bytes.Buffer
	exported, err := catalog.Export(ctx, st, &buf, logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, 2, exported)
	script := buf.String()
	inserted, failed, err := catalog.Import(ctx, st, strings.NewReader(script), logger.Discard())
	require.NoError(t, err)
	assert.Zero(t, inserted)
	assert.Equal(t, 2, failed)

	// 导出脚本可直接在 PostGIS 上执行
	require.NoError(t, st.ExecScript(ctx, "UPDATE trackpoints SET region_id = NULL; UPDATE waypoints SET region_id = NULL; DELETE FROM regions;"))
	require.NoError(t, st.ExecScript(ctx, script))
	var restored int
	require.NoError(t, st.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM regions WHERE name = 'Berlin' AND ST_Contains(geom, ST_GeomFromText('POINT(13.3777 52.5163)', 4326))").Scan(&restored))
	assert.Equal(t, 1, restored)
}
