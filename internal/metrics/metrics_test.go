package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTextfile(t *testing.T) {
	FilesTotal.WithLabelValues("committed").Inc()
	PointsInsertedTotal.Add(3)

	path := filepath.Join(t.TempDir(), "trackdb.prom")
	require.NoError(t, WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(b)
	assert.Contains(t, out, "trackdb_points_inserted_total")
	assert.Contains(t, out, `trackdb_files_total{outcome="committed"}`)
	assert.Contains(t, out, "# HELP trackdb_file_persist_duration_ms")
}
