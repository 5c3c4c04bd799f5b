package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"track-spatial/internal/ingest"
	"track-spatial/internal/migrate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const berlinScript = `INSERT INTO regions (name, qualifier, geom) VALUES('Berlin', 'Germany', GeomFromText('POLYGON((13.1 52.3,13.7 52.3,13.7 52.7,13.1 52.7,13.1 52.3))', 4326));`

type runResult struct {
	out    string
	stderr string
}

func run(t *testing.T, stdin string, interactive bool, args ...string) (runResult, error) {
	t.Helper()
	var out, errb bytes.Buffer
	a := newApp(strings.NewReader(stdin), &out, &errb)
	a.interactive = func() bool { return interactive }
	root := newRootCommand(a)
	root.SetArgs(defaultToImport(root, args))
	err := root.ExecuteContext(context.Background())
	return runResult{out: out.String(), stderr: errb.String()}, err
}

func newDatabase(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	db := filepath.Join(dir, "tracks.db")
	script := filepath.Join(dir, "regions.sql")
	require.NoError(t, os.WriteFile(script, []byte(berlinScript), 0o644))
	res, err := run(t, "", false, "create-db", "-d", db, "-c", script)
	require.NoError(t, err)
	assert.Contains(t, res.out, "Imported 1 regions, 0 failed.")
	return db
}

func fixture(name string) string {
	return filepath.Join("..", "..", "testdata", name)
}

func TestCommandLineWorkflow(t *testing.T) {
	db := newDatabase(t)

	_, err := run(t, "", false, "import", "-d", db, "-u", "alice", fixture("berlin.gpx"))
	require.ErrorIs(t, err, ingest.ErrUserNotFound)

	// 首个参数不是子命令时按 import 处理
	res, err := run(t, "", false, "-d", db, "-u", "alice", "--create-user", fixture("berlin.gpx"))
	require.NoError(t, err)
	assert.Contains(t, res.out, "Imported 1 of 1 files")

	res, err = run(t, "", false, "import", "-d", db, "-u", "alice", fixture("berlin.gpx"))
	require.NoError(t, err)
	assert.Contains(t, res.out, "1 already imported")

	res, err = run(t, "", false, "stats", "-d", db)
	require.NoError(t, err)
	assert.Contains(t, res.out, "trackpoints\t4\n")
	assert.Contains(t, res.out, "waypoints\t2\n")
	assert.Contains(t, res.out, "regions\t2\n")

	res, err = run(t, "", false, "update-locations", "-d", db, "-a")
	require.NoError(t, err)
	assert.Contains(t, res.out, "Updated 4 track points.")

	export := filepath.Join(t.TempDir(), "export.sql")
	res, err = run(t, "", false, "regions", "-d", db, "-e", export)
	require.NoError(t, err)
	assert.Contains(t, res.out, "Exported 2 regions.")
	b, err := os.ReadFile(export)
	require.NoError(t, err)
	assert.Contains(t, string(b), "'Berlin', 'Germany'")

	res, err = run(t, "", false, "regions", "-d", db, "-i", export)
	require.NoError(t, err)
	assert.Contains(t, res.out, "2 regions failed.")
}

func TestImportPromptsForNewUser(t *testing.T) {
	db := newDatabase(t)
	res, err := run(t, "maybe\ny\n", true, "import", "-d", db, "-u", "bob", "-s", fixture("berlin.gpx"))
	require.NoError(t, err)
	assert.Contains(t, res.stderr, `User "bob" does not exist`)
	assert.Contains(t, res.out, "Imported 1 of 1 files")

	db = newDatabase(t)
	_, err = run(t, "n\n", true, "import", "-d", db, "-u", "carol", fixture("berlin.gpx"))
	require.ErrorIs(t, err, ingest.ErrUserDeclined)

	// 安静模式从不询问
	_, err = run(t, "y\n", true, "import", "-q", "-d", db, "-u", "dave", fixture("berlin.gpx"))
	require.ErrorIs(t, err, ingest.ErrUserNotFound)
}

func TestImportRequiresSchemaAndInput(t *testing.T) {
	db := filepath.Join(t.TempDir(), "empty.db")
	_, err := run(t, "", false, "import", "-d", db, "-u", "alice", "--create-user", fixture("berlin.gpx"))
	require.ErrorIs(t, err, migrate.ErrSchemaMissing)

	_, err = run(t, "", false, "import", "-d", db, "-u", "alice", filepath.Join(t.TempDir(), "nothing-here"))
	require.ErrorIs(t, err, errNoInput)
}

func TestRegionsFlagsAreExclusive(t *testing.T) {
	db := newDatabase(t)
	_, err := run(t, "", false, "regions", "-d", db)
	require.Error(t, err)
	_, err = run(t, "", false, "regions", "-d", db, "-e", "a.sql", "-i", "b.sql")
	require.Error(t, err)
}

func TestDefaultToImport(t *testing.T) {
	root := newRootCommand(newApp(strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{}))
	cases := []struct {
		args []string
		want []string
	}{
		{nil, nil},
		{[]string{"stats", "-d", "x.db"}, []string{"stats", "-d", "x.db"}},
		{[]string{"-d", "x.db", "stats"}, []string{"-d", "x.db", "stats"}},
		{[]string{"--help"}, []string{"--help"}},
		{[]string{"walk.gpx"}, []string{"import", "walk.gpx"}},
		{[]string{"-d", "x.db", "-u", "bob", "walk.gpx"}, []string{"import", "-d", "x.db", "-u", "bob", "walk.gpx"}},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, defaultToImport(root, c.args), "%v", c.args)
	}
}
