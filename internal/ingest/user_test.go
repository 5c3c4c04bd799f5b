package ingest

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"track-spatial/internal/logger"
	"track-spatial/internal/migrate"
	"track-spatial/internal/store"
	"track-spatial/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveUser(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	log := logger.Discard()

	id, err := ResolveUser(ctx, e.st, "alice", nil, log)
	require.NoError(t, err)
	assert.Equal(t, e.userID, id)

	_, err = ResolveUser(ctx, e.st, "nobody", nil, log)
	require.ErrorIs(t, err, ErrUserNotFound)

	asked := ""
	_, err = ResolveUser(ctx, e.st, "nobody", func(name string) (bool, error) {
		asked = name
		return false, nil
	}, log)
	require.ErrorIs(t, err, ErrUserDeclined)
	assert.Equal(t, "nobody", asked)

	boom := errors.New("tty closed")
	_, err = ResolveUser(ctx, e.st, "nobody", func(string) (bool, error) { return false, boom }, log)
	require.ErrorIs(t, err, boom)

	c, err := e.st.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Users)

	created, err := ResolveUser(ctx, e.st, "carol", AutoConfirm, log)
	require.NoError(t, err)
	again, err := ResolveUser(ctx, e.st, "carol", nil, log)
	require.NoError(t, err)
	assert.Equal(t, created, again)
}

func TestResolveUserWithoutSchema(t *testing.T) {
	st, err := store.Open(utils.SQLite, filepath.Join(t.TempDir(), "empty.db"), logger.Discard())
	require.NoError(t, err)
	defer st.Close()

	_, err = ResolveUser(context.Background(), st, "alice", AutoConfirm, logger.Discard())
	require.ErrorIs(t, err, migrate.ErrSchemaMissing)
}

func TestPromptConfirmer(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
		asks  int
	}{
		{name: "yes", input: "y\n", want: true, asks: 1},
		{name: "no", input: "No\n", want: false, asks: 1},
		{name: "retry until answer", input: "maybe\n\nYES\n", want: true, asks: 3},
		{name: "eof declines", input: "", want: false, asks: 1},
		{name: "answer without newline", input: "y", want: true, asks: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := PromptConfirmer(strings.NewReader(tt.input), &out)("dora")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.asks, strings.Count(out.String(), `"dora"`))
		})
	}
}
