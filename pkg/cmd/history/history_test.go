package history

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alorbach/sunostyle/pkg/storage"
)

func TestRun(t *testing.T) {
	ctx := context.Background()
	db := filepath.Join(t.TempDir(), "history.db")
	store, err := storage.New("sqlite", db, false)
	require.NoError(t, err)
	require.NoError(t, store.Start(ctx))
	require.NoError(t, store.Migrate(ctx))

	ok := &storage.Generation{ID: ulid.Make().String(), Capability: "text", State: storage.Succeeded, Output: "merged\nstyle"}
	bad := &storage.Generation{ID: ulid.Make().String(), Capability: "image_gen", State: storage.Failed, Error: "azure: image: missing configuration"}
	require.NoError(t, store.SetGeneration(ctx, ok))
	require.NoError(t, store.SetGeneration(ctx, bad))

	var out bytes.Buffer
	require.NoError(t, Run(ctx, &Config{DBType: "sqlite", DBConn: db, Output: &out}))
	assert.Contains(t, out.String(), "merged style")
	assert.Contains(t, out.String(), "missing configuration")

	out.Reset()
	require.NoError(t, Run(ctx, &Config{DBType: "sqlite", DBConn: db, Capability: "text", Output: &out}))
	assert.Equal(t, 2, strings.Count(out.String(), "\n"))

	out.Reset()
	require.NoError(t, Run(ctx, &Config{DBType: "sqlite", DBConn: db, ID: bad.ID, Output: &out}))
	assert.Contains(t, out.String(), `"Capability": "image_gen"`)

	assert.Error(t, Run(ctx, &Config{DBType: "sqlite", DBConn: db, ID: "missing"}))
	assert.Error(t, Run(ctx, &Config{}))
}

func TestShort(t *testing.T) {
	assert.Equal(t, "a b", short(" a \n b ", 10))
	assert.Equal(t, "abcd...", short("abcdefghij", 7))
}
