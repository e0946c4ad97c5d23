package schema_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takeda-juku/tensaku/internal/schema"
)

func TestStoreSaveLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "coord_db")
	store := schema.NewStore(dir, nil)

	sc := &schema.Schema{
		MasterID:   "2024_4_2",
		TotalScore: &schema.FieldRect{Page: 0, X0: 400, Y0: 30, X1: 470, Y1: 60},
	}
	require.NoError(t, store.Save(sc))

	got, err := store.Load("2024_4_2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sc, got)

	got, err = store.Load("unknown")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStoreSaveRequiresMasterID(t *testing.T) {
	store := schema.NewStore(t.TempDir(), nil)
	assert.Error(t, store.Save(&schema.Schema{}))
}

func TestStoreLoadBackfillsMasterID(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "legacy.json"), []byte(`{"total_score":[0,1,2,3,4]}`), 0o644))

	got, err := schema.NewStore(dir, nil).Load("legacy")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "legacy", got.MasterID)
}

func TestStoreLoadAllSkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	store := schema.NewStore(dir, nil)
	require.NoError(t, store.Save(&schema.Schema{MasterID: "a"}))
	require.NoError(t, store.Save(&schema.Schema{MasterID: "b"}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0o644))

	all, err := store.LoadAll()
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Contains(t, all, "a")
	assert.Contains(t, all, "b")
}

func TestStoreLoadAllMissingDir(t *testing.T) {
	all, err := schema.NewStore(filepath.Join(t.TempDir(), "nope"), nil).LoadAll()
	require.NoError(t, err)
	assert.Empty(t, all)
}
