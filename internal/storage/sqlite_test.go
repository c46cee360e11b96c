package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T, path string) *Storage {
	t.Helper()
	s, err := NewStorage(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertAndGetAsset(t *testing.T) {
	s := newTestStorage(t, MemoryPath)

	require.NoError(t, s.UpsertAsset(Asset{GUID: "g1", Path: "/p/A.prefab", Type: "Prefab"}))
	require.NoError(t, s.UpsertAsset(Asset{GUID: "g2", Path: "/p/B.mat", Type: "Material"}))

	a, err := s.GetAsset("g1")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "/p/A.prefab", a.Path)
	assert.Equal(t, "Prefab", a.Type)

	byPath, err := s.GetAssetByPath("/p/B.mat")
	require.NoError(t, err)
	require.NotNil(t, byPath)
	assert.Equal(t, "g2", byPath.GUID)

	missing, err := s.GetAsset("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpsertAssetReplacesPath(t *testing.T) {
	s := newTestStorage(t, MemoryPath)

	require.NoError(t, s.UpsertAsset(Asset{GUID: "g1", Path: "/old.mat", Type: "Material"}))
	require.NoError(t, s.UpsertAsset(Asset{GUID: "g1", Path: "/new.mat", Type: "Material"}))

	n, err := s.CountAssets()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	a, err := s.GetAsset("g1")
	require.NoError(t, err)
	assert.Equal(t, "/new.mat", a.Path)
}

func TestListAndClear(t *testing.T) {
	s := newTestStorage(t, MemoryPath)
	require.NoError(t, s.UpsertAsset(Asset{GUID: "b", Path: "/b"}))
	require.NoError(t, s.UpsertAsset(Asset{GUID: "a", Path: "/a"}))

	list, err := s.ListAssets()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "/a", list[0].Path)

	require.NoError(t, s.Clear())
	n, err := s.CountAssets()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFileBackedIndexSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	s, err := NewStorage(path)
	require.NoError(t, err)
	require.NoError(t, s.UpsertAsset(Asset{GUID: "g", Path: "/x"}))
	require.NoError(t, s.Close())

	reopened := newTestStorage(t, path)
	a, err := reopened.GetAsset("g")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "/x", a.Path)
}
