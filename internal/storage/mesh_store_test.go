package storage

import (
	"os"
	"testing"

	"github.com/annel0/voxel-export/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	Faces   []string `json:"faces"`
	Visible int      `json:"visible"`
}

func setupTestStore(t *testing.T) (*MeshStore, string) {
	tempDir, err := os.MkdirTemp("", "mesh-store-test")
	if err != nil {
		t.Fatalf("Не удалось создать временную директорию: %v", err)
	}

	store, err := NewMeshStore(tempDir)
	if err != nil {
		os.RemoveAll(tempDir)
		t.Fatalf("Не удалось создать хранилище: %v", err)
	}

	return store, tempDir
}

func cleanupTestStore(store *MeshStore, tempDir string) {
	if store != nil {
		store.Close()
	}
	if tempDir != "" {
		os.RemoveAll(tempDir)
	}
}

func TestMeshStore_SaveAndLoad(t *testing.T) {
	store, tempDir := setupTestStore(t)
	defer cleanupTestStore(store, tempDir)

	coords := vec.Vec2{X: -3, Y: 7}
	in := testPayload{Faces: []string{"stone", "dirt", "stone"}, Visible: 3}
	require.NoError(t, store.Save(coords, "abc", in))

	var out testPayload
	found, err := store.Load(coords, "abc", &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, in, out)

	found, err = store.Load(coords, "other", &out)
	require.NoError(t, err)
	assert.False(t, found, "другая конфигурация — другой ключ")

	found, err = store.Load(vec.Vec2{X: 1, Y: 1}, "abc", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMeshStore_PersistsAcrossReopen(t *testing.T) {
	store, tempDir := setupTestStore(t)
	defer os.RemoveAll(tempDir)

	coords := vec.Vec2{X: 1, Y: 2}
	require.NoError(t, store.Save(coords, "h", testPayload{Visible: 42}))
	require.NoError(t, store.Close())

	reopened, err := NewMeshStore(tempDir)
	require.NoError(t, err)
	defer reopened.Close()

	var out testPayload
	found, err := reopened.Load(coords, "h", &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 42, out.Visible)
}

func TestMeshStore_DeleteAndDropStale(t *testing.T) {
	store, err := NewInMemoryMeshStore()
	require.NoError(t, err)
	defer store.Close()

	for x := 0; x < 3; x++ {
		require.NoError(t, store.Save(vec.Vec2{X: x}, "old", testPayload{Visible: x}))
		require.NoError(t, store.Save(vec.Vec2{X: x}, "new", testPayload{Visible: x}))
	}
	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 6, count)

	require.NoError(t, store.Delete(vec.Vec2{X: 0}, "new"))
	require.NoError(t, store.Delete(vec.Vec2{X: 9}, "new"), "удаление отсутствующей записи не ошибка")

	dropped, err := store.DropStale("new")
	require.NoError(t, err)
	assert.Equal(t, 3, dropped)

	count, err = store.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMeshStore_Closed(t *testing.T) {
	store, err := NewInMemoryMeshStore()
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close(), "повторное закрытие безопасно")

	var out testPayload
	_, err = store.Load(vec.Vec2{}, "h", &out)
	assert.ErrorIs(t, err, ErrStoreClosed)
	assert.ErrorIs(t, store.Save(vec.Vec2{}, "h", out), ErrStoreClosed)
	_, err = store.Count()
	assert.ErrorIs(t, err, ErrStoreClosed)
}
