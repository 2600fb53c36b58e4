package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactStore_Create(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	store := NewArtifactStore(dir)

	path, err := store.Create("inventory-report.md", []byte("# Inventory\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "inventory-report.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Inventory\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must be cleaned up")
}

func TestArtifactStore_NeverOverwrites(t *testing.T) {
	store := NewArtifactStore(t.TempDir())

	path, err := store.Create("report.json", []byte(`{"v":1}`))
	require.NoError(t, err)

	_, err = store.Create("report.json", []byte(`{"v":2}`))
	assert.ErrorIs(t, err, ErrArtifactExists)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"v":1}`, string(data))
}

func TestArtifactStore_InvalidName(t *testing.T) {
	store := NewArtifactStore(t.TempDir())

	for _, name := range []string{"", "../escape.md", "nested/report.md"} {
		_, err := store.Create(name, []byte("x"))
		assert.Error(t, err, name)
	}
}

func TestArtifactStore_ConcurrentSameName(t *testing.T) {
	store := NewArtifactStore(t.TempDir())

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Create("race.html", []byte(fmt.Sprintf("writer %d", i)))
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, created)
}

func TestVerifyFileIntegrity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0644))

	assert.NoError(t, verifyFileIntegrity(path, []byte("abc")))
	assert.Error(t, verifyFileIntegrity(path, []byte("abd")))
}
