package chromemdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-rag/internal/models"
)

func seed(t *testing.T, m *VectorDBManager) {
	t.Helper()
	chunks := []models.Chunk{
		{Content: "cats purr when content", Index: 0, Total: 3, Source: "pets.pdf", UserID: "alice"},
		{Content: "dogs bark at strangers", Index: 1, Total: 3, Source: "pets.pdf", UserID: "alice"},
		{Content: "birds migrate south", Index: 2, Total: 3, Source: "pets.pdf", UserID: "alice"},
		{Content: "bob's private notes", Index: 0, Total: 1, Source: "bob.pdf", UserID: "bob"},
	}
	vectors := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 0, 0}}

	n, err := m.Store(context.Background(), chunks, vectors)
	require.NoError(t, err)
	require.Equal(t, 4, n)
}

func TestSearch_EmptyCollection(t *testing.T) {
	m, err := NewVectorDBManager("", "documents", true, "")
	require.NoError(t, err)

	results, err := m.Search(context.Background(), "alice", []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_RanksAndScopesByUser(t *testing.T) {
	m, err := NewVectorDBManager("", "documents", true, "")
	require.NoError(t, err)
	seed(t, m)

	results, err := m.Search(context.Background(), "alice", []float32{0.9, 0.3, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "cats purr when content", results[0].Content)
	assert.Equal(t, "dogs bark at strangers", results[1].Content)
	assert.GreaterOrEqual(t, results[0].Similarity, results[1].Similarity)
	assert.Equal(t, "pets.pdf", results[0].Source)
	assert.Equal(t, 0, results[0].ChunkIndex)
	assert.Equal(t, 3, results[0].ChunksTotal)

	for _, r := range results {
		assert.NotEqual(t, "bob's private notes", r.Content)
	}
}

func TestSearch_TopKLargerThanCollection(t *testing.T) {
	m, err := NewVectorDBManager("", "documents", true, "")
	require.NoError(t, err)
	seed(t, m)

	results, err := m.Search(context.Background(), "alice", []float32{0, 0, 1}, 50)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, "birds migrate south", results[0].Content)

	results, err = m.Search(context.Background(), "carol", []float32{0, 0, 1}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStore_LengthMismatch(t *testing.T) {
	m, err := NewVectorDBManager("", "documents", true, "")
	require.NoError(t, err)

	_, err = m.Store(context.Background(), []models.Chunk{{Content: "x"}}, nil)
	assert.Error(t, err)
	assert.Equal(t, 0, m.Count())
}

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	key := "0123456789abcdef0123456789abcdef"

	m, err := NewVectorDBManager(dir, "documents", true, key)
	require.NoError(t, err)
	seed(t, m)
	assert.FileExists(t, filepath.Join(dir, "documents.chromem"))

	reopened, err := NewVectorDBManager(dir, "documents", true, key)
	require.NoError(t, err)
	assert.Equal(t, 4, reopened.Count())

	results, err := reopened.Search(context.Background(), "bob", []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "bob.pdf", results[0].Source)
}

func TestPersistentDB(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")

	m, err := NewVectorDBManager(dir, "documents", false, "")
	require.NoError(t, err)
	seed(t, m)

	reopened, err := NewVectorDBManager(dir, "documents", false, "")
	require.NoError(t, err)
	assert.Equal(t, 4, reopened.Count())
}

func TestDeleteCollection(t *testing.T) {
	m, err := NewVectorDBManager("", "documents", true, "")
	require.NoError(t, err)
	seed(t, m)

	require.NoError(t, m.DeleteCollection())
	_, err = m.GetOrCreateCollection("documents")
	require.NoError(t, err)
	assert.Equal(t, 0, m.Count())
}
