package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-rag/internal/config"
	"pdf-rag/internal/models"
)

func TestRootCommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "ingest", "ask", "chat", "mcp", "watch", "init-db"} {
		assert.Contains(t, names, want)
	}
}

func TestSetupLogger(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	setupLogger(config.LogConfig{Level: "DEBUG", Format: "json"})
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	setupLogger(config.LogConfig{Level: "loud", Format: "console"})
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestIngestDryRun(t *testing.T) {
	for _, key := range []string{"CHUNK_SIZE", "CHUNK_OVERLAP", "SEARCH_TOP_K", "VECTOR_STORE", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("rag:\n  chunk_size: 200\n  chunk_overlap: 20\n"), 0o644))

	doc := filepath.Join(dir, "notes.txt")
	text := strings.Repeat("A paragraph long enough to be kept as its own chunk. ", 3) + "\n\n" +
		strings.Repeat("Another paragraph that also easily passes the filter. ", 3)
	require.NoError(t, os.WriteFile(doc, []byte(text), 0o644))

	rootCmd.SetArgs([]string{"--config", cfgPath, "ingest", "--dry-run", "--user", "alice", doc})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, 200, cfg.RAG.ChunkSize)

	chunks, err := dryRunChunks("notes.txt", []byte(text))
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, models.Chunk{Content: chunks[0].Content, Index: 0, Total: 2, Source: "notes.txt", UserID: "alice"}, chunks[0])
}
