package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"pdf-rag/internal/helper"
	"pdf-rag/internal/models"
)

const (
	compress = false

	metaUserID      = "user_id"
	metaSource      = "source"
	metaChunkIndex  = "chunk_index"
	metaChunksTotal = "chunks_total"
)

// VectorDBManager keeps chunks in a chromem-go collection.
// In-memory databases are snapshotted to <path>/<collection>.chromem after every Store.
type VectorDBManager struct {
	db            *chromem.DB
	collection    *chromem.Collection
	dbPath        string
	inMemory      bool
	encryptionKey string
	filePath      string
}

// NewVectorDBManager opens the database and its collection. An existing snapshot is
// imported when running in memory.
func NewVectorDBManager(dbPath, collectionName string, inMemory bool, encryptionKey string) (*VectorDBManager, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		if err := helper.CreateFolder(dbPath); err != nil {
			return nil, err
		}
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	m := &VectorDBManager{
		db:            db,
		dbPath:        dbPath,
		inMemory:      inMemory,
		encryptionKey: encryptionKey,
	}
	if dbPath != "" {
		m.filePath = filepath.Join(dbPath, collectionName+".chromem")
	}

	if inMemory && m.filePath != "" {
		if _, err := os.Stat(m.filePath); err == nil {
			if err := m.db.ImportFromFile(m.filePath, m.encryptionKey, collectionName); err != nil {
				return nil, fmt.Errorf("failed to import database: %w", err)
			}
			log.Info().Str("file", m.filePath).Msg("Imported vector snapshot")
		}
	}

	if _, err := m.GetOrCreateCollection(collectionName); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *VectorDBManager) GetOrCreateCollection(collectionName string) (*chromem.Collection, error) {
	c, err := m.db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	m.collection = c
	return c, nil
}

// Count returns the number of stored chunks across all users.
func (m *VectorDBManager) Count() int {
	return m.collection.Count()
}

// Store adds chunks with their precomputed embeddings.
func (m *VectorDBManager) Store(ctx context.Context, chunks []models.Chunk, vectors [][]float32) (int, error) {
	if len(chunks) != len(vectors) {
		return 0, fmt.Errorf("%d chunks but %d embeddings", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for i, c := range chunks {
		id, err := helper.GenerateUUID()
		if err != nil {
			return 0, err
		}
		docs = append(docs, chromem.Document{
			ID:      id,
			Content: c.Content,
			Metadata: map[string]string{
				metaUserID:      c.UserID,
				metaSource:      c.Source,
				metaChunkIndex:  strconv.Itoa(c.Index),
				metaChunksTotal: strconv.Itoa(c.Total),
			},
			Embedding: vectors[i],
		})
	}

	if err := m.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return 0, fmt.Errorf("failed to add documents: %w", err)
	}

	if m.inMemory && m.filePath != "" {
		if err := m.Export(); err != nil {
			return 0, err
		}
	}
	return len(docs), nil
}

// Search returns up to topK chunks owned by userID in descending similarity.
func (m *VectorDBManager) Search(ctx context.Context, userID string, embedding []float32, topK int) ([]models.SearchResult, error) {
	n := min(topK, m.collection.Count())
	if n <= 0 {
		return []models.SearchResult{}, nil
	}

	results, err := m.SearchWithQueryOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: embedding,
		NResults:       n,
		Where:          map[string]string{metaUserID: userID},
	})
	if err != nil {
		return nil, err
	}

	out := make([]models.SearchResult, 0, len(results))
	for _, r := range results {
		idx, _ := strconv.Atoi(r.Metadata[metaChunkIndex])
		total, _ := strconv.Atoi(r.Metadata[metaChunksTotal])
		out = append(out, models.SearchResult{
			Content:     r.Content,
			Source:      r.Metadata[metaSource],
			ChunkIndex:  idx,
			ChunksTotal: total,
			Similarity:  float64(r.Similarity),
		})
	}
	return out, nil
}

func (m *VectorDBManager) SearchWithQueryOptions(ctx context.Context, opts chromem.QueryOptions) ([]chromem.Result, error) {
	if opts.QueryText == "" && opts.QueryEmbedding == nil {
		return nil, errors.New("either query or embedding must be provided")
	}

	results, err := m.collection.QueryWithOptions(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}
	return results, nil
}

func (m *VectorDBManager) DeleteCollection() error {
	if err := m.db.DeleteCollection(m.collection.Name); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}

// Export writes the collection to its snapshot file, encrypted when a key is configured.
func (m *VectorDBManager) Export() error {
	if m.filePath == "" {
		return errors.New("db path is required")
	}
	if err := helper.CreateFolder(m.dbPath); err != nil {
		return err
	}

	log.Debug().Str("collection", m.collection.Name).Str("file", m.filePath).Bool("encrypted", m.encryptionKey != "").Msg("Exporting collection")
	if err := m.db.ExportToFile(m.filePath, compress, m.encryptionKey, m.collection.Name); err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// Import replaces the collection with the snapshot file contents.
func (m *VectorDBManager) Import() error {
	if err := m.db.ImportFromFile(m.filePath, m.encryptionKey, m.collection.Name); err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	// the import swaps the collection pointer held by the db
	_, err := m.GetOrCreateCollection(m.collection.Name)
	return err
}
