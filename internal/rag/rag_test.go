package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-rag/internal/chromemdb"
	"pdf-rag/internal/config"
	"pdf-rag/internal/models"
	"pdf-rag/internal/parser"
)

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) ExtractText(string, []byte) (string, error) { return f.text, f.err }

// keywordEmbedder maps text onto counts of a few keywords so similarity is predictable.
type keywordEmbedder struct {
	docCalls   int
	queryCalls int
	err        error
	drop       bool
}

var keywords = []string{"cat", "dog", "bird"}

func embed(text string) []float32 {
	v := make([]float32, len(keywords)+1)
	lower := strings.ToLower(text)
	for i, k := range keywords {
		v[i] = float32(strings.Count(lower, k))
	}
	v[len(keywords)] = 0.01
	return v
}

func (f *keywordEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.docCalls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		out = append(out, embed(t))
	}
	if f.drop {
		out = out[1:]
	}
	return out, nil
}

func (f *keywordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.queryCalls++
	if f.err != nil {
		return nil, f.err
	}
	return embed(text), nil
}

type fakeStore struct {
	chunks    []models.Chunk
	vectors   [][]float32
	results   []models.SearchResult
	storeErr  error
	searchErr error
	lastTopK  int
	lastUser  string
}

func (f *fakeStore) Store(_ context.Context, chunks []models.Chunk, vectors [][]float32) (int, error) {
	if f.storeErr != nil {
		return 0, f.storeErr
	}
	f.chunks = append(f.chunks, chunks...)
	f.vectors = append(f.vectors, vectors...)
	return len(chunks), nil
}

func (f *fakeStore) Search(_ context.Context, userID string, _ []float32, topK int) ([]models.SearchResult, error) {
	f.lastUser = userID
	f.lastTopK = topK
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.results, nil
}

type fakeGenerator struct {
	calls    int
	question string
	contexts []string
	err      error
}

func (f *fakeGenerator) Generate(_ context.Context, question string, contexts []string) (string, error) {
	f.calls++
	f.question = question
	f.contexts = contexts
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("answer from %d passages", len(contexts)), nil
}

var testConfig = config.RAGConfig{ChunkSize: 1000, ChunkOverlap: 150, SearchTopK: 5}

func newRAG(t *testing.T, ex Extractor, em Embedder, st VectorStore, gen Generator) *RAG {
	t.Helper()
	r, err := NewRAG(testConfig, ex, em, st, gen)
	require.NoError(t, err)
	return r
}

// exactlyThirty passes the extraction threshold but no chunk of it is long enough to keep.
const exactlyThirty = "abcdefghijklmnopqrstuvwxyz0123"

const longText = "Cats sleep most of the day and hunt at night.\n\n\n\nDogs were domesticated thousands of years ago."

func TestNewRAG_InvalidConfig(t *testing.T) {
	for _, cfg := range []config.RAGConfig{
		{ChunkSize: 100, ChunkOverlap: 100, SearchTopK: 5},
		{ChunkSize: 0, ChunkOverlap: 0, SearchTopK: 5},
		{ChunkSize: 100, ChunkOverlap: 10, SearchTopK: 0},
	} {
		_, err := NewRAG(cfg, nil, nil, nil, nil)
		assert.ErrorIs(t, err, models.ErrConfigInvalid, "%+v", cfg)
	}
}

func TestIngestDocument(t *testing.T) {
	store := &fakeStore{}
	em := &keywordEmbedder{}
	r := newRAG(t, &fakeExtractor{text: longText}, em, store, &fakeGenerator{})

	res, err := r.IngestDocument(context.Background(), "alice", "pets.pdf", []byte("%PDF"))
	require.NoError(t, err)

	assert.Equal(t, &models.IngestResult{Success: true, ChunksCount: 1, UserID: "alice", FileName: "pets.pdf"}, res)
	require.Len(t, store.chunks, 1)
	assert.Equal(t, models.Chunk{
		Content: "Cats sleep most of the day and hunt at night.\n\nDogs were domesticated thousands of years ago.",
		Index:   0,
		Total:   1,
		Source:  "pets.pdf",
		UserID:  "alice",
	}, store.chunks[0])
	assert.Len(t, store.vectors, 1)
	assert.Equal(t, 1, em.docCalls)
}

func TestIngestText_ChunkMetadata(t *testing.T) {
	store := &fakeStore{}
	r, err := NewRAG(config.RAGConfig{ChunkSize: 60, ChunkOverlap: 10, SearchTopK: 5}, nil, &keywordEmbedder{}, store, nil)
	require.NoError(t, err)

	text := strings.Join([]string{
		"First paragraph about cats that is long enough.",
		"Second paragraph about dogs that is long enough.",
		"Third paragraph about birds that is long enough.",
	}, "\n\n")

	res, err := r.IngestText(context.Background(), "alice", "notes.txt", text)
	require.NoError(t, err)
	assert.Equal(t, 3, res.ChunksCount)

	require.Len(t, store.chunks, 3)
	for i, c := range store.chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, 3, c.Total)
		assert.Equal(t, "notes.txt", c.Source)
		assert.Equal(t, "alice", c.UserID)
	}
	assert.Contains(t, store.chunks[2].Content, "birds")
}

func TestIngestDocument_Failures(t *testing.T) {
	boom := errors.New("connection reset")

	tests := []struct {
		name    string
		userID  string
		ex      *fakeExtractor
		em      *keywordEmbedder
		st      *fakeStore
		wantErr error
	}{
		{"missing user", "", &fakeExtractor{text: longText}, &keywordEmbedder{}, &fakeStore{}, models.ErrInvalidInput},
		{"unsupported format", "u", &fakeExtractor{err: fmt.Errorf("%w: unsupported file format: .exe", models.ErrInvalidInput)}, &keywordEmbedder{}, &fakeStore{}, models.ErrInvalidInput},
		{"extractor error", "u", &fakeExtractor{err: boom}, &keywordEmbedder{}, &fakeStore{}, models.ErrExtraction},
		{"image only pdf", "u", &fakeExtractor{text: "  \n 12 \n"}, &keywordEmbedder{}, &fakeStore{}, models.ErrExtraction},
		{"nothing survives chunking", "u", &fakeExtractor{text: exactlyThirty}, &keywordEmbedder{}, &fakeStore{}, models.ErrChunking},
		{"embedding fails", "u", &fakeExtractor{text: longText}, &keywordEmbedder{err: boom}, &fakeStore{}, models.ErrUpstream},
		{"embedding count mismatch", "u", &fakeExtractor{text: longText}, &keywordEmbedder{drop: true}, &fakeStore{}, models.ErrUpstream},
		{"store fails", "u", &fakeExtractor{text: longText}, &keywordEmbedder{}, &fakeStore{storeErr: boom}, models.ErrUpstream},
		{"table missing", "u", &fakeExtractor{text: longText}, &keywordEmbedder{}, &fakeStore{storeErr: fmt.Errorf("%w: relation \"documents\" does not exist", models.ErrSchemaMissing)}, models.ErrSchemaMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRAG(t, tt.ex, tt.em, tt.st, &fakeGenerator{})
			res, err := r.IngestDocument(context.Background(), tt.userID, "doc.pdf", []byte("x"))
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestIngest_SchemaMissingIsNotUpstream(t *testing.T) {
	st := &fakeStore{storeErr: fmt.Errorf("%w: 42P01", models.ErrSchemaMissing)}
	r := newRAG(t, &fakeExtractor{text: longText}, &keywordEmbedder{}, st, &fakeGenerator{})

	_, err := r.IngestDocument(context.Background(), "u", "doc.pdf", nil)
	assert.ErrorIs(t, err, models.ErrSchemaMissing)
	assert.NotErrorIs(t, err, models.ErrUpstream)
}

func TestIngest_ChunkingRunsBeforeEmbedding(t *testing.T) {
	em := &keywordEmbedder{}
	r := newRAG(t, &fakeExtractor{text: exactlyThirty}, em, &fakeStore{}, &fakeGenerator{})

	_, err := r.IngestDocument(context.Background(), "u", "doc.pdf", nil)
	require.ErrorIs(t, err, models.ErrChunking)
	assert.Zero(t, em.docCalls)
}

func TestAsk_EmptyRetrievalSkipsGenerator(t *testing.T) {
	gen := &fakeGenerator{}
	st := &fakeStore{}
	r := newRAG(t, nil, &keywordEmbedder{}, st, gen)

	ans, err := r.Ask(context.Background(), "alice", "What do cats eat?")
	require.NoError(t, err)

	assert.Equal(t, models.NoRelevantInformation, ans.Text)
	assert.Equal(t, 0, ans.SourcesUsed)
	assert.Empty(t, ans.Sources)
	assert.Zero(t, gen.calls)
	assert.Equal(t, "alice", st.lastUser)
	assert.Equal(t, 5, st.lastTopK)
}

func TestAsk_PassesRankOrderThrough(t *testing.T) {
	gen := &fakeGenerator{}
	st := &fakeStore{results: []models.SearchResult{
		{Content: "third best by id but ranked first", Source: "b.pdf", Similarity: 0.2},
		{Content: "ranked second", Source: "a.pdf", Similarity: 0.9},
		{Content: "ranked third", Source: "b.pdf", Similarity: 0.5},
	}}
	r := newRAG(t, nil, &keywordEmbedder{}, st, gen)

	ans, err := r.AskTopK(context.Background(), "alice", "Where?", 3)
	require.NoError(t, err)

	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, "Where?", gen.question)
	assert.Equal(t, []string{"third best by id but ranked first", "ranked second", "ranked third"}, gen.contexts)
	assert.Equal(t, "answer from 3 passages", ans.Text)
	assert.Equal(t, 3, ans.SourcesUsed)
	assert.Equal(t, []string{"b.pdf", "a.pdf"}, ans.Sources)
	assert.Equal(t, 3, st.lastTopK)
}

func TestAsk_Failures(t *testing.T) {
	boom := errors.New("timeout")

	r := newRAG(t, nil, &keywordEmbedder{err: boom}, &fakeStore{}, &fakeGenerator{})
	_, err := r.Ask(context.Background(), "u", "q")
	assert.ErrorIs(t, err, models.ErrUpstream)

	r = newRAG(t, nil, &keywordEmbedder{}, &fakeStore{searchErr: boom}, &fakeGenerator{})
	_, err = r.Ask(context.Background(), "u", "q")
	assert.ErrorIs(t, err, models.ErrUpstream)
	assert.ErrorIs(t, err, boom)

	r = newRAG(t, nil, &keywordEmbedder{}, &fakeStore{searchErr: fmt.Errorf("%w: match_documents", models.ErrSchemaMissing)}, &fakeGenerator{})
	_, err = r.Ask(context.Background(), "u", "q")
	assert.ErrorIs(t, err, models.ErrSchemaMissing)

	gen := &fakeGenerator{err: boom}
	r = newRAG(t, nil, &keywordEmbedder{}, &fakeStore{results: []models.SearchResult{{Content: "c"}}}, gen)
	_, err = r.Ask(context.Background(), "u", "q")
	assert.ErrorIs(t, err, models.ErrUpstream)

	_, err = r.Ask(context.Background(), "u", "   ")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	_, err = r.Ask(context.Background(), "", "q")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestRetrieve_NilResultsBecomeEmpty(t *testing.T) {
	r := newRAG(t, nil, nil, &fakeStore{}, nil)

	ret, err := r.Retrieve(context.Background(), "u", []float32{1}, 0)
	require.NoError(t, err)
	assert.NotNil(t, ret.Chunks)
	assert.Equal(t, 0, ret.ResultCount)
}

func TestPipeline_WithChromem(t *testing.T) {
	store, err := chromemdb.NewVectorDBManager("", "documents", true, "")
	require.NoError(t, err)
	gen := &fakeGenerator{}
	r := newRAG(t, parser.New(), &keywordEmbedder{}, store, gen)
	ctx := context.Background()

	_, err = r.IngestDocument(ctx, "alice", "cats.txt", []byte("A cat is a small carnivorous mammal. The cat purrs.\n\nDogs are not discussed in this cat document."))
	require.NoError(t, err)
	_, err = r.IngestDocument(ctx, "alice", "birds.md", []byte("# Birds\n\nEvery bird has feathers and most bird species can fly."))
	require.NoError(t, err)
	_, err = r.IngestDocument(ctx, "bob", "bob.txt", []byte("Bob keeps a private diary about his cat and his bird."))
	require.NoError(t, err)

	ans, err := r.Ask(ctx, "alice", "Tell me about the cat")
	require.NoError(t, err)
	assert.Equal(t, "cats.txt", ans.Sources[0])
	assert.NotContains(t, ans.Sources, "bob.txt")

	ans, err = r.Ask(ctx, "carol", "Tell me about the cat")
	require.NoError(t, err)
	assert.Equal(t, models.NoRelevantInformation, ans.Text)
	assert.Equal(t, 1, gen.calls)
}
