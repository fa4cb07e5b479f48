package models

// Chunk represents a normalized slice of a document ready for embedding
type Chunk struct {
	Content string `json:"content"`
	Index   int    `json:"chunk_index"`
	Total   int    `json:"chunks_total"`
	Source  string `json:"source"`
	UserID  string `json:"user_id"`
}

// SearchResult is a chunk returned by the vector index, in rank order
type SearchResult struct {
	Content     string  `json:"content"`
	Source      string  `json:"source,omitempty"`
	ChunkIndex  int     `json:"chunk_index"`
	ChunksTotal int     `json:"chunks_total"`
	Similarity  float64 `json:"similarity"`
}

// IngestResult is returned after a document has been stored
type IngestResult struct {
	Success     bool   `json:"success"`
	ChunksCount int    `json:"chunks_count"`
	UserID      string `json:"user_id"`
	FileName    string `json:"file_name"`
}

// Answer is the outcome of a question against a user's documents
type Answer struct {
	Question    string   `json:"-"`
	Text        string   `json:"answer"`
	SourcesUsed int      `json:"sources_used"`
	Sources     []string `json:"sources,omitempty"`
}
