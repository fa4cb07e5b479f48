package mcpserver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"pdf-rag/internal/models"
)

type AskInput struct {
	UserID   string `json:"user_id" jsonschema:"owner of the documents to search"`
	Question string `json:"question" jsonschema:"the question to answer from the documents"`
}

type AskOutput struct {
	Answer      string   `json:"answer"`
	SourcesUsed int      `json:"sources_used"`
	Sources     []string `json:"sources,omitempty"`
}

type IngestFileInput struct {
	UserID string `json:"user_id" jsonschema:"owner of the document"`
	Path   string `json:"path" jsonschema:"local path of a pdf, docx, pptx, xlsx, markdown or text file"`
}

type IngestFileOutput struct {
	ChunksCount int    `json:"chunks_count"`
	FileName    string `json:"file_name"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using only the user's ingested documents",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_file",
		Description: "Extract, chunk, embed and store a local document for a user",
	}, s.handleIngestFile)
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.pipeline.Ask(ctx, input.UserID, input.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}
	return nil, AskOutput{
		Answer:      answer.Text,
		SourcesUsed: answer.SourcesUsed,
		Sources:     answer.Sources,
	}, nil
}

func (s *Server) handleIngestFile(ctx context.Context, _ *mcp.CallToolRequest, input IngestFileInput) (*mcp.CallToolResult, IngestFileOutput, error) {
	if input.Path == "" {
		return nil, IngestFileOutput{}, fmt.Errorf("%w: path is required", models.ErrInvalidInput)
	}
	data, err := os.ReadFile(input.Path)
	if err != nil {
		return nil, IngestFileOutput{}, fmt.Errorf("reading %s: %w", input.Path, err)
	}

	res, err := s.pipeline.IngestDocument(ctx, input.UserID, filepath.Base(input.Path), data)
	if err != nil {
		return nil, IngestFileOutput{}, err
	}
	log.Info().Str("path", input.Path).Int("chunks", res.ChunksCount).Msg("Ingested file over MCP")
	return nil, IngestFileOutput{ChunksCount: res.ChunksCount, FileName: res.FileName}, nil
}
