// Package mcpserver exposes the RAG pipeline as MCP tools.
package mcpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"pdf-rag/internal/models"
)

const Version = "0.1.0"

type Pipeline interface {
	IngestDocument(ctx context.Context, userID, fileName string, data []byte) (*models.IngestResult, error)
	Ask(ctx context.Context, userID, question string) (*models.Answer, error)
}

type Server struct {
	pipeline Pipeline
	server   *mcp.Server
}

func NewServer(pipeline Pipeline) (*Server, error) {
	if pipeline == nil {
		return nil, errors.New("pipeline is required")
	}

	s := &Server{
		pipeline: pipeline,
		server:   mcp.NewServer(&mcp.Implementation{Name: "pdf-rag", Version: Version}, nil),
	}
	s.registerTools()
	return s, nil
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the streamable HTTP transport on addr.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background()) //nolint:errcheck
	}()

	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
