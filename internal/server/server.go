// Package server exposes ingestion and chat over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"pdf-rag/internal/config"
	"pdf-rag/internal/models"
	"pdf-rag/internal/parser"
)

// Pipeline is the part of the RAG coordinator the HTTP layer drives.
type Pipeline interface {
	IngestDocument(ctx context.Context, userID, fileName string, data []byte) (*models.IngestResult, error)
	Ask(ctx context.Context, userID, question string) (*models.Answer, error)
}

type Server struct {
	pipeline  Pipeline
	cfg       config.ServerConfig
	maxUpload int64
}

func New(pipeline Pipeline, cfg config.ServerConfig) *Server {
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 50
	}
	return &Server{
		pipeline:  pipeline,
		cfg:       cfg,
		maxUpload: int64(cfg.MaxUploadMB) << 20,
	}
}

type ingestPDFRequest struct {
	UserID    string `json:"user_id"`
	PDFBase64 string `json:"pdf_base64"`
	FileName  string `json:"file_name"`
}

type chatRequest struct {
	UserID   string `json:"user_id"`
	Question string `json:"question"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Handler returns the routed API wrapped in CORS and request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.rootHandler)
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("POST /ingest/pdf", s.ingestPDFHandler)
	mux.HandleFunc("POST /ingest/upload", s.uploadHandler)
	mux.HandleFunc("POST /chat", s.chatHandler)

	var h http.Handler = cors(mux)
	h = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Request")
	})(h)
	h = hlog.RequestIDHandler("req_id", "X-Request-Id")(h)
	h = hlog.RemoteAddrHandler("ip")(h)
	return hlog.NewHandler(log.Logger)(h)
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: time.Duration(s.cfg.ReadHeaderTimeoutSecs) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "pdf-rag",
		"endpoints": []string{
			"GET /health",
			"POST /ingest/pdf",
			"POST /ingest/upload",
			"POST /chat",
		},
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ingestPDFHandler(w http.ResponseWriter, r *http.Request) {
	// base64 inflates the payload by a third
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload/3*4+4096)

	var req ingestPDFRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, badRequest("invalid json"))
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, r, badRequest("user_id is required"))
		return
	}
	if strings.TrimSpace(req.PDFBase64) == "" {
		writeError(w, r, badRequest("pdf_base64 is required"))
		return
	}

	data, err := parser.DecodeBase64PDF(req.PDFBase64)
	if err != nil {
		writeError(w, r, err)
		return
	}

	name := req.FileName
	if strings.TrimSpace(name) == "" {
		name = models.DefaultUploadName
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		name += ".pdf"
	}

	res, err := s.pipeline.IngestDocument(r.Context(), req.UserID, name, data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+1<<20)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		writeError(w, r, badRequest("failed to parse form"))
		return
	}

	userID := r.FormValue("user_id")
	if strings.TrimSpace(userID) == "" {
		writeError(w, r, badRequest("user_id is required"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, badRequest("missing file field"))
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		writeError(w, r, badRequest("only .pdf files are accepted"))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, badRequest("failed to read file"))
		return
	}
	if len(data) == 0 {
		writeError(w, r, badRequest("file is empty"))
		return
	}

	res, err := s.pipeline.IngestDocument(r.Context(), userID, filepath.Base(header.Filename), data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, badRequest("invalid json"))
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, r, badRequest("user_id is required"))
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, r, badRequest("question is required"))
		return
	}

	answer, err := s.pipeline.Ask(r.Context(), req.UserID, req.Question)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}
