package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nidhogg/nuka-embed/internal/embedding"
	"github.com/nidhogg/nuka-embed/internal/retrieval"
	"go.uber.org/zap"
)

const maxBodyBytes = 8 << 20

// Retriever is the document index behind /api/documents and /api/search.
type Retriever interface {
	Add(ctx context.Context, docs []retrieval.Document) ([]string, error)
	Search(ctx context.Context, query string, topK int) ([]retrieval.Result, error)
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	embedder embedding.Client
	index    Retriever
	logger   *zap.Logger
}

// NewHandler creates a new API handler. index may be nil, in which case the
// retrieval routes answer 503.
func NewHandler(embedder embedding.Client, index Retriever, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{embedder: embedder, index: index, logger: logger}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)
		r.Post("/embeddings", h.embed)
		r.Post("/embeddings/one", h.embedOne)
		r.Post("/documents", h.addDocuments)
		r.Post("/search", h.search)
	})

	return r
}

type embedRequest struct {
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Count      int         `json:"count"`
	Dimension  int         `json:"dimension"`
}

type embedOneRequest struct {
	Text string `json:"text"`
}

type embedOneResponse struct {
	Embedding []float32 `json:"embedding"`
	Dimension int       `json:"dimension"`
}

type documentsRequest struct {
	Documents []retrieval.Document `json:"documents"`
}

type documentsResponse struct {
	IDs   []string `json:"ids"`
	Count int      `json:"count"`
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type searchResponse struct {
	Results []retrieval.Result `json:"results"`
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"provider": embedding.NameOf(h.embedder),
	})
}

func (h *Handler) embed(w http.ResponseWriter, r *http.Request) {
	var req embedRequest
	if !h.decode(w, r, &req) {
		return
	}
	vectors, err := h.embedder.Embed(r.Context(), req.Texts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	writeJSON(w, http.StatusOK, embedResponse{Embeddings: vectors, Count: len(vectors), Dimension: dim})
}

func (h *Handler) embedOne(w http.ResponseWriter, r *http.Request) {
	var req embedOneRequest
	if !h.decode(w, r, &req) {
		return
	}
	vec, err := h.embedder.EmbedOne(r.Context(), req.Text)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, embedOneResponse{Embedding: vec, Dimension: len(vec)})
}

func (h *Handler) addDocuments(w http.ResponseWriter, r *http.Request) {
	if h.index == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "retrieval index not configured"})
		return
	}
	var req documentsRequest
	if !h.decode(w, r, &req) {
		return
	}
	ids, err := h.index.Add(r.Context(), req.Documents)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, documentsResponse{IDs: ids, Count: len(ids)})
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	if h.index == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "retrieval index not configured"})
		return
	}
	var req searchRequest
	if !h.decode(w, r, &req) {
		return
	}
	results, err := h.index.Search(r.Context(), req.Query, req.TopK)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: results})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// writeError maps embedding errors to HTTP status codes.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Int("status", status),
			zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	if embedding.IsInvalidInput(err) {
		return http.StatusBadRequest
	}
	if pe, ok := embedding.AsProviderError(err); ok {
		if pe.Timeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
