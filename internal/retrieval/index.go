package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nidhogg/nuka-embed/internal/embedding"
	"github.com/nidhogg/nuka-embed/internal/vectorstore"
	"go.uber.org/zap"
)

const (
	DefaultBatchSize = 32
	DefaultTopK      = 5

	payloadContent   = "content"
	payloadIndexedAt = "indexed_at"
)

// ErrEmptyQuery is returned by Search for a blank query.
var ErrEmptyQuery = errors.New("retrieval: query cannot be empty")

// Store is the subset of vectorstore.Client used by Index.
type Store interface {
	EnsureCollection(ctx context.Context, name string, dimension uint64) error
	Upsert(ctx context.Context, collection string, points []vectorstore.Point) error
	Search(ctx context.Context, collection string, vector []float32, topK uint64) ([]vectorstore.SearchResult, error)
}

// Document is a piece of text to index with optional string metadata.
type Document struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Result holds a single retrieval hit.
type Result struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Score    float32           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Index embeds documents with any embedding.Client and stores them in a
// single vector collection.
type Index struct {
	embedder   embedding.Client
	store      Store
	collection string
	batchSize  int
	logger     *zap.Logger

	mu    sync.Mutex
	ready bool
	now   func() time.Time
}

// NewIndex creates an Index. batchSize below 1 selects DefaultBatchSize.
func NewIndex(embedder embedding.Client, store Store, collection string, batchSize int, logger *zap.Logger) *Index {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{
		embedder:   embedder,
		store:      store,
		collection: collection,
		batchSize:  batchSize,
		logger:     logger,
		now:        time.Now,
	}
}

// Collection returns the backing collection name.
func (x *Index) Collection() string { return x.collection }

// Add embeds and stores docs, returning the assigned ids in input order.
// Batches already written stay written if a later batch fails.
func (x *Index) Add(ctx context.Context, docs []Document) ([]string, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: documents list cannot be empty", embedding.ErrInvalidInput)
	}

	ids := make([]string, 0, len(docs))
	for start := 0; start < len(docs); start += x.batchSize {
		end := min(start+x.batchSize, len(docs))
		batch := docs[start:end]

		texts := make([]string, len(batch))
		for i, d := range batch {
			texts[i] = d.Content
		}
		vectors, err := x.embedder.Embed(ctx, texts)
		if err != nil {
			return ids, fmt.Errorf("embed documents %d-%d: %w", start, end-1, err)
		}
		if err := x.ensureCollection(ctx, vectors[0]); err != nil {
			return ids, err
		}

		indexedAt := x.now().UTC().Format(time.RFC3339)
		points := make([]vectorstore.Point, len(batch))
		for i, d := range batch {
			payload := make(map[string]string, len(d.Metadata)+2)
			for k, v := range d.Metadata {
				payload[k] = v
			}
			payload[payloadContent] = d.Content
			payload[payloadIndexedAt] = indexedAt
			points[i] = vectorstore.Point{
				ID:      uuid.New().String(),
				Vector:  vectors[i],
				Payload: payload,
			}
		}
		if err := x.store.Upsert(ctx, x.collection, points); err != nil {
			return ids, fmt.Errorf("store documents %d-%d: %w", start, end-1, err)
		}
		for _, p := range points {
			ids = append(ids, p.ID)
		}
		x.logger.Debug("indexed document batch",
			zap.String("collection", x.collection),
			zap.Int("from", start),
			zap.Int("count", len(batch)))
	}
	x.logger.Info("indexed documents", zap.String("collection", x.collection), zap.Int("count", len(ids)))
	return ids, nil
}

// Search embeds query and returns the topK nearest documents by descending
// score. topK below 1 selects DefaultTopK.
func (x *Index) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: %w", embedding.ErrInvalidInput, ErrEmptyQuery)
	}
	if topK < 1 {
		topK = DefaultTopK
	}

	qvec, err := x.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := x.store.Search(ctx, x.collection, qvec, uint64(topK))
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		meta := make(map[string]string, len(h.Payload))
		for k, v := range h.Payload {
			if k == payloadContent {
				continue
			}
			meta[k] = v
		}
		results = append(results, Result{
			ID:       h.ID,
			Content:  h.Payload[payloadContent],
			Score:    h.Score,
			Metadata: meta,
		})
	}
	return results, nil
}

func (x *Index) ensureCollection(ctx context.Context, sample []float32) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.ready {
		return nil
	}
	if err := x.store.EnsureCollection(ctx, x.collection, uint64(len(sample))); err != nil {
		return fmt.Errorf("init collection %s: %w", x.collection, err)
	}
	x.ready = true
	return nil
}
