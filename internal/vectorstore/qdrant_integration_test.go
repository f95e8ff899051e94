//go:build integration

package vectorstore

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	tcqdrant "github.com/testcontainers/testcontainers-go/modules/qdrant"
)

// startQdrant starts a Qdrant testcontainer and returns its gRPC config.
func startQdrant(t *testing.T, ctx context.Context) QdrantConfig {
	t.Helper()
	container, err := tcqdrant.Run(ctx, "qdrant/qdrant:v1.13.4")
	if err != nil {
		_ = testcontainers.TerminateContainer(container)
		t.Fatalf("start qdrant: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate qdrant: %v", err)
		}
	})

	endpoint, err := container.GRPCEndpoint(ctx)
	if err != nil {
		t.Fatalf("qdrant grpc endpoint: %v", err)
	}
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		t.Fatalf("parse endpoint %s: %v", endpoint, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port %s: %v", portStr, err)
	}
	return QdrantConfig{Host: host, Port: port}
}

func TestQdrantRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	c, err := NewClient(startQdrant(t, ctx))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer c.Close()

	const coll = "integration"
	if err := c.EnsureCollection(ctx, coll, 3); err != nil {
		t.Fatalf("ensure collection: %v", err)
	}
	// Second call is a no-op.
	if err := c.EnsureCollection(ctx, coll, 3); err != nil {
		t.Fatalf("ensure existing collection: %v", err)
	}

	near := uuid.New().String()
	points := []Point{
		{ID: near, Vector: []float32{1, 0, 0}, Payload: map[string]string{"content": "x axis"}},
		{ID: uuid.New().String(), Vector: []float32{0, 1, 0}, Payload: map[string]string{"content": "y axis"}},
		{ID: uuid.New().String(), Vector: []float32{0, 0, 1}, Payload: map[string]string{"content": "z axis"}},
	}
	if err := c.Upsert(ctx, coll, points); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	hits, err := c.Search(ctx, coll, []float32{0.9, 0.1, 0}, 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].ID != near || hits[0].Payload["content"] != "x axis" {
		t.Errorf("unexpected top hit: %+v", hits[0])
	}
	if hits[0].Score < hits[1].Score {
		t.Errorf("hits not ordered by score: %v >= %v", hits[0].Score, hits[1].Score)
	}
}
