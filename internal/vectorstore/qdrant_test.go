package vectorstore

import (
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
)

func TestPayloadConversion(t *testing.T) {
	in := map[string]string{"content": "hello", "source": "notes.md"}
	pbPayload := toPayload(in)
	if len(pbPayload) != 2 {
		t.Fatalf("got %d payload entries, want 2", len(pbPayload))
	}
	if got := pbPayload["content"].GetStringValue(); got != "hello" {
		t.Errorf("got content %q, want hello", got)
	}

	pbPayload["count"] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: 3}}
	out := fromPayload(pbPayload)
	if len(out) != 2 {
		t.Errorf("non-string values should be dropped, got %v", out)
	}
	if out["source"] != "notes.md" {
		t.Errorf("got source %q, want notes.md", out["source"])
	}
}

func TestNewClientIsLazy(t *testing.T) {
	c, err := NewClient(QdrantConfig{Host: "127.0.0.1", Port: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}
