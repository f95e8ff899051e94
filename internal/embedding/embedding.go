// Package embedding converts text into vectors through interchangeable
// remote providers. Callers depend on Client only; the concrete adapter is
// picked by New from Settings.
package embedding

import (
	"context"

	"go.uber.org/zap"
)

// Client generates vector embeddings from text.
//
// Embed returns exactly one vector per input text, in input order, or an
// error and no vectors at all. EmbedOne is equivalent to Embed with a
// one-element slice. Implementations in this package are safe for
// concurrent use.
type Client interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// Named is implemented by clients that can describe themselves for logs
// and health output.
type Named interface {
	Name() string
}

// NameOf returns c's Name when it implements Named, and "unknown" otherwise.
func NameOf(c Client) string {
	if n, ok := c.(Named); ok {
		return n.Name()
	}
	return "unknown"
}

func nopIfNil(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
