package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// previewLen is how many vector components embed prints per text.
const previewLen = 5

type document struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type result struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Score    float32           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func newHealthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health and the active embedding provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var body map[string]string
			raw, err := opts.client().call(cmd.Context(), http.MethodGet, "/api/health", nil, &body)
			if err != nil {
				return err
			}
			if opts.json {
				return writeRaw(cmd.OutOrStdout(), raw)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "status: %s\nprovider: %s\n", body["status"], body["provider"])
			return nil
		},
	}
}

func newEmbedCmd(opts *options) *cobra.Command {
	var one bool
	cmd := &cobra.Command{
		Use:   "embed TEXT...",
		Short: "Embed one or more texts",
		Long: `Embed the given texts in a single batch request. With --one, exactly
one text is embedded through the single-text endpoint.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := opts.client()
			out := cmd.OutOrStdout()
			if one {
				if len(args) != 1 {
					return fmt.Errorf("--one takes exactly one text, got %d", len(args))
				}
				var resp struct {
					Embedding []float32 `json:"embedding"`
					Dimension int       `json:"dimension"`
				}
				raw, err := c.call(cmd.Context(), http.MethodPost, "/api/embeddings/one", map[string]string{"text": args[0]}, &resp)
				if err != nil {
					return err
				}
				if opts.json {
					return writeRaw(out, raw)
				}
				fmt.Fprintf(out, "[0] dim=%d %s\n", resp.Dimension, preview(resp.Embedding))
				return nil
			}

			var resp struct {
				Embeddings [][]float32 `json:"embeddings"`
				Count      int         `json:"count"`
				Dimension  int         `json:"dimension"`
			}
			raw, err := c.call(cmd.Context(), http.MethodPost, "/api/embeddings", map[string][]string{"texts": args}, &resp)
			if err != nil {
				return err
			}
			if opts.json {
				return writeRaw(out, raw)
			}
			for i, v := range resp.Embeddings {
				fmt.Fprintf(out, "[%d] dim=%d %s\n", i, len(v), preview(v))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&one, "one", false, "use the single-text endpoint")
	return cmd
}

func newIndexCmd(opts *options) *cobra.Command {
	var (
		texts []string
		meta  map[string]string
	)
	cmd := &cobra.Command{
		Use:   "index [FILE...]",
		Short: "Index files or inline texts as documents",
		Long: `Each FILE becomes one document whose "source" metadata is the file path.
Inline documents can be given with --text. --meta key=value pairs are added
to every document.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			docs := make([]document, 0, len(args)+len(texts))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				docs = append(docs, document{
					Content:  string(data),
					Metadata: withMeta(meta, "source", filepath.ToSlash(path)),
				})
			}
			for _, t := range texts {
				docs = append(docs, document{Content: t, Metadata: withMeta(meta, "", "")})
			}
			if len(docs) == 0 {
				return fmt.Errorf("nothing to index: pass files or --text")
			}

			var resp struct {
				IDs   []string `json:"ids"`
				Count int      `json:"count"`
			}
			raw, err := opts.client().call(cmd.Context(), http.MethodPost, "/api/documents", map[string][]document{"documents": docs}, &resp)
			if err != nil {
				return err
			}
			if opts.json {
				return writeRaw(cmd.OutOrStdout(), raw)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d documents\n", resp.Count)
			for _, id := range resp.IDs {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&texts, "text", nil, "inline document text (repeatable)")
	cmd.Flags().StringToStringVar(&meta, "meta", nil, "metadata key=value added to every document")
	return cmd
}

func newSearchCmd(opts *options) *cobra.Command {
	var topK int
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search indexed documents by similarity",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			var resp struct {
				Results []result `json:"results"`
			}
			raw, err := opts.client().call(cmd.Context(), http.MethodPost, "/api/search", map[string]any{"query": query, "top_k": topK}, &resp)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.json {
				return writeRaw(out, raw)
			}
			if len(resp.Results) == 0 {
				fmt.Fprintln(out, "No results.")
				return nil
			}
			for i, r := range resp.Results {
				src := r.Metadata["source"]
				if src == "" {
					src = r.ID
				}
				fmt.Fprintf(out, "%d. [%s] (score: %.4f)\n%s\n\n", i+1, src, r.Score, snippet(r.Content, 200))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 5, "number of results")
	return cmd
}

func withMeta(base map[string]string, key, value string) map[string]string {
	if len(base) == 0 && key == "" {
		return nil
	}
	m := make(map[string]string, len(base)+1)
	for k, v := range base {
		m[k] = v
	}
	if key != "" {
		m[key] = value
	}
	return m
}

func preview(v []float32) string {
	n := min(len(v), previewLen)
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = fmt.Sprintf("%.4f", v[i])
	}
	s := "[" + strings.Join(parts, ", ")
	if len(v) > n {
		s += ", ..."
	}
	return s + "]"
}

func snippet(s string, limit int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}

func writeRaw(w io.Writer, raw []byte) error {
	_, err := fmt.Fprintln(w, strings.TrimSpace(string(raw)))
	return err
}
