package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:8080"

// options are the persistent flags shared by every subcommand.
type options struct {
	server  string
	timeout time.Duration
	json    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "embedctl",
		Short: "Command-line client for a nuka-embed server",
		Long: `embedctl talks to a running nuka-embed server over HTTP.

It can check server health, embed text, index documents into the
configured vector collection and run similarity searches.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.server, "server", envOr("EMBEDCTL_SERVER", defaultServer), "nuka-embed server URL")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 60*time.Second, "request timeout")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "print raw JSON responses")

	root.AddCommand(
		newHealthCmd(opts),
		newEmbedCmd(opts),
		newIndexCmd(opts),
		newSearchCmd(opts),
	)
	return root
}

func (o *options) client() *apiClient {
	return &apiClient{
		base: o.server,
		http: &http.Client{Timeout: o.timeout},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printError(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "\033[31m"+format+"\033[0m\n", args...)
}
