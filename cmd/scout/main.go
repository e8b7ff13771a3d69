package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scoutgraph/scout/logger"
)

var rootCmd = &cobra.Command{
	Use:   "scout",
	Short: "Scout - research assistant graph server",
	Long: `Scout turns a topic into a tree of researched ideas: an LLM decomposes
the query into areas and search queries, retrieval APIs gather sources,
and summarization passes produce cited answers rendered as a node graph.

Available commands:
  serve   - Start the Scout HTTP/WebSocket server
  version - Show build information

Examples:
  scout serve                # Start the server on the configured port
  scout serve --db-path dev.db
  scout version`,
}

func main() {
	defer logger.Cleanup()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
