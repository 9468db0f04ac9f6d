// Command luatgt is the entry point for the Vietnamese traffic-law retrieval
// engine. It provides a CLI interface (via Cobra) for indexing legal
// documents, running semantic search, answering questions with citations,
// and serving the retrieval API over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/luatgt/luatgt-go/cmd/luatgt/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
