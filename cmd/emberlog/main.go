// Command emberlog runs the asynchronous multi-sink logging pipeline
// CLI: run a pipeline from a config file, submit records from a JSON
// batch, or inspect a config's shape without starting anything.
//
// Version info is injected at build time:
//
//	go build -ldflags "-X main.version=1.2.0 -X main.commit=abc123"
package main

import (
	"fmt"
	"os"

	"github.com/emberlog/pipeline/internal/cli"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Fatal error: %v\n", r)
			os.Exit(1)
		}
	}()

	rootCmd := cli.BuildCLI()
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
