// Package main provides the entry point for the nl2sql service and CLI.
package main

import (
	"fmt"
	"os"

	"github.com/flowbit/nl2sql/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
