// Package main is the entry point for the playground command line.
package main

import (
	"os"

	"github.com/aristath/playground/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
