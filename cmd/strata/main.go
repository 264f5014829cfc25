// Package main provides the CLI for the Strata data transformation
// engine.
package main

import (
	"os"

	"github.com/leapstack-labs/strata/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
