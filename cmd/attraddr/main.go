// Package main is the entry point for the attraddr command-line tool.
package main

import (
	"os"

	"github.com/attraddr/attraddr-go/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
