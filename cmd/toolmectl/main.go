// Package main is the entry point for the toolmectl CLI tool.
package main

import (
	"os"

	"github.com/good-yellow-bee/toolme/cmd/toolmectl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
