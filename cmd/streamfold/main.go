// Package main is the entry point for the streamfold application.
package main

import (
	"os"

	"github.com/jmylchreest/streamfold/cmd/streamfold/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
