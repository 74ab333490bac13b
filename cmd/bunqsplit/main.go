// Package main is the entry point for the bunqsplit CLI.
package main

import (
	"os"

	"github.com/mvankampen/bunqsplit/cmd/bunqsplit/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
