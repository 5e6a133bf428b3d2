// Package main provides the entry point for the OpenChad CLI.
package main

import (
	"fmt"
	"os"

	"github.com/openchad-ai/openchad/cmd/openchad/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
