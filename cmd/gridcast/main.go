package main

import (
	"os"

	"github.com/wonny/gridcast/cmd/gridcast/commands"
)

// main is the entry point for the Gridcast CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/gridcast [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
