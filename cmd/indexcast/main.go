package main

import (
	"os"

	"github.com/wonny/indexcast/cmd/indexcast/commands"
)

// main is the entry point for the indexcast CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/indexcast [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
