package main

import (
	"os"

	"github.com/wonny/macrofactor/cmd/macro/commands"
)

// main is the entry point for the macro CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/macro [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
