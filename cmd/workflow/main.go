package main

import (
	"os"

	"github.com/lyzr/orchestrator/cmd/workflow/commands"
	"github.com/subosito/gotenv"
)

func main() {
	_ = gotenv.Load() // best-effort; absence of .env is not an error
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
