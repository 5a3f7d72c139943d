package main

import (
	"os"

	"github.com/shamba-dev/shamba/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
