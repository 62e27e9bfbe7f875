package main

import (
	"os"

	"github.com/cuadra-dev/cuadra/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
