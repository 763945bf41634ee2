package main

import (
	"os"

	"github.com/samarachi/bank-agent/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
