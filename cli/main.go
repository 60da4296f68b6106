package main

import (
	"os"

	"github.com/phormium-go/phormium/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
