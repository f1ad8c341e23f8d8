package main

import (
	"os"

	"github.com/Kosta-Git/stripe-csv/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
