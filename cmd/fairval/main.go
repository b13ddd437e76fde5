package main

import (
	"os"

	"github.com/quantlab/fairval/cmd/fairval/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
