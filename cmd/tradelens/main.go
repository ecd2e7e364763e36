package main

import (
	"os"

	"github.com/rustyeddy/tradelens/cmd/tradelens/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
