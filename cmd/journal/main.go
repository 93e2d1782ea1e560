package main

import (
	"os"

	"trade-journal-go/cmd/journal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
