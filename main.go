package main

import (
	"os"

	"github.com/relicworks/relic/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
