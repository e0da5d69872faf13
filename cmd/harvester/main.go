// Command harvester is the entry point for the harvest CLI.
package main

import (
	"os"

	"github.com/kidzout/harvester/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
