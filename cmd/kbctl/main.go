// Command kbctl inspects the knowledge base and runs retrieval from the terminal.
package main

import (
	"os"

	"traffic-advisor-ai/internal/config"
)

func main() {
	root := newRootCmd(config.Load)
	root.SetOut(os.Stdout)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
