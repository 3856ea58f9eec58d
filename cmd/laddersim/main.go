// Command laddersim runs the limit-up ladder trading simulator: an HTTP
// server, a terminal UI, ladder analysis queries and one-shot simulation
// commands.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
