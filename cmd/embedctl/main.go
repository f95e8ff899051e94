package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		printError(os.Stderr, "Error: %v", err)
		os.Exit(1)
	}
}
