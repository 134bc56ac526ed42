// Package main provides the entry point for the webqa CLI.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"webqa/cmd/webqa/cmd"
)

func main() {
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
