package main

import (
	"github.com/joho/godotenv"

	"docrag/internal/cli"
)

func main() {
	// API keys come from the environment; a local .env is optional.
	_ = godotenv.Load()

	cli.Execute()
}
