package main

import (
	"github.com/joho/godotenv"

	"sgt/internal/cli"
)

func main() {
	// SGT_* overrides may live in a local .env; a missing file is fine.
	_ = godotenv.Load()

	cli.Execute()
}
