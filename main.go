package main

import (
	"github.com/joho/godotenv"

	"allegro-ops/internal/cli"
)

func main() {
	_ = godotenv.Load()
	cli.Execute()
}
