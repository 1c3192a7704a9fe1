package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/hannes/pellucid-sanitizer/cli"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg(".env file could not be loaded")
	}

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
