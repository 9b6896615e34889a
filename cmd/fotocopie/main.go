package main

import (
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/app"
)

func main() {
	// Variables already set in the environment win over .env.
	envFile := os.Getenv("FOTOCOPIE_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("load %s: %v", envFile, err)
	}

	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
