package main

import (
	"errors"
	"io/fs"
	"log"

	"github.com/joho/godotenv"

	"lawdesk/cmd"
)

func main() {
	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}
	cmd.Execute()
}
