package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/alorbach/sunostyle/pkg/cli"
)

// Build flags
var version = ""
var commit = ""
var date = ""

func main() {
	// Environment overrides for the SUNOSTYLE_* flags
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("couldn't load .env: %v\n", err)
	}

	// Create signal based context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Launch command
	cmd := cli.New(version, commit, date)
	if err := cmd.ParseAndRun(ctx, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
