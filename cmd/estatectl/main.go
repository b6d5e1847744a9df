package main

import (
	"context"
	"fmt"
	"os"

	"estate-backend/internal/cli"
	"estate-backend/internal/config"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	config.SetupLogger(os.Getenv("LOG_LEVEL"))

	if err := cli.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
