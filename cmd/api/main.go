package main

import (
	"context"
	"log"

	"usuarios-service/cmd/api/app"
	"usuarios-service/cmd/api/server"

	"github.com/joho/godotenv"
	_ "go.uber.org/automaxprocs"
)

func main() {
	// A local .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	ctx, stop := server.WithSignal(context.Background())
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := a.Run(ctx); err != nil {
		log.Fatalf("application exited with error: %v", err)
	}
}
