package main

import (
	"context"
	"time"

	"library/internal/library/repository"
	"library/pkg/config"
)

const JobName = "library-schema"

func main() {
	cfg := config.Load(JobName)
	cfg.SetPostgres()
	defer cfg.GracefulShutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	cfg.Log.Info("Applying library schema")
	if err := repository.EnsureSchema(ctx, cfg.Client.Postgres); err != nil {
		cfg.Log.Fatal("Schema job failed", "error", err)
	}
	cfg.Log.Info("Schema is up to date")
}
