package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/agentportal/aserver/internal/config"
	"github.com/agentportal/aserver/internal/logger"
)

// bootstrap loads config, builds the logger and opens the store.
func bootstrap() (*zap.Logger, *sql.DB, error) {
	if err := config.LoadConfig(configPath); err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(config.App.Log)
	if err != nil {
		return nil, nil, err
	}

	if config.App.DatabaseURL == "" {
		return log, nil, fmt.Errorf("DATABASE_URL environment variable (or config) is required")
	}

	pg, err := sql.Open("postgres", config.App.DatabaseURL)
	if err != nil {
		return log, nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := pg.PingContext(ctx); err != nil {
		pg.Close()
		return log, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("connected to database")
	return log, pg, nil
}
