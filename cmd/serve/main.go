// Command serve runs the read-only archive viewer API.
package main

import (
	"fmt"

	"go.uber.org/zap"

	"chatvault/internal/store"
	"chatvault/internal/viewer"
	"chatvault/pkg/config"
	"chatvault/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	if err := logger.Init(cfg.Env); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()
	log := logger.Get()

	db, err := store.Connect(cfg, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	server := viewer.NewServer(store.NewRepository(db), cfg.AssetRoot, cfg.PageLimit)

	log.Info("viewer listening", zap.String("port", cfg.Port))
	if err := server.Router().Run(":" + cfg.Port); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
