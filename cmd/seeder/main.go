package main

import (
	"context"
	"os"
	"time"

	"github.com/fjod/go_shop/internal/config"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/fjod/go_shop/internal/seed"
	"github.com/fjod/go_shop/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("invalid configuration", zap.Error(err))
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		zap.NewExample().Fatal("failed to build logger", zap.Error(err))
	}

	if err := run(cfg, log); err != nil {
		log.Error("error seeding the data", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	log.Info("product data saved successfully")
	_ = log.Sync()
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		return err
	}
	defer func() { _ = mongoDB.Client().Disconnect(context.Background()) }()

	if err := repository.EnsureCollections(ctx, mongoDB); err != nil {
		return err
	}
	if err := repository.CreateIndexes(ctx, mongoDB); err != nil {
		return err
	}

	_, err = seed.NewSeeder(mongoDB, log).Run(ctx)
	return err
}
