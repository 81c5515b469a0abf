package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"

	"github.com/todmy/stoneweight/internal/api"
	"github.com/todmy/stoneweight/internal/auth"
	"github.com/todmy/stoneweight/internal/config"
	"github.com/todmy/stoneweight/internal/images"
	"github.com/todmy/stoneweight/internal/logger"
	"github.com/todmy/stoneweight/internal/metrics"
	"github.com/todmy/stoneweight/internal/receipt"
	"github.com/todmy/stoneweight/internal/storage"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database", "error", err)
	}

	ctx := context.Background()
	if err := storage.EnsureSchema(ctx, db); err != nil {
		log.Fatal("Failed to prepare schema", "error", err)
	}

	authService := auth.NewJWTService(auth.Config{
		SecretKey:     cfg.JWTSecret,
		TokenDuration: cfg.TokenDuration,
	}, auth.NewPostgresRepository(db))

	created, err := authService.EnsureDefaultUser(ctx, cfg.DefaultAdminUsername, cfg.DefaultAdminPassword)
	if err != nil {
		log.Fatal("Failed to create default user", "error", err)
	}
	if created {
		log.Info("Default user created", "username", cfg.DefaultAdminUsername)
	}

	imageStore, err := images.NewStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		log.Fatal("Failed to prepare image storage", "error", err)
	}

	receiptSettings, err := receipt.LoadSettings(cfg.ReceiptConfig)
	if err != nil {
		log.Fatal("Failed to load receipt settings", "error", err)
	}

	metrics.Init()

	server := api.NewServer(api.Deps{
		Log:             log,
		Auth:            authService,
		Stones:          storage.NewPostgresStoneRepository(db),
		Models:          storage.NewPostgresModelRepository(db),
		StoneSets:       storage.NewPostgresStoneSetRepository(db),
		Company:         storage.NewPostgresCompanyRepository(db),
		Importer:        storage.NewMigrator(db, imageStore.Resolve),
		Images:          imageStore,
		UploadsDir:      imageStore.Dir(),
		CORSOrigins:     cfg.CORSOrigins,
		ReceiptSettings: receiptSettings,
	})

	log.Info("Starting stoneweight server", "port", cfg.Port)
	if err := server.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server", "error", err)
	}
}
