package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/amankumarsingh77/go-scraper-api/db"
	"github.com/amankumarsingh77/go-scraper-api/db/repository"
	"github.com/amankumarsingh77/go-scraper-api/pkg/config"
	"github.com/amankumarsingh77/go-scraper-api/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("SCRAPER_CONFIG"), "path to a YAML config file")
	createPtr := flag.String("create", "", "Create an API key with this name")
	limitPtr := flag.Int64("limit", 0, "Request limit for -create (0 uses auth.default_limit)")
	revokePtr := flag.String("revoke", "", "Revoke the API key with this id")
	domainPtr := flag.String("domain", "", "Override a provider domain, as provider=https://new.domain")
	flag.Parse()

	if *createPtr == "" && *revokePtr == "" && *domainPtr == "" {
		fmt.Println("keys - manage API keys and provider domains")
		fmt.Println("\nUsage:")
		flag.PrintDefaults()
		fmt.Println("\nExamples:")
		fmt.Println("  Create a key:      keys -create mobile-app -limit 5000")
		fmt.Println("  Revoke a key:      keys -revoke 665f1c2e9b1e8a0012345678")
		fmt.Println("  Move a provider:   keys -domain hdhub4u=https://hdhub4u.new")
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg.Log.Format = "console"
	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, database, err := db.NewMongoConn(ctx, cfg.Mongo, log)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	repo := repository.NewMongoRepo(database)

	switch {
	case *createPtr != "":
		limit := *limitPtr
		if limit <= 0 {
			limit = cfg.Auth.DefaultLimit
		}
		key, plain, err := repo.CreateKey(ctx, *createPtr, limit)
		if err != nil {
			log.Fatal("Failed to create key", zap.Error(err))
		}
		fmt.Printf("id:     %s\nname:   %s\nlimit:  %d\nkey:    %s\n", key.ID.Hex(), key.Name, key.RequestsLimit, plain)
		fmt.Println("\nStore the key now, it cannot be shown again.")
	case *revokePtr != "":
		if err := repo.RevokeKey(ctx, *revokePtr); err != nil {
			log.Fatal("Failed to revoke key", zap.String("id", *revokePtr), zap.Error(err))
		}
		log.Info("Key revoked", zap.String("id", *revokePtr))
	case *domainPtr != "":
		name, base, found := strings.Cut(*domainPtr, "=")
		if !found || name == "" || !strings.HasPrefix(base, "http") {
			log.Fatal("-domain expects provider=https://domain", zap.String("value", *domainPtr))
		}
		if err := repo.SetProviderDomain(ctx, name, strings.TrimRight(base, "/")); err != nil {
			log.Fatal("Failed to set domain", zap.Error(err))
		}
		log.Info("Provider domain updated", zap.String("provider", name), zap.String("base_url", base))
	}
}
