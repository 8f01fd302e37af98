package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/amankumarsingh77/go-scraper-api/pkg/config"
	"github.com/amankumarsingh77/go-scraper-api/pkg/logger"
	"github.com/amankumarsingh77/go-scraper-api/scraper/fetch"
	"github.com/amankumarsingh77/go-scraper-api/scraper/provider"
	"github.com/amankumarsingh77/go-scraper-api/scraper/resolve"
	"go.uber.org/zap"
)

// resolve follows one or more download links through their intermediary pages and prints the
// terminal URLs.
func main() {
	configPath := flag.String("config", os.Getenv("SCRAPER_CONFIG"), "path to a YAML config file")
	maxHops := flag.Int("max-hops", 0, "Hop ceiling (0 uses the descriptor default)")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Println("resolve - follow download links to their final URL")
		fmt.Println("\nUsage: resolve [flags] URL...")
		flag.PrintDefaults()
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

	file, err := provider.LoadFile(cfg.Providers.DescriptorsFile)
	if err != nil {
		log.Fatal("Failed to load descriptors", zap.Error(err))
	}
	r, err := resolve.New(fetch.NewClient(cfg.Fetch, log), file.Hops, log)
	if err != nil {
		log.Fatal("Invalid hop rules", zap.Error(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	failed := 0
	for _, entry := range flag.Args() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		link, err := r.Resolve(ctx, entry, *maxHops)
		cancel()
		if err != nil {
			failed++
			log.Error("Resolve failed", zap.String("url", entry), zap.Error(err))
			continue
		}
		_ = enc.Encode(link)
	}
	if failed > 0 {
		os.Exit(1)
	}
}
