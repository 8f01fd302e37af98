package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/amankumarsingh77/go-scraper-api/pkg/baseurl"
	"github.com/amankumarsingh77/go-scraper-api/pkg/config"
	"github.com/amankumarsingh77/go-scraper-api/pkg/logger"
	"github.com/amankumarsingh77/go-scraper-api/scraper/catalog"
	"github.com/amankumarsingh77/go-scraper-api/scraper/fetch"
	"github.com/amankumarsingh77/go-scraper-api/scraper/provider"
	"go.uber.org/zap"
)

// showbox prints the febbox links of one showbox title without going through the API.
func main() {
	configPath := flag.String("config", os.Getenv("SCRAPER_CONFIG"), "path to a YAML config file")
	idPtr := flag.String("id", "", "Showbox title id")
	typePtr := flag.String("type", "movie", "movie or tv")
	seasonPtr := flag.Int("season", 0, "Season number (tv)")
	episodePtr := flag.Int("episode", 0, "Episode number (tv)")
	searchPtr := flag.String("search", "", "Search the showbox catalogue instead")
	flag.Parse()

	if *idPtr == "" && *searchPtr == "" {
		fmt.Println("showbox - fetch febbox links for a showbox title")
		fmt.Println("\nUsage:")
		flag.PrintDefaults()
		fmt.Println("\nExamples:")
		fmt.Println("  Movie links:    showbox -id 1701")
		fmt.Println("  Episode links:  showbox -id 3732 -type tv -season 1 -episode 4")
		fmt.Println("  Search:         showbox -search \"the office\"")
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
	cat, err := catalog.Build(file, catalog.Deps{
		Fetcher: fetch.NewClient(cfg.Fetch, log),
		Bases:   baseurl.New(nil, cfg.Providers.BaseURLs, cfg.Providers.BaseURLTTL, log),
		Febbox:  cfg.Febbox,
		Showbox: cfg.Showbox,
		Log:     log,
	})
	if err != nil {
		log.Fatal("Failed to build providers", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var out any
	if *searchPtr != "" {
		out, err = cat.Showbox.Search(ctx, *searchPtr, 1)
	} else {
		out, err = cat.Showbox.Links(ctx, *idPtr, *typePtr, *seasonPtr, *episodePtr)
	}
	if err != nil {
		log.Fatal("Scrape failed", zap.Error(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatal("Failed to write output", zap.Error(err))
	}
}
