// Package main is the docstore CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/docstore/internal/cli"
	"github.com/hyperjump/docstore/internal/config"
	"github.com/hyperjump/docstore/internal/extract"
	"github.com/hyperjump/docstore/internal/indexer"
	"github.com/hyperjump/docstore/internal/search"
	"github.com/hyperjump/docstore/internal/server"
	"github.com/hyperjump/docstore/internal/storage"
	"github.com/hyperjump/docstore/internal/watcher"
	"github.com/hyperjump/docstore/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = config.DefaultConfigPath

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// A missing default config yields the built-in defaults.
// Returns the config and the path that was actually loaded ("" for built-in defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "retrieve", "search":
		runRetrieve()
	case "filter":
		runFilter()
	case "count":
		runCount()
	case "get":
		runGet()
	case "load":
		runLoad()
	case "delete":
		runDelete()
	case "status":
		runStatus()
	case "config":
		runConfig()
	case "version", "--version", "-v":
		fmt.Printf("docstore version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (file indexing, requests, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLoggerWithLevel(debugMode, cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exts := cfg.Watch.Extensions
	for _, dir := range cfg.Watch.Directories {
		if _, statErr := os.Stat(dir); statErr != nil {
			continue
		}
		n, err := components.Indexer.IndexDirectory(ctx, dir, exts)
		if err != nil {
			logger.Warn("initial directory load failed", zap.String("dir", dir), zap.Error(err))
			continue
		}
		logger.Info("loaded directory", zap.String("dir", dir), zap.Int("documents", n))
	}

	var watchSvc server.WatchService
	if len(cfg.Watch.Directories) > 0 {
		w := watcher.New(components.Indexer, cfg.Watch, watcher.WithLogger(logger))
		if err := w.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		watchSvc = w
	}

	srv := server.NewServer(components.Engine, components.Storage, cfg, logger, watchSvc)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// Components holds initialized services.
type Components struct {
	Storage *storage.MemoryStorage
	Engine  *search.Engine
	Indexer *indexer.Indexer
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store := storage.NewMemoryStorage(storage.WithLogger(logger))
	engine, err := search.NewEngine(store, &cfg.Store, search.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize retrieval engine: %w", err)
	}
	idx := indexer.NewIndexer(store, extract.NewExtractor(), indexer.WithLogger(logger))
	return &Components{Storage: store, Engine: engine, Indexer: idx}, nil
}

func runConfig() {
	if len(os.Args) < 3 || os.Args[2] != "init" {
		fmt.Println("Usage: docstore config init [--config path] [--force]")
		os.Exit(1)
	}
	fs := flag.NewFlagSet("config init", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path to write")
	force := fs.Bool("force", false, "overwrite an existing config file")
	_ = fs.Parse(os.Args[3:])

	if err := initConfig(*configPath, *force); err != nil {
		fmt.Printf("Config init failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote default config to %s\n", *configPath)
}

// initConfig writes the default config to path unless a file is already there.
func initConfig(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	return config.Save(path, config.Default())
}

// serverURLFromConfig returns the base URL of the server configured at path,
// or cli.DefaultServerURL when the config cannot be loaded.
func serverURLFromConfig(path string) string {
	cfg, _, err := loadConfig(path)
	if err != nil || cfg == nil {
		return cli.DefaultServerURL
	}
	host := cfg.Server.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, cfg.Server.Port)
}

// configPathFromArgs returns the value of -config/--config from args if present, else defaultPath.
func configPathFromArgs(args []string, defaultPath string) string {
	for i, a := range args {
		if (a == "-config" || a == "--config") && i+1 < len(args) {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(a, "--config="); ok {
			return v
		}
		if v, ok := strings.CutPrefix(a, "-config="); ok {
			return v
		}
	}
	return defaultPath
}

func printUsage() {
	fmt.Println(`docstore - In-memory document store with BM25 retrieval

Usage:
  docstore server [flags]               Start the HTTP server
  docstore retrieve [flags] <query>     Rank documents with BM25
  docstore filter [flags] [filter-json] List documents matching a metadata filter
  docstore count [flags]                Count stored documents
  docstore get [flags] <id>             Show one document
  docstore load [flags] <path>...       Extract files and write them to the server
  docstore delete [flags] <id>...       Delete documents
  docstore status [flags]               Show server status
  docstore config init [flags]          Write a default config file
  docstore version                      Show version
  docstore help                         Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/docstore/config.yaml)
  --debug            Enable debug logging

Client Flags (retrieve, filter, count, get, load, delete, status):
  --config string    Config file path (used for the default server URL)
  --server string    Server URL (default from config, or http://localhost:8080)
  --output string    Output format: text, compact, or json (default: text)

Retrieve Flags:
  --top-k int        Number of results (default from server config)
  --filter string    Metadata filter as JSON
  --scale            Scale scores into (0,1) (default: true)

Load Flags:
  --policy string    Duplicate policy: skip, overwrite, or fail (default from server config)

Examples:
  docstore server
  docstore retrieve quarterly revenue
  docstore retrieve --top-k 5 --filter '{"year": {"$gte": 2023}}' revenue
  docstore filter '{"$or": [{"lang": "en"}, {"lang": "fr"}]}'
  docstore load --policy overwrite ./reports
  docstore delete doc-123 doc-456
  docstore config init --config ./config.yaml`)
}
