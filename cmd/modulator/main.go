// Package main is the Modulator CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/modulator/internal/ai"
	"github.com/hyperjump/modulator/internal/cli"
	"github.com/hyperjump/modulator/internal/config"
	"github.com/hyperjump/modulator/internal/extract"
	"github.com/hyperjump/modulator/internal/indexer"
	"github.com/hyperjump/modulator/internal/models"
	"github.com/hyperjump/modulator/internal/rag"
	"github.com/hyperjump/modulator/internal/schedule"
	"github.com/hyperjump/modulator/internal/search"
	"github.com/hyperjump/modulator/internal/server"
	"github.com/hyperjump/modulator/internal/storage"
	"github.com/hyperjump/modulator/internal/watcher"
	"github.com/hyperjump/modulator/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/modulator/config.yaml"

// loadConfig loads config from path. When path is the default, a config.yaml in
// the current directory takes precedence so "modulator server" run from a project
// directory picks up the project's config.
// Returns the config and the path that was actually loaded.
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
	case "index":
		runIndex()
	case "search":
		runSearch()
	case "ask":
		runAsk()
	case "builds":
		runBuilds()
	case "version", "--version", "-v":
		fmt.Printf("modulator version %s\n", version)
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
	debug := fs.Bool("debug", false, "enable debug logging (per-file indexing, watcher events)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.String("materials", cfg.Materials.Root),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The server starts answering right away; requests before the first build
	// completes see an empty index.
	components.Index.BuildInBackground(ctx)

	serverOpts := []server.ServerOption{
		server.WithBuildStore(components.Store, cfg.Storage.DatabasePath),
	}
	if cfg.Watch.EnabledOrDefault() {
		if watchSvc := startWatcher(ctx, cfg, components.Index, logger, debugMode); watchSvc != nil {
			defer watchSvc.Stop()
			serverOpts = append(serverOpts, server.WithWatcher(watchSvc))
		}
	}

	scheduler := schedule.NewCronScheduler(logger)
	if cfg.Materials.RebuildSchedule != "" {
		if err := scheduler.AddJob(schedule.NewRebuildJob(components.Index), cfg.Materials.RebuildSchedule); err != nil {
			logger.Fatal("Invalid rebuild schedule", zap.Error(err))
		}
	}
	if cfg.Storage.KeepBuilds > 0 {
		if err := scheduler.AddJob(schedule.NewPruneJob(components.Store, cfg.Storage.KeepBuilds, logger), cfg.Storage.PruneSchedule); err != nil {
			logger.Fatal("Invalid prune schedule", zap.Error(err))
		}
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	srv := server.NewServer(
		components.Index,
		components.Retriever,
		components.Answerer,
		&cfg.Server,
		logger,
		serverOpts...,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
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

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if fs.NArg() > 0 {
		root, absErr := filepath.Abs(fs.Arg(0))
		if absErr != nil {
			fmt.Printf("Invalid directory: %v\n", absErr)
			os.Exit(1)
		}
		cfg.Materials.Root = root
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	report, buildErr := components.Index.Build(context.Background())
	if err := cli.WriteBuildReport(os.Stdout, report, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
	if buildErr != nil {
		os.Exit(1)
	}
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: modulator search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Chunks are ranked by how many distinct query keywords they contain. Words
shorter than three letters and punctuation are ignored.

Examples:
  modulator search photosynthesis light
  modulator search --server "" "cell division"     # build the index locally
  modulator search --output json mitochondria
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. The flag package
// stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (local mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = build the index locally)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	query := buildSearchQuery(fs.Args())
	if query == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	var response *models.SearchResponse
	if *serverURL != "" {
		response = &models.SearchResponse{}
		if err := postJSON(*serverURL+"/api/v1/search", &models.SearchRequest{Query: query}, response); err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		components, logger := localComponents(*configPath)
		defer logger.Sync()
		defer components.Close()
		if _, err := components.Index.Build(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Index build failed: %v\n", err)
			os.Exit(1)
		}
		results := components.Retriever.SearchScored(query)
		response = &models.SearchResponse{Query: query, Results: results, Total: len(results)}
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (local mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = answer locally)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	question := buildSearchQuery(fs.Args())
	if question == "" {
		fmt.Println("Usage: modulator ask [flags] <question>")
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	response := &models.AskResponse{}
	if *serverURL != "" {
		if err := postJSON(*serverURL+"/api/modulator/rag", &models.AskRequest{Question: question}, response); err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		components, logger := localComponents(*configPath)
		defer logger.Sync()
		defer components.Close()
		if _, err := components.Index.Build(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Index build failed: %v\n", err)
			os.Exit(1)
		}
		response, err = components.Answerer.Ask(context.Background(), question)
		if err != nil {
			logger.Warn("answer generation failed", zap.Error(err))
			response = &models.AskResponse{Answer: rag.AnswerUnavailable}
		}
	}
	if err := cli.WriteAnswer(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runBuilds() {
	fs := flag.NewFlagSet("builds", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	limit := fs.Int("limit", 20, "number of builds to list")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	store, err := storage.NewSQLiteBuildStore(cfg.Storage.DatabasePath)
	if err != nil {
		fmt.Printf("Failed to open build history: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	builds, err := store.ListBuilds(context.Background(), *limit)
	if err != nil {
		fmt.Printf("Failed to list builds: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteBuilds(os.Stdout, builds, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// localComponents loads config and initializes everything for a one-shot local
// command, exiting on failure.
func localComponents(configPath string) (*Components, *zap.Logger) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	return components, logger
}

// postJSON posts body to url and decodes a 200 response into out.
func postJSON(url string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Components holds initialized services.
type Components struct {
	Store     *storage.SQLiteBuildStore
	Index     *indexer.Index
	Retriever *search.Retriever
	Answerer  *rag.Answerer
}

func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteBuildStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize build history: %w", err)
	}

	extractor, err := extract.NewCachingExtractor(extract.NewExtractor(), cfg.Materials.CacheSize)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize extractor: %w", err)
	}

	idx, err := indexer.NewIndex(&cfg.Materials, extractor,
		indexer.WithLogger(logger),
		indexer.WithRecorder(store),
	)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize index: %w", err)
	}

	retriever := search.NewRetriever(idx, &cfg.Search)

	generator, genErr := ai.NewFromConfig(&cfg.AI, logger)
	if genErr != nil {
		// Retrieval still works without a generator; questions get the unavailable answer.
		logger.Warn("text generation disabled", zap.String("provider", cfg.AI.Provider), zap.Error(genErr))
		generator = ai.GeneratorFunc(func(context.Context, string) (string, error) {
			return "", genErr
		})
	}

	return &Components{
		Store:     store,
		Index:     idx,
		Retriever: retriever,
		Answerer:  rag.NewAnswerer(retriever, generator, logger),
	}, nil
}

func printUsage() {
	fmt.Println(`modulator - Study material retrieval and grounded answers

Usage:
  modulator server [flags]            Start the HTTP server
  modulator index [flags] [dir]       Build the index once and print the report
  modulator search [flags] <query>    Show the best matching study material chunks
  modulator ask [flags] <question>    Answer a question from the study materials
  modulator builds [flags]            List recorded index builds
  modulator version                   Show version
  modulator help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/modulator/config.yaml)
  --debug            Enable debug logging

Index Flags:
  --config string    Config file path
  --output string    Output format: text or json (default: text)

Search / Ask Flags:
  --config string    Config file path (local mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to work locally.
  --output string    Output format: text or json (default: text)

Builds Flags:
  --config string    Config file path
  --limit int        Number of builds (default: 20)
  --output string    Output format: text or json (default: text)

Examples:
  modulator server
  modulator index ./study-materials
  modulator search photosynthesis
  modulator ask "What is photosynthesis?"
  modulator builds --limit 5 --output json`)
}

// startWatcher watches the materials root and rebuilds idx on change. It returns
// nil when the watcher cannot start; the server then runs without live reindexing.
func startWatcher(ctx context.Context, cfg *config.Config, idx *indexer.Index, logger *zap.Logger, debugMode bool) *watcher.Watcher {
	watchOpts := []watcher.WatcherOption{watcher.WithDebounce(cfg.Watch.Debounce())}
	if debugMode {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	watchSvc := watcher.NewWatcher(
		cfg.Materials.Root,
		cfg.Materials.Extensions,
		func(changed []string) {
			logger.Info("study materials changed, rebuilding index", zap.Int("changed", len(changed)))
			if _, err := idx.Build(ctx); err != nil {
				logger.Warn("rebuild after change failed", zap.Error(err))
			}
		},
		watchOpts...,
	)
	if err := watchSvc.Start(ctx); err != nil {
		logger.Warn("file watcher disabled", zap.String("root", cfg.Materials.Root), zap.Error(err))
		return nil
	}
	return watchSvc
}
