// Package main is the Kondate CLI entry point.
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
	"sort"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/kondate/internal/assets"
	"github.com/hyperjump/kondate/internal/cli"
	"github.com/hyperjump/kondate/internal/config"
	"github.com/hyperjump/kondate/internal/corpus"
	"github.com/hyperjump/kondate/internal/diet"
	"github.com/hyperjump/kondate/internal/jsonx"
	"github.com/hyperjump/kondate/internal/models"
	"github.com/hyperjump/kondate/internal/pipeline"
	"github.com/hyperjump/kondate/internal/server"
	"github.com/hyperjump/kondate/internal/storage"
	"github.com/hyperjump/kondate/internal/tui"
	"github.com/hyperjump/kondate/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/kondate/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development). When neither exists the built-in
// defaults are used and the returned path is empty.
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
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
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
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "recommend":
		runRecommend()
	case "tui":
		runTUI()
	case "status":
		runStatus()
	case "diets":
		runDiets()
	case "import":
		runImport()
	case "version", "--version", "-v":
		fmt.Printf("kondate version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// mustSetup loads config and builds the logger, exiting on failure.
func mustSetup(configPath string, debug bool) (*config.Config, string, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, resolved, logger
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger := mustSetup(*configPath, *debug)
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", cfg.Debug || *debug),
	)

	initCtx, initCancel := context.WithCancel(context.Background())
	defer initCancel()

	components, err := initializeComponents(initCtx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	// The server answers 503 until the corpus and model are loaded. Initialize logs
	// its own outcome.
	go func() {
		_ = components.Pipeline.Initialize(initCtx)
	}()

	srv := server.NewServer(components.Pipeline, &cfg.Server, logger,
		server.WithDiskPaths(components.DiskPaths(cfg)))
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	initCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// printRecommendUsage prints recommend subcommand usage.
func printRecommendUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: kondate recommend [flags] <ingredients>\n\n")
	fmt.Fprintf(fs.Output(), "Ingredients are all remaining arguments joined by spaces; quoting is optional.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  kondate recommend eggs spinach feta
  kondate recommend --diet vegan,gluten-free chickpeas tomato
  kondate recommend --server "" --limit 5 rice chicken   # run locally without a server
  kondate recommend --output json tofu broccoli
`)
}

// buildQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
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

// reorderArgs moves every flag (and its value) to the front of the slice so that
// flag.Parse() sees them, keeping the query words in their original order. Go's flag
// package stops at the first non-flag argument, so "kondate recommend eggs --limit 3"
// would otherwise leave --limit unparsed. Every subcommand flag takes a value; a
// flag without "=" consumes the next argument unless that argument is itself a flag.
// Arguments after "--" are query words.
func reorderArgs(args []string) []string {
	flags := make([]string, 0, len(args))
	var words []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			words = append(words, args[i+1:]...)
			break
		}
		if len(a) < 2 || a[0] != '-' {
			words = append(words, a)
			continue
		}
		flags = append(flags, a)
		if !strings.Contains(a, "=") && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
			flags = append(flags, args[i])
		}
	}
	return append(flags, words...)
}

// splitList splits a comma-separated flag value, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// defaultLimitFromConfig loads config at path and returns its default result count.
// On load failure, returns 10.
func defaultLimitFromConfig(path string) int {
	cfg, _, err := loadConfig(path)
	if err != nil || cfg == nil || cfg.Recommend.DefaultLimit <= 0 {
		return 10
	}
	return cfg.Recommend.DefaultLimit
}

func runRecommend() {
	args := reorderArgs(os.Args[2:])
	defaultLimit := defaultLimitFromConfig(configPathFromArgs(args, defaultConfigPath))

	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for local mode and default limit)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = load the model and corpus locally)")
	limit := fs.Int("limit", defaultLimit, "number of results")
	diets := fs.String("diet", "", "comma-separated diet profiles to apply, e.g. vegan,nut-free")
	outputFormat := fs.String("output", "text", "output format: text (human-readable), compact (one result per line), or json (parseable)")
	fs.Usage = func() { printRecommendUsage(fs) }
	_ = fs.Parse(args)

	query := buildQuery(fs.Args())
	if query == "" {
		printRecommendUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	req := models.RecommendRequest{Query: query, Limit: *limit, Diets: splitList(*diets)}

	var response *models.RecommendResponse
	if *serverURL != "" {
		client := cli.NewClient(*serverURL, 2*time.Minute)
		response, err = client.Recommend(context.Background(), req)
	} else {
		response, err = recommendLocally(*configPath, req)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Recommend failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteRecommendations(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func recommendLocally(configPath string, req models.RecommendRequest) (*models.RecommendResponse, error) {
	cfg, _, logger := mustSetup(configPath, false)
	defer logger.Sync()

	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer components.Close()
	if err := components.Pipeline.Initialize(ctx); err != nil {
		return nil, err
	}
	return components.Pipeline.Recommend(ctx, req)
}

func runTUI() {
	fs := flag.NewFlagSet("tui", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = load the model and corpus locally)")
	limit := fs.Int("limit", 0, "number of results (0 = configured default)")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	n := *limit
	if n <= 0 {
		n = cfg.Recommend.DefaultLimit
	}

	opts := tui.Options{Limit: n}
	if *serverURL != "" {
		client := cli.NewClient(*serverURL, 2*time.Minute)
		profiles, err := client.Diets(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to reach server: %v\n", err)
			os.Exit(1)
		}
		opts.Recommender = client
		opts.Diets = sortedNames(profiles)
	} else {
		// Log output would corrupt the alternate screen.
		logger := zap.NewNop()
		components, err := initializeComponents(context.Background(), cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		opts.Recommender = components.Pipeline
		opts.Diets = components.Pipeline.Diets().Names()
		opts.Initialize = components.Pipeline.Initialize
	}

	p := tea.NewProgram(tui.New(opts), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "TUI failed: %v\n", err)
		os.Exit(1)
	}
}

func sortedNames(profiles map[string][]string) []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for local mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = load locally and report)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status *pipeline.Status
	if *serverURL != "" {
		st, err := cli.NewClient(*serverURL, 30*time.Second).Status(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = st
	} else {
		cfg, _, logger := mustSetup(*configPath, false)
		defer logger.Sync()
		ctx := context.Background()
		components, err := initializeComponents(ctx, cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		// A failed load is still reported through the status.
		_ = components.Pipeline.Initialize(ctx)
		st := components.Pipeline.Status()
		status = &st
	}

	switch *outputFormat {
	case "json":
		if err := jsonx.Encode(os.Stdout, status, "  "); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		cli.WriteStatus(os.Stdout, status)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func runDiets() {
	fs := flag.NewFlagSet("diets", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	profiles := diet.NewCatalog(cfg.Diets).Profiles()
	switch *outputFormat {
	case "json":
		if err := jsonx.Encode(os.Stdout, map[string]interface{}{"diets": profiles}, "  "); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		cli.WriteDiets(os.Stdout, profiles)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

// runImport reads the JSON corpus from the asset source and snapshots it into SQLite,
// so later runs can use corpus.format: sqlite.
func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	dbPath := fs.String("db", "", "SQLite database to write (default: corpus.database_path)")
	format := fs.String("format", "", "source corpus format: chunks or file (default: corpus.format)")
	_ = fs.Parse(os.Args[2:])

	cfg, _, logger := mustSetup(*configPath, false)
	defer logger.Sync()

	if *dbPath != "" {
		cfg.Corpus.DatabasePath = *dbPath
	}
	if *format != "" {
		cfg.Corpus.Format = *format
	}
	if cfg.Corpus.Format == corpus.FormatSQLite || cfg.Corpus.Format == "" {
		cfg.Corpus.Format = corpus.FormatChunks
	}
	if cfg.Corpus.Format != corpus.FormatChunks && cfg.Corpus.Format != corpus.FormatFile {
		fmt.Fprintf(os.Stderr, "Unknown corpus format %q; use chunks or file\n", cfg.Corpus.Format)
		os.Exit(1)
	}

	n, err := importCorpus(context.Background(), cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Import failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Imported %d recipes into %s\n", n, cfg.Corpus.DatabasePath)
}

func importCorpus(ctx context.Context, cfg *config.Config, logger *zap.Logger) (int, error) {
	src, err := assets.New(ctx, assetOptions(cfg))
	if err != nil {
		return 0, fmt.Errorf("failed to initialize asset source: %w", err)
	}

	res, err := newCorpusLoader(cfg, src, nil, logger).Load(ctx)
	if err != nil {
		return 0, err
	}
	if len(res.FailedChunks) > 0 {
		return 0, fmt.Errorf("%d corpus chunks failed to load: %v", len(res.FailedChunks), res.FailedChunks)
	}
	if _, err := corpus.ValidateDimensions(res.Recipes, 0); err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Corpus.DatabasePath), 0755); err != nil {
		return 0, fmt.Errorf("failed to create database directory: %w", err)
	}
	store, err := storage.NewSQLiteStorage(cfg.Corpus.DatabasePath)
	if err != nil {
		return 0, fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	modelName := cfg.Model.Name
	if res.Manifest != nil && res.Manifest.Model != "" {
		modelName = res.Manifest.Model
	}
	if err := store.ReplaceRecipes(ctx, modelName, res.Recipes); err != nil {
		return 0, err
	}
	return len(res.Recipes), nil
}

func printUsage() {
	fmt.Println(`kondate - On-device recipe recommendations from the ingredients you have

Usage:
  kondate server [flags]               Start the HTTP server
  kondate recommend [flags] <query>    Recommend recipes for a list of ingredients
  kondate tui [flags]                  Interactive terminal UI
  kondate status [flags]               Show pipeline status
  kondate diets [flags]                List diet profiles and their excluded terms
  kondate import [flags]               Snapshot the JSON corpus into SQLite
  kondate version                      Show version
  kondate help                         Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kondate/config.yaml)
  --debug            Enable debug logging

Recommend Flags:
  --config string    Config file path (for local mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to run locally.
  --limit int        Number of results (default from config, or 10)
  --diet string      Comma-separated diet profiles, e.g. vegan,gluten-free
  --output string    Output format: text, compact or json (default: text)

TUI Flags:
  --config string    Config file path
  --server string    Server URL (default: empty, run locally)
  --limit int        Number of results

Status Flags:
  --config string    Config file path (for local mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to load locally.
  --output string    Output format: text or json (default: text)

Import Flags:
  --config string    Config file path
  --db string        SQLite database to write (default: corpus.database_path)
  --format string    Source corpus format: chunks or file

Examples:
  kondate server
  kondate recommend eggs spinach feta
  kondate recommend --diet vegan chickpeas tomato onion
  kondate recommend --output json "rice, chicken, soy sauce"
  kondate tui
  kondate status --output json
  kondate diets
  kondate import --db ./recipes.db`)
}
