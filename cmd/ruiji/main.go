// Package main is the ruiji CLI entry point.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/ruiji/internal/cli"
	"github.com/hyperjump/ruiji/internal/config"
	"github.com/hyperjump/ruiji/internal/embedding"
	"github.com/hyperjump/ruiji/internal/indexer"
	"github.com/hyperjump/ruiji/internal/models"
	"github.com/hyperjump/ruiji/internal/resolver"
	"github.com/hyperjump/ruiji/internal/search"
	"github.com/hyperjump/ruiji/internal/server"
	"github.com/hyperjump/ruiji/internal/storage"
	"github.com/hyperjump/ruiji/internal/vector"
	"github.com/hyperjump/ruiji/internal/watcher"
	"github.com/hyperjump/ruiji/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/ruiji/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default, a config.yaml in
// the current directory takes precedence so that running from a project dir
// picks up the project's config. Returns the path that was actually loaded.
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
	case "similar":
		runSimilar()
	case "warm":
		runWarm()
	case "status":
		runStatus()
	case "failures":
		runFailures()
	case "rebuild":
		runRebuild()
	case "watch":
		runWatch()
	case "version", "--version", "-v":
		fmt.Printf("ruiji version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	warmPool := fs.Bool("warm", false, "embed every image under images.root at startup")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("resolver", cfg.Images.Resolver))

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	engine := components.Engine
	watchSvc := watcher.NewWatcher(
		cfg.Watch.Directories,
		cfg.Images.Extensions,
		cfg.Watch.RecursiveOrDefault(),
		func(paths []string) {
			rep, err := engine.Warm(context.Background(), paths)
			if err != nil {
				logger.Warn("watch warm failed", zap.Int("paths", len(paths)), zap.Error(err))
				return
			}
			logger.Debug("watch batch embedded",
				zap.Int("paths", len(paths)),
				zap.Int("embedded", rep.Embedded),
				zap.Int("failed", rep.Failed))
		},
		watcher.WithLogger(logger),
	)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := watchSvc.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	watchSvc.SyncExistingFiles()

	if *warmPool {
		go func() {
			rep, err := engine.WarmDirectory(context.Background(), engine.Root())
			if err != nil {
				logger.Warn("startup warm failed", zap.Error(err))
				return
			}
			logger.Info("startup warm finished",
				zap.Int("requested", rep.Requested),
				zap.Int("embedded", rep.Embedded),
				zap.Int("failed", rep.Failed),
				zap.Duration("took", rep.Took))
		}()
	}

	srv := server.NewServer(engine, &cfg.Server, logger, watchSvc, resolvedConfigPath, cfg)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	watchSvc.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// argsReorder moves any flags (and their values) that appear after positional
// arguments to the front so that flag.Parse sees them. Go's flag package stops
// at the first non-flag argument.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' && a != "-" {
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

// readKeyList reads one image key per line. Blank lines and lines starting
// with # are skipped.
func readKeyList(r io.Reader) ([]string, error) {
	var keys []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keys = append(keys, line)
	}
	return keys, sc.Err()
}

// readKeyFile reads a key list from path, or from stdin when path is "-".
func readKeyFile(path string) ([]string, error) {
	if path == "-" {
		return readKeyList(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readKeyList(f)
}

// buildSimilarQuery takes the query from the first positional argument and
// candidates from the remaining arguments plus the optional candidates file.
func buildSimilarQuery(args []string, candidatesFile string, k int, pool bool) (*models.SimilarQuery, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return nil, fmt.Errorf("query image is required")
	}
	q := &models.SimilarQuery{Query: args[0], Pool: pool}
	q.Candidates = append(q.Candidates, args[1:]...)
	if candidatesFile != "" {
		keys, err := readKeyFile(candidatesFile)
		if err != nil {
			return nil, fmt.Errorf("read candidates: %w", err)
		}
		q.Candidates = append(q.Candidates, keys...)
	}
	if k >= 0 {
		q.K = &k
	}
	if !pool && len(q.Candidates) == 0 {
		return nil, fmt.Errorf("candidates are required (arguments, --candidates, or --pool)")
	}
	return q, nil
}

func printSimilarUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: ruiji similar [flags] <query-image> [candidate-image...]\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Weights of the returned images sum to 1. The query image is never returned.
Images that cannot be read rank as zero vectors and are recorded as failures.

Examples:
  ruiji similar photos/q.jpg photos/a.jpg photos/b.jpg
  ruiji similar --pool -k 10 photos/q.jpg
  find photos -name '*.jpg' | ruiji similar --candidates - photos/q.jpg
  ruiji similar --output compact --pool photos/q.jpg
`)
}

func runSimilar() {
	args := argsReorder(os.Args[2:])
	fs := flag.NewFlagSet("similar", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = run in-process against local storage)")
	k := fs.Int("k", -1, "number of results (default from retrieval.default_k)")
	pool := fs.Bool("pool", false, "use every image under images.root as candidates")
	candidatesFile := fs.String("candidates", "", "file with one candidate key per line (- for stdin)")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	fs.Usage = func() { printSimilarUsage(fs) }
	_ = fs.Parse(args)

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}
	query, err := buildSimilarQuery(fs.Args(), *candidatesFile, *k, *pool)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n\n", err)
		printSimilarUsage(fs)
		os.Exit(1)
	}

	var response *models.SimilarResponse
	if *serverURL != "" {
		var out models.SimilarResponse
		if err := postJSON(*serverURL+"/api/v1/similar", query, http.StatusOK, &out); err != nil {
			fatalf("Similar failed: %v", err)
		}
		response = &out
	} else {
		withComponents(*configPath, func(c *Components) {
			response, err = c.Engine.Similar(context.Background(), query)
		})
		if err != nil {
			fatalf("Similar failed: %v", err)
		}
	}
	if err := cli.WriteResults(os.Stdout, response, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

// expandWarmArgs replaces directory arguments with the images beneath them.
// Other arguments are passed through as keys and resolve against images.root.
func expandWarmArgs(args []string, extensions []string) ([]string, error) {
	var keys []string
	for _, a := range args {
		info, err := os.Stat(a)
		if err == nil && info.IsDir() {
			found, err := indexer.ScanImages(a, extensions)
			if err != nil {
				return nil, fmt.Errorf("scan %s: %w", a, err)
			}
			keys = append(keys, found...)
			continue
		}
		keys = append(keys, a)
	}
	return keys, nil
}

func runWarm() {
	args := argsReorder(os.Args[2:])
	fs := flag.NewFlagSet("warm", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = run in-process against local storage)")
	keysFile := fs.String("keys", "", "file with one image key per line (- for stdin)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}
	exts := config.DefaultExtensions
	if cfg, _, err := loadConfig(*configPath); err == nil {
		exts = cfg.Images.Extensions
	}
	keys, err := expandWarmArgs(fs.Args(), exts)
	if err != nil {
		fatalf("%v", err)
	}
	if *keysFile != "" {
		more, err := readKeyFile(*keysFile)
		if err != nil {
			fatalf("Read keys: %v", err)
		}
		keys = append(keys, more...)
	}
	if len(keys) == 0 {
		fatalf("Usage: ruiji warm [flags] <image-or-directory>...")
	}

	var resp *models.WarmResponse
	if *serverURL != "" {
		var out models.WarmResponse
		if err := postJSON(*serverURL+"/api/v1/images/warm", models.WarmRequest{Keys: keys}, http.StatusOK, &out); err != nil {
			fatalf("Warm failed: %v", err)
		}
		resp = &out
	} else {
		withComponents(*configPath, func(c *Components) {
			var rep *indexer.Report
			rep, err = c.Engine.Warm(context.Background(), keys)
			if err == nil {
				resp = reportResponse(rep)
			}
		})
		if err != nil {
			fatalf("Warm failed: %v", err)
		}
	}
	if err := cli.WriteWarm(os.Stdout, resp, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func reportResponse(rep *indexer.Report) *models.WarmResponse {
	return &models.WarmResponse{
		Requested: rep.Requested,
		Missing:   rep.Missing,
		Embedded:  rep.Embedded,
		Failed:    rep.Failed,
		Appended:  rep.Appended,
		Took:      rep.Took.Milliseconds(),
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read local storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}
	var status *models.StatusResponse
	if *serverURL != "" {
		var out models.StatusResponse
		if err := getJSON(*serverURL+"/api/v1/status", &out); err != nil {
			fatalf("Status failed: %v", err)
		}
		status = &out
	} else {
		withComponents(*configPath, func(c *Components) {
			status, err = c.Engine.Status(context.Background())
		})
		if err != nil {
			fatalf("Status failed: %v", err)
		}
	}
	if err := cli.WriteStatus(os.Stdout, status, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runFailures() {
	fs := flag.NewFlagSet("failures", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read local storage)")
	limit := fs.Int("limit", 20, "maximum number of failures to list")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}
	if *limit <= 0 {
		fatalf("--limit must be positive")
	}
	var events []*models.EmbeddingEvent
	if *serverURL != "" {
		var out struct {
			Failures []*models.EmbeddingEvent `json:"failures"`
		}
		if err := getJSON(*serverURL+"/api/v1/failures?limit="+strconv.Itoa(*limit), &out); err != nil {
			fatalf("Failures failed: %v", err)
		}
		events = out.Failures
	} else {
		withComponents(*configPath, func(c *Components) {
			events, err = c.Engine.Failures(context.Background(), *limit)
		})
		if err != nil {
			fatalf("Failures failed: %v", err)
		}
	}
	if err := cli.WriteFailures(os.Stdout, events, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runRebuild() {
	fs := flag.NewFlagSet("rebuild", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = rebuild local storage)")
	rewarm := fs.Bool("rewarm", false, "embed every image under images.root after clearing")
	_ = fs.Parse(os.Args[2:])

	if *serverURL != "" {
		var out map[string]string
		want := http.StatusOK
		if *rewarm {
			want = http.StatusAccepted
		}
		if err := postJSON(*serverURL+"/api/v1/rebuild", map[string]bool{"rewarm": *rewarm}, want, &out); err != nil {
			fatalf("Rebuild failed: %v", err)
		}
		fmt.Printf("Rebuild %s\n", out["status"])
		return
	}
	var (
		rep *indexer.Report
		err error
	)
	withComponents(*configPath, func(c *Components) {
		rep, err = c.Engine.Rebuild(context.Background(), *rewarm)
	})
	if err != nil {
		fatalf("Rebuild failed: %v", err)
	}
	fmt.Println("Embedding store cleared")
	if *rewarm {
		_ = cli.WriteWarm(os.Stdout, reportResponse(rep), cli.OutputText)
	}
}

func runWatch() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: ruiji watch <add|remove|list> [path]")
		fmt.Println("  ruiji watch add <path>     Add directory to watch")
		fmt.Println("  ruiji watch remove <path>  Remove directory from watch")
		fmt.Println("  ruiji watch list           List watched directories")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	_ = fs.Parse(argsReorder(os.Args[3:]))
	switch sub {
	case "add":
		if fs.NArg() < 1 {
			fatalf("Usage: ruiji watch add <path>")
		}
		path, _ := filepath.Abs(fs.Arg(0))
		var out map[string]string
		if err := postJSON(*serverURL+"/api/v1/watch/directories", map[string]interface{}{"path": path, "sync": true}, http.StatusCreated, &out); err != nil {
			fatalf("Add failed: %v", err)
		}
		fmt.Printf("Added: %s\n", path)
	case "remove":
		if fs.NArg() < 1 {
			fatalf("Usage: ruiji watch remove <path>")
		}
		path, _ := filepath.Abs(fs.Arg(0))
		req, _ := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/watch/directories?path="+url.QueryEscape(path), nil)
		if err := doJSON(req, http.StatusOK, nil); err != nil {
			fatalf("Remove failed: %v", err)
		}
		fmt.Printf("Removed: %s\n", path)
	case "list":
		var out struct {
			Directories []string `json:"directories"`
		}
		if err := getJSON(*serverURL+"/api/v1/watch/directories", &out); err != nil {
			fatalf("List failed: %v", err)
		}
		for _, d := range out.Directories {
			fmt.Println(d)
		}
	default:
		fatalf("Unknown watch subcommand: %s", sub)
	}
}

var httpClient = &http.Client{Timeout: 10 * time.Minute}

func postJSON(u string, body interface{}, wantStatus int, out interface{}) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, u, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return doJSON(req, wantStatus, out)
}

func getJSON(u string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return doJSON(req, http.StatusOK, out)
}

// doJSON sends req and decodes the body into out when the status matches.
func doJSON(req *http.Request, wantStatus int, out interface{}) error {
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// withComponents loads config, initializes components for in-process use and
// runs fn. Exits on setup failure.
func withComponents(configPath string, fn func(*Components)) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		fatalf("Failed to initialize: %v", err)
	}
	defer components.Close()
	fn(components)
}

// Components holds initialized services.
type Components struct {
	Store    *vector.DiskStore
	Embedder embedding.Embedder
	Events   *storage.SQLiteEventStore
	Syncer   *indexer.Synchronizer
	Engine   *search.Engine
}

func (c *Components) Close() {
	if c.Events != nil {
		_ = c.Events.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func newEmbedder(cfg *config.EmbeddingConfig) (embedding.Embedder, error) {
	switch cfg.Provider {
	case config.ProviderMock:
		return embedding.NewMockEmbedder(cfg.Dimensions), nil
	default:
		e, err := embedding.NewONNXEmbedder(embedding.ONNXOptions{
			ModelPath:         cfg.ModelPath,
			SharedLibraryPath: cfg.SharedLibraryPath,
			Dimensions:        cfg.Dimensions,
			ImageSize:         cfg.ImageSize,
			InputName:         cfg.InputName,
			OutputName:        cfg.OutputName,
			CacheSize:         cfg.CacheSize,
		})
		if err != nil {
			return nil, err
		}
		return e, nil
	}
}

func newResolver(ctx context.Context, cfg *config.ImagesConfig) (resolver.Resolver, error) {
	if cfg.Resolver == config.ResolverS3 {
		client, err := resolver.NewS3Client(ctx, resolver.S3Options{
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		})
		if err != nil {
			return nil, err
		}
		return resolver.NewS3Resolver(client, cfg.S3.Bucket, cfg.S3.Prefix, cfg.Root), nil
	}
	return resolver.NewFileResolver(), nil
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := vector.NewDiskStore(cfg.Storage.VectorDir, cfg.Embedding.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	embedder, err := newEmbedder(&cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	res, err := newResolver(context.Background(), &cfg.Images)
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("failed to initialize image resolver: %w", err)
	}
	events, err := storage.NewSQLiteEventStore(cfg.Storage.DatabasePath)
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("failed to initialize event store: %w", err)
	}

	syncer := indexer.NewSynchronizer(store, embedder, res,
		indexer.WithLogger(logger),
		indexer.WithWorkers(cfg.Embedding.Workers),
		indexer.WithKeyTimeout(cfg.Embedding.TimeoutDuration()),
		indexer.WithRecorder(events),
	)
	engine := search.NewEngine(syncer, &cfg.Retrieval,
		search.WithLogger(logger),
		search.WithImageRoot(cfg.Images.Root, cfg.Images.Extensions),
		search.WithEventStore(events),
	)
	logger.Debug("components initialized",
		zap.String("vector_dir", cfg.Storage.VectorDir),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.String("provider", cfg.Embedding.Provider))

	return &Components{
		Store:    store,
		Embedder: embedder,
		Events:   events,
		Syncer:   syncer,
		Engine:   engine,
	}, nil
}

func printUsage() {
	fmt.Println(`ruiji - Image embedding cache and similarity retrieval

Usage:
  ruiji server [flags]                         Start the HTTP server
  ruiji similar [flags] <query> [candidate...] Rank candidates by similarity to query
  ruiji warm [flags] <image-or-dir>...         Embed images that are not cached yet
  ruiji status [flags]                         Show embedding store status
  ruiji failures [flags]                       List images that failed to embed
  ruiji rebuild [flags]                        Clear the embedding store
  ruiji watch <add|remove|list>                Manage watched directories
  ruiji version                                Show version
  ruiji help                                   Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/ruiji/config.yaml)
  --debug            Enable debug logging
  --warm             Embed every image under images.root at startup

Similar Flags:
  --server string      Server URL (default: http://localhost:8080). Use --server "" to run in-process.
  -k int               Number of results (default from config)
  --pool               Use every image under images.root as candidates
  --candidates string  File with one candidate per line (- for stdin)
  --output string      text, compact, or json

Warm/Status/Failures/Rebuild Flags:
  --config string    Config file path (for in-process mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to run in-process.
  --output string    text or json
  --limit int        (failures) maximum entries
  --rewarm           (rebuild) embed the image pool again after clearing

Examples:
  ruiji server --warm
  ruiji similar photos/q.jpg photos/a.jpg photos/b.jpg
  ruiji similar --pool -k 5 --output json photos/q.jpg
  ruiji warm photos/
  ruiji failures --limit 50
  ruiji rebuild --rewarm
  ruiji watch add /path/to/photos`)
}
