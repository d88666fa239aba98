// Command tlcache flushes and inspects the translation cache.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/ZaguanLabs/tlcache"
	"github.com/ZaguanLabs/tlcache/cache"
)

// Build-time variables (can be overridden with ldflags)
var (
	version   = tlcache.Version
	commit    = tlcache.GitCommit
	buildDate = tlcache.BuildDate
)

const usage = `Usage: tlcache <command> [flags]

Commands:
  flush     Flush the translation cache (all or a specific entry)
  keys      List cache keys tracked by the registry
  get       Print one cached entry as JSON
  export    Export tracked entries as JSON
  import    Import entries from a JSON export
  version   Show version

Run "tlcache <command> -h" for command flags.
`

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("command is required")
	}

	ctx := context.Background()

	switch args[0] {
	case "flush":
		return runFlush(ctx, args[1:], stdout, stderr)
	case "keys":
		return runKeys(ctx, args[1:], stdout, stderr)
	case "get":
		return runGet(ctx, args[1:], stdout, stderr)
	case "export":
		return runExport(ctx, args[1:], stdout, stderr)
	case "import":
		return runImport(ctx, args[1:], stdout, stderr)
	case "version", "--version", "-version":
		printVersion(stdout)
		return nil
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "%s %s\n", tlcache.Name, version)
	if commit != "unknown" && commit != "" {
		fmt.Fprintf(w, "  commit:  %s\n", commit)
	}
	if buildDate != "unknown" && buildDate != "" {
		fmt.Fprintf(w, "  built:   %s\n", buildDate)
	}
}

// runFlush flushes one entry when both locale and group are given, and the
// whole translation cache otherwise.
func runFlush(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("tlcache flush", flag.ContinueOnError)
	fs.SetOutput(stderr)

	cfg := bindConfig(fs)
	locale := fs.String("locale", "", "Flush cache for a specific locale")
	group := fs.String("group", "", "Flush cache for a specific group")
	namespace := fs.String("namespace", "*", "Flush cache for a specific namespace")
	rate := fs.Int("rate", 0, "Maximum deletes per second when flushing everything (0: unlimited)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if !cfg.enabled {
		fmt.Fprintln(stdout, "The translation cache is disabled.")
		return nil
	}

	var opts []tlcache.Option
	if *rate > 0 {
		opts = append(opts, tlcache.WithFlushRate(tlcache.RateLimitConfig{PerSecond: *rate}))
	}

	repo, closeStore, err := openRepository(ctx, cfg, stderr, opts...)
	if err != nil {
		return err
	}
	defer closeStore()

	if *locale != "" && *group != "" {
		if err := repo.Flush(ctx, *locale, *group, *namespace); err != nil {
			return fmt.Errorf("flushing %s/%s/%s: %w", *locale, *group, *namespace, err)
		}
		fmt.Fprintf(stdout, "Translation cache cleared for: %s/%s/%s\n", *locale, *group, *namespace)
		return nil
	}

	if err := repo.FlushAll(ctx); err != nil {
		return fmt.Errorf("flushing translation cache: %w", err)
	}
	fmt.Fprintln(stdout, "All translation cache has been cleared.")
	return nil
}

func runKeys(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("tlcache keys", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg := bindConfig(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}

	if !cfg.enabled {
		fmt.Fprintln(stdout, "The translation cache is disabled.")
		return nil
	}

	repo, closeStore, err := openRepository(ctx, cfg, stderr)
	if err != nil {
		return err
	}
	defer closeStore()

	keys, err := repo.Keys(ctx)
	if err != nil {
		return fmt.Errorf("reading registry: %w", err)
	}
	for _, key := range keys {
		fmt.Fprintln(stdout, key)
	}
	return nil
}

// runGet decodes one entry with the configured codec and prints it as JSON.
func runGet(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("tlcache get", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg := bindConfig(fs)
	locale := fs.String("locale", "", "Locale of the entry")
	group := fs.String("group", "", "Group of the entry")
	namespace := fs.String("namespace", "*", "Namespace of the entry")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if !cfg.enabled {
		fmt.Fprintln(stdout, "The translation cache is disabled.")
		return nil
	}

	repo, closeStore, err := openRepository(ctx, cfg, stderr)
	if err != nil {
		return err
	}
	defer closeStore()

	lines, ok, err := repo.Get(ctx, *locale, *group, *namespace)
	if err != nil {
		return fmt.Errorf("reading %s/%s/%s: %w", *locale, *group, *namespace, err)
	}
	if !ok {
		return fmt.Errorf("no cached entry for %s/%s/%s", *locale, *group, *namespace)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(lines)
}

func runExport(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("tlcache export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg := bindConfig(fs)
	output := fs.String("output", "", "Output file (default: stdout)")
	outputShort := fs.String("o", "", "Output file (short for --output)")
	quiet := fs.Bool("quiet", false, "Suppress progress output")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// Handle -o alias for --output
	if *outputShort != "" && *output == "" {
		*output = *outputShort
	}

	if !cfg.enabled {
		fmt.Fprintln(stdout, "The translation cache is disabled.")
		return nil
	}

	repo, closeStore, err := openRepository(ctx, cfg, stderr)
	if err != nil {
		return err
	}
	defer closeStore()

	exporter := tlcache.NewExporter(repo)
	metadata := map[string]string{"tool": tlcache.Name + "/" + tlcache.FullVersion()}

	var n int
	if *output != "" {
		n, err = exporter.ExportToFile(ctx, *output, metadata)
	} else {
		n, err = exporter.Export(ctx, stdout, metadata)
	}
	if err != nil {
		return fmt.Errorf("exporting cache: %w", err)
	}

	if !*quiet {
		fmt.Fprintf(stderr, "Exported %d entries\n", n)
	}
	return nil
}

func runImport(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("tlcache import", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg := bindConfig(fs)
	ttl := fs.Int("ttl", 60, "TTL in minutes for imported entries")

	file, err := parseWithPositional(fs, args)
	if err != nil {
		return err
	}
	if file == "" {
		fs.Usage()
		return fmt.Errorf("import file is required")
	}

	if !cfg.enabled {
		fmt.Fprintln(stdout, "The translation cache is disabled.")
		return nil
	}

	repo, closeStore, err := openRepository(ctx, cfg, stderr)
	if err != nil {
		return err
	}
	defer closeStore()

	result, err := tlcache.NewImporter(repo).ImportFromFile(ctx, file, *ttl)
	if err != nil {
		return fmt.Errorf("importing cache: %w", err)
	}

	fmt.Fprintf(stdout, "Imported %d entries (%d failed)\n", result.Imported, result.Failed)
	return nil
}

// parseWithPositional parses flags on both sides of a single positional
// argument, so "import cache.json --ttl 5" works like "import --ttl 5 cache.json".
func parseWithPositional(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() == 0 {
		return "", nil
	}
	arg := fs.Arg(0)
	if err := fs.Parse(fs.Args()[1:]); err != nil {
		return "", err
	}
	if fs.NArg() != 0 {
		return "", fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return arg, nil
}

// config holds store settings shared by every command. Flags default to
// TLCACHE_* environment variables.
type config struct {
	enabled    bool
	store      string
	redisURL   string
	sqlitePath string
	prefix     string
	codec      string
	verbose    bool
}

func bindConfig(fs *flag.FlagSet) *config {
	cfg := &config{}
	fs.BoolVar(&cfg.enabled, "enabled", envBool("TLCACHE_ENABLED", true), "Whether the translation cache is enabled (env TLCACHE_ENABLED)")
	fs.StringVar(&cfg.store, "store", envString("TLCACHE_STORE", "redis"), "Cache store: redis, sqlite or memory (env TLCACHE_STORE)")
	fs.StringVar(&cfg.redisURL, "redis-url", envString("TLCACHE_REDIS_URL", "redis://localhost:6379/0"), "Redis URL (env TLCACHE_REDIS_URL)")
	fs.StringVar(&cfg.sqlitePath, "sqlite-path", envString("TLCACHE_SQLITE_PATH", "tlcache.db"), "SQLite database path (env TLCACHE_SQLITE_PATH)")
	fs.StringVar(&cfg.prefix, "prefix", envString("TLCACHE_PREFIX", "translation"), "Cache key prefix (env TLCACHE_PREFIX)")
	fs.StringVar(&cfg.codec, "codec", envString("TLCACHE_CODEC", "json"), "Payload codec: json or msgpack (env TLCACHE_CODEC)")
	fs.BoolVar(&cfg.verbose, "verbose", false, "Enable debug logging")
	return cfg
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openRepository connects the configured store and builds the repository.
// The returned function closes the store.
func openRepository(ctx context.Context, cfg *config, stderr io.Writer, opts ...tlcache.Option) (*tlcache.Repository[tlcache.Lines], func(), error) {
	logger := newLogger(stderr, cfg.verbose)

	codec, err := tlcache.CodecByName(cfg.codec)
	if err != nil {
		return nil, nil, err
	}

	var (
		store   tlcache.Store
		closeFn = func() {}
	)

	switch cfg.store {
	case "redis":
		s, err := cache.NewRedisStore(cache.RedisConfig{URL: cfg.redisURL})
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		store = s
		closeFn = func() { _ = s.Close() }
	case "sqlite":
		s, err := cache.OpenSQLite(ctx, cfg.sqlitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite: %w", err)
		}
		store = s
		closeFn = func() { _ = s.Close() }
	case "memory":
		store = cache.NewMemoryStore()
	default:
		return nil, nil, fmt.Errorf("unknown store %q (want redis, sqlite or memory)", cfg.store)
	}

	logger.Debug("opened cache store", "store", cfg.store, "prefix", cfg.prefix, "codec", codec.Name())

	opts = append([]tlcache.Option{tlcache.WithLogger(logger), tlcache.WithCodec(codec)}, opts...)
	repo, err := tlcache.NewRepository[tlcache.Lines](store, cfg.prefix, opts...)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return repo, closeFn, nil
}

func envString(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return fallback
}

func envBool(name string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
