package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/bread133/xk7-retail-group/pkg/contentdna"
	"github.com/bread133/xk7-retail-group/pkg/contentdna/media"
	"github.com/bread133/xk7-retail-group/pkg/contentdna/storage"
	"github.com/bread133/xk7-retail-group/pkg/logger"
)

// Global flags
var (
	dbPath     string
	backend    string
	tempDir    string
	sampleRate int
	cacheSize  int
)

func registerGlobalFlags() {
	flag.StringVar(&dbPath, "db", getEnvOrDefault("XK7_DB_PATH", storage.DefaultDBFile), "Path to the database (sqlite file or badger directory)")
	flag.StringVar(&backend, "backend", getEnvOrDefault("XK7_BACKEND", storage.BackendSQLite), "Storage backend: sqlite or badger")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("XK7_TEMP_DIR", os.TempDir()), "Directory for temporary audio extraction files")
	flag.IntVar(&sampleRate, "rate", getEnvIntOrDefault("XK7_SAMPLE_RATE", media.DefaultSampleRate), "Audio sample rate for processing")
	flag.IntVar(&cacheSize, "cache", getEnvIntOrDefault("XK7_LOOKUP_CACHE", 0), "Hash lookup cache size in buckets (0 disables)")
	flag.Usage = printUsage
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		logger.Warnf("Ignoring non-numeric %s=%q", key, value)
	}
	return defaultValue
}

// createService creates a new service with configured options
func createService(opts ...contentdna.Option) (contentdna.Service, error) {
	base := []contentdna.Option{
		contentdna.WithDBPath(dbPath),
		contentdna.WithBackend(backend),
		contentdna.WithTempDir(tempDir),
		contentdna.WithSampleRate(sampleRate),
		contentdna.WithLookupCache(cacheSize),
	}
	return contentdna.NewService(append(base, opts...)...)
}

// mustCreateService exits when the service cannot be built.
func mustCreateService(opts ...contentdna.Option) contentdna.Service {
	svc, err := createService(opts...)
	if err != nil {
		fmt.Printf("❌ Failed to create service: %v\n", err)
		logger.Fatalf("Service initialization failed: %v", err)
	}
	return svc
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	registerGlobalFlags()
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]
	logger.Debugf("Executing command: %s", command)

	switch command {
	case "add":
		handleAdd(args)
	case "match":
		handleMatch(args)
	case "list":
		handleList()
	case "delete":
		handleDelete(args)
	case "index":
		handleIndex(args)
	case "spectrogram":
		handleSpectrogram(args)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// parseArgs parses fs over args, allowing positional arguments before, between
// and after flags, and returns the positional ones.
func parseArgs(fs *flag.FlagSet, args []string) []string {
	var positional []string
	for {
		fs.Parse(args)
		args = fs.Args()
		if len(args) == 0 {
			return positional
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

func printUsage() {
	fmt.Println("xk7 - audio/video content reuse detection")
	fmt.Println("\nGlobal Options:")
	fmt.Println("  --db <path>        Database path (env: XK7_DB_PATH, default: " + storage.DefaultDBFile + ")")
	fmt.Println("  --backend <name>   sqlite or badger (env: XK7_BACKEND, default: sqlite)")
	fmt.Println("  --temp <dir>       Temporary directory for audio extraction (env: XK7_TEMP_DIR)")
	fmt.Println("  --rate <hz>        Audio sample rate (env: XK7_SAMPLE_RATE, default: 11025)")
	fmt.Println("  --cache <n>        Hash lookup cache size (env: XK7_LOOKUP_CACHE, default: 0)")
	fmt.Println("\nUsage:")
	fmt.Println("  xk7 [global-options] add <file> [--title <title>] [--audio-only|--video-only]")
	fmt.Println("  xk7 [global-options] match <file> [--video]")
	fmt.Println("  xk7 [global-options] list")
	fmt.Println("  xk7 [global-options] delete <content_id>")
	fmt.Println("  xk7 [global-options] index <dir> [--workers <n>] [--audio-only|--video-only]")
	fmt.Println("  xk7 spectrogram <wav_file> <png_file>")
	fmt.Println("\nExamples:")
	fmt.Println("  # Index a reference library into badger")
	fmt.Println("  xk7 --backend badger --db ./refdb index ./library --workers 4")
	fmt.Println()
	fmt.Println("  # Match an upload, verifying audio matches against the video track")
	fmt.Println("  xk7 --backend badger --db ./refdb match upload.mp4 --video")
}
