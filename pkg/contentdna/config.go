package contentdna

import (
	"os"
	"runtime"

	"github.com/bread133/xk7-retail-group/pkg/contentdna/fingerprint"
	"github.com/bread133/xk7-retail-group/pkg/contentdna/matching"
	"github.com/bread133/xk7-retail-group/pkg/contentdna/media"
	"github.com/bread133/xk7-retail-group/pkg/contentdna/storage"
	"github.com/bread133/xk7-retail-group/pkg/contentdna/video"
)

type Config struct {
	DBPath     string
	Backend    string // storage.BackendSQLite or storage.BackendBadger
	TempDir    string
	SampleRate int
	Workers    int

	// LookupCacheSize is the number of hash buckets cached in front of the
	// store; 0 disables the cache.
	LookupCacheSize int

	AudioParams      fingerprint.Params
	MatchParams      matching.Params
	VideoParams      video.Params
	VideoMatchParams video.MatchParams

	Logger  Logger
	Storage Storage
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithBackend(backend string) Option {
	return func(c *Config) {
		c.Backend = backend
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

func WithSampleRate(rate int) Option {
	return func(c *Config) {
		c.SampleRate = rate
	}
}

// WithWorkers bounds batch and aggregation concurrency.
func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
		c.MatchParams.Workers = n
	}
}

func WithLookupCache(size int) Option {
	return func(c *Config) {
		c.LookupCacheSize = size
	}
}

func WithAudioParams(p fingerprint.Params) Option {
	return func(c *Config) {
		c.AudioParams = p
	}
}

func WithMatchParams(p matching.Params) Option {
	return func(c *Config) {
		c.MatchParams = p
	}
}

func WithVideoParams(p video.Params) Option {
	return func(c *Config) {
		c.VideoParams = p
	}
}

func WithVideoMatchParams(p video.MatchParams) Option {
	return func(c *Config) {
		c.VideoMatchParams = p
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

// WithStorage injects a store; DBPath and Backend are then ignored.
func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:           storage.DefaultDBFile,
		Backend:          storage.BackendSQLite,
		TempDir:          os.TempDir(),
		SampleRate:       media.DefaultSampleRate,
		Workers:          runtime.NumCPU(),
		AudioParams:      fingerprint.DefaultParams(),
		MatchParams:      matching.DefaultParams(),
		VideoParams:      video.DefaultParams(),
		VideoMatchParams: video.DefaultMatchParams(),
		Logger:           nil,
	}
}
