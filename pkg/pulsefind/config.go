package pulsefind

import (
	"time"

	"github.com/marvisomokaro4-boop/pulsefind/pkg/pulsefind/match"
)

type Config struct {
	DBPath         string
	TempDir        string
	SampleRate     int
	SegmentTimeout time.Duration

	Logger     Logger
	Storage    Storage
	Analytics  AnalyticsSink
	Recognizer match.Recognizer
	Platforms  []match.PlatformSearcher
	Resolver   match.CatalogResolver
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
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

func WithSegmentTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.SegmentTimeout = d
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

func WithAnalytics(sink AnalyticsSink) Option {
	return func(c *Config) {
		c.Analytics = sink
	}
}

func WithRecognizer(r match.Recognizer) Option {
	return func(c *Config) {
		c.Recognizer = r
	}
}

func WithPlatforms(platforms ...match.PlatformSearcher) Option {
	return func(c *Config) {
		c.Platforms = platforms
	}
}

func WithResolver(resolver match.CatalogResolver) Option {
	return func(c *Config) {
		c.Resolver = resolver
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:     "pulsefind.sqlite3",
		TempDir:    "/tmp",
		SampleRate: 11025,
	}
}
