package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/jobala/pagecache/storage/disk"
	"github.com/jobala/pagecache/util"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// number of page frames in the buffer pool
	PoolSize int `yaml:"pool_size"`
	// directory holding one file per page file name
	DataDir string `yaml:"data_dir"`
	// capacity of each page file in pages, header page included
	MaxPagesPerFile int64 `yaml:"max_pages_per_file"`
	// none, snappy or lz4
	HeaderCompression string `yaml:"header_compression"`
	SyncWrites        bool   `yaml:"sync_writes"`
	// route page store calls through the disk scheduler's worker
	AsyncIO  bool   `yaml:"async_io"`
	LogLevel string `yaml:"log_level"`
}

func DefaultConfig() *Config {
	return &Config{
		PoolSize:          64,
		DataDir:           "./data",
		MaxPagesPerFile:   disk.DEFAULT_MAX_PAGES,
		HeaderCompression: "none",
		SyncWrites:        false,
		AsyncIO:           false,
		LogLevel:          "info",
	}
}

// LoadConfigFromFile reads a YAML file on top of the defaults.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from PAGECACHE_* environment variables.
// Unparseable values are reported rather than ignored.
func (c *Config) ApplyEnv() error {
	if val := os.Getenv("PAGECACHE_POOL_SIZE"); val != "" {
		size, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("PAGECACHE_POOL_SIZE: %w", err)
		}
		c.PoolSize = size
	}

	if val := os.Getenv("PAGECACHE_DATA_DIR"); val != "" {
		c.DataDir = val
	}

	if val := os.Getenv("PAGECACHE_MAX_PAGES_PER_FILE"); val != "" {
		maxPages, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("PAGECACHE_MAX_PAGES_PER_FILE: %w", err)
		}
		c.MaxPagesPerFile = maxPages
	}

	if val := os.Getenv("PAGECACHE_HEADER_COMPRESSION"); val != "" {
		c.HeaderCompression = val
	}

	if val := os.Getenv("PAGECACHE_SYNC_WRITES"); val != "" {
		c.SyncWrites = val == "true" || val == "1"
	}

	if val := os.Getenv("PAGECACHE_ASYNC_IO"); val != "" {
		c.AsyncIO = val == "true" || val == "1"
	}

	if val := os.Getenv("PAGECACHE_LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}

	return nil
}

func (c *Config) Validate() error {
	if c.PoolSize < 1 {
		return fmt.Errorf("pool size must be at least 1")
	}

	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	if c.MaxPagesPerFile <= disk.FIRST_PAGE_ID {
		return fmt.Errorf("max pages per file must be greater than %d", disk.FIRST_PAGE_ID)
	}

	if _, err := disk.ParseCompression(c.HeaderCompression); err != nil {
		return err
	}

	if _, err := util.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	return nil
}

// DiskOptions translates the config into disk manager options. Call
// Validate first.
func (c *Config) DiskOptions() disk.Options {
	compression, _ := disk.ParseCompression(c.HeaderCompression)
	return disk.Options{
		MaxPages:    c.MaxPagesPerFile,
		Compression: compression,
		SyncWrites:  c.SyncWrites,
	}
}

func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
