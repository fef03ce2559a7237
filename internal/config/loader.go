package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/bpopineau/corpuscat/internal/errs"
)

// Loader assembles a Config from, in ascending precedence: built-in
// defaults, a global config file (~/.corpuscat.yaml), a project config
// file (./catalog.yaml), environment variables (CORPUSCAT_ prefix),
// and finally CLI flag overrides applied by the caller after Load
// returns.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a Loader. It loads a local .env file, if present,
// before reading any other source.
func NewLoader() *Loader {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvPrefix("CORPUSCAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	d := Defaults()
	v.SetDefault("scanner.max_workers", d.Scanner.MaxWorkers)
	v.SetDefault("scanner.io_chunk_bytes", d.Scanner.IOChunkBytes)
	v.SetDefault("dedupe.enabled", d.Dedupe.Enabled)
	v.SetDefault("dedupe.max_workers", d.Dedupe.MaxWorkers)
	v.SetDefault("dedupe.small_file_threshold", d.Dedupe.SmallFileThreshold)
	v.SetDefault("dedupe.min_file_size", d.Dedupe.MinFileSize)
	v.SetDefault("dedupe.min_duplicate_count", d.Dedupe.MinDuplicateCount)
	v.SetDefault("dedupe.quick_hash_bytes", d.Dedupe.QuickHashBytes)
	v.SetDefault("dedupe.sha_chunk_bytes", d.Dedupe.ShaChunkBytes)
	v.SetDefault("db.path", d.DB.Path)
	v.SetDefault("db.journal_mode", d.DB.JournalMode)
	v.SetDefault("db.synchronous", d.DB.Synchronous)
	v.SetDefault("export.parquet_dir", d.Export.ParquetDir)

	return &Loader{v: v}
}

// Load reads the global and project config files (either may be
// absent) and unmarshals the merged document into a Config.
//
// Precedence: Set overrides > environment > project file > global
// file > defaults.
func (l *Loader) Load(projectConfigPath string) (*Config, error) {
	if err := l.loadGlobal(); err != nil {
		return nil, err
	}
	if err := l.loadProject(projectConfigPath); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, errs.Config("parse configuration", err)
	}
	return cfg, nil
}

func (l *Loader) loadGlobal() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	path := filepath.Join(home, ".corpuscat.yaml")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	l.v.SetConfigFile(path)
	if err := l.v.ReadInConfig(); err != nil {
		return errs.Config("read global config "+path, err)
	}
	return nil
}

func (l *Loader) loadProject(path string) error {
	if path == "" {
		path = "catalog.yaml"
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	l.v.SetConfigFile(path)
	if err := l.v.MergeInConfig(); err != nil {
		return errs.Config("read project config "+path, err)
	}
	return nil
}

// Set applies a single CLI override using viper's dotted-key notation,
// e.g. Set("dedupe.max_workers", 4).
func (l *Loader) Set(key string, value any) {
	l.v.Set(key, value)
}
