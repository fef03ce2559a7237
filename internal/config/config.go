// Package config defines the engine's configuration document and loads
// it with the layered precedence CLI flags > environment > project
// config file > global config file > built-in defaults.
package config

// ScannerConfig controls the walker (out of scope for the engine
// proper, but shares the same document).
type ScannerConfig struct {
	MaxWorkers   int `mapstructure:"max_workers"`
	IOChunkBytes int `mapstructure:"io_chunk_bytes"`
}

// DedupeConfig controls the dedup pipeline and stage executor.
type DedupeConfig struct {
	Enabled           bool  `mapstructure:"enabled"`
	MaxWorkers        int   `mapstructure:"max_workers"`
	SmallFileThreshold int64 `mapstructure:"small_file_threshold"`
	MinFileSize       int64 `mapstructure:"min_file_size"`
	MinDuplicateCount int   `mapstructure:"min_duplicate_count"`
	QuickHashBytes    int64 `mapstructure:"quick_hash_bytes"`
	ShaChunkBytes     int64 `mapstructure:"sha_chunk_bytes"`
}

// DBConfig controls how the catalog store is opened.
type DBConfig struct {
	Path         string `mapstructure:"path"`
	JournalMode  string `mapstructure:"journal_mode"`
	Synchronous  string `mapstructure:"synchronous"`
}

// ExportConfig controls the export command's output location.
type ExportConfig struct {
	ParquetDir string `mapstructure:"parquet_dir"`
}

// Config is the full document read from catalog.yaml.
type Config struct {
	Roots         []string `mapstructure:"roots"`
	IncludeExt    []string `mapstructure:"include_ext"`
	ExcludePaths  []string `mapstructure:"exclude_paths"`
	Scanner       ScannerConfig `mapstructure:"scanner"`
	Dedupe        DedupeConfig  `mapstructure:"dedupe"`
	DB            DBConfig      `mapstructure:"db"`
	Export        ExportConfig  `mapstructure:"export"`
}

// Defaults returns the configuration document's defaults, taken
// verbatim from the engine's external-interface specification.
func Defaults() *Config {
	return &Config{
		Scanner: ScannerConfig{
			MaxWorkers:   8,
			IOChunkBytes: 65536,
		},
		Dedupe: DedupeConfig{
			Enabled:            true,
			MaxWorkers:         8,
			SmallFileThreshold: 131072,
			MinFileSize:        1024,
			MinDuplicateCount:  2,
			QuickHashBytes:     262144,
			ShaChunkBytes:      2097152,
		},
		DB: DBConfig{
			Path:        "data/projects.db",
			JournalMode: "WAL",
			Synchronous: "NORMAL",
		},
		Export: ExportConfig{
			ParquetDir: "data/export",
		},
	}
}
