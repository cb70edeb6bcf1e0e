package etl

import (
	"path/filepath"
	"strings"
	"time"
)

// NameRecord represents a single first-name frequency record from the
// input dataset
type NameRecord struct {
	Name        string `csv:"name" parquet:"name" json:"name"`
	MaleCount   int64  `csv:"male_count" parquet:"male_count" json:"male_count"`
	FemaleCount int64  `csv:"female_count" parquet:"female_count" json:"female_count"`
}

// ProcessingResult represents the result of processing a dataset
type ProcessingResult struct {
	TotalRecords    int64         `json:"total_records"`
	ProcessedOK     int64         `json:"processed_ok"`
	ProcessedFailed int64         `json:"processed_failed"`
	Duplicates      int64         `json:"duplicates"`
	Duration        time.Duration `json:"duration"`
	DatabaseTime    time.Duration `json:"database_time"`
	CacheTime       time.Duration `json:"cache_time"`
	Errors          []string      `json:"errors,omitempty"`
}

// Config contains ETL pipeline configuration
type Config struct {
	BatchSize      int  `yaml:"batch_size" mapstructure:"batch_size"`           // 1000
	SkipDuplicates bool `yaml:"skip_duplicates" mapstructure:"skip_duplicates"` // true
	ValidateData   bool `yaml:"validate_data" mapstructure:"validate_data"`     // true
	WarmCache      bool `yaml:"warm_cache" mapstructure:"warm_cache"`           // true
	ProgressReport int  `yaml:"progress_report" mapstructure:"progress_report"` // 10000
}

// DefaultConfig returns the default pipeline configuration
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      1000,
		SkipDuplicates: true,
		ValidateData:   true,
		WarmCache:      true,
		ProgressReport: 10000,
	}
}

// ProcessingStats tracks real-time processing statistics
type ProcessingStats struct {
	StartTime      time.Time `json:"start_time"`
	RecordsRead    int64     `json:"records_read"`
	RecordsValid   int64     `json:"records_valid"`
	RecordsInvalid int64     `json:"records_invalid"`
	DatabaseWrites int64     `json:"database_writes"`
	CacheWrites    int64     `json:"cache_writes"`
	CurrentBatch   int64     `json:"current_batch"`
	ProcessingRate float64   `json:"processing_rate"` // records per second
}

// FileFormat represents supported file formats
type FileFormat string

const (
	FormatCSV     FileFormat = "csv"
	FormatParquet FileFormat = "parquet"
	FormatJSON    FileFormat = "json"
)

// DetectFileFormat detects file format from extension
func DetectFileFormat(filename string) FileFormat {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV
	case ".parquet":
		return FormatParquet
	case ".json", ".jsonl", ".ndjson":
		return FormatJSON
	default:
		return FormatCSV // Default to CSV
	}
}
