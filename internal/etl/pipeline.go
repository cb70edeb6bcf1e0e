package etl

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"

	"github.com/mkaltoft/scrambletron/internal/cache"
	"github.com/mkaltoft/scrambletron/internal/gender"
	"github.com/mkaltoft/scrambletron/internal/namestore"
)

// maxNameLength caps the accepted name length during validation
const maxNameLength = 64

// Pipeline ingests first-name frequency datasets into the name store
// and optionally warms the label cache.
type Pipeline struct {
	store      *namestore.Store
	labelCache *cache.LabelCache
	config     *Config
	logger     *zap.Logger
	stats      *ProcessingStats
	seen       map[string]struct{}
	mu         sync.RWMutex
}

// NewPipeline creates a new ETL pipeline. The label cache may be nil
// when cache warming is disabled.
func NewPipeline(
	store *namestore.Store,
	labelCache *cache.LabelCache,
	config *Config,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		store:      store,
		labelCache: labelCache,
		config:     config,
		logger:     logger,
		stats: &ProcessingStats{
			StartTime: time.Now(),
		},
	}
}

// ProcessFile processes a dataset file (CSV, Parquet, or JSON lines)
func (p *Pipeline) ProcessFile(ctx context.Context, filePath string) (*ProcessingResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	p.logger.Info("Starting ETL pipeline",
		zap.String("file", filePath),
		zap.Int("batch_size", p.config.BatchSize),
		zap.Bool("warm_cache", p.config.WarmCache && p.labelCache != nil))

	start := time.Now()
	result := &ProcessingResult{}

	// Detect file format
	format := DetectFileFormat(filePath)
	p.logger.Info("Detected file format", zap.String("format", string(format)))

	// Reset stats and the dedup set
	p.resetStats()

	// Process based on file format
	switch format {
	case FormatCSV:
		if err := p.processCSV(ctx, filePath, result); err != nil {
			return result, fmt.Errorf("CSV processing failed: %w", err)
		}
	case FormatParquet:
		if err := p.processParquet(ctx, filePath, result); err != nil {
			return result, fmt.Errorf("Parquet processing failed: %w", err)
		}
	case FormatJSON:
		if err := p.processJSON(ctx, filePath, result); err != nil {
			return result, fmt.Errorf("JSON processing failed: %w", err)
		}
	default:
		return result, fmt.Errorf("unsupported file format: %s", format)
	}

	result.Duration = time.Since(start)

	p.logger.Info("ETL pipeline completed",
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("processed_ok", result.ProcessedOK),
		zap.Int64("processed_failed", result.ProcessedFailed),
		zap.Int64("duplicates", result.Duplicates),
		zap.Duration("total_duration", result.Duration),
		zap.Duration("database_time", result.DatabaseTime),
		zap.Duration("cache_time", result.CacheTime))

	return result, nil
}

// processCSV processes CSV files with a name,male_count,female_count header
func (p *Pipeline) processCSV(ctx context.Context, filePath string, result *ProcessingResult) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 3 // name, male_count, female_count

	// Read header
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}

	p.logger.Info("CSV header detected", zap.Strings("columns", header))

	// Process records in batches
	return p.processBatches(ctx, func() ([]*NameRecord, error) {
		var batch []*NameRecord

		for len(batch) < p.config.BatchSize {
			row, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				p.logger.Warn("Failed to read CSV record", zap.Error(err))
				continue
			}

			if len(row) != 3 {
				p.logger.Warn("Invalid CSV record length", zap.Int("length", len(row)))
				continue
			}

			maleCount, maleErr := strconv.ParseInt(strings.TrimSpace(row[1]), 10, 64)
			femaleCount, femaleErr := strconv.ParseInt(strings.TrimSpace(row[2]), 10, 64)
			if maleErr != nil || femaleErr != nil {
				p.logger.Warn("Invalid CSV count column", zap.Strings("row", row))
				continue
			}

			record := &NameRecord{
				Name:        strings.TrimSpace(row[0]),
				MaleCount:   maleCount,
				FemaleCount: femaleCount,
			}

			if p.acceptRecord(record, result) {
				batch = append(batch, record)
			}
		}

		return batch, nil
	}, result)
}

// processParquet processes Parquet files
func (p *Pipeline) processParquet(ctx context.Context, filePath string, result *ProcessingResult) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open Parquet file: %w", err)
	}
	defer file.Close()

	reader := parquet.NewReader(file)
	defer reader.Close()

	// Process records in batches
	return p.processBatches(ctx, func() ([]*NameRecord, error) {
		var batch []*NameRecord

		for len(batch) < p.config.BatchSize {
			var record NameRecord
			err := reader.Read(&record)
			if err == io.EOF {
				break
			}
			if err != nil {
				p.logger.Warn("Failed to read Parquet record", zap.Error(err))
				continue
			}

			if p.acceptRecord(&record, result) {
				batch = append(batch, &record)
			}
		}

		return batch, nil
	}, result)
}

// processJSON processes JSON files (one JSON object per line)
func (p *Pipeline) processJSON(ctx context.Context, filePath string, result *ProcessingResult) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open JSON file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)

	// Process records in batches
	return p.processBatches(ctx, func() ([]*NameRecord, error) {
		var batch []*NameRecord

		for len(batch) < p.config.BatchSize {
			var record NameRecord
			err := decoder.Decode(&record)
			if err == io.EOF {
				break
			}
			if err != nil {
				p.logger.Warn("Failed to read JSON record", zap.Error(err))
				continue
			}

			if p.acceptRecord(&record, result) {
				batch = append(batch, &record)
			}
		}

		return batch, nil
	}, result)
}

// processBatches processes data in batches using the provided reader function
func (p *Pipeline) processBatches(ctx context.Context, readBatch func() ([]*NameRecord, error), result *ProcessingResult) error {
	for {
		// Check context cancellation
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Read next batch
		batch, err := readBatch()
		if err != nil {
			return fmt.Errorf("failed to read batch: %w", err)
		}

		if len(batch) == 0 {
			break // End of file
		}

		result.TotalRecords += int64(len(batch))

		// Process batch
		if err := p.processBatch(ctx, batch, result); err != nil {
			p.logger.Error("Batch processing failed", zap.Error(err))
			result.ProcessedFailed += int64(len(batch))
			result.Errors = append(result.Errors, err.Error())
			continue
		}

		result.ProcessedOK += int64(len(batch))

		// Progress reporting
		if result.TotalRecords > 0 && result.TotalRecords%int64(p.config.ProgressReport) == 0 {
			p.reportProgress(result)
		}
	}

	return nil
}

// processBatch upserts a single batch of records and warms the cache
func (p *Pipeline) processBatch(ctx context.Context, batch []*NameRecord, result *ProcessingResult) error {
	if len(batch) == 0 {
		return nil
	}

	rows := make([]*namestore.FirstName, len(batch))
	for i, record := range batch {
		rows[i] = &namestore.FirstName{
			Name:        record.Name,
			MaleCount:   record.MaleCount,
			FemaleCount: record.FemaleCount,
		}
	}

	dbStart := time.Now()
	upsertResult, err := p.store.BatchUpsert(ctx, rows)
	if err != nil {
		return fmt.Errorf("database batch upsert failed: %w", err)
	}
	result.DatabaseTime += time.Since(dbStart)

	if p.config.WarmCache && p.labelCache != nil {
		cacheStart := time.Now()
		p.warmCache(ctx, batch)
		result.CacheTime += time.Since(cacheStart)
	}

	p.mu.Lock()
	p.stats.DatabaseWrites += upsertResult.Written
	p.stats.CurrentBatch++
	p.mu.Unlock()

	p.logger.Debug("Batch processed",
		zap.Int("batch_size", len(batch)),
		zap.Int64("written", upsertResult.Written),
		zap.Int64("failed", upsertResult.Failed))

	return nil
}

// warmCache precomputes classification labels for the batch so the
// classifier's first lookups hit Redis instead of Postgres.
func (p *Pipeline) warmCache(ctx context.Context, batch []*NameRecord) {
	labels := make(map[string]string, len(batch))
	for _, record := range batch {
		label := gender.LabelForCounts(record.MaleCount, record.FemaleCount)
		labels[strings.ToLower(record.Name)] = string(label)
	}

	if err := p.labelCache.SetBatch(ctx, labels); err != nil {
		p.logger.Warn("Failed to warm label cache", zap.Error(err))
		return
	}

	p.mu.Lock()
	p.stats.CacheWrites += int64(len(labels))
	p.mu.Unlock()

	p.logger.Debug("Label cache warmed", zap.Int("labels", len(labels)))
}

// acceptRecord validates and deduplicates a record, updating stats and
// the running result.
func (p *Pipeline) acceptRecord(record *NameRecord, result *ProcessingResult) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.RecordsRead++

	if !p.validateRecord(record) {
		p.stats.RecordsInvalid++
		return false
	}

	if p.config.SkipDuplicates {
		key := strings.ToLower(record.Name)
		if _, dup := p.seen[key]; dup {
			result.Duplicates++
			return false
		}
		p.seen[key] = struct{}{}
	}

	p.stats.RecordsValid++
	return true
}

// validateRecord validates a name record
func (p *Pipeline) validateRecord(record *NameRecord) bool {
	if !p.config.ValidateData {
		return true
	}

	name := strings.TrimSpace(record.Name)
	if name == "" {
		p.logger.Debug("Invalid record: empty name")
		return false
	}

	if len(name) > maxNameLength {
		p.logger.Debug("Invalid record: name too long", zap.Int("length", len(name)))
		return false
	}

	if record.MaleCount < 0 || record.FemaleCount < 0 {
		p.logger.Debug("Invalid record: negative count", zap.String("name", name))
		return false
	}

	if record.MaleCount == 0 && record.FemaleCount == 0 {
		p.logger.Debug("Invalid record: no observations", zap.String("name", name))
		return false
	}

	return true
}

// reportProgress reports current processing progress
func (p *Pipeline) reportProgress(result *ProcessingResult) {
	elapsed := time.Since(p.stats.StartTime)
	rate := float64(result.TotalRecords) / elapsed.Seconds()

	p.mu.Lock()
	p.stats.ProcessingRate = rate
	p.mu.Unlock()

	p.logger.Info("Processing progress",
		zap.Int64("records_processed", result.TotalRecords),
		zap.Int64("records_ok", result.ProcessedOK),
		zap.Int64("records_failed", result.ProcessedFailed),
		zap.Int64("duplicates", result.Duplicates),
		zap.Float64("rate_per_sec", rate),
		zap.Duration("elapsed", elapsed))
}

// resetStats resets processing statistics and the dedup set
func (p *Pipeline) resetStats() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats = &ProcessingStats{
		StartTime: time.Now(),
	}
	p.seen = make(map[string]struct{})
}

// GetStats returns a copy of the current processing statistics
func (p *Pipeline) GetStats() *ProcessingStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := *p.stats
	return &stats
}
