package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/mkaltoft/scrambletron/internal/cache"
	"github.com/mkaltoft/scrambletron/internal/config"
	"github.com/mkaltoft/scrambletron/internal/etl"
	"github.com/mkaltoft/scrambletron/internal/gender"
	"github.com/mkaltoft/scrambletron/internal/logger"
	"github.com/mkaltoft/scrambletron/internal/namestore"
)

func main() {
	var (
		configPath   = flag.String("config", "configs/default.yaml", "Configuration file path")
		inputFile    = flag.String("input", "", "Input dataset file (CSV, Parquet, or JSON lines)")
		batchSize    = flag.Int("batch-size", 1000, "Batch size for processing")
		skipCache    = flag.Bool("skip-cache", false, "Skip warming the Redis label cache")
		rebuildCache = flag.Bool("rebuild-cache", false, "Rebuild the Redis label cache from the database")
		showStats    = flag.Bool("stats", false, "Show database statistics and exit")
	)
	flag.Parse()

	if *inputFile == "" && !*rebuildCache && !*showStats {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --input names.csv --batch-size 500\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --input names.parquet\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --rebuild-cache\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --stats\n", os.Args[0])
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting scrambletron ETL pipeline",
		zap.String("version", "0.1.0"),
		zap.String("config", *configPath))

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, cancelling operations...")
		cancel()
	}()

	// Initialize services
	services, err := initializeServices(cfg, *skipCache, log)
	if err != nil {
		log.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.cleanup()

	// Handle different operations
	switch {
	case *showStats:
		if err := showDatabaseStats(ctx, services); err != nil {
			log.Fatal("Failed to show stats", zap.Error(err))
		}
	case *rebuildCache:
		if err := rebuildCacheFromDB(ctx, services, log); err != nil {
			log.Fatal("Failed to rebuild cache", zap.Error(err))
		}
	default:
		etlConfig := etl.DefaultConfig()
		etlConfig.BatchSize = *batchSize
		etlConfig.WarmCache = !*skipCache && services.labelCache != nil

		if err := processDataset(ctx, services, etlConfig, *inputFile, log); err != nil {
			log.Fatal("ETL processing failed", zap.Error(err))
		}
	}

	log.Info("ETL pipeline completed successfully")
}

// services holds all initialized services
type services struct {
	store      *namestore.Store
	labelCache *cache.LabelCache
}

func (s *services) cleanup() {
	if s.store != nil {
		s.store.Close()
	}
	if s.labelCache != nil {
		s.labelCache.Close()
	}
}

// initializeServices initializes the name store and, when enabled, the
// label cache
func initializeServices(cfg *config.Config, skipCache bool, log *logger.Logger) (*services, error) {
	services := &services{}

	log.Info("Initializing name store...")
	store, err := namestore.NewStore(&namestore.Config{
		DatabaseURL:     cfg.Classifier.Database.URL,
		MaxOpenConns:    cfg.Classifier.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Classifier.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Classifier.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Classifier.Database.ConnMaxIdleTime,
	}, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize name store: %w", err)
	}
	services.store = store

	if cfg.Classifier.CacheEnabled && !skipCache {
		log.Info("Initializing label cache...")
		labelCache, err := cache.NewLabelCache(&cache.Config{
			RedisURL:       cfg.Classifier.Cache.URL,
			MaxConnections: cfg.Classifier.Cache.MaxConnections,
			MinIdleConns:   cfg.Classifier.Cache.MinIdleConns,
			DefaultTTL:     cfg.Classifier.Cache.TTL,
			KeyPrefix:      cfg.Classifier.Cache.KeyPrefix,
		}, log.Logger)
		if err != nil {
			log.Warn("Label cache unavailable, continuing without it", zap.Error(err))
		} else {
			services.labelCache = labelCache
		}
	}

	return services, nil
}

// processDataset processes the input dataset file
func processDataset(ctx context.Context, services *services, etlConfig *etl.Config, inputFile string, log *logger.Logger) error {
	log.Info("Processing dataset", zap.String("file", inputFile))

	// Check if file exists
	if _, err := os.Stat(inputFile); os.IsNotExist(err) {
		return fmt.Errorf("input file does not exist: %s", inputFile)
	}

	// Create ETL pipeline
	pipeline := etl.NewPipeline(
		services.store,
		services.labelCache,
		etlConfig,
		log.Logger,
	)

	// Process the file
	result, err := pipeline.ProcessFile(ctx, inputFile)
	if err != nil {
		return fmt.Errorf("pipeline processing failed: %w", err)
	}

	// Report results
	log.Info("Dataset processing completed",
		zap.String("file", inputFile),
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("processed_ok", result.ProcessedOK),
		zap.Int64("processed_failed", result.ProcessedFailed),
		zap.Int64("duplicates", result.Duplicates),
		zap.Duration("total_duration", result.Duration),
		zap.Duration("database_time", result.DatabaseTime),
		zap.Duration("cache_time", result.CacheTime),
		zap.Float64("records_per_second", float64(result.TotalRecords)/result.Duration.Seconds()))

	if len(result.Errors) > 0 {
		log.Warn("Processing completed with errors", zap.Strings("errors", result.Errors))
	}

	return nil
}

// showDatabaseStats displays current database statistics
func showDatabaseStats(ctx context.Context, services *services) error {
	stats, err := services.store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get database stats: %w", err)
	}

	fmt.Printf("\n=== scrambletron Name Store Statistics ===\n")
	fmt.Printf("Total Names:        %d\n", stats.TotalNames)
	if stats.TotalNames > 0 {
		fmt.Printf("Male Leaning:       %d (%.1f%%)\n", stats.MaleLeaning,
			float64(stats.MaleLeaning)/float64(stats.TotalNames)*100)
		fmt.Printf("Female Leaning:     %d (%.1f%%)\n", stats.FemaleLeaning,
			float64(stats.FemaleLeaning)/float64(stats.TotalNames)*100)
		fmt.Printf("Ambiguous:          %d (%.1f%%)\n", stats.Ambiguous,
			float64(stats.Ambiguous)/float64(stats.TotalNames)*100)
	}

	// Get cache stats if available
	if services.labelCache != nil {
		cacheStats, err := services.labelCache.GetStats(ctx)
		if err == nil {
			fmt.Printf("\n=== Cache Statistics ===\n")
			fmt.Printf("Cache Hits:         %d\n", cacheStats.Hits)
			fmt.Printf("Cache Misses:       %d\n", cacheStats.Misses)
			fmt.Printf("Hit Rate:           %.1f%%\n", cacheStats.HitRate)
			fmt.Printf("Total Keys:         %d\n", cacheStats.TotalKeys)
			fmt.Printf("Memory Usage:       %.2f MB\n", float64(cacheStats.MemoryUsage)/1024/1024)
		}
	}

	return nil
}

// rebuildCacheFromDB rebuilds the Redis label cache from the name store
func rebuildCacheFromDB(ctx context.Context, services *services, log *logger.Logger) error {
	if services.labelCache == nil {
		return fmt.Errorf("label cache is not enabled")
	}

	log.Info("Rebuilding label cache from database...")

	// Clear existing cache
	if err := services.labelCache.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	const batchSize = 1000
	var offset int64
	var total int64
	for {
		names, err := services.store.Names(ctx, batchSize, offset)
		if err != nil {
			return fmt.Errorf("failed to query names: %w", err)
		}
		if len(names) == 0 {
			break
		}

		labels := make(map[string]string, len(names))
		for _, record := range names {
			label := gender.LabelForCounts(record.MaleCount, record.FemaleCount)
			labels[strings.ToLower(record.Name)] = string(label)
		}

		if err := services.labelCache.SetBatch(ctx, labels); err != nil {
			return fmt.Errorf("failed to write cache batch: %w", err)
		}

		offset += int64(len(names))
		total += int64(len(names))
		log.Info("Cache rebuild progress", zap.Int64("processed", total))
	}

	log.Info("Cache rebuild completed", zap.Int64("labels", total))
	return nil
}
