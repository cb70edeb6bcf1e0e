package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/mkaltoft/scrambletron/internal/analyzer"
	"github.com/mkaltoft/scrambletron/internal/cache"
	"github.com/mkaltoft/scrambletron/internal/config"
	"github.com/mkaltoft/scrambletron/internal/faker"
	"github.com/mkaltoft/scrambletron/internal/gender"
	"github.com/mkaltoft/scrambletron/internal/logger"
	"github.com/mkaltoft/scrambletron/internal/namestore"
	"github.com/mkaltoft/scrambletron/internal/pseudonym"
	"github.com/mkaltoft/scrambletron/internal/scramble"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to configuration file")
		text       = flag.String("text", "", "Text to anonymize")
		inputFile  = flag.String("input", "", "Input file to anonymize (one document per line)")
		outputFile = flag.String("output", "", "Output file (defaults to <input>.scrambled, or stdout for -text)")
		language   = flag.String("language", "", "Language hint (defaults to configuration)")
		variant    = flag.String("variant", "", "Anonymization variant: counter or replacer")
		format     = flag.String("format", "", "Replacer placeholder format: plain or indexed")
		seed       = flag.Int64("seed", 0, "Random seed for the replacer (0 draws one)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	if *text == "" && *inputFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --text \"Min CPR er 010199-2004\"\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --input samtaler.txt --output samtaler.anon.txt\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --text \"Jens ringede\" --variant replacer --seed 42\n", os.Args[0])
		os.Exit(1)
	}

	// Load configuration and apply flag overrides
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *variant != "" {
		if *variant != "counter" && *variant != "replacer" {
			fmt.Fprintf(os.Stderr, "Invalid variant: %s (must be counter or replacer)\n", *variant)
			os.Exit(1)
		}
		cfg.Anonymize.Operator = *variant
	}
	if *format != "" {
		if *format != "plain" && *format != "indexed" {
			fmt.Fprintf(os.Stderr, "Invalid format: %s (must be plain or indexed)\n", *format)
			os.Exit(1)
		}
		cfg.Anonymize.Format = *format
	}
	if *seed != 0 {
		cfg.Anonymize.Seed = *seed
	}
	if *language != "" {
		cfg.Anonymize.Language = *language
	}

	// Keep stdout clean for the anonymized text unless asked for logs
	logLevel := "error"
	if *verbose {
		logLevel = cfg.Logging.Level
	}
	log, err := logger.New(logger.Config{Level: logLevel, Format: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	engine, err := buildEngine(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build scramble engine: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if *text != "" {
		if err := scrambleText(ctx, engine, *text, *outputFile); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		return
	}

	output := *outputFile
	if output == "" {
		output = *inputFile + ".scrambled"
	}
	if err := scrambleFile(ctx, engine, *inputFile, output); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// buildEngine assembles the analyzer, classifier and operator from config
func buildEngine(cfg *config.Config, log *logger.Logger) (*scramble.Engine, error) {
	pii, err := analyzer.New(cfg.Analyzer, log.WithComponent("analyzer"))
	if err != nil {
		return nil, fmt.Errorf("failed to create analyzer: %w", err)
	}

	classifier, err := gender.NewFactory(log.Logger).CreateClassifier(gender.ClassifierConfig{
		Type:         gender.ClassifierType(cfg.Classifier.Type),
		CacheEnabled: cfg.Classifier.CacheEnabled,
		Database: namestore.Config{
			DatabaseURL:     cfg.Classifier.Database.URL,
			MaxOpenConns:    cfg.Classifier.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Classifier.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Classifier.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Classifier.Database.ConnMaxIdleTime,
		},
		Cache: cache.Config{
			RedisURL:       cfg.Classifier.Cache.URL,
			MaxConnections: cfg.Classifier.Cache.MaxConnections,
			MinIdleConns:   cfg.Classifier.Cache.MinIdleConns,
			DefaultTTL:     cfg.Classifier.Cache.TTL,
			KeyPrefix:      cfg.Classifier.Cache.KeyPrefix,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gender classifier: %w", err)
	}

	var operator pseudonym.Operator
	if cfg.Anonymize.Operator == "replacer" {
		seed := cfg.Anonymize.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		placeholderFormat := pseudonym.FormatPlain
		if cfg.Anonymize.Format == "indexed" {
			placeholderFormat = pseudonym.FormatIndexed
		}
		operator = pseudonym.NewReplacerOperator(faker.New(seed), classifier, placeholderFormat)
	} else {
		operator = pseudonym.NewCounterOperator()
	}

	return scramble.NewEngine(pii, operator, log.WithComponent("scramble")), nil
}

// scrambleText anonymizes a single text to stdout or a file
func scrambleText(ctx context.Context, engine *scramble.Engine, text, outputFile string) error {
	result, err := engine.ScrambleText(ctx, text)
	if err != nil {
		return fmt.Errorf("scramble failed: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(result.Text+"\n"), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
	} else {
		fmt.Println(result.Text)
	}

	if len(result.Findings) > 0 {
		fmt.Fprintln(os.Stderr, "Replaced:")
		for _, finding := range result.Findings {
			fmt.Fprintf(os.Stderr, "  %-18s %d\n", finding.Entity, finding.Count)
		}
	}
	return nil
}

// scrambleFile anonymizes a file line by line
func scrambleFile(ctx context.Context, engine *scramble.Engine, inputFile, outputFile string) error {
	summary, err := engine.ScrambleFile(ctx, inputFile, outputFile)
	if err != nil {
		return fmt.Errorf("scramble failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Wrote %s\n", outputFile)
	fmt.Fprintf(os.Stderr, "Lines processed: %d (skipped %d empty)\n",
		summary.LinesProcessed, summary.LinesSkipped)

	if len(summary.EntityCounts) > 0 {
		entities := make([]string, 0, len(summary.EntityCounts))
		for entity := range summary.EntityCounts {
			entities = append(entities, entity)
		}
		sort.Strings(entities)

		fmt.Fprintln(os.Stderr, "Replaced:")
		for _, entity := range entities {
			fmt.Fprintf(os.Stderr, "  %-18s %d\n", entity, summary.EntityCounts[entity])
		}
	}
	return nil
}
