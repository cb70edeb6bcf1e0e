package namestore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Store holds first-name gender frequencies in PostgreSQL. It backs the
// dataset classifier; rows are written by the ETL pipeline.
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// Config contains database configuration
type Config struct {
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
}

const schema = `
	CREATE TABLE IF NOT EXISTS first_names (
		id           BIGSERIAL PRIMARY KEY,
		name         TEXT NOT NULL UNIQUE,
		male_count   BIGINT NOT NULL DEFAULT 0,
		female_count BIGINT NOT NULL DEFAULT 0,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

// NewStore connects to the database and ensures the schema exists.
func NewStore(config *Config, logger *zap.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	store := &Store{
		db:     db,
		logger: logger,
	}

	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	logger.Info("Name store initialized",
		zap.String("database_url", maskDatabaseURL(config.DatabaseURL)),
		zap.Int("max_open_conns", config.MaxOpenConns),
		zap.Int("max_idle_conns", config.MaxIdleConns))

	return store, nil
}

// initialize checks the connection and creates the table when missing.
func (s *Store) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure first_names table: %w", err)
	}

	return nil
}

// Lookup fetches the frequency row for a name. Names are stored
// lowercased; the lookup lowercases its argument to match. A missing
// name returns (nil, nil).
func (s *Store) Lookup(ctx context.Context, name string) (*FirstName, error) {
	query := `
		SELECT id, name, male_count, female_count, created_at, updated_at
		FROM first_names
		WHERE name = $1`

	var record FirstName
	err := s.db.GetContext(ctx, &record, query, strings.ToLower(name))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("name lookup failed: %w", err)
	}

	return &record, nil
}

// BatchUpsert inserts frequency rows, adding counts onto existing names
// so repeated dataset loads accumulate rather than overwrite.
func (s *Store) BatchUpsert(ctx context.Context, records []*FirstName) (*BatchUpsertResult, error) {
	if len(records) == 0 {
		return &BatchUpsertResult{}, nil
	}

	start := time.Now()
	result := &BatchUpsertResult{}

	valueStrings := make([]string, 0, len(records))
	valueArgs := make([]interface{}, 0, len(records)*3)

	for i, record := range records {
		valueStrings = append(valueStrings, fmt.Sprintf("($%d, $%d, $%d)", i*3+1, i*3+2, i*3+3))
		valueArgs = append(valueArgs,
			strings.ToLower(record.Name),
			record.MaleCount,
			record.FemaleCount,
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO first_names (name, male_count, female_count)
		VALUES %s
		ON CONFLICT (name) DO UPDATE SET
			male_count   = first_names.male_count + EXCLUDED.male_count,
			female_count = first_names.female_count + EXCLUDED.female_count,
			updated_at   = now()`,
		strings.Join(valueStrings, ","))

	res, err := s.db.ExecContext(ctx, query, valueArgs...)
	if err != nil {
		result.Failed = int64(len(records))
		s.logger.Error("Batch upsert failed", zap.Error(err))
		return result, fmt.Errorf("batch upsert failed: %w", err)
	}

	written, err := res.RowsAffected()
	if err != nil {
		s.logger.Warn("Could not get rows affected", zap.Error(err))
		written = int64(len(records))
	}

	result.Written = written
	result.Duration = time.Since(start)

	s.logger.Debug("Batch upsert completed",
		zap.Int64("written", result.Written),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// Stats returns name counts grouped by which gender dominates.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	query := `
		SELECT
			COUNT(*) as total,
			COUNT(CASE WHEN male_count > female_count THEN 1 END) as male_leaning,
			COUNT(CASE WHEN female_count > male_count THEN 1 END) as female_leaning
		FROM first_names`

	err := s.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalNames,
		&stats.MaleLeaning,
		&stats.FemaleLeaning,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get name stats: %w", err)
	}

	stats.Ambiguous = stats.TotalNames - stats.MaleLeaning - stats.FemaleLeaning
	return stats, nil
}

// Names streams stored rows in pages, for cache warming.
func (s *Store) Names(ctx context.Context, limit, offset int64) ([]*FirstName, error) {
	query := `
		SELECT id, name, male_count, female_count, created_at, updated_at
		FROM first_names
		ORDER BY id
		LIMIT $1 OFFSET $2`

	var records []*FirstName
	if err := s.db.SelectContext(ctx, &records, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to page names: %w", err)
	}

	return records, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// maskDatabaseURL masks sensitive information in database URL for logging
func maskDatabaseURL(url string) string {
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) >= 2 {
			userPart := parts[0]
			if strings.Contains(userPart, ":") {
				userParts := strings.Split(userPart, ":")
				if len(userParts) >= 3 {
					userParts[len(userParts)-1] = "***"
					parts[0] = strings.Join(userParts, ":")
				}
			}
			return strings.Join(parts, "@")
		}
	}
	return url
}
