package gender

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/mkaltoft/scrambletron/internal/cache"
	"github.com/mkaltoft/scrambletron/internal/namestore"
)

// StoreClassifier labels names from the loaded frequency datasets. It
// checks the Redis cache first, then the database, and falls back on
// the static table when a name is absent or the database errors.
type StoreClassifier struct {
	store    *namestore.Store
	cache    *cache.LabelCache
	fallback *StaticClassifier
	logger   *zap.Logger
}

// NewStoreClassifier creates a dataset-backed classifier. The cache may
// be nil, in which case every call hits the database.
func NewStoreClassifier(store *namestore.Store, labelCache *cache.LabelCache, logger *zap.Logger) *StoreClassifier {
	return &StoreClassifier{
		store:    store,
		cache:    labelCache,
		fallback: NewStaticClassifier(),
		logger:   logger,
	}
}

// Classify returns the gender label for a first name.
func (c *StoreClassifier) Classify(ctx context.Context, token string) Label {
	name := strings.ToLower(strings.TrimSpace(token))
	if name == "" {
		return Unknown
	}

	if c.cache != nil {
		cached, found, err := c.cache.Get(ctx, name)
		if err != nil {
			c.logger.Warn("Label cache lookup failed", zap.Error(err))
		} else if found {
			return Label(cached)
		}
	}

	record, err := c.store.Lookup(ctx, name)
	if err != nil {
		c.logger.Warn("Name store lookup failed",
			zap.Error(err))
		return c.fallback.Classify(ctx, token)
	}

	var label Label
	if record == nil {
		// Not in any loaded dataset; the static table may still know it.
		label = c.fallback.Classify(ctx, token)
	} else {
		label = LabelForCounts(record.MaleCount, record.FemaleCount)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, name, string(label)); err != nil {
			c.logger.Warn("Failed to cache label", zap.Error(err))
		}
	}

	return label
}

// Close releases the database and cache connections.
func (c *StoreClassifier) Close() error {
	var firstErr error
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			firstErr = err
		}
	}
	if c.cache != nil {
		if err := c.cache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
