package analyzer

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mkaltoft/scrambletron/internal/config"
	"github.com/mkaltoft/scrambletron/internal/logger"
)

const (
	// contextBoost is added to a match score when a context word
	// appears shortly before the match. Capped at 1.0.
	contextBoost = 0.35

	// contextWindow is how many bytes before a match are searched for
	// context words.
	contextWindow = 50
)

// Analyzer runs the enabled recognizers over text and returns scored,
// non-overlapping matches.
type Analyzer struct {
	mu          sync.RWMutex
	recognizers []Recognizer
	enabled     map[string]bool
	threshold   float64
	active      bool
	logger      *logger.Logger
}

// New creates a new analyzer instance
func New(cfg config.AnalyzerConfig, log *logger.Logger) (*Analyzer, error) {
	a := &Analyzer{
		recognizers: DefaultRecognizers(),
		enabled:     make(map[string]bool),
		threshold:   cfg.ScoreThreshold,
		active:      cfg.Enabled,
		logger:      log,
	}

	// Configure enabled recognizers
	if err := a.configureRecognizers(cfg.Recognizers); err != nil {
		return nil, fmt.Errorf("failed to configure recognizers: %w", err)
	}

	log.Info("Analyzer initialized",
		zap.Int("total_recognizers", len(a.recognizers)),
		zap.Int("enabled_recognizers", a.countEnabled()),
		zap.Float64("score_threshold", a.threshold),
	)

	return a, nil
}

// configureRecognizers enables/disables recognizers based on configuration
func (a *Analyzer) configureRecognizers(names []string) error {
	// Disable all recognizers by default
	for _, recognizer := range a.recognizers {
		a.enabled[recognizer.Name] = false
	}

	// Enable specified recognizers
	for _, name := range names {
		if name == "all" {
			// Enable all recognizers
			for _, recognizer := range a.recognizers {
				a.enabled[recognizer.Name] = true
			}
			continue
		}

		// Enable specific recognizer
		found := false
		for _, recognizer := range a.recognizers {
			if recognizer.Name == name {
				a.enabled[recognizer.Name] = true
				found = true
				break
			}
		}

		if !found {
			return fmt.Errorf("unknown recognizer: %s", name)
		}
	}

	return nil
}

// Analyze runs every enabled recognizer over the text. Overlapping
// matches are resolved in favor of score, then length, then position,
// and the result comes back ordered by position.
func (a *Analyzer) Analyze(text string) []Match {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.active || text == "" {
		return nil
	}

	var matches []Match

	for i := range a.recognizers {
		recognizer := &a.recognizers[i]
		if !a.enabled[recognizer.Name] {
			continue
		}

		for _, pattern := range recognizer.Patterns {
			for _, loc := range pattern.Regexp.FindAllStringIndex(text, -1) {
				match, ok := a.scoreMatch(recognizer, pattern, text, loc[0], loc[1])
				if !ok {
					continue
				}
				matches = append(matches, match)
			}
		}
	}

	resolved := resolveOverlaps(matches)

	if len(resolved) > 0 {
		a.logger.Debug("PII detected",
			zap.Int("matches", len(resolved)),
		)
	}

	return resolved
}

// scoreMatch scores a single pattern hit. A validator decides outright;
// otherwise context words may boost the pattern score.
func (a *Analyzer) scoreMatch(recognizer *Recognizer, pattern Pattern, text string, start, end int) (Match, bool) {
	candidate := text[start:end]
	score := pattern.Score

	if recognizer.Validate != nil {
		if !recognizer.Validate(candidate) {
			return Match{}, false
		}
		score = 1.0
	} else if hasContext(text, start, recognizer.Context) {
		score += contextBoost
		if score > 1.0 {
			score = 1.0
		}
	}

	if score < a.threshold {
		return Match{}, false
	}

	return Match{
		Entity: recognizer.Entity,
		Start:  start,
		End:    end,
		Score:  score,
		Text:   candidate,
	}, true
}

// hasContext reports whether any context word appears in the window
// before the match.
func hasContext(text string, start int, words []string) bool {
	if len(words) == 0 {
		return false
	}

	windowStart := start - contextWindow
	if windowStart < 0 {
		windowStart = 0
	}
	window := strings.ToLower(text[windowStart:start])

	for _, word := range words {
		if strings.Contains(window, word) {
			return true
		}
	}
	return false
}

// resolveOverlaps keeps the strongest match of every overlapping group.
// Ties go to the longer match, then the earlier one.
func resolveOverlaps(matches []Match) []Match {
	if len(matches) <= 1 {
		return matches
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		li := matches[i].End - matches[i].Start
		lj := matches[j].End - matches[j].Start
		if li != lj {
			return li > lj
		}
		return matches[i].Start < matches[j].Start
	})

	kept := make([]Match, 0, len(matches))
	for _, match := range matches {
		overlaps := false
		for _, existing := range kept {
			if match.Start < existing.End && existing.Start < match.End {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, match)
		}
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].Start < kept[j].Start })
	return kept
}

// UpdateConfig applies new analyzer settings at runtime.
func (a *Analyzer) UpdateConfig(cfg config.AnalyzerConfig) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.configureRecognizers(cfg.Recognizers); err != nil {
		return err
	}
	a.threshold = cfg.ScoreThreshold
	a.active = cfg.Enabled

	a.logger.Info("Analyzer configuration updated",
		zap.Int("enabled_recognizers", a.countEnabled()),
		zap.Float64("score_threshold", a.threshold),
	)
	return nil
}

// countEnabled returns the number of enabled recognizers
func (a *Analyzer) countEnabled() int {
	count := 0
	for _, enabled := range a.enabled {
		if enabled {
			count++
		}
	}
	return count
}

// GetEnabledRecognizers returns a list of enabled recognizer names
func (a *Analyzer) GetEnabledRecognizers() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var enabled []string
	for name, isEnabled := range a.enabled {
		if isEnabled {
			enabled = append(enabled, name)
		}
	}
	sort.Strings(enabled)
	return enabled
}

// EnableRecognizer enables a specific recognizer
func (a *Analyzer) EnableRecognizer(name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, recognizer := range a.recognizers {
		if recognizer.Name == name {
			a.enabled[name] = true
			a.logger.Info("Recognizer enabled", zap.String("recognizer", name))
			return nil
		}
	}
	return fmt.Errorf("unknown recognizer: %s", name)
}

// DisableRecognizer disables a specific recognizer
func (a *Analyzer) DisableRecognizer(name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.enabled[name]; !exists {
		return fmt.Errorf("unknown recognizer: %s", name)
	}

	a.enabled[name] = false
	a.logger.Info("Recognizer disabled", zap.String("recognizer", name))
	return nil
}
