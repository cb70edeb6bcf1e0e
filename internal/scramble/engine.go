package scramble

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mkaltoft/scrambletron/internal/analyzer"
	"github.com/mkaltoft/scrambletron/internal/logger"
	"github.com/mkaltoft/scrambletron/internal/pseudonym"
)

// Engine ties the analyzer and an operator together: it finds PII
// spans and substitutes their placeholders into the text.
type Engine struct {
	mu       sync.RWMutex
	analyzer *analyzer.Analyzer
	operator pseudonym.Operator
	logger   *logger.Logger
}

// NewEngine creates a scramble engine.
func NewEngine(a *analyzer.Analyzer, operator pseudonym.Operator, log *logger.Logger) *Engine {
	return &Engine{
		analyzer: a,
		operator: operator,
		logger:   log,
	}
}

// UpdateOperator swaps the operator at runtime. In-flight scrambles
// finish with the operator they started with.
func (e *Engine) UpdateOperator(operator pseudonym.Operator) {
	e.mu.Lock()
	e.operator = operator
	e.mu.Unlock()

	e.logger.Info("Scramble operator updated")
}

// ScrambleText scrambles a document. Lines are processed separately,
// sharing one mapping, so a value repeated anywhere in the document
// always gets the same placeholder.
func (e *Engine) ScrambleText(ctx context.Context, text string) (*Result, error) {
	e.mu.RLock()
	operator := e.operator
	e.mu.RUnlock()

	start := time.Now()
	mapping := pseudonym.NewEntityMapping()

	lines := strings.Split(text, "\n")
	scrambledLines := make([]string, len(lines))

	offset := 0
	var all []analyzer.Match
	for i, line := range lines {
		scrambledLine, matches, err := e.scrambleLine(ctx, line, operator, mapping)
		if err != nil {
			return nil, err
		}
		scrambledLines[i] = scrambledLine

		for _, match := range matches {
			match.Start += offset
			match.End += offset
			all = append(all, match)
		}
		offset += len(line) + 1
	}

	result := &Result{
		Text:     strings.Join(scrambledLines, "\n"),
		Findings: buildFindings(all),
		Original: text,
	}

	e.logger.LogScramble(len(text), entityCounts(result.Findings), time.Since(start))
	return result, nil
}

// ScrambleLines scrambles each line with a shared mapping and returns
// the scrambled lines.
func (e *Engine) ScrambleLines(ctx context.Context, lines []string) ([]string, error) {
	e.mu.RLock()
	operator := e.operator
	e.mu.RUnlock()

	mapping := pseudonym.NewEntityMapping()
	scrambled := make([]string, len(lines))

	for i, line := range lines {
		scrambledLine, _, err := e.scrambleLine(ctx, line, operator, mapping)
		if err != nil {
			return nil, err
		}
		scrambled[i] = scrambledLine
	}

	return scrambled, nil
}

// ScrambleFile scrambles a text file line by line. Blank lines are
// dropped from the output.
func (e *Engine) ScrambleFile(ctx context.Context, inputPath, outputPath string) (*FileSummary, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}

	var lines []string
	skipped := 0
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			skipped++
			continue
		}
		lines = append(lines, line)
	}

	e.mu.RLock()
	operator := e.operator
	e.mu.RUnlock()

	mapping := pseudonym.NewEntityMapping()
	summary := &FileSummary{
		LinesSkipped: skipped,
		EntityCounts: make(map[string]int),
	}

	scrambled := make([]string, len(lines))
	for i, line := range lines {
		scrambledLine, matches, err := e.scrambleLine(ctx, line, operator, mapping)
		if err != nil {
			return nil, err
		}
		scrambled[i] = scrambledLine
		summary.LinesProcessed++
		for _, match := range matches {
			summary.EntityCounts[match.Entity]++
		}
	}

	output := strings.Join(scrambled, "\n")
	if len(scrambled) > 0 {
		output += "\n"
	}

	if err := os.WriteFile(outputPath, []byte(output), 0644); err != nil {
		return nil, fmt.Errorf("failed to write output file: %w", err)
	}

	return summary, nil
}

// scrambleLine analyzes one line and substitutes placeholders.
// Placeholders are assigned in reading order so counter indexes follow
// the document; the splice then runs from the end so earlier offsets
// stay valid.
func (e *Engine) scrambleLine(ctx context.Context, line string, operator pseudonym.Operator, mapping pseudonym.EntityMapping) (string, []analyzer.Match, error) {
	matches := e.analyzer.Analyze(line)
	if len(matches) == 0 {
		return line, nil, nil
	}

	placeholders := make([]string, len(matches))
	for i, match := range matches {
		placeholder, err := operator.Replace(ctx, match.Entity, match.Text, mapping)
		if err != nil {
			return "", nil, fmt.Errorf("replace failed for %s: %w", match.Entity, err)
		}
		placeholders[i] = placeholder
	}

	scrambled := line
	for i := len(matches) - 1; i >= 0; i-- {
		match := matches[i]
		scrambled = scrambled[:match.Start] + placeholders[i] + scrambled[match.End:]
	}

	return scrambled, matches, nil
}

// buildFindings groups matches per entity type, keeping first-seen
// order.
func buildFindings(matches []analyzer.Match) []Finding {
	counts := make(map[string]int)
	positions := make(map[string][]int)
	var order []string

	for _, match := range matches {
		if _, seen := counts[match.Entity]; !seen {
			order = append(order, match.Entity)
		}
		counts[match.Entity]++
		positions[match.Entity] = append(positions[match.Entity], match.Start)
	}

	findings := make([]Finding, 0, len(order))
	for _, entity := range order {
		findings = append(findings, Finding{
			Entity:    entity,
			Count:     counts[entity],
			Positions: positions[entity],
		})
	}
	return findings
}

func entityCounts(findings []Finding) map[string]int {
	counts := make(map[string]int, len(findings))
	for _, finding := range findings {
		counts[finding.Entity] = finding.Count
	}
	return counts
}
