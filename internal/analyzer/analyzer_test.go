package analyzer

import (
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/mkaltoft/scrambletron/internal/config"
	"github.com/mkaltoft/scrambletron/internal/logger"
)

func defaultTestConfig() config.AnalyzerConfig {
	return config.AnalyzerConfig{
		Enabled:        true,
		Recognizers:    []string{"all"},
		ScoreThreshold: 0,
	}
}

func newTestAnalyzer(t *testing.T, cfg config.AnalyzerConfig) *Analyzer {
	t.Helper()
	log := &logger.Logger{Logger: zap.NewNop()}
	a, err := New(cfg, log)
	if err != nil {
		t.Fatalf("failed to create analyzer: %v", err)
	}
	return a
}

func scoreNear(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}

func TestAnalyze(t *testing.T) {
	t.Run("DetectsValidCpr", func(t *testing.T) {
		a := newTestAnalyzer(t, defaultTestConfig())

		matches := a.Analyze("Min CPR er 0101992004")
		if len(matches) != 1 {
			t.Fatalf("got %d matches, want 1: %+v", len(matches), matches)
		}
		m := matches[0]
		if m.Entity != "DK_SSN" {
			t.Errorf("entity = %s, want DK_SSN", m.Entity)
		}
		if m.Start != 11 || m.End != 21 {
			t.Errorf("span = [%d,%d), want [11,21)", m.Start, m.End)
		}
		if m.Score != 1.0 {
			t.Errorf("score = %f, want 1.0", m.Score)
		}
		if m.Text != "0101992004" {
			t.Errorf("text = %q, want the matched number", m.Text)
		}
	})

	t.Run("DetectsRepeatedDigitCpr", func(t *testing.T) {
		a := newTestAnalyzer(t, defaultTestConfig())

		matches := a.Analyze("1111111118")
		if len(matches) != 1 || matches[0].Entity != "DK_SSN" {
			t.Fatalf("got %+v, want one DK_SSN match", matches)
		}
	})

	t.Run("DetectsSeparatedCprFormats", func(t *testing.T) {
		a := newTestAnalyzer(t, defaultTestConfig())

		for _, text := range []string{"010199-2004", "010199 2004"} {
			matches := a.Analyze(text)
			if len(matches) != 1 || matches[0].Entity != "DK_SSN" {
				t.Errorf("Analyze(%q) = %+v, want one DK_SSN match", text, matches)
			}
		}
	})

	t.Run("DropsCprWithBadChecksum", func(t *testing.T) {
		a := newTestAnalyzer(t, defaultTestConfig())

		if matches := a.Analyze("Tallet 0101992005 er ikke gyldigt"); len(matches) != 0 {
			t.Errorf("got %+v, want no matches", matches)
		}
	})

	t.Run("ContextBoostsWeakPattern", func(t *testing.T) {
		a := newTestAnalyzer(t, defaultTestConfig())

		boosted := a.Analyze("kørekort 12345678")
		if len(boosted) != 1 || boosted[0].Entity != "DK_DRIVER_LICENSE" {
			t.Fatalf("got %+v, want one DK_DRIVER_LICENSE match", boosted)
		}
		if !scoreNear(boosted[0].Score, 0.4) {
			t.Errorf("boosted score = %f, want 0.4", boosted[0].Score)
		}

		bare := a.Analyze("nummeret 12345678")
		if len(bare) != 1 {
			t.Fatalf("got %+v, want one match", bare)
		}
		if !scoreNear(bare[0].Score, 0.05) {
			t.Errorf("bare score = %f, want 0.05", bare[0].Score)
		}
	})

	t.Run("DetectsPhoneNumbers", func(t *testing.T) {
		a := newTestAnalyzer(t, defaultTestConfig())

		withCode := a.Analyze("+45 20 12 34 56")
		if len(withCode) != 1 || withCode[0].Entity != "PHONE_NUMBER" {
			t.Fatalf("got %+v, want one PHONE_NUMBER match", withCode)
		}
		if withCode[0].Start != 0 || withCode[0].End != 15 {
			t.Errorf("span = [%d,%d), want the full number with country code", withCode[0].Start, withCode[0].End)
		}
		if !scoreNear(withCode[0].Score, 0.4) {
			t.Errorf("score = %f, want 0.4", withCode[0].Score)
		}

		withContext := a.Analyze("tlf: 20 12 34 56")
		if len(withContext) != 1 {
			t.Fatalf("got %+v, want one match", withContext)
		}
		if !scoreNear(withContext[0].Score, 0.65) {
			t.Errorf("score = %f, want 0.65", withContext[0].Score)
		}
	})

	t.Run("DetectsEmail", func(t *testing.T) {
		a := newTestAnalyzer(t, defaultTestConfig())

		matches := a.Analyze("skriv til jens@firma.dk")
		if len(matches) != 1 || matches[0].Entity != "EMAIL_ADDRESS" {
			t.Fatalf("got %+v, want one EMAIL_ADDRESS match", matches)
		}
		if matches[0].Score != 1.0 {
			t.Errorf("score = %f, want 1.0", matches[0].Score)
		}
		if matches[0].Text != "jens@firma.dk" {
			t.Errorf("text = %q, want jens@firma.dk", matches[0].Text)
		}
	})

	t.Run("DropsMalformedEmail", func(t *testing.T) {
		a := newTestAnalyzer(t, defaultTestConfig())

		if matches := a.Analyze("a..b@firma.dk"); len(matches) != 0 {
			t.Errorf("got %+v, want no matches", matches)
		}
	})

	t.Run("DetectsIPAddress", func(t *testing.T) {
		a := newTestAnalyzer(t, defaultTestConfig())

		matches := a.Analyze("server på 10.0.0.1")
		if len(matches) != 1 || matches[0].Entity != "IP_ADDRESS" {
			t.Fatalf("got %+v, want one IP_ADDRESS match", matches)
		}
		if matches[0].Score != 1.0 {
			t.Errorf("score = %f, want 1.0", matches[0].Score)
		}
	})

	t.Run("DropsImpossibleIPAddress", func(t *testing.T) {
		a := newTestAnalyzer(t, defaultTestConfig())

		if matches := a.Analyze("999.2.3.4"); len(matches) != 0 {
			t.Errorf("got %+v, want no matches", matches)
		}
	})

	t.Run("DetectsCreditCard", func(t *testing.T) {
		a := newTestAnalyzer(t, defaultTestConfig())

		for _, text := range []string{
			"kreditkort 4111111111111111",
			"kort: 4111 1111 1111 1111",
		} {
			matches := a.Analyze(text)
			if len(matches) != 1 || matches[0].Entity != "CREDIT_CARD" {
				t.Fatalf("Analyze(%q) = %+v, want one CREDIT_CARD match", text, matches)
			}
			if matches[0].Score != 1.0 {
				t.Errorf("score = %f, want 1.0", matches[0].Score)
			}
		}
	})

	t.Run("DropsCardFailingLuhn", func(t *testing.T) {
		a := newTestAnalyzer(t, defaultTestConfig())

		if matches := a.Analyze("4111111111111112"); len(matches) != 0 {
			t.Errorf("got %+v, want no matches", matches)
		}
	})

	t.Run("DetectsDates", func(t *testing.T) {
		a := newTestAnalyzer(t, defaultTestConfig())

		boosted := a.Analyze("født 01-05-1990")
		if len(boosted) != 1 || boosted[0].Entity != "DATE_TIME" {
			t.Fatalf("got %+v, want one DATE_TIME match", boosted)
		}
		if !scoreNear(boosted[0].Score, 0.95) {
			t.Errorf("boosted score = %f, want 0.95", boosted[0].Score)
		}

		textual := a.Analyze("mødet er 5. januar 2023")
		if len(textual) != 1 || textual[0].Entity != "DATE_TIME" {
			t.Fatalf("got %+v, want one DATE_TIME match", textual)
		}
		if !scoreNear(textual[0].Score, 0.6) {
			t.Errorf("textual score = %f, want 0.6", textual[0].Score)
		}
	})

	t.Run("ThresholdDropsWeakMatches", func(t *testing.T) {
		cfg := defaultTestConfig()
		cfg.ScoreThreshold = 0.3
		a := newTestAnalyzer(t, cfg)

		if matches := a.Analyze("nummeret 12345678"); len(matches) != 0 {
			t.Errorf("got %+v, want weak match dropped", matches)
		}
		if matches := a.Analyze("kørekort 12345678"); len(matches) != 1 {
			t.Errorf("got %+v, want boosted match kept", matches)
		}
	})

	t.Run("DisabledAnalyzerFindsNothing", func(t *testing.T) {
		cfg := defaultTestConfig()
		cfg.Enabled = false
		a := newTestAnalyzer(t, cfg)

		if matches := a.Analyze("0101992004"); matches != nil {
			t.Errorf("got %+v, want nil", matches)
		}
	})

	t.Run("MultipleEntitiesOrderedByPosition", func(t *testing.T) {
		a := newTestAnalyzer(t, defaultTestConfig())

		matches := a.Analyze("CPR 0101992004, mail jens@firma.dk, ip 10.0.0.1")
		if len(matches) != 3 {
			t.Fatalf("got %d matches, want 3: %+v", len(matches), matches)
		}
		wantOrder := []string{"DK_SSN", "EMAIL_ADDRESS", "IP_ADDRESS"}
		for i, want := range wantOrder {
			if matches[i].Entity != want {
				t.Errorf("match %d entity = %s, want %s", i, matches[i].Entity, want)
			}
		}
		for i := 1; i < len(matches); i++ {
			if matches[i].Start < matches[i-1].End {
				t.Errorf("matches out of order or overlapping: %+v", matches)
			}
		}
	})
}

func TestRecognizerSelection(t *testing.T) {
	t.Run("SpecificRecognizerOnly", func(t *testing.T) {
		cfg := defaultTestConfig()
		cfg.Recognizers = []string{"email_address"}
		a := newTestAnalyzer(t, cfg)

		matches := a.Analyze("jens@firma.dk og 0101992004")
		if len(matches) != 1 || matches[0].Entity != "EMAIL_ADDRESS" {
			t.Errorf("got %+v, want only the email match", matches)
		}
	})

	t.Run("UnknownRecognizerFailsConstruction", func(t *testing.T) {
		cfg := defaultTestConfig()
		cfg.Recognizers = []string{"bogus"}
		log := &logger.Logger{Logger: zap.NewNop()}
		if _, err := New(cfg, log); err == nil {
			t.Error("expected error for unknown recognizer")
		}
	})

	t.Run("DisableAndReenable", func(t *testing.T) {
		a := newTestAnalyzer(t, defaultTestConfig())

		if err := a.DisableRecognizer("dk_ssn"); err != nil {
			t.Fatalf("DisableRecognizer failed: %v", err)
		}
		if matches := a.Analyze("0101992004"); len(matches) != 0 {
			t.Errorf("got %+v after disable, want none", matches)
		}

		if err := a.EnableRecognizer("dk_ssn"); err != nil {
			t.Fatalf("EnableRecognizer failed: %v", err)
		}
		if matches := a.Analyze("0101992004"); len(matches) != 1 {
			t.Errorf("got %+v after enable, want one", matches)
		}

		if err := a.DisableRecognizer("bogus"); err == nil {
			t.Error("expected error for unknown recognizer")
		}
	})

	t.Run("UpdateConfigChangesThreshold", func(t *testing.T) {
		a := newTestAnalyzer(t, defaultTestConfig())

		cfg := defaultTestConfig()
		cfg.ScoreThreshold = 0.5
		if err := a.UpdateConfig(cfg); err != nil {
			t.Fatalf("UpdateConfig failed: %v", err)
		}

		if matches := a.Analyze("nummeret 12345678"); len(matches) != 0 {
			t.Errorf("got %+v, want weak match dropped after update", matches)
		}
	})
}

func TestResolveOverlaps(t *testing.T) {
	t.Run("HigherScoreWins", func(t *testing.T) {
		resolved := resolveOverlaps([]Match{
			{Entity: "A", Start: 0, End: 10, Score: 0.5},
			{Entity: "B", Start: 5, End: 15, Score: 1.0},
		})
		if len(resolved) != 1 || resolved[0].Entity != "B" {
			t.Errorf("got %+v, want only B", resolved)
		}
	})

	t.Run("LongerWinsOnScoreTie", func(t *testing.T) {
		resolved := resolveOverlaps([]Match{
			{Entity: "A", Start: 0, End: 10, Score: 0.5},
			{Entity: "B", Start: 0, End: 16, Score: 0.5},
		})
		if len(resolved) != 1 || resolved[0].Entity != "B" {
			t.Errorf("got %+v, want only B", resolved)
		}
	})

	t.Run("EarlierWinsOnFullTie", func(t *testing.T) {
		resolved := resolveOverlaps([]Match{
			{Entity: "A", Start: 2, End: 8, Score: 0.5},
			{Entity: "B", Start: 0, End: 6, Score: 0.5},
		})
		if len(resolved) != 1 || resolved[0].Entity != "B" {
			t.Errorf("got %+v, want only B", resolved)
		}
	})

	t.Run("DisjointMatchesSortedByPosition", func(t *testing.T) {
		resolved := resolveOverlaps([]Match{
			{Entity: "B", Start: 20, End: 30, Score: 0.9},
			{Entity: "A", Start: 0, End: 10, Score: 0.2},
		})
		if len(resolved) != 2 {
			t.Fatalf("got %+v, want both kept", resolved)
		}
		if resolved[0].Entity != "A" || resolved[1].Entity != "B" {
			t.Errorf("got %+v, want position order", resolved)
		}
	})
}

func BenchmarkAnalyze(b *testing.B) {
	log := &logger.Logger{Logger: zap.NewNop()}
	a, err := New(defaultTestConfig(), log)
	if err != nil {
		b.Fatal(err)
	}

	text := "Jens (CPR 0101992004, tlf: 20 12 34 56) skrev til jens@firma.dk fra 10.0.0.1 den 01-05-2023"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a.Analyze(text)
	}
}
