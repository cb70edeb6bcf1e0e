package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/mkaltoft/scrambletron/internal/config"
	"github.com/mkaltoft/scrambletron/internal/logger"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.GetDefaults()
	cfg.RateLimit.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}
	s, err := New(cfg, &logger.Logger{Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return s
}

func postScramble(s *Server, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/scramble", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestHandleScramble(t *testing.T) {
	s := newTestServer(t, nil)

	t.Run("ReplacesDetectedEntities", func(t *testing.T) {
		rec := postScramble(s, `{"text":"CPR 0101992004 og mail jens@firma.dk"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
		}
		var resp ScrambleResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		want := "CPR <DK_SSN_0> og mail <EMAIL_ADDRESS_0>"
		if resp.Text != want {
			t.Errorf("text = %q, want %q", resp.Text, want)
		}
		if resp.Language != "da" {
			t.Errorf("language = %q, want da", resp.Language)
		}
		if len(resp.Findings) != 2 {
			t.Fatalf("findings = %d, want 2", len(resp.Findings))
		}
	})

	t.Run("CleanTextReturnsEmptyFindings", func(t *testing.T) {
		rec := postScramble(s, `{"text":"helt almindelig tekst"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"findings":[]`) {
			t.Errorf("clean text should return an empty findings array, got %s", rec.Body.String())
		}
	})

	t.Run("EchoesRequestedLanguage", func(t *testing.T) {
		rec := postScramble(s, `{"text":"hej","language":"en"}`)
		var resp ScrambleResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Language != "en" {
			t.Errorf("language = %q, want en", resp.Language)
		}
	})

	t.Run("MissingTextRejected", func(t *testing.T) {
		rec := postScramble(s, `{}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("InvalidJSONRejected", func(t *testing.T) {
		rec := postScramble(s, `{"text":`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("OversizedBodyRejected", func(t *testing.T) {
		body := `{"text":"` + strings.Repeat("a", maxTextLength) + `"}`
		rec := postScramble(s, body)
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d, want 413", rec.Code)
		}
	})

	t.Run("GetMethodNotAllowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/scramble", nil)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", rec.Code)
		}
	})
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("health response missing status: %s", rec.Body.String())
	}
}

func TestHandleInfo(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/info", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp infoResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode info response: %v", err)
	}
	if resp.Name != "scrambletron" {
		t.Errorf("name = %q, want scrambletron", resp.Name)
	}
	if resp.Operator != "counter" {
		t.Errorf("operator = %q, want counter", resp.Operator)
	}
	if resp.Classifier != "static" {
		t.Errorf("classifier = %q, want static", resp.Classifier)
	}
	if len(resp.EnabledRecognizers) == 0 {
		t.Error("expected enabled recognizers in the info response")
	}
}

func TestDashboardRoutes(t *testing.T) {
	s := newTestServer(t, nil)
	for _, path := range []string{"/", "/dashboard"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "<html") {
			t.Errorf("GET %s should serve the dashboard page", path)
		}
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.RateLimit.Enabled = true
		c.RateLimit.RequestsPerSecond = 1
		c.RateLimit.Burst = 1
	})

	if rec := postScramble(s, `{"text":"hej"}`); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rec.Code)
	}
	if rec := postScramble(s, `{"text":"hej"}`); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", rec.Code)
	}
}

func TestUpdateConfig(t *testing.T) {
	s := newTestServer(t, nil)

	rec := postScramble(s, `{"text":"0101992004"}`)
	var resp ScrambleResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Text != "<DK_SSN_0>" {
		t.Fatalf("counter text = %q, want <DK_SSN_0>", resp.Text)
	}

	t.Run("SwitchesOperator", func(t *testing.T) {
		cfg := config.GetDefaults()
		cfg.RateLimit.Enabled = false
		cfg.Anonymize.Operator = "replacer"
		cfg.Anonymize.Seed = 7
		if err := s.UpdateConfig(cfg); err != nil {
			t.Fatalf("UpdateConfig: %v", err)
		}

		rec := postScramble(s, `{"text":"0101992004"}`)
		var resp ScrambleResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		// The replacer has no stand-in for national identifiers, so the
		// placeholder carries an empty value.
		if resp.Text != "<DK_SSN_>" {
			t.Errorf("replacer text = %q, want <DK_SSN_>", resp.Text)
		}
	})

	t.Run("NarrowsRecognizers", func(t *testing.T) {
		cfg := config.GetDefaults()
		cfg.RateLimit.Enabled = false
		cfg.Analyzer.Recognizers = []string{"email_address"}
		if err := s.UpdateConfig(cfg); err != nil {
			t.Fatalf("UpdateConfig: %v", err)
		}

		rec := postScramble(s, `{"text":"0101992004"}`)
		var resp ScrambleResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Text != "0101992004" {
			t.Errorf("text = %q, want the input untouched with only email_address enabled", resp.Text)
		}
	})
}
