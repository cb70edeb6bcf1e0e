package websocket

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mkaltoft/scrambletron/internal/scramble"
)

func newTestHub(config HubConfig) *Hub {
	return NewHub(config, zap.NewNop())
}

func TestShouldBroadcastEvent(t *testing.T) {
	hub := newTestHub(HubConfig{
		BroadcastScrambles:   true,
		BroadcastRequestLogs: false,
		BroadcastSystem:      false,
		BroadcastConnections: true,
	})

	cases := []struct {
		eventType EventType
		want      bool
	}{
		{EventTypeScramble, true},
		{EventTypeRequestLog, false},
		{EventTypeSystemStatus, false},
		{EventTypeConnection, true},
		{EventType("unknown"), false},
	}
	for _, tc := range cases {
		if got := hub.shouldBroadcastEvent(tc.eventType); got != tc.want {
			t.Errorf("shouldBroadcastEvent(%q) = %v, want %v", tc.eventType, got, tc.want)
		}
	}
}

func TestShouldSendToClient(t *testing.T) {
	hub := newTestHub(HubConfig{})
	event := Event{Type: EventTypeScramble, Timestamp: time.Now()}

	t.Run("NoSubscriptionReceivesEverything", func(t *testing.T) {
		client := &Client{ID: "c1"}
		if !hub.shouldSendToClient(client, event) {
			t.Error("client without subscription should receive all events")
		}
	})

	t.Run("SubscribedType", func(t *testing.T) {
		client := &Client{
			ID:           "c2",
			Subscription: &SubscriptionRequest{Events: []EventType{EventTypeScramble}},
		}
		if !hub.shouldSendToClient(client, event) {
			t.Error("subscribed client should receive the event")
		}
	})

	t.Run("UnsubscribedType", func(t *testing.T) {
		client := &Client{
			ID:           "c3",
			Subscription: &SubscriptionRequest{Events: []EventType{EventTypeSystemStatus}},
		}
		if hub.shouldSendToClient(client, event) {
			t.Error("event type outside the subscription should be dropped")
		}
	})
}

func TestApplyEventFilter(t *testing.T) {
	hub := newTestHub(HubConfig{})

	scrambleEvent := Event{
		Type: EventTypeScramble,
		Data: ScrambleEvent{
			Findings: []scramble.Finding{
				{Entity: "DK_SSN", Count: 2},
				{Entity: "EMAIL_ADDRESS", Count: 1},
			},
		},
	}

	t.Run("NilFilterPasses", func(t *testing.T) {
		if !hub.applyEventFilter(nil, scrambleEvent) {
			t.Error("nil filter should pass everything")
		}
	})

	t.Run("MatchingEntity", func(t *testing.T) {
		filter := &EventFilter{Entities: []string{"EMAIL_ADDRESS"}}
		if !hub.applyEventFilter(filter, scrambleEvent) {
			t.Error("event containing a filtered entity should pass")
		}
	})

	t.Run("NoMatchingEntity", func(t *testing.T) {
		filter := &EventFilter{Entities: []string{"CREDIT_CARD"}}
		if hub.applyEventFilter(filter, scrambleEvent) {
			t.Error("event without any filtered entity should be dropped")
		}
	})

	t.Run("NonScrambleEventPasses", func(t *testing.T) {
		filter := &EventFilter{Entities: []string{"CREDIT_CARD"}}
		systemEvent := Event{Type: EventTypeSystemStatus, Data: SystemStatusEvent{Status: "healthy"}}
		if !hub.applyEventFilter(filter, systemEvent) {
			t.Error("entity filter should not apply to non-scramble events")
		}
	})
}

func TestCheckOrigin(t *testing.T) {
	request := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	t.Run("EmptyOriginAllowed", func(t *testing.T) {
		hub := newTestHub(HubConfig{AllowedOrigins: []string{"https://intra.example.dk"}})
		if !hub.checkOrigin(request("")) {
			t.Error("requests without an Origin header should be allowed")
		}
	})

	t.Run("Wildcard", func(t *testing.T) {
		hub := newTestHub(HubConfig{AllowedOrigins: []string{"*"}})
		if !hub.checkOrigin(request("https://anywhere.example")) {
			t.Error("wildcard should allow any origin")
		}
	})

	t.Run("Allowlisted", func(t *testing.T) {
		hub := newTestHub(HubConfig{AllowedOrigins: []string{"https://intra.example.dk"}})
		if !hub.checkOrigin(request("https://intra.example.dk")) {
			t.Error("allowlisted origin should be accepted")
		}
		if hub.checkOrigin(request("https://evil.example")) {
			t.Error("origin outside the allowlist should be rejected")
		}
	})
}

func TestParseBasicAuth(t *testing.T) {
	request := func(header string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		return r
	}

	t.Run("ValidCredentials", func(t *testing.T) {
		encoded := base64.StdEncoding.EncodeToString([]byte("admin:hemmeligt"))
		username, password, ok := parseBasicAuth(request("Basic " + encoded))
		if !ok || username != "admin" || password != "hemmeligt" {
			t.Errorf("parseBasicAuth = (%q, %q, %v), want (admin, hemmeligt, true)", username, password, ok)
		}
	})

	t.Run("MissingHeader", func(t *testing.T) {
		if _, _, ok := parseBasicAuth(request("")); ok {
			t.Error("missing Authorization header should fail")
		}
	})

	t.Run("WrongScheme", func(t *testing.T) {
		if _, _, ok := parseBasicAuth(request("Bearer token")); ok {
			t.Error("non-Basic scheme should fail")
		}
	})

	t.Run("BadBase64", func(t *testing.T) {
		if _, _, ok := parseBasicAuth(request("Basic !!!")); ok {
			t.Error("invalid base64 should fail")
		}
	})

	t.Run("NoColon", func(t *testing.T) {
		encoded := base64.StdEncoding.EncodeToString([]byte("adminhemmeligt"))
		if _, _, ok := parseBasicAuth(request("Basic " + encoded)); ok {
			t.Error("credentials without a colon should fail")
		}
	})
}

func TestGetClientIP(t *testing.T) {
	t.Run("XForwardedFor", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		if got := getClientIP(r); got != "203.0.113.7" {
			t.Errorf("getClientIP = %q, want 203.0.113.7", got)
		}
	})

	t.Run("XRealIP", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Real-IP", "203.0.113.8")
		if got := getClientIP(r); got != "203.0.113.8" {
			t.Errorf("getClientIP = %q, want 203.0.113.8", got)
		}
	})

	t.Run("RemoteAddr", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "192.0.2.4:51234"
		if got := getClientIP(r); got != "192.0.2.4" {
			t.Errorf("getClientIP = %q, want 192.0.2.4", got)
		}
	})
}

func TestBroadcastEventGating(t *testing.T) {
	hub := newTestHub(HubConfig{BroadcastScrambles: false, BroadcastSystem: true})

	hub.BroadcastEvent(Event{Type: EventTypeScramble, Timestamp: time.Now()})
	select {
	case <-hub.broadcast:
		t.Error("disabled event type should not reach the broadcast channel")
	default:
	}

	hub.BroadcastEvent(Event{Type: EventTypeSystemStatus, Timestamp: time.Now()})
	select {
	case event := <-hub.broadcast:
		if event.Type != EventTypeSystemStatus {
			t.Errorf("broadcast event type = %q, want system_status", event.Type)
		}
	default:
		t.Error("enabled event type should reach the broadcast channel")
	}
}
