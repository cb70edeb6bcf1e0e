package websocket

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/mkaltoft/scrambletron/internal/scramble"
)

// EventType represents the type of WebSocket event
type EventType string

const (
	// EventTypeScramble represents a completed scramble
	EventTypeScramble EventType = "scramble"
	// EventTypeRequestLog represents a request log event
	EventTypeRequestLog EventType = "request_log"
	// EventTypeSystemStatus represents a system status event
	EventTypeSystemStatus EventType = "system_status"
	// EventTypeConnection represents connection events
	EventTypeConnection EventType = "connection"
)

// Event represents a WebSocket event sent to clients
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id,omitempty"`
}

// ScrambleEvent reports a completed scramble. It carries counts and
// entity types only, never any of the processed text.
type ScrambleEvent struct {
	RequestID         string             `json:"request_id"`
	ClientIP          string             `json:"client_ip"`
	Findings          []scramble.Finding `json:"findings"`
	TotalReplacements int                `json:"total_replacements"`
	Operator          string             `json:"operator"`
	ProcessingMS      float64            `json:"processing_ms"`
}

// RequestLogEvent represents an HTTP request log entry
type RequestLogEvent struct {
	RequestID    string        `json:"request_id"`
	Method       string        `json:"method"`
	Path         string        `json:"path"`
	StatusCode   int           `json:"status_code"`
	ClientIP     string        `json:"client_ip"`
	UserAgent    string        `json:"user_agent"`
	Duration     time.Duration `json:"duration_ns"`
	RequestSize  int64         `json:"request_size"`
	ResponseSize int64         `json:"response_size"`
}

// SystemStatusEvent represents system status information
type SystemStatusEvent struct {
	Status             string `json:"status"`
	Uptime             string `json:"uptime"`
	TotalRequests      int64  `json:"total_requests"`
	TotalReplacements  int64  `json:"total_replacements"`
	EnabledRecognizers int    `json:"enabled_recognizers"`
	ConnectedClients   int    `json:"connected_clients"`
	MemoryUsage        string `json:"memory_usage"`
}

// ConnectionEvent represents WebSocket connection events
type ConnectionEvent struct {
	Action    string `json:"action"` // "connected", "disconnected"
	ClientID  string `json:"client_id"`
	ClientIP  string `json:"client_ip"`
	UserAgent string `json:"user_agent,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ClientMessage represents messages sent from clients to server
type ClientMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// SubscriptionRequest represents a client subscription request
type SubscriptionRequest struct {
	Events []EventType  `json:"events"`
	Filter *EventFilter `json:"filter,omitempty"`
}

// EventFilter narrows scramble events to the entity types a client
// cares about.
type EventFilter struct {
	Entities []string `json:"entities,omitempty"`
}

// Client represents a WebSocket client connection
type Client struct {
	ID           string
	Conn         *websocket.Conn
	Send         chan Event
	Subscription *SubscriptionRequest
	ConnectedAt  time.Time
	LastPing     time.Time
	IP           string
	UserAgent    string
}
