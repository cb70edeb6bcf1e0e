package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mkaltoft/scrambletron/internal/analyzer"
	"github.com/mkaltoft/scrambletron/internal/cache"
	"github.com/mkaltoft/scrambletron/internal/config"
	"github.com/mkaltoft/scrambletron/internal/faker"
	"github.com/mkaltoft/scrambletron/internal/gender"
	"github.com/mkaltoft/scrambletron/internal/logger"
	"github.com/mkaltoft/scrambletron/internal/namestore"
	"github.com/mkaltoft/scrambletron/internal/pseudonym"
	"github.com/mkaltoft/scrambletron/internal/scramble"
	"github.com/mkaltoft/scrambletron/internal/security"
	"github.com/mkaltoft/scrambletron/internal/web"
	"github.com/mkaltoft/scrambletron/internal/websocket"
)

const version = "0.1.0"

// Server represents the scrambletron HTTP service
type Server struct {
	mu          sync.RWMutex
	config      *config.Config
	logger      *logger.Logger
	analyzer    *analyzer.Analyzer
	engine      *scramble.Engine
	classifier  gender.Classifier
	rateLimiter *security.RateLimiter
	router      *mux.Router
	server      *http.Server
	wsHub       *websocket.Hub
	startTime   time.Time
	done        chan struct{}
	doneOnce    sync.Once

	totalRequests     int64
	totalReplacements int64
}

// New creates a new server instance
func New(cfg *config.Config, log *logger.Logger) (*Server, error) {
	pii, err := analyzer.New(cfg.Analyzer, log.WithComponent("analyzer"))
	if err != nil {
		return nil, fmt.Errorf("failed to create analyzer: %w", err)
	}

	classifier, err := gender.NewFactory(log.WithComponent("gender").Logger).
		CreateClassifier(classifierConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create gender classifier: %w", err)
	}

	engine := scramble.NewEngine(pii,
		buildOperator(cfg.Anonymize, classifier),
		log.WithComponent("scramble"))

	wsHub := websocket.NewHub(hubConfig(cfg), log.WithComponent("websocket").Logger)

	server := &Server{
		config:      cfg,
		logger:      log.WithComponent("server"),
		analyzer:    pii,
		engine:      engine,
		classifier:  classifier,
		rateLimiter: security.NewRateLimiter(cfg.RateLimit),
		router:      mux.NewRouter(),
		wsHub:       wsHub,
		startTime:   time.Now(),
		done:        make(chan struct{}),
	}

	server.setupRoutes()

	server.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return server, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Info endpoint
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")

	// Dashboard endpoint - embedded HTML
	s.router.HandleFunc("/", web.ServeDashboard).Methods("GET")
	s.router.HandleFunc("/dashboard", web.ServeDashboard).Methods("GET")

	// WebSocket endpoint for dashboard
	s.router.HandleFunc("/ws", s.handleWebSocket).Methods("GET")

	// Scramble endpoints
	scrambleRouter := s.router.PathPrefix("/scramble").Subrouter()
	scrambleRouter.Use(s.loggingMiddleware)
	scrambleRouter.Use(s.rateLimitMiddleware)
	scrambleRouter.HandleFunc("", s.handleScramble).Methods("POST")
}

// Start starts the HTTP server
func (s *Server) Start() error {
	cfg := s.currentConfig()
	s.logger.Info("Starting scrambletron server",
		zap.Int("port", cfg.Server.Port),
		zap.String("operator", cfg.Anonymize.Operator),
		zap.String("classifier", cfg.Classifier.Type),
		zap.Strings("recognizers", s.analyzer.GetEnabledRecognizers()),
	)

	// Start WebSocket hub in a separate goroutine
	go s.wsHub.Run()
	s.rateLimiter.StartCleanupRoutine()
	go s.systemStatusLoop()

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server and its background workers
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping scrambletron server")

	err := s.server.Shutdown(ctx)

	s.doneOnce.Do(func() { close(s.done) })
	s.wsHub.Stop()
	s.rateLimiter.Stop()
	if closer, ok := s.classifier.(io.Closer); ok {
		if closeErr := closer.Close(); closeErr != nil {
			s.logger.Warn("Failed to close gender classifier", zap.Error(closeErr))
		}
	}

	return err
}

// UpdateConfig applies a reloaded configuration. Recognizer toggles,
// the score threshold, the anonymize operator and rate limits apply
// without a restart; server timeouts and the classifier backend do not.
func (s *Server) UpdateConfig(cfg *config.Config) error {
	if err := s.analyzer.UpdateConfig(cfg.Analyzer); err != nil {
		return fmt.Errorf("failed to update analyzer: %w", err)
	}

	s.mu.Lock()
	operatorChanged := s.config.Anonymize != cfg.Anonymize
	s.config = cfg
	s.mu.Unlock()

	if operatorChanged {
		s.engine.UpdateOperator(buildOperator(cfg.Anonymize, s.classifier))
	}
	s.rateLimiter.UpdateConfig(cfg.RateLimit)

	s.logger.Info("Server configuration updated",
		zap.String("operator", cfg.Anonymize.Operator),
		zap.Strings("recognizers", s.analyzer.GetEnabledRecognizers()),
	)
	return nil
}

func (s *Server) currentConfig() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// handleWebSocket handles WebSocket connections for the dashboard
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.wsHub.HandleWebSocket(w, r)
}

// GetWebSocketHub returns the WebSocket hub for broadcasting events
func (s *Server) GetWebSocketHub() *websocket.Hub {
	return s.wsHub
}

// systemStatusLoop periodically broadcasts system status to the dashboard
func (s *Server) systemStatusLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.wsHub.BroadcastEvent(websocket.Event{
				Type:      websocket.EventTypeSystemStatus,
				Timestamp: time.Now(),
				Data:      s.systemStatus(),
			})
		case <-s.done:
			return
		}
	}
}

func (s *Server) systemStatus() websocket.SystemStatusEvent {
	var memory runtime.MemStats
	runtime.ReadMemStats(&memory)

	return websocket.SystemStatusEvent{
		Status:             "healthy",
		Uptime:             time.Since(s.startTime).Round(time.Second).String(),
		TotalRequests:      atomic.LoadInt64(&s.totalRequests),
		TotalReplacements:  atomic.LoadInt64(&s.totalReplacements),
		EnabledRecognizers: len(s.analyzer.GetEnabledRecognizers()),
		ConnectedClients:   s.wsHub.ClientCount(),
		MemoryUsage:        fmt.Sprintf("%d MB", memory.Alloc/1024/1024),
	}
}

// buildOperator constructs the anonymization operator from config
func buildOperator(cfg config.AnonymizeConfig, classifier gender.Classifier) pseudonym.Operator {
	if cfg.Operator == "replacer" {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		format := pseudonym.FormatPlain
		if cfg.Format == "indexed" {
			format = pseudonym.FormatIndexed
		}
		return pseudonym.NewReplacerOperator(faker.New(seed), classifier, format)
	}
	return pseudonym.NewCounterOperator()
}

// classifierConfig maps the service configuration onto the gender factory
func classifierConfig(cfg *config.Config) gender.ClassifierConfig {
	return gender.ClassifierConfig{
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
	}
}

// hubConfig maps the service configuration onto the WebSocket hub
func hubConfig(cfg *config.Config) websocket.HubConfig {
	return websocket.HubConfig{
		BroadcastScrambles:   cfg.WebSocket.Events.BroadcastScrambles,
		BroadcastRequestLogs: cfg.WebSocket.Events.BroadcastRequestLogs,
		BroadcastSystem:      cfg.WebSocket.Events.BroadcastSystem,
		BroadcastConnections: cfg.WebSocket.Events.BroadcastConnections,
		Username:             cfg.WebSocket.Auth.Username,
		Password:             cfg.WebSocket.Auth.Password,
		AllowedOrigins:       cfg.WebSocket.AllowedOrigins,
	}
}
