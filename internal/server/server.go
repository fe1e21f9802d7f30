package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/user/anime-bot-go/internal/store"
)

var (
	catalogEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "anime_bot_catalog_entries_total",
		Help: "Total number of catalog entries in the database",
	})

	searchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "anime_bot_searches_total",
		Help: "Total number of catalog searches",
	})

	purchasesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "anime_bot_vip_purchases_total",
		Help: "Total number of completed VIP purchases",
	})

	broadcastsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "anime_bot_broadcast_messages_total",
		Help: "Total number of broadcast messages delivered",
	})

	intakeCommits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "anime_bot_intake_commits_total",
		Help: "Total number of catalog entries committed via intake",
	})

	sendFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "anime_bot_send_failures_total",
		Help: "Total number of outbound Telegram calls that failed",
	})
)

func init() {
	prometheus.MustRegister(catalogEntries)
	prometheus.MustRegister(searchesTotal)
	prometheus.MustRegister(purchasesTotal)
	prometheus.MustRegister(broadcastsTotal)
	prometheus.MustRegister(intakeCommits)
	prometheus.MustRegister(sendFailures)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Uptime   string `json:"uptime"`
}

// Server handles HTTP requests: health checks, metrics, and in webhook
// mode the Telegram update route
type Server struct {
	store     store.Store
	router    *http.ServeMux
	server    *http.Server
	startTime time.Time
}

// NewServer creates a new HTTP server instance
func NewServer(store store.Store) *Server {
	s := &Server{
		store:     store,
		router:    http.NewServeMux(),
		startTime: time.Now(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())
}

// Mount attaches an extra route, used for the Telegram webhook path
func (s *Server) Mount(path string, handler http.HandlerFunc) {
	s.router.HandleFunc(path, handler)
}

// Start begins listening on the given address
func (s *Server) Start(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.Info().Msg("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}

// handleHealth returns JSON with status, database connectivity, and uptime
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dbStatus := "healthy"
	if err := s.store.Ping(ctx); err != nil {
		dbStatus = fmt.Sprintf("unhealthy: %v", err)
	}

	uptime := time.Since(s.startTime).Round(time.Second).String()

	status := "healthy"
	if dbStatus != "healthy" {
		status = "unhealthy"
	}

	response := HealthResponse{
		Status:   status,
		Database: dbStatus,
		Uptime:   uptime,
	}

	w.Header().Set("Content-Type", "application/json")
	if status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().Err(err).Msg("Failed to encode health response")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// UpdateCatalogSize updates the catalog size gauge
func UpdateCatalogSize(count int64) {
	catalogEntries.Set(float64(count))
}

// RecordSearch counts one catalog search
func RecordSearch() {
	searchesTotal.Inc()
}

// RecordPurchase counts one completed VIP purchase
func RecordPurchase() {
	purchasesTotal.Inc()
}

// RecordBroadcast counts delivered broadcast messages
func RecordBroadcast(sent int) {
	broadcastsTotal.Add(float64(sent))
}

// RecordIntakeCommit counts one committed catalog entry
func RecordIntakeCommit() {
	intakeCommits.Inc()
}

// RecordSendFailure counts one failed outbound Telegram call
func RecordSendFailure() {
	sendFailures.Inc()
}

// GetUptime returns the server uptime
func (s *Server) GetUptime() time.Duration {
	return time.Since(s.startTime)
}
