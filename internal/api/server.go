// Package api exposes the daemon's HTTP surface: a REST API over the output
// orchestrator and device settings, a Prometheus metrics endpoint, and a
// websocket feed of runtime events.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/openlumen/pixelnode/internal/database/repositories"
	"github.com/openlumen/pixelnode/internal/events"
	"github.com/openlumen/pixelnode/internal/services/input"
	"github.com/openlumen/pixelnode/internal/services/outputs"
	"github.com/openlumen/pixelnode/internal/services/patterns"
	"github.com/openlumen/pixelnode/internal/services/version"
	"github.com/openlumen/pixelnode/internal/services/wifi"
)

// Options carries the wired services the HTTP surface exposes.
type Options struct {
	Port       string
	CORSOrigin string
	Debug      bool

	Outputs  *outputs.Service
	Input    *input.Service // nil when the sACN receiver is disabled
	Patterns *patterns.Service
	Settings *repositories.SettingRepository
	WiFi     *wifi.Service
	Bus      *events.Bus
	Metrics  http.Handler // mounted at /metrics when set
}

// Server is the HTTP API server.
type Server struct {
	router     *chi.Mux
	api        huma.API
	httpServer *http.Server
	hub        *hub

	outputs  *outputs.Service
	input    *input.Service
	patterns *patterns.Service
	settings *repositories.SettingRepository
	wifi     *wifi.Service
}

// NewServer builds the router and registers every endpoint. Nothing listens
// until Start.
func NewServer(opts Options) *Server {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   []string{opts.CORSOrigin, "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		Debug:            opts.Debug,
	})
	router.Use(corsMiddleware.Handler)

	config := huma.DefaultConfig("PixelNode API", version.Version)
	config.Info.Description = "Pixel output node configuration and control API"
	// Relative paths keep the OpenAPI document host-agnostic
	config.Servers = []*huma.Server{}

	server := &Server{
		router:   router,
		api:      humachi.New(router, config),
		hub:      newHub(opts.Bus),
		outputs:  opts.Outputs,
		input:    opts.Input,
		patterns: opts.Patterns,
		settings: opts.Settings,
		wifi:     opts.WiFi,
	}

	router.Get("/health", healthHandler)
	if opts.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	router.Get("/ws", server.hub.serveWS)

	server.registerOutputRoutes()
	server.registerDeviceRoutes()
	server.registerBackupRoutes()

	server.httpServer = &http.Server{
		Addr:         ":" + opts.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server
}

// Start serves HTTP until Stop shuts the listener down.
func (s *Server) Start() error {
	log.Printf("📡 HTTP API listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop drains in-flight requests and disconnects websocket clients.
func (s *Server) Stop(ctx context.Context) error {
	s.hub.close()
	return s.httpServer.Shutdown(ctx)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	info := version.Get()
	response := fmt.Sprintf(`{
  "status": "ok",
  "timestamp": "%s",
  "version": "%s",
  "uptime_seconds": %d
}`, time.Now().UTC().Format(time.RFC3339), info.Version, info.UptimeSeconds)

	_, _ = w.Write([]byte(response))
}
