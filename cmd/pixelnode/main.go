// Package main is the entry point for the PixelNode output daemon.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/openlumen/pixelnode/internal/api"
	"github.com/openlumen/pixelnode/internal/config"
	"github.com/openlumen/pixelnode/internal/database"
	"github.com/openlumen/pixelnode/internal/database/models"
	"github.com/openlumen/pixelnode/internal/database/repositories"
	"github.com/openlumen/pixelnode/internal/events"
	"github.com/openlumen/pixelnode/internal/fileio"
	"github.com/openlumen/pixelnode/internal/metrics"
	"github.com/openlumen/pixelnode/internal/platform"
	"github.com/openlumen/pixelnode/internal/services/input"
	"github.com/openlumen/pixelnode/internal/services/network"
	"github.com/openlumen/pixelnode/internal/services/outputs"
	"github.com/openlumen/pixelnode/internal/services/patterns"
	"github.com/openlumen/pixelnode/internal/services/version"
	"github.com/openlumen/pixelnode/internal/services/wifi"
)

func main() {
	// Load .env file if present
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := config.Load()

	// Print startup banner
	printBanner(cfg)

	// Connect to the settings database
	db, err := database.Connect(database.Config{
		URL:   cfg.DatabaseURL,
		Debug: cfg.IsDevelopment(),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close() }()

	// Auto-migrate database schema
	log.Println("Running database migrations...")
	if err := db.AutoMigrate(&models.Setting{}); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migrations complete")

	// Board profile and hardware backends
	profile := platform.ProfileByName(cfg.PlatformProfile)
	hw := platform.NewHardware()

	bus := events.New()
	m := metrics.New()
	store := fileio.NewStore(cfg.OutputConfigPath)

	// Create and initialize the output orchestrator
	outputService := outputs.NewService(outputs.Config{
		Profile:    profile,
		FrameRate:  cfg.OutputFrameRate,
		BufferSize: cfg.OutputBufferSize,
	}, hw, store, bus, m)
	if err := outputService.Initialize(); err != nil {
		log.Fatalf("Failed to initialize output orchestrator: %v", err)
	}

	// Test pattern generator shares the orchestrator's frame buffer
	patternService := patterns.NewService(outputService)
	patternService.Start()

	// External input receiver
	var receiver *input.Service
	if cfg.SACNEnabled {
		receiver = input.NewService(input.Config{
			ListenAddr:    cfg.SACNListenAddr,
			StartUniverse: cfg.SACNStartUniverse,
		}, outputService, bus, m)
		if err := receiver.Initialize(); err != nil {
			log.Printf("Warning: sACN receiver initialization failed: %v", err)
			// Continue anyway - the node still serves its API and test patterns
			receiver = nil
		}
	}

	// Buffer reallocation fans out to everyone writing frame data
	outputService.SetBufferUpdateCallback(func(total int) {
		if receiver != nil {
			receiver.SetWritableBytes(total)
		}
		patternService.SetWritableBytes(total)
	})

	// Re-apply external edits of the config file
	var watcher *fileio.Watcher
	if cfg.OutputWatchFile {
		watcher = fileio.NewWatcher(store, 0, func(data []byte) {
			if _, err := outputService.SetConfig(data); err != nil {
				log.Printf("⚠️ Ignoring unreadable output config edit: %v", err)
			}
		})
		if err := watcher.Start(); err != nil {
			log.Printf("Warning: config file watcher failed to start: %v", err)
			watcher = nil
		}
	}

	settingRepo := repositories.NewSettingRepository(db)
	wifiService := wifi.NewService()

	apiServer := api.NewServer(api.Options{
		Port:       cfg.Port,
		CORSOrigin: cfg.CORSOrigin,
		Debug:      cfg.IsDevelopment(),
		Outputs:    outputService,
		Input:      receiver,
		Patterns:   patternService,
		Settings:   settingRepo,
		WiFi:       wifiService,
		Bus:        bus,
		Metrics:    m.Handler(),
	})

	// Start server in goroutine
	go func() {
		if err := apiServer.Start(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	for _, url := range network.AccessURLs(cfg.Port) {
		log.Printf("🔌 Reachable at %s", url)
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Cleanup services in reverse order
	if watcher != nil {
		_ = watcher.Stop()
	}
	if receiver != nil {
		receiver.Stop()
	}
	patternService.Stop()
	outputService.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Stop(ctx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config) {
	info := version.Get()
	fmt.Println("============================================")
	fmt.Println("  PixelNode Output Daemon")
	fmt.Printf("  Version: %s\n", info.Version)
	fmt.Printf("  Build:   %s\n", info.BuildTime)
	fmt.Printf("  Commit:  %s\n", info.GitCommit)
	fmt.Println("============================================")
	fmt.Printf("  Environment: %s\n", cfg.Env)
	fmt.Printf("  Port:        %s\n", cfg.Port)
	fmt.Printf("  Database:    %s\n", cfg.DatabaseURL)
	fmt.Printf("  Profile:     %s\n", cfg.PlatformProfile)
	fmt.Printf("  sACN input:  %v\n", cfg.SACNEnabled)
	fmt.Println("============================================")
}
