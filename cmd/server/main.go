// Package main is the entry point for the slide marker server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/slidemarks/viewer/internal/api"
	"github.com/slidemarks/viewer/internal/cache"
	"github.com/slidemarks/viewer/internal/config"
	"github.com/slidemarks/viewer/internal/ingest"
	"github.com/slidemarks/viewer/internal/markers"
	"github.com/slidemarks/viewer/internal/render"
	"github.com/slidemarks/viewer/internal/service"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config/server.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting slide marker server on port %d", cfg.Server.Port)

	ctx := context.Background()

	// Initialize cache manager (shared across all slides)
	cacheManager, err := cache.NewManager(cache.Config{
		AssetCacheSizeMB: cfg.Cache.AssetSizeMB,
		AssetTTL:         time.Duration(cfg.Cache.AssetTTLMinutes) * time.Minute,
		QueryCacheSize:   cfg.Cache.QueryEntries,
	})
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}
	defer cacheManager.Close()

	// Initialize asset renderer (shared across all slides)
	assetRenderer := render.NewAssetRenderer(render.Config{
		AtlasSize:      cfg.Render.AtlasSize,
		ColorbarWidth:  cfg.Render.ColorbarWidth,
		ColorbarHeight: cfg.Render.ColorbarHeight,
	})

	slideIDs := cfg.Data.SlideIDs()
	registry := api.NewSlideRegistry(cfg.Data.DefaultSlide, slideIDs, cfg.Server.Title)
	defer registry.Close()

	log.Printf("Initializing %d slide(s), default: %s", len(slideIDs), cfg.Data.DefaultSlide)

	for _, slideID := range slideIDs {
		sc := cfg.Data.Slides[slideID]

		var barcodes, measurements []markers.Point
		if sc.Barcodes.Path != "" {
			barcodes, err = ingest.LoadBarcodes(sc.Barcodes.Path, sc.Barcodes.Columns)
			if err != nil {
				log.Fatalf("Failed to load barcodes for slide %q: %v", slideID, err)
			}
			log.Printf("  [%s] Barcodes: %d from %s", slideID, len(barcodes), sc.Barcodes.Path)
		}
		if sc.Measurements.Path != "" {
			measurements, err = ingest.LoadMeasurements(sc.Measurements.Path, sc.Measurements.Columns)
			if err != nil {
				log.Fatalf("Failed to load measurements for slide %q: %v", slideID, err)
			}
			log.Printf("  [%s] Measurements: %d from %s", slideID, len(measurements), sc.Measurements.Path)
		}

		size := sc.ImageSize(barcodes, measurements)
		log.Printf("  [%s] Image size: %gx%g", slideID, size.Width, size.Height)

		svc, err := service.NewMarkerService(service.MarkerServiceConfig{
			SlideID:        slideID,
			Title:          sc.Title,
			ImageSize:      size,
			Barcodes:       barcodes,
			Measurements:   measurements,
			StyleKey:       sc.Barcodes.StyleKey,
			UseMarkerColor: sc.Barcodes.UseMarkerColor,
			Colorscale:     sc.Measurements.Colorscale,
			ValueName:      sc.Measurements.Columns.Value,
			MarkerScale:    cfg.Viewer.MarkerScale,
			Opacity:        cfg.Viewer.MarkerOpacity,
			PreviewMaxSize: cfg.Render.PreviewMaxSize,
			Cache:          cacheManager,
			Renderer:       assetRenderer,
		})
		if err != nil {
			log.Fatalf("Failed to initialize slide %q: %v", slideID, err)
		}
		registry.Register(slideID, svc)
	}

	// Set up HTTP router
	router := api.NewRouter(api.RouterConfig{
		Registry:    registry,
		CORSOrigins: cfg.Server.CORSOrigins,
		StaticDir:   cfg.Server.StaticDir,
		Index:       cfg.Server.Index,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on http://localhost:%d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
