// Command server runs the Snapgram HTTP API.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"snapgram/internal/bootstrap"
	"snapgram/internal/config"
	"snapgram/internal/observability"
	"snapgram/internal/server"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	observability.SetLogger(observability.NewLogger(os.Stdout, cfg.Env))

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "snapgram-api",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.TracingOTLPEndpoint,
		SamplerRatio:   cfg.TracingSampleRatio,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	rt, err := bootstrap.InitRuntime(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	srv := server.NewServer(cfg, server.Deps{
		Gateway: rt.Gateway,
		Queries: rt.Queries,
		DB:      rt.DB,
		Redis:   rt.Redis,
	})
	app := srv.NewApp()

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		if err := rt.Close(); err != nil {
			log.Printf("Runtime shutdown error: %v", err)
		}
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("Tracing shutdown error: %v", err)
		}
	}()

	log.Printf("Server starting on port %s...", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
