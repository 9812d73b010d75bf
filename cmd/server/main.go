package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"instaguard/internal/app"
	"instaguard/internal/config"
	"instaguard/internal/jobs"
	"instaguard/internal/server"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()
	yamlCfg, err := config.LoadYAMLConfig()
	if err != nil {
		log.Fatalf("Failed to load config file: %v", err)
	}
	cfg.Apply(yamlCfg)
	app.SetupLogging(cfg)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	services, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer services.Close()
	log.Println("Store ready, migrations applied")

	srv := server.New(cfg)
	if err := srv.RegisterRoutes(ctx, server.Deps{
		Store:      services.Store,
		Pipeline:   services.Pipeline,
		Model:      services.Model,
		Collectors: services.Extractor.Collectors(),
	}); err != nil {
		log.Fatalf("Failed to register routes: %v", err)
	}

	// Keep one primary session warm
	if len(cfg.Accounts) > 0 && cfg.SessionWarmEvery > 0 {
		warmer := jobs.NewSessionWarmer(services.Primary, cfg.SessionWarmEvery)
		go warmer.Start(ctx)
	}

	// Graceful shutdown
	go func() {
		if err := srv.Start(); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("Server started on %s", cfg.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	cancel()
	if err := srv.Shutdown(); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited")
}
