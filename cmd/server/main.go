// Command server runs the flow execution engine's HTTP process: it wires
// config, the Mongo durable store, the definition cache, and the engine's
// collaborators, then mounts Fiber routes and serves.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jeamxn/codeblock-bff/internal/config"
	"github.com/jeamxn/codeblock-bff/internal/definitioncache"
	"github.com/jeamxn/codeblock-bff/internal/flowengine"
	"github.com/jeamxn/codeblock-bff/internal/handlers"
	"github.com/jeamxn/codeblock-bff/internal/mongostore"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	store, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	cancel()
	if err != nil {
		log.Fatalf("❌ [BOOT] failed to connect to mongo: %v", err)
	}

	if err := store.EnsureIndexes(context.Background()); err != nil {
		log.Printf("⚠️ [BOOT] failed to ensure indexes (continuing): %v", err)
	}

	defCache := definitioncache.New(store, cfg.CacheTTLSeconds, cfg.OpenAPICacheTTLSeconds)

	registry := flowengine.NewBlockTypeRegistry()
	dispatcher := flowengine.NewDispatcher(registry)
	dispatcher.DefaultBlockTimeout = time.Duration(cfg.DefaultBlockTimeoutSeconds) * time.Second

	resolver := flowengine.NewResolver()
	logSink := flowengine.NewLogSink(store.Collection(mongostore.CollectionExecutionLogs), cfg.LogQueueCapacity)

	engine := flowengine.New(defCache, resolver, dispatcher, logSink)
	engine.DefaultFlowTimeout = time.Duration(cfg.DefaultFlowTimeoutSeconds) * time.Second

	executeHandler := handlers.NewExecuteHandler(engine, store)

	app := fiber.New(fiber.Config{
		AppName:      "codeblock-bff",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
	})

	app.Get("/healthz", handlers.Health)

	app.Get("/api/execute/:slug", executeHandler.Execute)
	app.Post("/api/execute/:slug", executeHandler.Execute)
	app.Post("/api/execute/:slug/test", executeHandler.Test)
	app.Get("/api/execute/:slug/logs", executeHandler.Logs)

	go func() {
		addr := ":" + cfg.Port
		log.Printf("🚀 [BOOT] listening on %s (base url %s)", addr, cfg.BaseURL)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("❌ [BOOT] server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 [SHUTDOWN] signal received, draining")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("⚠️ [SHUTDOWN] fiber shutdown error: %v", err)
	}
	if err := store.Disconnect(shutdownCtx); err != nil {
		log.Printf("⚠️ [SHUTDOWN] mongo disconnect error: %v", err)
	}
}
