package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/ImHoppy/excalidraw/internal/api"
	"github.com/ImHoppy/excalidraw/internal/config"
	"github.com/ImHoppy/excalidraw/internal/retention"
	"github.com/ImHoppy/excalidraw/internal/store"
	"github.com/ImHoppy/excalidraw/internal/ws"
)

func main() {
	configPath := pflag.String("config", "", "path to yaml config file")
	addr := pflag.String("addr", "", "listen address (overrides config)")
	dbPath := pflag.String("db", "", "sqlite database path (overrides config)")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	sceneStore, err := store.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer sceneStore.Close()

	hub := ws.NewHub()
	go hub.Run()

	sweeper := retention.New(sceneStore, retention.Config{
		Interval: cfg.RetentionInterval,
		MaxIdle:  cfg.RetentionMaxIdle,
	})
	sweeper.Start()

	apiHandler := api.New(hub, sceneStore)

	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWs(hub, w, r)
	})

	http.HandleFunc("/health", apiHandler.HealthHandler)
	http.HandleFunc("/stats", apiHandler.StatsHandler)
	http.HandleFunc("/scenes", apiHandler.ScenesRouter)
	http.HandleFunc("/scenes/", apiHandler.ScenesRouter)
	http.HandleFunc("/files", apiHandler.FilesRouter)
	http.HandleFunc("/files/", apiHandler.FilesRouter)

	handler := corsMiddleware(http.DefaultServeMux)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		sweeper.Stop()
		sceneStore.Close()
		os.Exit(0)
	}()

	log.Printf("Excalidraw sync server starting on %s", cfg.Addr)
	log.Printf("Database: %s", cfg.DBPath)
	log.Println("Endpoints:")
	log.Println("  - WebSocket: /ws?name={displayName}")
	log.Println("  - Health:    GET /health")
	log.Println("  - Stats:     GET /stats")
	log.Println("  - Scenes:    GET/POST /scenes")
	log.Println("  - Scene:     GET/PUT/DELETE /scenes/{id}")
	log.Println("  - Files:     POST /files")
	log.Println("  - File:      GET /files/{id}")

	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		log.Fatal("ListenAndServe: ", err)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
