package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"watchquest/api/internal/app"
	"watchquest/api/internal/catalog"
	"watchquest/api/internal/config"
	"watchquest/api/internal/search"
	"watchquest/api/internal/session"
	"watchquest/api/internal/store"
)

func main() {
	cfg := config.Load()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("failed to create data dir: %v", err)
	}
	docStore, err := store.Open(store.Options{Dir: cfg.DataDir})
	if err != nil {
		log.Fatalf("store open failed: %v", err)
	}
	defer docStore.Close()
	if err := docStore.Load(time.Now()); err != nil {
		log.Fatalf("store load failed: %v", err)
	}

	var sessions session.Store
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for the session pointer")
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisStore.Close()
		sessions = redisStore
	} else {
		sessions = session.NewBadgerStore(docStore.DB())
	}

	var provider catalog.Provider
	if strings.TrimSpace(cfg.OMDBAPIKey) != "" {
		provider = catalog.NewClient(cfg.OMDBBaseURL, cfg.OMDBAPIKey, cfg.OMDBSearchResults)
	} else {
		log.Printf("No OMDb API key set, catalog search runs on the local seed only")
	}
	resolver := catalog.NewResolver(store.LocalCatalog(), provider)

	service := app.New(cfg, docStore, sessions, resolver)

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, search.NewDocScan(service.SearchSnapshot))
	service.AttachSearch(searchService)
	service.Reindex()

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("WatchQuest API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
