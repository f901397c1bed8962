package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	httpapi "github.com/yourorg/listing-editor/http"
	"github.com/yourorg/listing-editor/internal/engine"
	"github.com/yourorg/listing-editor/internal/env"
	"github.com/yourorg/listing-editor/internal/events"
	"github.com/yourorg/listing-editor/internal/logger"
	"github.com/yourorg/listing-editor/internal/redisx"
	"github.com/yourorg/listing-editor/internal/refresh"
	"github.com/yourorg/listing-editor/internal/search"
	"github.com/yourorg/listing-editor/internal/store"
	"github.com/yourorg/listing-editor/listingapi"
	"github.com/yourorg/listing-editor/storage"
)

func main() {
	port := env.GetInt("PORT", 4003)
	backendURL := env.Must("BACKEND_BASE_URL")
	uploadURL := env.Must("STORAGE_UPLOAD_URL")
	uploadKey := env.Get("STORAGE_API_KEY", "")

	api := listingapi.NewClient(backendURL)
	uploads := storage.NewClient(uploadURL, uploadKey)
	eng := engine.New(api, uploads)

	var cache *redisx.Client
	if addr := env.Get("REDIS_ADDR", ""); addr != "" {
		cache = redisx.New(addr, env.Get("REDIS_PASSWORD", ""), env.GetInt("REDIS_DB", 0))
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := cache.Ping(ctx); err != nil {
			log.Printf("[WARN] redis unavailable, running without baseline cache: %v", err)
			cache = nil
		} else {
			eng.Locks = cache
		}
		cancel()
	}

	if dsn := env.Get("PG_DSN", ""); dsn != "" {
		st, err := store.Open(dsn)
		if err != nil {
			log.Fatalf("store open error: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := st.Ping(ctx); err != nil {
			cancel()
			log.Fatalf("postgres ping error: %v", err)
		}
		if err := st.Migrate(ctx); err != nil {
			cancel()
			log.Fatalf("postgres migrate error: %v", err)
		}
		cancel()
		eng.Audit = st
	}

	pub := events.NewInMemory(256)
	eng.Pub = pub
	indexer := &search.Indexer{Pub: pub}
	go indexer.Run(context.Background())

	var refresher *refresh.Refresher
	if cache != nil {
		refresher = refresh.New(256, 2, func(ctx context.Context, j refresh.Job) {
			snap, _, err := api.Load(ctx, j.ListingID)
			if err != nil {
				log.Printf("[WARN] baseline refresh for listing %d: %v", j.ListingID, err)
				return
			}
			if err := cache.PutSnapshot(ctx, snap); err != nil {
				log.Printf("[WARN] baseline refresh cache write for listing %d: %v", j.ListingID, err)
			}
		})
	}

	router := BuildRouter(httpapi.EditDeps{
		API:       api,
		Engine:    eng,
		Cache:     cache,
		Refresher: refresher,
	})

	log.Printf("listing-editor listening on :%d", port)
	if err := http.ListenAndServe(fmt.Sprintf(":%d", port), logger.Middleware(router)); err != nil {
		log.Fatal(err)
	}
}
