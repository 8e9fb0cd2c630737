package main

import (
	"context"
	"flag"
	"log"

	"github.com/DoyleJ11/cooking-backend/internal/catalog"
	"github.com/DoyleJ11/cooking-backend/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	path := flag.String("file", cfg.CatalogPath, "YAML recipe catalog to load")
	dsn := flag.String("db", cfg.DatabaseURL, "Postgres connection URL")
	flag.Parse()

	if *dsn == "" {
		log.Fatal("a database URL is required (-db or COOK_DATABASE_URL)")
	}

	mem, err := catalog.LoadFile(*path)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}

	store, err := catalog.Open(*dsn)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}

	for _, r := range mem.All() {
		if err := store.Save(ctx, r); err != nil {
			log.Fatalf("Failed to save %q: %v", r.Name, err)
		}
		log.Printf("Seeded %s (%d steps)", r.Name, len(r.Steps))
	}
}
