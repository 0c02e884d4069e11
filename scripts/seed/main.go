// Seeds a demo knowledge graph into the configured backend.
//
//	go run ./scripts/seed -collection demo -force
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"go.uber.org/zap"

	"kgraph/internal/graph"
	"kgraph/internal/store"
	memorystore "kgraph/internal/store/memory"
	neo4jstore "kgraph/internal/store/neo4j"
	sqlitestore "kgraph/internal/store/sqlite"
	"kgraph/pkg/config"
	"kgraph/pkg/logger"
)

func main() {
	collection := flag.String("collection", "demo", "Collection to seed")
	force := flag.Bool("force", false, "Clear the collection before seeding")
	flag.Parse()

	// Initialize logger
	if err := logger.Init("development"); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting graph seeding...", zap.String("collection", *collection))

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	recordStore, err := openStore(cfg)
	if err != nil {
		log.Fatal("Failed to open record store", zap.Error(err))
	}
	defer recordStore.Close()
	log.Info("Record store ready", zap.String("backend", cfg.StoreBackend))

	ctx := context.Background()
	svc := graph.NewService(recordStore)

	if *force {
		if err := svc.Clear(ctx, *collection); err != nil {
			log.Fatal("Failed to clear collection", zap.Error(err))
		}
		log.Info("Collection cleared")
	}

	doc := graph.ExportDocument{
		Nodes: []graph.Node{
			{ID: "ada", Name: "Ada Lovelace", Type: "Person",
				Properties: map[string]any{"born": 1815, "field": "mathematics"}},
			{ID: "babbage", Name: "Charles Babbage", Type: "Person",
				Properties: map[string]any{"born": 1791}},
			{ID: "engine", Name: "Analytical Engine", Type: "Machine",
				Properties: map[string]any{"era": "victorian"}},
			{ID: "notes", Name: "Notes on the Analytical Engine", Type: "Document"},
		},
		Edges: []graph.Edge{
			{Source: "babbage", Target: "engine", Relation: "designed", Weight: 1},
			{Source: "ada", Target: "notes", Relation: "authored", Weight: 1},
			{Source: "notes", Target: "engine", Relation: "describes", Weight: 1},
			{Source: "ada", Target: "babbage", Relation: "collaborated_with", Weight: 1},
		},
	}

	result, err := svc.Import(ctx, *collection, doc, false)
	if err != nil {
		log.Fatal("Failed to import demo graph", zap.Error(err))
	}
	log.Info("Demo graph imported",
		zap.Int("nodes", result.NodesImported),
		zap.Int("edges", result.EdgesImported),
	)

	stats, err := svc.Stats(ctx, *collection)
	if err != nil {
		log.Fatal("Failed to read stats", zap.Error(err))
	}
	log.Info("Seeding complete",
		zap.String("collection", *collection),
		zap.Int("node_count", stats.NodeCount),
		zap.Int("edge_count", stats.EdgeCount),
	)
}

func openStore(cfg *config.Config) (store.RecordStore, error) {
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		return sqlitestore.Open(cfg.SQLitePath)
	case config.BackendNeo4j:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return neo4jstore.Open(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
	default:
		return memorystore.New(), nil
	}
}
