// cmd/detector/main.go
package main

import (
	"context"
	"flag"
	"log"

	"github.com/driftwatch/driftwatch/pkg/bus"
	"github.com/driftwatch/driftwatch/pkg/cache"
	"github.com/driftwatch/driftwatch/pkg/config"
	"github.com/driftwatch/driftwatch/pkg/db"
	"github.com/driftwatch/driftwatch/pkg/detector"
	"github.com/driftwatch/driftwatch/pkg/lifecycle"
)

func main() {
	configPath := flag.String("config", "/etc/driftwatch/detector.json", "Path to config file")
	flag.Parse()

	var cfg config.DetectorConfig
	if err := config.LoadAndValidate(*configPath, &cfg); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	kv, err := cache.NewStore(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to cache: %v", err)
	}

	engine := detector.NewEngine(database, bus.NewClient(&cfg.Kafka), kv, nil)

	if err := lifecycle.RunServer(ctx, &lifecycle.ServerOptions{
		ListenAddr:  cfg.ListenAddr,
		ServiceName: "change-detector",
		Service:     engine,
	}); err != nil {
		log.Fatalf("Change detector failed: %v", err)
	}
}
