// cmd/scheduler/main.go
package main

import (
	"context"
	"flag"
	"log"

	"github.com/driftwatch/driftwatch/pkg/bus"
	"github.com/driftwatch/driftwatch/pkg/cache"
	"github.com/driftwatch/driftwatch/pkg/config"
	"github.com/driftwatch/driftwatch/pkg/db"
	"github.com/driftwatch/driftwatch/pkg/lifecycle"
	"github.com/driftwatch/driftwatch/pkg/scheduler"
)

func main() {
	configPath := flag.String("config", "/etc/driftwatch/scheduler.json", "Path to config file")
	flag.Parse()

	var cfg config.SchedulerConfig
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

	pipeline := scheduler.NewPipeline(database, bus.NewClient(&cfg.Kafka), kv, &cfg)

	if err := lifecycle.RunServer(ctx, &lifecycle.ServerOptions{
		ListenAddr:  cfg.ListenAddr,
		ServiceName: "scheduler",
		Service:     pipeline,
	}); err != nil {
		log.Fatalf("Scheduler failed: %v", err)
	}
}
