// cmd/gateway/main.go
package main

import (
	"context"
	"flag"
	"log"

	"github.com/driftwatch/driftwatch/pkg/bus"
	"github.com/driftwatch/driftwatch/pkg/cache"
	"github.com/driftwatch/driftwatch/pkg/config"
	"github.com/driftwatch/driftwatch/pkg/gateway"
	"github.com/driftwatch/driftwatch/pkg/lifecycle"
)

func main() {
	configPath := flag.String("config", "/etc/driftwatch/gateway.json", "Path to config file")
	flag.Parse()

	var cfg config.GatewayConfig
	if err := config.LoadAndValidate(*configPath, &cfg); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	kv, err := cache.NewStore(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to cache: %v", err)
	}

	gw := gateway.NewGateway(bus.NewClient(&cfg.Kafka), kv, &cfg, nil)

	if err := lifecycle.RunServer(ctx, &lifecycle.ServerOptions{
		ListenAddr:  cfg.ListenAddr,
		ServiceName: "gateway",
		Service:     gw,
	}); err != nil {
		log.Fatalf("Gateway failed: %v", err)
	}
}
