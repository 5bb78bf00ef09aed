package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/Apurer/bakery-orders/internal/app/api"
)

func main() {
	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := api.Run(ctx, cfg); err != nil {
		log.Fatalf("bakery orders API failed: %v", err)
	}
}
