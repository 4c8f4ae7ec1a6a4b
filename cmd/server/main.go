package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"emberfall/server/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	envCfg, err := app.LoadEnvironment()
	if err != nil {
		log.Fatalf("configuration: %v", err)
	}
	if err := app.Run(ctx, envCfg); err != nil {
		log.Fatalf("server: %v", err)
	}
}
