package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/anthropics/signal-command-bot/mcpserver"
)

func main() {
	baseURL := os.Getenv("BOT_API_URL")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:9876"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	srv := mcpserver.NewServer(baseURL)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "signal-mcp: %v\n", err)
		os.Exit(1)
	}
}
