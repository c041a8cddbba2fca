package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/signal-command-bot/internal/api"
	"github.com/anthropics/signal-command-bot/internal/biz/usecase"
	"github.com/anthropics/signal-command-bot/internal/commands"
	"github.com/anthropics/signal-command-bot/internal/conf"
	"github.com/anthropics/signal-command-bot/internal/data"
	openaiinfra "github.com/anthropics/signal-command-bot/internal/infra/openai"
	signalinfra "github.com/anthropics/signal-command-bot/internal/infra/signal"
	"github.com/anthropics/signal-command-bot/internal/server"
	"github.com/anthropics/signal-command-bot/internal/service"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Daemon client
	signalClient := signalinfra.NewClient(signalinfra.ClientConfig{
		BinPath:              cfg.Signal.BinPath,
		Account:              cfg.Signal.Account,
		DataDir:              cfg.Signal.DataDir,
		SocketPath:           cfg.Signal.SocketPath,
		MaxReconnectAttempts: cfg.Signal.MaxReconnectAttempts,
		CallTimeout:          cfg.Signal.CallTimeout,
	})

	// Repository layer
	repos, err := data.NewRepositories(signalClient, cfg.Storage.DBPath)
	if err != nil {
		log.Fatalf("Failed to create repositories: %v", err)
	}
	fmt.Printf("[Bot] Database: %s\n", cfg.Storage.DBPath)

	// Optional AI client
	var aiClient *openaiinfra.Client
	if cfg.OpenAI.APIKey != "" {
		aiClient = openaiinfra.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
		fmt.Println("[Bot] AI command enabled")
	}

	// Command registry
	registry := commands.NewDefaultRegistry(commands.Deps{
		Signal:  repos.Signal,
		Message: repos.Message,
		AI:      aiClient,
	})

	// Dispatcher
	roles := usecase.NewRoleResolver(cfg.Dispatch.AdminIDs, cfg.Dispatch.ModeratorIDs)
	limiter := usecase.NewRateLimiter(cfg.Dispatch.RateCeilings, cfg.Dispatch.DefaultCeiling)
	dispatcher := usecase.NewDispatcher(registry, roles, limiter, repos.Analytics, repos.ErrorLog, usecase.DispatcherConfig{
		ExecTimeout:     cfg.Dispatch.ExecTimeout,
		MentionCommands: cfg.Dispatch.MentionCommands,
	})

	// Service layer
	botSvc := service.NewBotService(dispatcher, repos.Signal, repos.Message, repos.Reaction, repos.ErrorLog)

	// Local HTTP API for signal-mcp
	apiServer := api.NewServer(repos.Signal, repos.Message, cfg.APIPort)
	go func() {
		if err := apiServer.Start(); err != nil {
			fmt.Printf("[Bot] API server error: %v\n", err)
		}
	}()
	fmt.Printf("[Bot] HTTP API listening on 127.0.0.1:%d\n", cfg.APIPort)

	scheduler := service.NewCleanupScheduler(repos.Message, 7*24*time.Hour, time.Hour)
	srv := server.NewServer(signalClient, botSvc, scheduler)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		srv.Stop()
		apiServer.Stop()
		repos.Message.Close()
		os.Exit(0)
	}()

	fmt.Println("Starting Signal command bot...")
	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
