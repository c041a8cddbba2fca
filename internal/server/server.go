package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/anthropics/signal-command-bot/internal/infra/signal"
	"github.com/anthropics/signal-command-bot/internal/service"
)

// Server owns the listening lifecycle: daemon client on one side, bot
// service on the other.
type Server struct {
	client    *signal.Client
	botSvc    *service.BotService
	scheduler *service.CleanupScheduler

	mu      sync.Mutex
	running bool
	fatalCh chan error
}

// NewServer creates the top-level server. scheduler may be nil.
func NewServer(client *signal.Client, botSvc *service.BotService, scheduler *service.CleanupScheduler) *Server {
	return &Server{
		client:    client,
		botSvc:    botSvc,
		scheduler: scheduler,
		fatalCh:   make(chan error, 1),
	}
}

// Start connects the pipeline and blocks until a fatal transport
// condition or Stop.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.mu.Unlock()

	s.client.OnMessage(s.botSvc.HandleEnvelope)
	s.client.OnReaction(s.botSvc.HandleReaction)
	s.client.OnFatal(func(err error) {
		select {
		case s.fatalCh <- err:
		default:
		}
	})

	if err := s.client.Start(); err != nil {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return err
	}

	if s.scheduler != nil {
		s.scheduler.Start(context.Background())
	}

	fmt.Println("[Server] Listening for messages")
	err, ok := <-s.fatalCh
	if !ok {
		return nil // Stop() closed the channel
	}
	return fmt.Errorf("listening stopped: %w", err)
}

// Stop shuts the pipeline down
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	s.client.Stop()
	close(s.fatalCh)
}
