package signal

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

const (
	restartDelay      = 5 * time.Second
	socketPollEvery   = 500 * time.Millisecond
	socketWaitTimeout = 30 * time.Second
	stopWaitTimeout   = 5 * time.Second
)

// StartupError indicates the daemon could not be launched
type StartupError struct {
	Reason string
	Err    error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("daemon startup: %s: %v", e.Reason, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }

// SocketTimeoutError indicates the daemon never created its socket file
type SocketTimeoutError struct {
	Path   string
	Waited time.Duration
}

func (e *SocketTimeoutError) Error() string {
	return fmt.Sprintf("socket %s did not appear within %s", e.Path, e.Waited)
}

// SupervisorConfig configures the daemon supervisor
type SupervisorConfig struct {
	BinPath     string // signal-cli executable
	Account     string // bot account number
	DataDir     string // daemon config/data directory
	SocketPath  string // unix socket the daemon listens on
	MaxRestarts int
}

// Supervisor owns the lifecycle of the signal-cli daemon subprocess and
// restarts it on unexpected exit, up to MaxRestarts.
type Supervisor struct {
	cfg SupervisorConfig

	mu           sync.Mutex
	cmd          *exec.Cmd
	exited       chan struct{}
	listening    bool
	restarts     int
	lastExitCode int

	// invoked after every exit, whether or not a restart follows
	onExit func(code int, restarting bool)
}

// NewSupervisor creates a supervisor for the daemon subprocess
func NewSupervisor(cfg SupervisorConfig) *Supervisor {
	if cfg.BinPath == "" {
		cfg.BinPath = "signal-cli"
	}
	if cfg.MaxRestarts <= 0 {
		cfg.MaxRestarts = 5
	}
	return &Supervisor{cfg: cfg}
}

// OnExit sets the callback invoked when the daemon exits
func (s *Supervisor) OnExit(fn func(code int, restarting bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExit = fn
}

// Start launches the daemon. It ensures the data directory exists and
// removes any stale socket file left behind by a previous run.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.cfg.DataDir, 0755); err != nil {
		return &StartupError{Reason: "create data dir", Err: err}
	}
	// A stale socket makes the daemon fail to bind
	_ = os.Remove(s.cfg.SocketPath)

	s.listening = true
	return s.spawnLocked()
}

// spawnLocked starts one daemon instance; caller holds s.mu.
func (s *Supervisor) spawnLocked() error {
	args := []string{
		"--config", s.cfg.DataDir,
		"--account", s.cfg.Account,
		"daemon",
		"--socket", s.cfg.SocketPath,
		"--receive-mode", "on-connection",
	}
	fmt.Printf("[Supervisor] Starting: %s %v\n", s.cfg.BinPath, args)

	cmd := exec.Command(s.cfg.BinPath, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		s.listening = false
		return &StartupError{Reason: "exec daemon", Err: err}
	}
	s.cmd = cmd
	s.exited = make(chan struct{})

	go s.monitor(cmd, s.exited)
	return nil
}

// monitor waits for the daemon to exit and schedules a restart when the
// supervisor is still supposed to be listening.
func (s *Supervisor) monitor(cmd *exec.Cmd, exited chan struct{}) {
	err := cmd.Wait()
	close(exited)

	s.mu.Lock()
	code := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		} else {
			code = -1
		}
	}
	s.lastExitCode = code

	restart := s.listening && s.restarts < s.cfg.MaxRestarts
	if restart {
		s.restarts++
	}
	onExit := s.onExit
	s.mu.Unlock()

	if onExit != nil {
		onExit(code, restart)
	}

	if !restart {
		if code != 0 {
			fmt.Printf("[Supervisor] Daemon exited with code %d, not restarting\n", code)
		}
		return
	}

	fmt.Printf("[Supervisor] Daemon exited with code %d, restarting in %s\n", code, restartDelay)
	time.Sleep(restartDelay)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.listening {
		return
	}
	_ = os.Remove(s.cfg.SocketPath)
	if err := s.spawnLocked(); err != nil {
		fmt.Printf("[Supervisor] Restart failed: %v\n", err)
	}
}

// WaitForSocket polls until the daemon's socket file exists. Connecting
// before the file exists would fail silently, so startup blocks here.
func (s *Supervisor) WaitForSocket() error {
	deadline := time.Now().Add(socketWaitTimeout)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(s.cfg.SocketPath); err == nil {
			return nil
		}
		time.Sleep(socketPollEvery)
	}
	return &SocketTimeoutError{Path: s.cfg.SocketPath, Waited: socketWaitTimeout}
}

// Stop terminates the daemon gracefully. The process is considered stopped
// after stopWaitTimeout whether or not it acknowledged the signal, and the
// socket file is always removed.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	s.listening = false
	cmd := s.cmd
	exited := s.exited
	s.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Signal(syscall.SIGTERM)

		select {
		case <-exited:
		case <-time.After(stopWaitTimeout):
			_ = cmd.Process.Kill()
		}
	}

	_ = os.Remove(s.cfg.SocketPath)
	fmt.Println("[Supervisor] Stopped")
}

// Restarts returns how many restarts the supervisor has performed
func (s *Supervisor) Restarts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restarts
}

// LastExitCode returns the exit code of the most recent daemon exit
func (s *Supervisor) LastExitCode() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastExitCode
}
