package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/signal-command-bot/internal/biz/domain"
	"github.com/anthropics/signal-command-bot/internal/biz/repo"
)

const defaultExecTimeout = 30 * time.Second

// DispatcherConfig configures the command dispatcher
type DispatcherConfig struct {
	ExecTimeout time.Duration
	// MentionCommands keep '@' placeholders in their arguments; mention
	// encoding is structurally different from attacker-controlled text.
	MentionCommands []string
}

// Dispatcher is the boundary between free-form chat text and command
// execution: parse, validate, sanitize, rate-limit, authorize, execute.
type Dispatcher struct {
	registry  domain.Registry
	roles     *RoleResolver
	limiter   *RateLimiter
	analytics repo.AnalyticsRepo
	errorLog  repo.ErrorLogRepo

	execTimeout    time.Duration
	mentionAllowed map[string]bool
}

// NewDispatcher creates a command dispatcher
func NewDispatcher(
	registry domain.Registry,
	roles *RoleResolver,
	limiter *RateLimiter,
	analytics repo.AnalyticsRepo,
	errorLog repo.ErrorLogRepo,
	cfg DispatcherConfig,
) *Dispatcher {
	if cfg.ExecTimeout <= 0 {
		cfg.ExecTimeout = defaultExecTimeout
	}
	allowed := make(map[string]bool, len(cfg.MentionCommands))
	for _, name := range cfg.MentionCommands {
		allowed[name] = true
	}
	return &Dispatcher{
		registry:       registry,
		roles:          roles,
		limiter:        limiter,
		analytics:      analytics,
		errorLog:       errorLog,
		execTimeout:    cfg.ExecTimeout,
		mentionAllowed: allowed,
	}
}

// Dispatch runs one inbound message through the pipeline. It returns the
// reply text and whether the message was a command at all. A recognized
// command always produces some reply.
func (d *Dispatcher) Dispatch(ctx context.Context, msg *domain.InboundMessage) (string, bool) {
	parsed, ok := ParseCommand(msg.Text)
	if !ok {
		return "", false
	}

	if err := ValidateCommand(parsed); err != nil {
		return err.Error(), true
	}

	args := SanitizeArgs(parsed.Args, d.mentionAllowed[parsed.Name])

	caller := d.roles.Resolve(msg)

	if ok, wait := d.limiter.Admit(caller.SenderID, parsed.Name); !ok {
		return fmt.Sprintf("Rate limit reached for !%s, try again in %d seconds.",
			parsed.Name, int(wait.Seconds())+1), true
	}

	cmd, found := d.registry.Lookup(parsed.Name)
	if !found {
		return fmt.Sprintf("Unknown command !%s. Try !help.", parsed.Name), true
	}

	if !cmd.AllowedFor(caller) {
		// Reveals the required role but not the handler's behavior.
		if cmd.AdminOnly {
			return "This command requires admin privileges.", true
		}
		return "This command requires moderator privileges.", true
	}

	inv := &domain.CommandInvocation{
		Name:   parsed.Name,
		Args:   args,
		Caller: caller,
	}
	return d.execute(ctx, cmd, inv), true
}

// execute runs the handler under a timeout and records telemetry on both
// the success and failure paths.
func (d *Dispatcher) execute(ctx context.Context, cmd *domain.Command, inv *domain.CommandInvocation) string {
	execCtx, cancel := context.WithTimeout(ctx, d.execTimeout)
	defer cancel()

	start := time.Now()
	reply, err := runHandler(execCtx, cmd, inv)
	elapsed := time.Since(start)

	rec := &repo.UsageRecord{
		Command:      inv.Name,
		Args:         inv.Args,
		GroupID:      inv.Caller.GroupID,
		UserID:       inv.Caller.SenderID,
		Success:      err == nil,
		ResponseTime: elapsed,
	}
	if err != nil {
		rec.ErrorMessage = err.Error()
	}
	d.record(rec)

	if err != nil {
		d.logError(cmd.Name, inv, err)
		// Internal error text stays internal; the user gets a generic
		// failure in the same chat the command arrived on.
		return fmt.Sprintf("Command !%s failed, please try again later.", cmd.Name)
	}
	return reply
}

// runHandler bounds a handler that ignores its context: the handler runs
// in its own goroutine and the timeout is enforced at the call site.
func runHandler(ctx context.Context, cmd *domain.Command, inv *domain.CommandInvocation) (string, error) {
	type outcome struct {
		reply string
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		reply, err := cmd.Execute(ctx, inv)
		done <- outcome{reply: reply, err: err}
	}()

	select {
	case out := <-done:
		return out.reply, out.err
	case <-ctx.Done():
		return "", fmt.Errorf("command %s: %w", cmd.Name, ctx.Err())
	}
}

func (d *Dispatcher) record(rec *repo.UsageRecord) {
	if d.analytics == nil {
		return
	}
	// Telemetry must never block or fail the reply path
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.analytics.RecordUsage(ctx, rec); err != nil {
			fmt.Printf("[Dispatcher] Usage record failed: %v\n", err)
		}
	}()
}

func (d *Dispatcher) logError(command string, inv *domain.CommandInvocation, err error) {
	if d.errorLog == nil {
		return
	}
	rec := &repo.ErrorRecord{
		ErrorType:    "command_execution",
		ErrorMessage: err.Error(),
		Context: fmt.Sprintf("command=%s args=%v sender=%s group=%s",
			command, inv.Args, inv.Caller.SenderID, inv.Caller.GroupID),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.errorLog.RecordError(ctx, rec); err != nil {
			fmt.Printf("[Dispatcher] Error record failed: %v\n", err)
		}
	}()
}
