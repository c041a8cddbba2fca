package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/anthropics/signal-command-bot/internal/biz/domain"
	"github.com/anthropics/signal-command-bot/internal/biz/repo"
	"github.com/anthropics/signal-command-bot/internal/infra/openai"
)

// Registry is a static name -> command map built once at startup
type Registry struct {
	commands map[string]*domain.Command
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]*domain.Command)}
}

// Register adds one command. Later registrations win on name collision.
func (r *Registry) Register(cmd *domain.Command) {
	r.commands[cmd.Name] = cmd
}

// Lookup finds a command by name
func (r *Registry) Lookup(name string) (*domain.Command, bool) {
	cmd, ok := r.commands[name]
	return cmd, ok
}

// List returns all commands sorted by name
func (r *Registry) List() []*domain.Command {
	out := make([]*domain.Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Deps are the collaborators the built-in commands need
type Deps struct {
	Signal  repo.SignalRepo
	Message repo.MessageRepo
	AI      *openai.Client // nil disables !ai
}

// NewDefaultRegistry builds the registry with the built-in command set
func NewDefaultRegistry(deps Deps) *Registry {
	r := NewRegistry()
	startedAt := time.Now()

	r.Register(&domain.Command{
		Name:        "help",
		Description: "List available commands",
		Execute: func(ctx context.Context, inv *domain.CommandInvocation) (string, error) {
			return helpText(r, inv.Caller), nil
		},
	})

	r.Register(&domain.Command{
		Name:        "ping",
		Description: "Check whether the bot is alive",
		Execute: func(ctx context.Context, inv *domain.CommandInvocation) (string, error) {
			return "pong", nil
		},
	})

	r.Register(&domain.Command{
		Name:        "uptime",
		Description: "Show how long the bot has been running",
		Execute: func(ctx context.Context, inv *domain.CommandInvocation) (string, error) {
			return fmt.Sprintf("Up for %s", time.Since(startedAt).Round(time.Second)), nil
		},
	})

	r.Register(&domain.Command{
		Name:          "groups",
		Description:   "List the groups the bot belongs to",
		ModeratorOnly: true,
		Execute: func(ctx context.Context, inv *domain.CommandInvocation) (string, error) {
			groups, err := deps.Signal.ListGroups(ctx)
			if err != nil {
				return "", fmt.Errorf("list groups: %w", err)
			}
			if len(groups) == 0 {
				return "Not a member of any group.", nil
			}
			var b strings.Builder
			for i, g := range groups {
				fmt.Fprintf(&b, "%d. %s (%d members)\n", i+1, g.Name, len(g.Members))
			}
			return strings.TrimRight(b.String(), "\n"), nil
		},
	})

	r.Register(&domain.Command{
		Name:        "addto",
		Description: "Add a member to a group: !addto <group#> <@mention>",
		AdminOnly:   true,
		Execute: func(ctx context.Context, inv *domain.CommandInvocation) (string, error) {
			groupID, member, err := resolveGroupMember(ctx, deps.Signal, inv.Args)
			if err != nil {
				return err.Error(), nil
			}
			if err := deps.Signal.UpdateGroup(ctx, groupID, []string{member}, nil); err != nil {
				return "", fmt.Errorf("add member: %w", err)
			}
			return fmt.Sprintf("Added %s.", member), nil
		},
	})

	r.Register(&domain.Command{
		Name:        "kick",
		Description: "Remove a member from a group: !kick <group#> <@mention>",
		AdminOnly:   true,
		Execute: func(ctx context.Context, inv *domain.CommandInvocation) (string, error) {
			groupID, member, err := resolveGroupMember(ctx, deps.Signal, inv.Args)
			if err != nil {
				return err.Error(), nil
			}
			if err := deps.Signal.UpdateGroup(ctx, groupID, nil, []string{member}); err != nil {
				return "", fmt.Errorf("remove member: %w", err)
			}
			return fmt.Sprintf("Removed %s.", member), nil
		},
	})

	if deps.AI != nil {
		r.Register(&domain.Command{
			Name:        "ai",
			Description: "Ask the AI assistant: !ai <question>",
			Execute: func(ctx context.Context, inv *domain.CommandInvocation) (string, error) {
				if len(inv.Args) == 0 {
					return "Usage: !ai <question>", nil
				}
				question := strings.Join(inv.Args, " ")
				answer, err := deps.AI.Chat(ctx, "You are a helpful chat assistant. Keep answers short.", question)
				if err != nil {
					return "", fmt.Errorf("ai: %w", err)
				}
				return answer, nil
			},
		})
	}

	if deps.Message != nil {
		r.Register(&domain.Command{
			Name:        "history",
			Description: "Show recent messages in this chat",
			Execute: func(ctx context.Context, inv *domain.CommandInvocation) (string, error) {
				msgs, err := deps.Message.Recent(ctx, inv.Caller.Conversation(), 10)
				if err != nil {
					return "", fmt.Errorf("recent messages: %w", err)
				}
				if len(msgs) == 0 {
					return "No recent messages.", nil
				}
				var b strings.Builder
				for _, m := range msgs {
					fmt.Fprintf(&b, "%s: %s\n", m.SenderName, m.Text)
				}
				return strings.TrimRight(b.String(), "\n"), nil
			},
		})
	}

	return r
}

// helpText lists the commands the caller may actually run
func helpText(r *Registry, caller domain.CallerContext) string {
	var b strings.Builder
	b.WriteString("Available commands:\n")
	for _, cmd := range r.List() {
		if !cmd.AllowedFor(caller) {
			continue
		}
		fmt.Fprintf(&b, "!%s - %s\n", cmd.Name, cmd.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

// resolveGroupMember resolves "<group#> <member>" arguments against the
// current group list
func resolveGroupMember(ctx context.Context, signalRepo repo.SignalRepo, args []string) (groupID, member string, err error) {
	if len(args) < 2 {
		return "", "", fmt.Errorf("usage: <group#> <member>")
	}

	groups, err := signalRepo.ListGroups(ctx)
	if err != nil {
		return "", "", fmt.Errorf("list groups: %w", err)
	}

	idx := 0
	if _, scanErr := fmt.Sscanf(args[0], "%d", &idx); scanErr != nil || idx < 1 || idx > len(groups) {
		return "", "", fmt.Errorf("unknown group %q, use !groups to list them", args[0])
	}

	member = strings.TrimPrefix(args[1], "@")
	return groups[idx-1].ID, member, nil
}
