package domain

import "context"

// CallerContext is the resolved identity attached to a command invocation
type CallerContext struct {
	SenderID    string
	SenderName  string
	GroupID     string
	IsAdmin     bool
	IsModerator bool
}

// CommandInvocation is a validated, sanitized request to execute one
// command. It is only constructed after validation and rate limiting pass.
type CommandInvocation struct {
	Name   string
	Args   []string
	Caller CallerContext
}

// Command is one registered command handler
type Command struct {
	Name          string
	Description   string
	AdminOnly     bool
	ModeratorOnly bool
	Execute       func(ctx context.Context, inv *CommandInvocation) (string, error)
}

// Conversation returns the history key of the chat the invocation
// arrived on
func (c CallerContext) Conversation() string {
	return ConversationKey(c.GroupID, c.SenderID)
}

// AllowedFor checks the caller's role against the command's requirement
func (c *Command) AllowedFor(caller CallerContext) bool {
	if c.AdminOnly {
		return caller.IsAdmin
	}
	if c.ModeratorOnly {
		return caller.IsModerator || caller.IsAdmin
	}
	return true
}

// Registry maps command names to handlers. Registration happens once at
// startup; the dispatcher only needs lookup.
type Registry interface {
	Lookup(name string) (*Command, bool)
	List() []*Command
}
