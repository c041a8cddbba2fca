package repo

import "context"

// SignalRepo is the daemon interaction interface
type SignalRepo interface {
	// Send sends a direct message. The returned confirmed flag is false
	// when the daemon never acknowledged but likely delivered anyway.
	Send(ctx context.Context, recipient, text string) (confirmed bool, err error)

	// SendGroup sends a message to a group
	SendGroup(ctx context.Context, groupID, text string) (confirmed bool, err error)

	// UpdateGroup adds or removes group members
	UpdateGroup(ctx context.Context, groupID string, add, remove []string) error

	// ListGroups lists the groups the bot account belongs to
	ListGroups(ctx context.Context) ([]GroupInfo, error)
}

// GroupInfo describes one group membership
type GroupInfo struct {
	ID      string
	Name    string
	Members []string
}
