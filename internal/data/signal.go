package data

import (
	"context"

	"github.com/anthropics/signal-command-bot/internal/biz/repo"
	"github.com/anthropics/signal-command-bot/internal/infra/signal"
)

// signalRepo adapts the daemon client to the SignalRepo interface
type signalRepo struct {
	client *signal.Client
}

// NewSignalRepo creates a Signal repository over the daemon client
func NewSignalRepo(client *signal.Client) repo.SignalRepo {
	return &signalRepo{client: client}
}

// Send sends a direct message
func (r *signalRepo) Send(ctx context.Context, recipient, text string) (bool, error) {
	res, err := r.client.Send(ctx, recipient, text)
	if err != nil {
		return false, err
	}
	return res.Timestamp != 0, nil
}

// SendGroup sends a message to a group
func (r *signalRepo) SendGroup(ctx context.Context, groupID, text string) (bool, error) {
	res, err := r.client.SendGroup(ctx, groupID, text)
	if err != nil {
		return false, err
	}
	return res.Timestamp != 0, nil
}

// UpdateGroup adds or removes group members
func (r *signalRepo) UpdateGroup(ctx context.Context, groupID string, add, remove []string) error {
	return r.client.UpdateGroup(ctx, groupID, add, remove)
}

// ListGroups lists the groups the bot account belongs to
func (r *signalRepo) ListGroups(ctx context.Context) ([]repo.GroupInfo, error) {
	groups, err := r.client.ListGroups(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]repo.GroupInfo, 0, len(groups))
	for _, g := range groups {
		out = append(out, repo.GroupInfo{
			ID:      g.ID,
			Name:    g.Name,
			Members: g.Members,
		})
	}
	return out, nil
}
