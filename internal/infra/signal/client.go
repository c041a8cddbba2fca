package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ClientConfig configures the daemon client
type ClientConfig struct {
	BinPath              string
	Account              string
	DataDir              string
	SocketPath           string
	MaxReconnectAttempts int
	CallTimeout          time.Duration
}

// Client is the high-level daemon client: it supervises the subprocess,
// keeps the socket connected, and exposes the RPC surface the bot uses.
type Client struct {
	cfg        ClientConfig
	supervisor *Supervisor
	transport  *Transport
	correlator *Correlator
	router     *Router
}

// NewClient creates a daemon client
func NewClient(cfg ClientConfig) *Client {
	sup := NewSupervisor(SupervisorConfig{
		BinPath:     cfg.BinPath,
		Account:     cfg.Account,
		DataDir:     cfg.DataDir,
		SocketPath:  cfg.SocketPath,
		MaxRestarts: cfg.MaxReconnectAttempts,
	})
	tr := NewTransport(cfg.SocketPath, cfg.Account, cfg.MaxReconnectAttempts)
	corr := NewCorrelator(tr, cfg.CallTimeout)
	rt := NewRouter(corr, cfg.Account)

	c := &Client{
		cfg:        cfg,
		supervisor: sup,
		transport:  tr,
		correlator: corr,
		router:     rt,
	}
	tr.OnFrame(rt.Route)
	return c
}

// OnMessage sets the consumer for inbound data messages
func (c *Client) OnMessage(fn func(*Envelope)) { c.router.OnMessage(fn) }

// OnReaction sets the consumer for inbound reactions
func (c *Client) OnReaction(fn func(*Envelope)) { c.router.OnReaction(fn) }

// OnFatal sets the callback for an abandoned connection
func (c *Client) OnFatal(fn func(error)) { c.transport.OnFatal(fn) }

// Start launches the daemon, waits for its socket, and connects
func (c *Client) Start() error {
	if err := c.supervisor.Start(); err != nil {
		return err
	}
	if err := c.supervisor.WaitForSocket(); err != nil {
		c.supervisor.Stop()
		return err
	}
	c.supervisor.OnExit(func(code int, restarting bool) {
		if restarting {
			fmt.Printf("[Client] Daemon exited (%d), supervisor restarting\n", code)
		}
	})
	if err := c.transport.Connect(); err != nil {
		c.supervisor.Stop()
		return err
	}
	return nil
}

// Stop disconnects and shuts the daemon down
func (c *Client) Stop() {
	c.transport.Close()
	c.supervisor.Stop()
}

// Send sends a direct message. Per daemon behavior, a timeout resolves as
// unconfirmed success rather than an error.
func (c *Client) Send(ctx context.Context, recipient, text string) (*SendResult, error) {
	params := map[string]interface{}{
		"account":   c.cfg.Account,
		"recipient": []string{recipient},
		"message":   text,
	}
	return c.send(ctx, params)
}

// SendGroup sends a message to a group
func (c *Client) SendGroup(ctx context.Context, groupID, text string) (*SendResult, error) {
	params := map[string]interface{}{
		"account": c.cfg.Account,
		"groupId": groupID,
		"message": text,
	}
	return c.send(ctx, params)
}

func (c *Client) send(ctx context.Context, params map[string]interface{}) (*SendResult, error) {
	res, err := c.correlator.Call(ctx, "send", params, BestEffort)
	if err != nil {
		return nil, err
	}
	out := &SendResult{}
	if res.Unconfirmed {
		return out, nil
	}
	if len(res.Raw) > 0 {
		_ = json.Unmarshal(res.Raw, out)
	}
	return out, nil
}

// UpdateGroup adds or removes group members. Membership changes are
// another operation the daemon completes without always acknowledging,
// so this is a best-effort call too.
func (c *Client) UpdateGroup(ctx context.Context, groupID string, addMembers, removeMembers []string) error {
	params := map[string]interface{}{
		"account": c.cfg.Account,
		"groupId": groupID,
	}
	if len(addMembers) > 0 {
		params["addMembers"] = addMembers
	}
	if len(removeMembers) > 0 {
		params["removeMembers"] = removeMembers
	}
	_, err := c.correlator.Call(ctx, "updateGroup", params, BestEffort)
	return err
}

// ListGroups lists the groups the account belongs to. This is a plain
// query; a timeout is an error.
func (c *Client) ListGroups(ctx context.Context) ([]Group, error) {
	res, err := c.correlator.Call(ctx, "listGroups", map[string]interface{}{
		"account": c.cfg.Account,
	}, Idempotent)
	if err != nil {
		return nil, err
	}

	var groups []Group
	if err := json.Unmarshal(res.Raw, &groups); err != nil {
		return nil, fmt.Errorf("parse listGroups result: %w", err)
	}
	return groups, nil
}
