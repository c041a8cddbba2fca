package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SignalMCPServer exposes the bot's messaging surface as MCP tools. Tool
// calls are relayed to the bot process over its local HTTP API.
type SignalMCPServer struct {
	server *mcp.Server
	api    *apiClient
}

// NewServer creates a Signal MCP server targeting the bot API at baseURL
func NewServer(baseURL string) *SignalMCPServer {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "signal-tools",
		Version: "v1.0.0",
	}, nil)

	s := &SignalMCPServer{
		server: server,
		api:    newAPIClient(baseURL),
	}
	s.registerTools()
	return s
}

func (s *SignalMCPServer) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "signal_send_message",
		Description: "Send a Signal message to a phone number or group. Provide either recipient or group_id.",
	}, s.handleSendMessage)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "signal_list_groups",
		Description: "List the Signal groups the bot account belongs to, with member counts.",
	}, s.handleListGroups)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "signal_get_recent_messages",
		Description: "Get recent messages from a conversation for context. Pass a group id, or dm:<sender id> for one user's direct messages.",
	}, s.handleRecentMessages)
}

// SendMessageInput is the input for signal_send_message
type SendMessageInput struct {
	Recipient string `json:"recipient,omitempty" jsonschema:"description=Recipient phone number for a direct message"`
	GroupID   string `json:"group_id,omitempty" jsonschema:"description=Target group identifier"`
	Message   string `json:"message" jsonschema:"description=The message text to send"`
}

// SendMessageOutput is the output for signal_send_message
type SendMessageOutput struct {
	Success     bool   `json:"success"`
	Unconfirmed bool   `json:"unconfirmed,omitempty"`
	Error       string `json:"error,omitempty"`
}

func (s *SignalMCPServer) handleSendMessage(ctx context.Context, req *mcp.CallToolRequest, input SendMessageInput) (*mcp.CallToolResult, SendMessageOutput, error) {
	var out SendMessageOutput
	err := s.api.post(ctx, "/api/send", map[string]string{
		"recipient": input.Recipient,
		"group_id":  input.GroupID,
		"message":   input.Message,
	}, &out)
	if err != nil {
		return nil, SendMessageOutput{Error: err.Error()}, nil
	}
	return nil, out, nil
}

// ListGroupsInput is empty - no input needed
type ListGroupsInput struct{}

// GroupEntry is one group in the list_groups output
type GroupEntry struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Members int    `json:"members"`
}

// ListGroupsOutput contains the group list
type ListGroupsOutput struct {
	Groups []GroupEntry `json:"groups"`
	Error  string       `json:"error,omitempty"`
}

func (s *SignalMCPServer) handleListGroups(ctx context.Context, req *mcp.CallToolRequest, input ListGroupsInput) (*mcp.CallToolResult, ListGroupsOutput, error) {
	var groups []GroupEntry
	if err := s.api.get(ctx, "/api/groups", &groups); err != nil {
		return nil, ListGroupsOutput{Error: err.Error()}, nil
	}
	return nil, ListGroupsOutput{Groups: groups}, nil
}

// RecentMessagesInput selects the conversation and window
type RecentMessagesInput struct {
	GroupID string `json:"group_id,omitempty" jsonschema:"description=Group identifier, or dm:<sender id> for one user's direct messages"`
	Limit   int    `json:"limit,omitempty" jsonschema:"description=Maximum number of messages (default 20)"`
}

// MessageEntry is one message in the recent_messages output
type MessageEntry struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// RecentMessagesOutput contains recent messages, oldest first
type RecentMessagesOutput struct {
	Messages []MessageEntry `json:"messages"`
	Error    string         `json:"error,omitempty"`
}

func (s *SignalMCPServer) handleRecentMessages(ctx context.Context, req *mcp.CallToolRequest, input RecentMessagesInput) (*mcp.CallToolResult, RecentMessagesOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	path := fmt.Sprintf("/api/messages?group=%s&limit=%d", input.GroupID, limit)

	var msgs []MessageEntry
	if err := s.api.get(ctx, path, &msgs); err != nil {
		return nil, RecentMessagesOutput{Error: err.Error()}, nil
	}
	return nil, RecentMessagesOutput{Messages: msgs}, nil
}

// Run starts the MCP server with stdio transport
func (s *SignalMCPServer) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// apiClient is a thin client for the bot's local HTTP API
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *apiClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *apiClient) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *apiClient) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("bot api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("bot api: status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("bot api: decode response: %w", err)
	}
	return nil
}
