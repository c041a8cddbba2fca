package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anthropics/signal-command-bot/internal/biz/domain"
	"github.com/anthropics/signal-command-bot/internal/biz/repo"
)

type stubSignal struct {
	confirmed  bool
	sends      []string
	groupSends []string
	groups     []repo.GroupInfo
}

func (s *stubSignal) Send(_ context.Context, recipient, text string) (bool, error) {
	s.sends = append(s.sends, recipient+":"+text)
	return s.confirmed, nil
}

func (s *stubSignal) SendGroup(_ context.Context, groupID, text string) (bool, error) {
	s.groupSends = append(s.groupSends, groupID+":"+text)
	return s.confirmed, nil
}

func (s *stubSignal) UpdateGroup(context.Context, string, []string, []string) error { return nil }

func (s *stubSignal) ListGroups(context.Context) ([]repo.GroupInfo, error) {
	return s.groups, nil
}

type stubMessages struct {
	msgs []*domain.InboundMessage
}

func (s *stubMessages) Save(context.Context, *domain.InboundMessage) error { return nil }

func (s *stubMessages) Recent(_ context.Context, groupID string, limit int) ([]*domain.InboundMessage, error) {
	if limit < len(s.msgs) {
		return s.msgs[:limit], nil
	}
	return s.msgs, nil
}

func (s *stubMessages) PurgeOlderThan(context.Context, time.Time) (int64, error) { return 0, nil }
func (s *stubMessages) Close() error                                             { return nil }

func newTestServer(signal *stubSignal, messages *stubMessages) *Server {
	return NewServer(signal, messages, 0)
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(&stubSignal{}, &stubMessages{})

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestHandleSend_Direct(t *testing.T) {
	signal := &stubSignal{confirmed: true}
	s := newTestServer(signal, &stubMessages{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/send",
		strings.NewReader(`{"recipient":"+15551234567","message":"hi"}`))
	s.handleSend(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	var resp SendResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.Success || resp.Unconfirmed {
		t.Errorf("resp = %+v", resp)
	}
	if len(signal.sends) != 1 || signal.sends[0] != "+15551234567:hi" {
		t.Errorf("sends = %v", signal.sends)
	}
}

func TestHandleSend_GroupUnconfirmed(t *testing.T) {
	signal := &stubSignal{confirmed: false}
	s := newTestServer(signal, &stubMessages{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/send",
		strings.NewReader(`{"group_id":"g1","message":"hi all"}`))
	s.handleSend(rec, req)

	var resp SendResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.Success || !resp.Unconfirmed {
		t.Errorf("resp = %+v", resp)
	}
	if len(signal.groupSends) != 1 {
		t.Errorf("groupSends = %v", signal.groupSends)
	}
}

func TestHandleSend_Validation(t *testing.T) {
	s := newTestServer(&stubSignal{}, &stubMessages{})

	cases := []struct {
		name string
		body string
	}{
		{"missing message", `{"recipient":"+15551234567"}`},
		{"missing target", `{"message":"hi"}`},
		{"garbage", `{{{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/send", strings.NewReader(tc.body))
			s.handleSend(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d", rec.Code)
			}
		})
	}

	rec := httptest.NewRecorder()
	s.handleSend(rec, httptest.NewRequest(http.MethodGet, "/api/send", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d", rec.Code)
	}
}

func TestHandleGroups(t *testing.T) {
	signal := &stubSignal{groups: []repo.GroupInfo{
		{ID: "g1", Name: "Family", Members: []string{"a", "b"}},
	}}
	s := newTestServer(signal, &stubMessages{})

	rec := httptest.NewRecorder()
	s.handleGroups(rec, httptest.NewRequest(http.MethodGet, "/api/groups", nil))

	var groups []GroupEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &groups); err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 || groups[0].Name != "Family" || groups[0].Members != 2 {
		t.Errorf("groups = %v", groups)
	}
}

func TestHandleMessages(t *testing.T) {
	messages := &stubMessages{msgs: []*domain.InboundMessage{
		{SenderName: "Alice", Text: "one", Timestamp: time.Unix(100, 0)},
		{SenderName: "Bob", Text: "two", Timestamp: time.Unix(200, 0)},
	}}
	s := newTestServer(&stubSignal{}, messages)

	rec := httptest.NewRecorder()
	s.handleMessages(rec, httptest.NewRequest(http.MethodGet, "/api/messages?group=g1&limit=1", nil))

	var out []MessageEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Sender != "Alice" || out[0].Timestamp != 100 {
		t.Errorf("messages = %v", out)
	}
}
