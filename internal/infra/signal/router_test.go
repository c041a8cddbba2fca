package signal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"path/filepath"
	"testing"
	"time"
)

const testAccount = "+15550001111"

func newTestRouter(t *testing.T) (*Router, *Correlator, *fakeWriter) {
	t.Helper()
	w := &fakeWriter{}
	c := NewCorrelator(w, time.Second)
	return NewRouter(c, testAccount), c, w
}

func receiveFrame(t *testing.T, env *Envelope) *Frame {
	t.Helper()
	params, err := json.Marshal(&ReceiveParams{Envelope: env, Account: testAccount})
	if err != nil {
		t.Fatal(err)
	}
	return &Frame{Method: "receive", Params: params}
}

// awaitNone asserts that no envelope arrives on ch
func awaitNone(t *testing.T, ch <-chan *Envelope, what string) {
	t.Helper()
	select {
	case env := <-ch:
		t.Errorf("%s: unexpected envelope %+v", what, env)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRoute_ResponseResolvesPendingCall(t *testing.T) {
	r, c, w := newTestRouter(t)

	done := make(chan *Result, 1)
	go func() {
		res, err := c.Call(context.Background(), "listGroups", nil, Idempotent)
		if err != nil {
			t.Errorf("call: %v", err)
		}
		done <- res
	}()
	waitPending(t, c, 1)

	r.Route(&Frame{ID: w.ids()[0], Result: json.RawMessage(`[{"id":"g1"}]`)})

	select {
	case res := <-done:
		if string(res.Raw) != `[{"id":"g1"}]` {
			t.Errorf("Unexpected result %s", res.Raw)
		}
	case <-time.After(time.Second):
		t.Fatal("Response was not routed to the pending call")
	}
}

func TestRoute_DataMessageReachesConsumer(t *testing.T) {
	r, _, _ := newTestRouter(t)

	got := make(chan *Envelope, 1)
	r.OnMessage(func(env *Envelope) { got <- env })

	env := &Envelope{
		SourceUUID:  "abc-123",
		SourceName:  "Alice",
		DataMessage: &DataMessage{Message: "!ping", Timestamp: 1700000000000},
	}
	r.Route(receiveFrame(t, env))

	select {
	case delivered := <-got:
		if delivered.DataMessage.Message != "!ping" {
			t.Errorf("Expected !ping, got %q", delivered.DataMessage.Message)
		}
	case <-time.After(time.Second):
		t.Fatal("Message consumer was not invoked")
	}
}

func TestRoute_SelfMessageDropped(t *testing.T) {
	r, _, _ := newTestRouter(t)

	got := make(chan *Envelope, 2)
	r.OnMessage(func(env *Envelope) { got <- env })

	for _, env := range []*Envelope{
		{Source: testAccount, DataMessage: &DataMessage{Message: "!ping"}},
		{SourceNumber: testAccount, DataMessage: &DataMessage{Message: "!ping"}},
	} {
		r.Route(receiveFrame(t, env))
	}

	awaitNone(t, got, "own message")
}

func TestRoute_ReactionReachesReactionConsumer(t *testing.T) {
	r, _, _ := newTestRouter(t)

	messages := make(chan *Envelope, 1)
	reactions := make(chan *Envelope, 1)
	r.OnMessage(func(env *Envelope) { messages <- env })
	r.OnReaction(func(env *Envelope) { reactions <- env })

	env := &Envelope{
		SourceUUID: "abc-123",
		Reaction:   &ReactionMessage{Emoji: "👍", TargetAuthor: "+15551234567", TargetTimestamp: 42},
	}
	r.Route(receiveFrame(t, env))

	select {
	case delivered := <-reactions:
		if delivered.Reaction.Emoji != "👍" {
			t.Errorf("Reaction emoji = %q", delivered.Reaction.Emoji)
		}
	case <-time.After(time.Second):
		t.Fatal("Reaction consumer was not invoked")
	}
	awaitNone(t, messages, "reaction routed as message")
}

func TestRoute_UnmatchedErrorFrameIsLoggedOnly(t *testing.T) {
	r, _, _ := newTestRouter(t)

	got := make(chan *Envelope, 1)
	r.OnMessage(func(env *Envelope) { got <- env })

	// Must not panic or reach any consumer
	r.Route(&Frame{Error: &RPCError{Code: -32601, Message: "method not found"}})
	r.Route(&Frame{ID: "stale-id", Error: &RPCError{Message: "too late"}})

	awaitNone(t, got, "error frame")
}

func TestRoute_EmptyAndUnknownFramesIgnored(t *testing.T) {
	r, _, _ := newTestRouter(t)

	messages := make(chan *Envelope, 1)
	reactions := make(chan *Envelope, 1)
	r.OnMessage(func(env *Envelope) { messages <- env })
	r.OnReaction(func(env *Envelope) { reactions <- env })

	r.Route(&Frame{})
	r.Route(&Frame{Method: "somethingElse", Params: json.RawMessage(`{}`)})
	r.Route(receiveFrame(t, nil))
	r.Route(receiveFrame(t, &Envelope{SourceUUID: "abc"})) // no payload at all

	awaitNone(t, messages, "unknown frame")
	awaitNone(t, reactions, "unknown frame")
}

func TestRoute_BadReceiveParamsSkipped(t *testing.T) {
	r, _, _ := newTestRouter(t)

	got := make(chan *Envelope, 1)
	r.OnMessage(func(env *Envelope) { got <- env })

	r.Route(&Frame{Method: "receive", Params: json.RawMessage(`{not json`)})

	awaitNone(t, got, "garbled params")
}

func TestRoute_MissingConsumersDoNotPanic(t *testing.T) {
	r, _, _ := newTestRouter(t)

	r.Route(receiveFrame(t, &Envelope{SourceUUID: "x", DataMessage: &DataMessage{Message: "hi"}}))
	r.Route(receiveFrame(t, &Envelope{SourceUUID: "x", Reaction: &ReactionMessage{Emoji: "❤"}}))
}

// fakeDaemonSocket serves a minimal daemon on a unix socket: it answers
// every request immediately with an empty result and, once the subscribe
// notification arrives, pushes one receive frame carrying env.
func fakeDaemonSocket(t *testing.T, env *Envelope) string {
	t.Helper()
	sockPath := filepath.Join(t.TempDir(), "daemon.sock")
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			var req struct {
				ID     string `json:"id"`
				Method string `json:"method"`
			}
			if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
				continue
			}
			if req.ID != "" {
				fmt.Fprintf(conn, `{"jsonrpc":"2.0","id":%q,"result":[]}`+"\n", req.ID)
				continue
			}
			if req.Method == "subscribe" && env != nil {
				params, _ := json.Marshal(&ReceiveParams{Envelope: env})
				fmt.Fprintf(conn, `{"jsonrpc":"2.0","method":"receive","params":%s}`+"\n", params)
			}
		}
	}()
	return sockPath
}

// A message consumer must be able to issue correlated calls of its own:
// the read loop that delivers their responses cannot be the goroutine
// the consumer runs on.
func TestRoute_ConsumerCanCallWhileReceiving(t *testing.T) {
	env := &Envelope{
		SourceUUID:  "abc-123",
		DataMessage: &DataMessage{Message: "!groups"},
	}
	sockPath := fakeDaemonSocket(t, env)

	tr := NewTransport(sockPath, testAccount, 1)
	corr := NewCorrelator(tr, 2*time.Second)
	r := NewRouter(corr, testAccount)
	tr.OnFrame(r.Route)

	calls := make(chan error, 1)
	r.OnMessage(func(*Envelope) {
		_, err := corr.Call(context.Background(), "listGroups", nil, Idempotent)
		calls <- err
	})

	if err := tr.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer tr.Close()

	select {
	case err := <-calls:
		if err != nil {
			t.Fatalf("Call from inside the consumer failed: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Consumer call never completed")
	}
}
