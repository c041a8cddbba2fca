package signal

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"
)

func TestReadLoop_FramesOnNewlines(t *testing.T) {
	tr := NewTransport("unused.sock", testAccount, 1)
	tr.closing = true // EOF must not trigger a reconnect here

	frames := make(chan *Frame, 10)
	tr.OnFrame(func(f *Frame) { frames <- f })

	server, client := net.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		tr.readLoop(client)
	}()

	// Two frames, a blank line, and a garbled line between them
	server.Write([]byte(`{"jsonrpc":"2.0","id":"r1","result":{}}` + "\n"))
	server.Write([]byte("\n"))
	server.Write([]byte(`{"jsonrpc":"2.0",` + "\n"))
	server.Write([]byte(`{"jsonrpc":"2.0","method":"receive","params":{}}` + "\n"))
	server.Close()
	<-done

	close(frames)
	var got []*Frame
	for f := range frames {
		got = append(got, f)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 parsed frames, got %d", len(got))
	}
	if got[0].ID != "r1" {
		t.Errorf("Expected first frame id r1, got %q", got[0].ID)
	}
	if got[1].Method != "receive" {
		t.Errorf("Expected second frame method receive, got %q", got[1].Method)
	}
}

func TestReadLoop_SplitWritesReassembled(t *testing.T) {
	tr := NewTransport("unused.sock", testAccount, 1)
	tr.closing = true

	frames := make(chan *Frame, 1)
	tr.OnFrame(func(f *Frame) { frames <- f })

	server, client := net.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		tr.readLoop(client)
	}()

	// One frame delivered across three writes
	server.Write([]byte(`{"jsonrpc":"2.0","id":`))
	server.Write([]byte(`"split-1",`))
	server.Write([]byte(`"result":{}}` + "\n"))
	server.Close()
	<-done

	select {
	case f := <-frames:
		if f.ID != "split-1" {
			t.Errorf("Expected id split-1, got %q", f.ID)
		}
	default:
		t.Fatal("Split frame was never reassembled")
	}
}

func TestConnect_SubscribesOnConnect(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "daemon.sock")
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	lines := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		scanner := bufio.NewScanner(conn)
		if scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	tr := NewTransport(sockPath, testAccount, 1)
	if err := tr.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer tr.Close()

	if got := tr.State(); got != StateConnected {
		t.Errorf("Expected connected state, got %s", got)
	}

	select {
	case line := <-lines:
		var note struct {
			JSONRPC string            `json:"jsonrpc"`
			Method  string            `json:"method"`
			Params  map[string]string `json:"params"`
		}
		if err := json.Unmarshal([]byte(line), &note); err != nil {
			t.Fatalf("Subscribe line is not valid JSON: %v", err)
		}
		if note.Method != "subscribe" {
			t.Errorf("Expected subscribe notification, got %q", note.Method)
		}
		if note.Params["account"] != testAccount {
			t.Errorf("Expected account %s, got %q", testAccount, note.Params["account"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("No subscribe notification arrived on connect")
	}
}

func TestWriteRequest_NotConnected(t *testing.T) {
	tr := NewTransport("nowhere.sock", testAccount, 1)

	err := tr.WriteRequest(&Request{Method: "send", ID: "x"})
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Expected ErrNotConnected, got %v", err)
	}
}

func TestReconnect_GivesUpAtCap(t *testing.T) {
	tr := NewTransport("nowhere.sock", testAccount, 3)

	fatal := make(chan error, 1)
	tr.OnFatal(func(err error) { fatal <- err })

	tr.mu.Lock()
	tr.attempts = 3
	tr.mu.Unlock()

	tr.Reconnect()

	select {
	case err := <-fatal:
		if !errors.Is(err, ErrTooManyAttempts) {
			t.Errorf("Expected ErrTooManyAttempts, got %v", err)
		}
	default:
		t.Fatal("Exhausted reconnect did not report a fatal condition")
	}
}

func TestReconnect_NoopWhenClosing(t *testing.T) {
	tr := NewTransport("nowhere.sock", testAccount, 3)
	tr.OnFatal(func(error) { t.Error("Fatal callback fired during shutdown") })

	tr.mu.Lock()
	tr.closing = true
	tr.attempts = 3
	tr.mu.Unlock()

	tr.Reconnect()

	if got := tr.Attempts(); got != 3 {
		t.Errorf("Closing transport must not count attempts, got %d", got)
	}
}

func TestConnState_String(t *testing.T) {
	cases := map[ConnState]string{
		StateDisconnected: "disconnected",
		StateConnecting:   "connecting",
		StateConnected:    "connected",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State %d: expected %q, got %q", state, want, got)
		}
	}
}
