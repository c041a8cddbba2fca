package signal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

const reconnectBackoffUnit = 2 * time.Second

var (
	// ErrNotConnected is returned for writes attempted while the socket is down
	ErrNotConnected = errors.New("transport: not connected")
	// ErrTooManyAttempts is returned once the reconnect cap has been reached
	ErrTooManyAttempts = errors.New("transport: reconnect attempts exhausted")
)

// ConnState is the transport's connection condition
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Transport owns the single duplex connection to the daemon socket. Inbound
// bytes are framed on newline boundaries and each non-empty line is handed
// to the frame callback as one JSON document. A garbled line is dropped
// without closing the connection.
type Transport struct {
	socketPath  string
	account     string
	maxAttempts int

	mu       sync.Mutex
	conn     net.Conn
	state    ConnState
	attempts int
	closing  bool

	writeMu sync.Mutex

	onFrame func(*Frame)
	onFatal func(error)
}

// NewTransport creates a transport for the daemon socket
func NewTransport(socketPath, account string, maxAttempts int) *Transport {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Transport{
		socketPath:  socketPath,
		account:     account,
		maxAttempts: maxAttempts,
	}
}

// OnFrame sets the callback invoked for every parsed inbound frame
func (t *Transport) OnFrame(fn func(*Frame)) {
	t.onFrame = fn
}

// OnFatal sets the callback invoked when reconnection is abandoned
func (t *Transport) OnFatal(fn func(error)) {
	t.onFatal = fn
}

// Connect dials the socket and subscribes for events. On success the
// reconnect attempt counter resets to zero.
func (t *Transport) Connect() error {
	t.mu.Lock()
	if t.state == StateConnected {
		t.mu.Unlock()
		return nil
	}
	t.state = StateConnecting
	t.mu.Unlock()

	conn, err := net.DialTimeout("unix", t.socketPath, 5*time.Second)
	if err != nil {
		t.mu.Lock()
		t.state = StateDisconnected
		t.mu.Unlock()
		return fmt.Errorf("dial %s: %w", t.socketPath, err)
	}

	t.mu.Lock()
	t.conn = conn
	t.state = StateConnected
	t.attempts = 0
	t.mu.Unlock()

	go t.readLoop(conn)

	// Tell the daemon to start forwarding events for our account
	if err := t.WriteNotification("subscribe", map[string]string{"account": t.account}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	fmt.Printf("[Transport] Connected to %s\n", t.socketPath)
	return nil
}

// Close shuts the connection down without triggering a reconnect
func (t *Transport) Close() {
	t.mu.Lock()
	t.closing = true
	conn := t.conn
	t.conn = nil
	t.state = StateDisconnected
	t.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// State returns the current connection state
func (t *Transport) State() ConnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Attempts returns the current reconnect attempt count
func (t *Transport) Attempts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attempts
}

// WriteRequest writes one request frame
func (t *Transport) WriteRequest(req *Request) error {
	req.JSONRPC = "2.0"
	return t.writeJSON(req)
}

// WriteNotification writes one notification frame (no id)
func (t *Transport) WriteNotification(method string, params interface{}) error {
	return t.writeJSON(&Notification{JSONRPC: "2.0", Method: method, Params: params})
}

// writeJSON marshals v and writes it as a single newline-terminated line.
// Writes are serialized; the transport never interleaves or reorders them.
func (t *Transport) writeJSON(v interface{}) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_, err = conn.Write(append(data, '\n'))
	return err
}

// readLoop frames inbound bytes on newline boundaries until the connection
// drops, then hands control to the reconnect logic.
func (t *Transport) readLoop(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // large receive frames

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var frame Frame
		if err := json.Unmarshal(line, &frame); err != nil {
			// Partial or garbled line; drop it and keep reading
			fmt.Printf("[Transport] Discarding unparseable frame: %v\n", err)
			continue
		}

		if t.onFrame != nil {
			t.onFrame(&frame)
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Printf("[Transport] Read error: %v\n", err)
	}

	t.mu.Lock()
	closing := t.closing
	if t.conn == conn {
		t.conn = nil
		t.state = StateDisconnected
	}
	t.mu.Unlock()

	if !closing {
		t.Reconnect()
	}
}

// Reconnect schedules a new connection attempt with linear backoff. Once
// the attempt cap is reached it gives up and reports a fatal condition.
func (t *Transport) Reconnect() {
	t.mu.Lock()
	if t.closing || t.state == StateConnected {
		t.mu.Unlock()
		return
	}
	if t.attempts >= t.maxAttempts {
		t.mu.Unlock()
		fmt.Printf("[Transport] Giving up after %d reconnect attempts\n", t.maxAttempts)
		if t.onFatal != nil {
			t.onFatal(ErrTooManyAttempts)
		}
		return
	}
	t.attempts++
	attempt := t.attempts
	t.mu.Unlock()

	delay := time.Duration(attempt) * reconnectBackoffUnit
	fmt.Printf("[Transport] Reconnect attempt %d/%d in %s\n", attempt, t.maxAttempts, delay)
	time.Sleep(delay)

	if err := t.Connect(); err != nil {
		fmt.Printf("[Transport] Reconnect failed: %v\n", err)
		t.Reconnect()
	}
}
