package signal

import "encoding/json"

// Request is an outbound JSON-RPC request frame
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      string      `json:"id"`
}

// Notification is an outbound JSON-RPC notification frame (no id, no reply expected)
type Notification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// Frame is one parsed inbound line from the daemon socket. Exactly one of
// the response fields (ID + Result/Error) or the notification fields
// (Method + Params) is populated; a bare Error with no ID is an
// asynchronous daemon warning.
type Frame struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// UnmarshalJSON accepts string, numeric, and null ids. The daemon echoes
// our string ids back, but frames it originates on its own can carry a
// numeric id, and those must still parse so an unmatched error frame gets
// logged instead of dropped as garbage.
func (f *Frame) UnmarshalJSON(data []byte) error {
	type frameAlias Frame
	aux := struct {
		ID json.RawMessage `json:"id,omitempty"`
		*frameAlias
	}{frameAlias: (*frameAlias)(f)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	id, err := normalizeID(aux.ID)
	if err != nil {
		return err
	}
	f.ID = id
	return nil
}

func normalizeID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// RPCError is the error object of a response frame
type RPCError struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// ReceiveParams is the params payload of a "receive" notification
type ReceiveParams struct {
	Envelope *Envelope `json:"envelope,omitempty"`
	Account  string    `json:"account,omitempty"`
}

// Envelope wraps one received event from the daemon
type Envelope struct {
	Source       string           `json:"source,omitempty"`
	SourceUUID   string           `json:"sourceUuid,omitempty"`
	SourceNumber string           `json:"sourceNumber,omitempty"`
	SourceName   string           `json:"sourceName,omitempty"`
	Timestamp    int64            `json:"timestamp,omitempty"`
	DataMessage  *DataMessage     `json:"dataMessage,omitempty"`
	Reaction     *ReactionMessage `json:"reactionMessage,omitempty"`
}

// DataMessage is a chat message inside an envelope
type DataMessage struct {
	Message     string       `json:"message,omitempty"`
	Timestamp   int64        `json:"timestamp,omitempty"`
	GroupInfo   *GroupInfo   `json:"groupInfo,omitempty"`
	Quote       *Quote       `json:"quote,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Mentions    []Mention    `json:"mentions,omitempty"`
}

// ReactionMessage is an emoji reaction inside an envelope
type ReactionMessage struct {
	Emoji           string `json:"emoji"`
	Remove          bool   `json:"remove,omitempty"`
	TargetAuthor    string `json:"targetAuthor,omitempty"`
	TargetTimestamp int64  `json:"targetTimestamp,omitempty"`
}

// GroupInfo identifies the group a data message arrived on
type GroupInfo struct {
	GroupID   string `json:"groupId"`
	GroupName string `json:"groupName,omitempty"`
	Type      string `json:"type,omitempty"`
}

// Quote references the message being replied to
type Quote struct {
	ID     int64  `json:"id,omitempty"`
	Author string `json:"author,omitempty"`
	Text   string `json:"text,omitempty"`
}

// Attachment describes a received file
type Attachment struct {
	ContentType string `json:"contentType,omitempty"`
	Filename    string `json:"filename,omitempty"`
	ID          string `json:"id,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

// Mention is an @-mention placeholder inside message text
type Mention struct {
	Name   string `json:"name,omitempty"`
	Number string `json:"number,omitempty"`
	UUID   string `json:"uuid,omitempty"`
	Start  int    `json:"start,omitempty"`
	Length int    `json:"length,omitempty"`
}

// SendResult is the result payload of a send call
type SendResult struct {
	Timestamp int64 `json:"timestamp,omitempty"`
}

// Group is one entry of a listGroups result
type Group struct {
	ID      string   `json:"id"`
	Name    string   `json:"name,omitempty"`
	Members []string `json:"members,omitempty"`
}
