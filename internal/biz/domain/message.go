package domain

import "time"

// InboundMessage represents one normalized chat event from the daemon
type InboundMessage struct {
	SenderID     string // stable account identifier, preferred over number
	SenderNumber string // phone number, fallback identity
	SenderName   string
	Text         string
	Timestamp    time.Time
	GroupID      string // empty for direct messages
	GroupName    string
	QuotedText   string
	Attachments  []string
	Mentions     []string
}

// IsGroup reports whether the message arrived on a group chat
func (m *InboundMessage) IsGroup() bool {
	return m.GroupID != ""
}

// IsFrom checks whether the message was sent by the given account
func (m *InboundMessage) IsFrom(account string) bool {
	return m.SenderID == account
}

// IsCommand reports whether the text carries a command prefix
func (m *InboundMessage) IsCommand() bool {
	return len(m.Text) > 1 && m.Text[0] == '!'
}

// Conversation returns the history key for the chat this message belongs
// to. Direct messages are keyed per sender; sharing one key across all
// direct messages would mix different users' private history.
func (m *InboundMessage) Conversation() string {
	return ConversationKey(m.GroupID, m.SenderID)
}

// ConversationKey builds a history key from a group id and sender id
func ConversationKey(groupID, senderID string) string {
	if groupID != "" {
		return groupID
	}
	return "dm:" + senderID
}

// Reaction represents an emoji reaction to an earlier message
type Reaction struct {
	Emoji           string
	Remove          bool
	SenderID        string
	TargetAuthor    string
	TargetTimestamp time.Time
}
