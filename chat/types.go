package chat

import (
	"context"
	"time"
)

// Kind distinguishes plain text messages from forwarded case references
type Kind string

// Message kinds
const (
	KindText          Kind = "text"
	KindCaseReference Kind = "case-reference"
)

// Phase is the lifecycle state of a Session
type Phase int

// Session phases
const (
	// Browsing means no conversation is active; the partner list is shown
	Browsing Phase = iota
	// ConversationOpen means a conversation is active and its stream subscribed
	ConversationOpen
)

func (p Phase) String() string {
	if p == ConversationOpen {
		return "conversation-open"
	}
	return "browsing"
}

// Identity is the authenticated user a Session acts for. It is passed in
// explicitly so the session logic can be exercised without a live auth
// backend.
type Identity struct {
	ID    string
	Name  string
	Email string
}

// DisplayName returns the sender name shown on outgoing messages, falling
// back to the email address when no display name is set.
func (i Identity) DisplayName() string {
	if i.Name != "" {
		return i.Name
	}
	return i.Email
}

// Partner is an organization the user can message
type Partner struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CaseRecord is a previously filed crime report that can be forwarded into
// a conversation
type CaseRecord struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// Message is a single entry in a conversation. Provisional marks an
// optimistic local echo that the backend has not confirmed yet.
type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversationId"`
	SenderID       string      `json:"senderId"`
	SenderName     string      `json:"senderName"`
	Body           string      `json:"body"`
	Kind           Kind        `json:"kind"`
	CaseRef        *CaseRecord `json:"caseRef,omitempty"`
	Timestamp      time.Time   `json:"timestamp"`
	Provisional    bool        `json:"provisional,omitempty"`
}

// Snapshot is an immutable view of session state handed to the
// presentation layer.
type Snapshot struct {
	Phase    Phase     `json:"phase"`
	Partners []Partner `json:"partners"`
	Active   *Partner  `json:"active,omitempty"`
	Messages []Message `json:"messages"`
}

// Directory lists the conversation partners available for messaging
type Directory interface {
	ListPartners(ctx context.Context) ([]Partner, error)
}

// CaseSource lists the case records owned by a user
type CaseSource interface {
	ListCases(ctx context.Context, userID string) ([]CaseRecord, error)
}

// MessageStore persists messages and serves conversation history.
// Append assigns the identifier and timestamp server-side and returns the
// confirmed record. History returns messages ordered by timestamp ascending.
type MessageStore interface {
	Append(ctx context.Context, msg Message) (Message, error)
	History(ctx context.Context, conversationID string) ([]Message, error)
}

// Subscriber provides a cancellable stream of confirmed message records for
// one conversation. The returned cancel func releases the subscription; the
// channel is closed afterwards.
type Subscriber interface {
	Subscribe(conversationID string) (<-chan Message, func())
}

// Backend bundles everything a Session needs from the outside world
type Backend interface {
	Directory
	CaseSource
	MessageStore
	Subscriber
}

// ConversationID builds the composite thread key for a partner and user
func ConversationID(partnerID, userID string) string {
	return partnerID + ":" + userID
}
