package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mizan-meet/mizan-api/chat"
)

const (
	writeWait   = 10 * time.Second
	intentLimit = 64 * 1024
	sendBuffer  = 16
)

// Intent is a client request decoded off the messenger websocket
type Intent struct {
	Action         string `json:"action"`
	OrganizationID string `json:"organizationId,omitempty"`
	Body           string `json:"body,omitempty"`
	Kind           string `json:"kind,omitempty"`
	CaseID         string `json:"caseId,omitempty"`
}

// Intent actions understood by the gateway
const (
	ActionListPartners = "list-partners"
	ActionOpen         = "open"
	ActionClose        = "close"
	ActionSend         = "send"
	ActionListCases    = "list-cases"
)

// Event is a frame pushed back to the client
type Event struct {
	Type     string            `json:"type"`
	State    *chat.Snapshot    `json:"state,omitempty"`
	Cases    []chat.CaseRecord `json:"cases,omitempty"`
	Error    string            `json:"error,omitempty"`
	Recovery string            `json:"recovery,omitempty"`
}

// Client mediates between one messenger websocket connection and its chat
// session. Session snapshots and errors flow out through the send channel;
// intents flow in through the read pump.
type Client struct {
	conn    *websocket.Conn
	session *chat.Session

	mu     sync.Mutex
	closed bool
	send   chan Event
}

// ServeClient attaches a fresh chat session to an upgraded websocket
// connection and blocks until the connection drops. The session is always
// disposed on the way out, which releases any live subscription.
func ServeClient(conn *websocket.Conn, identity chat.Identity, backend chat.Backend) {
	c := &Client{
		conn: conn,
		send: make(chan Event, sendBuffer),
	}
	c.session = chat.NewSession(identity, backend, func(snap chat.Snapshot) {
		c.push(Event{Type: "state", State: &snap})
	})

	go c.writePump()
	c.readPump()
}

// push queues an event for the write pump, dropping it if the client is
// too far behind to keep the session from blocking. A stream delivery can
// race the connection teardown, so pushes after shutdown are dropped
// rather than sent on the closed channel.
func (c *Client) push(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- ev:
	default:
		zap.S().Warnw("dropping event for slow messenger client", "type", ev.Type)
	}
}

// shutdown closes the send channel exactly once; later pushes become no-ops
func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) readPump() {
	defer func() {
		c.session.Close()
		c.shutdown()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(intentLimit)

	for {
		var intent Intent
		if err := c.conn.ReadJSON(&intent); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.S().Warnw("messenger read failed", "error", err)
			}
			return
		}
		c.handle(intent)
	}
}

// handle executes one intent against the session. Every failure becomes a
// typed, recoverable error event; nothing escapes to the connection.
func (c *Client) handle(intent Intent) {
	ctx := context.Background()

	switch intent.Action {
	case ActionListPartners:
		if _, err := c.session.ListPartners(ctx); err != nil {
			c.pushError(err, "refresh the organization list")
		}
	case ActionOpen:
		partner := chat.Partner{ID: intent.OrganizationID}
		for _, p := range c.session.Snapshot().Partners {
			if p.ID == intent.OrganizationID {
				partner = p
				break
			}
		}
		if err := c.session.OpenConversation(ctx, partner); err != nil {
			c.pushError(err, "reopen the conversation")
		}
	case ActionClose:
		c.session.CloseConversation()
	case ActionSend:
		kind := chat.Kind(intent.Kind)
		if kind == "" {
			kind = chat.KindText
		}
		var caseRef *chat.CaseRecord
		if kind == chat.KindCaseReference {
			caseRef = c.resolveCase(ctx, intent.CaseID)
		}
		if err := c.session.SendMessage(ctx, intent.Body, kind, caseRef); err != nil {
			c.pushError(err, "try sending again")
		}
	case ActionListCases:
		cases, err := c.session.ListCases(ctx)
		if err != nil {
			c.pushError(err, "refresh your cases")
			return
		}
		c.push(Event{Type: "cases", Cases: cases})
	default:
		c.push(Event{Type: "error", Error: "unknown action: " + intent.Action})
	}
}

// resolveCase looks the forwarded case up in the user's own records so the
// chat payload carries the category and description, not just the id
func (c *Client) resolveCase(ctx context.Context, caseID string) *chat.CaseRecord {
	if caseID == "" {
		return nil
	}
	cases, err := c.session.ListCases(ctx)
	if err != nil {
		return &chat.CaseRecord{ID: caseID}
	}
	for _, cr := range cases {
		if cr.ID == caseID {
			return &cr
		}
	}
	return &chat.CaseRecord{ID: caseID}
}

func (c *Client) pushError(err error, recovery string) {
	ev := Event{Type: "error", Error: err.Error(), Recovery: recovery}
	switch {
	case errors.Is(err, chat.ErrUnauthenticated):
		ev.Type = "unauthenticated"
	case errors.Is(err, chat.ErrNoActiveConversation):
		ev.Type = "no-active-conversation"
	}
	c.push(ev)
}

func (c *Client) writePump() {
	for ev := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(ev); err != nil {
			zap.S().Warnw("messenger write failed", "error", err)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
