package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session manages the lifecycle of a one-to-one conversation between an
// authenticated user and a selected organization: browsing the partner
// list, subscribing to the active conversation's message stream, sending
// messages with optimistic local echo, and forwarding case records.
//
// A Session owns its in-memory message list and at most one live
// subscription. All state changes funnel through the mutex-guarded apply
// path; stream deliveries arrive on a single goroutine per subscription
// and are tagged with a generation counter so deliveries for a conversation
// that has since been closed are discarded.
type Session struct {
	identity Identity
	backend  Backend
	onUpdate func(Snapshot)

	mu       sync.Mutex
	phase    Phase
	partners []Partner
	active   *Partner
	convID   string
	messages []Message
	gen      uint64
	cancel   func()
	disposed bool
}

// NewSession creates a session for the given user. onUpdate, if non-nil, is
// invoked with a fresh snapshot after every state change; it is called
// without any session lock held.
func NewSession(identity Identity, backend Backend, onUpdate func(Snapshot)) *Session {
	return &Session{
		identity: identity,
		backend:  backend,
		onUpdate: onUpdate,
		phase:    Browsing,
	}
}

// Identity returns the user this session acts for
func (s *Session) Identity() Identity { return s.identity }

// Snapshot returns a copy of the current session state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Phase:    s.phase,
		Partners: append([]Partner(nil), s.partners...),
		Messages: append([]Message(nil), s.messages...),
	}
	if s.active != nil {
		active := *s.active
		snap.Active = &active
	}
	return snap
}

func (s *Session) publish(snap Snapshot) {
	if s.onUpdate != nil {
		s.onUpdate(snap)
	}
}

// ListPartners loads the organizations available for messaging. An empty
// list is a valid result. Failures leave the previously loaded list in
// place and are reported as ErrBackendUnavailable; retry is caller-driven.
func (s *Session) ListPartners(ctx context.Context) ([]Partner, error) {
	partners, err := s.backend.ListPartners(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list partners: %v", ErrBackendUnavailable, err)
	}
	if partners == nil {
		partners = []Partner{}
	}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return partners, nil
	}
	s.partners = partners
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(snap)
	return partners, nil
}

// ListCases loads the case records owned by the current user, for the
// forward-a-case picker.
func (s *Session) ListCases(ctx context.Context) ([]CaseRecord, error) {
	if s.identity.ID == "" {
		return nil, ErrUnauthenticated
	}
	cases, err := s.backend.ListCases(ctx, s.identity.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: list cases: %v", ErrBackendUnavailable, err)
	}
	if cases == nil {
		cases = []CaseRecord{}
	}
	return cases, nil
}

// OpenConversation activates the thread with the given partner. Any
// previously active subscription is released first; the session holds at
// most one live subscription at any time.
func (s *Session) OpenConversation(ctx context.Context, partner Partner) error {
	if s.identity.ID == "" {
		return ErrUnauthenticated
	}
	if partner.ID == "" {
		return fmt.Errorf("%w: partner has no identifier", ErrBackendUnavailable)
	}

	convID := ConversationID(partner.ID, s.identity.ID)

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil
	}
	s.detachLocked()
	active := partner
	s.active = &active
	s.convID = convID
	s.messages = nil
	s.phase = ConversationOpen
	gen := s.gen

	stream, cancel := s.backend.Subscribe(convID)
	s.cancel = cancel
	s.mu.Unlock()

	go s.consume(gen, stream)

	// Fetch the history after subscribing so nothing falls between the
	// snapshot and the stream; Reconcile drops the overlap.
	history, err := s.backend.History(ctx, convID)

	s.mu.Lock()
	if s.gen != gen || s.disposed {
		s.mu.Unlock()
		return nil
	}
	if err == nil {
		for _, m := range history {
			s.messages = Reconcile(s.messages, m, s.identity.ID)
		}
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)

	if err != nil {
		return fmt.Errorf("%w: history: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// consume is the single delivery path from a subscription into session
// state. It exits when the subscription channel closes.
func (s *Session) consume(gen uint64, stream <-chan Message) {
	for msg := range stream {
		s.mu.Lock()
		if s.disposed || s.gen != gen {
			s.mu.Unlock()
			return
		}
		s.messages = Reconcile(s.messages, msg, s.identity.ID)
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.publish(snap)
	}
}

// CloseConversation releases the active subscription and returns to
// Browsing. Calling it while already browsing is a no-op.
func (s *Session) CloseConversation() {
	s.mu.Lock()
	if s.phase == Browsing {
		s.mu.Unlock()
		return
	}
	s.detachLocked()
	s.active = nil
	s.convID = ""
	s.messages = nil
	s.phase = Browsing
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)
}

// detachLocked cancels the live subscription and bumps the generation so
// in-flight deliveries and sends for the old conversation are discarded.
// Callers must hold s.mu.
func (s *Session) detachLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
}

// Close disposes the session. Any active subscription is released; the
// session accepts no further updates.
func (s *Session) Close() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.detachLocked()
	s.disposed = true
	s.mu.Unlock()
}

// SendMessage appends an optimistic local echo, persists the message, and
// reconciles or rolls back depending on the outcome.
//
// For KindText an empty or whitespace-only body is a no-op, not an error.
// For KindCaseReference the case payload is required and the body optional.
// The rollback after a failed persist is scoped to the conversation the
// send was issued against: if that conversation has been closed or replaced
// in the meantime, the rollback is silently discarded.
func (s *Session) SendMessage(ctx context.Context, body string, kind Kind, caseRef *CaseRecord) error {
	if s.identity.ID == "" {
		return ErrUnauthenticated
	}

	switch kind {
	case KindText:
		body = strings.TrimSpace(body)
		if body == "" {
			return nil
		}
	case KindCaseReference:
		if caseRef == nil || caseRef.ID == "" {
			return nil
		}
	default:
		return fmt.Errorf("%w: unknown message kind %q", ErrSendFailed, kind)
	}

	s.mu.Lock()
	if s.disposed || s.phase != ConversationOpen || s.convID == "" {
		s.mu.Unlock()
		return ErrNoActiveConversation
	}
	gen := s.gen

	provisional := Message{
		ID:             "local-" + uuid.NewString(),
		ConversationID: s.convID,
		SenderID:       s.identity.ID,
		SenderName:     s.identity.DisplayName(),
		Body:           body,
		Kind:           kind,
		CaseRef:        caseRef,
		Timestamp:      time.Now().UTC(),
		Provisional:    true,
	}
	s.messages = append(s.messages, provisional)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)

	confirmed, err := s.backend.Append(ctx, provisional)
	if err != nil {
		s.rollback(gen, provisional.ID)
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	s.mu.Lock()
	if s.disposed || s.gen != gen {
		s.mu.Unlock()
		return nil
	}
	s.messages = Reconcile(s.messages, confirmed, s.identity.ID)
	snap = s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)
	return nil
}

// rollback removes a provisional echo after a failed persist, unless the
// conversation it belonged to is no longer active
func (s *Session) rollback(gen uint64, provisionalID string) {
	s.mu.Lock()
	if s.disposed || s.gen != gen {
		s.mu.Unlock()
		return
	}
	kept := s.messages[:0]
	for _, m := range s.messages {
		if m.ID != provisionalID {
			kept = append(kept, m)
		}
	}
	s.messages = kept
	snap := s.snapshotLocked()
	s.mu.Unlock()

	zap.S().Warnw("rolled back unconfirmed message", "id", provisionalID)
	s.publish(snap)
}
