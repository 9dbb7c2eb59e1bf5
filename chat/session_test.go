package chat_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mizan-meet/mizan-api/chat"
)

// fakeBackend is an in-memory chat.Backend with controllable failures and
// hand-driven stream deliveries
type fakeBackend struct {
	mu          sync.Mutex
	partners    []chat.Partner
	partnersErr error
	cases       []chat.CaseRecord
	casesErr    error
	history     map[string][]chat.Message
	historyErr  error
	appendErr   error
	appended    []chat.Message
	streams     map[string][]chan chat.Message
	liveSubs    int
	seq         int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		history: make(map[string][]chat.Message),
		streams: make(map[string][]chan chat.Message),
	}
}

func (b *fakeBackend) ListPartners(ctx context.Context) ([]chat.Partner, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.partnersErr != nil {
		return nil, b.partnersErr
	}
	return b.partners, nil
}

func (b *fakeBackend) ListCases(ctx context.Context, userID string) ([]chat.CaseRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.casesErr != nil {
		return nil, b.casesErr
	}
	return b.cases, nil
}

func (b *fakeBackend) History(ctx context.Context, conversationID string) ([]chat.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.historyErr != nil {
		return nil, b.historyErr
	}
	return b.history[conversationID], nil
}

func (b *fakeBackend) Append(ctx context.Context, msg chat.Message) (chat.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.appendErr != nil {
		return chat.Message{}, b.appendErr
	}
	b.seq++
	confirmed := msg
	confirmed.ID = fmt.Sprintf("srv-%d", b.seq)
	confirmed.Provisional = false
	confirmed.Timestamp = time.Now().UTC()
	b.appended = append(b.appended, confirmed)
	return confirmed, nil
}

func (b *fakeBackend) Subscribe(conversationID string) (<-chan chat.Message, func()) {
	ch := make(chan chat.Message, 8)
	b.mu.Lock()
	b.streams[conversationID] = append(b.streams[conversationID], ch)
	b.liveSubs++
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			b.liveSubs--
			open := b.streams[conversationID]
			for i, c := range open {
				if c == ch {
					b.streams[conversationID] = append(open[:i:i], open[i+1:]...)
					break
				}
			}
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// emit pushes a confirmed record into every open stream of the conversation
func (b *fakeBackend) emit(conversationID string, msg chat.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.streams[conversationID] {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (b *fakeBackend) appendCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.appended)
}

func (b *fakeBackend) subscriptions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.liveSubs
}

func newTestSession(backend chat.Backend) (*chat.Session, chan chat.Snapshot) {
	updates := make(chan chat.Snapshot, 64)
	session := chat.NewSession(
		chat.Identity{ID: "user-1", Name: "Amina", Email: "amina@example.com"},
		backend,
		func(snap chat.Snapshot) { updates <- snap },
	)
	return session, updates
}

func waitForSnapshot(t *testing.T, updates <-chan chat.Snapshot, cond func(chat.Snapshot) bool) chat.Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-updates:
			if cond(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
			return chat.Snapshot{}
		}
	}
}

func TestSession_ListPartnersEmptyListIsValid(t *testing.T) {
	backend := newFakeBackend()
	session, _ := newTestSession(backend)
	defer session.Close()

	partners, err := session.ListPartners(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, partners)
	assert.Empty(t, partners)
}

func TestSession_ListPartnersFailureKeepsPreviousList(t *testing.T) {
	backend := newFakeBackend()
	backend.partners = []chat.Partner{{ID: "org-1", Name: "Haven"}}
	session, _ := newTestSession(backend)
	defer session.Close()

	_, err := session.ListPartners(context.Background())
	require.NoError(t, err)

	backend.mu.Lock()
	backend.partnersErr = errors.New("connection reset")
	backend.mu.Unlock()

	_, err = session.ListPartners(context.Background())
	assert.ErrorIs(t, err, chat.ErrBackendUnavailable)
	assert.Len(t, session.Snapshot().Partners, 1)
}

func TestSession_UnauthenticatedIdentityIsRejected(t *testing.T) {
	backend := newFakeBackend()
	session := chat.NewSession(chat.Identity{}, backend, nil)
	defer session.Close()

	_, err := session.ListCases(context.Background())
	assert.ErrorIs(t, err, chat.ErrUnauthenticated)

	err = session.OpenConversation(context.Background(), chat.Partner{ID: "org-1"})
	assert.ErrorIs(t, err, chat.ErrUnauthenticated)

	err = session.SendMessage(context.Background(), "hello", chat.KindText, nil)
	assert.ErrorIs(t, err, chat.ErrUnauthenticated)
}

func TestSession_OpenConversationLoadsHistoryInOrder(t *testing.T) {
	backend := newFakeBackend()
	convID := chat.ConversationID("org-1", "user-1")
	base := time.Now().UTC().Add(-time.Hour)
	backend.history[convID] = []chat.Message{
		{ID: "srv-2", ConversationID: convID, SenderID: "org-1", Body: "second", Kind: chat.KindText, Timestamp: base.Add(time.Minute)},
		{ID: "srv-1", ConversationID: convID, SenderID: "user-1", Body: "first", Kind: chat.KindText, Timestamp: base},
	}

	session, _ := newTestSession(backend)
	defer session.Close()

	require.NoError(t, session.OpenConversation(context.Background(), chat.Partner{ID: "org-1", Name: "Haven"}))

	snap := session.Snapshot()
	assert.Equal(t, chat.ConversationOpen, snap.Phase)
	require.NotNil(t, snap.Active)
	assert.Equal(t, "org-1", snap.Active.ID)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "srv-1", snap.Messages[0].ID)
	assert.Equal(t, "srv-2", snap.Messages[1].ID)
}

func TestSession_OpenConversationHistoryFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.historyErr = errors.New("timeout")

	session, _ := newTestSession(backend)
	defer session.Close()

	err := session.OpenConversation(context.Background(), chat.Partner{ID: "org-1"})
	assert.ErrorIs(t, err, chat.ErrBackendUnavailable)
}

func TestSession_SendMessageOptimisticEchoThenConfirmation(t *testing.T) {
	backend := newFakeBackend()
	session, updates := newTestSession(backend)
	defer session.Close()

	require.NoError(t, session.OpenConversation(context.Background(), chat.Partner{ID: "org-1"}))

	require.NoError(t, session.SendMessage(context.Background(), "I need help", chat.KindText, nil))

	// the optimistic echo is published before the backend confirms
	echo := waitForSnapshot(t, updates, func(s chat.Snapshot) bool {
		return len(s.Messages) == 1 && s.Messages[0].Provisional
	})
	assert.Equal(t, "I need help", echo.Messages[0].Body)

	confirmed := waitForSnapshot(t, updates, func(s chat.Snapshot) bool {
		return len(s.Messages) == 1 && !s.Messages[0].Provisional
	})
	assert.Equal(t, "srv-1", confirmed.Messages[0].ID)
}

func TestSession_StreamEchoOfOwnSendIsNotDuplicated(t *testing.T) {
	backend := newFakeBackend()
	convID := chat.ConversationID("org-1", "user-1")
	session, updates := newTestSession(backend)
	defer session.Close()

	require.NoError(t, session.OpenConversation(context.Background(), chat.Partner{ID: "org-1"}))
	require.NoError(t, session.SendMessage(context.Background(), "hello", chat.KindText, nil))

	waitForSnapshot(t, updates, func(s chat.Snapshot) bool {
		return len(s.Messages) == 1 && !s.Messages[0].Provisional
	})

	// the broker echoes the confirmed record back on the stream
	backend.mu.Lock()
	record := backend.appended[0]
	backend.mu.Unlock()
	backend.emit(convID, record)

	// a partner reply proves the echo was processed without duplicating
	backend.emit(convID, chat.Message{
		ID: "srv-99", ConversationID: convID, SenderID: "org-1",
		Body: "we hear you", Kind: chat.KindText, Timestamp: time.Now().UTC(),
	})

	snap := waitForSnapshot(t, updates, func(s chat.Snapshot) bool {
		return len(s.Messages) == 2
	})
	assert.Equal(t, "srv-1", snap.Messages[0].ID)
	assert.Equal(t, "srv-99", snap.Messages[1].ID)
}

func TestSession_SendMessageRollbackOnFailure(t *testing.T) {
	backend := newFakeBackend()
	session, updates := newTestSession(backend)
	defer session.Close()

	require.NoError(t, session.OpenConversation(context.Background(), chat.Partner{ID: "org-1"}))

	backend.mu.Lock()
	backend.appendErr = errors.New("write concern failed")
	backend.mu.Unlock()

	err := session.SendMessage(context.Background(), "hello", chat.KindText, nil)
	assert.ErrorIs(t, err, chat.ErrSendFailed)

	waitForSnapshot(t, updates, func(s chat.Snapshot) bool {
		return s.Phase == chat.ConversationOpen && len(s.Messages) == 0
	})
	assert.Empty(t, session.Snapshot().Messages)
}

func TestSession_SendWhileBrowsingFails(t *testing.T) {
	backend := newFakeBackend()
	session, _ := newTestSession(backend)
	defer session.Close()

	err := session.SendMessage(context.Background(), "hello", chat.KindText, nil)
	assert.ErrorIs(t, err, chat.ErrNoActiveConversation)
}

func TestSession_EmptyTextIsNoOp(t *testing.T) {
	backend := newFakeBackend()
	session, _ := newTestSession(backend)
	defer session.Close()

	require.NoError(t, session.OpenConversation(context.Background(), chat.Partner{ID: "org-1"}))

	assert.NoError(t, session.SendMessage(context.Background(), "   \n\t", chat.KindText, nil))
	assert.Zero(t, backend.appendCount())
	assert.Empty(t, session.Snapshot().Messages)
}

func TestSession_CaseReferenceWithoutPayloadIsNoOp(t *testing.T) {
	backend := newFakeBackend()
	session, _ := newTestSession(backend)
	defer session.Close()

	require.NoError(t, session.OpenConversation(context.Background(), chat.Partner{ID: "org-1"}))

	assert.NoError(t, session.SendMessage(context.Background(), "", chat.KindCaseReference, nil))
	assert.Zero(t, backend.appendCount())
}

func TestSession_UnknownKindFails(t *testing.T) {
	backend := newFakeBackend()
	session, _ := newTestSession(backend)
	defer session.Close()

	require.NoError(t, session.OpenConversation(context.Background(), chat.Partner{ID: "org-1"}))

	err := session.SendMessage(context.Background(), "hello", chat.Kind("sticker"), nil)
	assert.ErrorIs(t, err, chat.ErrSendFailed)
}

func TestSession_CloseConversationIsIdempotent(t *testing.T) {
	backend := newFakeBackend()
	session, _ := newTestSession(backend)
	defer session.Close()

	require.NoError(t, session.OpenConversation(context.Background(), chat.Partner{ID: "org-1"}))
	require.Equal(t, 1, backend.subscriptions())

	session.CloseConversation()
	assert.Equal(t, chat.Browsing, session.Snapshot().Phase)
	assert.Equal(t, 0, backend.subscriptions())

	// a second close while browsing changes nothing
	session.CloseConversation()
	assert.Equal(t, chat.Browsing, session.Snapshot().Phase)
	assert.Equal(t, 0, backend.subscriptions())
}

func TestSession_SubscriptionExclusivity(t *testing.T) {
	backend := newFakeBackend()
	session, updates := newTestSession(backend)
	defer session.Close()

	require.NoError(t, session.OpenConversation(context.Background(), chat.Partner{ID: "org-1"}))
	require.NoError(t, session.OpenConversation(context.Background(), chat.Partner{ID: "org-2"}))

	// only the newest conversation holds a live subscription
	assert.Equal(t, 1, backend.subscriptions())

	// a record for the replaced conversation never reaches the session
	staleConv := chat.ConversationID("org-1", "user-1")
	backend.emit(staleConv, chat.Message{
		ID: "srv-stale", ConversationID: staleConv, SenderID: "org-1",
		Body: "late", Kind: chat.KindText, Timestamp: time.Now().UTC(),
	})

	liveConv := chat.ConversationID("org-2", "user-1")
	backend.emit(liveConv, chat.Message{
		ID: "srv-live", ConversationID: liveConv, SenderID: "org-2",
		Body: "hello", Kind: chat.KindText, Timestamp: time.Now().UTC(),
	})

	snap := waitForSnapshot(t, updates, func(s chat.Snapshot) bool {
		return len(s.Messages) == 1
	})
	assert.Equal(t, "srv-live", snap.Messages[0].ID)
	require.NotNil(t, snap.Active)
	assert.Equal(t, "org-2", snap.Active.ID)
}

func TestSession_LateRollbackAfterConversationSwitchIsDiscarded(t *testing.T) {
	backend := newFakeBackend()
	session, _ := newTestSession(backend)
	defer session.Close()

	require.NoError(t, session.OpenConversation(context.Background(), chat.Partner{ID: "org-1"}))

	backend.mu.Lock()
	backend.appendErr = errors.New("unreachable")
	backend.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		errCh <- session.SendMessage(context.Background(), "hello", chat.KindText, nil)
	}()

	// switch conversations while the failed send may still be in flight
	backend.mu.Lock()
	backend.appendErr = nil
	backend.mu.Unlock()
	require.NoError(t, session.OpenConversation(context.Background(), chat.Partner{ID: "org-2"}))

	select {
	case err := <-errCh:
		if err != nil {
			assert.ErrorIs(t, err, chat.ErrSendFailed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("send never returned")
	}

	// whatever order things landed in, the new conversation is untouched
	snap := session.Snapshot()
	require.NotNil(t, snap.Active)
	assert.Equal(t, "org-2", snap.Active.ID)
	for _, m := range snap.Messages {
		assert.NotEqual(t, chat.ConversationID("org-1", "user-1"), m.ConversationID)
	}
}

func TestSession_CloseDisposesSubscription(t *testing.T) {
	backend := newFakeBackend()
	session, _ := newTestSession(backend)

	require.NoError(t, session.OpenConversation(context.Background(), chat.Partner{ID: "org-1"}))
	require.Equal(t, 1, backend.subscriptions())

	session.Close()
	assert.Equal(t, 0, backend.subscriptions())

	// disposed sessions reject further sends
	err := session.SendMessage(context.Background(), "hello", chat.KindText, nil)
	assert.ErrorIs(t, err, chat.ErrNoActiveConversation)
}

func TestSession_ListCases(t *testing.T) {
	backend := newFakeBackend()
	backend.cases = []chat.CaseRecord{{ID: "case-1", Category: "Hate Crime", Description: "report"}}

	session, _ := newTestSession(backend)
	defer session.Close()

	cases, err := session.ListCases(context.Background())
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, "case-1", cases[0].ID)
}
