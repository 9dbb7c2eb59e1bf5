package databases_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mizan-meet/mizan-api/chat"
	"github.com/mizan-meet/mizan-api/databases"
	"github.com/mizan-meet/mizan-api/databases/mocks"
	"github.com/mizan-meet/mizan-api/models"
	"github.com/mizan-meet/mizan-api/realtime"
)

func newBackend(db databases.DatabaseHelper, broker *realtime.Broker) *databases.ChatBackend {
	return &databases.ChatBackend{
		ODB:     databases.NewOrganizationDatabase(db),
		CDB:     databases.NewCrimeDatabase(db),
		MDB:     databases.NewMessageDatabase(db),
		Sub:     broker,
		Publish: broker.Publish,
	}
}

func TestChatBackend_ListPartners(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	conn := &mocks.CollectionHelper{}
	cursor := &mocks.CursorHelper{}

	cursor.On("All", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		out := args.Get(1).(*[]models.Organization)
		*out = []models.Organization{{
			ID: "org-1",
			Details: models.OrganizationDetails{
				Name:        "Haven Support Network",
				Description: "Legal aid for victims",
			},
		}}
	}).Return(nil)
	conn.On("Find", mock.Anything, mock.Anything).Return(cursor, nil)
	db.On("Collection", "organizations").Return(conn)

	broker := realtime.NewBroker()
	defer broker.Close()

	partners, err := newBackend(db, broker).ListPartners(context.Background())

	require.NoError(t, err)
	require.Len(t, partners, 1)
	assert.Equal(t, chat.Partner{ID: "org-1", Name: "Haven Support Network", Description: "Legal aid for victims"}, partners[0])
}

func TestChatBackend_ListCases(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	conn := &mocks.CollectionHelper{}
	cursor := &mocks.CursorHelper{}

	cursor.On("All", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		out := args.Get(1).(*[]models.Crime)
		*out = []models.Crime{{
			ID: "crime-1",
			Details: models.CrimeDetails{
				Crime:       "Hate Crime",
				Description: "details",
				VictimID:    "user-1",
			},
		}}
	}).Return(nil)
	conn.On("Find", mock.Anything, mock.Anything).Return(cursor, nil)
	db.On("Collection", "crimes").Return(conn)

	broker := realtime.NewBroker()
	defer broker.Close()

	cases, err := newBackend(db, broker).ListCases(context.Background(), "user-1")

	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, chat.CaseRecord{ID: "crime-1", Category: "Hate Crime", Description: "details"}, cases[0])
}

func TestChatBackend_AppendPersistsAndPublishes(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	conn := &mocks.CollectionHelper{}

	conn.On("InsertOne", mock.Anything, mock.Anything).Return("inserted-id", nil)
	db.On("Collection", "messages").Return(conn)

	broker := realtime.NewBroker()
	defer broker.Close()

	convID := chat.ConversationID("org-1", "user-1")
	stream, cancel := broker.Subscribe(convID)
	defer cancel()

	backend := newBackend(db, broker)
	confirmed, err := backend.Append(context.Background(), chat.Message{
		ID:             "local-1",
		ConversationID: convID,
		SenderID:       "user-1",
		SenderName:     "Amina",
		Body:           "hello",
		Kind:           chat.KindText,
		Provisional:    true,
	})

	require.NoError(t, err)
	assert.NotEqual(t, "local-1", confirmed.ID)
	assert.False(t, confirmed.Provisional)
	assert.False(t, confirmed.Timestamp.IsZero())

	// the confirmed record reaches live subscribers of the thread
	got := <-stream
	assert.Equal(t, confirmed.ID, got.ID)
	assert.Equal(t, "hello", got.Body)
}
