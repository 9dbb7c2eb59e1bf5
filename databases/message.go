package databases

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mizan-meet/mizan-api/models"
)

const messageName = "messages"

// MessageDatabase contains the methods to use with the message database.
// InsertOne assigns the identifier and timestamp server-side and returns
// the persisted record; FindByConversation returns the thread ordered by
// timestamp ascending.
type MessageDatabase interface {
	FindByConversation(ctx context.Context, conversationID string) ([]models.ChatMessage, error)
	InsertOne(ctx context.Context, message models.ChatMessage) (models.ChatMessage, error)
}

type messageDatabase struct {
	db DatabaseHelper
}

// NewMessageDatabase initializes a new instance of message database with the provided db connection
func NewMessageDatabase(db DatabaseHelper) MessageDatabase {
	return &messageDatabase{
		db: db,
	}
}

func (m *messageDatabase) FindByConversation(ctx context.Context, conversationID string) ([]models.ChatMessage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cursor, err := m.db.Collection(messageName).Find(ctx, bson.M{"conversationID": conversationID}, opts)
	if err != nil {
		return nil, err
	}
	var messages []models.ChatMessage
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (m *messageDatabase) InsertOne(ctx context.Context, message models.ChatMessage) (models.ChatMessage, error) {
	message.ID = primitive.NewObjectID()
	message.Timestamp = primitive.NewDateTimeFromTime(time.Now())
	if _, err := m.db.Collection(messageName).InsertOne(ctx, message); err != nil {
		return models.ChatMessage{}, err
	}
	return message, nil
}
