package databases

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/mizan-meet/mizan-api/chat"
	"github.com/mizan-meet/mizan-api/models"
)

// ChatBackend adapts the organization, crime and message stores to the
// interfaces the chat session core consumes. Appended messages are pushed
// through the Subscriber (the realtime broker) after they are persisted,
// so every subscriber of the conversation sees the confirmed record.
type ChatBackend struct {
	ODB OrganizationDatabase
	CDB CrimeDatabase
	MDB MessageDatabase
	Sub chat.Subscriber
	// Publish delivers a confirmed record to conversation subscribers
	Publish func(conversationID string, msg chat.Message)
}

var _ chat.Backend = (*ChatBackend)(nil)

// ListPartners loads the NGO directory
func (b *ChatBackend) ListPartners(ctx context.Context) ([]chat.Partner, error) {
	orgs, err := b.ODB.Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	partners := make([]chat.Partner, 0, len(orgs))
	for _, org := range orgs {
		partners = append(partners, chat.Partner{
			ID:          org.ID,
			Name:        org.Details.Name,
			Description: org.Details.Description,
		})
	}
	return partners, nil
}

// ListCases loads the crime reports filed by the given user
func (b *ChatBackend) ListCases(ctx context.Context, userID string) ([]chat.CaseRecord, error) {
	crimes, err := b.CDB.Find(ctx, bson.M{"crime.victimID": userID})
	if err != nil {
		return nil, err
	}
	cases := make([]chat.CaseRecord, 0, len(crimes))
	for _, crime := range crimes {
		cases = append(cases, chat.CaseRecord{
			ID:          crime.ID,
			Category:    crime.Details.Crime,
			Description: crime.Details.Description,
		})
	}
	return cases, nil
}

// History returns the conversation thread ordered by timestamp ascending
func (b *ChatBackend) History(ctx context.Context, conversationID string) ([]chat.Message, error) {
	records, err := b.MDB.FindByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	messages := make([]chat.Message, 0, len(records))
	for _, rec := range records {
		messages = append(messages, toChatMessage(rec))
	}
	return messages, nil
}

// Append persists a message with a server-assigned id and timestamp,
// publishes the confirmed record, and returns it
func (b *ChatBackend) Append(ctx context.Context, msg chat.Message) (chat.Message, error) {
	record := models.ChatMessage{
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		SenderName:     msg.SenderName,
		Body:           msg.Body,
		Kind:           string(msg.Kind),
	}
	if msg.CaseRef != nil {
		record.CaseRef = &models.CaseReference{
			CaseID:      msg.CaseRef.ID,
			Category:    msg.CaseRef.Category,
			Description: msg.CaseRef.Description,
		}
	}

	persisted, err := b.MDB.InsertOne(ctx, record)
	if err != nil {
		return chat.Message{}, err
	}

	confirmed := toChatMessage(persisted)
	if b.Publish != nil {
		b.Publish(confirmed.ConversationID, confirmed)
	}
	return confirmed, nil
}

// Subscribe delegates to the realtime broker
func (b *ChatBackend) Subscribe(conversationID string) (<-chan chat.Message, func()) {
	return b.Sub.Subscribe(conversationID)
}

func toChatMessage(rec models.ChatMessage) chat.Message {
	msg := chat.Message{
		ID:             rec.ID.Hex(),
		ConversationID: rec.ConversationID,
		SenderID:       rec.SenderID,
		SenderName:     rec.SenderName,
		Body:           rec.Body,
		Kind:           chat.Kind(rec.Kind),
		Timestamp:      rec.Timestamp.Time().UTC(),
	}
	if rec.CaseRef != nil {
		msg.CaseRef = &chat.CaseRecord{
			ID:          rec.CaseRef.CaseID,
			Category:    rec.CaseRef.Category,
			Description: rec.CaseRef.Description,
		}
	}
	return msg
}
