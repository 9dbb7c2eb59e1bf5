package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Chat message kinds as stored in the message collection
const (
	MessageKindText          = "text"
	MessageKindCaseReference = "case-reference"
)

// ChatMessage holds the structure for the message collection in mongo.
// ConversationID is the composite organizationID:userID key, so both the
// REST history endpoint and the realtime stream can filter on one field.
type ChatMessage struct {
	ID             primitive.ObjectID `json:"_id" bson:"_id"`
	ConversationID string             `json:"conversationID" bson:"conversationID"`
	SenderID       string             `json:"senderID" bson:"senderID"`
	SenderName     string             `json:"senderName" bson:"senderName"`
	Body           string             `json:"body" bson:"body"`
	Kind           string             `json:"kind" bson:"kind"`
	CaseRef        *CaseReference     `json:"caseRef,omitempty" bson:"caseRef,omitempty"`
	Timestamp      primitive.DateTime `json:"timestamp" bson:"timestamp"`
}

// CaseReference is the payload of a forwarded crime report inside a chat message
type CaseReference struct {
	CaseID      string `json:"caseID" bson:"caseID"`
	Category    string `json:"category" bson:"category"`
	Description string `json:"description" bson:"description"`
}
