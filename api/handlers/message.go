package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/mizan-meet/mizan-api/api"
	"github.com/mizan-meet/mizan-api/chat"
	"github.com/mizan-meet/mizan-api/config"
	"github.com/mizan-meet/mizan-api/databases"
	"github.com/mizan-meet/mizan-api/models"
)

// Message exported for testing purposes
type Message struct {
	DB      databases.MessageDatabase
	UDB     databases.UserDatabase
	Backend *databases.ChatBackend
}

// MessagesByOrganizationHandler returns the caller's conversation thread
// with the given organization, ordered oldest first
func (m Message) MessagesByOrganizationHandler(w http.ResponseWriter, r *http.Request) {
	orgID := mux.Vars(r)["organization_id"]

	info, err := api.AuthenticatedUser(r)
	if err != nil {
		config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, err)
		return
	}
	conversationID := chat.ConversationID(orgID, info.ID())

	zap.S().Debugf("conversation_id: %v", conversationID)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := m.DB.FindByConversation(ctx, conversationID)
	if err != nil {
		config.ErrorStatus("failed to get messages", http.StatusInternalServerError, w, err)
		return
	}

	// Because the frontend requires that the data elements inside models.ChatMessage exist, if
	// len == 0 then we will just return an empty data object
	if len(dbResp) == 0 {
		dbResp = []models.ChatMessage{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// CreateMessageHandler appends one message to the caller's conversation with
// the given organization. The persisted record is also published to any
// live messenger subscribers of the thread.
func (m Message) CreateMessageHandler(w http.ResponseWriter, r *http.Request) {
	orgID := mux.Vars(r)["organization_id"]

	info, err := api.AuthenticatedUser(r)
	if err != nil {
		config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, err)
		return
	}

	var requestBody struct {
		Body   string `json:"body"`
		Kind   string `json:"kind"`
		CaseID string `json:"caseId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if requestBody.Kind == "" {
		requestBody.Kind = models.MessageKindText
	}
	if requestBody.Kind == models.MessageKindText && requestBody.Body == "" {
		config.ErrorStatus("message body is required", http.StatusBadRequest, w, errMissingFields)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	senderName := info.UserName()
	if user, err := m.UDB.FindOne(ctx, bson.M{"_id": info.ID()}); err == nil {
		senderName = user.Details.Name
	}

	msg := chat.Message{
		ConversationID: chat.ConversationID(orgID, info.ID()),
		SenderID:       info.ID(),
		SenderName:     senderName,
		Body:           requestBody.Body,
		Kind:           chat.Kind(requestBody.Kind),
	}
	if msg.Kind == chat.KindCaseReference {
		if requestBody.CaseID == "" {
			config.ErrorStatus("caseId is required for case-reference messages", http.StatusBadRequest, w, errMissingFields)
			return
		}
		msg.CaseRef = &chat.CaseRecord{ID: requestBody.CaseID}
		if cases, err := m.Backend.ListCases(ctx, info.ID()); err == nil {
			for _, cr := range cases {
				if cr.ID == requestBody.CaseID {
					msg.CaseRef = &cr
					break
				}
			}
		}
	}

	confirmed, err := m.Backend.Append(ctx, msg)
	if err != nil {
		config.ErrorStatus("failed to send message", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(confirmed)
}
