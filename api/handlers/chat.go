package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nyagrik/nyay-api/api"
	"github.com/nyagrik/nyay-api/config"
	"github.com/nyagrik/nyay-api/databases"
	"github.com/nyagrik/nyay-api/models"
)

// Chat handles two-party conversations and message delivery
type Chat struct {
	DB  databases.ChatDatabase
	Hub *ChatHub
}

type startChatRequest struct {
	ParticipantID string `json:"participantId"`
}

// StartChatHandler opens a chat between the session's user and another user.
// Idempotent: if a chat between the pair already exists it is returned
// instead of creating a duplicate, regardless of who started it.
func (c Chat) StartChatHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	claims := api.SessionFromContext(r.Context())

	var req startChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if req.ParticipantID == "" || req.ParticipantID == claims.UserID {
		config.ErrorStatus("invalid participant", http.StatusBadRequest, w, fmt.Errorf("participantId must name another user"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	existing, err := c.DB.FindOne(ctx, bson.M{
		"participants": bson.M{
			"$all":  []string{claims.UserID, req.ParticipantID},
			"$size": 2,
		},
	})
	if err == nil && existing != nil {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(existing)
		return
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	chat := models.Chat{
		ID:           primitive.NewObjectID(),
		Participants: []string{claims.UserID, req.ParticipantID},
		Messages:     []models.ChatMessage{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := c.DB.InsertOne(ctx, chat); err != nil {
		config.ErrorStatus("failed to create chat", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(chat)
}

type sendMessageRequest struct {
	Text       string `json:"text"`
	Attachment string `json:"attachment"`
	ReplyTo    string `json:"replyTo"`
}

// SendMessageHandler appends a message to a chat. The timestamp is assigned
// here, never taken from the client, and the other participant gets a
// websocket push if connected.
func (c Chat) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	claims := api.SessionFromContext(r.Context())
	chatID := mux.Vars(r)["chat_id"]

	bID, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" && req.Attachment == "" {
		config.ErrorStatus("message must have text or an attachment", http.StatusBadRequest, w, fmt.Errorf("empty message"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	chat, err := c.DB.FindOne(ctx, bson.M{"_id": bID, "participants": claims.UserID})
	if err != nil {
		config.ErrorStatus("failed to get chat by ID", http.StatusNotFound, w, err)
		return
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	message := models.ChatMessage{
		ID:         primitive.NewObjectID(),
		SenderID:   claims.UserID,
		Text:       req.Text,
		Attachment: req.Attachment,
		ReplyTo:    req.ReplyTo,
		CreatedAt:  now,
	}

	if _, err := c.DB.UpdateOne(ctx,
		bson.M{"_id": bID},
		bson.M{
			"$push": bson.M{"messages": message},
			"$set":  bson.M{"updatedAt": now},
		},
	); err != nil {
		config.ErrorStatus("failed to send message", http.StatusInternalServerError, w, err)
		return
	}

	if c.Hub != nil {
		for _, participant := range chat.Participants {
			if participant != claims.UserID {
				c.Hub.Broadcast(participant, map[string]interface{}{
					"type":    "chat_message",
					"chatId":  chatID,
					"message": message,
				})
			}
		}
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(message)
}

// MarkChatReadHandler stamps every unread message from the other participant
// with a read timestamp
func (c Chat) MarkChatReadHandler(w http.ResponseWriter, r *http.Request) {
	claims := api.SessionFromContext(r.Context())
	chatID := mux.Vars(r)["chat_id"]

	bID, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	now := primitive.NewDateTimeFromTime(time.Now())
	arrayFilters := options.ArrayFilters{
		Filters: []interface{}{bson.M{
			"m.senderId": bson.M{"$ne": claims.UserID},
			"m.readAt":   nil,
		}},
	}
	opts := options.Update().SetArrayFilters(arrayFilters)

	res, err := c.DB.UpdateOne(ctx,
		bson.M{"_id": bID, "participants": claims.UserID},
		bson.M{"$set": bson.M{"messages.$[m].readAt": now}},
		opts,
	)
	if err != nil {
		config.ErrorStatus("failed to mark chat read", http.StatusInternalServerError, w, err)
		return
	}
	if res.MatchedCount == 0 {
		config.ErrorStatus("failed to get chat by ID", http.StatusNotFound, w, fmt.Errorf("no chat matched id '%s'", chatID))
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Chat marked as read",
	})
}

// ChatByIDHandler returns a chat's full message history. Only participants
// may read it.
func (c Chat) ChatByIDHandler(w http.ResponseWriter, r *http.Request) {
	claims := api.SessionFromContext(r.Context())
	chatID := mux.Vars(r)["chat_id"]

	bID, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := c.DB.FindOne(ctx, bson.M{"_id": bID, "participants": claims.UserID})
	if err != nil {
		config.ErrorStatus("failed to get chat by ID", http.StatusNotFound, w, err)
		return
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// ChatsByUserIDHandler lists every chat a user participates in. Chats carry
// full message bodies, so only the user themselves may list them.
func (c Chat) ChatsByUserIDHandler(w http.ResponseWriter, r *http.Request) {
	claims := api.SessionFromContext(r.Context())
	userID := mux.Vars(r)["user_id"]

	if claims.UserID != userID {
		config.ErrorStatus("you may only list your own chats", http.StatusForbidden, w, fmt.Errorf("session user '%s' does not match path user '%s'", claims.UserID, userID))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	opts := options.Find().SetSort(bson.M{"updatedAt": -1})
	dbResp, err := c.DB.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		config.ErrorStatus("failed to get chats", http.StatusNotFound, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.Chat{}
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
