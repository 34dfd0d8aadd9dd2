package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/nyagrik/nyay-api/api/handlers"
	"github.com/nyagrik/nyay-api/databases"
	mocksdb "github.com/nyagrik/nyay-api/databases/mocks"
	"github.com/nyagrik/nyay-api/models"
)

const testChatID = "5fc51f58c72ff10004dca500"

func TestChat_StartChatHandlerReturnsExistingChat(t *testing.T) {
	body := []byte(`{"participantId": "` + testLawyerID + `"}`)
	req := sessionRequest(t, "POST", "/api/v1/chat", body, testClientID, models.RoleClient)

	var db databases.DatabaseHelper
	var conn databases.CollectionHelper
	var singleResultHelper databases.SingleResultHelper

	db = &mocksdb.DatabaseHelper{}
	conn = &mocksdb.CollectionHelper{}
	singleResultHelper = &mocksdb.SingleResultHelper{}

	// a chat between the pair already exists, started by the other party
	singleResultHelper.(*mocksdb.SingleResultHelper).On("Decode", mock.Anything).
		Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Chat)
		(*arg).Participants = []string{testLawyerID, testClientID}
	})
	conn.(*mocksdb.CollectionHelper).On("FindOne", mock.Anything, mock.Anything).
		Return(singleResultHelper)
	db.(*mocksdb.DatabaseHelper).On("Collection", "chats").Return(conn)

	c := handlers.Chat{DB: databases.NewChatDatabase(db)}

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.StartChatHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	conn.(*mocksdb.CollectionHelper).AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestChat_StartChatHandlerCreatesNewChat(t *testing.T) {
	body := []byte(`{"participantId": "` + testLawyerID + `"}`)
	req := sessionRequest(t, "POST", "/api/v1/chat", body, testClientID, models.RoleClient)

	var db databases.DatabaseHelper
	var conn databases.CollectionHelper
	var singleResultHelper databases.SingleResultHelper

	db = &mocksdb.DatabaseHelper{}
	conn = &mocksdb.CollectionHelper{}
	singleResultHelper = &mocksdb.SingleResultHelper{}

	singleResultHelper.(*mocksdb.SingleResultHelper).On("Decode", mock.Anything).
		Return(errors.New("mongo: no documents in result"))
	conn.(*mocksdb.CollectionHelper).On("FindOne", mock.Anything, mock.Anything).
		Return(singleResultHelper)

	insertResult := &mocksdb.InsertOneResultHelper{}
	conn.(*mocksdb.CollectionHelper).On("InsertOne", mock.Anything, mock.Anything).
		Return(insertResult, nil).Run(func(args mock.Arguments) {
		chat := args.Get(1).(models.Chat)
		assert.ElementsMatch(t, []string{testClientID, testLawyerID}, chat.Participants)
		assert.Empty(t, chat.Messages)
	})
	db.(*mocksdb.DatabaseHelper).On("Collection", "chats").Return(conn)

	c := handlers.Chat{DB: databases.NewChatDatabase(db)}

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.StartChatHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestChat_StartChatHandlerRejectsSelfChat(t *testing.T) {
	body := []byte(`{"participantId": "` + testClientID + `"}`)
	req := sessionRequest(t, "POST", "/api/v1/chat", body, testClientID, models.RoleClient)

	c := handlers.Chat{}

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.StartChatHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid participant")
}

func TestChat_SendMessageHandlerUnknownChat(t *testing.T) {
	body := []byte(`{"text": "hello"}`)
	req := sessionRequest(t, "POST", "/api/v1/chat/"+testChatID+"/message", body, testClientID, models.RoleClient)
	req = mux.SetURLVars(req, map[string]string{"chat_id": testChatID})

	var db databases.DatabaseHelper
	var conn databases.CollectionHelper
	var singleResultHelper databases.SingleResultHelper

	db = &mocksdb.DatabaseHelper{}
	conn = &mocksdb.CollectionHelper{}
	singleResultHelper = &mocksdb.SingleResultHelper{}

	singleResultHelper.(*mocksdb.SingleResultHelper).On("Decode", mock.Anything).
		Return(errors.New("mongo: no documents in result"))
	conn.(*mocksdb.CollectionHelper).On("FindOne", mock.Anything, mock.Anything).
		Return(singleResultHelper)
	db.(*mocksdb.DatabaseHelper).On("Collection", "chats").Return(conn)

	c := handlers.Chat{DB: databases.NewChatDatabase(db)}

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.SendMessageHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	conn.(*mocksdb.CollectionHelper).AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestChat_SendMessageHandlerAssignsServerTimestamp(t *testing.T) {
	body := []byte(`{"text": "hello"}`)
	req := sessionRequest(t, "POST", "/api/v1/chat/"+testChatID+"/message", body, testClientID, models.RoleClient)
	req = mux.SetURLVars(req, map[string]string{"chat_id": testChatID})

	var db databases.DatabaseHelper
	var conn databases.CollectionHelper
	var singleResultHelper databases.SingleResultHelper

	db = &mocksdb.DatabaseHelper{}
	conn = &mocksdb.CollectionHelper{}
	singleResultHelper = &mocksdb.SingleResultHelper{}

	singleResultHelper.(*mocksdb.SingleResultHelper).On("Decode", mock.Anything).
		Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Chat)
		(*arg).Participants = []string{testClientID, testLawyerID}
	})
	conn.(*mocksdb.CollectionHelper).On("FindOne", mock.Anything, mock.Anything).
		Return(singleResultHelper)
	conn.(*mocksdb.CollectionHelper).On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)
	db.(*mocksdb.DatabaseHelper).On("Collection", "chats").Return(conn)

	c := handlers.Chat{DB: databases.NewChatDatabase(db)}

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.SendMessageHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)

	var message models.ChatMessage
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &message))
	assert.Equal(t, testClientID, message.SenderID)
	assert.NotZero(t, message.CreatedAt)
	assert.Nil(t, message.ReadAt)
}

func TestChat_SendMessageHandlerRejectsEmptyMessage(t *testing.T) {
	body := []byte(`{"text": "   "}`)
	req := sessionRequest(t, "POST", "/api/v1/chat/"+testChatID+"/message", body, testClientID, models.RoleClient)
	req = mux.SetURLVars(req, map[string]string{"chat_id": testChatID})

	c := handlers.Chat{}

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.SendMessageHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "message must have text or an attachment")
}

func TestChat_MarkChatReadHandlerSuccess(t *testing.T) {
	req := sessionRequest(t, "PUT", "/api/v1/chat/"+testChatID+"/read", nil, testClientID, models.RoleClient)
	req = mux.SetURLVars(req, map[string]string{"chat_id": testChatID})

	var db databases.DatabaseHelper
	var conn databases.CollectionHelper

	db = &mocksdb.DatabaseHelper{}
	conn = &mocksdb.CollectionHelper{}

	conn.(*mocksdb.CollectionHelper).On("UpdateOne", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)
	db.(*mocksdb.DatabaseHelper).On("Collection", "chats").Return(conn)

	c := handlers.Chat{DB: databases.NewChatDatabase(db)}

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.MarkChatReadHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Chat marked as read")
}

func TestChat_ChatsByUserIDHandlerReturnsOwnChats(t *testing.T) {
	req := sessionRequest(t, "GET", "/api/v1/chats/user/"+testClientID, nil, testClientID, models.RoleClient)
	req = mux.SetURLVars(req, map[string]string{"user_id": testClientID})

	var db databases.DatabaseHelper
	var conn databases.CollectionHelper

	db = &mocksdb.DatabaseHelper{}
	conn = &mocksdb.CollectionHelper{}

	cursor := &mocksdb.CursorHelper{}
	cursor.On("All", mock.Anything, mock.Anything).Return(nil)
	cursor.On("Close", mock.Anything).Return(nil)
	conn.(*mocksdb.CollectionHelper).On("Find", mock.Anything, mock.Anything, mock.Anything).
		Return(cursor, nil)
	db.(*mocksdb.DatabaseHelper).On("Collection", "chats").Return(conn)

	c := handlers.Chat{DB: databases.NewChatDatabase(db)}

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.ChatsByUserIDHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]", rr.Body.String())
}

func TestChat_ChatsByUserIDHandlerRejectsOtherUsers(t *testing.T) {
	// a lawyer's session trying to list the client's chats
	req := sessionRequest(t, "GET", "/api/v1/chats/user/"+testClientID, nil, testLawyerID, models.RoleLawyer)
	req = mux.SetURLVars(req, map[string]string{"user_id": testClientID})

	var db databases.DatabaseHelper
	var conn databases.CollectionHelper

	db = &mocksdb.DatabaseHelper{}
	conn = &mocksdb.CollectionHelper{}
	db.(*mocksdb.DatabaseHelper).On("Collection", "chats").Return(conn)

	c := handlers.Chat{DB: databases.NewChatDatabase(db)}

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.ChatsByUserIDHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "you may only list your own chats")
	conn.(*mocksdb.CollectionHelper).AssertNotCalled(t, "Find", mock.Anything, mock.Anything, mock.Anything)
}

func TestChat_MarkChatReadHandlerNotParticipant(t *testing.T) {
	req := sessionRequest(t, "PUT", "/api/v1/chat/"+testChatID+"/read", nil, testClientID, models.RoleClient)
	req = mux.SetURLVars(req, map[string]string{"chat_id": testChatID})

	var db databases.DatabaseHelper
	var conn databases.CollectionHelper

	db = &mocksdb.DatabaseHelper{}
	conn = &mocksdb.CollectionHelper{}

	conn.(*mocksdb.CollectionHelper).On("UpdateOne", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 0}, nil)
	db.(*mocksdb.DatabaseHelper).On("Collection", "chats").Return(conn)

	c := handlers.Chat{DB: databases.NewChatDatabase(db)}

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.MarkChatReadHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
