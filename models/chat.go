package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Chat holds the structure for the chats collection in mongo. Exactly two
// participants; at most one chat exists per unordered participant pair.
type Chat struct {
	ID           primitive.ObjectID `json:"_id" bson:"_id"`
	Participants []string           `json:"participants" bson:"participants"`
	Messages     []ChatMessage      `json:"messages" bson:"messages"`
	CreatedAt    primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt    primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}

// ChatMessage is a single message inside a chat. Timestamps are assigned
// server-side at append time. ReadAt is set when the other participant marks
// the chat read; messages are never edited or deleted.
type ChatMessage struct {
	ID         primitive.ObjectID  `json:"_id" bson:"_id"`
	SenderID   string              `json:"senderId" bson:"senderId"`
	Text       string              `json:"text" bson:"text"`
	Attachment string              `json:"attachment,omitempty" bson:"attachment,omitempty"`
	ReplyTo    string              `json:"replyTo,omitempty" bson:"replyTo,omitempty"`
	CreatedAt  primitive.DateTime  `json:"createdAt" bson:"createdAt"`
	ReadAt     *primitive.DateTime `json:"readAt,omitempty" bson:"readAt,omitempty"`
}
