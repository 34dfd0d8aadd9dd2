package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Report is a persisted record of one AI analysis request/response pair.
// Reports are written once and never mutated.
type Report struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID      string             `bson:"userId" json:"userId"`
	Description string             `bson:"description" json:"description"`
	Analysis    string             `bson:"analysis" json:"analysis"`
	CreatedAt   primitive.DateTime `bson:"createdAt" json:"createdAt"`
}
