package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Lawyer holds the structure for the legacy lawyers collection in mongo.
// Profiles created before lawyers were folded into the users collection still
// live here; the lookup service falls back to this collection when an id does
// not resolve in users.
type Lawyer struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Details LawyerDetails      `json:"lawyer" bson:"lawyer"`
	Version int32              `json:"__v" bson:"__v"`
}

// LawyerDetails holds the structure for the inner lawyer details
type LawyerDetails struct {
	FullName              string             `json:"fullName" bson:"fullName"`
	Email                 string             `json:"email" bson:"email"`
	Phone                 string             `json:"phone" bson:"phone"`
	ProfileImage          string             `json:"profileImage" bson:"profileImage"`
	BarRegistrationNumber string             `json:"barRegistrationNumber" bson:"barRegistrationNumber"`
	Specialization        string             `json:"specialization" bson:"specialization"`
	CreatedAt             primitive.DateTime `json:"createdAt" bson:"createdAt"`
}

// Profile converts a legacy lawyer document to the display-safe user view
func (l Lawyer) Profile() UserProfile {
	return UserProfile{
		ID:                    l.ID.Hex(),
		FullName:              l.Details.FullName,
		Email:                 l.Details.Email,
		Role:                  RoleLawyer,
		Phone:                 l.Details.Phone,
		ProfileImage:          l.Details.ProfileImage,
		BarRegistrationNumber: l.Details.BarRegistrationNumber,
		Specialization:        l.Details.Specialization,
	}
}
