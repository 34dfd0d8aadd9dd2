package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Roles a user can register with.
const (
	RoleClient = "client"
	RoleLawyer = "lawyer"
	RoleIntern = "intern"
)

// User holds the structure for the user collection in mongo
type User struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Details UserDetails        `json:"user" bson:"user"`
	Version int32              `json:"__v" bson:"__v"`
}

// UserDetails holds the structure for the inner user structure as defined in the user collection in mongo
type UserDetails struct {
	FullName     string `json:"fullName" bson:"fullName"`
	Email        string `json:"email" bson:"email"`
	Password     string `json:"password" bson:"password"`
	Role         string `json:"role" bson:"role"` // "client", "lawyer", "intern"
	Phone        string `json:"phone" bson:"phone"`
	ProfileImage string `json:"profileImage" bson:"profileImage"`

	// Role-specific fields
	BarRegistrationNumber string `json:"barRegistrationNumber,omitempty" bson:"barRegistrationNumber,omitempty"` // lawyer
	Specialization        string `json:"specialization,omitempty" bson:"specialization,omitempty"`               // lawyer
	University            string `json:"university,omitempty" bson:"university,omitempty"`                       // intern

	CreatedAt primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}

// UserProfile is the display-safe view of a user returned by lookup endpoints.
// It never carries the password hash.
type UserProfile struct {
	ID                    string `json:"_id"`
	FullName              string `json:"fullName"`
	Email                 string `json:"email"`
	Role                  string `json:"role"`
	Phone                 string `json:"phone"`
	ProfileImage          string `json:"profileImage"`
	BarRegistrationNumber string `json:"barRegistrationNumber,omitempty"`
	Specialization        string `json:"specialization,omitempty"`
	University            string `json:"university,omitempty"`
}

// Profile converts a user document to its display-safe view
func (u User) Profile() UserProfile {
	return UserProfile{
		ID:                    u.ID.Hex(),
		FullName:              u.Details.FullName,
		Email:                 u.Details.Email,
		Role:                  u.Details.Role,
		Phone:                 u.Details.Phone,
		ProfileImage:          u.Details.ProfileImage,
		BarRegistrationNumber: u.Details.BarRegistrationNumber,
		Specialization:        u.Details.Specialization,
		University:            u.Details.University,
	}
}
