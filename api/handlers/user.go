package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nyagrik/nyay-api/api"
	"github.com/nyagrik/nyay-api/config"
	"github.com/nyagrik/nyay-api/databases"
	"github.com/nyagrik/nyay-api/models"
)

// User handles user lookups and profile updates
type User struct {
	DB  databases.UserDatabase
	LDB databases.LawyerDatabase
}

// UserByIDHandler returns the display-safe profile of a single user
func (u User) UserByIDHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	userID := mux.Vars(r)["user_id"]

	bID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := u.DB.FindOne(ctx, bson.M{"_id": bID})
	if err != nil {
		config.ErrorStatus("failed to get user by ID", http.StatusNotFound, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(user.Profile())
}

type fetchUsersByIdsRequest struct {
	IDs []string `json:"ids"`
}

// FetchUsersByIdsHandler resolves a batch of user ids to profiles in one
// round trip. Ids that miss the users collection are retried against the
// legacy lawyers collection; ids that resolve nowhere are dropped from the
// response rather than failing the whole batch.
func (u User) FetchUsersByIdsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req fetchUsersByIdsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	// malformed and repeated ids are dropped so one profile comes back per user
	oids := make([]primitive.ObjectID, 0, len(req.IDs))
	seen := make(map[string]bool, len(req.IDs))
	for _, id := range req.IDs {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil || seen[oid.Hex()] {
			continue
		}
		seen[oid.Hex()] = true
		oids = append(oids, oid)
	}

	profiles := []models.UserProfile{}
	if len(oids) == 0 {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(profiles)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	users, err := u.DB.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		config.ErrorStatus("failed to get users", http.StatusInternalServerError, w, err)
		return
	}

	found := make(map[string]bool, len(users))
	for _, user := range users {
		profiles = append(profiles, user.Profile())
		found[user.ID.Hex()] = true
	}

	var leftovers []primitive.ObjectID
	for _, oid := range oids {
		if !found[oid.Hex()] {
			leftovers = append(leftovers, oid)
		}
	}
	if len(leftovers) > 0 {
		lawyers, err := u.LDB.Find(ctx, bson.M{"_id": bson.M{"$in": leftovers}})
		if err == nil {
			for _, lawyer := range lawyers {
				profiles = append(profiles, lawyer.Profile())
			}
		}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(profiles)
}

// LawyersDirectoryHandler lists every registered lawyer for the browse page
func (u User) LawyersDirectoryHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	users, err := u.DB.Find(ctx, bson.M{"user.role": models.RoleLawyer})
	if err != nil {
		config.ErrorStatus("failed to get lawyers", http.StatusNotFound, w, err)
		return
	}

	profiles := []models.UserProfile{}
	for _, user := range users {
		profiles = append(profiles, user.Profile())
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(profiles)
}

type updateUserRequest struct {
	FullName              *string `json:"fullName"`
	Phone                 *string `json:"phone"`
	ProfileImage          *string `json:"profileImage"`
	BarRegistrationNumber *string `json:"barRegistrationNumber"`
	Specialization        *string `json:"specialization"`
	University            *string `json:"university"`
}

// UpdateUserByIDHandler lets a user edit their own profile fields. Email,
// password and role are not mutable here.
func (u User) UpdateUserByIDHandler(w http.ResponseWriter, r *http.Request) {
	claims := api.SessionFromContext(r.Context())
	userID := mux.Vars(r)["user_id"]

	if claims.UserID != userID {
		config.ErrorStatus("you may only update your own profile", http.StatusForbidden, w, fmt.Errorf("session user '%s' does not match path user '%s'", claims.UserID, userID))
		return
	}

	bID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	set := bson.M{"user.updatedAt": primitive.NewDateTimeFromTime(time.Now())}
	if req.FullName != nil {
		set["user.fullName"] = *req.FullName
	}
	if req.Phone != nil {
		set["user.phone"] = *req.Phone
	}
	if req.ProfileImage != nil {
		set["user.profileImage"] = *req.ProfileImage
	}
	if req.BarRegistrationNumber != nil {
		set["user.barRegistrationNumber"] = *req.BarRegistrationNumber
	}
	if req.Specialization != nil {
		set["user.specialization"] = *req.Specialization
	}
	if req.University != nil {
		set["user.university"] = *req.University
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	res, err := u.DB.UpdateOne(ctx, bson.M{"_id": bID}, bson.M{"$set": set})
	if err != nil {
		config.ErrorStatus("failed to update user", http.StatusInternalServerError, w, err)
		return
	}
	if res.MatchedCount == 0 {
		config.ErrorStatus("failed to get user by ID", http.StatusNotFound, w, fmt.Errorf("no user matched id '%s'", userID))
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Profile updated successfully",
	})
}
