package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/nyagrik/nyay-api/api"
	"github.com/nyagrik/nyay-api/config"
	"github.com/nyagrik/nyay-api/databases"
	"github.com/nyagrik/nyay-api/models"
)

// Auth handles registration, login and session verification
type Auth struct {
	DB databases.UserDatabase
}

type registerRequest struct {
	FullName              string `json:"fullName"`
	Email                 string `json:"email"`
	Password              string `json:"password"`
	Role                  string `json:"role"`
	Phone                 string `json:"phone"`
	ProfileImage          string `json:"profileImage"`
	BarRegistrationNumber string `json:"barRegistrationNumber"`
	Specialization        string `json:"specialization"`
	University            string `json:"university"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// RegisterHandler creates a user account with a bcrypt-hashed password
func (a Auth) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if req.FullName == "" || email == "" || req.Password == "" {
		config.ErrorStatus("missing required fields", http.StatusBadRequest, w, fmt.Errorf("fullName, email and password are required"))
		return
	}
	if req.Role != models.RoleClient && req.Role != models.RoleLawyer && req.Role != models.RoleIntern {
		config.ErrorStatus("invalid role", http.StatusBadRequest, w, fmt.Errorf("role '%s' is not valid", req.Role))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	// check if the email is already registered
	existingUser, _ := a.DB.FindOne(ctx, bson.M{"user.email": email})
	if existingUser != nil {
		config.ErrorStatus("email already exists", http.StatusConflict, w, fmt.Errorf("duplicate email"))
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	user := models.User{
		ID: primitive.NewObjectID(),
		Details: models.UserDetails{
			FullName:              req.FullName,
			Email:                 email,
			Password:              string(hashedPassword),
			Role:                  req.Role,
			Phone:                 req.Phone,
			ProfileImage:          req.ProfileImage,
			BarRegistrationNumber: req.BarRegistrationNumber,
			Specialization:        req.Specialization,
			University:            req.University,
			CreatedAt:             now,
			UpdatedAt:             now,
		},
	}

	if _, err := a.DB.InsertOne(ctx, user); err != nil {
		config.ErrorStatus("failed to insert user", http.StatusInternalServerError, w, err)
		return
	}

	// welcome email is best-effort
	go func(name, email string) {
		body := fmt.Sprintf("Hi %s,\n\nYour Nyay account is ready. Log in to upload a case, browse lawyers or start a conversation.", name)
		if err := sendEmail(name, email, "Welcome to Nyay", body); err != nil {
			zap.S().Warnw("failed to send welcome email",
				"email", email,
				"error", err)
		}
	}(req.FullName, email)

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user.Profile())
}

// LoginHandler verifies credentials and issues a session token as an
// http-only cookie, echoed in the response body
func (a Auth) LoginHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		config.ErrorStatus("missing credentials", http.StatusBadRequest, w, fmt.Errorf("email and password are required"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := a.DB.FindOne(ctx, bson.M{"user.email": email})
	if err != nil {
		config.ErrorStatus("no user found with that email", http.StatusNotFound, w, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Details.Password), []byte(req.Password)); err != nil {
		config.ErrorStatus("invalid credentials", http.StatusUnauthorized, w, fmt.Errorf("password comparison failed"))
		return
	}

	token, err := api.CreateSessionToken(user.ID.Hex(), user.Details.Role)
	if err != nil {
		config.ErrorStatus("failed to create session token", http.StatusInternalServerError, w, err)
		return
	}

	http.SetCookie(w, api.SessionCookie(token))
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(loginResponse{
		Token:  token,
		UserID: user.ID.Hex(),
		Role:   user.Details.Role,
	})
}

// LogoutHandler expires the session cookie
func (a Auth) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, api.ExpiredSessionCookie())
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message": "logged out"}`))
}

// SessionHandler echoes the verified session claims for the dashboard shell
func (a Auth) SessionHandler(w http.ResponseWriter, r *http.Request) {
	claims := api.SessionFromContext(r.Context())
	if claims == nil {
		config.ErrorStatus("unauthenticated", http.StatusUnauthorized, w, fmt.Errorf("no session on request"))
		return
	}
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"userId": claims.UserID,
		"role":   claims.Role,
	})
}
