package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/nyagrik/nyay-api/api"
	"github.com/nyagrik/nyay-api/config"
	"github.com/nyagrik/nyay-api/databases"
	"github.com/nyagrik/nyay-api/models"
)

// Case handles the case lifecycle: upload, assignment, notes and hearing
// metadata
type Case struct {
	DB  databases.CaseDatabase
	UDB databases.UserDatabase
}

type createCaseRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Documents   []string `json:"documents"`
	Analysis    string   `json:"analysis"`
}

// CreateCaseHandler creates a new case for the session's client.
// Cases always start open and unclaimed.
func (c Case) CreateCaseHandler(w http.ResponseWriter, r *http.Request) {
	claims := api.SessionFromContext(r.Context())

	var req createCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Description) == "" {
		config.ErrorStatus("missing required fields", http.StatusBadRequest, w, fmt.Errorf("title and description are required"))
		return
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	documents := req.Documents
	if documents == nil {
		documents = []string{}
	}
	caseDoc := models.Case{
		ID: primitive.NewObjectID(),
		Details: models.CaseDetails{
			Title:            req.Title,
			Description:      req.Description,
			ClientID:         claims.UserID,
			AssignedLawyerID: "",
			Documents:        documents,
			Analysis:         req.Analysis,
			Status:           models.CaseStatusOpen,
			Notes:            []models.CaseNote{},
			CreatedAt:        now,
			UpdatedAt:        now,
		},
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := c.DB.InsertOne(ctx, caseDoc); err != nil {
		config.ErrorStatus("failed to create case", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":     caseDoc.ID.Hex(),
		"status": caseDoc.Details.Status,
	})
}

// CaseByIDHandler returns a case by ID
func (c Case) CaseByIDHandler(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["case_id"]

	bID, err := primitive.ObjectIDFromHex(caseID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := c.DB.FindOne(ctx, bson.M{"_id": bID})
	if err != nil {
		config.ErrorStatus("failed to get case by ID", http.StatusNotFound, w, err)
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

// CasesByClientIDHandler returns every case owned by a client
func (c Case) CasesByClientIDHandler(w http.ResponseWriter, r *http.Request) {
	clientID := mux.Vars(r)["client_id"]
	c.listCases(w, r, bson.M{"case.clientId": clientID})
}

// CasesByLawyerIDHandler returns every case currently assigned to a lawyer
func (c Case) CasesByLawyerIDHandler(w http.ResponseWriter, r *http.Request) {
	lawyerID := mux.Vars(r)["lawyer_id"]
	c.listCases(w, r, bson.M{"case.assignedLawyerId": lawyerID})
}

// OpenCasesHandler returns unclaimed open cases for the lawyer/intern queue
func (c Case) OpenCasesHandler(w http.ResponseWriter, r *http.Request) {
	c.listCases(w, r, bson.M{
		"case.status":           models.CaseStatusOpen,
		"case.assignedLawyerId": "",
	})
}

func (c Case) listCases(w http.ResponseWriter, r *http.Request, filter bson.M) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := c.DB.Find(ctx, filter)
	if err != nil {
		config.ErrorStatus("failed to get cases", http.StatusNotFound, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.Case{}
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// AcceptCaseHandler lets a lawyer or intern claim an open case. The update is
// a compare-and-set guarded on (status=open, no assigned lawyer) so two
// concurrent accepts cannot both win; the loser gets a conflict.
func (c Case) AcceptCaseHandler(w http.ResponseWriter, r *http.Request) {
	claims := api.SessionFromContext(r.Context())
	caseID := mux.Vars(r)["case_id"]

	bID, err := primitive.ObjectIDFromHex(caseID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	now := primitive.NewDateTimeFromTime(time.Now())
	res, err := c.DB.UpdateOne(ctx,
		bson.M{
			"_id":                   bID,
			"case.status":           models.CaseStatusOpen,
			"case.assignedLawyerId": "",
		},
		bson.M{"$set": bson.M{
			"case.assignedLawyerId": claims.UserID,
			"case.status":           models.CaseStatusInProgress,
			"case.updatedAt":        now,
		}},
	)
	if err != nil {
		config.ErrorStatus("failed to accept case", http.StatusInternalServerError, w, err)
		return
	}
	if res.MatchedCount == 0 {
		existing, findErr := c.DB.FindOne(ctx, bson.M{"_id": bID})
		if findErr != nil || existing == nil {
			config.ErrorStatus("failed to get case by ID", http.StatusNotFound, w, findErr)
			return
		}
		config.ErrorStatus("case is already assigned", http.StatusConflict, w, fmt.Errorf("case is held by lawyer '%s'", existing.Details.AssignedLawyerID))
		return
	}

	go c.notifyClientOfAssignment(bID, claims.UserID)

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Case accepted successfully",
	})
}

// UnassignCaseHandler releases a case back to the open queue. The compound
// match on the session's lawyer id stops a lawyer from unassigning a case
// held by someone else.
func (c Case) UnassignCaseHandler(w http.ResponseWriter, r *http.Request) {
	claims := api.SessionFromContext(r.Context())
	caseID := mux.Vars(r)["case_id"]

	bID, err := primitive.ObjectIDFromHex(caseID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	now := primitive.NewDateTimeFromTime(time.Now())
	res, err := c.DB.UpdateOne(ctx,
		bson.M{
			"_id":                   bID,
			"case.assignedLawyerId": claims.UserID,
		},
		bson.M{"$set": bson.M{
			"case.assignedLawyerId": "",
			"case.status":           models.CaseStatusOpen,
			"case.updatedAt":        now,
		}},
	)
	if err != nil {
		config.ErrorStatus("failed to unassign case", http.StatusInternalServerError, w, err)
		return
	}
	if res.MatchedCount == 0 {
		config.ErrorStatus("case not found or not assigned to you", http.StatusForbidden, w, fmt.Errorf("no case matched id '%s' with lawyer '%s'", caseID, claims.UserID))
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Case unassigned successfully",
	})
}

type addNoteRequest struct {
	Text string `json:"text"`
}

// AddCaseNoteHandler appends a timestamped note authored by the session's role
func (c Case) AddCaseNoteHandler(w http.ResponseWriter, r *http.Request) {
	claims := api.SessionFromContext(r.Context())
	caseID := mux.Vars(r)["case_id"]

	bID, err := primitive.ObjectIDFromHex(caseID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var req addNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		config.ErrorStatus("note text must not be empty", http.StatusBadRequest, w, fmt.Errorf("empty note text"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	now := primitive.NewDateTimeFromTime(time.Now())
	res, err := c.DB.UpdateOne(ctx,
		bson.M{"_id": bID},
		bson.M{
			"$push": bson.M{"case.notes": models.CaseNote{
				AuthorRole: claims.Role,
				Text:       req.Text,
				CreatedAt:  now,
			}},
			"$set": bson.M{"case.updatedAt": now},
		},
	)
	if err != nil {
		config.ErrorStatus("failed to add note", http.StatusInternalServerError, w, err)
		return
	}
	if res.MatchedCount == 0 {
		config.ErrorStatus("failed to get case by ID", http.StatusNotFound, w, fmt.Errorf("no case matched id '%s'", caseID))
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Note added successfully",
	})
}

// UpdateHearingDetailsHandler replaces the whole hearing-details sub-record
func (c Case) UpdateHearingDetailsHandler(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["case_id"]

	bID, err := primitive.ObjectIDFromHex(caseID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var hearing models.HearingDetails
	if err := json.NewDecoder(r.Body).Decode(&hearing); err != nil {
		config.ErrorStatus("hearing details are required", http.StatusBadRequest, w, err)
		return
	}
	if hearing.Orders == nil {
		hearing.Orders = []string{}
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	now := primitive.NewDateTimeFromTime(time.Now())
	res, err := c.DB.UpdateOne(ctx,
		bson.M{"_id": bID},
		bson.M{"$set": bson.M{
			"case.hearingDetails": hearing,
			"case.updatedAt":      now,
		}},
	)
	if err != nil {
		config.ErrorStatus("failed to update hearing details", http.StatusInternalServerError, w, err)
		return
	}
	if res.MatchedCount == 0 {
		config.ErrorStatus("failed to get case by ID", http.StatusNotFound, w, fmt.Errorf("no case matched id '%s'", caseID))
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Hearing details updated successfully",
	})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateCaseStatusHandler moves an assigned case between in_progress,
// info_requested and closed. Only the assigned lawyer may transition it.
func (c Case) UpdateCaseStatusHandler(w http.ResponseWriter, r *http.Request) {
	claims := api.SessionFromContext(r.Context())
	caseID := mux.Vars(r)["case_id"]

	bID, err := primitive.ObjectIDFromHex(caseID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	validStatuses := map[string]bool{
		models.CaseStatusInProgress:    true,
		models.CaseStatusInfoRequested: true,
		models.CaseStatusClosed:        true,
	}
	if !validStatuses[req.Status] {
		config.ErrorStatus("invalid status", http.StatusBadRequest, w, fmt.Errorf("status '%s' is not valid", req.Status))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	now := primitive.NewDateTimeFromTime(time.Now())
	res, err := c.DB.UpdateOne(ctx,
		bson.M{
			"_id":                   bID,
			"case.assignedLawyerId": claims.UserID,
		},
		bson.M{"$set": bson.M{
			"case.status":    req.Status,
			"case.updatedAt": now,
		}},
	)
	if err != nil {
		config.ErrorStatus("failed to update case status", http.StatusInternalServerError, w, err)
		return
	}
	if res.MatchedCount == 0 {
		config.ErrorStatus("case not found or not assigned to you", http.StatusForbidden, w, fmt.Errorf("no case matched id '%s' with lawyer '%s'", caseID, claims.UserID))
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Case status updated successfully",
	})
}

// notifyClientOfAssignment emails the case's client once a lawyer accepts.
// Best-effort: any failure is logged and dropped.
func (c Case) notifyClientOfAssignment(caseID primitive.ObjectID, lawyerID string) {
	ctx, cancel := api.WithQueryTimeout(context.Background())
	defer cancel()

	caseDoc, err := c.DB.FindOne(ctx, bson.M{"_id": caseID})
	if err != nil {
		zap.S().Warnw("failed to load case for assignment email",
			"caseId", caseID.Hex(),
			"error", err)
		return
	}

	clientOID, err := primitive.ObjectIDFromHex(caseDoc.Details.ClientID)
	if err != nil {
		return
	}
	client, err := c.UDB.FindOne(ctx, bson.M{"_id": clientOID})
	if err != nil {
		zap.S().Warnw("failed to load client for assignment email",
			"caseId", caseID.Hex(),
			"error", err)
		return
	}

	lawyerName := "A lawyer"
	if lawyerOID, oidErr := primitive.ObjectIDFromHex(lawyerID); oidErr == nil {
		if lawyer, lErr := c.UDB.FindOne(ctx, bson.M{"_id": lawyerOID}); lErr == nil {
			lawyerName = lawyer.Details.FullName
		}
	}

	body := fmt.Sprintf("Hi %s,\n\n%s has taken up your case \"%s\". You can message them from your dashboard.",
		client.Details.FullName, lawyerName, caseDoc.Details.Title)
	if err := sendEmail(client.Details.FullName, client.Details.Email, "Your case has been accepted", body); err != nil {
		zap.S().Warnw("failed to send assignment email",
			"caseId", caseID.Hex(),
			"error", err)
	}
}
