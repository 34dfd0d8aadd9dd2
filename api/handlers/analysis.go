package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/nyagrik/nyay-api/ai"
	"github.com/nyagrik/nyay-api/api"
	"github.com/nyagrik/nyay-api/config"
	"github.com/nyagrik/nyay-api/databases"
	"github.com/nyagrik/nyay-api/models"
)

const legalAnalysisPrompt = "You are a legal expert. Analyze the following case description and provide a detailed legal analysis."

// Analysis proxies case descriptions through the text generator and keeps a
// per-user history of the reports
type Analysis struct {
	RDB       databases.ReportDatabase
	Generator ai.TextGenerator
}

type analyzeRequest struct {
	Description string `json:"description"`
}

type analyzeResponse struct {
	Analysis string `json:"analysis"`
}

// AnalyzeHandler runs an AI analysis of a case description. The analysis text
// is always returned to the caller even if persisting the report fails.
func (a Analysis) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	claims := api.SessionFromContext(r.Context())

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		config.ErrorStatus("description must not be empty", http.StatusBadRequest, w, fmt.Errorf("empty description"))
		return
	}

	analysis, err := a.Generator.GenerateText(r.Context(), legalAnalysisPrompt, req.Description)
	if err != nil {
		config.ErrorStatus("analysis service unavailable", http.StatusBadGateway, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	report := models.Report{
		UserID:      claims.UserID,
		Description: req.Description,
		Analysis:    analysis,
		CreatedAt:   primitive.NewDateTimeFromTime(time.Now()),
	}
	if _, err := a.RDB.InsertOne(ctx, report); err != nil {
		zap.S().Errorw("failed to persist analysis report",
			"userId", claims.UserID,
			"error", err)
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(analyzeResponse{Analysis: analysis})
}

// ReportsHandler lists the session user's saved analysis reports, newest first
func (a Analysis) ReportsHandler(w http.ResponseWriter, r *http.Request) {
	claims := api.SessionFromContext(r.Context())

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	dbResp, err := a.RDB.Find(ctx, bson.M{"userId": claims.UserID}, opts)
	if err != nil {
		config.ErrorStatus("failed to get reports", http.StatusNotFound, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.Report{}
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
