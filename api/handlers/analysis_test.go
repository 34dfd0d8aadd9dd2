package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/nyagrik/nyay-api/api/handlers"
	"github.com/nyagrik/nyay-api/databases"
	mocksdb "github.com/nyagrik/nyay-api/databases/mocks"
	"github.com/nyagrik/nyay-api/models"
)

type stubGenerator struct {
	text string
	err  error
}

func (s stubGenerator) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return s.text, s.err
}

func TestAnalysis_AnalyzeHandlerRejectsEmptyDescription(t *testing.T) {
	body := []byte(`{"description": "  "}`)
	req := sessionRequest(t, "POST", "/api/v1/analysis", body, testClientID, models.RoleClient)

	a := handlers.Analysis{Generator: stubGenerator{}}

	rr := httptest.NewRecorder()
	http.HandlerFunc(a.AnalyzeHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "description must not be empty")
}

func TestAnalysis_AnalyzeHandlerGeneratorFailure(t *testing.T) {
	body := []byte(`{"description": "My landlord refuses to return the deposit"}`)
	req := sessionRequest(t, "POST", "/api/v1/analysis", body, testClientID, models.RoleClient)

	a := handlers.Analysis{Generator: stubGenerator{err: errors.New("model overloaded")}}

	rr := httptest.NewRecorder()
	http.HandlerFunc(a.AnalyzeHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Contains(t, rr.Body.String(), "analysis service unavailable")
}

func TestAnalysis_AnalyzeHandlerPersistsReport(t *testing.T) {
	body := []byte(`{"description": "My landlord refuses to return the deposit"}`)
	req := sessionRequest(t, "POST", "/api/v1/analysis", body, testClientID, models.RoleClient)

	var db databases.DatabaseHelper
	var conn databases.CollectionHelper

	db = &mocksdb.DatabaseHelper{}
	conn = &mocksdb.CollectionHelper{}

	insertResult := &mocksdb.InsertOneResultHelper{}
	conn.(*mocksdb.CollectionHelper).On("InsertOne", mock.Anything, mock.Anything).
		Return(insertResult, nil).Run(func(args mock.Arguments) {
		report := args.Get(1).(models.Report)
		assert.Equal(t, testClientID, report.UserID)
		assert.Equal(t, "This falls under tenancy law.", report.Analysis)
	})
	db.(*mocksdb.DatabaseHelper).On("Collection", "reports").Return(conn)

	a := handlers.Analysis{
		RDB:       databases.NewReportDatabase(db),
		Generator: stubGenerator{text: "This falls under tenancy law."},
	}

	rr := httptest.NewRecorder()
	http.HandlerFunc(a.AnalyzeHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "This falls under tenancy law.")
}

func TestAnalysis_AnalyzeHandlerReturnsAnalysisWhenInsertFails(t *testing.T) {
	body := []byte(`{"description": "My landlord refuses to return the deposit"}`)
	req := sessionRequest(t, "POST", "/api/v1/analysis", body, testClientID, models.RoleClient)

	var db databases.DatabaseHelper
	var conn databases.CollectionHelper

	db = &mocksdb.DatabaseHelper{}
	conn = &mocksdb.CollectionHelper{}

	conn.(*mocksdb.CollectionHelper).On("InsertOne", mock.Anything, mock.Anything).
		Return(nil, errors.New("mocked-error"))
	db.(*mocksdb.DatabaseHelper).On("Collection", "reports").Return(conn)

	a := handlers.Analysis{
		RDB:       databases.NewReportDatabase(db),
		Generator: stubGenerator{text: "This falls under tenancy law."},
	}

	rr := httptest.NewRecorder()
	http.HandlerFunc(a.AnalyzeHandler).ServeHTTP(rr, req)

	// the caller still gets their analysis even though persistence failed
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "This falls under tenancy law.")
}

func TestAnalysis_ReportsHandlerReturnsEmptyArray(t *testing.T) {
	req := sessionRequest(t, "GET", "/api/v1/analysis/reports", nil, testClientID, models.RoleClient)

	var db databases.DatabaseHelper
	var conn databases.CollectionHelper

	db = &mocksdb.DatabaseHelper{}
	conn = &mocksdb.CollectionHelper{}

	cursor := &mocksdb.CursorHelper{}
	cursor.On("All", mock.Anything, mock.Anything).Return(nil)
	cursor.On("Close", mock.Anything).Return(nil)
	conn.(*mocksdb.CollectionHelper).On("Find", mock.Anything, mock.Anything, mock.Anything).
		Return(cursor, nil)
	db.(*mocksdb.DatabaseHelper).On("Collection", "reports").Return(conn)

	a := handlers.Analysis{RDB: databases.NewReportDatabase(db)}

	rr := httptest.NewRecorder()
	http.HandlerFunc(a.ReportsHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]", rr.Body.String())
}
