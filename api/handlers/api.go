package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/nyagrik/nyay-api/ai"
	"github.com/nyagrik/nyay-api/api"
	"github.com/nyagrik/nyay-api/api/scheduler"
	"github.com/nyagrik/nyay-api/config"
	"github.com/nyagrik/nyay-api/databases"
	"github.com/nyagrik/nyay-api/models"
)

// App stores the router and db connection, so it can be reused
type App struct {
	Router    *mux.Router
	Config    config.Config
	Scheduler *scheduler.Scheduler
	dbHelper  databases.DatabaseHelper
	generator ai.TextGenerator
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	r := mux.NewRouter()

	hub := NewChatHub()

	auth := Auth{DB: databases.NewUserDatabase(a.dbHelper)}
	u := User{DB: databases.NewUserDatabase(a.dbHelper), LDB: databases.NewLawyerDatabase(a.dbHelper)}
	c := Case{DB: databases.NewCaseDatabase(a.dbHelper), UDB: databases.NewUserDatabase(a.dbHelper)}
	an := Analysis{RDB: databases.NewReportDatabase(a.dbHelper), Generator: a.generator}
	chat := Chat{DB: databases.NewChatDatabase(a.dbHelper), Hub: hub}
	cloudinaryHandler := CloudinaryHandler{}

	lawyerOrIntern := api.RequireRole(models.RoleLawyer, models.RoleIntern)
	lawyerOnly := api.RequireRole(models.RoleLawyer)
	clientOnly := api.RequireRole(models.RoleClient)

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	apiCreate := r.PathPrefix("/api/v1").Subrouter()
	apiCreate.Use(api.TimeoutMiddleware(30 * time.Second))

	apiCreate.Handle("/auth/register", http.HandlerFunc(auth.RegisterHandler)).Methods("POST")
	apiCreate.Handle("/auth/login", http.HandlerFunc(auth.LoginHandler)).Methods("POST")
	apiCreate.Handle("/auth/logout", http.HandlerFunc(auth.LogoutHandler)).Methods("DELETE")
	apiCreate.Handle("/auth/session", api.Session(http.HandlerFunc(auth.SessionHandler))).Methods("GET")

	apiCreate.Handle("/case", api.Session(clientOnly(http.HandlerFunc(c.CreateCaseHandler)))).Methods("POST")
	apiCreate.Handle("/case/{case_id}", api.Session(http.HandlerFunc(c.CaseByIDHandler))).Methods("GET")
	apiCreate.Handle("/case/{case_id}/accept", api.Session(lawyerOrIntern(http.HandlerFunc(c.AcceptCaseHandler)))).Methods("PUT")
	apiCreate.Handle("/case/{case_id}/unassign", api.Session(lawyerOrIntern(http.HandlerFunc(c.UnassignCaseHandler)))).Methods("PUT")
	apiCreate.Handle("/case/{case_id}/note", api.Session(http.HandlerFunc(c.AddCaseNoteHandler))).Methods("POST")
	apiCreate.Handle("/case/{case_id}/hearing", api.Session(lawyerOnly(http.HandlerFunc(c.UpdateHearingDetailsHandler)))).Methods("PUT")
	apiCreate.Handle("/case/{case_id}/status", api.Session(lawyerOnly(http.HandlerFunc(c.UpdateCaseStatusHandler)))).Methods("PUT")
	apiCreate.Handle("/cases/client/{client_id}", api.Session(http.HandlerFunc(c.CasesByClientIDHandler))).Methods("GET")
	apiCreate.Handle("/cases/lawyer/{lawyer_id}", api.Session(http.HandlerFunc(c.CasesByLawyerIDHandler))).Methods("GET")
	apiCreate.Handle("/cases/open", api.Session(lawyerOrIntern(http.HandlerFunc(c.OpenCasesHandler)))).Methods("GET")

	apiCreate.Handle("/analysis", api.Session(http.HandlerFunc(an.AnalyzeHandler))).Methods("POST")
	apiCreate.Handle("/analysis/reports", api.Session(http.HandlerFunc(an.ReportsHandler))).Methods("GET")

	apiCreate.Handle("/chat", api.Session(http.HandlerFunc(chat.StartChatHandler))).Methods("POST")
	apiCreate.Handle("/chats/user/{user_id}", api.Session(http.HandlerFunc(chat.ChatsByUserIDHandler))).Methods("GET")
	apiCreate.Handle("/chat/{chat_id}", api.Session(http.HandlerFunc(chat.ChatByIDHandler))).Methods("GET")
	apiCreate.Handle("/chat/{chat_id}/message", api.Session(http.HandlerFunc(chat.SendMessageHandler))).Methods("POST")
	apiCreate.Handle("/chat/{chat_id}/read", api.Session(http.HandlerFunc(chat.MarkChatReadHandler))).Methods("PUT")

	apiCreate.Handle("/user/{user_id}", api.Session(http.HandlerFunc(u.UserByIDHandler))).Methods("GET")
	apiCreate.Handle("/user/{user_id}", api.Session(http.HandlerFunc(u.UpdateUserByIDHandler))).Methods("PUT")
	apiCreate.Handle("/users", api.Session(http.HandlerFunc(u.FetchUsersByIdsHandler))).Methods("POST")
	apiCreate.Handle("/lawyers", api.Session(http.HandlerFunc(u.LawyersDirectoryHandler))).Methods("GET")

	apiCreate.Handle("/generate-signature", api.Session(http.HandlerFunc(cloudinaryHandler.GenerateSignature))).Methods("POST")

	r.Handle("/ws/chat", api.Session(http.HandlerFunc(hub.ServeWS)))

	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect()
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("nyay-api has connected to the database")

	// initialize the AI text generator
	geminiModel := os.Getenv("GEMINI_MODEL")
	if geminiModel == "" {
		geminiModel = "gemini-1.5-flash"
	}
	geminiClient, err := ai.NewGeminiClient(os.Getenv("GEMINI_API_KEY"))
	if err != nil {
		zap.S().Warnw("case analysis is unavailable", "error", err)
		a.generator = ai.Unavailable{}
	} else {
		a.generator = ai.NewGeminiGenerator(geminiClient, geminiModel)
	}

	// start the hearing reminder scheduler. The lock's mutual exclusion
	// needs the unique jobName index in place before the first run.
	lockDB := databases.NewSchedulerLockDatabase(a.dbHelper)
	indexCtx, indexCancel := api.WithQueryTimeout(context.Background())
	defer indexCancel()
	if err := lockDB.EnsureIndexes(indexCtx); err != nil {
		zap.S().With(err).Error("failed to create scheduler lock index")
		return err
	}
	a.Scheduler = scheduler.NewScheduler(
		databases.NewCaseDatabase(a.dbHelper),
		databases.NewUserDatabase(a.dbHelper),
		lockDB,
	)
	a.Scheduler.Start()

	// initialize api router
	a.initializeRoutes()
	return nil

}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
