package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mizan-meet/mizan-api/api"
	"github.com/mizan-meet/mizan-api/api/scheduler"
	"github.com/mizan-meet/mizan-api/config"
	"github.com/mizan-meet/mizan-api/databases"
	"github.com/mizan-meet/mizan-api/models"
	"github.com/mizan-meet/mizan-api/realtime"
)

// App stores the router, db connection and realtime broker, so it can be reused
type App struct {
	Router    *mux.Router
	Config    config.Config
	dbHelper  databases.DatabaseHelper
	broker    *realtime.Broker
	scheduler *scheduler.Scheduler
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	// setup go-guardian for middleware
	m := api.MiddlewareDB{DB: databases.NewUserDatabase(a.dbHelper)}
	m.SetupGoGuardian()

	r := mux.NewRouter()

	chatBackend := &databases.ChatBackend{
		ODB:     databases.NewOrganizationDatabase(a.dbHelper),
		CDB:     databases.NewCrimeDatabase(a.dbHelper),
		MDB:     databases.NewMessageDatabase(a.dbHelper),
		Sub:     a.broker,
		Publish: a.broker.Publish,
	}

	u := User{DB: databases.NewUserDatabase(a.dbHelper), PVDB: databases.NewPendingVerificationDatabase(a.dbHelper), Config: a.Config}
	org := Organization{DB: databases.NewOrganizationDatabase(a.dbHelper)}
	crime := Crime{DB: databases.NewCrimeDatabase(a.dbHelper)}
	msg := Message{DB: databases.NewMessageDatabase(a.dbHelper), UDB: databases.NewUserDatabase(a.dbHelper), Backend: chatBackend}
	messenger := Messenger{UDB: databases.NewUserDatabase(a.dbHelper), Backend: chatBackend, Config: a.Config}
	cloudinaryHandler := CloudinaryHandler{}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	// the websocket route lives outside the timeout middleware; messenger
	// connections are long-lived by design
	r.Handle("/api/v1/messenger/ws", http.HandlerFunc(messenger.SocketHandler)).Methods("GET")

	apiCreate := r.PathPrefix("/api/v1").Subrouter()
	apiCreate.Use(api.TimeoutMiddleware(30 * time.Second))

	apiCreate.Handle("/auth/token", api.Middleware(http.HandlerFunc(m.CreateToken))).Methods("POST")
	apiCreate.Handle("/auth/logout", api.Middleware(http.HandlerFunc(api.RevokeToken))).Methods("DELETE")

	apiCreate.Handle("/user/create-user", http.HandlerFunc(u.UserCreateHandler)).Methods("POST")
	apiCreate.Handle("/user/check-user", http.HandlerFunc(u.UserCheckEmailHandler)).Methods("POST")
	apiCreate.Handle("/user/verify-email", http.HandlerFunc(u.VerifyEmailHandler)).Methods("POST")
	apiCreate.Handle("/user/{user_id}", api.Middleware(http.HandlerFunc(u.UserHandler))).Methods("GET")

	apiCreate.Handle("/organizations", api.Middleware(http.HandlerFunc(org.OrganizationHandler))).Methods("GET")
	apiCreate.Handle("/organization/{organization_id}", api.Middleware(http.HandlerFunc(org.OrganizationByIDHandler))).Methods("GET")

	apiCreate.Handle("/crime", api.Middleware(http.HandlerFunc(crime.CreateCrimeHandler))).Methods("POST")
	apiCreate.Handle("/crime/{crime_id}", api.Middleware(http.HandlerFunc(crime.CrimeByIDHandler))).Methods("GET")
	apiCreate.Handle("/crime/{crime_id}/status", api.Middleware(http.HandlerFunc(crime.UpdateCrimeStatusHandler))).Methods("PUT")
	apiCreate.Handle("/crime/{crime_id}", api.Middleware(http.HandlerFunc(crime.DeleteCrimeHandler))).Methods("DELETE")
	apiCreate.Handle("/crimes/victim/{victim_id}", api.Middleware(http.HandlerFunc(crime.CrimesByVictimIDHandler))).Methods("GET")

	apiCreate.Handle("/messages/{organization_id}", api.Middleware(http.HandlerFunc(msg.MessagesByOrganizationHandler))).Methods("GET")
	apiCreate.Handle("/messages/{organization_id}", api.Middleware(http.HandlerFunc(msg.CreateMessageHandler))).Methods("POST")

	apiCreate.Handle("/messenger/token", api.Middleware(http.HandlerFunc(messenger.TokenHandler))).Methods("GET")

	apiCreate.Handle("/generate-signature", api.Middleware(http.HandlerFunc(cloudinaryHandler.GenerateSignature))).Methods("POST")

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
	zap.S().Info("mizan-api has connected to the database")

	a.broker = realtime.NewBroker()

	a.scheduler = scheduler.NewScheduler(
		databases.NewCrimeDatabase(a.dbHelper),
		databases.NewUserDatabase(a.dbHelper),
		databases.NewPendingVerificationDatabase(a.dbHelper),
	)
	a.scheduler.Start()

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

// getPage parses the page query param, defaulting to 0
func getPage(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 0 {
		return 0
	}
	return page
}
