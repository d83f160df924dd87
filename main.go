package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/omora14/roomiesChore/auth"
	"github.com/omora14/roomiesChore/handlers"
	"github.com/omora14/roomiesChore/logging"
	"github.com/omora14/roomiesChore/services"
	"github.com/omora14/roomiesChore/store"
)

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	logging.InitLogger()

	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting Chores Service...")
	if err := godotenv.Load(".env"); err != nil {
		logging.Logger.Warnf("Event ID: ENV_LOAD_WARNING, Description: No .env file loaded: %v", err)
	}

	mongoURI := os.Getenv("MONGO_URI")
	mongoDBName := os.Getenv("MONGO_DB_NAME")
	jwtSecret := os.Getenv("JWT_SECRET")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECTION_FAILED, Description: Database connection for MongoDB failed: %v", err)
	}
	defer client.Disconnect(ctx)

	if err := client.Ping(ctx, nil); err != nil {
		logging.Logger.Fatalf("Event ID: DB_PING_FAILED, Description: MongoDB connection ping error: %v", err)
	}
	logging.Logger.Infof("Event ID: DB_CONNECTED, Description: Successfully connected to MongoDB at %s.", mongoURI)

	documentStore := store.NewMongo(client, mongoDBName)
	identity := auth.NewTokenProvider([]byte(jwtSecret))

	resolver := services.NewReferenceResolver(documentStore)
	hydrator := services.NewTaskHydrator(resolver)
	maintainer := services.NewRelationshipMaintainer(documentStore)
	listing := services.NewListingService(documentStore, resolver, hydrator)

	reconciler := services.NewReconciler(documentStore)
	schedule := os.Getenv("RECONCILE_SCHEDULE")
	if schedule == "" {
		schedule = "@every 5m"
	}
	if err := reconciler.Start(schedule); err != nil {
		logging.Logger.Fatalf("Event ID: RECONCILER_START_FAILED, Description: Failed to start reconciliation sweep: %v", err)
	}
	defer reconciler.Stop()

	userHandler := handlers.NewUserHandler(identity, maintainer, listing)
	taskHandler := handlers.NewTaskHandler(identity, maintainer, listing)
	groupHandler := handlers.NewGroupHandler(identity, maintainer, listing)

	r := mux.NewRouter()

	r.HandleFunc("/api/users", userHandler.CreateUser).Methods(http.MethodPost)
	r.HandleFunc("/api/dashboard", userHandler.GetDashboard).Methods(http.MethodGet)
	r.HandleFunc("/api/tasks", taskHandler.CreateTask).Methods(http.MethodPost)
	r.HandleFunc("/api/tasks/individual", taskHandler.ListIndividualTasks).Methods(http.MethodGet)
	r.HandleFunc("/api/tasks/{taskID}/done", taskHandler.SetTaskDone).Methods(http.MethodPatch)
	r.HandleFunc("/api/tasks/{taskID}", taskHandler.UpdateTask).Methods(http.MethodPut)
	r.HandleFunc("/api/tasks/{taskID}", taskHandler.DeleteTask).Methods(http.MethodDelete)
	r.HandleFunc("/api/groups", groupHandler.CreateGroup).Methods(http.MethodPost)
	r.HandleFunc("/api/groups/{groupID}/members", groupHandler.GetGroupMembers).Methods(http.MethodGet)
	r.HandleFunc("/api/groups/{groupID}/tasks", groupHandler.GetGroupTasks).Methods(http.MethodGet)

	corsRouter := enableCORS(r)

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		logging.Logger.Fatalf("Event ID: CONFIG_ERROR, Description: SERVER_PORT is not set in the environment variables.")
	}

	serverAddress := fmt.Sprintf(":%s", serverPort)
	logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on http://localhost%s", serverAddress)

	if err := http.ListenAndServe(serverAddress, corsRouter); err != nil {
		logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed to start: %v", err)
	}
}
