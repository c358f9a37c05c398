package rest

import (
	"net/http"
	"quizprogress/internal/service"
	"quizprogress/internal/transport/rest/handler"
	"quizprogress/internal/transport/rest/middleware"
	"quizprogress/internal/transport/ws"

	_ "quizprogress/docs"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService    *service.AuthService
	AttemptService *service.AttemptService
	WSHub          *ws.Hub
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container, corsOrigins string) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	progressHandler := handler.NewProgressHandler(c.AttemptService)
	attemptHandler := handler.NewAttemptHandler(c.AttemptService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware(corsOrigins))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// WebSocket route (token in query param)
	v1.HandleFunc("/ws/progress", wsHandler.ProgressWS).Methods("GET")

	// User routes (require LMS token)
	userRoutes := v1.NewRoute().Subrouter()
	userRoutes.Use(authMW.RequireUser)

	userRoutes.HandleFunc("/progress", progressHandler.List).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/quizzes/{quizId}/progress", progressHandler.Get).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/quizzes/{quizId}/progress", progressHandler.Clear).Methods("DELETE", "OPTIONS")
	userRoutes.HandleFunc("/quizzes/{quizId}/attempts", attemptHandler.Begin).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/quizzes/{quizId}/attempts/{attemptId}/submit", attemptHandler.Submit).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/assessments/{assessmentId}/progress", progressHandler.ByAssessment).Methods("GET", "OPTIONS")

	return r
}

func corsMiddleware(allowedOrigins string) mux.MiddlewareFunc {
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
