package handlers

import (
	"database/sql"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/festival-planner/app/internal/config"
	"github.com/festival-planner/app/internal/countcache"
	"github.com/festival-planner/app/internal/middleware"
)

// Health handles GET /health.
func Health(db *sql.DB) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if err := db.PingContext(r.Context()); err != nil {
			RespondWithError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// NewRouter registers every API route on an httprouter.Router. Mutating
// routes are rate limited per client address.
func NewRouter(db *sql.DB, cache countcache.Cache, cfg config.ServerConfig) *httprouter.Router {
	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)

	router := httprouter.New()
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		RespondWithError(w, http.StatusNotFound, "not found")
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	router.GET("/health", Health(db))

	router.GET("/api/users", ListUsers(db))
	router.POST("/api/users", limiter.Limit(CreateUser(db)))
	router.GET("/api/users/:id", GetUser(db))
	router.GET("/api/users/:id/selections", UserSelections(db))
	router.GET("/api/users/:id/selections.ics", UserCalendar(db))
	router.DELETE("/api/users/:id/selections/:set_id", limiter.Limit(DeleteSelection(db, cache)))

	router.GET("/api/festival-days", FestivalDays(db))

	router.GET("/api/sets", ListSets(db))
	router.POST("/api/sets", middleware.RequireAdmin(cfg.Admin, CreateSet(db, cache)))
	router.GET("/api/sets/:id", GetSet(db, cache))
	router.GET("/api/sets/:id/users", SetAttendees(db))

	router.GET("/api/selections", ListSelections(db))
	router.POST("/api/selections", limiter.Limit(CreateSelection(db, cache)))

	return router
}

// NewServerHandler wraps the router with CORS, security headers and access
// logging.
func NewServerHandler(db *sql.DB, cache countcache.Cache, cfg config.ServerConfig) http.Handler {
	router := NewRouter(db, cache, cfg)
	return middleware.Logging(middleware.SecurityHeaders(middleware.CORS(cfg.AllowedOrigins, router)))
}
