package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"github.com/festival-planner/app/internal/database"
	"github.com/festival-planner/app/internal/log"
	"github.com/festival-planner/app/internal/middleware"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// RespondWithJSON writes data as a JSON response with the given status.
func RespondWithJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error("encode response failed", err)
	}
}

// RespondWithError writes {"error": msg}.
func RespondWithError(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, map[string]string{"error": msg})
}

// serverError logs err against the request id and hides it from the client.
func serverError(w http.ResponseWriter, r *http.Request, err error) {
	log.Error("request failed", err,
		"id", middleware.RequestID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
	)
	RespondWithError(w, http.StatusInternalServerError, "internal server error")
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

// idParam parses a positive integer path parameter.
func idParam(ps httprouter.Params, name string) (int64, bool) {
	id, err := strconv.ParseInt(ps.ByName(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// dayQuery returns the optional ?date=YYYY-MM-DD filter.
func dayQuery(r *http.Request) (string, bool) {
	day := r.URL.Query().Get("date")
	if day == "" {
		return "", true
	}
	return day, database.ValidDay(day)
}

func isNotFound(err error) bool {
	return errors.Is(err, database.ErrNotFound)
}
