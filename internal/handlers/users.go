package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/festival-planner/app/internal/database"
)

type createUserRequest struct {
	Name string `json:"name"`
}

// ListUsers handles GET /api/users.
func ListUsers(db *sql.DB) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		users, err := database.GetAllUsers(db)
		if err != nil {
			serverError(w, r, err)
			return
		}
		RespondWithJSON(w, http.StatusOK, users)
	}
}

// CreateUser handles POST /api/users.
func CreateUser(db *sql.DB) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req createUserRequest
		if err := decodeJSON(r, &req); err != nil {
			RespondWithError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		user, err := database.CreateUser(db, req.Name)
		if errors.Is(err, database.ErrEmptyName) {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			serverError(w, r, err)
			return
		}
		RespondWithJSON(w, http.StatusCreated, user)
	}
}

// GetUser handles GET /api/users/:id.
func GetUser(db *sql.DB) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id, ok := idParam(ps, "id")
		if !ok {
			RespondWithError(w, http.StatusBadRequest, "invalid user id")
			return
		}
		user, err := database.GetUserByID(db, id)
		if isNotFound(err) {
			RespondWithError(w, http.StatusNotFound, "user not found")
			return
		}
		if err != nil {
			serverError(w, r, err)
			return
		}
		RespondWithJSON(w, http.StatusOK, user)
	}
}
