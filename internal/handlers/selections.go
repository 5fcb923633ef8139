package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/festival-planner/app/internal/countcache"
	"github.com/festival-planner/app/internal/database"
	"github.com/festival-planner/app/internal/export"
	"github.com/festival-planner/app/internal/models"
)

type createSelectionRequest struct {
	UserID int64 `json:"user_id"`
	SetID  int64 `json:"set_id"`
}

// UserSelections handles GET /api/users/:id/selections?date=YYYY-MM-DD.
func UserSelections(db *sql.DB) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		userID, ok := idParam(ps, "id")
		if !ok {
			RespondWithError(w, http.StatusBadRequest, "invalid user id")
			return
		}
		day, ok := dayQuery(r)
		if !ok {
			RespondWithError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		if _, err := database.GetUserByID(db, userID); err != nil {
			if isNotFound(err) {
				RespondWithError(w, http.StatusNotFound, "user not found")
				return
			}
			serverError(w, r, err)
			return
		}

		sets, err := database.GetSelectedSets(db, userID, day)
		if err != nil {
			serverError(w, r, err)
			return
		}
		RespondWithJSON(w, http.StatusOK, sets)
	}
}

// UserCalendar handles GET /api/users/:id/selections.ics.
func UserCalendar(db *sql.DB) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		userID, ok := idParam(ps, "id")
		if !ok {
			RespondWithError(w, http.StatusBadRequest, "invalid user id")
			return
		}
		user, err := database.GetUserByID(db, userID)
		if isNotFound(err) {
			RespondWithError(w, http.StatusNotFound, "user not found")
			return
		}
		if err != nil {
			serverError(w, r, err)
			return
		}

		selected, err := database.GetSelectedSets(db, userID, "")
		if err != nil {
			serverError(w, r, err)
			return
		}
		sets := make([]models.Set, 0, len(selected))
		for _, s := range selected {
			sets = append(sets, *s)
		}

		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", export.Filename(user.Name)))
		if err := export.Write(w, user.Name+"'s festival", sets, time.Now()); err != nil {
			serverError(w, r, err)
		}
	}
}

// CreateSelection handles POST /api/selections. A repeated selection is a
// 409 so clients can tell it apart from a failure.
func CreateSelection(db *sql.DB, cache countcache.Cache) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req createSelectionRequest
		if err := decodeJSON(r, &req); err != nil {
			RespondWithError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.UserID <= 0 || req.SetID <= 0 {
			RespondWithError(w, http.StatusBadRequest, "user_id and set_id are required")
			return
		}

		set, err := database.GetSetByID(db, req.SetID)
		if isNotFound(err) {
			RespondWithError(w, http.StatusNotFound, "set not found")
			return
		}
		if err != nil {
			serverError(w, r, err)
			return
		}

		selection, err := database.CreateSelection(db, req.UserID, req.SetID)
		switch {
		case errors.Is(err, database.ErrSelectionExists):
			RespondWithError(w, http.StatusConflict, "set already selected")
			return
		case isNotFound(err):
			RespondWithError(w, http.StatusNotFound, "user not found")
			return
		case err != nil:
			serverError(w, r, err)
			return
		}

		cache.Invalidate(r.Context(), set.Day())
		RespondWithJSON(w, http.StatusCreated, selection)
	}
}

// ListSelections handles GET /api/selections.
func ListSelections(db *sql.DB) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		selections, err := database.GetAllSelections(db)
		if err != nil {
			serverError(w, r, err)
			return
		}
		RespondWithJSON(w, http.StatusOK, selections)
	}
}

// DeleteSelection handles DELETE /api/users/:id/selections/:set_id.
func DeleteSelection(db *sql.DB, cache countcache.Cache) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		userID, ok := idParam(ps, "id")
		if !ok {
			RespondWithError(w, http.StatusBadRequest, "invalid user id")
			return
		}
		setID, ok := idParam(ps, "set_id")
		if !ok {
			RespondWithError(w, http.StatusBadRequest, "invalid set id")
			return
		}

		set, err := database.GetSetByID(db, setID)
		if isNotFound(err) {
			RespondWithError(w, http.StatusNotFound, "selection not found")
			return
		}
		if err != nil {
			serverError(w, r, err)
			return
		}

		err = database.DeleteSelection(db, userID, setID)
		if isNotFound(err) {
			RespondWithError(w, http.StatusNotFound, "selection not found")
			return
		}
		if err != nil {
			serverError(w, r, err)
			return
		}

		cache.Invalidate(r.Context(), set.Day())
		w.WriteHeader(http.StatusNoContent)
	}
}
