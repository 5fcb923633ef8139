package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/festival-planner/app/internal/countcache"
	"github.com/festival-planner/app/internal/database"
	"github.com/festival-planner/app/internal/models"
	"github.com/festival-planner/app/internal/schedule"
)

// attendeeCountsSegment shares the /api/sets/:id position in the route tree.
const attendeeCountsSegment = "attendee-counts"

// ListSets handles GET /api/sets?date=YYYY-MM-DD.
func ListSets(db *sql.DB) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		day, ok := dayQuery(r)
		if !ok {
			RespondWithError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		sets, err := database.GetSets(db, day)
		if err != nil {
			serverError(w, r, err)
			return
		}
		RespondWithJSON(w, http.StatusOK, sets)
	}
}

// GetSet handles GET /api/sets/:id, and GET /api/sets/attendee-counts which
// lands on the same route.
func GetSet(db *sql.DB, cache countcache.Cache) httprouter.Handle {
	counts := AttendeeCounts(db, cache)
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if ps.ByName("id") == attendeeCountsSegment {
			counts(w, r, ps)
			return
		}

		id, ok := idParam(ps, "id")
		if !ok {
			RespondWithError(w, http.StatusBadRequest, "invalid set id")
			return
		}
		set, err := database.GetSetByID(db, id)
		if isNotFound(err) {
			RespondWithError(w, http.StatusNotFound, "set not found")
			return
		}
		if err != nil {
			serverError(w, r, err)
			return
		}
		RespondWithJSON(w, http.StatusOK, set)
	}
}

// CreateSet handles POST /api/sets (admin only).
func CreateSet(db *sql.DB, cache countcache.Cache) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req models.Set
		if err := decodeJSON(r, &req); err != nil {
			RespondWithError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		set, err := database.CreateSet(db, &req)
		if errors.Is(err, database.ErrInvalidSet) {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			serverError(w, r, err)
			return
		}
		cache.Invalidate(r.Context(), set.Day())
		RespondWithJSON(w, http.StatusCreated, set)
	}
}

// SetAttendees handles GET /api/sets/:id/users.
func SetAttendees(db *sql.DB) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id, ok := idParam(ps, "id")
		if !ok {
			RespondWithError(w, http.StatusBadRequest, "invalid set id")
			return
		}
		if _, err := database.GetSetByID(db, id); err != nil {
			if isNotFound(err) {
				RespondWithError(w, http.StatusNotFound, "set not found")
				return
			}
			serverError(w, r, err)
			return
		}

		users, err := database.GetUsersForSet(db, id)
		if err != nil {
			serverError(w, r, err)
			return
		}
		RespondWithJSON(w, http.StatusOK, users)
	}
}

// AttendeeCounts handles GET /api/sets/attendee-counts?date=YYYY-MM-DD. The
// response maps every set id of the day to its count, zeros included.
func AttendeeCounts(db *sql.DB, cache countcache.Cache) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		day, ok := dayQuery(r)
		if !ok {
			RespondWithError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}

		if counts, hit := cache.Get(r.Context(), day); hit {
			RespondWithJSON(w, http.StatusOK, counts.StringKeys())
			return
		}

		gen := cache.Generation(r.Context(), day)
		counts, err := database.GetAttendeeCounts(db, day)
		if err != nil {
			serverError(w, r, err)
			return
		}
		cache.Set(r.Context(), day, gen, counts)
		RespondWithJSON(w, http.StatusOK, counts.StringKeys())
	}
}

// FestivalDays handles GET /api/festival-days.
func FestivalDays(db *sql.DB) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		dates, err := database.GetFestivalDates(db)
		if err != nil {
			serverError(w, r, err)
			return
		}
		RespondWithJSON(w, http.StatusOK, schedule.FestivalDays(dates))
	}
}
