package database

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/festival-planner/app/internal/models"
)

// ErrInvalidSet is returned when a set is missing required fields or ends
// before it starts.
var ErrInvalidSet = errors.New("artist, stage, start_time and end_time are required and end_time must not precede start_time")

const setColumns = "id, artist, stage, start_time, end_time, description, image_url"

// CreateSet inserts a new set into the lineup.
func CreateSet(db Querier, set *models.Set) (*models.Set, error) {
	if strings.TrimSpace(set.Artist) == "" || strings.TrimSpace(set.Stage) == "" ||
		!set.StartTime.Valid() || !set.EndTime.Valid() || set.EndTime.Before(set.StartTime.Time) {
		return nil, ErrInvalidSet
	}

	stmt, err := db.Prepare("INSERT INTO sets(artist, stage, start_time, end_time, description, image_url) VALUES(?, ?, ?, ?, ?, ?)")
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	res, err := stmt.Exec(
		strings.TrimSpace(set.Artist),
		strings.TrimSpace(set.Stage),
		wallClock(set.StartTime.Time),
		wallClock(set.EndTime.Time),
		set.Description,
		set.ImageURL,
	)
	if err != nil {
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return GetSetByID(db, id)
}

// GetSetByID retrieves a set by its ID.
func GetSetByID(db Querier, id int64) (*models.Set, error) {
	row := db.QueryRow("SELECT "+setColumns+" FROM sets WHERE id = ?", id)
	set, err := scanSet(row)
	if err != nil {
		return nil, notFound(err)
	}
	return set, nil
}

// GetSets returns the lineup for one festival day (YYYY-MM-DD), or every set
// when day is empty. Sets come back in insertion order; callers decide how to
// group and sort them.
func GetSets(db *sql.DB, day string) ([]*models.Set, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if day == "" {
		rows, err = db.Query("SELECT " + setColumns + " FROM sets ORDER BY id")
	} else {
		rows, err = db.Query("SELECT "+setColumns+" FROM sets WHERE date(start_time) = ? ORDER BY id", day)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSets(rows)
}

// GetFestivalDates returns the distinct days that have at least one set,
// ascending.
func GetFestivalDates(db *sql.DB) ([]string, error) {
	rows, err := db.Query("SELECT DISTINCT date(start_time) AS day FROM sets ORDER BY day")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dates := []string{}
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, err
		}
		dates = append(dates, day)
	}
	return dates, rows.Err()
}

// GetAttendeeCounts returns one count per set in a single aggregate query.
// Sets nobody selected are included with a zero count.
func GetAttendeeCounts(db *sql.DB, day string) (models.AttendeeCounts, error) {
	query := `
		SELECT s.id, COUNT(us.id)
		FROM sets s
		LEFT JOIN user_selections us ON us.set_id = s.id`
	args := []any{}
	if day != "" {
		query += " WHERE date(s.start_time) = ?"
		args = append(args, day)
	}
	query += " GROUP BY s.id"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := models.AttendeeCounts{}
	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// ValidDay reports whether day is a YYYY-MM-DD date.
func ValidDay(day string) bool {
	_, err := time.Parse(models.DateLayout, day)
	return err == nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSet(row rowScanner) (*models.Set, error) {
	set := &models.Set{}
	var start, end time.Time
	err := row.Scan(&set.ID, &set.Artist, &set.Stage, &start, &end, &set.Description, &set.ImageURL)
	if err != nil {
		return nil, err
	}
	set.StartTime = models.Timestamp{Time: start}
	set.EndTime = models.Timestamp{Time: end}
	return set, nil
}

func scanSets(rows *sql.Rows) ([]*models.Set, error) {
	sets := []*models.Set{}
	for rows.Next() {
		set, err := scanSet(rows)
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sets, nil
}

// wallClock drops any zone so the stored value is the published local time;
// date(start_time) then always yields the festival day.
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}
