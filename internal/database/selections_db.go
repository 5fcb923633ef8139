package database

import (
	"database/sql"
	"errors"

	"github.com/festival-planner/app/internal/models"
	"github.com/mattn/go-sqlite3"
)

// CreateSelection records that a user plans to attend a set. It returns
// ErrSelectionExists when the pair is already present and ErrNotFound when
// the user or set does not exist.
func CreateSelection(db Querier, userID, setID int64) (*models.Selection, error) {
	stmt, err := db.Prepare("INSERT INTO user_selections(user_id, set_id) VALUES(?, ?)")
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	res, err := stmt.Exec(userID, setID)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) {
			switch sqliteErr.ExtendedCode {
			case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
				return nil, ErrSelectionExists
			case sqlite3.ErrConstraintForeignKey:
				return nil, ErrNotFound
			}
		}
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	selection := &models.Selection{}
	row := db.QueryRow("SELECT id, user_id, set_id, created_at FROM user_selections WHERE id = ?", id)
	if err := row.Scan(&selection.ID, &selection.UserID, &selection.SetID, &selection.CreatedAt); err != nil {
		return nil, err
	}
	return selection, nil
}

// DeleteSelection removes a user's selection of a set. It returns ErrNotFound
// when there was nothing to delete.
func DeleteSelection(db *sql.DB, userID, setID int64) error {
	res, err := db.Exec("DELETE FROM user_selections WHERE user_id = ? AND set_id = ?", userID, setID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetSelectedSets returns the sets a user selected, ordered by start time,
// optionally restricted to one festival day.
func GetSelectedSets(db *sql.DB, userID int64, day string) ([]*models.Set, error) {
	query := `
		SELECT s.id, s.artist, s.stage, s.start_time, s.end_time, s.description, s.image_url
		FROM sets s
		JOIN user_selections us ON us.set_id = s.id
		WHERE us.user_id = ?`
	args := []any{userID}
	if day != "" {
		query += " AND date(s.start_time) = ?"
		args = append(args, day)
	}
	query += " ORDER BY s.start_time, s.id"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSets(rows)
}

// GetAllSelections returns every selection in creation order.
func GetAllSelections(db *sql.DB) ([]*models.Selection, error) {
	rows, err := db.Query("SELECT id, user_id, set_id, created_at FROM user_selections ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	selections := []*models.Selection{}
	for rows.Next() {
		s := &models.Selection{}
		if err := rows.Scan(&s.ID, &s.UserID, &s.SetID, &s.CreatedAt); err != nil {
			return nil, err
		}
		selections = append(selections, s)
	}
	return selections, rows.Err()
}
