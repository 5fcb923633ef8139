package database

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/festival-planner/app/internal/models"
)

// ErrEmptyName is returned when a profile is created without a name.
var ErrEmptyName = errors.New("name is required")

// CreateUser inserts a new profile and returns it with DB defaults populated.
func CreateUser(db Querier, name string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	stmt, err := db.Prepare("INSERT INTO users(name) VALUES(?)")
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	res, err := stmt.Exec(name)
	if err != nil {
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	return GetUserByID(db, id)
}

// GetUserByID retrieves a user by their ID.
func GetUserByID(db Querier, id int64) (*models.User, error) {
	user := &models.User{}
	row := db.QueryRow("SELECT id, name, created_at FROM users WHERE id = ?", id)
	if err := row.Scan(&user.ID, &user.Name, &user.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

// GetAllUsers returns every profile ordered by name.
func GetAllUsers(db *sql.DB) ([]*models.User, error) {
	rows, err := db.Query("SELECT id, name, created_at FROM users ORDER BY name COLLATE NOCASE, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

// GetUsersForSet returns the users who selected the given set, in the order
// they selected it.
func GetUsersForSet(db *sql.DB, setID int64) ([]*models.User, error) {
	rows, err := db.Query(`
		SELECT u.id, u.name, u.created_at
		FROM user_selections us
		JOIN users u ON u.id = us.user_id
		WHERE us.set_id = ?
		ORDER BY us.id
	`, setID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func scanUsers(rows *sql.Rows) ([]*models.User, error) {
	users := []*models.User{}
	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(&user.ID, &user.Name, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}
