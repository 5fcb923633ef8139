package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/festival-planner/app/internal/models"
)

type seedSet struct {
	artist      string
	stage       string
	offset      time.Duration // from noon of the festival day
	length      time.Duration
	description string
}

// lineup is the sample schedule loaded by Seed, one slice per festival day.
var lineup = [][]seedSet{
	{
		{"DJ Awesome", "Main Stage", 0, time.Hour, "Opening DJ set"},
		{"Acoustic Singer", "Alternative Stage", 0, 45 * time.Minute, "Unplugged acoustic session"},
		{"Rock Band", "Main Stage", 90 * time.Minute, time.Hour, "Headlining rock band"},
		{"Pop Star", "Dance Tent", time.Hour, time.Hour, "Chart-topping pop act"},
		{"Indie Group", "Alternative Stage", 2 * time.Hour, time.Hour, "Up and coming indie act"},
		{"EDM Producer", "Dance Tent", 150 * time.Minute, 90 * time.Minute, "Electronic dance music"},
		{"Folk Duo", "Acoustic Lounge", 150 * time.Minute, 45 * time.Minute, "Traditional folk music"},
		{"Hip Hop Collective", "Main Stage", 3 * time.Hour, time.Hour, "Hip hop showcase"},
		{"Jazz Ensemble", "Alternative Stage", 210 * time.Minute, time.Hour, "Jazz fusion performance"},
		{"Metal Band", "Rock Stage", 4 * time.Hour, time.Hour, "Heavy metal experience"},
	},
	{
		{"Sunrise Collective", "Main Stage", 0, time.Hour, "Second day opener"},
		{"Brass Parade", "Alternative Stage", 30 * time.Minute, time.Hour, "Marching brass band"},
		{"Synth Duo", "Dance Tent", time.Hour, 75 * time.Minute, "Analog synth live set"},
		{"Closing Headliner", "Main Stage", 5 * time.Hour, 2 * time.Hour, "Festival finale"},
	},
}

// DefaultSeedDay is the first festival day of the sample lineup.
var DefaultSeedDay = time.Date(2025, time.April, 26, 0, 0, 0, 0, time.UTC)

var seedUsers = []string{"Alice", "Bob", "Charlie", "David"}

// seedSelections pairs user index with the 1-based position of a set in the
// flattened lineup.
var seedSelections = [][2]int{
	{0, 1}, {0, 4}, {1, 3}, {1, 6}, {2, 5}, {2, 9}, {3, 8}, {3, 10}, {0, 2}, {2, 7}, {3, 11}, {1, 13},
}

// Seed clears the database and loads sample users, sets and selections in
// one transaction. firstDay is the date of the first festival day; its clock
// is ignored.
func Seed(db *sql.DB, firstDay time.Time) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	if err := seed(tx, firstDay); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func seed(db Querier, firstDay time.Time) error {
	for _, table := range []string{"user_selections", "sets", "users"} {
		if _, err := db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	users := make([]*models.User, 0, len(seedUsers))
	for _, name := range seedUsers {
		u, err := CreateUser(db, name)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", name, err)
		}
		users = append(users, u)
	}

	noon := time.Date(firstDay.Year(), firstDay.Month(), firstDay.Day(), 12, 0, 0, 0, time.UTC)
	sets := []*models.Set{}
	for dayIdx, day := range lineup {
		base := noon.AddDate(0, 0, dayIdx)
		for _, s := range day {
			start, end := models.NewSetTimes(base.Add(s.offset), s.length)
			created, err := CreateSet(db, &models.Set{
				Artist:      s.artist,
				Stage:       s.stage,
				StartTime:   start,
				EndTime:     end,
				Description: s.description,
			})
			if err != nil {
				return fmt.Errorf("seed set %s: %w", s.artist, err)
			}
			sets = append(sets, created)
		}
	}

	for _, pair := range seedSelections {
		user, set := users[pair[0]], sets[pair[1]-1]
		if _, err := CreateSelection(db, user.ID, set.ID); err != nil {
			return fmt.Errorf("seed selection %s/%s: %w", user.Name, set.Artist, err)
		}
	}
	return nil
}
