// Package planner is the client-side view model: it caches each festival
// day, tracks the current user's selections and keeps attendee counts fresh.
package planner

import (
	"context"
	"errors"
	"fmt"

	"github.com/festival-planner/app/internal/client"
	"github.com/festival-planner/app/internal/models"
)

// Store is the part of the schedule API the planner depends on.
// *client.Client satisfies it.
type Store interface {
	FestivalDays(ctx context.Context) ([]models.FestivalDay, error)
	Users(ctx context.Context) ([]models.User, error)
	Sets(ctx context.Context, day string) ([]models.Set, error)
	SetAttendees(ctx context.Context, setID int64) ([]models.User, error)
	AttendeeCounts(ctx context.Context, day string) (models.AttendeeCounts, error)
	UserSelections(ctx context.Context, userID int64, day string) ([]models.Set, error)
	CreateSelection(ctx context.Context, userID, setID int64) (models.Selection, error)
	DeleteSelection(ctx context.Context, userID, setID int64) error
}

var _ Store = (*client.Client)(nil)

var (
	// ErrLoad wraps every failed read. The day stays retryable.
	ErrLoad = errors.New("failed to load schedule")
	// ErrNoUser is returned by operations that need a signed-in user.
	ErrNoUser = errors.New("no user selected")
	// ErrUnknownSet is returned when a set id is not part of the loaded day.
	ErrUnknownSet = errors.New("set is not in the current schedule")
)

func loadError(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrLoad, what, err)
}

// MutationError reports a failed add or remove. Local state is unchanged
// when it is returned.
type MutationError struct {
	Op    string
	SetID int64
	Err   error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s set %d: %v", e.Op, e.SetID, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

func cloneSets(in []models.Set) []models.Set {
	if in == nil {
		return nil
	}
	out := make([]models.Set, len(in))
	copy(out, in)
	return out
}
