// Package prefs remembers the planner's current profile and theme between
// runs.
package prefs

import (
	"errors"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/festival-planner/app/internal/config"
)

// Prefs is the persisted client state. A zero UserID means nobody is signed in.
type Prefs struct {
	UserID   int64 `yaml:"user_id"`
	DarkMode bool  `yaml:"dark_mode"`
}

// Load reads prefs from path. A missing file yields zero Prefs.
func Load(path string) (Prefs, error) {
	var p Prefs
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return p, nil
		}
		return p, err
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Prefs{}, err
	}
	if p.UserID < 0 {
		p.UserID = 0
	}
	return p, nil
}

// Save writes prefs to path atomically.
func Save(path string, p Prefs) error {
	if path == "" {
		return errors.New("prefs path is empty")
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return config.WriteFileAtomic(path, data)
}

// SignedIn reports whether a profile has been chosen.
func (p Prefs) SignedIn() bool {
	return p.UserID > 0
}
