// Package sessionstore persists browsing-session cookie jars across
// process restarts. One JSON file per logical session name.
package sessionstore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"groupfeed-backend/lib/browser"
)

type Store struct {
	dir string
}

func NewStore(dir string) Store {
	return Store{dir: dir}
}

func (s Store) path(name string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.json", name))
}

func (s Store) Exists(name string) bool {
	_, err := os.Stat(s.path(name))
	return err == nil
}

func (s Store) Load(name string) ([]browser.Cookie, error) {
	raw, err := os.ReadFile(s.path(name))
	if err != nil {
		return nil, err
	}
	var cookies []browser.Cookie
	err = json.Unmarshal(raw, &cookies)
	if err != nil {
		return nil, err
	}
	return cookies, nil
}

// Save overwrites any previously persisted jar under the same name.
func (s Store) Save(name string, cookies []browser.Cookie) error {
	err := os.MkdirAll(s.dir, 0755)
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return err
	}
	err = os.WriteFile(s.path(name), raw, 0600)
	if err != nil {
		return err
	}
	slog.Debug("saved session jar", "name", name, "cookies", len(cookies))
	return nil
}

func (s Store) Delete(name string) error {
	err := os.Remove(s.path(name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
