package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// JSONFile stores credentials as a flat {"username": "sha256hex"} object,
// the users.json layout older installs used.
type JSONFile struct {
	path string
	mu   sync.Mutex
}

// NewJSONFile returns a store backed by path. The file is created on first Store.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

func (j *JSONFile) read() (map[string]string, error) {
	data, err := os.ReadFile(j.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", j.path, err)
	}
	users := map[string]string{}
	if len(data) == 0 {
		return users, nil
	}
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", j.path, err)
	}
	return users, nil
}

// Lookup returns the stored hash for username.
func (j *JSONFile) Lookup(_ context.Context, username string) (string, bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	users, err := j.read()
	if err != nil {
		return "", false, err
	}
	h, ok := users[username]
	return h, ok, nil
}

// Store sets the hash for username and rewrites the file atomically.
func (j *JSONFile) Store(_ context.Context, username, hash string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	users, err := j.read()
	if err != nil {
		return err
	}
	users[username] = hash

	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(j.path), 0o750); err != nil {
		return fmt.Errorf("creating credentials dir: %w", err)
	}
	tmp := j.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return os.Rename(tmp, j.path)
}

// Usernames lists registered users in name order.
func (j *JSONFile) Usernames(_ context.Context) ([]string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	users, err := j.read()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(users))
	for u := range users {
		out = append(out, u)
	}
	sort.Strings(out)
	return out, nil
}
