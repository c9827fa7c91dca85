package identity

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
)

type persistedSession struct {
	Token string `json:"token"`
}

// sessionFile stores the current token between process runs. An empty path disables it.
type sessionFile struct {
	path string
}

func (f sessionFile) save(token string) error {
	if f.path == "" {
		return nil
	}
	payload, err := json.Marshal(persistedSession{Token: token})
	if err != nil {
		return err
	}
	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create session dir: %w", err)
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return os.Rename(tmp, f.path)
}

// load returns "" when nothing is stored.
func (f sessionFile) load() (string, error) {
	if f.path == "" {
		return "", nil
	}
	payload, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read session file: %w", err)
	}
	var s persistedSession
	if err := json.Unmarshal(payload, &s); err != nil {
		return "", fmt.Errorf("decode session file: %w", err)
	}
	return s.Token, nil
}

func (f sessionFile) clear() error {
	if f.path == "" {
		return nil
	}
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
