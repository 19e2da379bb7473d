// Package fallback persists submissions to local disk when mail delivery
// fails. It is the system's last line of defense against data loss.
package fallback

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// EmailPlaceholder is written in place of an absent visitor address.
const EmailPlaceholder = "(未留信箱)"

// Store writes one plain-text record per failed delivery. Filenames combine a
// second-resolution timestamp with a random suffix, so concurrent writes never
// collide and no locking is needed.
type Store struct {
	dir string
}

// New creates the fallback directory if needed and returns a Store.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create fallback directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory records are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes a submission record and returns its path. The record holds the
// visitor's name, email (or a placeholder), and the verbatim payload.
func (s *Store) Save(name, email, payload string) (string, error) {
	suffix := make([]byte, 5)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("generate record suffix: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.txt",
		time.Now().Format("20060102-150405"), hex.EncodeToString(suffix))
	path := filepath.Join(s.dir, filename)

	if email == "" {
		email = EmailPlaceholder
	}
	record := fmt.Sprintf("Name: %s\nEmail: %s\n\n%s\n", name, email, payload)

	if err := os.WriteFile(path, []byte(record), 0o644); err != nil {
		return "", fmt.Errorf("write fallback record: %w", err)
	}
	return path, nil
}
