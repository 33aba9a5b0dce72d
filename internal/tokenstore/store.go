// Package tokenstore persists OAuth token responses to local files so
// successive runs can skip interactive login.
package tokenstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cartwheel-tools/kroger-mcp/internal/logger"
	"go.uber.org/zap"
)

// DefaultUserFile is the cache file for authorization-code (user) tokens.
const DefaultUserFile = ".kroger_token_user.json"

// Record is the raw token response from the OAuth server. No schema is
// enforced; only "refresh_token" is ever interpreted here, everything else
// passes through untouched.
type Record map[string]any

// Store reads and writes one token Record at a fixed path. The file is
// shared state across process invocations; concurrent writers are not
// coordinated and the last writer wins.
type Store struct {
	path string
}

// New returns a Store backed by the given file path. An empty path selects
// DefaultUserFile in the working directory.
func New(path string) *Store {
	if path == "" {
		path = DefaultUserFile
	}
	return &Store{path: path}
}

// NewForScope returns a Store for a client-credentials token scoped to a
// single OAuth scope, e.g. ".kroger_token_client_product_compact.json".
func NewForScope(dir, scope string) *Store {
	name := fmt.Sprintf(".kroger_token_client_%s.json", strings.ReplaceAll(scope, ":", "_"))
	return New(filepath.Join(dir, name))
}

// NewUser returns a Store for the user token file under dir.
func NewUser(dir string) *Store {
	return New(filepath.Join(dir, DefaultUserFile))
}

// Path returns the file path backing this store.
func (s *Store) Path() string {
	return s.path
}

// Save writes the record as indented JSON, truncating any previous file,
// and restricts the file to owner read/write. Write failures propagate:
// silently losing the cache would force a re-login next session without
// anyone noticing why.
func (s *Store) Save(record Record) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file %s: %w", s.path, err)
	}
	// WriteFile only applies the mode on creation; an overwritten file
	// keeps its old bits unless we chmod explicitly.
	if err := os.Chmod(s.path, 0o600); err != nil {
		return fmt.Errorf("failed to restrict token file %s: %w", s.path, err)
	}
	return nil
}

// Load returns the stored record, or nil if the file is missing. A corrupt
// or unreadable file is logged and also reported as nil: callers treat both
// the same way and fall back to a fresh login.
func (s *Store) Load() Record {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Failed to read token file", zap.String("path", s.path), zap.Error(err))
		}
		return nil
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		logger.Warn("Token file is not valid JSON, ignoring it",
			zap.String("path", s.path), zap.Error(err))
		return nil
	}
	return record
}

// Clear deletes the token file. A missing file is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete token file %s: %w", s.path, err)
	}
	return nil
}

// RefreshToken extracts the refresh token from the stored record. It does
// not validate the token's format or expiry; that is the OAuth server's
// concern.
func (s *Store) RefreshToken() (string, bool) {
	record := s.Load()
	if record == nil {
		return "", false
	}
	token, ok := record["refresh_token"].(string)
	if !ok || token == "" {
		return "", false
	}
	return token, true
}
