package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

// Migration is one SQL file read from disk.
type Migration struct {
	Version  string // "20240101120000" for Supabase files, "0003" for part files; empty if the name has no number
	Name     string // "create_users"
	SQL      string // file contents, verbatim
	Checksum string // SHA-256 hex digest of SQL
	FilePath string
}

// Filename returns the base name of the migration file.
func (m *Migration) Filename() string {
	return filepath.Base(m.FilePath)
}

// ComputeChecksum returns the SHA-256 hex digest of the given SQL string.
func ComputeChecksum(sql string) string {
	h := sha256.Sum256([]byte(sql))

	return hex.EncodeToString(h[:])
}
