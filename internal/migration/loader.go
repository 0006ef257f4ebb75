package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// filenamePattern splits a migration file name into version and name:
//
//	20240101120000_create_users.sql   (Supabase)
//	V001_create_users.up.sql          (versioned up file)
var filenamePattern = regexp.MustCompile( //nolint:gochecknoglobals // compiled once, used by LoadFromDir
	`^V?(\d+)_(.+?)(?:\.up)?\.sql$`,
)

// LoadFromDir reads every .sql file in dir. Down migrations and
// subdirectories are skipped. The result is unsorted; see Sort.
func LoadFromDir(dir string) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory %s: %w", dir, err)
	}

	var migrations []Migration

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") || strings.HasSuffix(name, ".down.sql") {
			continue
		}

		m, err := readMigration(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}

		if matches := filenamePattern.FindStringSubmatch(name); matches != nil {
			m.Version = matches[1]
			m.Name = matches[2]
		} else {
			m.Name = strings.TrimSuffix(name, ".sql")
		}

		migrations = append(migrations, m)
	}

	return migrations, nil
}

// PartFile is a partition file found on disk.
type PartFile struct {
	Number int
	Path   string
}

// ListParts returns the files named <prefix><N>.sql in dir ordered by N,
// without reading them.
func ListParts(dir, prefix string) ([]PartFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading parts directory %s: %w", dir, err)
	}

	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `(\d+)\.sql$`)

	var parts []PartFile

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		matches := pattern.FindStringSubmatch(entry.Name())
		if matches == nil {
			continue
		}

		n, err := strconv.Atoi(matches[1])
		if err != nil {
			return nil, fmt.Errorf("parsing part number in %s: %w", entry.Name(), err)
		}

		parts = append(parts, PartFile{Number: n, Path: filepath.Join(dir, entry.Name())})
	}

	sort.SliceStable(parts, func(i, j int) bool { return parts[i].Number < parts[j].Number })

	return parts, nil
}

// LoadParts reads partition files named <prefix><N>.sql from dir and returns
// them ordered by N, so part 10 follows part 9. Version is N zero-padded.
func LoadParts(dir, prefix string) ([]Migration, error) {
	files, err := ListParts(dir, prefix)
	if err != nil {
		return nil, err
	}

	out := make([]Migration, 0, len(files))

	for _, f := range files {
		m, err := readMigration(f.Path)
		if err != nil {
			return nil, err
		}

		m.Version = fmt.Sprintf("%04d", f.Number)
		m.Name = strings.TrimSuffix(filepath.Base(f.Path), ".sql")
		out = append(out, m)
	}

	return out, nil
}

// ReadFile loads a single SQL file as a Migration.
func ReadFile(path string) (Migration, error) {
	m, err := readMigration(path)
	if err != nil {
		return Migration{}, err
	}

	m.Name = strings.TrimSuffix(filepath.Base(path), ".sql")

	return m, nil
}

func readMigration(path string) (Migration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Migration{}, fmt.Errorf("reading migration file %s: %w", path, err)
	}

	sql := string(data)

	return Migration{
		SQL:      sql,
		Checksum: ComputeChecksum(sql),
		FilePath: path,
	}, nil
}
