package cli

import (
	"fmt"
	"io"

	"github.com/aqasim81/ddlguard/internal/migration"
	"github.com/aqasim81/ddlguard/internal/partition"
)

// loadSources reads and sorts the migration files in dir. It returns nil and
// prints a notice when the directory holds none.
func loadSources(dir string, out io.Writer) ([]migration.Migration, error) {
	migrations, err := migration.LoadFromDir(dir)
	if err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}

	if len(migrations) == 0 {
		fmt.Fprintln(out, "No migration files found.")

		return nil, nil //nolint:nilnil // nil,nil signals "no migrations, no error"
	}

	return migration.Sort(migrations), nil
}

// sourceLoader serves file contents from already-loaded migrations.
func sourceLoader(migrations []migration.Migration) partition.Loader {
	byName := make(map[string]string, len(migrations))
	for i := range migrations {
		byName[migrations[i].Filename()] = migrations[i].SQL
	}

	return func(name string) (string, error) {
		sql, ok := byName[name]
		if !ok {
			return "", fmt.Errorf("%w: %s", errUnknownSource, name)
		}

		return sql, nil
	}
}
