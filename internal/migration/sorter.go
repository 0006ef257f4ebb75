package migration

import "sort"

// Sort returns a new slice of migrations ordered by file name, which for
// timestamp-prefixed files is also chronological order.
func Sort(migrations []Migration) []Migration {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Filename() < sorted[j].Filename()
	})

	return sorted
}

// Filenames returns the base names of migrations, in order.
func Filenames(migrations []Migration) []string {
	names := make([]string, len(migrations))
	for i := range migrations {
		names[i] = migrations[i].Filename()
	}

	return names
}
