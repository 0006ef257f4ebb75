// Package partition splits an ordered list of migration files into
// contiguous groups and renders each group as one SQL document.
package partition

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// DefaultPrefix is the file name prefix of rendered partitions.
const DefaultPrefix = "migration_part_"

// ErrInvalidPartCount indicates a partition count below one.
var ErrInvalidPartCount = errors.New("partition count must be at least 1")

const rule = "-- ============================================\n"

// Partition is a contiguous run of source files.
type Partition struct {
	Number int      // 1-based
	First  int      // 1-based index of the first source file
	Last   int      // 1-based index of the last source file, inclusive
	Files  []string // file names in source order
}

// Loader returns the contents of a named source file.
type Loader func(name string) (string, error)

// Plan splits files into at most parts groups of ceil(len/parts) files each.
// Trailing groups that would be empty are not returned.
func Plan(files []string, parts int) ([]Partition, error) {
	if parts < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPartCount, parts)
	}

	size := (len(files) + parts - 1) / parts

	var out []Partition

	for n := 1; n <= parts; n++ {
		start := (n - 1) * size
		if start >= len(files) {
			break
		}

		end := min(start+size, len(files))

		out = append(out, Partition{
			Number: n,
			First:  start + 1,
			Last:   end,
			Files:  files[start:end],
		})
	}

	return out, nil
}

// FileName returns the output file name for partition n.
func FileName(prefix string, n int) string {
	return fmt.Sprintf("%s%d.sql", prefix, n)
}

// Render writes a partition: a banner naming its number, the total
// partition count and its source range, then every file verbatim.
func Render(w io.Writer, p Partition, total int, load Loader) error {
	header := fmt.Sprintf("PART %d/%d - Migrations %d to %d", p.Number, total, p.First, p.Last)

	return render(w, header, p.Files, load)
}

// RenderCombined writes every file into one document.
func RenderCombined(w io.Writer, files []string, load Loader) error {
	header := fmt.Sprintf("COMBINED - Migrations 1 to %d", len(files))

	return render(w, header, files, load)
}

func render(w io.Writer, header string, files []string, load Loader) error {
	var b strings.Builder

	b.WriteString(banner(header))
	b.WriteString("\n")

	for _, name := range files {
		content, err := load(name)
		if err != nil {
			return fmt.Errorf("loading %s: %w", name, err)
		}

		b.WriteString(banner("Migration: " + name))
		b.WriteString("\n")
		b.WriteString(content)
		b.WriteString("\n\n")
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("writing %s: %w", header, err)
	}

	return nil
}

func banner(text string) string {
	return rule + "-- " + text + "\n" + rule
}
