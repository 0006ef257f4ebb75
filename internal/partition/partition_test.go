package partition_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/ddlguard/internal/partition"
)

func fileNames(n int) []string {
	files := make([]string, n)
	for i := range files {
		files[i] = fmt.Sprintf("2024010100%04d_step.sql", i+1)
	}

	return files
}

func TestPlan_23FilesInto10Parts(t *testing.T) {
	t.Parallel()

	files := fileNames(23)

	parts, err := partition.Plan(files, 10)
	require.NoError(t, err)
	require.Len(t, parts, 8)

	var seen []string

	for i, p := range parts {
		assert.Equal(t, i+1, p.Number)

		if i < 7 {
			assert.Len(t, p.Files, 3, "part %d", p.Number)
		} else {
			assert.Len(t, p.Files, 2, "last part")
		}

		assert.Equal(t, p.Last-p.First+1, len(p.Files))
		seen = append(seen, p.Files...)
	}

	assert.Equal(t, files, seen, "every file exactly once, in order")
	assert.Equal(t, 1, parts[0].First)
	assert.Equal(t, 23, parts[7].Last)
}

func TestPlan_sizes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		files int
		parts int
		want  []int
	}{
		{name: "even split", files: 20, parts: 10, want: []int{2, 2, 2, 2, 2, 2, 2, 2, 2, 2}},
		{name: "fewer files than parts", files: 3, parts: 10, want: []int{1, 1, 1}},
		{name: "single part", files: 5, parts: 1, want: []int{5}},
		{name: "remainder in last part", files: 10, parts: 3, want: []int{4, 4, 2}},
		{name: "trailing empty parts skipped", files: 10, parts: 4, want: []int{3, 3, 3, 1}},
		{name: "no files", files: 0, parts: 10, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			parts, err := partition.Plan(fileNames(tt.files), tt.parts)
			require.NoError(t, err)

			var got []int
			for _, p := range parts {
				got = append(got, len(p.Files))
			}

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlan_invalidPartCount(t *testing.T) {
	t.Parallel()

	_, err := partition.Plan(fileNames(3), 0)
	require.ErrorIs(t, err, partition.ErrInvalidPartCount)
}

func TestFileName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "migration_part_1.sql", partition.FileName(partition.DefaultPrefix, 1))
	assert.Equal(t, "migration_part_10.sql", partition.FileName(partition.DefaultPrefix, 10))
}

func TestRender(t *testing.T) {
	t.Parallel()

	p := partition.Partition{Number: 2, First: 4, Last: 5, Files: []string{"a.sql", "b.sql"}}
	load := func(name string) (string, error) { return "-- body of " + name, nil }

	var b strings.Builder
	require.NoError(t, partition.Render(&b, p, 8, load))

	want := "-- ============================================\n" +
		"-- PART 2/8 - Migrations 4 to 5\n" +
		"-- ============================================\n\n" +
		"-- ============================================\n" +
		"-- Migration: a.sql\n" +
		"-- ============================================\n\n" +
		"-- body of a.sql\n\n" +
		"-- ============================================\n" +
		"-- Migration: b.sql\n" +
		"-- ============================================\n\n" +
		"-- body of b.sql\n\n"
	assert.Equal(t, want, b.String())
}

func TestRenderCombined(t *testing.T) {
	t.Parallel()

	load := func(string) (string, error) { return "SELECT 1;", nil }

	var b strings.Builder
	require.NoError(t, partition.RenderCombined(&b, []string{"a.sql", "b.sql", "c.sql"}, load))

	out := b.String()
	assert.True(t, strings.HasPrefix(out, "-- ============================================\n-- COMBINED - Migrations 1 to 3\n"))
	assert.Equal(t, 3, strings.Count(out, "SELECT 1;"))
	assert.Less(t, strings.Index(out, "a.sql"), strings.Index(out, "c.sql"))
}

func TestRender_loaderError(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk gone")
	load := func(string) (string, error) { return "", boom }

	var b strings.Builder
	err := partition.Render(&b, partition.Partition{Number: 1, First: 1, Last: 1, Files: []string{"x.sql"}}, 1, load)

	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "loading x.sql")
	assert.Empty(t, b.String())
}
