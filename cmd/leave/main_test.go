package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestScenariosCommand_ListsBuiltIns(t *testing.T) {
	out, err := runCommand(t, "scenarios")

	require.NoError(t, err)
	assert.Contains(t, out, "holiday-crunch")
	assert.Contains(t, out, "small-office")
}

func TestSeedAndShortages_SQLite(t *testing.T) {
	// GIVEN a sqlite file seeded with a dataset
	dir := t.TempDir()
	t.Setenv("LEAVE_STORE", "sqlite")
	t.Setenv("LEAVE_SQLITE_PATH", filepath.Join(dir, "leave.db"))

	dataset := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(dataset, []byte(`
employees:
  - {id: a, first_name: A, last_name: One, email: a@example.com, days_available: 5}
  - {id: b, first_name: B, last_name: Two, email: b@example.com, days_available: 5}
requests:
  - {employee: a, type: days_off, start: 2024-03-04, end: 2024-03-05, status: approved}
`), 0o600))

	out, err := runCommand(t, "seed", "--file", dataset)
	require.NoError(t, err)
	assert.Contains(t, out, "2 employees, 1 requests")

	// WHEN printing the shortages for March
	out, err = runCommand(t, "shortages", "--month", "2024-03")

	// THEN both half-staffed days are listed
	require.NoError(t, err)
	assert.Contains(t, out, "2024-03-04")
	assert.Contains(t, out, "2024-03-05")
	assert.NotContains(t, out, "2024-03-06")
}

func TestAvailabilityCommand_BadMonth(t *testing.T) {
	_, err := runCommand(t, "availability", "--month", "march")

	assert.Error(t, err)
}

func TestSeedCommand_RequiresSource(t *testing.T) {
	_, err := runCommand(t, "seed")

	assert.Error(t, err)
}
