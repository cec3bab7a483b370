package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filamentproject/filament/internal/application/matching"
)

func writeTempJSON(t *testing.T, name string, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

type rawFixture struct {
	ID          string `json:"id"`
	Side        string `json:"side,omitempty"`
	Description string `json:"description,omitempty"`
}

func fixtureFiles(t *testing.T) (remainsPath, missingPath string) {
	t.Helper()
	remainsPath = writeTempJSON(t, "remains.json", []rawFixture{
		{ID: "UID-1", Description: "red toboggan"},
	})
	missingPath = writeTempJSON(t, "missing.json", []rawFixture{
		{ID: "MP-1", Description: "red toboggan"},
		{ID: "MP-2", Description: "green canoe"},
	})
	return remainsPath, missingPath
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMatchCommand_WritesReport(t *testing.T) {
	remainsPath, missingPath := fixtureFiles(t)
	outPath := filepath.Join(t.TempDir(), "report.json")

	_, err := runCommand(t, "match",
		"--remains", remainsPath,
		"--missing", missingPath,
		"--output", outPath,
		"--threshold", "0.5",
	)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var report matching.Report
	require.NoError(t, json.Unmarshal(data, &report))
	require.Len(t, report.Leads, 1)
	assert.Equal(t, "UID-1", report.Leads[0].RemainsID)
	assert.Equal(t, "MP-1", report.Leads[0].MissingID)
	assert.Contains(t, report.Disclaimer, "not identifications")
	assert.Equal(t, 1, report.RemainsCases)
	assert.Equal(t, 2, report.MissingCases)
}

func TestMatchCommand_StdoutOutput(t *testing.T) {
	remainsPath, missingPath := fixtureFiles(t)

	out, err := runCommand(t, "match",
		"--remains", remainsPath,
		"--missing", missingPath,
		"--threshold", "0.5",
	)
	require.NoError(t, err)
	assert.Contains(t, out, `"run_id"`)
	assert.Contains(t, out, "MP-1")
}

func TestMatchCommand_MissingFile(t *testing.T) {
	_, missingPath := fixtureFiles(t)

	_, err := runCommand(t, "match",
		"--remains", filepath.Join(t.TempDir(), "nope.json"),
		"--missing", missingPath,
	)
	assert.Error(t, err)
}

func TestMatchCommand_RequiredFlags(t *testing.T) {
	_, err := runCommand(t, "match")
	assert.Error(t, err)
}

func TestLoadRawFile_StampsSide(t *testing.T) {
	path := writeTempJSON(t, "cases.json", []rawFixture{{ID: "UID-9"}})

	raws, err := loadRawFile(path, "remains")
	require.NoError(t, err)
	require.Len(t, raws, 1)
	assert.Equal(t, "remains", raws[0].Side)
}
