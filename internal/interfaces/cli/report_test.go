package cli

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filamentproject/filament/internal/application/matching"
	"github.com/filamentproject/filament/internal/domain/match"
)

func sampleReport() *matching.Report {
	graph := 0.5
	return &matching.Report{
		RunID:             "run-1",
		GeneratedAt:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		CorpusFingerprint: "abc",
		Disclaimer:        match.LeadDisclaimer,
		RemainsCases:      1,
		MissingCases:      2,
		PairsCompared:     2,
		Leads: []matching.ReportLead{
			{
				RemainsID:    "UID-1",
				MissingID:    "MP-1",
				Priority:     "HIGH",
				Scores:       match.Scores{Structured: 0.6, Rarity: 0.9, Graph: &graph, Composite: 0.75},
				SharedTokens: []string{"toboggan"},
				Reasons:      []string{`shared distinctive token "toboggan"`},
			},
			{
				RemainsID: "UID-1",
				MissingID: "MP-2",
				Priority:  "MEDIUM",
				Scores:    match.Scores{Structured: 0.5, Rarity: 0.4, Composite: 0.55},
			},
		},
	}
}

func TestReportCommand_CSV(t *testing.T) {
	inputPath := writeTempJSON(t, "report.json", sampleReport())

	out, err := runCommand(t, "report", "--input", inputPath, "--format", "csv")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(csvHeader, ","), lines[0])
	assert.Contains(t, lines[1], "UID-1,MP-1,HIGH,0.7500")
	assert.Contains(t, lines[1], "0.5000") // graph score present
	assert.Contains(t, lines[2], "UID-1,MP-2,MEDIUM,0.5500")
	// Vector score absent on both leads: empty CSV column, not a zero.
	assert.Contains(t, lines[2], ",,")
}

func TestReportCommand_Text(t *testing.T) {
	inputPath := writeTempJSON(t, "report.json", sampleReport())

	out, err := runCommand(t, "report", "--input", inputPath, "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "[HIGH] UID-1 / MP-1")
	assert.Contains(t, out, "shared distinctive token")
	assert.Contains(t, out, "not identifications")
}

func TestReportCommand_WritesFile(t *testing.T) {
	inputPath := writeTempJSON(t, "report.json", sampleReport())
	outPath := filepath.Join(t.TempDir(), "leads.csv")

	_, err := runCommand(t, "report", "--input", inputPath, "--output", outPath)
	require.NoError(t, err)
	assert.FileExists(t, outPath)
}

func TestReportCommand_UnknownFormat(t *testing.T) {
	inputPath := writeTempJSON(t, "report.json", sampleReport())

	_, err := runCommand(t, "report", "--input", inputPath, "--format", "xml")
	assert.Error(t, err)
}
