package matching

import (
	"encoding/json"
	"time"

	"github.com/filamentproject/filament/internal/domain/match"
)

// Report is the run artifact stored in object storage and written by the
// CLI.  It is self-contained: a reader needs nothing but this document to
// review the run's leads.
type Report struct {
	RunID             string       `json:"run_id"`
	GeneratedAt       time.Time    `json:"generated_at"`
	CorpusFingerprint string       `json:"corpus_fingerprint"`
	Disclaimer        string       `json:"disclaimer"`
	RemainsCases      int          `json:"remains_cases"`
	MissingCases      int          `json:"missing_cases"`
	PairsCompared     int          `json:"pairs_compared"`
	Leads             []ReportLead `json:"leads"`
}

// ReportLead is one lead in report form, with the priority band resolved.
type ReportLead struct {
	RemainsID     string       `json:"remains_id"`
	MissingID     string       `json:"missing_id"`
	Priority      string       `json:"priority"`
	Scores        match.Scores `json:"scores"`
	SharedTokens  []string     `json:"shared_tokens"`
	Reasons       []string     `json:"reasons"`
	RichNarrative bool         `json:"rich_narrative"`
}

// BuildReport assembles the report for a finished run.  Leads keep the
// ranked order of the result.
func BuildReport(result *RunResult, generatedAt time.Time) *Report {
	leads := make([]ReportLead, 0, len(result.Leads))
	for _, l := range result.Leads {
		leads = append(leads, ReportLead{
			RemainsID:     l.RemainsID,
			MissingID:     l.MissingID,
			Priority:      string(l.Priority()),
			Scores:        l.Scores,
			SharedTokens:  l.SharedTokens,
			Reasons:       l.Reasons,
			RichNarrative: l.RichNarrative,
		})
	}
	return &Report{
		RunID:             result.RunID,
		GeneratedAt:       generatedAt,
		CorpusFingerprint: result.CorpusFingerprint,
		Disclaimer:        match.LeadDisclaimer,
		RemainsCases:      result.RemainsCases,
		MissingCases:      result.MissingCases,
		PairsCompared:     result.PairsCompared,
		Leads:             leads,
	}
}

// JSON renders the report indented for human review.
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
