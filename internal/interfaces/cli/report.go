package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/filamentproject/filament/internal/application/matching"
	"github.com/filamentproject/filament/pkg/errors"
)

type reportOptions struct {
	inputPath  string
	outputPath string
	format     string
}

func newReportCommand() *cobra.Command {
	opts := &reportOptions{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Convert a run report into CSV or a readable summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReport(cmd, opts)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&opts.inputPath, "input", "i", "", "path to the run report JSON (required)")
	fl.StringVarP(&opts.outputPath, "output", "o", "-", "output path, - for stdout")
	fl.StringVarP(&opts.format, "format", "f", "csv", "output format (csv, text)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runReport(cmd *cobra.Command, opts *reportOptions) error {
	data, err := os.ReadFile(opts.inputPath)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "failed to read report").
			WithDetail(opts.inputPath)
	}
	var report matching.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to parse report").
			WithDetail(opts.inputPath)
	}

	var out io.Writer = cmd.OutOrStdout()
	if opts.outputPath != "-" {
		f, err := os.Create(opts.outputPath)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodePersistence, "failed to create output file")
		}
		defer f.Close()
		out = f
	}

	switch opts.format {
	case "csv":
		return writeCSV(out, &report)
	case "text":
		return writeText(out, &report)
	default:
		return errors.InvalidParam("format must be csv or text")
	}
}

var csvHeader = []string{
	"remains_id", "missing_id", "priority", "composite",
	"structured", "rarity", "graph", "vector",
	"shared_tokens", "reasons", "rich_narrative",
}

func writeCSV(out io.Writer, report *matching.Report) error {
	w := csv.NewWriter(out)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, lead := range report.Leads {
		row := []string{
			lead.RemainsID,
			lead.MissingID,
			lead.Priority,
			formatScore(lead.Scores.Composite),
			formatScore(lead.Scores.Structured),
			formatScore(lead.Scores.Rarity),
			formatOptScore(lead.Scores.Graph),
			formatOptScore(lead.Scores.Vector),
			strings.Join(lead.SharedTokens, "; "),
			strings.Join(lead.Reasons, "; "),
			strconv.FormatBool(lead.RichNarrative),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeText(out io.Writer, report *matching.Report) error {
	fmt.Fprintf(out, "Run %s — %d leads (%d remains × %d missing, %d pairs compared)\n",
		report.RunID, len(report.Leads),
		report.RemainsCases, report.MissingCases, report.PairsCompared)
	fmt.Fprintln(out)
	for i, lead := range report.Leads {
		fmt.Fprintf(out, "%3d. [%s] %s / %s  composite=%s\n",
			i+1, lead.Priority, lead.RemainsID, lead.MissingID,
			formatScore(lead.Scores.Composite))
		for _, reason := range lead.Reasons {
			fmt.Fprintf(out, "     - %s\n", reason)
		}
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, report.Disclaimer)
	return nil
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func formatOptScore(v *float64) string {
	if v == nil {
		return ""
	}
	return formatScore(*v)
}
