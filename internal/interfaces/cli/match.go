package cli

import (
	"context"
	"encoding/json"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/filamentproject/filament/internal/application/matching"
	"github.com/filamentproject/filament/internal/domain/match"
	"github.com/filamentproject/filament/internal/domain/record"
	"github.com/filamentproject/filament/pkg/errors"
	"github.com/filamentproject/filament/pkg/types/common"
)

type matchOptions struct {
	remainsPath string
	missingPath string
	outputPath  string
	threshold   float64
	topK        int
}

func newMatchCommand(root *rootOptions) *cobra.Command {
	opts := &matchOptions{}

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Run a matching pass over JSON case files and write a lead report",
		Long: "Reads raw remains and missing-person records from JSON files, runs the\n" +
			"full blocking and scoring pipeline in memory, and writes the lead report\n" +
			"as JSON. Use - as the output path to write to stdout.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMatch(cmd, root, opts)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&opts.remainsPath, "remains", "", "path to the remains-case JSON file (required)")
	fl.StringVar(&opts.missingPath, "missing", "", "path to the missing-person JSON file (required)")
	fl.StringVarP(&opts.outputPath, "output", "o", "-", "report output path, - for stdout")
	fl.Float64Var(&opts.threshold, "threshold", match.DefaultParams().Threshold,
		"minimum composite score for a lead")
	fl.IntVar(&opts.topK, "top-k", match.DefaultParams().TopK,
		"leads retained per remains case")
	_ = cmd.MarkFlagRequired("remains")
	_ = cmd.MarkFlagRequired("missing")
	return cmd
}

func runMatch(cmd *cobra.Command, root *rootOptions, opts *matchOptions) error {
	log, err := root.logger()
	if err != nil {
		return err
	}

	corpus, err := loadFileCorpus(opts.remainsPath, opts.missingPath)
	if err != nil {
		return err
	}

	params := match.DefaultParams()
	params.Threshold = opts.threshold
	params.TopK = opts.topK

	engine, err := matching.NewEngine(matching.Dependencies{
		Cases:  corpus,
		Runs:   &memRunStore{},
		Leads:  &memLeadSink{},
		Logger: log,
	}, matching.Options{
		Params:      params,
		Concurrency: runtime.NumCPU(),
	})
	if err != nil {
		return err
	}

	result, err := engine.Run(cmd.Context(), "")
	if err != nil {
		return err
	}

	report := matching.BuildReport(result, time.Now().UTC())
	data, err := report.JSON()
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if opts.outputPath == "-" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(opts.outputPath, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrCodePersistence, "failed to write report")
	}
	return nil
}

// fileCorpus serves raw records loaded from JSON files.
type fileCorpus struct {
	sides map[record.Side][]*record.Raw
}

func loadFileCorpus(remainsPath, missingPath string) (*fileCorpus, error) {
	remains, err := loadRawFile(remainsPath, record.SideRemains)
	if err != nil {
		return nil, err
	}
	missing, err := loadRawFile(missingPath, record.SideMissing)
	if err != nil {
		return nil, err
	}
	return &fileCorpus{sides: map[record.Side][]*record.Raw{
		record.SideRemains: remains,
		record.SideMissing: missing,
	}}, nil
}

// loadRawFile reads a JSON array of raw records and stamps the expected
// side on any record that omits it.
func loadRawFile(path string, side record.Side) ([]*record.Raw, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "failed to read case file").
			WithDetail(path)
	}
	var raws []*record.Raw
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to parse case file").
			WithDetail(path)
	}
	for _, raw := range raws {
		if raw != nil && raw.Side == "" {
			raw.Side = string(side)
		}
	}
	return raws, nil
}

func (f *fileCorpus) ListBySide(_ context.Context, side record.Side) ([]*record.Raw, error) {
	return f.sides[side], nil
}

// memRunStore and memLeadSink back file-mode runs where no database exists.

type memRunStore struct {
	mu   sync.Mutex
	runs map[common.ID]*common.RunInfo
}

func (m *memRunStore) Create(_ context.Context, info *common.RunInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runs == nil {
		m.runs = map[common.ID]*common.RunInfo{}
	}
	m.runs[info.RunID] = info
	return nil
}

func (m *memRunStore) SetState(_ context.Context, runID common.ID, state common.RunState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if info, ok := m.runs[runID]; ok {
		info.State = state
	}
	return nil
}

func (m *memRunStore) Get(_ context.Context, runID common.ID) (*common.RunInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.runs[runID]
	if !ok {
		return nil, errors.NotFound("run not found")
	}
	return info, nil
}

type memLeadSink struct {
	mu    sync.Mutex
	leads []*match.Lead
}

func (m *memLeadSink) SaveLeads(_ context.Context, leads []*match.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leads = append(m.leads, leads...)
	return nil
}

func (m *memLeadSink) ListByRun(_ context.Context, runID string) ([]*match.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*match.Lead
	for _, l := range m.leads {
		if l.RunID == runID {
			out = append(out, l)
		}
	}
	return out, nil
}
