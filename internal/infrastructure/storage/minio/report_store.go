package minio

import (
	"bytes"
	"context"

	"github.com/minio/minio-go/v7"

	"github.com/filamentproject/filament/internal/infrastructure/monitoring/logging"
	"github.com/filamentproject/filament/pkg/errors"
)

const reportContentType = "application/json"

// ReportStore uploads run report artifacts.  One object per run, keyed by
// run id, overwritten on re-run so the bucket always holds the latest
// report for each run id.
type ReportStore struct {
	client *Client
	logger logging.Logger
}

// NewReportStore builds a store over an established client.
func NewReportStore(client *Client, log logging.Logger) *ReportStore {
	return &ReportStore{client: client, logger: log.Named("report_store")}
}

func reportKey(runID string) string { return "reports/" + runID + ".json" }

// SaveReport uploads the JSON report for a run and returns its object key.
func (s *ReportStore) SaveReport(ctx context.Context, runID string, report []byte) (string, error) {
	key := reportKey(runID)
	_, err := s.client.api.PutObject(ctx, s.client.cfg.Bucket, key,
		bytes.NewReader(report), int64(len(report)),
		minio.PutObjectOptions{ContentType: reportContentType})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeExternalService, "failed to upload run report").
			WithDetail("run_id=" + runID)
	}
	s.logger.Info("uploaded run report",
		logging.String("run_id", runID),
		logging.String("object", key),
		logging.Int("bytes", len(report)),
	)
	return key, nil
}
