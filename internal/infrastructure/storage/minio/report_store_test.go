package minio

import (
	"context"
	"io"
	"testing"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filamentproject/filament/internal/infrastructure/monitoring/logging"
	apperrors "github.com/filamentproject/filament/pkg/errors"
)

type fakeObjectAPI struct {
	buckets map[string]bool
	objects map[string][]byte
	putErr  error
}

func newFakeObjectAPI() *fakeObjectAPI {
	return &fakeObjectAPI{
		buckets: map[string]bool{"filament-reports": true},
		objects: map[string][]byte{},
	}
}

func (f *fakeObjectAPI) BucketExists(_ context.Context, bucket string) (bool, error) {
	return f.buckets[bucket], nil
}

func (f *fakeObjectAPI) MakeBucket(_ context.Context, bucket string, _ miniogo.MakeBucketOptions) error {
	f.buckets[bucket] = true
	return nil
}

func (f *fakeObjectAPI) PutObject(_ context.Context, bucket, object string, reader io.Reader, _ int64, _ miniogo.PutObjectOptions) (miniogo.UploadInfo, error) {
	if f.putErr != nil {
		return miniogo.UploadInfo{}, f.putErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return miniogo.UploadInfo{}, err
	}
	f.objects[bucket+"/"+object] = data
	return miniogo.UploadInfo{Bucket: bucket, Key: object, Size: int64(len(data))}, nil
}

func (f *fakeObjectAPI) GetObject(context.Context, string, string, miniogo.GetObjectOptions) (*miniogo.Object, error) {
	return nil, nil
}

func newTestReportStore(api *fakeObjectAPI) *ReportStore {
	client := &Client{
		api:    api,
		cfg:    Config{Bucket: "filament-reports"},
		logger: logging.NewNopLogger(),
	}
	return NewReportStore(client, logging.NewNopLogger())
}

func TestSaveReport(t *testing.T) {
	api := newFakeObjectAPI()
	store := newTestReportStore(api)

	key, err := store.SaveReport(context.Background(), "run-1", []byte(`{"leads":[]}`))
	require.NoError(t, err)
	assert.Equal(t, "reports/run-1.json", key)
	assert.Equal(t, []byte(`{"leads":[]}`), api.objects["filament-reports/reports/run-1.json"])
}

func TestSaveReport_Overwrites(t *testing.T) {
	api := newFakeObjectAPI()
	store := newTestReportStore(api)

	_, err := store.SaveReport(context.Background(), "run-1", []byte(`v1`))
	require.NoError(t, err)
	_, err = store.SaveReport(context.Background(), "run-1", []byte(`v2`))
	require.NoError(t, err)
	assert.Equal(t, []byte(`v2`), api.objects["filament-reports/reports/run-1.json"])
}

func TestSaveReport_UploadFailure(t *testing.T) {
	api := newFakeObjectAPI()
	api.putErr = assert.AnError
	store := newTestReportStore(api)

	_, err := store.SaveReport(context.Background(), "run-1", []byte(`{}`))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeExternalService))
	assert.False(t, apperrors.IsRunFatal(err))
}

func TestEnsureBucket_CreatesWhenMissing(t *testing.T) {
	api := newFakeObjectAPI()
	delete(api.buckets, "filament-reports")
	client := &Client{api: api, cfg: Config{Bucket: "filament-reports"}, logger: logging.NewNopLogger()}

	require.NoError(t, client.ensureBucket(context.Background()))
	assert.True(t, api.buckets["filament-reports"])
}
