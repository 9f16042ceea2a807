package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subashpoudel19/wildfire/core/models"
)

type fakeS3 struct {
	objects map[string][]byte
	err     error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[*params.Key] = body
	return &s3.PutObjectOutput{}, nil
}

func TestUploadFile(t *testing.T) {
	local := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(local, []byte(`{"done":3}`), 0o644))

	fake := &fakeS3{}
	u := NewS3UploaderWithClient(fake, "wildfire-outputs", "runs/2021")

	require.NoError(t, u.UploadFile(context.Background(), local, "report.json"))
	assert.Equal(t, []byte(`{"done":3}`), fake.objects["runs/2021/report.json"])
}

func TestUploadJobOutputs(t *testing.T) {
	dir := t.TempDir()
	rasterPath := filepath.Join(dir, "grid.asc")
	require.NoError(t, os.WriteFile(rasterPath, []byte("ncols 1\n"), 0o644))

	job := &models.ProcessingJob{
		Fire: models.FireRecord{Name: "dixie", Year: 2021},
		OutputPaths: map[string]string{
			"raster_16mmh": rasterPath,
			"missing":      filepath.Join(dir, "nope.asc"),
		},
	}

	fake := &fakeS3{}
	u := NewS3UploaderWithClient(fake, "bucket", "")

	uploaded := u.UploadJobOutputs(context.Background(), job)
	// Missing local artifacts are skipped, not fatal.
	assert.Equal(t, 1, uploaded)
	assert.Contains(t, fake.objects, "2021_dixie/raster_16mmh.asc")
}

func TestUploadFile_PutFailure(t *testing.T) {
	local := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(local, []byte("x"), 0o644))

	u := NewS3UploaderWithClient(&fakeS3{err: errors.New("access denied")}, "bucket", "")
	assert.Error(t, u.UploadFile(context.Background(), local, "a.txt"))
}
