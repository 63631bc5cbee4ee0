package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (u *fakeUploader) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if u.err != nil {
		return nil, u.err
	}
	u.input = input
	body, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	u.body = body
	return &manager.UploadOutput{Location: "https://bucket.s3/" + aws.ToString(input.Key)}, nil
}

func TestExportUploadsSnapshot(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	log, _ := logtest.NewNullLogger()

	up := &fakeUploader{}
	svc := NewExportService(up, "hermes-backup", "exports", log)
	svc.now = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC) }

	res, err := svc.Export(context.Background(), f.personnel)
	require.NoError(t, err)
	assert.Equal(t, "exports/personnel/20250304T050607Z.json", res.Key)
	assert.Equal(t, "hermes-backup", aws.ToString(up.input.Bucket))
	assert.Equal(t, "application/json", aws.ToString(up.input.ContentType))
	assert.Equal(t, 3, res.Count)
	assert.Equal(t, "https://bucket.s3/exports/personnel/20250304T050607Z.json", res.Location)

	var snap struct {
		Variant string           `json:"variant"`
		Count   int              `json:"count"`
		Data    []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(up.body, &snap))
	assert.Equal(t, "personnel", snap.Variant)
	assert.Equal(t, 3, snap.Count)
	require.Len(t, snap.Data, 3)
	assert.Equal(t, "Ahmad Dhani", snap.Data[0]["nama"])
	assert.Contains(t, snap.Data[0], "nip")
}

func TestExportUploadFailure(t *testing.T) {
	f := newFixture(t)
	log, _ := logtest.NewNullLogger()

	svc := NewExportService(&fakeUploader{err: errors.New("access denied")}, "b", "", log)
	_, err := svc.Export(context.Background(), f.users)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}
