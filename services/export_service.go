package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"hermes-backend/metrics"
	"hermes-backend/models"
)

// Uploader is the part of manager.Uploader the export needs.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// ExportResult describes one uploaded snapshot.
type ExportResult struct {
	Variant  string `json:"variant"`
	Bucket   string `json:"bucket"`
	Key      string `json:"key"`
	Location string `json:"location"`
	Count    int    `json:"count"`
}

type snapshot struct {
	Variant    string          `json:"variant"`
	ExportedAt time.Time       `json:"exported_at"`
	Count      int             `json:"count"`
	Data       []models.Record `json:"data"`
}

// ExportService writes JSON snapshots of a variant to S3.
type ExportService struct {
	uploader Uploader
	bucket   string
	prefix   string
	now      func() time.Time
	log      logrus.FieldLogger
}

// NewS3Uploader builds the multipart uploader over an S3 client.
func NewS3Uploader(cfg aws.Config) *manager.Uploader {
	return manager.NewUploader(s3.NewFromConfig(cfg))
}

func NewExportService(uploader Uploader, bucket, prefix string, log logrus.FieldLogger) *ExportService {
	return &ExportService{
		uploader: uploader,
		bucket:   bucket,
		prefix:   prefix,
		now:      time.Now,
		log:      log.WithField("component", "export"),
	}
}

// Export uploads every record of the service's variant as one JSON object.
func (e *ExportService) Export(ctx context.Context, records *RecordService) (*ExportResult, error) {
	variant := records.Variant().Name
	res, err := e.export(ctx, records)
	if err != nil {
		metrics.Exports.WithLabelValues(variant, "error").Inc()
		e.log.WithError(err).WithField("variant", variant).Error("Gagal mengekspor data ke S3")
		return nil, err
	}
	metrics.Exports.WithLabelValues(variant, "ok").Inc()
	e.log.WithFields(logrus.Fields{"variant": variant, "key": res.Key, "count": res.Count}).Info("Ekspor data ke S3 selesai")
	return res, nil
}

func (e *ExportService) export(ctx context.Context, records *RecordService) (*ExportResult, error) {
	all, err := records.Search(ctx, SearchCriteria{})
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	variant := records.Variant().Name
	body, err := json.Marshal(snapshot{
		Variant:    variant,
		ExportedAt: now,
		Count:      len(all),
		Data:       all,
	})
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	key := path.Join(e.prefix, variant, now.Format("20060102T150405Z")+".json")
	out, err := e.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}

	return &ExportResult{
		Variant:  variant,
		Bucket:   e.bucket,
		Key:      key,
		Location: out.Location,
		Count:    len(all),
	}, nil
}
