// Package storage keeps a copy of every raw contact upload in S3.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// UploadArchive stores the original bytes of an upload.
type UploadArchive interface {
	Archive(ctx context.Context, activityID, filename string, body []byte) (string, error)
}

// PutObjectAPI is the part of *s3.Client the archive needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Archive struct {
	Client PutObjectAPI
	Bucket string
	Prefix string
	Now    func() time.Time
}

// NewS3Archive loads the default AWS credential chain for region.
func NewS3Archive(ctx context.Context, bucket, region, prefix string) (*S3Archive, error) {
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &S3Archive{
		Client: s3.NewFromConfig(awsCfg),
		Bucket: bucket,
		Prefix: prefix,
		Now:    time.Now,
	}, nil
}

// ObjectKey lays keys out as <prefix><activityID>/YYYY/MM/DD/HH/mm/ss/<uuid><ext>.
func (a *S3Archive) ObjectKey(activityID, filename string) string {
	now := time.Now().UTC()
	if a.Now != nil {
		now = a.Now().UTC()
	}
	ext := strings.ToLower(filepath.Ext(filename))
	return a.Prefix + path.Join(activityID, fmt.Sprintf("%04d/%02d/%02d/%02d/%02d/%02d/%s%s",
		now.Year(), now.Month(), now.Day(),
		now.Hour(), now.Minute(), now.Second(),
		uuid.New().String(), ext))
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return "text/csv"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".xlsm":
		return "application/vnd.ms-excel.sheet.macroEnabled.12"
	default:
		return "application/octet-stream"
	}
}

func (a *S3Archive) Archive(ctx context.Context, activityID, filename string, body []byte) (string, error) {
	key := a.ObjectKey(activityID, filename)
	_, err := a.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentTypeFor(filename)),
		Metadata: map[string]string{
			"activity-id":       activityID,
			"original-filename": filepath.Base(filename),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to s3://%s: %w", key, a.Bucket, err)
	}
	return key, nil
}

var _ UploadArchive = (*S3Archive)(nil)
