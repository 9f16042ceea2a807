package storage

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/subashpoudel19/wildfire/core/models"
)

// S3API is the subset of the S3 client the uploader needs.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader pushes produced artifacts (rasters, vector exports, the
// aggregate report) to an S3 bucket so downstream consumers never touch
// the processing host.
type S3Uploader struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Uploader creates a new uploader using the default AWS credential chain.
func NewS3Uploader(ctx context.Context, bucket, prefix, region string) (*S3Uploader, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &S3Uploader{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// NewS3UploaderWithClient creates an uploader with an injected client.
func NewS3UploaderWithClient(client S3API, bucket, prefix string) *S3Uploader {
	return &S3Uploader{client: client, bucket: bucket, prefix: prefix}
}

// UploadFile uploads one local file under the uploader's prefix.
func (u *S3Uploader) UploadFile(ctx context.Context, localPath, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	fullKey := path.Join(u.prefix, key)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(fullKey),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", fullKey, err)
	}
	return nil
}

// UploadJobOutputs uploads every artifact a finished job recorded, keyed
// by fire and product name. Individual upload failures are logged and
// counted, not fatal: the local outputs remain the source of truth.
func (u *S3Uploader) UploadJobOutputs(ctx context.Context, job *models.ProcessingJob) int {
	uploaded := 0
	for product, localPath := range job.OutputPaths {
		key := path.Join(job.Fire.Key(), product+filepath.Ext(localPath))
		if err := u.UploadFile(ctx, localPath, key); err != nil {
			log.Printf("[%s] Upload failed for %s: %v", job.Fire.Key(), product, err)
			continue
		}
		uploaded++
	}
	return uploaded
}

// UploadReport uploads the serialized aggregate report.
func (u *S3Uploader) UploadReport(ctx context.Context, localPath string) error {
	return u.UploadFile(ctx, localPath, path.Base(localPath))
}
