// Package s3 stores uploaded images in S3-compatible object storage.
package s3

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Config holds object storage settings
type Config struct {
	Region    string
	Bucket    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Store uploads and deletes objects in a bucket. Keys are namespaced by
// business id so usage accounting can aggregate per tenant.
type Store struct {
	client *awss3.Client
	bucket string
}

// New creates the object store. A non-empty Endpoint points the client
// at an S3-compatible service such as MinIO.
func New(ctx context.Context, cfg Config) (*Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// UploadResult describes a stored object
type UploadResult struct {
	Key  string
	URL  string
	Size int64
}

// Upload stores an image under a generated key and returns its location
func (s *Store) Upload(ctx context.Context, businessID, filename, contentType string, body io.Reader, size int64) (*UploadResult, error) {
	key := fmt.Sprintf("%s/%s/%s%s",
		businessID,
		time.Now().UTC().Format("2006/01"),
		uuid.NewString(),
		path.Ext(filename))

	_, err := s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload object %s: %w", key, err)
	}

	return &UploadResult{
		Key:  key,
		URL:  fmt.Sprintf("s3://%s/%s", s.bucket, key),
		Size: size,
	}, nil
}

// Delete removes an object
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// UsageForBusiness sums the stored bytes and object count under a
// business prefix by listing the bucket.
func (s *Store) UsageForBusiness(ctx context.Context, businessID string) (bytes int64, objects int, err error) {
	paginator := awss3.NewListObjectsV2Paginator(s.client, &awss3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(businessID + "/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to list objects for %s: %w", businessID, err)
		}
		for _, obj := range page.Contents {
			if obj.Size != nil {
				bytes += *obj.Size
			}
			objects++
		}
	}
	return bytes, objects, nil
}
