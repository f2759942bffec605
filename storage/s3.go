package storage

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"linkedout/domain"
)

// S3Store keeps blobs in an S3 bucket. Retrieval URLs are presigned GETs with
// the standard 30-minute expiry, which plays the same role the original
// deployment's SAS tokens did: capability-bearing, time-boxed read access
// without separate authentication.
type S3Store struct {
	client   *s3.Client
	presign  *s3.PresignClient
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

var _ domain.BlobStore = &S3Store{}

// NewS3Store builds the S3 client from the ambient AWS config, optionally
// overridden with static credentials from our own config.
func NewS3Store(ctx context.Context, cfg Config) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("err loading aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	return &S3Store{
		client:   client,
		presign:  s3.NewPresignClient(client),
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
	}, nil
}

// Put uploads the blob through the s3 upload manager, which handles
// multipart splitting and non-seekable readers.
func (ss *S3Store) Put(ctx context.Context, name string, contentType string, r io.Reader) error {
	if err := validName(name); err != nil {
		return err
	}
	_, err := ss.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(ss.bucket),
		Key:         aws.String(ss.key(name)),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	return err
}

// RetrievalURL presigns a GET for the blob, valid for domain.RetrievalURLTTL.
func (ss *S3Store) RetrievalURL(ctx context.Context, name string) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	req, err := ss.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(ss.bucket),
		Key:    aws.String(ss.key(name)),
	}, s3.WithPresignExpires(domain.RetrievalURLTTL))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// Delete removes the blob object.
func (ss *S3Store) Delete(ctx context.Context, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	_, err := ss.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(ss.bucket),
		Key:    aws.String(ss.key(name)),
	})
	return err
}

func (ss *S3Store) key(name string) string {
	if ss.prefix == "" {
		return name
	}
	return path.Join(ss.prefix, name)
}
