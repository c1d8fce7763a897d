package export

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PutObjectAPI is the slice of the S3 client the writer needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config locates a bucket. Empty credentials fall back to the default
// AWS credential chain; Endpoint targets S3-compatible stores like MinIO.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Format          Format `yaml:"format"`
}

// NewS3Client builds a client from cfg.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("export: load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// S3Writer uploads one object per run.
type S3Writer struct {
	client PutObjectAPI
	bucket string
	prefix string
	format Format
}

// NewS3Writer wraps client for the bucket in cfg.
func NewS3Writer(client PutObjectAPI, cfg S3Config) (*S3Writer, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("export: S3 bucket is required")
	}
	return &S3Writer{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, format: cfg.Format}, nil
}

// Write implements Writer
func (w *S3Writer) Write(ctx context.Context, d Document) error {
	if d.RunID == "" {
		return ErrNoRunID
	}
	data, err := Marshal(d, w.format)
	if err != nil {
		return err
	}
	contentType := "application/json"
	if w.format == FormatYAML {
		contentType = "application/yaml"
	}
	key := Key(w.prefix, d.RunID, w.format)
	_, err = w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(w.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("export: put s3://%s/%s: %w", w.bucket, key, err)
	}
	return nil
}
