package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds configuration for S3-compatible storage
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // Optional: MinIO, DO Spaces, R2
	AccessKeyID     string
	SecretAccessKey string
	// PublicBaseURL overrides the computed object URL prefix, e.g. a CDN.
	PublicBaseURL string
}

// ErrNotConfigured is returned by Unconfigured for every upload.
var ErrNotConfigured = errors.New("object storage is not configured")

// Unconfigured stands in for a bucket when S3_BUCKET is unset.
type Unconfigured struct{}

func (Unconfigured) Upload(context.Context, string, io.Reader, string) (string, error) {
	return "", ErrNotConfigured
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader stores lease documents in a bucket and hands back their URL.
type S3Uploader struct {
	client putObjectAPI
	cfg    S3Config
}

func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var client *s3.Client
	if cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	return &S3Uploader{client: client, cfg: cfg}, nil
}

func newS3UploaderWithClient(client putObjectAPI, cfg S3Config) *S3Uploader {
	return &S3Uploader{client: client, cfg: cfg}
}

// Upload writes data under key and returns the object's public URL.
func (u *S3Uploader) Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error) {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.cfg.Bucket),
		Key:         aws.String(key),
		Body:        data,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return u.PublicURL(key), nil
}

func (u *S3Uploader) PublicURL(key string) string {
	cfg := u.cfg
	switch {
	case cfg.PublicBaseURL != "":
		return strings.TrimSuffix(cfg.PublicBaseURL, "/") + "/" + key
	case cfg.Endpoint != "" && strings.Contains(cfg.Endpoint, "digitaloceanspaces.com"):
		// DO Spaces: https://{bucket}.{region}.digitaloceanspaces.com/{key}
		host := strings.TrimPrefix(cfg.Endpoint, "https://")
		return fmt.Sprintf("https://%s.%s/%s", cfg.Bucket, host, key)
	case cfg.Endpoint != "":
		// path-style, matching UsePathStyle above
		return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(cfg.Endpoint, "/"), cfg.Bucket, key)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", cfg.Bucket, cfg.Region, key)
	}
}
