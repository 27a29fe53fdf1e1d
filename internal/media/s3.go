/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// DefaultPresignTTL covers an hour of air plus slack for late playback.
const DefaultPresignTTL = 3 * time.Hour

// S3Config contains S3-compatible storage configuration.
type S3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Bucket          string
	Endpoint        string // For S3-compatible services (MinIO, Spaces, etc.)
	UsePathStyle    bool
	PresignTTL      time.Duration
}

// S3Signer presigns GET requests for audio objects.
type S3Signer struct {
	bucket    string
	ttl       time.Duration
	presigner *s3.PresignClient
	logger    zerolog.Logger
}

// NewS3Signer builds a signer. Static keys are used when given, otherwise the
// default AWS credential chain applies.
func NewS3Signer(ctx context.Context, cfg S3Config, logger zerolog.Logger) (*S3Signer, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(strings.TrimRight(cfg.Endpoint, "/"))
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = DefaultPresignTTL
	}

	logger.Info().
		Str("bucket", cfg.Bucket).
		Str("region", region).
		Str("endpoint", cfg.Endpoint).
		Dur("ttl", ttl).
		Msg("s3 audio signer configured")

	return &S3Signer{
		bucket:    cfg.Bucket,
		ttl:       ttl,
		presigner: s3.NewPresignClient(client),
		logger:    logger,
	}, nil
}

// Bucket returns the signer's bucket.
func (s *S3Signer) Bucket() string {
	return s.bucket
}

// Presign returns a time-limited GET URL for key.
func (s *S3Signer) Presign(ctx context.Context, key string) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return req.URL, nil
}
