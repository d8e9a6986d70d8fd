package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const s3Scheme = "s3://"

// RemoteOptions holds the settings used to reach an object store
type RemoteOptions struct {
	Region   string
	Profile  string
	Endpoint string

	HeadMetadata bool
}

// IsS3Target reports whether target is an s3:// URL
func IsS3Target(target string) bool {
	return strings.HasPrefix(target, s3Scheme)
}

// ParseS3URL splits s3://bucket/prefix into its bucket and prefix
func ParseS3URL(target string) (bucket, prefix string, err error) {
	rest, ok := strings.CutPrefix(target, s3Scheme)
	if !ok {
		return "", "", fmt.Errorf("not an s3 url: %s", target)
	}

	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("missing bucket in s3 url: %s", target)
	}

	return bucket, strings.Trim(prefix, "/"), nil
}

// Open returns a backend for target: an s3://bucket/prefix URL opens the
// S3 backend, anything else is a local directory
func Open(ctx context.Context, target string, opts RemoteOptions) (Backend, error) {
	if !IsS3Target(target) {
		return NewLocal(target)
	}

	bucket, prefix, err := ParseS3URL(target)
	if err != nil {
		return nil, err
	}

	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.Profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			// S3-compatible stores generally need path-style addressing
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3(client, S3Options{
		Bucket:       bucket,
		Prefix:       prefix,
		HeadMetadata: opts.HeadMetadata,
	})
}
