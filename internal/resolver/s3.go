package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/hyperjump/ruiji/internal/imagekey"
)

// S3Client abstracts the S3 API operations used by [S3Resolver].
// The [s3.Client] type satisfies this interface.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Options configures an S3-compatible client.
type S3Options struct {
	Region    string
	Endpoint  string
	PathStyle bool
}

// S3Resolver reads images from an S3 bucket. A key is mapped to an object by
// taking its path relative to the image root and prepending the prefix.
type S3Resolver struct {
	client S3Client
	bucket string
	prefix string
	root   string
}

// NewS3Resolver creates an S3-backed resolver. Prefix may be empty.
func NewS3Resolver(client S3Client, bucket, prefix, root string) *S3Resolver {
	return &S3Resolver{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		root:   root,
	}
}

// NewS3Client builds an [s3.Client] from the default AWS configuration chain
// (environment, shared config files, instance roles). Non-empty opts override
// the region and endpoint.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = opts.PathStyle
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	}), nil
}

// ObjectKey returns the S3 object key for an image key.
func (r *S3Resolver) ObjectKey(key string) string {
	rel, ok := imagekey.Relative(r.root, key)
	if !ok {
		rel = strings.TrimPrefix(key, "/")
	}
	if r.prefix == "" {
		return rel
	}
	return r.prefix + "/" + rel
}

// Resolve downloads the object for key.
func (r *S3Resolver) Resolve(ctx context.Context, key string) ([]byte, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.ObjectKey(key)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("s3 get %s: %w", key, err)
	}
	defer out.Body.Close()
	return readLimited(out.Body, key)
}

// isS3NotFound reports whether err indicates the S3 object does not exist.
func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

var _ Resolver = (*S3Resolver)(nil)
