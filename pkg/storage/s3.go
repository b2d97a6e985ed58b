package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/ethpandaops/trendoor/pkg/config"
)

// Compile-time interface check.
var _ Backend = (*s3Backend)(nil)

type s3Backend struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Backend creates a Backend storing documents in S3-compatible
// object storage under the configured key prefix.
func NewS3Backend(cfg *config.S3StorageConfig) Backend {
	opts := []func(*s3.Options){
		func(o *s3.Options) {
			if cfg.Region != "" {
				o.Region = cfg.Region
			} else {
				o.Region = "us-east-1"
			}

			if cfg.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.EndpointURL)
			}

			if cfg.ForcePathStyle {
				o.UsePathStyle = true
			}

			if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
				o.Credentials = credentials.NewStaticCredentialsProvider(
					cfg.AccessKeyID, cfg.SecretAccessKey, "",
				)
			}
		},
	}

	return &s3Backend{
		client: s3.New(s3.Options{}, opts...),
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}
}

// List returns document names derived from *.json keys under the prefix.
func (b *s3Backend) List(ctx context.Context) ([]string, error) {
	prefix := b.prefix
	if prefix != "" {
		prefix += "/"
	}

	paginator := s3.NewListObjectsV2Paginator(
		b.client, &s3.ListObjectsV2Input{
			Bucket:    aws.String(b.bucket),
			Prefix:    aws.String(prefix),
			Delimiter: aws.String("/"),
		},
	)

	var names []string

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf(
				"listing documents under %q: %w", prefix, err,
			)
		}

		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}

			base := path.Base(*obj.Key)
			if !strings.HasSuffix(base, documentExt) {
				continue
			}

			names = append(names, strings.TrimSuffix(base, documentExt))
		}
	}

	return names, nil
}

// Get reads the document object. Returns (nil, nil) when the key does
// not exist.
func (b *s3Backend) Get(ctx context.Context, name string) ([]byte, error) {
	key, err := b.documentKey(name)
	if err != nil {
		return nil, err
	}

	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("getting object %q: %w", key, err)
	}

	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading object %q: %w", key, err)
	}

	return data, nil
}

// Put writes the document object. S3 object writes are atomic by nature.
func (b *s3Backend) Put(ctx context.Context, name string, data []byte) error {
	key, err := b.documentKey(name)
	if err != nil {
		return err
	}

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("putting object %q: %w", key, err)
	}

	return nil
}

func (b *s3Backend) documentKey(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("document name is required")
	}

	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return "", fmt.Errorf("document name %q is not allowed", name)
	}

	if b.prefix == "" {
		return name + documentExt, nil
	}

	return b.prefix + "/" + name + documentExt, nil
}

func isS3NotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}

	return strings.Contains(err.Error(), "NoSuchKey")
}
