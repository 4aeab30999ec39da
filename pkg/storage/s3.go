package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"

	"github.com/noah-isme/council-portal-api/pkg/config"
)

// S3Store keeps every logical bucket as a key prefix inside one physical S3 bucket.
type S3Store struct {
	client        s3iface.S3API
	uploader      s3manageriface.UploaderAPI
	bucket        string
	region        string
	publicBaseURL string
}

// NewS3Store builds a client from static credentials, or from the default chain when none are set.
func NewS3Store(cfg config.S3Config, publicBaseURL string) (*S3Store, error) {
	awsCfg := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint)
	}
	if cfg.ForcePathStyle {
		awsCfg = awsCfg.WithS3ForcePathStyle(true)
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg = awsCfg.WithCredentials(credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, ""))
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	client := s3.New(sess)
	return NewS3StoreWithClient(client, s3manager.NewUploaderWithClient(client), cfg.Bucket, cfg.Region, publicBaseURL), nil
}

// NewS3StoreWithClient wires explicit clients.
func NewS3StoreWithClient(client s3iface.S3API, uploader s3manageriface.UploaderAPI, bucket, region, publicBaseURL string) *S3Store {
	return &S3Store{client: client, uploader: uploader, bucket: bucket, region: region, publicBaseURL: publicBaseURL}
}

// List returns the direct children of folder, folders included as IsDir entries.
func (s *S3Store) List(ctx context.Context, bucket, folder string, opts ListOptions) ([]ObjectInfo, error) {
	prefix, err := s.key(bucket, folder)
	if err != nil {
		return nil, err
	}
	prefix = strings.TrimSuffix(prefix, "/") + "/"

	result := make([]ObjectInfo, 0)
	err = s.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	}, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.StringValue(cp.Prefix), prefix), "/")
			if name == "" {
				continue
			}
			result = append(result, ObjectInfo{Name: name, Path: path.Join(folder, name), IsDir: true})
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.StringValue(obj.Key), prefix)
			if name == "" {
				continue
			}
			result = append(result, ObjectInfo{
				Name:      name,
				Path:      path.Join(folder, name),
				Size:      aws.Int64Value(obj.Size),
				UpdatedAt: aws.TimeValue(obj.LastModified).UTC(),
			})
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("list s3 %s: %w", prefix, err)
	}
	return sortAndLimit(result, opts), nil
}

// Upload streams r to the object key.
func (s *S3Store) Upload(ctx context.Context, bucket, objectPath string, r io.Reader, contentType string) error {
	key, err := s.key(bucket, objectPath)
	if err != nil {
		return err
	}
	input := &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.uploader.UploadWithContext(ctx, input); err != nil {
		return fmt.Errorf("upload s3 %s: %w", key, err)
	}
	return nil
}

// Remove deletes all paths in one batch request.
func (s *S3Store) Remove(ctx context.Context, bucket string, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	objects := make([]*s3.ObjectIdentifier, 0, len(paths))
	for _, p := range paths {
		key, err := s.key(bucket, p)
		if err != nil {
			return err
		}
		objects = append(objects, &s3.ObjectIdentifier{Key: aws.String(key)})
	}
	out, err := s.client.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &s3.Delete{Objects: objects, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return fmt.Errorf("delete s3 objects: %w", err)
	}
	if len(out.Errors) > 0 {
		first := out.Errors[0]
		return fmt.Errorf("delete s3 object %s: %s", aws.StringValue(first.Key), aws.StringValue(first.Message))
	}
	return nil
}

// PublicURL prefers the configured CDN base and falls back to the virtual-hosted S3 URL.
func (s *S3Store) PublicURL(bucket, objectPath string) string {
	base := s.publicBaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", s.bucket, s.region)
	}
	return joinURL(base, bucket, objectPath)
}

func (s *S3Store) key(bucket, objectPath string) (string, error) {
	b, err := CleanPath(bucket)
	if err != nil {
		return "", err
	}
	if objectPath == "" {
		return b, nil
	}
	p, err := CleanPath(objectPath)
	if err != nil {
		return "", err
	}
	return b + "/" + p, nil
}
