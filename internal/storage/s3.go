package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type Config struct {
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	Bucket       string
	UsePathStyle bool
	Prefix       string
}

// S3Store keeps files under <prefix>/<file type>/<filename> in one bucket.
type S3Store struct {
	cfg    Config
	client *s3.Client
}

func NewS3Store(cfg Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3 region is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("s3 credentials are required")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "downloads"
	}

	options := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: cfg.UsePathStyle,
	}
	if cfg.Endpoint != "" {
		options.BaseEndpoint = aws.String(cfg.Endpoint)
	}

	return &S3Store{
		cfg:    cfg,
		client: s3.New(options),
	}, nil
}

func (s *S3Store) key(fileType FileType, filename string) string {
	return path.Join(strings.Trim(s.cfg.Prefix, "/"), string(fileType), filename)
}

func (s *S3Store) Put(ctx context.Context, fileType FileType, filename string, body io.Reader, size int64) (*Object, error) {
	if err := Validate(fileType, filename); err != nil {
		return nil, err
	}
	contentType := ContentTypeFor(filename)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(s.key(fileType, filename)),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		ACL:           types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return nil, fmt.Errorf("upload to s3: %w", err)
	}
	return &Object{
		Filename:    filename,
		Type:        fileType,
		Size:        size,
		ContentType: contentType,
		ModifiedAt:  time.Now().UTC(),
	}, nil
}

// Get opens the object for reading. The caller closes Body.
func (s *S3Store) Get(ctx context.Context, fileType FileType, filename string) (*Object, io.ReadCloser, error) {
	if err := Validate(fileType, filename); err != nil {
		return nil, nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.key(fileType, filename)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("get from s3: %w", err)
	}

	obj := &Object{
		Filename:    filename,
		Type:        fileType,
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
		ModifiedAt:  aws.ToTime(out.LastModified),
	}
	if obj.ContentType == "" {
		obj.ContentType = ContentTypeFor(filename)
	}
	return obj, out.Body, nil
}

func (s *S3Store) List(ctx context.Context, fileType FileType) ([]Object, error) {
	if !fileType.Valid() {
		return nil, ErrInvalidType
	}
	prefix := s.key(fileType, "") + "/"
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.cfg.Bucket),
		Prefix: aws.String(prefix),
	})

	objects := []Object{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3 objects: %w", err)
		}
		for _, item := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(item.Key), prefix)
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			objects = append(objects, Object{
				Filename:    name,
				Type:        fileType,
				Size:        aws.ToInt64(item.Size),
				ContentType: ContentTypeFor(name),
				ModifiedAt:  aws.ToTime(item.LastModified),
			})
		}
	}
	return objects, nil
}
