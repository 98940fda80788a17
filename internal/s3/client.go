// Package s3 is the object store adapter: buckets and objects on the active
// LocalStack instance.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/arencloud/stackdeck/internal/awsclient"
	"github.com/arencloud/stackdeck/internal/logging"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// API is the subset of the S3 client used here.
type API interface {
	ListBuckets(ctx context.Context, in *s3v2.ListBucketsInput, optFns ...func(*s3v2.Options)) (*s3v2.ListBucketsOutput, error)
	CreateBucket(ctx context.Context, in *s3v2.CreateBucketInput, optFns ...func(*s3v2.Options)) (*s3v2.CreateBucketOutput, error)
	DeleteBucket(ctx context.Context, in *s3v2.DeleteBucketInput, optFns ...func(*s3v2.Options)) (*s3v2.DeleteBucketOutput, error)
	HeadBucket(ctx context.Context, in *s3v2.HeadBucketInput, optFns ...func(*s3v2.Options)) (*s3v2.HeadBucketOutput, error)
	ListObjectsV2(ctx context.Context, in *s3v2.ListObjectsV2Input, optFns ...func(*s3v2.Options)) (*s3v2.ListObjectsV2Output, error)
	PutObject(ctx context.Context, in *s3v2.PutObjectInput, optFns ...func(*s3v2.Options)) (*s3v2.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3v2.GetObjectInput, optFns ...func(*s3v2.Options)) (*s3v2.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3v2.HeadObjectInput, optFns ...func(*s3v2.Options)) (*s3v2.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3v2.DeleteObjectInput, optFns ...func(*s3v2.Options)) (*s3v2.DeleteObjectOutput, error)
}

// Presigner signs GetObject requests.
type Presigner interface {
	PresignGetObject(ctx context.Context, in *s3v2.GetObjectInput, optFns ...func(*s3v2.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

var (
	_ API       = (*s3v2.Client)(nil)
	_ Presigner = (*s3v2.PresignClient)(nil)
)

type Bucket struct {
	Name         string     `json:"name"`
	CreationDate *time.Time `json:"creationDate,omitempty"`
}

type Object struct {
	Key          string     `json:"key"`
	Size         int64      `json:"size"`
	LastModified *time.Time `json:"lastModified,omitempty"`
	ETag         string     `json:"etag,omitempty"`
	StorageClass string     `json:"storageClass,omitempty"`
}

// ObjectInfo is the metadata returned by Stat.
type ObjectInfo struct {
	Key           string
	ContentType   string
	ContentLength int64
}

type Client struct {
	api     API
	presign Presigner
	region  string
	logger  logging.Logger
}

// New wraps api. When api is a real SDK client presigning is enabled too.
func New(api API, logger logging.Logger) *Client {
	c := &Client{api: api, logger: logger.With("service", "s3")}
	if sc, ok := api.(*s3v2.Client); ok {
		c.presign = s3v2.NewPresignClient(sc)
		c.region = sc.Options().Region
	}
	return c
}

func NewFromFactory(f *awsclient.Factory, logger logging.Logger) *Client {
	return New(f.S3(), logger)
}

func (c *Client) ListContainers(ctx context.Context) ([]Bucket, error) {
	out, err := c.api.ListBuckets(ctx, &s3v2.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	buckets := make([]Bucket, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		buckets = append(buckets, Bucket{Name: aws.ToString(b.Name), CreationDate: b.CreationDate})
	}
	return buckets, nil
}

// CreateContainer creates a bucket. Outside us-east-1 the region is sent as
// the location constraint.
func (c *Client) CreateContainer(ctx context.Context, name string) error {
	in := &s3v2.CreateBucketInput{Bucket: aws.String(name)}
	if c.region != "" && c.region != "us-east-1" {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(c.region),
		}
	}
	if _, err := c.api.CreateBucket(ctx, in); err != nil {
		return fmt.Errorf("create bucket %s: %w", name, err)
	}
	return nil
}

// Phase names the step of DeleteContainer that failed.
type Phase string

const (
	PhaseEmpty  Phase = "empty"
	PhaseRemove Phase = "remove"
)

// DeleteContainerError reports a partially completed bucket deletion. The
// bucket still exists; Removed objects are gone for good.
type DeleteContainerError struct {
	Container string
	Phase     Phase
	Removed   int
	Err       error
}

func (e *DeleteContainerError) Error() string {
	return fmt.Sprintf("delete bucket %s: %s phase failed after removing %d objects: %v", e.Container, e.Phase, e.Removed, e.Err)
}

func (e *DeleteContainerError) Unwrap() error { return e.Err }

// DeleteContainer empties the bucket and then deletes it. The two steps are
// not atomic; a failure returns *DeleteContainerError describing where it stopped.
func (c *Client) DeleteContainer(ctx context.Context, name string) error {
	removed, err := c.EmptyContainer(ctx, name)
	if err != nil {
		c.logger.Error("bucket empty failed", "bucket", name, "removed", removed, "error", err)
		return &DeleteContainerError{Container: name, Phase: PhaseEmpty, Removed: removed, Err: err}
	}
	if _, err := c.api.DeleteBucket(ctx, &s3v2.DeleteBucketInput{Bucket: aws.String(name)}); err != nil {
		c.logger.Error("bucket delete failed", "bucket", name, "removed", removed, "error", err)
		return &DeleteContainerError{Container: name, Phase: PhaseRemove, Removed: removed, Err: err}
	}
	c.logger.Info("bucket deleted", "bucket", name, "removed", removed)
	return nil
}

// EmptyContainer deletes every object in the bucket, following listing
// continuation tokens, and returns how many were removed.
func (c *Client) EmptyContainer(ctx context.Context, name string) (int, error) {
	removed := 0
	p := s3v2.NewListObjectsV2Paginator(c.api, &s3v2.ListObjectsV2Input{Bucket: aws.String(name)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return removed, fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			if err := c.DeleteObject(ctx, name, *obj.Key); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

// ListObjects returns one listing page, optionally filtered by prefix.
func (c *Client) ListObjects(ctx context.Context, container, prefix string) ([]Object, error) {
	in := &s3v2.ListObjectsV2Input{Bucket: aws.String(container)}
	if prefix != "" {
		in.Prefix = aws.String(prefix)
	}
	out, err := c.api.ListObjectsV2(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("list objects in %s: %w", container, err)
	}
	objs := make([]Object, 0, len(out.Contents))
	for _, o := range out.Contents {
		objs = append(objs, Object{
			Key:          aws.ToString(o.Key),
			Size:         aws.ToInt64(o.Size),
			LastModified: o.LastModified,
			ETag:         aws.ToString(o.ETag),
			StorageClass: string(o.StorageClass),
		})
	}
	return objs, nil
}

func (c *Client) UploadObject(ctx context.Context, container, key string, body []byte, contentType string) error {
	in := &s3v2.PutObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := c.api.PutObject(ctx, in); err != nil {
		return fmt.Errorf("put object %s/%s: %w", container, key, err)
	}
	return nil
}

// DownloadObject reads the whole object as text. An empty body yields "".
func (c *Client) DownloadObject(ctx context.Context, container, key string) (string, error) {
	rc, _, err := c.OpenObject(ctx, container, key)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read object %s/%s: %w", container, key, err)
	}
	return string(b), nil
}

// OpenObject streams an object. The caller closes the reader.
func (c *Client) OpenObject(ctx context.Context, container, key string) (io.ReadCloser, ObjectInfo, error) {
	out, err := c.api.GetObject(ctx, &s3v2.GetObjectInput{Bucket: aws.String(container), Key: aws.String(key)})
	if err != nil {
		return nil, ObjectInfo{}, fmt.Errorf("get object %s/%s: %w", container, key, err)
	}
	info := ObjectInfo{Key: key, ContentType: aws.ToString(out.ContentType), ContentLength: aws.ToInt64(out.ContentLength)}
	if out.Body == nil {
		return io.NopCloser(bytes.NewReader(nil)), info, nil
	}
	return out.Body, info, nil
}

// Stat returns object metadata without reading the body.
func (c *Client) Stat(ctx context.Context, container, key string) (ObjectInfo, error) {
	out, err := c.api.HeadObject(ctx, &s3v2.HeadObjectInput{Bucket: aws.String(container), Key: aws.String(key)})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("head object %s/%s: %w", container, key, err)
	}
	return ObjectInfo{Key: key, ContentType: aws.ToString(out.ContentType), ContentLength: aws.ToInt64(out.ContentLength)}, nil
}

func (c *Client) DeleteObject(ctx context.Context, container, key string) error {
	if _, err := c.api.DeleteObject(ctx, &s3v2.DeleteObjectInput{Bucket: aws.String(container), Key: aws.String(key)}); err != nil {
		return fmt.Errorf("delete object %s/%s: %w", container, key, err)
	}
	return nil
}

// ProbeContainer reports whether the bucket exists. A not-found response is
// (false, nil); any other failure is returned as an error.
func (c *Client) ProbeContainer(ctx context.Context, name string) (bool, error) {
	_, err := c.api.HeadBucket(ctx, &s3v2.HeadBucketInput{Bucket: aws.String(name)})
	switch {
	case err == nil:
		return true, nil
	case awsclient.IsNotFound(err):
		return false, nil
	default:
		return false, fmt.Errorf("head bucket %s: %w", name, err)
	}
}

// ContainerExists is ProbeContainer collapsed to a bool: every failure reads
// as absent. Failures other than not-found are logged.
func (c *Client) ContainerExists(ctx context.Context, name string) bool {
	ok, err := c.ProbeContainer(ctx, name)
	if err != nil {
		c.logger.Error("bucket probe failed, reporting absent", "bucket", name, "error", err)
	}
	return ok
}

var ErrPresignUnavailable = errors.New("presigning needs an SDK client")

// PresignDownload returns a GET URL valid for ttl (one hour when ttl <= 0).
func (c *Client) PresignDownload(ctx context.Context, container, key string, ttl time.Duration) (string, error) {
	if c.presign == nil {
		return "", ErrPresignUnavailable
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	req, err := c.presign.PresignGetObject(ctx, &s3v2.GetObjectInput{Bucket: aws.String(container), Key: aws.String(key)},
		s3v2.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign %s/%s: %w", container, key, err)
	}
	return req.URL, nil
}
