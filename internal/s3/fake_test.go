package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// fakeS3 keeps buckets in memory. pageSize > 0 splits listings into pages.
type fakeS3 struct {
	buckets   map[string]map[string]fakeObject
	pageSize  int
	failHead  error
	failDelOn string
	deleted   []string
}

type fakeObject struct {
	body        []byte
	contentType string
}

func newFakeS3() *fakeS3 { return &fakeS3{buckets: map[string]map[string]fakeObject{}} }

func noSuchBucket() error { return &smithy.GenericAPIError{Code: "NoSuchBucket", Message: "The specified bucket does not exist"} }

func (f *fakeS3) ListBuckets(context.Context, *s3v2.ListBucketsInput, ...func(*s3v2.Options)) (*s3v2.ListBucketsOutput, error) {
	names := make([]string, 0, len(f.buckets))
	for n := range f.buckets {
		names = append(names, n)
	}
	sort.Strings(names)
	out := &s3v2.ListBucketsOutput{}
	for _, n := range names {
		out.Buckets = append(out.Buckets, types.Bucket{Name: aws.String(n)})
	}
	return out, nil
}

func (f *fakeS3) CreateBucket(_ context.Context, in *s3v2.CreateBucketInput, _ ...func(*s3v2.Options)) (*s3v2.CreateBucketOutput, error) {
	name := aws.ToString(in.Bucket)
	if _, ok := f.buckets[name]; ok {
		return nil, &smithy.GenericAPIError{Code: "BucketAlreadyOwnedByYou"}
	}
	f.buckets[name] = map[string]fakeObject{}
	return &s3v2.CreateBucketOutput{}, nil
}

func (f *fakeS3) DeleteBucket(_ context.Context, in *s3v2.DeleteBucketInput, _ ...func(*s3v2.Options)) (*s3v2.DeleteBucketOutput, error) {
	b, ok := f.buckets[aws.ToString(in.Bucket)]
	if !ok {
		return nil, noSuchBucket()
	}
	if len(b) > 0 {
		return nil, &smithy.GenericAPIError{Code: "BucketNotEmpty"}
	}
	delete(f.buckets, aws.ToString(in.Bucket))
	return &s3v2.DeleteBucketOutput{}, nil
}

func (f *fakeS3) HeadBucket(_ context.Context, in *s3v2.HeadBucketInput, _ ...func(*s3v2.Options)) (*s3v2.HeadBucketOutput, error) {
	if f.failHead != nil {
		return nil, f.failHead
	}
	if _, ok := f.buckets[aws.ToString(in.Bucket)]; !ok {
		return nil, &smithy.GenericAPIError{Code: "NotFound"}
	}
	return &s3v2.HeadBucketOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3v2.ListObjectsV2Input, _ ...func(*s3v2.Options)) (*s3v2.ListObjectsV2Output, error) {
	b, ok := f.buckets[aws.ToString(in.Bucket)]
	if !ok {
		return nil, noSuchBucket()
	}
	keys := make([]string, 0, len(b))
	for k := range b {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	// The token is the last key of the previous page, so objects deleted
	// between pages do not shift the listing.
	start := 0
	if in.ContinuationToken != nil {
		start = sort.SearchStrings(keys, *in.ContinuationToken)
		if start < len(keys) && keys[start] == *in.ContinuationToken {
			start++
		}
	}
	end := len(keys)
	if f.pageSize > 0 && start+f.pageSize < end {
		end = start + f.pageSize
	}
	out := &s3v2.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(keys[end-1])
	}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k), Size: aws.Int64(int64(len(b[k].body)))})
	}
	return out, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3v2.PutObjectInput, _ ...func(*s3v2.Options)) (*s3v2.PutObjectOutput, error) {
	b, ok := f.buckets[aws.ToString(in.Bucket)]
	if !ok {
		return nil, noSuchBucket()
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	b[aws.ToString(in.Key)] = fakeObject{body: body, contentType: aws.ToString(in.ContentType)}
	return &s3v2.PutObjectOutput{}, nil
}

func (f *fakeS3) object(bucket, key *string) (fakeObject, error) {
	b, ok := f.buckets[aws.ToString(bucket)]
	if !ok {
		return fakeObject{}, noSuchBucket()
	}
	o, ok := b[aws.ToString(key)]
	if !ok {
		return fakeObject{}, &smithy.GenericAPIError{Code: "NoSuchKey"}
	}
	return o, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3v2.GetObjectInput, _ ...func(*s3v2.Options)) (*s3v2.GetObjectOutput, error) {
	o, err := f.object(in.Bucket, in.Key)
	if err != nil {
		return nil, err
	}
	return &s3v2.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(o.body)),
		ContentType:   aws.String(o.contentType),
		ContentLength: aws.Int64(int64(len(o.body))),
	}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3v2.HeadObjectInput, _ ...func(*s3v2.Options)) (*s3v2.HeadObjectOutput, error) {
	o, err := f.object(in.Bucket, in.Key)
	if err != nil {
		return nil, err
	}
	return &s3v2.HeadObjectOutput{ContentType: aws.String(o.contentType), ContentLength: aws.Int64(int64(len(o.body)))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3v2.DeleteObjectInput, _ ...func(*s3v2.Options)) (*s3v2.DeleteObjectOutput, error) {
	key := aws.ToString(in.Key)
	if f.failDelOn != "" && key == f.failDelOn {
		return nil, errors.New("connection reset by peer")
	}
	b, ok := f.buckets[aws.ToString(in.Bucket)]
	if !ok {
		return nil, noSuchBucket()
	}
	delete(b, key)
	f.deleted = append(f.deleted, key)
	return &s3v2.DeleteObjectOutput{}, nil
}
