package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

const (
	BucketSubmissions  = "submissions"   // private, served only through signed URLs
	BucketRiddleImages = "riddle-images" // public
)

var publicBuckets = map[string]bool{
	BucketRiddleImages: true,
}

var knownBuckets = map[string]bool{
	BucketSubmissions:  true,
	BucketRiddleImages: true,
}

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidPath    = errors.New("invalid object path")
)

// ObjectStore is path-addressed blob storage split into buckets.
type ObjectStore interface {
	Put(ctx context.Context, bucket, objectPath string, data io.Reader) error
	Get(ctx context.Context, bucket, objectPath string) (io.ReadCloser, error)
	Delete(ctx context.Context, bucket, objectPath string) error
}

func IsPublicBucket(bucket string) bool { return publicBuckets[bucket] }

func IsKnownBucket(bucket string) bool { return knownBuckets[bucket] }

// objectKey validates bucket and path and joins them into a relative key.
func objectKey(bucket, objectPath string) (string, error) {
	if !IsKnownBucket(bucket) {
		return "", fmt.Errorf("unknown bucket %q: %w", bucket, ErrInvalidPath)
	}
	p := strings.TrimPrefix(objectPath, "/")
	if p == "" || strings.Contains(p, "\\") {
		return "", fmt.Errorf("%q: %w", objectPath, ErrInvalidPath)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("%q: %w", objectPath, ErrInvalidPath)
		}
	}
	return path.Join(bucket, p), nil
}
