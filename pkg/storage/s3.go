package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// mtimeMetadataKey is the user metadata entry holding the source
// modification time of an uploaded object
const mtimeMetadataKey = "mtime"

// S3API is the subset of the S3 client used by the S3 backend.
// *s3.Client satisfies it; tests provide an in-memory fake.
type S3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Options configures an S3 backend
type S3Options struct {
	Bucket string
	Prefix string

	// HeadMetadata makes List fetch each object's user metadata so the
	// stored source mtime replaces the upload time. Costs one request per object.
	HeadMetadata bool
}

// S3 is an object-store backend. Keys live under an optional prefix, and
// keys ending in "/" are directory markers.
type S3 struct {
	client       S3API
	bucket       string
	prefix       string
	headMetadata bool
}

// NewS3 creates a new S3 backend on top of an existing client
func NewS3(client S3API, opts S3Options) (*S3, error) {
	if client == nil {
		return nil, fmt.Errorf("s3 client is required")
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	return &S3{
		client:       client,
		bucket:       opts.Bucket,
		prefix:       strings.Trim(opts.Prefix, "/"),
		headMetadata: opts.HeadMetadata,
	}, nil
}

func (b *S3) String() string {
	if b.prefix == "" {
		return "s3://" + b.bucket
	}
	return "s3://" + b.bucket + "/" + b.prefix
}

// key maps a relative path to an object key
func (b *S3) key(relPath string) string {
	relPath = strings.Trim(relPath, "/")
	switch {
	case b.prefix == "":
		return relPath
	case relPath == "":
		return b.prefix
	default:
		return b.prefix + "/" + relPath
	}
}

// dirPrefix returns the listing prefix for everything below relPath
func (b *S3) dirPrefix(relPath string) string {
	k := b.key(relPath)
	if k == "" {
		return ""
	}
	return k + "/"
}

// List returns every object below path. Directories implied by object keys
// are reported even when no marker object exists.
func (b *S3) List(ctx context.Context, relPath string) ([]FileInfo, error) {
	rootPrefix := b.dirPrefix("")
	listPrefix := b.dirPrefix(relPath)

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
	}
	if listPrefix != "" {
		input.Prefix = aws.String(listPrefix)
	}

	entries := make(map[string]FileInfo)
	paginator := s3.NewListObjectsV2Paginator(b.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects in %s: %w", b, err)
		}

		for _, object := range page.Contents {
			key := aws.ToString(object.Key)
			rel := strings.TrimPrefix(key, rootPrefix)

			if strings.HasSuffix(rel, "/") {
				rel = strings.TrimSuffix(rel, "/")
				if rel != "" {
					entries[rel] = b.dirInfo(rel, aws.ToTime(object.LastModified))
				}
				continue
			}

			info := FileInfo{
				Path:         key,
				Size:         aws.ToInt64(object.Size),
				ModTime:      aws.ToTime(object.LastModified),
				RelativePath: rel,
				Checksum:     strings.Trim(aws.ToString(object.ETag), `"`),
			}

			if b.headMetadata {
				if err := b.applyHeadMetadata(ctx, &info); err != nil {
					return nil, err
				}
			}

			entries[rel] = info
			b.addParents(entries, rel)
		}
	}

	files := make([]FileInfo, 0, len(entries))
	for _, info := range entries {
		files = append(files, info)
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].RelativePath < files[j].RelativePath
	})

	return files, nil
}

func (b *S3) dirInfo(rel string, modTime time.Time) FileInfo {
	return FileInfo{
		Path:         b.key(rel) + "/",
		ModTime:      modTime,
		IsDir:        true,
		RelativePath: rel,
	}
}

// addParents records the directories implied by a key, keeping any marker
// already seen
func (b *S3) addParents(entries map[string]FileInfo, rel string) {
	for dir := path.Dir(rel); dir != "." && dir != "/"; dir = path.Dir(dir) {
		if _, ok := entries[dir]; ok {
			return
		}
		entries[dir] = b.dirInfo(dir, time.Time{})
	}
}

func (b *S3) applyHeadMetadata(ctx context.Context, info *FileInfo) error {
	head, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(info.Path),
	})
	if err != nil {
		return fmt.Errorf("failed to read metadata of %s: %w", info.Path, wrapS3NotFound(err))
	}

	if modTime, ok := parseMTime(head.Metadata); ok {
		info.ModTime = modTime
	}
	return nil
}

// Read opens an object for reading
func (b *S3) Read(ctx context.Context, relPath string) (io.ReadCloser, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(relPath)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", wrapS3NotFound(err))
	}

	return out.Body, nil
}

// Write uploads an object. The source modification time, when known, is
// stored as user metadata so later listings can recover it.
func (b *S3) Write(ctx context.Context, relPath string, reader io.Reader, size int64, metadata *FileInfo) error {
	body, ok := reader.(io.ReadSeeker)
	if !ok {
		// The SDK needs a seekable body to sign the payload
		spooled, n, release, err := spool(reader, size)
		if err != nil {
			return fmt.Errorf("failed to buffer upload: %w", err)
		}
		defer release()
		body, size = spooled, n
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(relPath)),
		Body:   body,
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if metadata != nil && !metadata.ModTime.IsZero() {
		input.Metadata = map[string]string{
			mtimeMetadataKey: metadata.ModTime.UTC().Format(time.RFC3339Nano),
		}
	}

	if _, err := b.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}

	return nil
}

// Delete removes an object or a directory marker. A directory is only
// removed once no other key lives below it.
func (b *S3) Delete(ctx context.Context, relPath string) error {
	if strings.Trim(relPath, "/") == "" {
		return fmt.Errorf("refusing to delete backend root: %s", b)
	}

	key := b.key(relPath)
	marker := key + "/"

	out, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(b.bucket),
		Prefix:  aws.String(marker),
		MaxKeys: aws.Int32(2),
	})
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", marker, err)
	}
	for _, object := range out.Contents {
		if aws.ToString(object.Key) != marker {
			return fmt.Errorf("%w: %s", ErrDirectoryNotEmpty, relPath)
		}
	}

	for _, k := range []string{key, marker} {
		if _, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(k),
		}); err != nil {
			return fmt.Errorf("failed to delete %s: %w", k, err)
		}
	}

	return nil
}

// Stat returns object metadata. A missing key falls back to its directory marker.
func (b *S3) Stat(ctx context.Context, relPath string) (*FileInfo, error) {
	rel := strings.Trim(relPath, "/")
	key := b.key(rel)

	head, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		info := &FileInfo{
			Path:         key,
			Size:         aws.ToInt64(head.ContentLength),
			ModTime:      aws.ToTime(head.LastModified),
			RelativePath: rel,
			Checksum:     strings.Trim(aws.ToString(head.ETag), `"`),
		}
		if modTime, ok := parseMTime(head.Metadata); ok {
			info.ModTime = modTime
		}
		return info, nil
	}
	if !isS3NotFound(err) {
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}

	marker, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key + "/"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to stat object: %w", wrapS3NotFound(err))
	}

	info := b.dirInfo(rel, aws.ToTime(marker.LastModified))
	return &info, nil
}

// MkdirAll writes an empty directory marker
func (b *S3) MkdirAll(ctx context.Context, relPath string) error {
	if strings.Trim(relPath, "/") == "" {
		return nil
	}

	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(b.key(relPath) + "/"),
		Body:          bytes.NewReader(nil),
		ContentLength: aws.Int64(0),
	})
	if err != nil {
		return fmt.Errorf("failed to create directory marker: %w", err)
	}

	return nil
}

// Close releases resources (the SDK client needs no cleanup)
func (b *S3) Close() error {
	return nil
}

// Non-seekable bodies up to memoryBufferLimit bytes are buffered in memory.
// Larger ones, and those of unknown size, go to a temporary file in spoolDir
// (the system default when empty).
var (
	memoryBufferLimit int64 = 8 << 20
	spoolDir          string
)

// spool makes reader seekable. release must be called once the body is sent.
func spool(reader io.Reader, size int64) (io.ReadSeeker, int64, func(), error) {
	if size >= 0 && size <= memoryBufferLimit {
		data, err := io.ReadAll(reader)
		if err != nil {
			return nil, 0, nil, err
		}
		return bytes.NewReader(data), int64(len(data)), func() {}, nil
	}

	tmp, err := os.CreateTemp(spoolDir, "syncverdict-upload-*")
	if err != nil {
		return nil, 0, nil, err
	}
	release := func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}

	n, err := io.Copy(tmp, reader)
	if err == nil {
		_, err = tmp.Seek(0, io.SeekStart)
	}
	if err != nil {
		release()
		return nil, 0, nil, err
	}
	return tmp, n, release, nil
}

func parseMTime(metadata map[string]string) (time.Time, bool) {
	raw, ok := metadata[mtimeMetadataKey]
	if !ok {
		return time.Time{}, false
	}
	modTime, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false
	}
	return modTime, true
}

func isS3NotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound) || errors.Is(err, ErrNotFound)
}

func wrapS3NotFound(err error) error {
	if isS3NotFound(err) && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
