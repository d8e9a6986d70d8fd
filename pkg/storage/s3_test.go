package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeObject struct {
	data     []byte
	modTime  time.Time
	metadata map[string]string
}

// fakeS3 is an in-memory S3API. Uploads are stamped with uploadTime so tests
// can tell the upload time apart from the stored source mtime.
type fakeS3 struct {
	mu         sync.Mutex
	objects    map[string]fakeObject
	uploadTime time.Time
	pageSize   int
	heads      int
	failList   error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		objects:    make(map[string]fakeObject),
		uploadTime: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeS3) put(key, content string, modTime time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = fakeObject{data: []byte(content), modTime: modTime}
}

func (f *fakeS3) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

func (f *fakeS3) content(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return string(f.objects[key].data)
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failList != nil {
		return nil, f.failList
	}

	prefix := aws.ToString(params.Prefix)
	var keys []string
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	start := 0
	if token := aws.ToString(params.ContinuationToken); token != "" {
		start, _ = strconv.Atoi(token)
	}
	end := len(keys)
	if f.pageSize > 0 && start+f.pageSize < end {
		end = start + f.pageSize
	}

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	for _, key := range keys[start:end] {
		obj := f.objects[key]
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(key),
			Size:         aws.Int64(int64(len(obj.data))),
			LastModified: aws.Time(obj.modTime),
			ETag:         aws.String(fmt.Sprintf("%q", "etag-"+key)),
		})
	}

	return out, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.heads++
	obj, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}

	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.data))),
		LastModified:  aws.Time(obj.modTime),
		Metadata:      obj.metadata,
	}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	obj, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}

	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.data))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(params.Key)] = fakeObject{
		data:     data,
		modTime:  f.uploadTime,
		metadata: params.Metadata,
	}

	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func newTestS3(t *testing.T, fake *fakeS3, opts S3Options) *S3 {
	t.Helper()
	if opts.Bucket == "" {
		opts.Bucket = "bucket"
	}
	backend, err := NewS3(fake, opts)
	if err != nil {
		t.Fatalf("NewS3() error = %v", err)
	}
	return backend
}

// ============== S3 Tests ==============

func TestNewS3(t *testing.T) {
	if _, err := NewS3(nil, S3Options{Bucket: "b"}); err == nil {
		t.Error("NewS3() should require a client")
	}
	if _, err := NewS3(newFakeS3(), S3Options{}); err == nil {
		t.Error("NewS3() should require a bucket")
	}

	backend := newTestS3(t, newFakeS3(), S3Options{Bucket: "data", Prefix: "/backups/"})
	if backend.String() != "s3://data/backups" {
		t.Errorf("String() = %s, want s3://data/backups", backend.String())
	}
}

func TestS3List(t *testing.T) {
	modTime := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	fake := newFakeS3()
	fake.put("backups/a.txt", "aaa", modTime)
	fake.put("backups/docs/", "", modTime)
	fake.put("backups/docs/b.md", "bbbb", modTime)
	fake.put("backups/photos/2024/c.jpg", "cc", modTime)
	fake.put("elsewhere/x.txt", "x", modTime)

	backend := newTestS3(t, fake, S3Options{Prefix: "backups"})
	ctx := context.Background()

	t.Run("ListAll", func(t *testing.T) {
		entries, err := backend.List(ctx, "")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}

		var got []string
		for _, e := range entries {
			kind := "f"
			if e.IsDir {
				kind = "d"
			}
			got = append(got, kind+":"+e.RelativePath)
		}
		want := []string{"f:a.txt", "d:docs", "f:docs/b.md", "d:photos", "d:photos/2024", "f:photos/2024/c.jpg"}
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("List() = %v, want %v", got, want)
		}
	})

	t.Run("Metadata", func(t *testing.T) {
		entries, err := backend.List(ctx, "")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		for _, e := range entries {
			if e.RelativePath != "a.txt" {
				continue
			}
			if e.Size != 3 {
				t.Errorf("Size = %d, want 3", e.Size)
			}
			if !e.ModTime.Equal(modTime) {
				t.Errorf("ModTime = %v, want %v", e.ModTime, modTime)
			}
			if e.Checksum != "etag-backups/a.txt" {
				t.Errorf("Checksum = %s, want unquoted ETag", e.Checksum)
			}
			if e.Path != "backups/a.txt" {
				t.Errorf("Path = %s, want backups/a.txt", e.Path)
			}
		}
	})

	t.Run("Paginated", func(t *testing.T) {
		fake.pageSize = 2
		defer func() { fake.pageSize = 0 }()

		entries, err := backend.List(ctx, "")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(entries) != 6 {
			t.Errorf("List() returned %d entries across pages, want 6", len(entries))
		}
	})

	t.Run("Error", func(t *testing.T) {
		fake.failList = errors.New("access denied")
		defer func() { fake.failList = nil }()

		if _, err := backend.List(ctx, ""); err == nil {
			t.Error("List() should propagate client errors")
		}
	})
}

func TestS3WriteAndReadBack(t *testing.T) {
	fake := newFakeS3()
	ctx := context.Background()
	sourceTime := time.Date(2023, 2, 3, 4, 5, 6, 0, time.UTC)

	t.Run("WithoutHeadMetadata", func(t *testing.T) {
		backend := newTestS3(t, fake, S3Options{})
		content := []byte("payload")
		if err := backend.Write(ctx, "dir/file.bin", bytes.NewReader(content), int64(len(content)), &FileInfo{ModTime: sourceTime}); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		entries, err := backend.List(ctx, "")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		for _, e := range entries {
			if e.RelativePath == "dir/file.bin" && !e.ModTime.Equal(fake.uploadTime) {
				t.Errorf("ModTime = %v, want upload time %v", e.ModTime, fake.uploadTime)
			}
		}
	})

	t.Run("WithHeadMetadata", func(t *testing.T) {
		backend := newTestS3(t, fake, S3Options{HeadMetadata: true})
		fake.heads = 0

		entries, err := backend.List(ctx, "")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		found := false
		for _, e := range entries {
			if e.RelativePath == "dir/file.bin" {
				found = true
				if !e.ModTime.Equal(sourceTime) {
					t.Errorf("ModTime = %v, want source time %v", e.ModTime, sourceTime)
				}
			}
		}
		if !found {
			t.Fatal("dir/file.bin not listed")
		}
		if fake.heads == 0 {
			t.Error("HeadObject should be called per object")
		}
	})

	t.Run("Read", func(t *testing.T) {
		backend := newTestS3(t, fake, S3Options{})
		reader, err := backend.Read(ctx, "dir/file.bin")
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		defer reader.Close()

		data, _ := io.ReadAll(reader)
		if string(data) != "payload" {
			t.Errorf("Read() = %s, want payload", string(data))
		}
	})

	t.Run("NonSeekableBody", func(t *testing.T) {
		backend := newTestS3(t, fake, S3Options{})
		body := io.MultiReader(strings.NewReader("part1-"), strings.NewReader("part2"))
		if err := backend.Write(ctx, "streamed.txt", body, 11, nil); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if got := fake.content("streamed.txt"); got != "part1-part2" {
			t.Errorf("streamed.txt = %q, want part1-part2", got)
		}
	})

	t.Run("LargeBodySpooledToDisk", func(t *testing.T) {
		dir := t.TempDir()
		oldDir, oldLimit := spoolDir, memoryBufferLimit
		spoolDir, memoryBufferLimit = dir, 4
		defer func() { spoolDir, memoryBufferLimit = oldDir, oldLimit }()

		backend := newTestS3(t, fake, S3Options{})
		for _, size := range []int64{10, -1} {
			body := io.MultiReader(strings.NewReader("spooled-"), strings.NewReader("to-disk"))
			if err := backend.Write(ctx, "spooled.txt", body, size, nil); err != nil {
				t.Fatalf("Write(size %d) error = %v", size, err)
			}
			if got := fake.content("spooled.txt"); got != "spooled-to-disk" {
				t.Errorf("spooled.txt = %q, want spooled-to-disk", got)
			}
		}

		leftovers, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("ReadDir() error = %v", err)
		}
		if len(leftovers) != 0 {
			t.Errorf("spool files left behind: %d", len(leftovers))
		}
	})
}

func TestS3Stat(t *testing.T) {
	fake := newFakeS3()
	modTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fake.put("file.txt", "12345", modTime)
	fake.put("folder/", "", modTime)
	backend := newTestS3(t, fake, S3Options{})
	ctx := context.Background()

	info, err := backend.Stat(ctx, "file.txt")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Size != 5 || info.IsDir {
		t.Errorf("Stat(file.txt) = %+v", info)
	}

	dir, err := backend.Stat(ctx, "folder")
	if err != nil {
		t.Fatalf("Stat(folder) error = %v", err)
	}
	if !dir.IsDir {
		t.Error("folder should be reported as a directory")
	}

	if _, err := backend.Stat(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Stat(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := backend.Read(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read(missing) error = %v, want ErrNotFound", err)
	}
}

func TestS3DeleteAndMkdir(t *testing.T) {
	fake := newFakeS3()
	fake.put("p/keep.txt", "k", time.Now())
	fake.put("p/tree/a.txt", "a", time.Now())
	fake.put("p/tree/sub/b.txt", "b", time.Now())
	backend := newTestS3(t, fake, S3Options{Prefix: "p"})
	ctx := context.Background()

	if err := backend.MkdirAll(ctx, "tree"); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if !fake.has("p/tree/") {
		t.Error("MkdirAll should write a directory marker")
	}

	if err := backend.Delete(ctx, "tree"); !errors.Is(err, ErrDirectoryNotEmpty) {
		t.Fatalf("Delete(tree) error = %v, want ErrDirectoryNotEmpty", err)
	}
	for _, key := range []string{"p/tree/", "p/tree/a.txt", "p/tree/sub/b.txt"} {
		if !fake.has(key) {
			t.Errorf("%s should survive deleting a non-empty directory", key)
		}
	}

	for _, path := range []string{"tree/sub/b.txt", "tree/sub", "tree/a.txt", "tree"} {
		if err := backend.Delete(ctx, path); err != nil {
			t.Fatalf("Delete(%s) error = %v", path, err)
		}
	}
	for _, key := range []string{"p/tree/", "p/tree/a.txt", "p/tree/sub/b.txt"} {
		if fake.has(key) {
			t.Errorf("%s should be deleted", key)
		}
	}
	if !fake.has("p/keep.txt") {
		t.Error("p/keep.txt should be untouched")
	}

	if err := backend.Delete(ctx, ""); err == nil {
		t.Error("Delete() should refuse the root")
	}
}

// ============== Open Tests ==============

func TestParseS3URL(t *testing.T) {
	tests := []struct {
		target     string
		wantBucket string
		wantPrefix string
		wantErr    bool
	}{
		{"s3://bucket", "bucket", "", false},
		{"s3://bucket/", "bucket", "", false},
		{"s3://bucket/a/b/", "bucket", "a/b", false},
		{"s3://", "", "", true},
		{"/local/path", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			bucket, prefix, err := ParseS3URL(tt.target)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseS3URL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if bucket != tt.wantBucket || prefix != tt.wantPrefix {
				t.Errorf("ParseS3URL() = %q, %q, want %q, %q", bucket, prefix, tt.wantBucket, tt.wantPrefix)
			}
		})
	}
}

func TestOpenLocal(t *testing.T) {
	root := t.TempDir()

	backend, err := Open(context.Background(), root, RemoteOptions{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer backend.Close()

	if _, ok := backend.(*Local); !ok {
		t.Errorf("Open() returned %T, want *Local", backend)
	}
	if !IsS3Target("s3://b/p") || IsS3Target(root) {
		t.Error("IsS3Target() misclassified targets")
	}
}

func TestCollectS3(t *testing.T) {
	fake := newFakeS3()
	fake.put("x/y.txt", "yy", time.Now())
	backend := newTestS3(t, fake, S3Options{})

	inv, err := Collect(context.Background(), backend, CollectOptions{Checksums: true})
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if !inv["x"].IsDir {
		t.Error("implied directory x should be collected")
	}
	if inv["x/y.txt"].Checksum != "etag-x/y.txt" {
		t.Errorf("Checksum = %s, want the backend ETag", inv["x/y.txt"].Checksum)
	}
}
