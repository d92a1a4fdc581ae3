package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/kbukum/statekit/storage"
)

// fakeS3 keeps objects in memory and pages List results two at a time.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: make(map[string][]byte)} }

func (f *fakeS3) PutObject(_ context.Context, in *awss3.PutObjectInput, _ ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	return &awss3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *awss3.GetObjectInput, _ ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &awss3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *awss3.DeleteObjectInput, _ ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &awss3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *awss3.HeadObjectInput, _ ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &awss3.HeadObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *awss3.ListObjectsV2Input, _ ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) && k > aws.ToString(in.ContinuationToken) {
			keys = append(keys, k)
		}
	}
	sortStrings(keys)
	out := &awss3.ListObjectsV2Output{}
	if len(keys) > 2 {
		keys = keys[:2]
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[1])
	}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k), Size: aws.Int64(int64(len(f.objects[k])))})
	}
	return out, nil
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

func TestUploadDownload(t *testing.T) {
	s := NewWithClient(newFakeS3(), "bucket")
	ctx := context.Background()
	c := storage.NewByteClient(s)

	if err := c.Put(ctx, "statecache/itemId.json", []byte(`"item-1"`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, err := c.Get(ctx, "statecache/itemId.json")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != `"item-1"` {
		t.Errorf("expected %q, got %q", `"item-1"`, got)
	}
}

func TestDownloadNotFound(t *testing.T) {
	s := NewWithClient(newFakeS3(), "bucket")
	_, err := s.Download(context.Background(), "missing.json")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestExists(t *testing.T) {
	fake := newFakeS3()
	fake.objects["a.json"] = []byte("1")
	s := NewWithClient(fake, "bucket")

	if ok, err := s.Exists(context.Background(), "a.json"); err != nil || !ok {
		t.Errorf("expected a.json to exist, got %v, %v", ok, err)
	}
	if ok, err := s.Exists(context.Background(), "b.json"); err != nil || ok {
		t.Errorf("expected b.json to be missing, got %v, %v", ok, err)
	}
}

func TestListPaginates(t *testing.T) {
	fake := newFakeS3()
	for _, k := range []string{"p/a", "p/b", "p/c", "p/d", "p/e", "q/x"} {
		fake.objects[k] = []byte("{}")
	}
	s := NewWithClient(fake, "bucket")

	files, err := s.List(context.Background(), "p/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(files) != 5 {
		t.Fatalf("expected 5 files across pages, got %d", len(files))
	}
	if files[0].Path != "p/a" || files[4].Path != "p/e" {
		t.Errorf("unexpected order: %v", files)
	}
}

func TestUploadError(t *testing.T) {
	fake := newFakeS3()
	fake.putErr = errors.New("access denied")
	s := NewWithClient(fake, "bucket")
	if err := s.Upload(context.Background(), "a", strings.NewReader("x")); err == nil {
		t.Error("expected upload error")
	}
}
