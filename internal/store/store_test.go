package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	uploads []UploadParams
	err     error
}

func (r *recorder) Upload(_ context.Context, p UploadParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uploads = append(r.uploads, p)
	return r.err
}

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func testEdit() Edit {
	return Edit{
		RequestID: "req-1",
		Prompt:    "背景を削除",
		Model:     "gemini-test",
		Source:    Image{Data: b64("source"), MIMEType: "image/jpeg"},
		Result:    Image{Data: b64("result"), MIMEType: "image/png"},
		Time:      time.Date(2025, 9, 1, 23, 0, 0, 0, time.UTC),
	}
}

func TestArchive(t *testing.T) {
	rec := &recorder{}
	require.NoError(t, Archive(context.Background(), rec, testEdit()))

	require.Len(t, rec.uploads, 2)
	sort.Slice(rec.uploads, func(i, j int) bool { return rec.uploads[i].Name < rec.uploads[j].Name })

	assert.Equal(t, "20250901/req-1-result.png", rec.uploads[0].Name)
	assert.Equal(t, []byte("result"), rec.uploads[0].Data)
	assert.Equal(t, "image/png", rec.uploads[0].ContentType)

	assert.Equal(t, "20250901/req-1-source.jpg", rec.uploads[1].Name)
	assert.Equal(t, []byte("source"), rec.uploads[1].Data)

	meta := rec.uploads[0].Metadata
	assert.Equal(t, "req-1", meta["request-id"])
	assert.Equal(t, "gemini-test", meta["model"])
	assert.Equal(t, url.QueryEscape("背景を削除"), meta["prompt"])
}

func TestArchiveLongPromptFitsMetadata(t *testing.T) {
	client := &fakeS3{}
	e := testEdit()
	e.Prompt = strings.Repeat("背景", 300)

	require.NoError(t, Archive(context.Background(), &S3Uploader{Client: client, Bucket: "edits"}, e))

	prompt, err := url.QueryUnescape(client.input.Metadata["prompt"])
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(prompt))
	assert.NotEmpty(t, prompt)
	assert.True(t, strings.HasPrefix(e.Prompt, prompt))
}

func TestTruncateEscaped(t *testing.T) {
	escaped := url.QueryEscape("背景")

	tests := []struct {
		n    int
		want string
	}{
		{0, ""},
		{len(escaped), escaped},
		{len(escaped) - 1, url.QueryEscape("背")},
		{10, url.QueryEscape("背")},
		{8, ""},
		{4, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, truncateEscaped(escaped, tt.n), "n=%d", tt.n)
	}
	assert.Equal(t, "a+b", truncateEscaped("a+b+c", 3))
}

func TestArchiveBadData(t *testing.T) {
	rec := &recorder{}
	e := testEdit()
	e.Result.Data = "not base64!"

	assert.Error(t, Archive(context.Background(), rec, e))
	assert.Empty(t, rec.uploads)
}

func TestArchiveUploadError(t *testing.T) {
	rec := &recorder{err: errors.New("denied")}
	assert.EqualError(t, Archive(context.Background(), rec, testEdit()), "denied")
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".png", extension("image/png"))
	assert.Equal(t, ".jpg", extension("image/jpeg"))
	assert.Equal(t, ".bin", extension(""))
}

func TestFileUploader(t *testing.T) {
	dir := t.TempDir()
	u := &FileUploader{Dir: dir}

	require.NoError(t, u.Upload(context.Background(), UploadParams{Name: "20250901/req-1-result.png", Data: []byte("png")}))

	data, err := os.ReadFile(filepath.Join(dir, "20250901", "req-1-result.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)
}

type fakeS3 struct {
	mu    sync.Mutex
	input *s3.PutObjectInput
	body  []byte
}

// PutObject enforces the 2KB user metadata limit S3 applies.
func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if size := metadataSize(in.Metadata); size > maxMetadataBytes {
		return nil, fmt.Errorf("MetadataTooLarge: %d bytes", size)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Uploader(t *testing.T) {
	client := &fakeS3{}
	u := &S3Uploader{Client: client, Bucket: "edits"}

	err := u.Upload(context.Background(), UploadParams{
		Name:        "20250901/req-1-result.png",
		Data:        []byte("png"),
		ContentType: "image/png",
		Metadata:    map[string]string{"model": "gemini-test"},
	})
	require.NoError(t, err)

	assert.Equal(t, "edits", aws.ToString(client.input.Bucket))
	assert.Equal(t, "20250901/req-1-result.png", aws.ToString(client.input.Key))
	assert.Equal(t, "image/png", aws.ToString(client.input.ContentType))
	assert.Equal(t, s3types.StorageClassIntelligentTiering, client.input.StorageClass)
	assert.Equal(t, []byte("png"), client.body)
}
