package store

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// Edit is one completed image edit.
type Edit struct {
	RequestID string
	Prompt    string
	Model     string
	Source    Image
	Result    Image
	Time      time.Time
}

// Image holds base64 data as it travels over the wire.
type Image struct {
	Data     string
	MIMEType string
}

// S3 rejects user metadata whose keys and values exceed 2KB in total, and
// only carries ASCII.
const maxMetadataBytes = 2048

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

func extension(mimeType string) string {
	if ext, ok := extensions[mimeType]; ok {
		return ext
	}
	return ".bin"
}

func metadataSize(metadata map[string]string) int {
	return lo.Sum(lo.MapToSlice(metadata, func(k, v string) int {
		return len(k) + len(v)
	}))
}

// truncateEscaped cuts a query-escaped string to at most n bytes without
// splitting a %XX sequence or the escaped bytes of one character.
func truncateEscaped(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for {
		if u, err := url.QueryUnescape(s); err == nil && utf8.ValidString(u) {
			return s
		}
		i := strings.LastIndexByte(s, '%')
		if i < 0 {
			return ""
		}
		s = s[:i]
	}
}

// Archive uploads the source and result of an edit side by side under
// YYYYMMDD/<request id>-{source,result}.<ext>.
func Archive(ctx context.Context, u Uploader, edit Edit) error {
	prefix := fmt.Sprintf("%s/%s", edit.Time.UTC().Format("20060102"), edit.RequestID)
	metadata := map[string]string{
		"request-id": edit.RequestID,
		"model":      edit.Model,
	}
	budget := maxMetadataBytes - len("prompt") - metadataSize(metadata)
	metadata["prompt"] = truncateEscaped(url.QueryEscape(edit.Prompt), budget)

	uploads := make([]UploadParams, 0, 2)
	for _, img := range []struct {
		role  string
		image Image
	}{{"source", edit.Source}, {"result", edit.Result}} {
		data, err := base64.StdEncoding.DecodeString(img.image.Data)
		if err != nil {
			return fmt.Errorf("decoding %s image: %w", img.role, err)
		}
		uploads = append(uploads, UploadParams{
			Name:        prefix + "-" + img.role + extension(img.image.MIMEType),
			Data:        data,
			ContentType: img.image.MIMEType,
			Metadata:    metadata,
		})
	}

	group, ctx := errgroup.WithContext(ctx)
	for _, params := range uploads {
		params := params
		group.Go(func() error {
			return u.Upload(ctx, params)
		})
	}
	return group.Wait()
}
