package storage

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockS3 serves a single object at /test-bucket/<key>.
func newMockS3(t *testing.T, key string, body []byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/test-bucket/"+key {
			w.WriteHeader(http.StatusNotFound)
			if r.Method != http.MethodHead {
				_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`))
			}
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Header().Set("Content-Type", "application/octet-stream")
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(body)
		default:
			t.Errorf("unexpected method %s", r.Method)
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestS3Source(t *testing.T, endpoint string) *S3Source {
	t.Helper()
	src, err := NewS3Source(context.Background(), S3Config{
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		Endpoint:        endpoint,
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	})
	require.NoError(t, err)
	return src
}

func TestNewS3Source(t *testing.T) {
	src := newTestS3Source(t, "http://localhost:4566")
	assert.Equal(t, "test-bucket", src.Bucket())
}

func TestS3Source_FetchFileRef(t *testing.T) {
	payload := []byte("sticker payload")
	server := newMockS3(t, "stickers/a.webp", payload)
	src := newTestS3Source(t, server.URL)
	ctx := context.Background()

	t.Run("reports content length", func(t *testing.T) {
		ref, err := src.FetchFileRef(ctx, "stickers/a.webp")
		require.NoError(t, err)
		assert.Equal(t, "stickers/a.webp", ref.Path)
		assert.Equal(t, int64(len(payload)), ref.Size)
	})

	t.Run("missing object", func(t *testing.T) {
		_, err := src.FetchFileRef(ctx, "stickers/missing.webp")
		assert.ErrorIs(t, err, ErrObjectNotFound)
	})

	t.Run("empty key", func(t *testing.T) {
		_, err := src.FetchFileRef(ctx, "")
		assert.ErrorIs(t, err, ErrInvalidKey)
	})
}

func TestS3Source_Download(t *testing.T) {
	payload := bytes.Repeat([]byte("frame"), 100)
	server := newMockS3(t, "clips/b.mp4", payload)
	src := newTestS3Source(t, server.URL)
	ctx := context.Background()
	ref := FileRef{Path: "clips/b.mp4", Size: int64(len(payload))}

	t.Run("to memory", func(t *testing.T) {
		data, err := src.DownloadToMemory(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, payload, data)
	})

	t.Run("to writer", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, src.DownloadTo(ctx, ref, &buf))
		assert.Equal(t, payload, buf.Bytes())
	})

	t.Run("missing object", func(t *testing.T) {
		_, err := src.DownloadToMemory(ctx, FileRef{Path: "clips/none.mp4"})
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "clips/none.mp4"))
	})
}
