package blobstore_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/dalemusser/hackreg/internal/app/system/blobstore"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"idea.pdf", "idea.pdf"},
		{"my idea (v2).pdf", "my_idea__v2_.pdf"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\idea.docx`, "idea.docx"},
		{"", "file"},
		{strings.Repeat("a", 150) + ".pdf", strings.Repeat("a", 96) + ".pdf"},
	}
	for _, tt := range tests {
		if got := blobstore.SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestObjectKey(t *testing.T) {
	k1 := blobstore.ObjectKey("idea_documents", "idea.pdf")
	k2 := blobstore.ObjectKey("idea_documents", "idea.pdf")
	require.True(t, strings.HasPrefix(k1, "idea_documents/"))
	require.True(t, strings.HasSuffix(k1, "-idea.pdf"))
	require.NotEqual(t, k1, k2)
}

func TestPublicURL(t *testing.T) {
	require.Equal(t, "https://cdn.example/idea_documents/a.pdf", blobstore.PublicURL("https://cdn.example/", "/idea_documents/a.pdf"))
	require.Equal(t, "https://cdn.example/x/a.pdf", blobstore.PublicURL("https://cdn.example/x", "a.pdf"))
	require.Equal(t, "", blobstore.PublicURL("", "a.pdf"))
}

func TestConfigValidate(t *testing.T) {
	cfg := blobstore.Config{AccessKeyID: "id", SecretAccessKey: "secret", Bucket: "b", PublicBaseURL: "https://cdn.example"}
	require.NoError(t, cfg.Validate())

	missing := cfg
	missing.SecretAccessKey = ""
	require.Error(t, missing.Validate())
}

// fakeS3 records path-style object requests.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		b, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = b
		w.Header().Set("ETag", `"abc123"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		delete(f.objects, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3_UploadAndDelete(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	ctx := context.Background()
	u, err := blobstore.NewS3(ctx, blobstore.Config{
		Endpoint:        srv.URL,
		Region:          "us-east-1",
		AccessKeyID:     "id",
		SecretAccessKey: "secret",
		Bucket:          "docs",
		PublicBaseURL:   "https://cdn.example",
	})
	require.NoError(t, err)

	data := []byte("%PDF-1.4 test")
	obj, err := u.Upload(ctx, "idea_documents/x-idea.pdf", "application/pdf", bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example/idea_documents/x-idea.pdf", obj.URL)
	require.Equal(t, "abc123", obj.ETag)

	fake.mu.Lock()
	stored, ok := fake.objects["/docs/idea_documents/x-idea.pdf"]
	fake.mu.Unlock()
	require.True(t, ok, "expected object stored under the bucket path")
	require.True(t, bytes.Contains(stored, data))

	require.NoError(t, u.Delete(ctx, "idea_documents/x-idea.pdf"))
	fake.mu.Lock()
	require.Empty(t, fake.objects)
	fake.mu.Unlock()
}
