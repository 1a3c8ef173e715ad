package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/jsonstash/jsonstash/internal/document"
	"github.com/stretchr/testify/require"
)

// fakeS3 records object writes and deletes; it does not check signatures.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
	deletes []string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := strings.TrimPrefix(r.URL.Path, "/")
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		if strings.Contains(path, "/") {
			f.objects[path] = string(body)
			w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		delete(f.objects, path)
		f.deletes = append(f.deletes, path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusOK)
	}
}

func TestNewMinIOStorage_RequiresEndpoint(t *testing.T) {
	_, err := NewMinIOStorage(context.Background(), nil)
	require.Error(t, err)
	_, err = NewMinIOStorage(context.Background(), &MinIOConfig{Bucket: "b"})
	require.Error(t, err)
}

func TestObjectName(t *testing.T) {
	require.Equal(t, "user_20240102_030405.json", ObjectName("user_20240102_030405"))
}

func TestMinIOStorage_MirrorsDocuments(t *testing.T) {
	fake := &fakeS3{objects: map[string]string{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	s, err := NewMinIOStorage(context.Background(), &MinIOConfig{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    "jsonstash",
		Region:    "us-east-1",
	})
	require.NoError(t, err)
	require.Equal(t, "minio", s.Name())

	body := []byte("{\n    \"a\": 1\n}\n")
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, &document.Entry{Key: "a_20240102_030405", Body: body}))

	fake.mu.Lock()
	got := fake.objects["jsonstash/a_20240102_030405.json"]
	fake.mu.Unlock()
	require.Equal(t, string(body), got)

	require.NoError(t, s.Delete(ctx, "a_20240102_030405"))
	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Equal(t, []string{"jsonstash/a_20240102_030405.json"}, fake.deletes)
	require.Empty(t, fake.objects)
}
