package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "asset-dedup/pkg/errors"
)

func TestSeaweedFSStorage(t *testing.T) {
	// Mock SeaweedFS filer server
	filerServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "POST" && r.URL.Path == "/originals/a.png":
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusCreated)
		case r.Method == "GET" && r.URL.Path == "/originals/a.png":
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("test content"))
		case r.Method == "DELETE" && r.URL.Path == "/originals/a.png":
			w.WriteHeader(http.StatusNoContent)
		case r.Method == "GET" && r.URL.Path == "/originals/":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"Path": "/originals",
				"Entries": [
					{"FullPath": "/originals/a.png", "Mode": 420, "Mime": "image/png", "FileSize": 12},
					{"FullPath": "/originals/sub", "Mode": 2147484141}
				]
			}`))
		case r.Method == "GET" && r.URL.Path == "/originals/sub/":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"Path": "/originals/sub",
				"Entries": [
					{"FullPath": "/originals/sub/b.webp", "Mode": 420, "Mime": "image/webp", "FileSize": 7}
				]
			}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer filerServer.Close()

	// Mock SeaweedFS master server
	masterServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/cluster/status" {
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer masterServer.Close()

	storage := &SeaweedFSStorage{
		masterURL: masterServer.URL,
		filerURL:  filerServer.URL,
		publicURL: "https://cdn.example.com",
		client:    http.DefaultClient,
	}
	if err := storage.healthCheck(); err != nil {
		t.Fatalf("healthCheck failed: %v", err)
	}

	ctx := context.Background()

	// Test Put
	size, err := storage.Put(ctx, "originals/a.png", strings.NewReader("test content"), 12, "image/png")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if size != 12 {
		t.Errorf("Expected size 12, got %d", size)
	}

	// Test Get
	reader, err := storage.Get(ctx, "originals/a.png")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	data, _ := io.ReadAll(reader)
	reader.Close()
	if string(data) != "test content" {
		t.Errorf("Unexpected content %q", string(data))
	}

	// Test Get of a missing object
	if _, err := storage.Get(ctx, "originals/missing.png"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	// Test List descends into sub-directories
	files, err := storage.List(ctx, "originals")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("Expected 2 files, got %d", len(files))
	}
	if files[0].Path != "originals/a.png" || files[1].Path != "originals/sub/b.webp" {
		t.Errorf("Unexpected paths: %s, %s", files[0].Path, files[1].Path)
	}
	if files[1].Size != 7 || files[1].ContentType != "image/webp" {
		t.Errorf("Unexpected metadata: %+v", files[1])
	}

	// Test Delete, missing objects are not an error
	if err := storage.Delete(ctx, "originals/a.png", "originals/gone.png"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if got := storage.PublicURL("originals/my photo.png"); got != "https://cdn.example.com/originals/my%20photo.png" {
		t.Errorf("Unexpected public URL %s", got)
	}
}

func TestSeaweedFSStorage_HealthCheckFailure(t *testing.T) {
	masterServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer masterServer.Close()

	if _, err := NewSeaweedFSStorage(masterServer.URL, ""); err == nil {
		t.Fatal("Expected connection error")
	}
}
