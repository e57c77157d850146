package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	apperrors "asset-dedup/pkg/errors"
)

// SeaweedFSStorage implements Storage on top of the SeaweedFS filer HTTP API.
type SeaweedFSStorage struct {
	masterURL string
	filerURL  string
	publicURL string
	client    *http.Client
}

type DirectoryListResponse struct {
	Path                  string           `json:"Path"`
	Entries               []DirectoryEntry `json:"Entries"`
	Limit                 int              `json:"Limit"`
	LastFileName          string           `json:"LastFileName"`
	ShouldDisplayLoadMore bool             `json:"ShouldDisplayLoadMore"`
}

type DirectoryEntry struct {
	FullPath string    `json:"FullPath"`
	Mtime    time.Time `json:"Mtime"`
	Crtime   time.Time `json:"Crtime"`
	Mode     uint32    `json:"Mode"`
	Mime     string    `json:"Mime"`
	FileSize int64     `json:"FileSize"`
}

func (e DirectoryEntry) isDir() bool {
	return e.Mode&(1<<31) != 0 || e.Mode&0x4000 != 0
}

// NewSeaweedFSStorage creates a filer-backed storage client. The filer URL is
// derived from the master URL (standard ports) unless publicURL overrides
// the address used for public links.
func NewSeaweedFSStorage(masterURL, publicURL string) (*SeaweedFSStorage, error) {
	if !strings.HasPrefix(masterURL, "http://") && !strings.HasPrefix(masterURL, "https://") {
		masterURL = "http://" + masterURL
	}

	// Replace both port and hostname for Docker compose setup
	filerURL := strings.Replace(masterURL, ":9333", ":8888", 1)
	filerURL = strings.Replace(filerURL, "seaweedfs-master", "seaweedfs-filer", 1)

	storage := &SeaweedFSStorage{
		masterURL: strings.TrimSuffix(masterURL, "/"),
		filerURL:  strings.TrimSuffix(filerURL, "/"),
		publicURL: strings.TrimSuffix(publicURL, "/"),
		client:    &http.Client{Timeout: 30 * time.Second},
	}

	if err := storage.healthCheck(); err != nil {
		return nil, fmt.Errorf("seaweedfs connection failed: %w", err)
	}

	return storage, nil
}

// healthCheck verifies SeaweedFS master is accessible
func (s *SeaweedFSStorage) healthCheck() error {
	resp, err := s.client.Get(s.masterURL + "/cluster/status")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("master server returned status %d", resp.StatusCode)
	}

	return nil
}

// Put uploads a file to the filer at the given path
func (s *SeaweedFSStorage) Put(ctx context.Context, path string, reader io.Reader, size int64, contentType string) (int64, error) {
	var formBuf bytes.Buffer
	writer := multipart.NewWriter(&formBuf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(path)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return 0, err
	}

	writtenBytes, err := io.Copy(part, reader)
	if err != nil {
		return 0, err
	}

	if err := writer.Close(); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.filerURL+"/"+escapePath(path), &formBuf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(body))
	}

	return writtenBytes, nil
}

// Get downloads a file from SeaweedFS filer
func (s *SeaweedFSStorage) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.filerURL+"/"+escapePath(path), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", path, apperrors.ErrNotFound)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to get file: status %d", resp.StatusCode)
	}

	return resp.Body, nil
}

// Delete removes files from SeaweedFS filer
func (s *SeaweedFSStorage) Delete(ctx context.Context, paths ...string) error {
	for _, p := range paths {
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.filerURL+"/"+escapePath(p), nil)
		if err != nil {
			return err
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()

		// File already doesn't exist, consider it successful
		if resp.StatusCode == http.StatusNotFound {
			continue
		}

		if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
			return fmt.Errorf("failed to delete %s: status %d", p, resp.StatusCode)
		}
	}

	return nil
}

// List walks the filer directory tree below prefix
func (s *SeaweedFSStorage) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	if err := s.listDir(ctx, strings.Trim(prefix, "/"), &objects); err != nil {
		return nil, err
	}
	return objects, nil
}

func (s *SeaweedFSStorage) listDir(ctx context.Context, dir string, out *[]ObjectInfo) error {
	lastFileName := ""
	for {
		listURL := s.filerURL + "/"
		if dir != "" {
			listURL += escapePath(dir) + "/"
		}
		listURL += "?limit=1000"
		if lastFileName != "" {
			listURL += "&lastFileName=" + url.QueryEscape(lastFileName)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}

		if resp.StatusCode == http.StatusNotFound {
			resp.Body.Close()
			return nil
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return fmt.Errorf("failed to list files: status %d", resp.StatusCode)
		}

		var listResp DirectoryListResponse
		err = json.NewDecoder(resp.Body).Decode(&listResp)
		resp.Body.Close()
		if err != nil {
			return err
		}

		for _, entry := range listResp.Entries {
			fullPath := strings.TrimPrefix(entry.FullPath, "/")
			if entry.isDir() {
				if err := s.listDir(ctx, fullPath, out); err != nil {
					return err
				}
				continue
			}
			*out = append(*out, ObjectInfo{
				Path:        fullPath,
				Size:        entry.FileSize,
				ContentType: entry.Mime,
				CreatedAt:   entry.Crtime,
			})
		}

		if !listResp.ShouldDisplayLoadMore || listResp.LastFileName == "" {
			return nil
		}
		lastFileName = listResp.LastFileName
	}
}

func (s *SeaweedFSStorage) PublicURL(path string) string {
	base := s.publicURL
	if base == "" {
		base = s.filerURL
	}
	return base + "/" + escapePath(path)
}

func escapeQuotes(s string) string {
	return strings.NewReplacer("\\", "\\\\", `"`, "\\\"").Replace(s)
}
