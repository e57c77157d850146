package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "asset-dedup/pkg/errors"
)

const supabaseListLimit = 1000

// SupabaseStorage talks to the Supabase Storage REST API for a single bucket.
type SupabaseStorage struct {
	baseURL    string
	serviceKey string
	bucket     string
	client     *http.Client
}

type supabaseListRequest struct {
	Prefix string         `json:"prefix"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
	SortBy supabaseSortBy `json:"sortBy"`
}

type supabaseSortBy struct {
	Column string `json:"column"`
	Order  string `json:"order"`
}

type supabaseObject struct {
	Name      string     `json:"name"`
	ID        *string    `json:"id"`
	CreatedAt *time.Time `json:"created_at"`
	Metadata  *struct {
		Size     int64  `json:"size"`
		MimeType string `json:"mimetype"`
	} `json:"metadata"`
}

func NewSupabaseStorage(baseURL, serviceKey, bucket string) (*SupabaseStorage, error) {
	if baseURL == "" || serviceKey == "" || bucket == "" {
		return nil, fmt.Errorf("supabase storage requires url, service key and bucket")
	}
	return &SupabaseStorage{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		serviceKey: serviceKey,
		bucket:     bucket,
		client:     &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (s *SupabaseStorage) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("apikey", s.serviceKey)
	return req, nil
}

func (s *SupabaseStorage) objectEndpoint(path string) string {
	return "/storage/v1/object/" + s.bucket + "/" + escapePath(path)
}

func (s *SupabaseStorage) Put(ctx context.Context, path string, reader io.Reader, size int64, contentType string) (int64, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return 0, err
	}

	req, err := s.newRequest(ctx, http.MethodPost, s.objectEndpoint(path), bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(body))
	}

	return int64(len(data)), nil
}

func (s *SupabaseStorage) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	req, err := s.newRequest(ctx, http.MethodGet, s.objectEndpoint(path), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusOK {
		return resp.Body, nil
	}

	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	// Storage API reports missing objects as 400 with a not_found payload
	if resp.StatusCode == http.StatusNotFound || bytes.Contains(body, []byte("not_found")) {
		return nil, fmt.Errorf("%s: %w", path, apperrors.ErrNotFound)
	}
	return nil, fmt.Errorf("failed to get file: status %d: %s", resp.StatusCode, string(body))
}

// Delete removes objects in one batch. Paths that do not exist are ignored by
// the API and simply absent from its response.
func (s *SupabaseStorage) Delete(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}

	payload, err := json.Marshal(map[string][]string{"prefixes": paths})
	if err != nil {
		return err
	}

	req, err := s.newRequest(ctx, http.MethodDelete, "/storage/v1/object/"+s.bucket, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("delete failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// List returns every object below prefix, descending into sub-folders.
func (s *SupabaseStorage) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	if err := s.listFolder(ctx, strings.Trim(prefix, "/"), &objects); err != nil {
		return nil, err
	}
	return objects, nil
}

func (s *SupabaseStorage) listFolder(ctx context.Context, folder string, out *[]ObjectInfo) error {
	for offset := 0; ; offset += supabaseListLimit {
		page, err := s.listPage(ctx, folder, offset)
		if err != nil {
			return err
		}

		for _, obj := range page {
			fullPath := obj.Name
			if folder != "" {
				fullPath = folder + "/" + obj.Name
			}
			// Folders come back as placeholder entries without an id
			if obj.ID == nil {
				if err := s.listFolder(ctx, fullPath, out); err != nil {
					return err
				}
				continue
			}
			if obj.Name == ".emptyFolderPlaceholder" {
				continue
			}

			info := ObjectInfo{Path: fullPath}
			if obj.Metadata != nil {
				info.Size = obj.Metadata.Size
				info.ContentType = obj.Metadata.MimeType
			}
			if obj.CreatedAt != nil {
				info.CreatedAt = *obj.CreatedAt
			}
			*out = append(*out, info)
		}

		if len(page) < supabaseListLimit {
			return nil
		}
	}
}

func (s *SupabaseStorage) listPage(ctx context.Context, folder string, offset int) ([]supabaseObject, error) {
	payload, err := json.Marshal(supabaseListRequest{
		Prefix: folder,
		Limit:  supabaseListLimit,
		Offset: offset,
		SortBy: supabaseSortBy{Column: "name", Order: "asc"},
	})
	if err != nil {
		return nil, err
	}

	req, err := s.newRequest(ctx, http.MethodPost, "/storage/v1/object/list/"+s.bucket, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("list failed with status %d: %s", resp.StatusCode, string(body))
	}

	var page []supabaseObject
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode list response: %w", err)
	}
	return page, nil
}

func (s *SupabaseStorage) PublicURL(path string) string {
	return s.baseURL + "/storage/v1/object/public/" + s.bucket + "/" + escapePath(path)
}
