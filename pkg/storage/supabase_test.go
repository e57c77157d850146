package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "asset-dedup/pkg/errors"
)

func newSupabaseServer(t *testing.T) (*httptest.Server, *[]string) {
	var deleted []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" || r.Header.Get("apikey") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/storage/v1/object/list/blog-images":
			var req supabaseListRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			w.Header().Set("Content-Type", "application/json")
			switch req.Prefix {
			case "originals":
				w.Write([]byte(`[
					{"name": "campaigns", "id": null, "metadata": null},
					{"name": "a.png", "id": "1", "created_at": "2024-01-02T03:04:05Z", "metadata": {"size": 10, "mimetype": "image/png"}}
				]`))
			case "originals/campaigns":
				w.Write([]byte(`[
					{"name": ".emptyFolderPlaceholder", "id": "9", "metadata": {"size": 0}},
					{"name": "b.webp", "id": "2", "metadata": {"size": 4, "mimetype": "image/webp"}}
				]`))
			default:
				w.Write([]byte(`[]`))
			}
		case r.Method == http.MethodGet && r.URL.Path == "/storage/v1/object/blog-images/originals/a.png":
			w.Write([]byte("png-bytes"))
		case r.Method == http.MethodGet:
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"statusCode":"404","error":"not_found","message":"Object not found"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/storage/v1/object/blog-images/originals/new.png":
			assert.Equal(t, "true", r.Header.Get("x-upsert"))
			assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
			w.Write([]byte(`{"Key":"blog-images/originals/new.png"}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/storage/v1/object/blog-images":
			var body map[string][]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			deleted = append(deleted, body["prefixes"]...)
			w.Write([]byte(`[]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return server, &deleted
}

func TestSupabaseStorage_List(t *testing.T) {
	server, _ := newSupabaseServer(t)
	defer server.Close()

	s, err := NewSupabaseStorage(server.URL, "secret", "blog-images")
	require.NoError(t, err)

	objects, err := s.List(context.Background(), "originals/")
	require.NoError(t, err)
	require.Len(t, objects, 2)

	assert.Equal(t, "originals/campaigns/b.webp", objects[0].Path)
	assert.Equal(t, int64(4), objects[0].Size)
	assert.Equal(t, "originals/a.png", objects[1].Path)
	assert.Equal(t, "image/png", objects[1].ContentType)
	assert.Equal(t, 2024, objects[1].CreatedAt.Year())
}

func TestSupabaseStorage_GetPutDelete(t *testing.T) {
	server, deleted := newSupabaseServer(t)
	defer server.Close()

	s, err := NewSupabaseStorage(server.URL, "secret", "blog-images")
	require.NoError(t, err)
	ctx := context.Background()

	rc, err := s.Get(ctx, "originals/a.png")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "png-bytes", string(data))

	_, err = s.Get(ctx, "originals/missing.png")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	n, err := s.Put(ctx, "originals/new.png", bytesReader("abc"), 3, "image/png")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	require.NoError(t, s.Delete(ctx, "originals/a.png", "originals/missing.png"))
	assert.Equal(t, []string{"originals/a.png", "originals/missing.png"}, *deleted)

	require.NoError(t, s.Delete(ctx))
}

func TestSupabaseStorage_PublicURL(t *testing.T) {
	s, err := NewSupabaseStorage("https://proj.supabase.co/", "secret", "blog-images")
	require.NoError(t, err)

	assert.Equal(t,
		"https://proj.supabase.co/storage/v1/object/public/blog-images/originals/%ED%85%8C%EC%8A%A4%ED%8A%B8.png",
		s.PublicURL("originals/테스트.png"))
}

func TestNewSupabaseStorage_RequiresSettings(t *testing.T) {
	_, err := NewSupabaseStorage("https://proj.supabase.co", "", "blog-images")
	assert.Error(t, err)
}
