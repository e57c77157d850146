package storage

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "asset-dedup/pkg/errors"
)

func bytesReader(s string) io.Reader {
	return strings.NewReader(s)
}

func TestLocalStorage_RoundTrip(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), "http://localhost:8080/files")
	require.NoError(t, err)
	ctx := context.Background()

	n, err := s.Put(ctx, "originals/blog/a.png", bytesReader("hello"), 5, "image/png")
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	_, err = s.Put(ctx, "originals/campaigns/b.webp", bytesReader("hi"), 2, "image/webp")
	require.NoError(t, err)
	_, err = s.Put(ctx, "other/c.jpg", bytesReader("x"), 1, "image/jpeg")
	require.NoError(t, err)

	objects, err := s.List(ctx, "originals")
	require.NoError(t, err)
	paths := make([]string, 0, len(objects))
	for _, o := range objects {
		paths = append(paths, o.Path)
	}
	sort.Strings(paths)
	assert.Equal(t, []string{"originals/blog/a.png", "originals/campaigns/b.webp"}, paths)

	rc, err := s.Get(ctx, "originals/blog/a.png")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "hello", string(data))

	require.NoError(t, s.Delete(ctx, "originals/blog/a.png", "originals/blog/never-existed.png"))
	_, err = s.Get(ctx, "originals/blog/a.png")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	assert.Equal(t, "http://localhost:8080/files/originals/campaigns/b.webp", s.PublicURL("originals/campaigns/b.webp"))
}

func TestLocalStorage_ListMissingPrefix(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), "")
	require.NoError(t, err)

	objects, err := s.List(context.Background(), "nothing-here")
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestLocalStorage_PathTraversal(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), "")
	require.NoError(t, err)

	// Cleaned paths stay inside the base directory
	_, err = s.Put(context.Background(), "../../escape.png", bytesReader("x"), 1, "")
	require.NoError(t, err)
	objects, err := s.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "escape.png", objects[0].Path)
	assert.True(t, strings.HasPrefix(s.PublicURL("escape.png"), "file://"))
}
