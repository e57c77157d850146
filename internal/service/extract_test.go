package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractURLs(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "img src",
			content: `<div><img class="hero" src="https://host/a.webp" alt=""><img src='/campaigns/b.jpg'/></div>`,
			want:    []string{"https://host/a.webp", "/campaigns/b.jpg"},
		},
		{
			name:    "inline background image",
			content: `<section style="color: red; background-image: url('https://host/bg.png')"></section>`,
			want:    []string{"https://host/bg.png"},
		},
		{
			name: "style block",
			content: `<style>
  .hero { background-image: url("/campaigns/2025-05/hero.webp"); }
  .x { background: #fff url(/img/tile.png) repeat; }
</style>`,
			want: []string{"/campaigns/2025-05/hero.webp", "/img/tile.png"},
		},
		{
			name:    "markdown image",
			content: "Intro text\n\n![driver](https://host/driver.jpg \"Driver\")\n\nMore",
			want:    []string{"https://host/driver.jpg"},
		},
		{
			name:    "markdown with spaces in url",
			content: "![x](https://host/my photo.png)",
			want:    []string{"https://host/my photo.png"},
		},
		{
			name:    "mixed markdown and html",
			content: "# Title\n\n<p><img src=\"https://host/a.png\"></p>\n\n![b](https://host/b.png)",
			want:    []string{"https://host/a.png", "https://host/b.png"},
		},
		{
			name:    "data urls skipped",
			content: `<img src="data:image/png;base64,iVBORw0KGgo="><img src="https://host/c.png">`,
			want:    []string{"https://host/c.png"},
		},
		{
			name:    "duplicates collapse",
			content: `<img src="https://host/a.png"><img src="https://host/a.png">![a](https://host/a.png)`,
			want:    []string{"https://host/a.png"},
		},
		{
			name:    "html entities decoded",
			content: `<img src="https://host/a.png?w=100&amp;h=50">`,
			want:    []string{"https://host/a.png?w=100&h=50"},
		},
		{
			name:    "empty",
			content: "   ",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractURLs(tt.content))
		})
	}
}
