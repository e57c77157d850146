package service

import (
	"regexp"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

var (
	backgroundURLRe = regexp.MustCompile(`background(?:-image)?\s*:[^;{}]*?url\(\s*['"]?([^'")]+?)['"]?\s*\)`)
	// Catches image syntax goldmark rejects, e.g. unescaped spaces in the URL.
	markdownImageRe = regexp.MustCompile(`!\[[^\]]*\]\(([^)]+)\)`)
	markdownTitleRe = regexp.MustCompile(`\s+["'][^"']*["']$`)
)

var (
	markdownParser     goldmark.Markdown
	markdownParserOnce sync.Once
)

func getMarkdownParser() goldmark.Markdown {
	markdownParserOnce.Do(func() {
		markdownParser = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdownParser
}

// ExtractURLs returns the image URLs referenced by a surface: <img src>,
// CSS background-image (inline or in <style>) and Markdown images. Each URL
// appears once, in order of first discovery. data: URLs are skipped.
func ExtractURLs(content string) []string {
	c := &urlCollector{seen: make(map[string]bool)}
	if strings.TrimSpace(content) == "" {
		return nil
	}

	extractHTML(content, c)
	extractMarkdown(content, c)

	for _, m := range markdownImageRe.FindAllStringSubmatch(content, -1) {
		dest := strings.TrimSpace(m[1])
		dest = markdownTitleRe.ReplaceAllString(dest, "")
		c.add(strings.Trim(dest, "<>"))
	}

	return c.urls
}

type urlCollector struct {
	urls []string
	seen map[string]bool
}

func (c *urlCollector) add(raw string) {
	u := strings.TrimSpace(raw)
	if u == "" || strings.HasPrefix(strings.ToLower(u), "data:") || c.seen[u] {
		return
	}
	c.seen[u] = true
	c.urls = append(c.urls, u)
}

func (c *urlCollector) addCSS(css string) {
	for _, m := range backgroundURLRe.FindAllStringSubmatch(css, -1) {
		c.add(m[1])
	}
}

func extractHTML(content string, c *urlCollector) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return
	}

	var crawler func(*html.Node)
	crawler = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, a := range n.Attr {
				switch {
				case n.Data == "img" && a.Key == "src":
					c.add(a.Val)
				case a.Key == "style":
					c.addCSS(a.Val)
				}
			}
			if n.Data == "style" {
				for t := n.FirstChild; t != nil; t = t.NextSibling {
					if t.Type == html.TextNode {
						c.addCSS(t.Data)
					}
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			crawler(child)
		}
	}
	crawler(doc)
}

func extractMarkdown(content string, c *urlCollector) {
	source := []byte(content)
	document := getMarkdownParser().Parser().Parse(text.NewReader(source))

	ast.Walk(document, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if img, ok := node.(*ast.Image); ok {
			c.add(string(img.Destination))
		}
		return ast.WalkContinue, nil
	})
}
