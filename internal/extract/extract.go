// Package extract derives document titles and approximate page numbers
// from markdown text.
package extract

import (
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var pagePattern = regexp.MustCompile(`(?i)\b(?:page|p\.)\s*(\d+)`)

// Title returns the document's level-1 heading when the markdown has one,
// otherwise a title derived from the last path segment of sourceURL with
// the extension stripped and separators replaced by spaces.
func Title(markdown, sourceURL string) string {
	if h := headingTitle(markdown); h != "" {
		return h
	}
	return titleFromURL(sourceURL)
}

func headingTitle(markdown string) string {
	source := []byte(markdown)
	root := goldmark.DefaultParser().Parse(text.NewReader(source))
	var title string
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok && h.Level == 1 {
			title = strings.TrimSpace(string(h.Text(source)))
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return title
}

func titleFromURL(sourceURL string) string {
	base := path.Base(strings.TrimSuffix(sourceURL, "/"))
	if base == "." || base == "/" || base == "" {
		return "Untitled Document"
	}
	for _, ext := range []string{".pdf", ".md", ".txt"} {
		if strings.HasSuffix(strings.ToLower(base), ext) {
			base = base[:len(base)-len(ext)]
			break
		}
	}
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	base = strings.TrimSpace(base)
	if base == "" {
		return "Untitled Document"
	}
	return base
}

// PageNumber scans chunk text for a "page N" or "p. N" marker and returns
// the first match. This is a best-effort heuristic, not authoritative
// pagination; callers must treat the result as approximate.
func PageNumber(chunkText string) *int {
	m := pagePattern.FindStringSubmatch(chunkText)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}
