package knowledge

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

var markdown = goldmark.New()

type frontMatter struct {
	Title string `yaml:"title"`
}

// ExtractTitle picks a display title for a document:
// 1. YAML front matter "title:" field
// 2. First level-1 heading, else the first heading of any level
// 3. File name without extension
func ExtractTitle(content []byte, filename string) string {
	meta, body := splitFrontMatter(content)
	if meta != nil {
		var fm frontMatter
		if err := yaml.Unmarshal(meta, &fm); err == nil {
			if title := strings.TrimSpace(fm.Title); title != "" {
				return title
			}
		}
	}

	if title := firstHeading(body); title != "" {
		return title
	}

	name := filepath.Base(filename)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// splitFrontMatter separates a leading "---" delimited YAML block from the body.
// meta is nil when the content has no front matter.
func splitFrontMatter(content []byte) (meta, body []byte) {
	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return nil, content
	}
	rest := normalized[len("---\n"):]
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return nil, content
	}
	meta = rest[:end]
	body = rest[end+len("\n---"):]
	if nl := bytes.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = nil
	}
	return meta, body
}

func firstHeading(source []byte) string {
	if len(source) == 0 {
		return ""
	}
	doc := markdown.Parser().Parse(text.NewReader(source))

	var first, firstH1 string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		title := strings.TrimSpace(string(heading.Lines().Value(source)))
		if title == "" {
			return ast.WalkSkipChildren, nil
		}
		if first == "" {
			first = title
		}
		if heading.Level == 1 {
			firstH1 = title
			return ast.WalkStop, nil
		}
		return ast.WalkSkipChildren, nil
	})

	if firstH1 != "" {
		return firstH1
	}
	return first
}
