package content

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// WordsPerMinute is the reading speed used for ReadingMinutes
const WordsPerMinute = 200

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
)

// Stats summarizes a markdown body
type Stats struct {
	Words          int       `json:"words"`
	ReadingMinutes int       `json:"reading_minutes"`
	Headings       []Heading `json:"headings,omitempty"`
}

// Heading is a section title of the body
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// ComputeStats parses body as markdown and counts the prose words and headings.
// Code blocks are not counted.
func ComputeStats(body []byte) Stats {
	var stats Stats
	if len(bytes.TrimSpace(body)) == 0 {
		return stats
	}

	root := markdown.Parser().Parse(text.NewReader(body))
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			title := nodeText(node, body)
			stats.Headings = append(stats.Headings, Heading{Level: node.Level, Text: title})
			stats.Words += len(strings.Fields(title))
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			stats.Words += len(strings.Fields(string(node.Segment.Value(body))))
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	if stats.Words > 0 {
		stats.ReadingMinutes = (stats.Words + WordsPerMinute - 1) / WordsPerMinute
	}
	return stats
}

func nodeText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := c.(*ast.Text); ok && entering {
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				sb.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
