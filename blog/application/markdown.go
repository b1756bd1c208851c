package application

import (
	"bytes"
	"fmt"
	gohtml "html"
	"path"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

const maxExcerptLength = 200

// RenderedContent is a post body converted for display.
type RenderedContent struct {
	HTML    string
	Excerpt string
}

// relativeImageTransformer points relative image destinations at the public
// upload prefix, so "![](cover.png)" resolves to "/uploads/cover.png".
type relativeImageTransformer struct {
	prefix string
}

func (t *relativeImageTransformer) Transform(node *ast.Document, reader text.Reader, pc parser.Context) {
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		img, ok := n.(*ast.Image)
		if !ok {
			return ast.WalkContinue, nil
		}

		dest := string(img.Destination)
		if isRelativeLink(dest) && !strings.HasPrefix(dest, "/") {
			img.Destination = []byte(t.prefix + "/" + path.Base(dest))
		}

		return ast.WalkContinue, nil
	})
}

func isRelativeLink(dest string) bool {
	if dest == "" {
		return false
	}

	// Absolute path check
	if strings.HasPrefix(dest, "/") {
		if strings.HasPrefix(dest, "//") {
			return false
		}
		return true
	}

	if strings.HasPrefix(dest, "./") || strings.HasPrefix(dest, "../") {
		return true
	}

	if strings.Contains(dest, ":") {
		return false
	}

	return true
}

// MarkdownRenderer converts post content to sanitized HTML.
type MarkdownRenderer interface {
	Render(content string) (*RenderedContent, error)
}

type MarkdownRendererImpl struct {
	renderer goldmark.Markdown
	policy   *bluemonday.Policy
	strip    *bluemonday.Policy
}

// NewMarkdownRenderer returns a renderer that rewrites relative images under
// imagePrefix (e.g. "/uploads").
func NewMarkdownRenderer(imagePrefix string) MarkdownRenderer {
	renderer := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Table,
			extension.Strikethrough,
			extension.TaskList,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(
				util.Prioritized(&relativeImageTransformer{prefix: "/" + strings.Trim(imagePrefix, "/")}, 100),
			),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
			// Raw HTML is passed through and then sanitized below.
			html.WithUnsafe(),
		),
	)

	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("type", "checked", "disabled").OnElements("input")

	return &MarkdownRendererImpl{
		renderer: renderer,
		policy:   policy,
		strip:    bluemonday.StrictPolicy(),
	}
}

func (r *MarkdownRendererImpl) Render(content string) (*RenderedContent, error) {
	body, err := r.toHTML(content)
	if err != nil {
		return nil, err
	}

	excerpt, err := r.toHTML(extractSnippet(content))
	if err != nil {
		return nil, err
	}

	return &RenderedContent{
		HTML:    body,
		Excerpt: truncateText(r.plainText(excerpt), maxExcerptLength),
	}, nil
}

func (r *MarkdownRendererImpl) toHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := r.renderer.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown to HTML: %w", err)
	}
	return r.policy.Sanitize(buf.String()), nil
}

func (r *MarkdownRendererImpl) plainText(htmlContent string) string {
	stripped := gohtml.UnescapeString(r.strip.Sanitize(htmlContent))
	return strings.Join(strings.Fields(stripped), " ")
}

// extractSnippet returns the first paragraph of markdown, skipping leading
// headings and block constructs.
func extractSnippet(markdown string) string {
	lines := strings.Split(markdown, "\n")
	var paragraphLines []string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		// Skip headings before we find content
		if strings.HasPrefix(trimmed, "#") {
			if len(paragraphLines) > 0 {
				break
			}
			continue
		}

		if trimmed == "" {
			if len(paragraphLines) > 0 {
				break // End of first paragraph
			}
			continue
		}

		// Stop at code blocks, horizontal rules, lists, tables
		if strings.HasPrefix(trimmed, "```") ||
			strings.HasPrefix(trimmed, "---") ||
			strings.HasPrefix(trimmed, "***") ||
			strings.HasPrefix(trimmed, "- ") ||
			strings.HasPrefix(trimmed, "* ") ||
			strings.HasPrefix(trimmed, "+ ") ||
			strings.HasPrefix(trimmed, "|") {
			if len(paragraphLines) > 0 {
				break
			}
			continue
		}

		paragraphLines = append(paragraphLines, trimmed)
	}

	return strings.Join(paragraphLines, " ")
}

// truncateText cuts s to at most max runes, backing off to the last space.
func truncateText(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}

	cut := string(runes[:max])
	if lastSpace := strings.LastIndexAny(cut, " \t"); lastSpace > 0 {
		cut = cut[:lastSpace]
	}
	return cut + "..."
}
