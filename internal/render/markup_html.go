// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	gmutil "github.com/yuin/goldmark/util"
	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// CursorSpan is the element the HTML markup uses as the streaming cursor.
const CursorSpan = `<span class="stream-cursor-span"></span>`

// =============================================================================
// HTML MARKUP
// =============================================================================

// HTMLMarkup renders markdown to HTML. Code blocks are highlighted with
// chroma using CSS classes; CSS returns the matching stylesheet.
type HTMLMarkup struct {
	plain   goldmark.Markdown
	wrapped goldmark.Markdown
	code    *codeBlockRenderer
}

// NewHTMLMarkup creates an HTML markup using the named chroma style.
func NewHTMLMarkup(styleName string) *HTMLMarkup {
	style := chromaStyles.Get(styleName)
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := chromahtml.New(chromahtml.WithClasses(true), chromahtml.PreventSurroundingPre(true))

	plain := &codeBlockRenderer{style: style, formatter: formatter}
	wrapped := &codeBlockRenderer{style: style, formatter: formatter, banner: true}

	return &HTMLMarkup{
		plain:   newGoldmark(plain),
		wrapped: newGoldmark(wrapped),
		code:    plain,
	}
}

func newGoldmark(code *codeBlockRenderer) goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			gmhtml.WithUnsafe(),
			renderer.WithNodeRenderers(gmutil.Prioritized(code, 100)),
		),
	)
}

// Markdown renders src with plain code blocks.
func (m *HTMLMarkup) Markdown(src string) string {
	return convert(m.plain, src)
}

// Message renders src with a language banner above each code block.
func (m *HTMLMarkup) Message(src string) string {
	return convert(m.wrapped, src)
}

// CSS returns the stylesheet for the highlighted code classes.
func (m *HTMLMarkup) CSS() string {
	var buf bytes.Buffer
	if err := m.code.formatter.WriteCSS(&buf, m.code.style); err != nil {
		return ""
	}
	return buf.String()
}

func convert(md goldmark.Markdown, src string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "<p>" + html.EscapeString(src) + "</p>"
	}
	return buf.String()
}

// Cursor appends the cursor span to the parent of the last non-empty text
// node. Output without text gets the span at the end.
func (m *HTMLMarkup) Cursor(rendered string) string {
	body := &nethtml.Node{Type: nethtml.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := nethtml.ParseFragment(strings.NewReader(rendered), body)
	if err != nil {
		return rendered + CursorSpan
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}

	span := &nethtml.Node{
		Type:     nethtml.ElementNode,
		Data:     "span",
		DataAtom: atom.Span,
		Attr:     []nethtml.Attribute{{Key: "class", Val: "stream-cursor-span"}},
	}
	if text := lastTextNode(body); text != nil {
		text.Parent.AppendChild(span)
	} else {
		body.AppendChild(span)
	}

	var buf bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := nethtml.Render(&buf, c); err != nil {
			return rendered + CursorSpan
		}
	}
	return buf.String()
}

func lastTextNode(n *nethtml.Node) *nethtml.Node {
	for c := n.LastChild; c != nil; c = c.PrevSibling {
		if c.Type == nethtml.TextNode {
			if strings.TrimSpace(c.Data) != "" {
				return c
			}
			continue
		}
		if t := lastTextNode(c); t != nil {
			return t
		}
	}
	return nil
}

// =============================================================================
// CODE BLOCKS
// =============================================================================

// codeBlockRenderer replaces goldmark's fenced code output with chroma
// highlighting.
type codeBlockRenderer struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
	banner    bool
}

func (r *codeBlockRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCode)
}

func (r *codeBlockRenderer) renderFencedCode(w gmutil.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.FencedCodeBlock)

	var code strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		code.Write(seg.Value(source))
	}

	language := "plaintext"
	lexer := lexers.Fallback
	if n.Info != nil {
		if lang := string(n.Language(source)); lang != "" {
			if l := lexers.Get(lang); l != nil {
				language = lang
				lexer = l
			}
		}
	}

	highlighted := r.highlight(lexer, code.String())
	codeTag := fmt.Sprintf(`<code class="language-%s">%s</code>`, html.EscapeString(language), highlighted)

	if !r.banner || language == "plaintext" {
		fmt.Fprintf(w, `<pre class="markdown-code-block plain">%s</pre>`+"\n", codeTag)
		return ast.WalkSkipChildren, nil
	}
	fmt.Fprintf(w, `<div class="wrapped-code-container"><div class="lang-banner"><span>%s</span></div>`+
		`<pre class="markdown-code-block wrapped">%s</pre></div>`+"\n", html.EscapeString(language), codeTag)
	return ast.WalkSkipChildren, nil
}

func (r *codeBlockRenderer) highlight(lexer chroma.Lexer, code string) string {
	iterator, err := chroma.Coalesce(lexer).Tokenise(nil, code)
	if err != nil {
		return html.EscapeString(code)
	}
	var buf bytes.Buffer
	if err := r.formatter.Format(&buf, r.style, iterator); err != nil {
		return html.EscapeString(code)
	}
	return buf.String()
}
