// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/streamchat/internal/config"
	"github.com/jeranaias/streamchat/internal/render"
	"github.com/jeranaias/streamchat/internal/storage"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports chats to Markdown. Assistant text is copied as
// written; tool arguments and results become fenced code blocks.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a chat to Markdown.
func (e *MarkdownExporter) Export(chat *storage.Chat) ([]byte, error) {
	ts, err := turns(chat, render.PlainMarkup{})
	if err != nil {
		return nil, err
	}

	var sb strings.Builder

	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "title: %s\n", escapeYAML(title(chat)))
		fmt.Fprintf(&sb, "chat: %s\n", chat.ID)
		if !chat.CreatedAt.IsZero() {
			fmt.Fprintf(&sb, "date: %s\n", chat.CreatedAt.Format(time.RFC3339))
		}
		if !chat.UpdatedAt.IsZero() {
			fmt.Fprintf(&sb, "updated: %s\n", chat.UpdatedAt.Format(time.RFC3339))
		}
		fmt.Fprintf(&sb, "messages: %d\n", len(chat.Order))
		fmt.Fprintf(&sb, "exported: %s\n", e.options.now().Format(time.RFC3339))
		sb.WriteString("generator: streamchat\n")
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(title(chat)))

	for i, t := range ts {
		if i > 0 {
			sb.WriteString("---\n\n")
		}
		switch t := t.(type) {
		case *render.UserTurn:
			sb.WriteString("### You\n\n")
			e.writeUser(&sb, t)
		case *render.AgentTurn:
			sb.WriteString("### Assistant\n\n")
			for _, p := range t.Parts {
				e.writePart(&sb, p)
			}
		}
	}

	sb.WriteString("---\n\n")
	sb.WriteString("*Exported from streamchat*\n")

	return []byte(sb.String()), nil
}

func (e *MarkdownExporter) writeUser(sb *strings.Builder, t *render.UserTurn) {
	var attached []string
	for i := range t.Images {
		attached = append(attached, fmt.Sprintf("image %d", i+1))
	}
	for _, f := range t.Files {
		attached = append(attached, f.Name)
	}
	if len(attached) > 0 {
		fmt.Fprintf(sb, "*Attachments: %s*\n\n", strings.Join(attached, ", "))
	}
	sb.WriteString(t.Text)
	sb.WriteString("\n\n")
}

func (e *MarkdownExporter) writePart(sb *strings.Builder, p render.Part) {
	switch p := p.(type) {
	case *render.ContentPart:
		if p.Source == "" {
			return
		}
		sb.WriteString(p.Source)
		sb.WriteString("\n\n")

	case *render.ToolCallPart:
		if p.ShowHeader {
			header := p.Header
			if header == "" {
				header = "`" + p.Name + "`"
			}
			sb.WriteString(header)
			if p.Status == render.StatusError {
				sb.WriteString(" (failed)")
			}
			sb.WriteString("\n\n")
		}
		if p.ArgsMarkup != "" {
			if p.ArgsTitle != "" {
				fmt.Fprintf(sb, "*%s*\n\n", p.ArgsTitle)
			}
			sb.WriteString(p.ArgsMarkup)
			sb.WriteString("\n\n")
		}
		if p.Result != nil {
			if p.ResultTitle != "" {
				fmt.Fprintf(sb, "*%s*\n\n", p.ResultTitle)
			}
			sb.WriteString(markdownResult(*p.Result, *p.ResultMarkup, p.ResultType))
			sb.WriteString("\n\n")
		}
	}
}

// markdownResult keeps results that are already markdown and fences the
// rest so that they are shown verbatim.
func markdownResult(result, rendered, resultType string) string {
	switch resultType {
	case config.ResultMarkdown, config.ResultJSON:
		return rendered
	case config.ResultHTML:
		return render.CodeFence(result, "html")
	case config.ResultPlotly:
		return render.CodeFence(render.PrettyJSON(result), "json")
	case config.ResultText, "":
		return render.CodeFence(result, "")
	default:
		return rendered
	}
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// escapeYAML quotes s when YAML would otherwise misread it.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#'\"{}[]|>&*!%@`") || strings.TrimSpace(s) != s {
		return `"` + strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `"`, `\"`) + `"`
	}
	return s
}

// escapeMarkdown escapes characters that would start markdown syntax in a
// heading.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		"*", `\*`,
		"_", `\_`,
		"`", "\\`",
		"[", `\[`,
		"]", `\]`,
		"#", `\#`,
	)
	return r.Replace(s)
}
