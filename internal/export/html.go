// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/jeranaias/streamchat/internal/config"
	"github.com/jeranaias/streamchat/internal/render"
	"github.com/jeranaias/streamchat/internal/storage"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports chats to a standalone HTML page with embedded CSS.
// Markdown and code highlighting come from the HTML markup, so the page
// matches what a browser front end would show.
type HTMLExporter struct {
	options *Options
	markup  *render.HTMLMarkup
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	style := "monokai"
	if opts.Theme == "light" {
		style = "github"
	}
	return &HTMLExporter{options: opts, markup: render.NewHTMLMarkup(style)}
}

// Export converts a chat to HTML.
func (e *HTMLExporter) Export(chat *storage.Chat) ([]byte, error) {
	ts, err := turns(chat, e.markup)
	if err != nil {
		return nil, err
	}

	theme := e.options.Theme
	if theme != "light" {
		theme = "dark"
	}

	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", html.EscapeString(title(chat)))
	sb.WriteString("    <meta name=\"generator\" content=\"streamchat\">\n")
	if !chat.CreatedAt.IsZero() {
		fmt.Fprintf(&sb, "    <meta name=\"date\" content=\"%s\">\n", chat.CreatedAt.Format(time.RFC3339))
	}
	sb.WriteString(pageCSS)
	sb.WriteString("    <style>\n")
	sb.WriteString(e.markup.CSS())
	sb.WriteString("    </style>\n")
	sb.WriteString("</head>\n")
	fmt.Fprintf(&sb, "<body class=\"%s-theme\">\n", theme)

	sb.WriteString("    <div class=\"container\">\n")
	sb.WriteString(e.renderHeader(chat))

	sb.WriteString("        <main class=\"conversation\">\n")
	for _, t := range ts {
		switch t := t.(type) {
		case *render.UserTurn:
			sb.WriteString(e.renderUser(t))
		case *render.AgentTurn:
			sb.WriteString(e.renderAgent(t))
		}
	}
	sb.WriteString("        </main>\n")

	sb.WriteString("        <footer class=\"footer\">\n")
	fmt.Fprintf(&sb, "            <p>Exported from <strong>streamchat</strong> on %s</p>\n",
		e.options.now().Format("January 2, 2006 at 3:04 PM"))
	sb.WriteString("        </footer>\n")
	sb.WriteString("    </div>\n")
	sb.WriteString(themeScript)
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING FUNCTIONS
// =============================================================================

func (e *HTMLExporter) renderHeader(chat *storage.Chat) string {
	var sb strings.Builder

	sb.WriteString("        <header class=\"header\">\n")
	fmt.Fprintf(&sb, "            <h1>%s</h1>\n", html.EscapeString(title(chat)))
	sb.WriteString("            <div class=\"metadata\">\n")
	if e.options.IncludeMetadata {
		fmt.Fprintf(&sb, "                <span class=\"meta-item\"><strong>Chat:</strong> %s</span>\n", html.EscapeString(chat.ID))
		if !chat.CreatedAt.IsZero() {
			fmt.Fprintf(&sb, "                <span class=\"meta-item\"><strong>Created:</strong> %s</span>\n", formatTimestamp(chat.CreatedAt))
		}
		fmt.Fprintf(&sb, "                <span class=\"meta-item\"><strong>Messages:</strong> %d</span>\n", len(chat.Order))
	}
	sb.WriteString("                <button class=\"theme-toggle\" onclick=\"toggleTheme()\" title=\"Toggle theme\">[Theme]</button>\n")
	sb.WriteString("            </div>\n")
	sb.WriteString("        </header>\n")

	return sb.String()
}

func (e *HTMLExporter) renderUser(t *render.UserTurn) string {
	var sb strings.Builder

	sb.WriteString("            <div class=\"message user-message\">\n")
	sb.WriteString("                <div class=\"message-header\"><span class=\"role-label\">You</span></div>\n")
	sb.WriteString("                <div class=\"message-content\">\n")
	for _, img := range t.Images {
		if img.ImageURL != nil {
			fmt.Fprintf(&sb, "                    <img class=\"attachment\" src=\"%s\" alt=\"attached image\">\n",
				html.EscapeString(img.ImageURL.URL))
		}
	}
	for _, f := range t.Files {
		fmt.Fprintf(&sb, "                    <div class=\"file-chip\">%s <span class=\"file-type\">%s</span></div>\n",
			html.EscapeString(f.Name), html.EscapeString(f.FileType))
	}
	fmt.Fprintf(&sb, "                    <p class=\"user-text\">%s</p>\n", html.EscapeString(t.Text))
	sb.WriteString("                </div>\n")
	sb.WriteString("            </div>\n")

	return sb.String()
}

func (e *HTMLExporter) renderAgent(t *render.AgentTurn) string {
	var sb strings.Builder

	sb.WriteString("            <div class=\"message assistant-message\">\n")
	sb.WriteString("                <div class=\"message-header\"><span class=\"role-label\">Assistant</span></div>\n")
	sb.WriteString("                <div class=\"message-content\">\n")
	for _, p := range t.Parts {
		switch p := p.(type) {
		case *render.ContentPart:
			sb.WriteString(p.Markup)
		case *render.ToolCallPart:
			sb.WriteString(e.renderToolCall(p))
		}
	}
	sb.WriteString("                </div>\n")
	sb.WriteString("            </div>\n")

	return sb.String()
}

func (e *HTMLExporter) renderToolCall(p *render.ToolCallPart) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "<div class=\"tool-call %s\" data-function=\"%s\">\n",
		p.Status.String(), html.EscapeString(p.Name))
	if p.ShowHeader {
		header := p.Header
		if header == "" {
			header = html.EscapeString(p.Name)
		}
		fmt.Fprintf(&sb, "<div class=\"tool-header\">%s</div>\n", header)
	}
	if p.ArgsMarkup != "" {
		if p.ArgsTitle != "" {
			fmt.Fprintf(&sb, "<div class=\"tool-title\">%s</div>\n", p.ArgsTitle)
		}
		sb.WriteString(p.ArgsMarkup)
	}
	if p.Result != nil {
		if p.ResultTitle != "" {
			fmt.Fprintf(&sb, "<div class=\"tool-title\">%s</div>\n", p.ResultTitle)
		}
		sb.WriteString(htmlResult(*p.Result, *p.ResultMarkup, p.ResultType))
	}
	sb.WriteString("</div>\n")

	return sb.String()
}

// htmlResult returns the markup for a tool result. HTML results are
// embedded as sent; text and plotly results are escaped.
func htmlResult(result, rendered, resultType string) string {
	switch resultType {
	case config.ResultHTML:
		return "<div class=\"tool-result html\">" + result + "</div>\n"
	case config.ResultPlotly:
		return "<pre class=\"tool-result plotly\">" + html.EscapeString(render.PrettyJSON(result)) + "</pre>\n"
	case config.ResultText, "":
		return "<pre class=\"tool-result\">" + html.EscapeString(result) + "</pre>\n"
	default:
		return rendered
	}
}

// =============================================================================
// EMBEDDED CSS AND SCRIPT
// =============================================================================

const pageCSS = `    <style>
        * {
            margin: 0;
            padding: 0;
            box-sizing: border-box;
        }

        :root {
            --font-sans: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
            --font-mono: "SF Mono", "Monaco", "Inconsolata", "Fira Code", "Source Code Pro", monospace;
        }

        .dark-theme {
            --bg-primary: #1a1b26;
            --bg-secondary: #24283b;
            --bg-tertiary: #414868;
            --text-primary: #c0caf5;
            --text-secondary: #a9b1d6;
            --text-muted: #565f89;
            --border-color: #414868;
            --user-bg: #1f2335;
            --assistant-bg: #24283b;
            --code-bg: #1a1b26;
            --accent-blue: #7aa2f7;
            --accent-green: #9ece6a;
            --accent-purple: #bb9af7;
            --accent-red: #f7768e;
        }

        .light-theme {
            --bg-primary: #ffffff;
            --bg-secondary: #f7f8fa;
            --bg-tertiary: #e1e4e8;
            --text-primary: #24292e;
            --text-secondary: #586069;
            --text-muted: #6a737d;
            --border-color: #e1e4e8;
            --user-bg: #f6f8fa;
            --assistant-bg: #ffffff;
            --code-bg: #f6f8fa;
            --accent-blue: #0366d6;
            --accent-green: #22863a;
            --accent-purple: #6f42c1;
            --accent-red: #d73a49;
        }

        body {
            font-family: var(--font-sans);
            font-size: 16px;
            line-height: 1.6;
            color: var(--text-primary);
            background: var(--bg-primary);
            padding: 20px;
        }

        .container {
            max-width: 900px;
            margin: 0 auto;
            background: var(--bg-secondary);
            border-radius: 12px;
            overflow: hidden;
        }

        .header {
            padding: 32px;
            background: var(--bg-tertiary);
            border-bottom: 2px solid var(--border-color);
        }

        .header h1 {
            font-size: 28px;
            margin-bottom: 16px;
        }

        .metadata {
            display: flex;
            flex-wrap: wrap;
            gap: 16px;
            font-size: 14px;
            color: var(--text-secondary);
            align-items: center;
        }

        .theme-toggle {
            margin-left: auto;
            background: var(--bg-secondary);
            border: 1px solid var(--border-color);
            border-radius: 6px;
            padding: 6px 12px;
            cursor: pointer;
        }

        .conversation {
            padding: 24px 32px;
        }

        .message {
            margin-bottom: 24px;
            padding: 20px;
            border-radius: 8px;
            border-left: 4px solid transparent;
        }

        .user-message {
            background: var(--user-bg);
            border-left-color: var(--accent-blue);
        }

        .assistant-message {
            background: var(--assistant-bg);
            border-left-color: var(--accent-green);
        }

        .message-header {
            margin-bottom: 12px;
            font-size: 14px;
            font-weight: 600;
        }

        .message-content p {
            margin-bottom: 12px;
        }

        .user-text {
            white-space: pre-wrap;
        }

        .attachment {
            max-width: 100%;
            border-radius: 6px;
            margin-bottom: 8px;
        }

        .file-chip {
            display: inline-block;
            padding: 2px 8px;
            margin: 0 8px 8px 0;
            border: 1px solid var(--border-color);
            border-radius: 4px;
            font-family: var(--font-mono);
            font-size: 13px;
        }

        .file-type {
            color: var(--text-muted);
        }

        .markdown-code-block, .tool-result {
            margin: 12px 0;
            padding: 16px;
            overflow-x: auto;
            background: var(--code-bg);
            border: 1px solid var(--border-color);
            border-radius: 8px;
            font-family: var(--font-mono);
            font-size: 14px;
        }

        .wrapped-code-container .lang-banner {
            padding: 4px 16px;
            background: var(--bg-tertiary);
            font-size: 12px;
            text-transform: uppercase;
            border-radius: 8px 8px 0 0;
        }

        .wrapped-code-container .markdown-code-block {
            margin-top: 0;
            border-radius: 0 0 8px 8px;
        }

        .tool-call {
            margin: 16px 0;
            padding: 12px 16px;
            border-left: 3px solid var(--accent-purple);
            background: var(--bg-primary);
            border-radius: 6px;
        }

        .tool-call.error {
            border-left-color: var(--accent-red);
        }

        .tool-header {
            font-weight: 600;
            color: var(--accent-purple);
        }

        .tool-call.error .tool-header {
            color: var(--accent-red);
        }

        .tool-title {
            margin-top: 8px;
            font-size: 13px;
            color: var(--text-muted);
        }

        .footer {
            padding: 20px 32px;
            text-align: center;
            font-size: 14px;
            color: var(--text-muted);
            border-top: 1px solid var(--border-color);
        }

        @media print {
            .theme-toggle {
                display: none;
            }

            .message {
                page-break-inside: avoid;
            }
        }
    </style>
`

const themeScript = `    <script>
        function toggleTheme() {
            const body = document.body;
            if (body.classList.contains('dark-theme')) {
                body.classList.remove('dark-theme');
                body.classList.add('light-theme');
                localStorage.setItem('theme', 'light');
            } else {
                body.classList.remove('light-theme');
                body.classList.add('dark-theme');
                localStorage.setItem('theme', 'dark');
            }
        }

        // Load saved theme preference
        document.addEventListener('DOMContentLoaded', function() {
            const savedTheme = localStorage.getItem('theme');
            if (savedTheme) {
                document.body.classList.remove('dark-theme', 'light-theme');
                document.body.classList.add(savedTheme + '-theme');
            }
        });
    </script>
`
