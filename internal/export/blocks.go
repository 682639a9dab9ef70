package export

import (
	"fmt"
	"html"
	"strings"

	"blackbox/api/internal/content"
)

// BlocksToHTML renders article body blocks. Consecutive list items of the
// same style are grouped into one list.
func BlocksToHTML(blocks []content.Block) string {
	var out strings.Builder
	openList := ""
	closeList := func() {
		if openList != "" {
			fmt.Fprintf(&out, "</%s>\n", openList)
			openList = ""
		}
	}

	for _, block := range blocks {
		if block.Kind != content.BlockListItem {
			closeList()
		}
		switch block.Kind {
		case content.BlockHeading:
			level := block.Level
			if level < 1 || level > 6 {
				level = 2
			}
			fmt.Fprintf(&out, "<h%d>%s</h%d>\n", level, renderSpans(block.Spans), level)
		case content.BlockQuote:
			fmt.Fprintf(&out, "<blockquote><p>%s</p></blockquote>\n", renderSpans(block.Spans))
		case content.BlockListItem:
			tag := "ul"
			if block.ListStyle == "number" {
				tag = "ol"
			}
			if tag != openList {
				closeList()
				fmt.Fprintf(&out, "<%s>\n", tag)
				openList = tag
			}
			fmt.Fprintf(&out, "<li>%s</li>\n", renderSpans(block.Spans))
		case content.BlockImage:
			src := block.Image.URL("body")
			if src == "" {
				continue
			}
			fmt.Fprintf(&out, "<figure><img src=\"%s\" alt=\"%s\"></figure>\n",
				html.EscapeString(src), html.EscapeString(block.Image.Alt))
		case content.BlockCode:
			class := ""
			if block.Language != "" {
				class = fmt.Sprintf(" class=\"language-%s\"", html.EscapeString(block.Language))
			}
			fmt.Fprintf(&out, "<pre><code%s>%s</code></pre>\n", class, html.EscapeString(block.Code))
		default:
			fmt.Fprintf(&out, "<p>%s</p>\n", renderSpans(block.Spans))
		}
	}
	closeList()
	return out.String()
}

func renderSpans(spans []content.Span) string {
	var out strings.Builder
	for _, span := range spans {
		out.WriteString(renderSpan(span))
	}
	return out.String()
}

// renderSpan applies marks from outside in, then wraps links outermost.
func renderSpan(span content.Span) string {
	if span.Text == "" {
		return ""
	}
	text := html.EscapeString(span.Text)
	for i := len(span.Marks) - 1; i >= 0; i-- {
		switch span.Marks[i] {
		case "strong":
			text = "<strong>" + text + "</strong>"
		case "em":
			text = "<em>" + text + "</em>"
		case "code":
			text = "<code>" + text + "</code>"
		case "underline":
			text = "<u>" + text + "</u>"
		case "strike-through":
			text = "<s>" + text + "</s>"
		}
	}
	if span.Href != "" {
		text = fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(span.Href), text)
	}
	return text
}
