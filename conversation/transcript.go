package conversation

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"

	"github.com/codex-mohan/autonix/state"
)

var speakers = map[state.Role]string{
	state.RoleHuman:  "You",
	state.RoleAI:     "Assistant",
	state.RoleSystem: "System",
	state.RoleTool:   "Tool",
}

// TranscriptMarkdown renders path as Markdown, one section per message.
func TranscriptMarkdown(path []Message) string {
	var sb strings.Builder
	for i, m := range path {
		if i > 0 {
			sb.WriteString("\n---\n\n")
		}
		speaker := speakers[m.Type]
		if speaker == "" {
			speaker = string(m.Type)
		}
		fmt.Fprintf(&sb, "### %s\n\n", speaker)
		if m.Content != "" {
			sb.WriteString(m.Content)
			sb.WriteString("\n\n")
		}
		for _, call := range m.ToolCalls {
			fmt.Fprintf(&sb, "- called `%s` with `%s`\n", call.Name, call.Arguments)
		}
	}
	return sb.String()
}

// RenderTranscript renders path as sanitized HTML.
func RenderTranscript(path []Message) string {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(TranscriptMarkdown(path)))

	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank})
	out := markdown.Render(doc, renderer)

	return string(bluemonday.UGCPolicy().SanitizeBytes(out))
}
