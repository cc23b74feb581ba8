package format

import (
	"html/template"
	"io"
	"time"

	"sessionview/internal/extract"
	"sessionview/internal/record"
)

// HTMLEntry is one record prepared for the HTML page.
type HTMLEntry struct {
	Timestamp string
	Content   extract.Content
}

// NewHTMLEntry pairs a record with its extracted content.
func NewHTMLEntry(rec record.Record, content extract.Content) HTMLEntry {
	ts := ""
	if !rec.Timestamp.IsZero() {
		ts = rec.Timestamp.Format(time.RFC3339)
	}
	return HTMLEntry{Timestamp: ts, Content: content}
}

// HTMLPage is the data passed to the page template.
type HTMLPage struct {
	Title   string
	Expand  bool
	Entries []HTMLEntry
}

// Text and JSON markup produced by the extract package is already escaped,
// so it is passed through as template.HTML.
var pageTemplate = template.Must(template.New("page").Funcs(template.FuncMap{
	"trusted": func(s string) template.HTML { return template.HTML(s) }, //nolint:gosec
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 60rem; margin: 2rem auto; color: #222; }
.record { border-left: 4px solid #ccc; margin: 1rem 0; padding: 0.5rem 1rem; }
.record.system { border-color: #888; }
.record.assistant { border-color: #3b82f6; }
.record.user { border-color: #10b981; }
.record.tool { border-color: #a855f7; }
.record.failed-tool { border-color: #ef4444; background: #fef2f2; }
.meta { color: #666; font-size: 0.85rem; }
pre { background: #f6f8fa; padding: 0.5rem; overflow-x: auto; }
.json-key { color: #0550ae; } .json-string { color: #0a3069; }
.json-number { color: #953800; } .json-boolean, .json-null { color: #8250df; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{- $expand := .Expand}}
{{range .Entries}}
<section class="record {{.Content.Category}}">
<div class="meta">{{.Content.Category}}{{if .Timestamp}} · {{.Timestamp}}{{end}}</div>
{{- with .Content}}
{{- if .Init}}
<dl>
<dt>Working directory</dt><dd>{{.Init.CWD}}</dd>
<dt>Model</dt><dd>{{.Init.Model}}</dd>
{{- if .Init.PermissionMode}}<dt>Permission mode</dt><dd>{{.Init.PermissionMode}}</dd>{{end}}
{{- if .Init.Tools}}<dt>Tools</dt><dd>{{range $i, $t := .Init.Tools}}{{if $i}}, {{end}}{{$t}}{{end}}</dd>{{end}}
{{- if .Init.MCPServers}}<dt>MCP servers</dt><dd>{{range $i, $s := .Init.MCPServers}}{{if $i}}, {{end}}{{$s.Name}} ({{$s.Status}}){{end}}</dd>{{end}}
</dl>
{{- else if .Result}}
<dl>
<dt>Duration</dt><dd>{{.Result.Duration}}s</dd>
<dt>Cost</dt><dd>${{.Result.Cost}}</dd>
<dt>Turns</dt><dd>{{.Result.Turns}}</dd>
{{- if .Result.InputTokens}}<dt>Input tokens</dt><dd>{{.Result.InputTokens}}</dd>{{end}}
{{- if .Result.OutputTokens}}<dt>Output tokens</dt><dd>{{.Result.OutputTokens}}</dd>{{end}}
</dl>
{{- if .Result.HTML}}<p>{{trusted .Result.HTML}}</p>{{end}}
{{- else if .Blocks}}
{{- range .Blocks}}
{{- if eq .Kind "tool_use"}}
<div class="tool-use"><strong>{{.ToolName}}</strong> <span class="meta">{{.ToolID}}</span><pre>{{.Input}}</pre></div>
{{- else if eq .Kind "thinking"}}
{{if $expand}}<details open>{{else}}<details>{{end}}<summary>{{.Label}}</summary><p>{{trusted .HTML}}</p></details>
{{- else}}
<p>{{trusted .HTML}}</p>
{{- end}}
{{- end}}
{{- else if .Outputs}}
{{- range .Outputs}}
<div class="tool-output">
<pre>{{range $i, $l := .Preview}}{{if $i}}
{{end}}{{$l}}{{end}}</pre>
{{- if .Hidden}}
{{if $expand}}<details open>{{else}}<details>{{end}}<summary>{{.ToggleLabel}}</summary><pre>{{range $i, $l := .Hidden}}{{if $i}}
{{end}}{{$l}}{{end}}</pre></details>
{{- end}}
{{- with .OriginalCall}}
<div class="original-call">Original call: <strong>{{.Name}}</strong> <span class="meta">{{.ID}}</span><pre>{{.Input}}</pre></div>
{{- end}}
</div>
{{- end}}
{{- else}}
<pre class="json">{{trusted .HighlightedJSON}}</pre>
{{- end}}
{{- end}}
</section>
{{- end}}
</body>
</html>
`))

// WriteHTML renders a standalone HTML page for the given entries.
func WriteHTML(w io.Writer, page HTMLPage) error {
	return pageTemplate.Execute(w, page)
}
