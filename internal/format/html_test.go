package format

import (
	"bytes"
	"strings"
	"testing"

	"sessionview/internal/query"
)

func renderPage(t *testing.T, transcript string, expand bool) string {
	t.Helper()
	session := query.NewSession()
	if err := session.LoadText([]byte(transcript)); err != nil {
		t.Fatalf("LoadText returned error: %v", err)
	}
	page := HTMLPage{Title: "session <1>", Expand: expand}
	for _, rec := range session.FilteredRecords() {
		page.Entries = append(page.Entries, NewHTMLEntry(rec, session.Extract(rec)))
	}

	var buf bytes.Buffer
	if err := WriteHTML(&buf, page); err != nil {
		t.Fatalf("WriteHTML returned error: %v", err)
	}
	return buf.String()
}

func TestWriteHTML(t *testing.T) {
	out := renderPage(t, `[
		{"type":"user","message":{"content":"<script>x</script> **bold**"}},
		{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t1","name":"Read","input":{"path":"a<b"}}]}},
		{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t1","content":"Error: one\ntwo\nthree"}]}},
		{"foo":"bar"}
	]`, false)

	wants := []string{
		"<title>session &lt;1&gt;</title>",
		"&lt;script&gt;x&lt;/script&gt; <strong>bold</strong>",
		`<section class="record failed-tool">`,
		"<details><summary>Show 1 more line</summary>",
		"Original call: <strong>Read</strong>",
		`<span class="json-key">&#34;foo&#34;</span>`,
	}
	for _, want := range wants {
		if !strings.Contains(out, want) && !strings.Contains(out, strings.ReplaceAll(want, "&#34;", `"`)) {
			t.Fatalf("expected %q in page:\n%s", want, out)
		}
	}
	if strings.Contains(out, "<script>") {
		t.Fatalf("unescaped script tag in page")
	}
	if !strings.Contains(out, "a&lt;b") {
		t.Fatalf("tool input should be escaped:\n%s", out)
	}
}

func TestWriteHTMLExpanded(t *testing.T) {
	out := renderPage(t, `[
		{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t1","content":"1\n2\n3\n4"}]}}
	]`, true)
	if !strings.Contains(out, "<details open><summary>Show 2 more lines</summary>") {
		t.Fatalf("expected open details when expanded:\n%s", out)
	}
}
