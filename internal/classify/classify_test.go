package classify

import (
	"encoding/json"
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"sessionview/internal/record"
)

func decode(t *testing.T, raw string) record.Record {
	t.Helper()
	if !json.Valid([]byte(raw)) {
		t.Fatalf("invalid fixture: %s", raw)
	}
	return record.Decode(json.RawMessage(raw))
}

func TestCategorizeDeclaredKinds(t *testing.T) {
	cases := []struct {
		raw  string
		want Category
	}{
		{`{"type":"system","subtype":"init"}`, System},
		{`{"type":"assistant","message":{"content":[{"type":"text","text":"hi"}]}}`, Assistant},
		{`{"type":"tool"}`, Tool},
		{`{"type":"user","message":{"content":"hello"}}`, User},
		{`{"type":"user"}`, User},
		{`{"type":"result","subtype":"success"}`, System},
		{`{"type":"summary"}`, System},
		{`{}`, System},
		{`[1,2]`, System},
		{`"loose string"`, System},
	}

	for _, tc := range cases {
		if got := Categorize(decode(t, tc.raw)); got != tc.want {
			t.Errorf("Categorize(%s) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}

func TestCategorizeToolResults(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Category
	}{
		{
			name: "explicit is_error",
			raw:  `{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t1","content":"boom","is_error":true}]}}`,
			want: FailedTool,
		},
		{
			name: "clean result",
			raw:  `{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t1","content":"ok","is_error":false}]}}`,
			want: Tool,
		},
		{
			name: "absent is_error",
			raw:  `{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t1","content":"ok"}]}}`,
			want: Tool,
		},
		{
			name: "error prefix overrides false flag",
			raw:  `{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t1","content":"Error: file not found","is_error":false}]}}`,
			want: FailedTool,
		},
		{
			name: "error prefix any case",
			raw:  `{"type":"user","message":{"content":[{"type":"tool_result","content":"ERROR: denied"}]}}`,
			want: FailedTool,
		},
		{
			name: "error prefix in fragments",
			raw:  `{"type":"user","message":{"content":[{"type":"tool_result","content":[{"type":"text","text":"error: exit 1"}]}]}}`,
			want: FailedTool,
		},
		{
			name: "error word not at start",
			raw:  `{"type":"user","message":{"content":[{"type":"tool_result","content":"no error: fine"}]}}`,
			want: Tool,
		},
		{
			name: "non-null error field",
			raw:  `{"type":"user","message":{"content":[{"type":"tool_result","content":"ok","error":"timeout"}]}}`,
			want: FailedTool,
		},
		{
			name: "null error field",
			raw:  `{"type":"user","message":{"content":[{"type":"tool_result","content":"ok","error":null}]}}`,
			want: Tool,
		},
		{
			name: "one failure among many",
			raw:  `{"type":"user","message":{"content":[{"type":"tool_result","content":"ok"},{"type":"tool_result","content":"fine","is_error":true}]}}`,
			want: FailedTool,
		},
		{
			name: "text alongside result",
			raw:  `{"type":"user","message":{"content":[{"type":"text","text":"Error: typed by user"},{"type":"tool_result","content":"ok"}]}}`,
			want: Tool,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Categorize(decode(t, tc.raw)); got != tc.want {
				t.Fatalf("Categorize = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories() {
		got, err := ParseCategory(string(c))
		if err != nil || got != c {
			t.Fatalf("ParseCategory(%q) = %q, %v", c, got, err)
		}
	}
	if got, err := ParseCategory(" Failed "); err != nil || got != FailedTool {
		t.Fatalf("ParseCategory alias failed: %q, %v", got, err)
	}
	if _, err := ParseCategory("bogus"); err == nil {
		t.Fatal("expected error for unknown category")
	}
}

// genRecordJSON draws loosely-shaped records, including ones with wrong field types.
func genRecordJSON(t *rapid.T) string {
	kind := rapid.SampledFrom([]string{`"system"`, `"assistant"`, `"user"`, `"tool"`, `"result"`, `"other"`, `7`, `null`}).Draw(t, "kind")
	item := rapid.SampledFrom([]string{
		`{"type":"text","text":"hello"}`,
		`{"type":"tool_use","id":"t1","name":"Read","input":{"path":"/a"}}`,
		`{"type":"tool_result","tool_use_id":"t1","content":"ok"}`,
		`{"type":"tool_result","tool_use_id":"t1","content":"Error: nope"}`,
		`{"type":"tool_result","tool_use_id":"t1","content":[{"type":"text","text":"x"}],"is_error":true}`,
		`{"type":"thinking","thinking":"hmm"}`,
		`3`,
		`"bare"`,
	}).Draw(t, "item")
	message := rapid.SampledFrom([]string{
		fmt.Sprintf(`{"content":[%s]}`, item),
		`{"content":"plain"}`,
		`"not an object"`,
		`null`,
	}).Draw(t, "message")
	return fmt.Sprintf(`{"type":%s,"message":%s}`, kind, message)
}

func TestCategorizeTotalAndDeterministic(t *testing.T) {
	valid := map[Category]bool{}
	for _, c := range Categories() {
		valid[c] = true
	}

	rapid.Check(t, func(t *rapid.T) {
		rec := record.Decode(json.RawMessage(genRecordJSON(t)))
		first := Categorize(rec)
		if !valid[first] {
			t.Fatalf("category %q is not one of the five categories", first)
		}
		if again := Categorize(rec); again != first {
			t.Fatalf("Categorize not deterministic: %s then %s", first, again)
		}
	})
}
