package correlate

import (
	"encoding/json"
	"testing"

	"sessionview/internal/record"
)

func mustParse(t *testing.T, raw string) []record.Record {
	t.Helper()
	records, err := record.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	return records
}

const sample = `[
	{"type":"assistant","message":{"content":[
		{"type":"text","text":"Reading"},
		{"type":"tool_use","id":"t1","name":"read_file","input":{"path":"README.md"}}
	]}},
	{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t1","content":"ok"}]}},
	{"type":"user","message":{"content":[{"type":"tool_use","id":"t9","name":"spoofed"}]}},
	{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t2","name":"bash","input":{"cmd":"ls"}}]}},
	{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t1","name":"read_file_again"}]}}
]`

func TestFindOriginatingToolUse(t *testing.T) {
	records := mustParse(t, sample)

	item, ok := FindOriginatingToolUse("t2", records)
	if !ok {
		t.Fatal("expected to find t2")
	}
	if item.Name != "bash" {
		t.Fatalf("unexpected tool name: %s", item.Name)
	}
	if got := record.Compact(item.Input); got != `{"cmd":"ls"}` {
		t.Fatalf("unexpected input: %s", got)
	}
}

func TestFindOriginatingToolUseReusedIDPrefersMostRecent(t *testing.T) {
	records := mustParse(t, sample)

	item, ok := FindOriginatingToolUse("t1", records)
	if !ok || item.Name != "read_file_again" {
		t.Fatalf("expected most recent t1 invocation, got %+v (found=%v)", item, ok)
	}
}

func TestFindOriginatingToolUseNotFound(t *testing.T) {
	records := mustParse(t, sample)

	for _, id := range []string{"missing", "", "t9"} {
		if _, ok := FindOriginatingToolUse(id, records); ok {
			t.Fatalf("expected no match for %q", id)
		}
	}
	if _, ok := FindOriginatingToolUse("t1", nil); ok {
		t.Fatal("expected no match on empty record set")
	}
}

func TestIndexMatchesLinearScan(t *testing.T) {
	records := mustParse(t, sample)
	records = append(records, record.Decode(json.RawMessage(`{"type":"assistant","message":"junk"}`)))
	idx := NewIndex(records)

	for _, id := range []string{"t1", "t2", "t9", "missing", ""} {
		want, wantOK := FindOriginatingToolUse(id, records)
		got, gotOK := idx.Lookup(id)
		if wantOK != gotOK {
			t.Fatalf("Lookup(%q) found=%v, scan found=%v", id, gotOK, wantOK)
		}
		if got.Name != want.Name || got.ID != want.ID {
			t.Fatalf("Lookup(%q) = %+v, scan = %+v", id, got, want)
		}
	}
	if idx.Len() != 2 {
		t.Fatalf("expected 2 indexed ids, got %d", idx.Len())
	}
}

func TestNilIndexLookup(t *testing.T) {
	var idx *Index
	if _, ok := idx.Lookup("t1"); ok {
		t.Fatal("nil index should never match")
	}
}
