package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"sessionview/internal/classify"
	"sessionview/internal/record"
)

const sample = `[
	{"type":"system","subtype":"init","cwd":"/repo","model":"claude-sonnet"},
	{"type":"user","message":{"content":"Please READ the config"}},
	{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t1","name":"read_file","input":{"path":"/etc/Config.toml"}}]}},
	{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t1","content":"Error: file not found"}]}},
	{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t2","name":"bash","input":{"cmd":"ls"}}]}},
	{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t2","content":"a\nb"}]}},
	{"type":"tool","content":"legacy"},
	{"type":"result","duration_ms":1000,"total_cost_usd":0.5}
]`

func mustParse(t *testing.T) []record.Record {
	t.Helper()
	records, err := record.Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	return records
}

func TestApplyAllReturnsEverythingInOrder(t *testing.T) {
	records := mustParse(t)
	got := Apply(records, NewState())
	if len(got) != len(records) {
		t.Fatalf("expected %d records, got %d", len(records), len(got))
	}
	for i := range records {
		if string(got[i].Raw) != string(records[i].Raw) {
			t.Fatalf("record %d out of order", i)
		}
	}
}

func TestApplyCategoryFilter(t *testing.T) {
	records := mustParse(t)

	cases := map[classify.Category]int{
		classify.System:     2,
		classify.User:       1,
		classify.Assistant:  2,
		classify.Tool:       2,
		classify.FailedTool: 1,
	}
	for category, want := range cases {
		got := Apply(records, NewState().WithFilter(category))
		if len(got) != want {
			t.Errorf("filter %s: expected %d records, got %d", category, want, len(got))
		}
		for _, rec := range got {
			if classify.Categorize(rec) != category {
				t.Errorf("filter %s returned a %s record", category, classify.Categorize(rec))
			}
		}
	}
}

func TestApplySearchIsCaseInsensitiveOverNestedInput(t *testing.T) {
	records := mustParse(t)

	got := Apply(records, NewState().WithSearch("config.TOML"))
	if len(got) != 1 || got[0].Type != record.KindAssistant {
		t.Fatalf("expected the read_file invocation, got %d records", len(got))
	}

	got = Apply(records, NewState().WithSearch("read"))
	if len(got) != 2 {
		t.Fatalf("expected prompt and invocation to match 'read', got %d", len(got))
	}
}

func TestApplySearchMatchesSerializedForm(t *testing.T) {
	records := mustParse(t)

	got := Apply(records, NewState().WithSearch(`"tool_use_id":"t2"`))
	if len(got) != 1 {
		t.Fatalf("expected compact JSON search to match one record, got %d", len(got))
	}
}

func TestApplySearchResolvesStringEscapes(t *testing.T) {
	records, err := record.Parse([]byte(`[
		{"type":"user","message":{"content":"caf\u00e9 au lait"}},
		{"type":"user","message":{"content":"see a\/b"}},
		{"type":"user","message":{"content":"\u003cdiv\u003e"}}
	]`))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	for _, tc := range []struct {
		term string
		want int
	}{
		{term: "café", want: 1},
		{term: "CAFÉ", want: 1},
		{term: "a/b", want: 1},
		{term: "<div>", want: 1},
		{term: `\u00e9`, want: 0},
	} {
		if got := Apply(records, NewState().WithSearch(tc.term)); len(got) != tc.want {
			t.Fatalf("search %q matched %d records, want %d", tc.term, len(got), tc.want)
		}
	}
}

func TestSearchTextKeepsKeyOrder(t *testing.T) {
	rec := record.Decode(json.RawMessage(`{ "z": [1, 2.50, true, null], "a": {"B": "x\/y"} }`))
	if got, want := SearchText(rec), `{"z":[1,2.50,true,null],"a":{"b":"x/y"}}`; got != want {
		t.Fatalf("SearchText = %s, want %s", got, want)
	}
}

func TestSessionLoadTextKeepsSetOnError(t *testing.T) {
	session := NewSession()
	if err := session.LoadText([]byte(sample)); err != nil {
		t.Fatalf("LoadText returned error: %v", err)
	}
	session.SetSearchTerm("read")
	records := len(session.Records())
	filtered := len(session.FilteredRecords())

	for _, bad := range []string{`{"type":"user"}`, `[{`} {
		if err := session.LoadText([]byte(bad)); err == nil {
			t.Fatalf("LoadText(%s) should fail", bad)
		}
		if len(session.Records()) != records || len(session.FilteredRecords()) != filtered {
			t.Fatalf("LoadText(%s) replaced the loaded set", bad)
		}
	}

	var shape *record.ShapeError
	if err := session.LoadText([]byte(`{"type":"user"}`)); !errors.As(err, &shape) {
		t.Fatalf("expected ShapeError, got %T", err)
	}
	var parse *record.ParseError
	if err := session.LoadText([]byte(`[{`)); !errors.As(err, &parse) {
		t.Fatalf("expected ParseError, got %T", err)
	}
}

func TestApplyFilterAndSearchCombine(t *testing.T) {
	records := mustParse(t)

	state := NewState().WithFilter(classify.Assistant).WithSearch("bash")
	got := Apply(records, state)
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}

	state = state.WithFilter(classify.User)
	if got := Apply(records, state); len(got) != 0 {
		t.Fatalf("expected no user records mentioning bash, got %d", len(got))
	}
}

func TestStateIsImmutable(t *testing.T) {
	base := NewState()
	filtered := base.WithFilter(classify.Tool).WithSearch("x")
	if base.Filter() != All || base.Search() != "" {
		t.Fatalf("base state changed: %+v", base)
	}
	if filtered.Filter() != classify.Tool || filtered.Search() != "x" {
		t.Fatalf("unexpected derived state: %+v", filtered)
	}
	if cleared := filtered.WithFilter(All); cleared.Filter() != All {
		t.Fatalf("All should clear the filter, got %s", cleared.Filter())
	}
}

func TestComputeStatsUsesDeclaredKind(t *testing.T) {
	stats := ComputeStats(mustParse(t))
	want := Stats{Total: 8, Assistant: 2, System: 1, Tool: 1, User: 3}
	if stats != want {
		t.Fatalf("unexpected stats: %+v, want %+v", stats, want)
	}
}

func TestCountCategories(t *testing.T) {
	counts := CountCategories(mustParse(t))
	want := CategoryCounts{
		classify.System:     2,
		classify.Assistant:  2,
		classify.Tool:       2,
		classify.FailedTool: 1,
		classify.User:       1,
	}
	for category, n := range want {
		if counts[category] != n {
			t.Errorf("category %s: expected %d, got %d", category, n, counts[category])
		}
	}

	empty := CountCategories(nil)
	if len(empty) != len(classify.Categories()) {
		t.Fatalf("expected every category present, got %v", empty)
	}
}

func genRecords(t *rapid.T) []record.Record {
	kinds := []string{"system", "assistant", "user", "tool", "result", "mystery"}
	words := []string{"alpha", "Beta", "GAMMA", "delta"}
	n := rapid.IntRange(0, 20).Draw(t, "n")
	records := make([]record.Record, 0, n)
	for i := 0; i < n; i++ {
		kind := rapid.SampledFrom(kinds).Draw(t, "kind")
		word := rapid.SampledFrom(words).Draw(t, "word")
		var raw string
		switch rapid.IntRange(0, 3).Draw(t, "shape") {
		case 0:
			raw = fmt.Sprintf(`{"type":%q,"message":{"content":%q}}`, kind, word)
		case 1:
			raw = fmt.Sprintf(`{"type":%q,"message":{"content":[{"type":"tool_result","tool_use_id":"t%d","content":%q}]}}`, kind, i, word)
		case 2:
			raw = fmt.Sprintf(`{"type":%q,"message":{"content":[{"type":"tool_use","id":"t%d","name":%q,"input":{"q":%q}}]}}`, kind, i, word, word)
		default:
			raw = fmt.Sprintf(`[%q]`, word)
		}
		records = append(records, record.Decode(json.RawMessage(raw)))
	}
	return records
}

func genState(t *rapid.T) State {
	filters := []classify.Category{All, classify.System, classify.Assistant, classify.Tool, classify.FailedTool, classify.User}
	search := rapid.SampledFrom([]string{"", "alpha", "BETA", "gam", "tool_use", "zzz"}).Draw(t, "search")
	return NewState().WithFilter(rapid.SampledFrom(filters).Draw(t, "filter")).WithSearch(search)
}

func TestApplyProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		records := genRecords(t)
		state := genState(t)

		once := Apply(records, state)
		twice := Apply(once, state)
		if len(once) != len(twice) {
			t.Fatalf("Apply not idempotent: %d then %d", len(once), len(twice))
		}

		// Output is an order-preserving subsequence of the input.
		j := 0
		for _, rec := range records {
			if j < len(once) && string(once[j].Raw) == string(rec.Raw) && Matches(rec, state) {
				j++
			}
		}
		if j != len(once) {
			t.Fatalf("Apply output is not an ordered subsequence of the input")
		}

		if all := Apply(records, NewState()); len(all) != len(records) {
			t.Fatalf("empty state dropped records: %d of %d", len(all), len(records))
		}
	})
}

func TestStatsProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		records := genRecords(t)
		stats := ComputeStats(records)
		if stats.Total != len(records) {
			t.Fatalf("Total %d != %d records", stats.Total, len(records))
		}
		if sum := stats.Assistant + stats.System + stats.Tool + stats.User; sum > stats.Total {
			t.Fatalf("per-kind sum %d exceeds total %d", sum, stats.Total)
		}

		sum := 0
		for _, n := range CountCategories(records) {
			sum += n
		}
		if sum != len(records) {
			t.Fatalf("category counts sum %d != %d records", sum, len(records))
		}
	})
}

func TestSessionMatchesApply(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		records := genRecords(t)
		state := genState(t)

		session := NewSession()
		session.Load(records)
		session.SetState(state)

		want := Apply(records, state)
		got := session.FilteredRecords()
		if len(got) != len(want) {
			t.Fatalf("session view has %d records, Apply has %d", len(got), len(want))
		}
		for i := range want {
			if string(got[i].Raw) != string(want[i].Raw) {
				t.Fatalf("record %d differs between session and Apply", i)
			}
		}
	})
}
