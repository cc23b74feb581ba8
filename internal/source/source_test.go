package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sessionview/internal/record"
)

func fixturePath(parts ...string) string {
	elems := append([]string{"..", "..", "testdata"}, parts...)
	return filepath.Join(elems...)
}

func TestLoadArray(t *testing.T) {
	res, err := Load(fixturePath("transcripts", "array.json"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(res.Records) != 5 {
		t.Fatalf("expected 5 records, got %d", len(res.Records))
	}
	if !res.Records[0].IsInit() {
		t.Fatalf("expected first record to be init, got %+v", res.Records[0])
	}
	if !res.Records[4].IsResult() {
		t.Fatalf("expected last record to be result, got %+v", res.Records[4])
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", res.Warnings)
	}
}

func TestLoadLinesSkipsInvalid(t *testing.T) {
	path := fixturePath("transcripts", "lines.jsonl")
	res, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(res.Records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(res.Records))
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", res.Warnings)
	}

	var lineErr *LineError
	if !errors.As(res.Warnings[0], &lineErr) {
		t.Fatalf("expected LineError, got %T", res.Warnings[0])
	}
	if lineErr.Line != 4 {
		t.Fatalf("expected warning on line 4, got %d", lineErr.Line)
	}
	if res.Records[2].Type != record.KindUser || !res.Records[2].HasToolResult() {
		t.Fatalf("unexpected last record: %+v", res.Records[2])
	}
}

func TestLoadTruncatedArrayFails(t *testing.T) {
	_, err := Load(fixturePath("transcripts", "truncated.json"))
	if err == nil {
		t.Fatalf("expected error for truncated array")
	}
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected LoadError, got %T", err)
	}
	var parseErr *record.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected wrapped ParseError, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(fixturePath("transcripts", "nope.json"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestReadEmpty(t *testing.T) {
	_, err := Read(strings.NewReader("  \n\t"), "blank")
	if !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestReadArrayWithLeadingWhitespace(t *testing.T) {
	res, err := Read(strings.NewReader("\n  [{\"type\":\"user\"}]"), "inline")
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if len(res.Records) != 1 || res.Records[0].Type != record.KindUser {
		t.Fatalf("unexpected records: %+v", res.Records)
	}
}

func TestReadSingleObjectIsOneLine(t *testing.T) {
	res, err := Read(strings.NewReader(`{"type":"user"}`), "obj")
	if err != nil || len(res.Records) != 1 {
		t.Fatalf("expected one line record, got %v, %v", res.Records, err)
	}
}

func TestSniff(t *testing.T) {
	if !Sniff([]byte("  [1]")) {
		t.Fatalf("expected array to be sniffed")
	}
	if Sniff([]byte(`{"a":1}`)) || Sniff(nil) {
		t.Fatalf("expected non-array input to be rejected")
	}
}

func TestWatchReportsWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.jsonl")
	if err := os.WriteFile(path, []byte("{}\n"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// Writes to other files in the directory are ignored; keep touching the
	// target until the watcher is registered and reports it.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-changed:
			cancel()
			if err := <-done; err != nil {
				t.Fatalf("Watch returned error: %v", err)
			}
			return
		case <-tick.C:
			_ = os.WriteFile(filepath.Join(dir, "other.jsonl"), []byte("{}\n"), 0o600)
			_ = os.WriteFile(path, []byte("{}\n{}\n"), 0o600)
		case <-deadline:
			t.Fatalf("no change reported")
		}
	}
}
