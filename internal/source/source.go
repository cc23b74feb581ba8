// Package source reads session transcripts from disk or stdin.
//
// Two layouts are accepted: a single JSON array of records, or JSON Lines with
// one record per line. The array form is strict: any syntax error fails the
// whole load. The line form skips lines that are not valid JSON and reports
// them as warnings.
package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"sessionview/internal/record"
)

// Stdin is the path that selects standard input.
const Stdin = "-"

// ErrEmpty is returned when the input holds no data at all.
var ErrEmpty = errors.New("empty input")

// LoadError reports a failure to load a transcript.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// LineError reports a line of a JSON Lines transcript that could not be decoded.
type LineError struct {
	Path string
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// Result holds the decoded records and non-fatal warnings.
type Result struct {
	Records  []record.Record
	Warnings []error
}

// Load reads the transcript at path, or stdin when path is "-".
func Load(path string) (Result, error) {
	if path == Stdin {
		return Read(os.Stdin, "stdin")
	}
	file, err := os.Open(path)
	if err != nil {
		return Result{}, &LoadError{Path: path, Err: err}
	}
	defer file.Close() //nolint:errcheck

	return Read(file, path)
}

// Read decodes a transcript from r. name is used in errors and warnings.
func Read(r io.Reader, name string) (Result, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	first, err := firstByte(reader)
	if errors.Is(err, io.EOF) {
		return Result{}, &LoadError{Path: name, Err: ErrEmpty}
	}
	if err != nil {
		return Result{}, &LoadError{Path: name, Err: err}
	}

	if first == '[' {
		data, err := io.ReadAll(reader)
		if err != nil {
			return Result{}, &LoadError{Path: name, Err: err}
		}
		records, err := record.Parse(data)
		if err != nil {
			return Result{}, &LoadError{Path: name, Err: err}
		}
		return Result{Records: records}, nil
	}

	return readLines(reader, name)
}

// Sniff reports whether data looks like a JSON array transcript.
func Sniff(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}

func readLines(r io.Reader, name string) (Result, error) {
	var result Result
	scanner := newScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		if !json.Valid(raw) {
			result.Warnings = append(result.Warnings, &LineError{Path: name, Line: line, Err: errors.New("invalid JSON")})
			continue
		}
		// The scanner reuses its buffer.
		owned := make([]byte, len(raw))
		copy(owned, raw)
		result.Records = append(result.Records, record.Decode(owned))
	}

	if err := scanner.Err(); err != nil {
		return result, &LoadError{Path: name, Err: fmt.Errorf("scan session: %w", err)}
	}
	return result, nil
}

func firstByte(r *bufio.Reader) (byte, error) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		if err := r.UnreadByte(); err != nil {
			return 0, err
		}
		return b, nil
	}
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	// Allow large payloads
	const maxCapacity = 8 * 1024 * 1024
	buf := make([]byte, 1024)
	scanner.Buffer(buf, maxCapacity)
	return scanner
}
