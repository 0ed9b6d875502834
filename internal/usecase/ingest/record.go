package ingest

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"

	domdoc "github.com/kailas-cloud/corpintel/internal/domain/document"
)

const maxLineBytes = 1 << 20

// Record is one ingestion input line.
type Record struct {
	ID       string         `json:"id,omitempty"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`

	// Line is the 1-based source line, 0 when not read from a file.
	Line int `json:"-"`
}

// Document validates the record. Strings and booleans become tags, numbers
// become numerics, anything else is stored as a JSON tag. A missing ID gets
// a UUID.
func (r Record) Document() (domdoc.Document, error) {
	id := strings.TrimSpace(r.ID)
	if id == "" {
		id = uuid.NewString()
	}

	md := domdoc.Metadata{Tags: map[string]string{}, Numerics: map[string]float64{}}
	for k, v := range r.Metadata {
		switch t := v.(type) {
		case nil:
		case string:
			md.Tags[k] = t
		case bool:
			md.Tags[k] = strconv.FormatBool(t)
		case float64:
			md.Numerics[k] = t
		case json.Number:
			f, err := t.Float64()
			if err != nil {
				return domdoc.Document{}, fmt.Errorf("metadata %s: %w", k, err)
			}
			md.Numerics[k] = f
		default:
			b, err := json.Marshal(t)
			if err != nil {
				return domdoc.Document{}, fmt.Errorf("metadata %s: %w", k, err)
			}
			md.Tags[k] = string(b)
		}
	}
	return domdoc.New(id, r.Content, md)
}

// ReadJSONL decodes one record per non-blank line. Malformed lines are
// reported as failed results and skipped; only read errors abort.
func ReadJSONL(r io.Reader) ([]Record, []Result, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var records []Record
	var failed []Result
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			failed = append(failed, newError(line, "", fmt.Errorf("decode line: %w", err)))
			continue
		}
		rec.Line = line
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, nil, fmt.Errorf("line %d exceeds %d bytes: %w", line+1, maxLineBytes, err)
		}
		return nil, nil, fmt.Errorf("read jsonl: %w", err)
	}
	return records, failed, nil
}
