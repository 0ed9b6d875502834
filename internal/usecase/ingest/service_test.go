package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	domdoc "github.com/kailas-cloud/corpintel/internal/domain/document"
)

// --- Mocks ---

type mockCorpus struct {
	batches [][]domdoc.Document
	failOn  int // 1-based batch number that fails; 0 = never
}

func (m *mockCorpus) Add(_ context.Context, docs []domdoc.Document) ([]string, error) {
	m.batches = append(m.batches, docs)
	if m.failOn == len(m.batches) {
		return nil, errors.New("store unavailable")
	}
	ids := make([]string, len(docs))
	for i := range docs {
		ids[i] = docs[i].ID()
	}
	return ids, nil
}

// --- Tests ---

func TestReadJSONL(t *testing.T) {
	in := `{"id": "d1", "content": "欣强电子撤否原因", "metadata": {"company_name": "欣强电子", "timestamp": 1700000000}}

not json
{"content": "第二段", "metadata": {"document_type": "财务报告", "audited": true, "tags": ["a", "b"]}}
`
	records, failed, err := ReadJSONL(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 || records[0].Line != 1 || records[1].Line != 4 {
		t.Fatalf("records = %+v", records)
	}
	if len(failed) != 1 || failed[0].Line != 3 || failed[0].Status != StatusError {
		t.Fatalf("failed = %+v", failed)
	}

	doc, err := records[0].Document()
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	md := doc.Metadata()
	if md.Entity() != "欣强电子" {
		t.Errorf("entity = %q", md.Entity())
	}
	if ts, ok := md.Numeric("timestamp"); !ok || ts != 1700000000 {
		t.Errorf("timestamp = %v", ts)
	}

	doc, err = records[1].Document()
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if doc.ID() == "" {
		t.Error("missing ID should be generated")
	}
	if doc.Metadata().Tag("audited") != "true" || doc.Metadata().Tag("tags") != `["a","b"]` {
		t.Errorf("tags = %v", doc.Metadata().Tags)
	}
}

func TestIngest(t *testing.T) {
	tests := []struct {
		name       string
		records    []Record
		batchSize  int
		failOn     int
		wantAdded  int
		wantFailed int
		wantCalls  int
	}{
		{
			name: "all valid",
			records: []Record{
				{ID: "a", Content: "一"}, {ID: "b", Content: "二"}, {ID: "c", Content: "三"},
			},
			batchSize: 2,
			wantAdded: 3,
			wantCalls: 2,
		},
		{
			name: "invalid records are skipped",
			records: []Record{
				{ID: "a", Content: "一"}, {ID: "bad id!", Content: "二"}, {ID: "c", Content: "  "},
			},
			batchSize:  10,
			wantAdded:  1,
			wantFailed: 2,
			wantCalls:  1,
		},
		{
			name: "failed batch fails only its records",
			records: []Record{
				{ID: "a", Content: "一"}, {ID: "b", Content: "二"}, {ID: "c", Content: "三"},
			},
			batchSize:  2,
			failOn:     1,
			wantAdded:  1,
			wantFailed: 2,
			wantCalls:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mc := &mockCorpus{failOn: tt.failOn}
			rep := New(mc).WithMaxBatchSize(tt.batchSize).Ingest(context.Background(), tt.records)

			if rep.Added != tt.wantAdded || rep.Failed != tt.wantFailed {
				t.Errorf("added=%d failed=%d, want %d/%d", rep.Added, rep.Failed, tt.wantAdded, tt.wantFailed)
			}
			if len(rep.Results) != len(tt.records) {
				t.Errorf("expected one result per record, got %d", len(rep.Results))
			}
			if len(mc.batches) != tt.wantCalls {
				t.Errorf("corpus calls = %d, want %d", len(mc.batches), tt.wantCalls)
			}
		})
	}
}
