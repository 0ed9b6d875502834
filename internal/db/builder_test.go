package db

import "testing"

func TestIndexBuilder_CorpusIndex(t *testing.T) {
	idx, err := NewIndex("corpus").
		Prefix("corpus:").
		Tag("company_name", "document_type").
		Numeric("timestamp").
		Text("__content").
		VectorHNSW("__vector", 1024, DistanceCosine, 16, 200).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(idx.Fields) != 5 {
		t.Fatalf("fields count = %d, want 5", len(idx.Fields))
	}
	if idx.Fields[0].Type != IndexFieldTag || idx.Fields[1].Type != IndexFieldTag {
		t.Errorf("first two fields must be TAG, got %+v", idx.Fields[:2])
	}
	if idx.Fields[0].TagSeparator != "|" {
		t.Errorf("tag separator = %q, want |", idx.Fields[0].TagSeparator)
	}
	v := idx.Fields[4]
	if v.VectorDim != 1024 || v.VectorDistance != DistanceCosine || v.VectorM != 16 {
		t.Errorf("vector field = %+v", v)
	}
}

func TestIndexBuilder_Validation(t *testing.T) {
	tests := []struct {
		name string
		b    *IndexBuilder
	}{
		{"no name", NewIndex("").Tag("a")},
		{"bad name", NewIndex("bad name").Tag("a")},
		{"no fields", NewIndex("idx")},
		{"duplicate", NewIndex("idx").Tag("a").Numeric("a")},
		{"zero dim", NewIndex("idx").VectorHNSW("v", 0, DistanceCosine, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.b.Build(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestIsValidIdentifier(t *testing.T) {
	valid := []string{"corpus", "corpus:v2", "a_b-c"}
	for _, s := range valid {
		if !IsValidIdentifier(s) {
			t.Errorf("%q should be valid", s)
		}
	}
	invalid := []string{"", "with space", "语料"}
	for _, s := range invalid {
		if IsValidIdentifier(s) {
			t.Errorf("%q should be invalid", s)
		}
	}
}
