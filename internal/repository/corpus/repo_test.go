package corpus

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/corpintel/internal/db"
	domdoc "github.com/kailas-cloud/corpintel/internal/domain/document"
	"github.com/kailas-cloud/corpintel/internal/domain/filter"
)

// --- EnsureIndex ---

func TestEnsureIndex_Creates(t *testing.T) {
	repo, ms, _ := newTestRepo(t)
	ms.indexExistsFn = func(_ context.Context, name string) (bool, error) {
		if name != "corpintel:test:idx" {
			t.Errorf("unexpected index: %s", name)
		}
		return false, nil
	}
	var def *db.IndexDefinition
	ms.createIndexFn = func(_ context.Context, d *db.IndexDefinition) error {
		def = d
		return nil
	}

	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def == nil {
		t.Fatal("expected CreateIndex call")
	}
	if len(def.Prefixes) != 1 || def.Prefixes[0] != "corpintel:test:doc:" {
		t.Errorf("prefixes = %v", def.Prefixes)
	}
	var vector *db.IndexField
	for i := range def.Fields {
		if def.Fields[i].Type == db.IndexFieldVector {
			vector = &def.Fields[i]
		}
	}
	if vector == nil || vector.VectorDim != 3 || vector.VectorDistance != db.DistanceCosine {
		t.Errorf("unexpected vector field: %+v", vector)
	}
}

func TestEnsureIndex_RaceIsNotAnError(t *testing.T) {
	repo, ms, _ := newTestRepo(t)
	ms.indexExistsFn = func(context.Context, string) (bool, error) { return false, nil }
	ms.createIndexFn = func(context.Context, *db.IndexDefinition) error { return db.ErrIndexExists }

	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- Query ---

func TestQuery_MapsHits(t *testing.T) {
	repo, ms, _ := newTestRepo(t)
	f, _ := filter.New(filter.Equal(domdoc.FieldCompanyName, "欣强电子"))

	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if q.K != 5 || q.IndexName != "corpintel:test:idx" || q.VectorField != "__vector" {
			t.Errorf("unexpected query: %+v", q)
		}
		if len(q.Filters.Must()) != 1 {
			t.Errorf("filter not passed through")
		}
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{{
			Key:      "corpintel:test:doc:d1",
			Distance: 0.15,
			Fields: map[string]string{
				"__content":      "欣强电子撤否原因",
				"company_name":   "600519",
				"timestamp":      "1700000000",
				"__numeric_keys": "timestamp",
			},
		}}}, nil
	}

	hits, err := repo.Query(context.Background(), "撤否原因", 5, f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	h := hits[0]
	if h.Document.ID() != "d1" || h.Distance != 0.15 {
		t.Errorf("unexpected hit: id=%s distance=%f", h.Document.ID(), h.Distance)
	}
	md := h.Document.Metadata()
	if md.Entity() != "600519" {
		t.Errorf("numeric-looking tag must stay a tag, got %q", md.Entity())
	}
	if ts, ok := md.Numeric("timestamp"); !ok || ts != 1700000000 {
		t.Errorf("timestamp = %v, %v", ts, ok)
	}
}

func TestQuery_MissingIndexIsEmpty(t *testing.T) {
	repo, ms, _ := newTestRepo(t)
	ms.searchKNNFn = func(context.Context, *db.KNNQuery) (*db.SearchResult, error) {
		return nil, &db.Error{Op: db.OpSearch, Err: errors.New("corpintel:test:idx: no such index")}
	}

	hits, err := repo.Query(context.Background(), "q", 5, filter.Expression{})
	if err != nil || len(hits) != 0 {
		t.Fatalf("expected empty result, got %v, %v", hits, err)
	}
}

func TestQuery_EmbedError(t *testing.T) {
	repo, _, me := newTestRepo(t)
	me.err = errors.New("provider down")

	if _, err := repo.Query(context.Background(), "q", 5, filter.Expression{}); err == nil {
		t.Fatal("expected error")
	}
}

// --- Add ---

func TestAdd_AssignsIDsAndStores(t *testing.T) {
	repo, ms, me := newTestRepo(t)
	md := domdoc.Metadata{
		Tags:     map[string]string{domdoc.FieldCompanyName: "欣强电子"},
		Numerics: map[string]float64{domdoc.FieldTimestamp: 1700000000},
	}
	withID, err := domdoc.New("doc-1", "第一段", md)
	if err != nil {
		t.Fatal(err)
	}
	anon := domdoc.Reconstruct("", "第二段", domdoc.Metadata{})

	var items []db.HashSetItem
	ms.hsetMultiFn = func(_ context.Context, in []db.HashSetItem) error {
		items = in
		return nil
	}

	ids, err := repo.Add(context.Background(), []domdoc.Document{withID, anon})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 || ids[0] != "doc-1" || ids[1] == "" {
		t.Fatalf("ids = %v", ids)
	}
	if me.calls != 2 {
		t.Errorf("expected 2 embed calls, got %d", me.calls)
	}
	if len(items) != 2 || items[0].Key != "corpintel:test:doc:doc-1" {
		t.Fatalf("items = %+v", items)
	}
	f := items[0].Fields
	if f["__content"] != "第一段" || f["company_name"] != "欣强电子" || f["__numeric_keys"] != "timestamp" {
		t.Errorf("fields = %v", f)
	}
	if len(f["__vector"]) != 12 {
		t.Errorf("vector blob length = %d", len(f["__vector"]))
	}
}

func TestAdd_StoreError(t *testing.T) {
	repo, ms, _ := newTestRepo(t)
	ms.hsetMultiFn = func(context.Context, []db.HashSetItem) error { return errors.New("OOM") }

	_, err := repo.Add(context.Background(), []domdoc.Document{domdoc.Reconstruct("a", "x", domdoc.Metadata{})})
	if err == nil {
		t.Fatal("expected error")
	}
}

// --- Count / Clear ---

func TestCount(t *testing.T) {
	repo, ms, _ := newTestRepo(t)
	ms.searchCountFn = func(_ context.Context, index, query string) (int, error) {
		if index != "corpintel:test:idx" || query != "*" {
			t.Errorf("unexpected args %s %s", index, query)
		}
		return 7, nil
	}
	n, err := repo.Count(context.Background())
	if err != nil || n != 7 {
		t.Fatalf("Count = %d, %v", n, err)
	}

	ms.searchCountFn = func(context.Context, string, string) (int, error) { return 0, db.ErrIndexNotFound }
	n, err = repo.Count(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("missing index: Count = %d, %v", n, err)
	}
}

func TestClear_DeletesInChunks(t *testing.T) {
	repo, ms, _ := newTestRepo(t)
	keys := make([]string, delChunk+1)
	for i := range keys {
		keys[i] = "k"
	}
	ms.scanFn = func(_ context.Context, pattern string) ([]string, error) {
		if pattern != "corpintel:test:doc:*" {
			t.Errorf("unexpected pattern %s", pattern)
		}
		return keys, nil
	}
	var batches []int
	ms.delFn = func(_ context.Context, ks ...string) error {
		batches = append(batches, len(ks))
		return nil
	}

	if err := repo.Clear(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batches) != 2 || batches[0] != delChunk || batches[1] != 1 {
		t.Errorf("batches = %v", batches)
	}
}
