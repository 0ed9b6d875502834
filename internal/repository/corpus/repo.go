// Package corpus stores corpus passages as Redis hashes behind an HNSW
// cosine index and serves nearest-neighbor queries over them.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kailas-cloud/corpintel/internal/db"
	"github.com/kailas-cloud/corpintel/internal/domain"
	domdoc "github.com/kailas-cloud/corpintel/internal/domain/document"
	"github.com/kailas-cloud/corpintel/internal/domain/filter"
)

const delChunk = 500

// indexedTags are the metadata tags the index can filter on.
var indexedTags = []string{
	domdoc.FieldCompanyName,
	domdoc.FieldEntity,
	domdoc.FieldDocumentType,
	domdoc.FieldSource,
}

// store is the consumer interface for the corpus (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Repo implements the corpus collaborator over a Redis store.
type Repo struct {
	store store
	embed domain.Embedder
	cfg   domain.VectorConfig
	name  string
}

// New creates a corpus repository. name namespaces keys and the index.
func New(s store, embed domain.Embedder, cfg domain.VectorConfig, name string) *Repo {
	if name == "" {
		name = "corpus"
	}
	return &Repo{store: s, embed: embed, cfg: cfg, name: name}
}

// EnsureIndex creates the vector index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.indexName())
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.indexName(), err)
	}
	if exists {
		return nil
	}

	def, err := db.NewIndex(r.indexName()).
		Prefix(r.keyPrefix()).
		Tag(indexedTags...).
		Numeric(domdoc.FieldTimestamp).
		VectorHNSW(fieldVector, r.cfg.Dimensions, db.DistanceMetric(r.cfg.DistanceMetric), r.cfg.HNSWM, r.cfg.HNSWEFConstr).
		Build()
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", r.indexName(), err)
	}
	return nil
}

// Query embeds text and returns the topK nearest passages matching f.
// A missing index is an empty corpus.
func (r *Repo) Query(ctx context.Context, text string, topK int, f filter.Expression) ([]domdoc.Hit, error) {
	if topK <= 0 {
		return nil, nil
	}
	emb, err := r.embed.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:   r.indexName(),
		VectorField: fieldVector,
		Filters:     f,
		Vector:      emb.Embedding,
		K:           topK,
	})
	if err != nil {
		if isMissingIndex(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("search %s: %w", r.indexName(), err)
	}

	hits := make([]domdoc.Hit, 0, len(res.Entries))
	for _, e := range res.Entries {
		id := strings.TrimPrefix(e.Key, r.keyPrefix())
		hits = append(hits, domdoc.Hit{Document: parseHashFields(id, e.Fields), Distance: e.Distance})
	}
	return hits, nil
}

// Add embeds and stores documents, assigning UUIDs to documents without an
// ID. It returns the stored IDs in input order.
func (r *Repo) Add(ctx context.Context, docs []domdoc.Document) ([]string, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	if err := r.EnsureIndex(ctx); err != nil {
		return nil, err
	}

	texts := make([]string, len(docs))
	for i := range docs {
		texts[i] = docs[i].Content()
	}
	vecs, err := domain.EmbedAll(ctx, r.embed, texts, r.cfg.MaxBatchSize)
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}

	ids := make([]string, len(docs))
	items := make([]db.HashSetItem, len(docs))
	for i := range docs {
		ids[i] = docs[i].ID()
		if ids[i] == "" {
			ids[i] = uuid.NewString()
		}
		items[i] = db.HashSetItem{
			Key:    r.keyPrefix() + ids[i],
			Fields: buildHashFields(&docs[i], vecs.Embeddings[i]),
		}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return nil, fmt.Errorf("store documents: %w", err)
	}
	return ids, nil
}

// Count returns the number of indexed documents.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.indexName(), "*")
	if err != nil {
		if isMissingIndex(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("search count %s: %w", r.indexName(), err)
	}
	return n, nil
}

// Clear deletes every stored document. The index is kept.
func (r *Repo) Clear(ctx context.Context) error {
	keys, err := r.store.Scan(ctx, r.keyPrefix()+"*")
	if err != nil {
		return fmt.Errorf("scan %s: %w", r.keyPrefix(), err)
	}
	for start := 0; start < len(keys); start += delChunk {
		end := min(start+delChunk, len(keys))
		if err := r.store.Del(ctx, keys[start:end]...); err != nil {
			return fmt.Errorf("delete documents: %w", err)
		}
	}
	return nil
}

func (r *Repo) keyPrefix() string {
	return fmt.Sprintf("%s%s:doc:", domain.KeyPrefix, r.name)
}

func (r *Repo) indexName() string {
	return fmt.Sprintf("%s%s:idx", domain.KeyPrefix, r.name)
}

func isMissingIndex(err error) bool {
	if errors.Is(err, db.ErrIndexNotFound) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such index") || strings.Contains(msg, "unknown index name")
}
