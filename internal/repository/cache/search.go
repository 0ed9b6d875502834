package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/corpintel/internal/db"
	"github.com/kailas-cloud/corpintel/internal/domain"
	"github.com/kailas-cloud/corpintel/internal/domain/external"
)

var searchKeyPrefix = domain.KeyPrefix + "search_cache:"

// SearchKey hashes the fields that identify an external search.
func SearchKey(q external.Query) string {
	h := sha256.New()
	for _, part := range []string{q.Text, q.Entity, q.Scenario} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

type memoEntry struct {
	results []external.Result
	expires time.Time
}

// LocalMemo is an in-process search memo. Entries are only ever loaded or
// stored; an expired entry is replaced on the next store.
type LocalMemo struct {
	entries    sync.Map // key -> memoEntry
	ttl        time.Duration
	now        func() time.Time
	cacheTotal *prometheus.CounterVec
}

// NewLocalMemo creates an in-process memo. A zero ttl never expires.
func NewLocalMemo(ttl time.Duration, cacheTotal *prometheus.CounterVec) *LocalMemo {
	return &LocalMemo{ttl: ttl, now: time.Now, cacheTotal: cacheTotal}
}

// Get returns unexpired results for q.
func (m *LocalMemo) Get(_ context.Context, q external.Query) ([]external.Result, bool) {
	v, ok := m.entries.Load(SearchKey(q))
	if !ok {
		inc(m.cacheTotal, "miss")
		return nil, false
	}
	e := v.(memoEntry)
	if !e.expires.IsZero() && m.now().After(e.expires) {
		inc(m.cacheTotal, "miss")
		return nil, false
	}
	inc(m.cacheTotal, "hit")
	return e.results, true
}

// Set stores results for q.
func (m *LocalMemo) Set(_ context.Context, q external.Query, results []external.Result) {
	e := memoEntry{results: results}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	m.entries.Store(SearchKey(q), e)
}

// RedisMemo stores search results as JSON with a TTL.
type RedisMemo struct {
	store      kvStore
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// NewRedisMemo creates a key-value backed memo.
func NewRedisMemo(s kvStore, ttl time.Duration, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *RedisMemo {
	return &RedisMemo{store: s, ttl: ttl, cacheTotal: cacheTotal, logger: logger}
}

// Get returns cached results for q. Store failures count as misses.
func (m *RedisMemo) Get(ctx context.Context, q external.Query) ([]external.Result, bool) {
	key := searchKeyPrefix + SearchKey(q)
	data, err := m.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			m.logger.Warn("Failed to get cached search", zap.String("key", key), zap.Error(err))
		}
		inc(m.cacheTotal, "miss")
		return nil, false
	}

	var results []external.Result
	if err := json.Unmarshal(data, &results); err != nil {
		m.logger.Warn("Failed to parse cached search", zap.String("key", key), zap.Error(err))
		inc(m.cacheTotal, "miss")
		return nil, false
	}
	inc(m.cacheTotal, "hit")
	return results, true
}

// Set stores results for q. Failures are logged and dropped.
func (m *RedisMemo) Set(ctx context.Context, q external.Query, results []external.Result) {
	key := searchKeyPrefix + SearchKey(q)
	data, err := json.Marshal(results)
	if err != nil {
		m.logger.Warn("Failed to encode search results", zap.Error(err))
		return
	}
	if err := m.store.SetWithTTL(ctx, key, data, m.ttl); err != nil {
		m.logger.Warn("Failed to cache search", zap.String("key", key), zap.Error(err))
	}
}

func inc(cv *prometheus.CounterVec, result string) {
	if cv != nil {
		cv.WithLabelValues(result).Inc()
	}
}
