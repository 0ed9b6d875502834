package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockDBPinger struct {
	err error
}

func (m *mockDBPinger) Ping(_ context.Context) error { return m.err }

type mockCounter struct {
	n   int
	err error
}

func (m *mockCounter) Count(_ context.Context) (int, error) { return m.n, m.err }

type mockEmbeddingChecker struct {
	err error
}

func (m *mockEmbeddingChecker) HealthCheck(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck(t *testing.T) {
	tests := []struct {
		name      string
		db        error
		count     error
		embedding EmbeddingChecker
		want      Status
		wantDocs  int
		wantCheck map[string]CheckResult
	}{
		{
			name:      "all healthy",
			embedding: &mockEmbeddingChecker{},
			want:      Healthy,
			wantDocs:  42,
			wantCheck: map[string]CheckResult{"database": CheckOK, "corpus": CheckOK, "embedding": CheckOK},
		},
		{
			name:      "db down",
			db:        errors.New("conn refused"),
			embedding: &mockEmbeddingChecker{},
			want:      Degraded,
			wantDocs:  42,
			wantCheck: map[string]CheckResult{"database": CheckError, "corpus": CheckOK, "embedding": CheckOK},
		},
		{
			name:      "count fails",
			count:     errors.New("no index"),
			want:      Degraded,
			wantDocs:  -1,
			wantCheck: map[string]CheckResult{"database": CheckOK, "corpus": CheckError},
		},
		{
			name:      "embedding down",
			embedding: &mockEmbeddingChecker{err: errors.New("timeout")},
			want:      Degraded,
			wantDocs:  42,
			wantCheck: map[string]CheckResult{"database": CheckOK, "corpus": CheckOK, "embedding": CheckError},
		},
		{
			name:      "no embedding checker",
			want:      Healthy,
			wantDocs:  42,
			wantCheck: map[string]CheckResult{"database": CheckOK, "corpus": CheckOK},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(&mockDBPinger{err: tt.db}, &mockCounter{n: 42, err: tt.count}, tt.embedding)
			r := svc.Check(context.Background())

			if r.Status != tt.want {
				t.Errorf("status = %q, want %q", r.Status, tt.want)
			}
			if r.Documents != tt.wantDocs {
				t.Errorf("documents = %d, want %d", r.Documents, tt.wantDocs)
			}
			if len(r.Checks) != len(tt.wantCheck) {
				t.Errorf("checks = %v, want %v", r.Checks, tt.wantCheck)
			}
			for k, v := range tt.wantCheck {
				if r.Checks[k] != v {
					t.Errorf("check %s = %q, want %q", k, r.Checks[k], v)
				}
			}
		})
	}
}
