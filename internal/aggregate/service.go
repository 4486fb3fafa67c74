package aggregate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/dvloznov/bookkeeper/internal/domain"
)

const (
	reportCacheExpiration = 15 * time.Minute
	reportCacheCleanup    = 30 * time.Minute
	maxRecomputeAttempts  = 3
)

// Source provides an immutable snapshot of the transaction collection along
// with a monotonically increasing version.
type Source interface {
	Snapshot() ([]domain.Transaction, uint64)
	Version() uint64
}

// Service wraps the engine with memoization and the single-in-flight rules the
// dashboards rely on: duplicate requests for the same collection coalesce on
// one computation, and a pass whose input moved underneath it is discarded and
// rerun against the fresh snapshot rather than merged.
type Service struct {
	source Source
	engine *Engine
	memo   *cache.Cache

	mu      sync.Mutex
	pending map[string]chan struct{}
}

// NewService creates a report service over the given source.
func NewService(source Source) *Service {
	return &Service{
		source:  source,
		engine:  NewEngine(),
		memo:    cache.New(reportCacheExpiration, reportCacheCleanup),
		pending: make(map[string]chan struct{}),
	}
}

// Report returns the aggregation report for the current collection snapshot.
// Results are memoized on a fingerprint of the collection contents.
func (s *Service) Report() (*Report, error) {
	for attempt := 0; attempt < maxRecomputeAttempts; attempt++ {
		txs, version := s.source.Snapshot()
		key := Fingerprint(txs)

		if cached, found := s.memo.Get(key); found {
			return cached.(*Report), nil
		}

		if done := s.claim(key); done != nil {
			// Another pass is computing this exact collection; wait for it and
			// pick up its memoized result.
			<-done
			if cached, found := s.memo.Get(key); found {
				return cached.(*Report), nil
			}
			continue
		}

		report, err := s.engine.Compute(txs)
		if err != nil {
			s.release(key)
			return nil, err
		}

		if s.source.Version() != version {
			// The collection changed while we were computing. Discard the
			// stale result and rerun against the new snapshot.
			s.release(key)
			continue
		}

		// Memoize before waking waiters so they find the result on their
		// cache recheck instead of recomputing it.
		s.memo.Set(key, report, cache.DefaultExpiration)
		s.release(key)
		return report, nil
	}

	// The collection kept changing under us; compute once more without
	// memoizing so the caller still gets a consistent answer.
	txs, _ := s.source.Snapshot()
	return s.engine.Compute(txs)
}

// claim marks the key as in flight. It returns nil when this caller owns the
// computation, or the channel to wait on when another caller does.
func (s *Service) claim(key string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if done, ok := s.pending[key]; ok {
		return done
	}
	s.pending[key] = make(chan struct{})
	return nil
}

func (s *Service) release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if done, ok := s.pending[key]; ok {
		close(done)
		delete(s.pending, key)
	}
}

// Fingerprint hashes the identity-bearing fields of a collection. Two
// snapshots with the same fingerprint produce the same report.
func Fingerprint(txs []domain.Transaction) string {
	h := sha256.New()
	for i := range txs {
		t := &txs[i]
		fmt.Fprintf(h, "%s|%s|%g|%s\n", t.ID, t.Type, t.Amount, t.Date.Format("2006-01-02"))
	}
	return hex.EncodeToString(h.Sum(nil))
}
