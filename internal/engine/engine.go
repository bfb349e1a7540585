// Package engine exposes the answer engine API consumed by the transport
// layer: lookup, learning and feedback over the knowledge base.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/onec-assist/answer-engine/internal/cache"
	"github.com/onec-assist/answer-engine/internal/feedback"
	"github.com/onec-assist/answer-engine/internal/index"
	"github.com/onec-assist/answer-engine/internal/match"
	"github.com/onec-assist/answer-engine/internal/observability"
	"github.com/onec-assist/answer-engine/internal/storage"
)

const cacheKeyPrefix = "match:"

// MatchResult is what a lookup returns. Entry is nil on a miss; Confidence is
// in [0, 1]; Tier names the pipeline stage that produced the match.
type MatchResult struct {
	Entry      *storage.KnowledgeEntry `json:"entry,omitempty"`
	Confidence float64                 `json:"confidence"`
	Tier       match.Tier              `json:"tier"`
}

// Matched reports whether the result carries an entry.
func (r MatchResult) Matched() bool {
	return r.Entry != nil
}

// Config holds engine construction options.
type Config struct {
	Match        match.Config
	CacheTTL     time.Duration
	SnapshotPath string
}

// Engine orchestrates the knowledge store, the inverted index, the match
// pipeline, the feedback log and the result cache. One mutex guards (store,
// index) as a unit: a reader never observes a store paired with an index
// built from a different generation.
type Engine struct {
	mu sync.RWMutex

	store    *storage.Store
	idx      *index.Inverted
	pipeline *match.Pipeline
	buttons  *match.ButtonRouter
	feedback *feedback.Store
	learner  *feedback.Learner
	results  cache.Client
	logger   *observability.Logger

	cacheTTL     time.Duration
	snapshotPath string

	tierCounts [5]atomic.Int64 // exact, indexed_fuzzy, global_fuzzy, relaxed, none
	cacheHits  atomic.Int64
	cacheMiss  atomic.Int64
}

// New builds an engine over a loaded store. The index comes from the snapshot
// when one exists for the store's current generation; otherwise it is rebuilt
// from scratch.
func New(cfg Config, store *storage.Store, fb *feedback.Store, results cache.Client, logger *observability.Logger) *Engine {
	if results == nil {
		results = cache.NewNopClient()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}

	log := logger.WithComponent("engine")

	idx := loadOrRebuildIndex(cfg.SnapshotPath, store, log)
	e := &Engine{
		store:        store,
		idx:          idx,
		pipeline:     match.NewPipeline(cfg.Match, logger),
		buttons:      match.NewButtonRouter(),
		feedback:     fb,
		results:      results,
		logger:       log,
		cacheTTL:     cfg.CacheTTL,
		snapshotPath: cfg.SnapshotPath,
	}
	e.learner = feedback.NewLearner(store, idx, logger)
	return e
}

func loadOrRebuildIndex(snapshotPath string, store *storage.Store, log *observability.Logger) *index.Inverted {
	if snapshotPath != "" {
		idx, err := index.LoadSnapshot(snapshotPath, store.Generation())
		if err == nil && idx.Len() == store.Len() {
			log.Info().Int("entries", idx.Len()).Msg("index restored from snapshot")
			return idx
		}
		if err != nil {
			log.Debug().Err(err).Msg("index snapshot unusable, rebuilding")
		}
	}

	idx := index.New()
	idx.Rebuild(store.Entries(), store.Generation())
	log.Info().Int("entries", idx.Len()).Msg("index rebuilt from store")
	return idx
}

// FindBestMatch runs the tiered pipeline for a free-text query, optionally
// restricted to one entry source. Deterministic for a fixed corpus.
func (e *Engine) FindBestMatch(ctx context.Context, query string, sourceFilter storage.Source) MatchResult {
	q := match.ParseQuery(query)
	key := e.cacheKey(q.Norm, string(sourceFilter), "plain")

	if res, ok := e.cachedResult(ctx, key); ok {
		return res
	}

	e.mu.RLock()
	result := e.pipeline.Best(q, e.corpus(), match.Options{SourceFilter: sourceFilter})
	e.mu.RUnlock()

	return e.finish(ctx, key, q, result)
}

// Answer is the button-aware lookup the chat transport calls: button inputs
// are first matched against their own source, then unscoped, then through the
// normal free-text pipeline.
func (e *Engine) Answer(ctx context.Context, text string) MatchResult {
	cls := e.buttons.Classify(text)
	if !cls.IsButton {
		return e.FindBestMatch(ctx, text, "")
	}

	q := match.ParseQuery(cls.Text)
	key := e.cacheKey(q.Norm, string(cls.Source), "button")

	if res, ok := e.cachedResult(ctx, key); ok {
		return res
	}

	e.mu.RLock()
	result := e.pipeline.BestButton(q, e.corpus(), cls.Source)
	e.mu.RUnlock()

	return e.finish(ctx, key, q, result)
}

// AddEntry appends a knowledge entry, persists it durably and rebuilds the
// index before returning: the entry is queryable immediately after return.
func (e *Engine) AddEntry(ctx context.Context, question, answer string, tags []string, source storage.Source, metadata map[string]interface{}) (storage.KnowledgeEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, err := e.store.AddEntry(ctx, question, answer, tags, source, metadata)
	if err != nil {
		return storage.KnowledgeEntry{}, err
	}

	e.idx.Rebuild(e.store.Entries(), e.store.Generation())
	e.invalidateResults(ctx)
	return entry, nil
}

// UpdateEntry merges a patch into an existing entry. Returns false when the
// id is unknown.
// Entry fetches one knowledge entry by id, returning storage.ErrNotFound for
// unknown ids.
func (e *Engine) Entry(ctx context.Context, id int64) (storage.KnowledgeEntry, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	entry, ok := e.store.Get(id)
	if !ok {
		return storage.KnowledgeEntry{}, fmt.Errorf("entry %d: %w", id, storage.ErrNotFound)
	}
	return entry, nil
}

func (e *Engine) UpdateEntry(ctx context.Context, id int64, patch storage.EntryPatch) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ok, err := e.store.UpdateEntry(ctx, id, patch)
	if err != nil || !ok {
		return ok, err
	}

	e.idx.Rebuild(e.store.Entries(), e.store.Generation())
	e.invalidateResults(ctx)
	return true, nil
}

// RecordFeedback logs an accept/reject event. An incorrect answer with a
// supplied correction is folded back into the knowledge base through the
// incremental learner.
func (e *Engine) RecordFeedback(ctx context.Context, question, answer string, correct bool, correction string, confidence float64) (feedback.Record, error) {
	rec, err := e.feedback.Record(ctx, question, answer, correct, correction, confidence)
	if err != nil {
		return feedback.Record{}, err
	}

	if !correct && correction != "" {
		e.mu.Lock()
		_, err := e.learner.ApplyCorrection(ctx, question, answer, correction)
		if err == nil {
			e.invalidateResults(ctx)
		}
		e.mu.Unlock()
		if err != nil {
			return rec, err
		}
	}

	return rec, nil
}

// Stats summarizes the engine state.
type Stats struct {
	TotalEntries     int            `json:"total_entries"`
	BySource         map[string]int `json:"by_source"`
	FeedbackAccuracy float64        `json:"feedback_accuracy"`
	Matches          TierCounts     `json:"matches"`
	Cache            CacheCounts    `json:"cache"`
}

// TierCounts counts served matches per pipeline tier.
type TierCounts struct {
	Exact        int64 `json:"exact"`
	IndexedFuzzy int64 `json:"indexed_fuzzy"`
	GlobalFuzzy  int64 `json:"global_fuzzy"`
	Relaxed      int64 `json:"relaxed"`
	None         int64 `json:"none"`
}

// CacheCounts counts match-result cache hits and misses.
type CacheCounts struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// Stats returns current totals, per-source counts, feedback accuracy and
// serving counters.
func (e *Engine) Stats(ctx context.Context) Stats {
	e.mu.RLock()
	total := e.store.Len()
	bySource := e.store.CountBySource()
	e.mu.RUnlock()

	named := make(map[string]int, len(bySource))
	for src, n := range bySource {
		named[string(src)] = n
	}

	return Stats{
		TotalEntries:     total,
		BySource:         named,
		FeedbackAccuracy: e.feedback.Accuracy(),
		Matches: TierCounts{
			Exact:        e.tierCounts[0].Load(),
			IndexedFuzzy: e.tierCounts[1].Load(),
			GlobalFuzzy:  e.tierCounts[2].Load(),
			Relaxed:      e.tierCounts[3].Load(),
			None:         e.tierCounts[4].Load(),
		},
		Cache: CacheCounts{
			Hits:   e.cacheHits.Load(),
			Misses: e.cacheMiss.Load(),
		},
	}
}

// WriteSnapshot persists the index snapshot when a path is configured.
func (e *Engine) WriteSnapshot() error {
	if e.snapshotPath == "" {
		return nil
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.idx.WriteSnapshot(e.snapshotPath)
}

// Close releases the store and the cache.
func (e *Engine) Close() error {
	if err := e.results.Close(); err != nil {
		e.logger.Warn().Err(err).Msg("cache close failed")
	}
	return e.store.Close()
}

// corpus builds the read view for the pipeline. Callers hold at least the
// read lock.
func (e *Engine) corpus() match.Corpus {
	return match.Corpus{
		Entries: e.store.Entries(),
		Index:   e.idx,
	}
}

// finish copies the matched entry out of the store, records counters and
// caches the result.
func (e *Engine) finish(ctx context.Context, key string, q match.Query, result match.Result) MatchResult {
	res := MatchResult{
		Confidence: result.Confidence,
		Tier:       result.Tier,
	}
	if result.Entry != nil {
		entryCopy := *result.Entry
		res.Entry = &entryCopy
	}

	e.countTier(result.Tier)

	if data, err := json.Marshal(res); err == nil {
		if err := e.results.Set(ctx, key, data, e.cacheTTL); err != nil {
			e.logger.Debug().Err(err).Msg("result cache set failed")
		}
	}

	e.logger.Debug().
		Str("query", q.Norm).
		Str("tier", string(result.Tier)).
		Float64("confidence", result.Confidence).
		Msg("query served")
	return res
}

func (e *Engine) cachedResult(ctx context.Context, key string) (MatchResult, bool) {
	data, err := e.results.Get(ctx, key)
	if err != nil {
		e.cacheMiss.Add(1)
		return MatchResult{}, false
	}

	var res MatchResult
	if err := json.Unmarshal(data, &res); err != nil {
		e.cacheMiss.Add(1)
		return MatchResult{}, false
	}

	e.cacheHits.Add(1)
	return res, true
}

// invalidateResults drops every cached match result. Called inside the write
// lock so no reader observes a stale result after a mutation completes.
func (e *Engine) invalidateResults(ctx context.Context) {
	if err := e.results.DeleteByPrefix(ctx, cacheKeyPrefix); err != nil {
		e.logger.Warn().Err(err).Msg("result cache invalidation failed")
	}
}

func (e *Engine) cacheKey(norm, filter, mode string) string {
	sum := sha256.Sum256([]byte(norm + "|" + filter + "|" + mode))
	return cacheKeyPrefix + hex.EncodeToString(sum[:16])
}

func (e *Engine) countTier(t match.Tier) {
	switch t {
	case match.TierExact:
		e.tierCounts[0].Add(1)
	case match.TierIndexedFuzzy:
		e.tierCounts[1].Add(1)
	case match.TierGlobalFuzzy:
		e.tierCounts[2].Add(1)
	case match.TierRelaxed:
		e.tierCounts[3].Add(1)
	default:
		e.tierCounts[4].Add(1)
	}
}
