package match

import (
	"github.com/onec-assist/answer-engine/internal/index"
	"github.com/onec-assist/answer-engine/internal/observability"
	"github.com/onec-assist/answer-engine/internal/storage"
	"github.com/onec-assist/answer-engine/internal/textproc"
)

// Tier names one stage of the match pipeline.
type Tier string

const (
	TierExact        Tier = "exact"
	TierIndexedFuzzy Tier = "indexed_fuzzy"
	TierGlobalFuzzy  Tier = "global_fuzzy"
	TierRelaxed      Tier = "relaxed"
	TierNone         Tier = "none"
)

// Config holds the pipeline acceptance thresholds.
type Config struct {
	// FuzzyThreshold accepts an indexed-fuzzy candidate.
	FuzzyThreshold float64
	// ButtonFuzzyThreshold replaces FuzzyThreshold when the query came from a
	// button press.
	ButtonFuzzyThreshold float64
	// GlobalFuzzyThreshold accepts a global-fuzzy candidate.
	GlobalFuzzyThreshold float64
	// RelaxedFactor scales FuzzyThreshold for the relaxed keyword-count tier.
	RelaxedFactor float64
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		FuzzyThreshold:       0.4,
		ButtonFuzzyThreshold: 0.3,
		GlobalFuzzyThreshold: 0.35,
		RelaxedFactor:        0.8,
	}
}

// Query is a parsed user question.
type Query struct {
	Raw      string
	Norm     string
	Keywords []string
}

// ParseQuery normalizes and tokenizes a raw question.
func ParseQuery(raw string) Query {
	norm := textproc.Normalize(raw)
	return Query{
		Raw:      raw,
		Norm:     norm,
		Keywords: textproc.Tokenize(norm),
	}
}

// Corpus is the read view of the knowledge base the pipeline matches against.
// Entries are in insertion order; the index reflects exactly these entries.
type Corpus struct {
	Entries []storage.KnowledgeEntry
	Index   *index.Inverted
}

// Options controls one pipeline run.
type Options struct {
	// SourceFilter restricts exact and indexed-fuzzy tiers to entries of one
	// source. Empty means all sources.
	SourceFilter storage.Source
	// Button lowers the indexed-fuzzy threshold for button-originated queries.
	Button bool
}

// Candidate is the transient per-query score of one entry.
type Candidate struct {
	EntryID int64
	Score   Score
}

// Result is what one pipeline run returns. Entry is nil on a miss.
type Result struct {
	Entry      *storage.KnowledgeEntry
	Confidence float64
	Tier       Tier
	Score      Score
}

// Miss is the canonical empty result.
func Miss() Result {
	return Result{Confidence: 0.0, Tier: TierNone}
}

// Pipeline runs the tiered retrieval state machine: exact, indexed fuzzy,
// global fuzzy, relaxed keyword count. The first tier clearing its threshold
// wins.
type Pipeline struct {
	cfg    Config
	logger *observability.Logger
}

// NewPipeline creates a pipeline, filling zero thresholds from defaults.
func NewPipeline(cfg Config, logger *observability.Logger) *Pipeline {
	def := DefaultConfig()
	if cfg.FuzzyThreshold <= 0 {
		cfg.FuzzyThreshold = def.FuzzyThreshold
	}
	if cfg.ButtonFuzzyThreshold <= 0 {
		cfg.ButtonFuzzyThreshold = def.ButtonFuzzyThreshold
	}
	if cfg.GlobalFuzzyThreshold <= 0 {
		cfg.GlobalFuzzyThreshold = def.GlobalFuzzyThreshold
	}
	if cfg.RelaxedFactor <= 0 {
		cfg.RelaxedFactor = def.RelaxedFactor
	}
	return &Pipeline{cfg: cfg, logger: logger.WithComponent("match")}
}

// Best runs the pipeline for one query.
func (p *Pipeline) Best(q Query, corpus Corpus, opts Options) Result {
	if q.Norm == "" || len(corpus.Entries) == 0 {
		return Miss()
	}

	if res, ok := p.exact(q, corpus, opts); ok {
		return res
	}
	if res, ok := p.indexedFuzzy(q, corpus, opts); ok {
		return res
	}
	if res, ok := p.globalFuzzy(q, corpus); ok {
		return res
	}
	if res, ok := p.relaxed(q, corpus); ok {
		return res
	}

	p.logger.Debug().Str("query", q.Norm).Msg("no tier matched")
	return Miss()
}

// BestButton runs the two-phase button lookup: scoped to the button source
// first, then unscoped, then the normal free-text pipeline. A mislabeled
// button still finds the right entry this way.
func (p *Pipeline) BestButton(q Query, corpus Corpus, src storage.Source) Result {
	if res := p.Best(q, corpus, Options{SourceFilter: src, Button: true}); res.Tier != TierNone {
		return res
	}
	if res := p.Best(q, corpus, Options{Button: true}); res.Tier != TierNone {
		return res
	}
	return p.Best(q, corpus, Options{})
}

// exact matches the normalized query against normalized entry questions.
// When several entries share a question, the highest id wins: corrections
// are appended rather than edited in place, so the latest entry supersedes
// the ones before it.
func (p *Pipeline) exact(q Query, corpus Corpus, opts Options) (Result, bool) {
	var hit *storage.KnowledgeEntry
	for i := range corpus.Entries {
		e := &corpus.Entries[i]
		if opts.SourceFilter != "" && e.Source != opts.SourceFilter {
			continue
		}
		doc, ok := corpus.Index.Doc(e.ID)
		if !ok || doc.Norm != q.Norm {
			continue
		}
		if hit == nil || e.ID > hit.ID {
			hit = e
		}
	}
	if hit == nil {
		return Result{}, false
	}
	return Result{
		Entry:      hit,
		Confidence: 1.0,
		Tier:       TierExact,
		Score:      Score{StringSim: 1.0, KeywordOverlap: 1.0, Confidence: 1.0},
	}, true
}

// indexedFuzzy scores the index candidate set.
func (p *Pipeline) indexedFuzzy(q Query, corpus Corpus, opts Options) (Result, bool) {
	threshold := p.cfg.FuzzyThreshold
	if opts.Button {
		threshold = p.cfg.ButtonFuzzyThreshold
	}

	ids := corpus.Index.CandidatesFor(q.Keywords)
	best, found := p.bestOf(q, corpus, ids, opts.SourceFilter)
	if !found || best.Score.Confidence < threshold {
		return Result{}, false
	}

	entry, ok := entryByID(corpus, best.EntryID)
	if !ok {
		return Result{}, false
	}
	return Result{Entry: entry, Confidence: best.Score.Confidence, Tier: TierIndexedFuzzy, Score: best.Score}, true
}

// globalFuzzy scores the entire corpus across all sources.
func (p *Pipeline) globalFuzzy(q Query, corpus Corpus) (Result, bool) {
	best, found := p.bestOf(q, corpus, corpus.Index.AllIDs(), "")
	if !found || best.Score.Confidence < p.cfg.GlobalFuzzyThreshold {
		return Result{}, false
	}

	entry, ok := entryByID(corpus, best.EntryID)
	if !ok {
		return Result{}, false
	}
	return Result{Entry: entry, Confidence: best.Score.Confidence, Tier: TierGlobalFuzzy, Score: best.Score}, true
}

// relaxed accepts any entry sharing at least two keywords with a multi-keyword
// query, at a reduced threshold.
func (p *Pipeline) relaxed(q Query, corpus Corpus) (Result, bool) {
	if len(q.Keywords) <= 1 {
		return Result{}, false
	}

	threshold := p.cfg.RelaxedFactor * p.cfg.FuzzyThreshold

	var bestID int64
	bestConf := -1.0
	for i := range corpus.Entries {
		e := &corpus.Entries[i]
		doc, ok := corpus.Index.Doc(e.ID)
		if !ok {
			continue
		}
		shared := SharedKeywords(q.Keywords, doc.Keywords)
		if shared < 2 {
			continue
		}
		conf := float64(shared) / float64(len(q.Keywords))
		if conf > bestConf || (conf == bestConf && e.ID < bestID) {
			bestConf = conf
			bestID = e.ID
		}
	}

	if bestConf < threshold {
		return Result{}, false
	}
	entry, ok := entryByID(corpus, bestID)
	if !ok {
		return Result{}, false
	}
	return Result{
		Entry:      entry,
		Confidence: bestConf,
		Tier:       TierRelaxed,
		Score:      Score{KeywordOverlap: bestConf, Confidence: bestConf},
	}, true
}

// bestOf scores the given candidate ids and keeps the maximum, breaking ties
// by lowest entry id for determinism.
func (p *Pipeline) bestOf(q Query, corpus Corpus, ids []int64, filter storage.Source) (Candidate, bool) {
	var best Candidate
	found := false

	for _, id := range ids {
		doc, ok := corpus.Index.Doc(id)
		if !ok {
			continue
		}
		if filter != "" {
			entry, ok := entryByID(corpus, id)
			if !ok || entry.Source != filter {
				continue
			}
		}

		score := ScoreMatch(q.Norm, doc.Norm, q.Keywords, doc.Keywords)
		if !found ||
			score.Confidence > best.Score.Confidence ||
			(score.Confidence == best.Score.Confidence && id < best.EntryID) {
			best = Candidate{EntryID: id, Score: score}
			found = true
		}
	}

	return best, found
}

func entryByID(corpus Corpus, id int64) (*storage.KnowledgeEntry, bool) {
	for i := range corpus.Entries {
		if corpus.Entries[i].ID == id {
			return &corpus.Entries[i], true
		}
	}
	return nil, false
}
