// Package index provides the inverted keyword/phonetic index over the
// knowledge base. The index is derived state: fully reconstructible from the
// store at any time, rebuilt synchronously on every store mutation.
package index

import (
	"sort"

	"github.com/onec-assist/answer-engine/internal/storage"
	"github.com/onec-assist/answer-engine/internal/textproc"
)

// Doc holds the derived text of one indexed entry, precomputed once per
// rebuild so the match pipeline never re-normalizes corpus entries per query.
type Doc struct {
	ID       int64
	Norm     string
	Keywords []string
}

// Inverted maps normalized keywords and phonetic codes to candidate entry
// ids. Not goroutine-safe on its own; the engine guards (store, index) as one
// unit.
type Inverted struct {
	keywords   map[string]map[int64]struct{}
	phonetic   map[string]map[int64]struct{}
	docs       map[int64]Doc
	order      []int64 // ids in insertion order, for deterministic iteration
	generation int64
}

// New returns an empty index.
func New() *Inverted {
	idx := &Inverted{}
	idx.reset()
	return idx
}

func (x *Inverted) reset() {
	x.keywords = make(map[string]map[int64]struct{})
	x.phonetic = make(map[string]map[int64]struct{})
	x.docs = make(map[int64]Doc)
	x.order = x.order[:0]
}

// Rebuild reindexes every entry from scratch. Cost is linear in corpus size
// times average tokens per question, which is fine at the corpus sizes this
// engine serves.
func (x *Inverted) Rebuild(entries []storage.KnowledgeEntry, generation int64) {
	x.reset()
	for i := range entries {
		x.Add(entries[i])
	}
	x.generation = generation
}

// Add folds a single entry into the index without touching the rest. Used by
// the incremental learner so a correction does not pay for a full rebuild.
func (x *Inverted) Add(entry storage.KnowledgeEntry) {
	norm := textproc.Normalize(entry.Question)
	keywords := textproc.Tokenize(norm)

	if _, exists := x.docs[entry.ID]; !exists {
		x.order = append(x.order, entry.ID)
	}
	x.docs[entry.ID] = Doc{ID: entry.ID, Norm: norm, Keywords: keywords}

	for _, kw := range keywords {
		post, ok := x.keywords[kw]
		if !ok {
			post = make(map[int64]struct{})
			x.keywords[kw] = post
		}
		post[entry.ID] = struct{}{}
	}

	if code := textproc.PhoneticCode(norm); code != "" {
		post, ok := x.phonetic[code]
		if !ok {
			post = make(map[int64]struct{})
			x.phonetic[code] = post
		}
		post[entry.ID] = struct{}{}
	}
}

// SetGeneration records the store generation the index reflects.
func (x *Inverted) SetGeneration(g int64) {
	x.generation = g
}

// Generation returns the store generation the index was built from.
func (x *Inverted) Generation() int64 {
	return x.generation
}

// Len returns the number of indexed entries.
func (x *Inverted) Len() int {
	return len(x.docs)
}

// Doc returns the derived text for an entry id.
func (x *Inverted) Doc(id int64) (Doc, bool) {
	d, ok := x.docs[id]
	return d, ok
}

// AllIDs returns every indexed id in insertion order.
func (x *Inverted) AllIDs() []int64 {
	ids := make([]int64, len(x.order))
	copy(ids, x.order)
	return ids
}

// CandidatesFor returns the union of keyword postings, widened with phonetic
// postings of each keyword's code. When nothing matches it fails open and
// returns the full corpus: an index miss must not become a false negative.
func (x *Inverted) CandidatesFor(keywords []string) []int64 {
	found := make(map[int64]struct{})
	for _, kw := range keywords {
		for id := range x.keywords[kw] {
			found[id] = struct{}{}
		}
		if code := textproc.PhoneticCode(kw); code != "" {
			for id := range x.phonetic[code] {
				found[id] = struct{}{}
			}
		}
	}

	if len(found) == 0 {
		return x.AllIDs()
	}

	ids := make([]int64, 0, len(found))
	for id := range found {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
