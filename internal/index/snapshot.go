package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

// snapshotVersion is bumped whenever the on-disk shape changes. A mismatch
// discards the snapshot and rebuilds from the store.
const snapshotVersion = 1

// ErrSnapshotStale indicates the snapshot does not match the current store
// generation or format version. Never fatal: the index rebuilds from the
// store, which is always the source of truth.
var ErrSnapshotStale = errors.New("index snapshot stale")

// Snapshot is the versioned serialized form of the inverted index. It is a
// warm-start cache only.
type Snapshot struct {
	Version    int                `json:"version"`
	Generation int64              `json:"generation"`
	Docs       []Doc              `json:"docs"`
	Keywords   map[string][]int64 `json:"keywords"`
	Phonetic   map[string][]int64 `json:"phonetic"`
}

// Snapshot captures the current index state.
func (x *Inverted) Snapshot() Snapshot {
	snap := Snapshot{
		Version:    snapshotVersion,
		Generation: x.generation,
		Docs:       make([]Doc, 0, len(x.order)),
		Keywords:   make(map[string][]int64, len(x.keywords)),
		Phonetic:   make(map[string][]int64, len(x.phonetic)),
	}
	for _, id := range x.order {
		snap.Docs = append(snap.Docs, x.docs[id])
	}
	for kw, post := range x.keywords {
		snap.Keywords[kw] = sortedIDs(post)
	}
	for code, post := range x.phonetic {
		snap.Phonetic[code] = sortedIDs(post)
	}
	return snap
}

// WriteSnapshot serializes the index to the given path.
func (x *Inverted) WriteSnapshot(path string) error {
	data, err := json.Marshal(x.Snapshot())
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot restores the index from a snapshot file, refusing one whose
// format version or store generation does not match.
func LoadSnapshot(path string, generation int64) (*Inverted, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}

	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: format version %d", ErrSnapshotStale, snap.Version)
	}
	if snap.Generation != generation {
		return nil, fmt.Errorf("%w: snapshot generation %d, store generation %d",
			ErrSnapshotStale, snap.Generation, generation)
	}

	x := New()
	x.generation = snap.Generation
	for _, doc := range snap.Docs {
		x.docs[doc.ID] = doc
		x.order = append(x.order, doc.ID)
	}
	for kw, ids := range snap.Keywords {
		post := make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			post[id] = struct{}{}
		}
		x.keywords[kw] = post
	}
	for code, ids := range snap.Phonetic {
		post := make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			post[id] = struct{}{}
		}
		x.phonetic[code] = post
	}
	return x, nil
}

func sortedIDs(post map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(post))
	for id := range post {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
