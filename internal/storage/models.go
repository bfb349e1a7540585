// Package storage provides the knowledge base models and persistence
// backends for the answer engine.
package storage

import (
	"time"
)

// Source tells where a knowledge entry came from.
type Source string

const (
	SourceManual       Source = "manual"
	SourceMenu         Source = "menu"
	SourceButton       Source = "button"
	SourceUserFeedback Source = "user_feedback"
)

// KnownSource reports whether s is one of the recognized entry sources.
func KnownSource(s Source) bool {
	switch s {
	case SourceManual, SourceMenu, SourceButton, SourceUserFeedback:
		return true
	}
	return false
}

// KnowledgeEntry is one question-answer record in the knowledge base.
// Entries are owned by the Store and mutated only through it. An entry is
// never deleted in normal operation: a correction appends a superseding
// entry rather than removing the original.
type KnowledgeEntry struct {
	ID        int64                  `json:"id"`
	Question  string                 `json:"question"`
	Answer    string                 `json:"answer"`
	Tags      []string               `json:"tags"`
	Source    Source                 `json:"source"`
	Metadata  map[string]interface{} `json:"metadata"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at,omitempty"`
	Version   int64                  `json:"version"`
}

// HasTag reports whether the entry carries the given tag.
func (e *KnowledgeEntry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// EntryPatch describes a partial update to an entry. Nil fields are left
// unchanged.
type EntryPatch struct {
	Question *string
	Answer   *string
	Tags     []string
	Metadata map[string]interface{}
}
