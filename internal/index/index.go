// Package index holds the inverted index: a mapping from normalised term to
// the ascending, deduplicated list of document ids containing it. An
// InvertedIndex is produced once by a Builder (or by codec.Decode) and is
// read-only from then on, which is what makes lock-free concurrent queries
// safe.
package index

import (
	"sort"

	"github.com/mkovalev-dev/termindex/pkg/errors"
)

// DocID identifies one document. IDs are assigned in corpus order, starting
// at zero, and never change.
type DocID uint32

// PostingList is the set of documents containing a term, kept strictly
// ascending with no duplicates.
type PostingList []DocID

// TermEntry pairs a term with its posting list. Snapshots and the codec use
// it as the canonical flat representation.
type TermEntry struct {
	Term     string
	Postings PostingList
}

// Document is one unit of indexable text.
type Document struct {
	ID   DocID
	Text string
}

// Source yields documents in strictly increasing ID order and returns io.EOF
// when the corpus is exhausted. Implementations live in internal/corpus.
type Source interface {
	Next() (Document, error)
	Close() error
}

// InvertedIndex is a frozen term -> posting list mapping. It has no mutation
// API: construction goes through Builder, Merge, or the codec.
type InvertedIndex struct {
	postings map[string]PostingList
	docCount int
}

// FromEntries assembles an InvertedIndex from flat term entries, validating
// the structural invariants: unique terms, non-empty posting lists, strictly
// ascending ids. The codec's decode path relies on this to reject
// inconsistent input.
func FromEntries(entries []TermEntry, docCount int) (*InvertedIndex, error) {
	postings := make(map[string]PostingList, len(entries))
	for _, entry := range entries {
		if entry.Term == "" {
			return nil, errors.New(errors.ErrCorruptIndex, "empty term")
		}
		if _, exists := postings[entry.Term]; exists {
			return nil, errors.Newf(errors.ErrCorruptIndex, "duplicate term %q", entry.Term)
		}
		if len(entry.Postings) == 0 {
			return nil, errors.Newf(errors.ErrCorruptIndex, "term %q has empty posting list", entry.Term)
		}
		for i := 1; i < len(entry.Postings); i++ {
			if entry.Postings[i] <= entry.Postings[i-1] {
				return nil, errors.Newf(errors.ErrCorruptIndex,
					"term %q posting list not strictly ascending at position %d", entry.Term, i)
			}
		}
		postings[entry.Term] = entry.Postings
	}
	return &InvertedIndex{postings: postings, docCount: docCount}, nil
}

// Postings returns the posting list for term. The second result is false when
// the term is absent. Callers must not modify the returned slice.
func (idx *InvertedIndex) Postings(term string) (PostingList, bool) {
	p, ok := idx.postings[term]
	return p, ok
}

// Terms returns every indexed term in lexicographic order.
func (idx *InvertedIndex) Terms() []string {
	terms := make([]string, 0, len(idx.postings))
	for term := range idx.postings {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

// Entries returns the full index as term entries in lexicographic term
// order. The codec encodes exactly this snapshot, which is what makes two
// builds of the same corpus byte-identical.
func (idx *InvertedIndex) Entries() []TermEntry {
	entries := make([]TermEntry, 0, len(idx.postings))
	for term, postings := range idx.postings {
		entries = append(entries, TermEntry{Term: term, Postings: postings})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

// Len returns the number of distinct terms.
func (idx *InvertedIndex) Len() int {
	return len(idx.postings)
}

// DocCount returns the number of documents the index was built from.
func (idx *InvertedIndex) DocCount() int {
	return idx.docCount
}
