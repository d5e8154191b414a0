package index

import (
	"io"
	"log/slog"

	"github.com/mkovalev-dev/termindex/internal/index/tokenizer"
	"github.com/mkovalev-dev/termindex/pkg/errors"
)

// Builder accumulates an inverted index over one pass of a corpus. Documents
// must arrive in strictly increasing ID order; because of that, appending the
// current ID to each term's list keeps every posting list ascending without a
// sort pass. Freeze seals the result.
type Builder struct {
	postings map[string]PostingList
	lastID   DocID
	seen     bool
	docCount int
	logger   *slog.Logger
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		postings: make(map[string]PostingList),
		logger:   slog.Default().With("component", "index-builder"),
	}
}

// Add tokenizes one document and appends its ID to the posting list of every
// distinct term it contains. A repeated or out-of-order ID fails with
// ErrMalformedDocument: the ascending-posting invariant cannot survive it.
func (b *Builder) Add(id DocID, text string) error {
	if b.seen && id <= b.lastID {
		return errors.Newf(errors.ErrMalformedDocument,
			"document id %d repeated or out of order (last seen %d)", id, b.lastID)
	}
	b.lastID = id
	b.seen = true
	b.docCount++

	tokens := tokenizer.Tokenize(text)
	inDoc := make(map[string]struct{}, len(tokens))
	for _, term := range tokens {
		if _, dup := inDoc[term]; dup {
			continue
		}
		inDoc[term] = struct{}{}
		b.postings[term] = append(b.postings[term], id)
	}
	return nil
}

// Freeze seals the accumulated postings into a read-only InvertedIndex. The
// Builder must not be reused afterwards. An empty corpus freezes into a
// valid index with no terms.
func (b *Builder) Freeze() *InvertedIndex {
	idx := &InvertedIndex{postings: b.postings, docCount: b.docCount}
	b.postings = nil
	b.logger.Debug("index frozen", "terms", idx.Len(), "docs", idx.DocCount())
	return idx
}

// Build drains src into a fresh Builder and returns the frozen index. The
// source is closed before returning.
func Build(src Source) (*InvertedIndex, error) {
	defer src.Close()
	b := NewBuilder()
	for {
		doc, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if err := b.Add(doc.ID, doc.Text); err != nil {
			return nil, err
		}
	}
	return b.Freeze(), nil
}

// Merge unions two frozen indexes term by term, re-establishing the
// ascending deduplicated order of every posting list. Shard builds rely on
// this to fold partial indexes into one.
func Merge(a, b *InvertedIndex) *InvertedIndex {
	merged := make(map[string]PostingList, len(a.postings)+len(b.postings))
	for term, postings := range a.postings {
		if other, ok := b.postings[term]; ok {
			merged[term] = unionPostings(postings, other)
		} else {
			merged[term] = postings
		}
	}
	for term, postings := range b.postings {
		if _, done := merged[term]; !done {
			merged[term] = postings
		}
	}
	return &InvertedIndex{postings: merged, docCount: a.docCount + b.docCount}
}

// unionPostings merges two ascending lists into one ascending deduplicated
// list with a two-cursor walk.
func unionPostings(a, b PostingList) PostingList {
	out := make(PostingList, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
