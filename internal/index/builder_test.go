package index

import (
	"errors"
	"io"
	"reflect"
	"testing"

	pkgerrors "github.com/mkovalev-dev/termindex/pkg/errors"
)

// sliceSource serves a fixed document slice, standing in for a corpus file.
type sliceSource struct {
	docs []Document
	pos  int
}

func (s *sliceSource) Next() (Document, error) {
	if s.pos >= len(s.docs) {
		return Document{}, io.EOF
	}
	doc := s.docs[s.pos]
	s.pos++
	return doc, nil
}

func (s *sliceSource) Close() error { return nil }

// sampleCorpus is the three-document corpus used throughout the package
// tests: postings must come out as cat->[0,2] dog->[1,2] sat->[0,1]
// the->[0,1] and->[2].
func sampleCorpus() *sliceSource {
	return &sliceSource{docs: []Document{
		{ID: 0, Text: "the cat sat"},
		{ID: 1, Text: "the dog sat"},
		{ID: 2, Text: "cat and dog"},
	}}
}

func TestBuildSampleCorpus(t *testing.T) {
	idx, err := Build(sampleCorpus())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := map[string]PostingList{
		"cat": {0, 2},
		"dog": {1, 2},
		"sat": {0, 1},
		"the": {0, 1},
		"and": {2},
	}
	if idx.Len() != len(want) {
		t.Errorf("Len() = %d, want %d", idx.Len(), len(want))
	}
	if idx.DocCount() != 3 {
		t.Errorf("DocCount() = %d, want 3", idx.DocCount())
	}
	for term, postings := range want {
		got, ok := idx.Postings(term)
		if !ok {
			t.Errorf("term %q missing", term)
			continue
		}
		if !reflect.DeepEqual(got, postings) {
			t.Errorf("Postings(%q) = %v, want %v", term, got, postings)
		}
	}
}

func TestBuildDedupesTermsWithinDocument(t *testing.T) {
	idx, err := Build(&sliceSource{docs: []Document{
		{ID: 0, Text: "go go go gadget"},
	}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	got, _ := idx.Postings("go")
	if !reflect.DeepEqual(got, PostingList{0}) {
		t.Errorf("Postings(go) = %v, want [0]", got)
	}
}

func TestBuildEmptyCorpus(t *testing.T) {
	idx, err := Build(&sliceSource{})
	if err != nil {
		t.Fatalf("an empty corpus is valid, got error: %v", err)
	}
	if idx.Len() != 0 || idx.DocCount() != 0 {
		t.Errorf("empty corpus produced %d terms, %d docs", idx.Len(), idx.DocCount())
	}
}

func TestBuildRejectsOutOfOrderIDs(t *testing.T) {
	tests := []struct {
		name string
		docs []Document
	}{
		{
			name: "repeated id",
			docs: []Document{{ID: 0, Text: "a"}, {ID: 0, Text: "b"}},
		},
		{
			name: "decreasing id",
			docs: []Document{{ID: 5, Text: "a"}, {ID: 3, Text: "b"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(&sliceSource{docs: tt.docs})
			if !errors.Is(err, pkgerrors.ErrMalformedDocument) {
				t.Errorf("Build error = %v, want ErrMalformedDocument", err)
			}
		})
	}
}

func TestBuildAllowsIDGaps(t *testing.T) {
	idx, err := Build(&sliceSource{docs: []Document{
		{ID: 2, Text: "alpha"},
		{ID: 9, Text: "alpha"},
	}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	got, _ := idx.Postings("alpha")
	if !reflect.DeepEqual(got, PostingList{2, 9}) {
		t.Errorf("Postings(alpha) = %v, want [2 9]", got)
	}
}

func TestMerge(t *testing.T) {
	a, err := Build(&sliceSource{docs: []Document{
		{ID: 0, Text: "cat sat"},
		{ID: 2, Text: "cat dog"},
	}})
	if err != nil {
		t.Fatalf("Build a: %v", err)
	}
	b, err := Build(&sliceSource{docs: []Document{
		{ID: 1, Text: "dog sat"},
		{ID: 3, Text: "cat"},
	}})
	if err != nil {
		t.Fatalf("Build b: %v", err)
	}

	merged := Merge(a, b)
	want := map[string]PostingList{
		"cat": {0, 2, 3},
		"dog": {1, 2},
		"sat": {0, 1},
	}
	for term, postings := range want {
		got, ok := merged.Postings(term)
		if !ok || !reflect.DeepEqual(got, postings) {
			t.Errorf("Postings(%q) = %v (present=%v), want %v", term, got, ok, postings)
		}
	}
	if merged.DocCount() != 4 {
		t.Errorf("DocCount() = %d, want 4", merged.DocCount())
	}
}

func TestMergeOverlappingPostings(t *testing.T) {
	a, _ := FromEntries([]TermEntry{{Term: "x", Postings: PostingList{1, 3, 5}}}, 3)
	b, _ := FromEntries([]TermEntry{{Term: "x", Postings: PostingList{2, 3, 6}}}, 3)
	merged := Merge(a, b)
	got, _ := merged.Postings("x")
	if !reflect.DeepEqual(got, PostingList{1, 2, 3, 5, 6}) {
		t.Errorf("union = %v, want [1 2 3 5 6]", got)
	}
}

func TestBuildShardedMatchesSequential(t *testing.T) {
	docs := make([]Document, 0, 100)
	texts := []string{
		"the cat sat on the mat",
		"a dog chased the cat",
		"indexes map terms to documents",
		"posting lists stay sorted",
	}
	for i := 0; i < 100; i++ {
		docs = append(docs, Document{ID: DocID(i), Text: texts[i%len(texts)]})
	}

	sequential, err := Build(&sliceSource{docs: docs})
	if err != nil {
		t.Fatalf("sequential Build: %v", err)
	}
	for _, shards := range []int{2, 3, 8} {
		docsCopy := make([]Document, len(docs))
		copy(docsCopy, docs)
		sharded, err := BuildSharded(&sliceSource{docs: docsCopy}, shards)
		if err != nil {
			t.Fatalf("BuildSharded(%d): %v", shards, err)
		}
		if !reflect.DeepEqual(sharded.Entries(), sequential.Entries()) {
			t.Errorf("sharded build with %d shards differs from sequential build", shards)
		}
		if sharded.DocCount() != sequential.DocCount() {
			t.Errorf("sharded DocCount() = %d, want %d", sharded.DocCount(), sequential.DocCount())
		}
	}
}

func TestBuildShardedRejectsGlobalDisorder(t *testing.T) {
	// 0,3,2,5 round-robins into per-shard ascending streams, so only the
	// dispatcher-level check can catch it.
	docs := []Document{
		{ID: 0, Text: "a"}, {ID: 3, Text: "b"}, {ID: 2, Text: "c"}, {ID: 5, Text: "d"},
	}
	_, err := BuildSharded(&sliceSource{docs: docs}, 2)
	if !errors.Is(err, pkgerrors.ErrMalformedDocument) {
		t.Errorf("BuildSharded error = %v, want ErrMalformedDocument", err)
	}
}

// TestRebuildKeepsOldPostings covers the monotonicity property: appending
// documents and rebuilding never removes an id from an existing posting
// list.
func TestRebuildKeepsOldPostings(t *testing.T) {
	old, err := Build(sampleCorpus())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	grown := sampleCorpus()
	grown.docs = append(grown.docs, Document{ID: 3, Text: "the cat returns"})
	rebuilt, err := Build(grown)
	if err != nil {
		t.Fatalf("Build grown: %v", err)
	}
	for _, term := range old.Terms() {
		oldIDs, _ := old.Postings(term)
		newIDs, ok := rebuilt.Postings(term)
		if !ok {
			t.Errorf("term %q vanished after rebuild", term)
			continue
		}
		present := make(map[DocID]struct{}, len(newIDs))
		for _, id := range newIDs {
			present[id] = struct{}{}
		}
		for _, id := range oldIDs {
			if _, ok := present[id]; !ok {
				t.Errorf("doc %d dropped from %q after rebuild", id, term)
			}
		}
	}
}

func TestFromEntriesRejectsInvalidStructure(t *testing.T) {
	tests := []struct {
		name    string
		entries []TermEntry
	}{
		{
			name:    "empty posting list",
			entries: []TermEntry{{Term: "a", Postings: PostingList{}}},
		},
		{
			name:    "duplicate term",
			entries: []TermEntry{{Term: "a", Postings: PostingList{1}}, {Term: "a", Postings: PostingList{2}}},
		},
		{
			name:    "descending postings",
			entries: []TermEntry{{Term: "a", Postings: PostingList{2, 1}}},
		},
		{
			name:    "duplicate posting",
			entries: []TermEntry{{Term: "a", Postings: PostingList{1, 1}}},
		},
		{
			name:    "empty term",
			entries: []TermEntry{{Term: "", Postings: PostingList{1}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEntries(tt.entries, 10)
			if !errors.Is(err, pkgerrors.ErrCorruptIndex) {
				t.Errorf("FromEntries error = %v, want ErrCorruptIndex", err)
			}
		})
	}
}

func TestTermsSorted(t *testing.T) {
	idx, err := Build(sampleCorpus())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []string{"and", "cat", "dog", "sat", "the"}
	if got := idx.Terms(); !reflect.DeepEqual(got, want) {
		t.Errorf("Terms() = %v, want %v", got, want)
	}
}
