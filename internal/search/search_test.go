package search

import (
	"reflect"
	"testing"

	"github.com/mkovalev-dev/termindex/internal/index"
)

func buildIndex(t *testing.T, entries []index.TermEntry, docCount int) *index.InvertedIndex {
	t.Helper()
	idx, err := index.FromEntries(entries, docCount)
	if err != nil {
		t.Fatalf("FromEntries: %v", err)
	}
	return idx
}

// sampleIndex is the index over {0:"the cat sat", 1:"the dog sat",
// 2:"cat and dog"}.
func sampleIndex(t *testing.T) *index.InvertedIndex {
	return buildIndex(t, []index.TermEntry{
		{Term: "and", Postings: index.PostingList{2}},
		{Term: "cat", Postings: index.PostingList{0, 2}},
		{Term: "dog", Postings: index.PostingList{1, 2}},
		{Term: "sat", Postings: index.PostingList{0, 1}},
		{Term: "the", Postings: index.PostingList{0, 1}},
	}, 3)
}

func TestIntersect(t *testing.T) {
	idx := sampleIndex(t)
	tests := []struct {
		name  string
		terms []string
		want  index.PostingList
	}{
		{
			name:  "two terms",
			terms: []string{"cat", "dog"},
			want:  index.PostingList{2},
		},
		{
			name:  "two terms larger overlap",
			terms: []string{"the", "sat"},
			want:  index.PostingList{0, 1},
		},
		{
			name:  "single term",
			terms: []string{"cat"},
			want:  index.PostingList{0, 2},
		},
		{
			name:  "absent term",
			terms: []string{"fish"},
			want:  nil,
		},
		{
			name:  "absent term among present ones",
			terms: []string{"cat", "fish", "dog"},
			want:  nil,
		},
		{
			name:  "empty query",
			terms: nil,
			want:  nil,
		},
		{
			name:  "duplicate terms collapse",
			terms: []string{"cat", "cat", "dog"},
			want:  index.PostingList{2},
		},
		{
			name:  "three terms",
			terms: []string{"the", "cat", "sat"},
			want:  index.PostingList{0},
		},
		{
			name:  "disjoint terms",
			terms: []string{"and", "sat"},
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Intersect(idx, tt.terms)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Intersect(%v) = %v, want %v", tt.terms, got, tt.want)
			}
		})
	}
}

func TestIntersectSkewedLists(t *testing.T) {
	// One rare term against one long list: the result must track the short
	// list regardless of skew.
	long := make(index.PostingList, 0, 1000)
	for i := 0; i < 1000; i++ {
		long = append(long, index.DocID(i*2))
	}
	idx := buildIndex(t, []index.TermEntry{
		{Term: "common", Postings: long},
		{Term: "rare", Postings: index.PostingList{4, 500, 1001, 1998}},
	}, 2000)

	got := Intersect(idx, []string{"common", "rare"})
	want := index.PostingList{4, 500, 1998}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Intersect = %v, want %v", got, want)
	}
}

func TestIntersectResultAscendingDeduplicated(t *testing.T) {
	idx := buildIndex(t, []index.TermEntry{
		{Term: "a", Postings: index.PostingList{1, 2, 3, 5, 8, 13}},
		{Term: "b", Postings: index.PostingList{2, 3, 5, 7, 13}},
		{Term: "c", Postings: index.PostingList{0, 2, 5, 13, 21}},
	}, 22)
	got := Intersect(idx, []string{"a", "b", "c"})
	want := index.PostingList{2, 5, 13}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Intersect = %v, want %v", got, want)
	}
	for i := 1; i < len(got); i++ {
		if got[i] <= got[i-1] {
			t.Errorf("result not strictly ascending at %d: %v", i, got)
		}
	}
}

func TestIntersectDoesNotMutateIndex(t *testing.T) {
	idx := sampleIndex(t)
	before, _ := idx.Postings("cat")
	snapshot := append(index.PostingList(nil), before...)

	result := Intersect(idx, []string{"cat"})
	result[0] = 99

	after, _ := idx.Postings("cat")
	if !reflect.DeepEqual(after, snapshot) {
		t.Error("modifying the result mutated the index posting list")
	}
}
