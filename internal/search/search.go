// Package search answers conjunctive (all-terms) queries against a frozen
// inverted index. Everything here is read-only, so any number of queries may
// run concurrently against the same index.
package search

import (
	"sort"

	"github.com/mkovalev-dev/termindex/internal/index"
)

// Intersect returns the ascending, deduplicated ids of the documents present
// in every term's posting list. An empty term set, or any term absent from
// the index, yields an empty result: an absent term has an implicitly empty
// posting list, and an empty query matches nothing.
func Intersect(idx *index.InvertedIndex, terms []string) index.PostingList {
	if len(terms) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(terms))
	lists := make([]index.PostingList, 0, len(terms))
	for _, term := range terms {
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		postings, ok := idx.Postings(term)
		if !ok {
			return nil
		}
		lists = append(lists, postings)
	}
	if len(lists) == 1 {
		return append(index.PostingList(nil), lists[0]...)
	}

	// Shortest list first: the first cursor drives the merge, so a rare term
	// keeps the candidate set small when list lengths are skewed.
	sort.Slice(lists, func(i, j int) bool {
		return len(lists[i]) < len(lists[j])
	})
	return intersectLists(lists)
}

// intersectLists runs a multi-way ascending merge with one cursor per list.
// Each round finds the largest value under any cursor, advances the cursors
// sitting below it, and emits when every cursor agrees. Any exhausted cursor
// ends the merge. Cost is linear in total posting-list length; the ascending
// invariant means nothing is ever re-sorted.
func intersectLists(lists []index.PostingList) index.PostingList {
	cursors := make([]int, len(lists))
	var result index.PostingList
	for {
		maxVal := lists[0][cursors[0]]
		agree := true
		for i := 1; i < len(lists); i++ {
			v := lists[i][cursors[i]]
			if v != maxVal {
				agree = false
				if v > maxVal {
					maxVal = v
				}
			}
		}
		if agree {
			result = append(result, maxVal)
			for i := range lists {
				cursors[i]++
				if cursors[i] == len(lists[i]) {
					return result
				}
			}
			continue
		}
		for i := range lists {
			for lists[i][cursors[i]] < maxVal {
				cursors[i]++
				if cursors[i] == len(lists[i]) {
					return result
				}
			}
		}
	}
}
