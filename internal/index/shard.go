package index

import (
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/mkovalev-dev/termindex/pkg/errors"
)

// BuildSharded builds the index with numShards builders running in parallel
// and folds the partial indexes with Merge. Documents are routed round-robin
// by stream position, so every shard still sees its subset in strictly
// increasing ID order and the per-shard posting lists stay ascending.
//
// The result is identical to Build on the same source; with a deterministic
// codec downstream, the encoded artifact is byte-identical too.
func BuildSharded(src Source, numShards int) (*InvertedIndex, error) {
	if numShards <= 1 {
		return Build(src)
	}
	defer src.Close()

	logger := slog.Default().With("component", "index-builder")

	var g errgroup.Group
	inputs := make([]chan Document, numShards)
	builders := make([]*Builder, numShards)
	for i := 0; i < numShards; i++ {
		ch := make(chan Document, 64)
		b := NewBuilder()
		inputs[i] = ch
		builders[i] = b
		g.Go(func() error {
			for doc := range ch {
				if err := b.Add(doc.ID, doc.Text); err != nil {
					// Drain so the dispatcher never blocks on a dead shard.
					for range ch {
					}
					return err
				}
			}
			return nil
		})
	}

	// Round-robin routing keeps per-shard order ascending, but a global
	// ordering violation could still land on different shards unnoticed, so
	// the dispatcher checks monotonicity before routing.
	var readErr error
	var lastID DocID
	pos := 0
	for {
		doc, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			readErr = err
			break
		}
		if pos > 0 && doc.ID <= lastID {
			readErr = errors.Newf(errors.ErrMalformedDocument,
				"document id %d repeated or out of order (last seen %d)", doc.ID, lastID)
			break
		}
		lastID = doc.ID
		inputs[pos%numShards] <- doc
		pos++
	}
	for _, ch := range inputs {
		close(ch)
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if readErr != nil {
		return nil, readErr
	}

	merged := builders[0].Freeze()
	for i := 1; i < numShards; i++ {
		merged = Merge(merged, builders[i].Freeze())
	}
	logger.Debug("sharded build complete",
		"shards", numShards,
		"docs", merged.DocCount(),
		"terms", merged.Len(),
	)
	return merged, nil
}
