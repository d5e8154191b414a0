package search

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"unicode/utf8"

	"github.com/mkovalev-dev/termindex/internal/index"
	"github.com/mkovalev-dev/termindex/internal/index/tokenizer"
	"github.com/mkovalev-dev/termindex/pkg/errors"
)

// Runner executes a line-oriented query batch: each input line is one query,
// terms separated by whitespace, and each produces exactly one output line
// of ascending doc ids joined by commas. Lines are written as they complete,
// so an abort mid-batch keeps the results already produced.
type Runner struct {
	idx    *index.InvertedIndex
	out    io.Writer
	logger *slog.Logger
}

// NewRunner returns a Runner answering queries from idx onto out.
func NewRunner(idx *index.InvertedIndex, out io.Writer) *Runner {
	return &Runner{
		idx:    idx,
		out:    out,
		logger: slog.Default().With("component", "query-runner"),
	}
}

// Run processes every query line from queries. A line that cannot be
// tokenized (invalid UTF-8) is recovered locally: it yields an empty result
// line and a warning, not an abort, so one bad line never sinks the batch.
func (r *Runner) Run(queries io.Reader) error {
	scanner := bufio.NewScanner(queries)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if !utf8.ValidString(line) {
			r.logger.Warn("skipping undecodable query line",
				"line", lineNo,
				"error", errors.Newf(errors.ErrQueryTermEncoding, "line %d is not valid UTF-8", lineNo),
			)
			if _, err := io.WriteString(r.out, "\n"); err != nil {
				return fmt.Errorf("writing query result: %w", err)
			}
			continue
		}
		ids := Intersect(r.idx, tokenizer.Tokenize(line))
		if _, err := io.WriteString(r.out, FormatDocIDs(ids)+"\n"); err != nil {
			return fmt.Errorf("writing query result: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading query file: %w", err)
	}
	return nil
}

// FormatDocIDs renders ids as decimal numbers joined by single commas. An
// empty set renders as an empty string.
func FormatDocIDs(ids index.PostingList) string {
	if len(ids) == 0 {
		return ""
	}
	buf := make([]byte, 0, len(ids)*4)
	for i, id := range ids {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendUint(buf, uint64(id), 10)
	}
	return string(buf)
}
