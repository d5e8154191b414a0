package corpus

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mkovalev-dev/termindex/internal/index"
	"github.com/mkovalev-dev/termindex/pkg/errors"
)

// tsvSource streams documents from a tab-separated file: one line per
// document, the numeric id before the first tab and the raw text after it.
type tsvSource struct {
	f       *os.File
	scanner *bufio.Scanner
	lineNo  int
}

// OpenTSV opens a TSV corpus file.
func OpenTSV(path string) (index.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus file: %w", err)
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &tsvSource{f: f, scanner: scanner}, nil
}

func (s *tsvSource) Next() (index.Document, error) {
	for s.scanner.Scan() {
		s.lineNo++
		line := s.scanner.Text()
		if line == "" {
			continue
		}
		id, text, found := strings.Cut(line, "\t")
		if !found {
			return index.Document{}, errors.Newf(errors.ErrMalformedDocument,
				"line %d: expected \"id<TAB>text\", no tab found", s.lineNo)
		}
		docID, err := strconv.ParseUint(id, 10, 32)
		if err != nil {
			return index.Document{}, errors.Newf(errors.ErrMalformedDocument,
				"line %d: document id %q is not an unsigned integer", s.lineNo, id)
		}
		return index.Document{
			ID:   index.DocID(docID),
			Text: strings.TrimSpace(text),
		}, nil
	}
	if err := s.scanner.Err(); err != nil {
		return index.Document{}, fmt.Errorf("reading corpus file: %w", err)
	}
	return index.Document{}, io.EOF
}

func (s *tsvSource) Close() error {
	return s.f.Close()
}
