// Package corpus reads document streams for the index builder. Every source
// yields (id, text) pairs in strictly increasing id order — the builder
// depends on that order to produce ascending posting lists without a sort
// pass — and signals the end of the corpus with io.EOF.
//
// Three backings are supported: tab-separated text files (one
// "id<TAB>text" line per document), SQLite databases, and PostgreSQL
// tables.
package corpus

import (
	"strings"

	"github.com/mkovalev-dev/termindex/internal/index"
	"github.com/mkovalev-dev/termindex/pkg/config"
)

// Open picks a source for the dataset reference: a postgres:// URL opens a
// PostgreSQL table, a .db or .sqlite path opens a SQLite database, and
// anything else is read as a TSV file.
func Open(dataset string, cfg config.CorpusConfig) (index.Source, error) {
	switch {
	case strings.HasPrefix(dataset, "postgres://"), strings.HasPrefix(dataset, "postgresql://"):
		return OpenPostgres(dataset, cfg.Table)
	case strings.HasSuffix(dataset, ".db"), strings.HasSuffix(dataset, ".sqlite"):
		return OpenSQLite(dataset, cfg.Table)
	default:
		return OpenTSV(dataset)
	}
}
