package corpus

import (
	"database/sql"
	"fmt"
	"io"
	"regexp"

	"github.com/mkovalev-dev/termindex/internal/index"
	"github.com/mkovalev-dev/termindex/pkg/errors"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// tableNamePattern rejects table names that cannot be interpolated into the
// corpus query safely.
var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// sqlSource streams documents out of a database cursor ordered by id. Both
// the SQLite and PostgreSQL sources reduce to this.
type sqlSource struct {
	db   *sql.DB
	rows *sql.Rows
}

// OpenSQLite opens a SQLite corpus database and streams the given table,
// which needs integer `id` and text `content` columns.
func OpenSQLite(path string, table string) (index.Source, error) {
	return openSQL("sqlite3", path, table)
}

// OpenPostgres opens a PostgreSQL corpus via a lib/pq connection URL and
// streams the given table, which needs integer `id` and text `content`
// columns.
func OpenPostgres(url string, table string) (index.Source, error) {
	return openSQL("postgres", url, table)
}

func openSQL(driver, dsn, table string) (index.Source, error) {
	if table == "" {
		table = "documents"
	}
	if !tableNamePattern.MatchString(table) {
		return nil, errors.Newf(errors.ErrInvalidInput, "unusable corpus table name %q", table)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s corpus: %w", driver, err)
	}
	rows, err := db.Query(fmt.Sprintf("SELECT id, content FROM %s ORDER BY id", table))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("querying corpus table %s: %w", table, err)
	}
	return &sqlSource{db: db, rows: rows}, nil
}

func (s *sqlSource) Next() (index.Document, error) {
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return index.Document{}, fmt.Errorf("reading corpus rows: %w", err)
		}
		return index.Document{}, io.EOF
	}
	var id int64
	var content string
	if err := s.rows.Scan(&id, &content); err != nil {
		return index.Document{}, fmt.Errorf("scanning corpus row: %w", err)
	}
	if id < 0 || id > int64(^uint32(0)) {
		return index.Document{}, errors.Newf(errors.ErrMalformedDocument,
			"document id %d outside the unsigned 32-bit range", id)
	}
	return index.Document{ID: index.DocID(id), Text: content}, nil
}

func (s *sqlSource) Close() error {
	s.rows.Close()
	return s.db.Close()
}
