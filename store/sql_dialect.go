package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"hermes-backend/models"
)

// dialect holds what differs between the SQL engines. Queries are written
// with '?' placeholders and rebound for engines that number them.
type dialect struct {
	name     string
	numbered bool

	// lower is the Unicode-aware lowercase function of the engine.
	lower string

	pkType   string
	textType func(size int) string
	jsonType string
	timeType string

	// metadataSet is the SET expression merging one key into the metadata
	// column. It takes two placeholders: path and JSON value.
	metadataSet  string
	metadataPath func(key string) string
	// metadataMatch is the WHERE clause selecting rows whose metadata key
	// holds the JSON document raw.
	metadataMatch func(key, raw string) (string, []any)

	isUnique    func(err error) bool
	isInvalid   func(err error) bool
	isTransient func(err error) bool
}

var postgresDialect = dialect{
	name:     DriverPostgres,
	numbered: true,
	lower:    "LOWER",
	pkType:   "BIGSERIAL PRIMARY KEY",
	textType: func(size int) string {
		if size <= 0 {
			return "TEXT"
		}
		return fmt.Sprintf("VARCHAR(%d)", size)
	},
	jsonType:     "JSONB",
	timeType:     "TIMESTAMPTZ",
	metadataSet:  "jsonb_set(COALESCE(additional_data, '{}'::jsonb), ARRAY[?::text], ?::jsonb, true)",
	metadataPath: func(key string) string { return key },
	metadataMatch: func(key, raw string) (string, []any) {
		return "additional_data -> ?::text = ?::jsonb", []any{key, raw}
	},
	isUnique: func(err error) bool {
		var pqErr *pq.Error
		return errors.As(err, &pqErr) && pqErr.Code == "23505"
	},
	// Class 22 covers over-long values (22001) and malformed input.
	isInvalid: func(err error) bool {
		var pqErr *pq.Error
		return errors.As(err, &pqErr) && pqErr.Code.Class() == "22"
	},
	isTransient: func(err error) bool {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code.Class() {
			case "08", "53", "57":
				return true
			}
		}
		return false
	},
}

var sqliteDialect = dialect{
	name:         DriverSQLite,
	lower:        "unicode_lower",
	pkType:       "INTEGER PRIMARY KEY AUTOINCREMENT",
	textType:     func(int) string { return "TEXT" },
	jsonType:     "TEXT",
	timeType:     "DATETIME",
	metadataSet:  "json_set(COALESCE(additional_data, '{}'), ?, json(?))",
	metadataPath: func(key string) string { return `$."` + key + `"` },
	// json_type keeps a missing key apart from a JSON null.
	metadataMatch: func(key, raw string) (string, []any) {
		path := `$."` + key + `"`
		return "json_extract(additional_data, ?) IS json_extract(?, '$') AND json_type(additional_data, ?) IS NOT NULL",
			[]any{path, raw, path}
	},
	isUnique: func(err error) bool {
		var se *sqlite.Error
		if !errors.As(err, &se) {
			return false
		}
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	},
	isInvalid: func(error) bool { return false },
	isTransient: func(err error) bool {
		var se *sqlite.Error
		if !errors.As(err, &se) {
			return false
		}
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
		return false
	},
}

// The built-in LOWER of SQLite folds ASCII only.
func init() {
	sqlite.MustRegisterDeterministicScalarFunction("unicode_lower", 1,
		func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case string:
				return strings.ToLower(v), nil
			case []byte:
				return strings.ToLower(string(v)), nil
			}
			return args[0], nil
		})
}

func dialectFor(name string) (dialect, error) {
	switch name {
	case DriverPostgres:
		return postgresDialect, nil
	case DriverSQLite:
		return sqliteDialect, nil
	}
	return dialect{}, fmt.Errorf("no SQL dialect for driver %q", name)
}

// rebind rewrites '?' placeholders to $1..$n for numbered dialects.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// translate maps driver errors onto the models taxonomy.
func (d dialect) translate(err error) error {
	switch {
	case err == nil:
		return nil
	case d.isUnique(err):
		return fmt.Errorf("%w: %v", models.ErrConflict, err)
	case d.isInvalid(err):
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	case d.isTransient(err), isTransient(err):
		return fmt.Errorf("%w: %v", models.ErrTransient, err)
	}
	return err
}

func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// escapeLike escapes LIKE wildcards; queries use ESCAPE '\'.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
