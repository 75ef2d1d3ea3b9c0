package store

import (
	"strconv"
	"strings"
)

type Dialect interface {
	Name() string
	Schema() string
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string   { return "sqlite" }
func (sqliteDialect) Schema() string { return schemaSQLite }

type postgresDialect struct{}

func (postgresDialect) Name() string   { return "postgres" }
func (postgresDialect) Schema() string { return schemaPostgres }

// Rebind converts ? placeholders to $1, $2, ... Quoted literals are left alone.
func Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
