// Package sqlrepo implements the scan, scan error and analysis repositories
// on database/sql. Driver specifics (placeholders, DDL) live in a Dialect
// supplied by the mysql, postgres and sqlite connector packages.
package sqlrepo

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Dialect describes what differs between the supported drivers.
type Dialect struct {
	Name string
	// Numbered placeholders ($1, $2 ...) instead of '?'.
	Numbered bool
	// Schema holds idempotent DDL statements run by Migrate, in order.
	Schema []string
}

// Rebind rewrites '?' placeholders for dialects that number them.
func (d Dialect) Rebind(q string) string {
	if !d.Numbered {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

// Migrate creates the tables when they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	for i, stmt := range d.Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s migrate step %d: %w", d.Name, i+1, err)
		}
	}
	return nil
}
