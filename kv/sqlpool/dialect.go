package sqlpool

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// DriverSQLite selects github.com/mattn/go-sqlite3.
	DriverSQLite = "sqlite3"
	// DriverPostgres selects github.com/lib/pq.
	DriverPostgres = "postgres"
)

type dialect struct {
	name   string
	rebind func(string) string
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite:
		return dialect{name: DriverSQLite, rebind: func(q string) string { return q }}, nil
	case DriverPostgres:
		return dialect{name: DriverPostgres, rebind: dollarPlaceholders}, nil
	default:
		return dialect{}, fmt.Errorf("sqlpool: unsupported driver %q", driver)
	}
}

// dollarPlaceholders rewrites ? placeholders to $1, $2, ... Queries in this
// package never contain a literal '?'.
func dollarPlaceholders(q string) string {
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
