package storage

import "strconv"

// Dialect describes the SQL differences between supported drivers.
type Dialect struct {
	// Name labels errors and logs.
	Name string

	// Driver is the database/sql driver name.
	Driver string

	numbered bool
}

var (
	// SQLite is the pure Go driver from modernc.org/sqlite.
	SQLite = Dialect{Name: "sqlite", Driver: "sqlite"}

	// SQLite3 is the cgo driver from github.com/mattn/go-sqlite3.
	SQLite3 = Dialect{Name: "sqlite3", Driver: "sqlite3"}

	// Postgres is github.com/lib/pq.
	Postgres = Dialect{Name: "postgres", Driver: "postgres", numbered: true}
)

// Placeholder returns the bind parameter for the n-th argument, counted
// from 1.
func (d Dialect) Placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// embedded reports whether the database is a local file that allows a
// single writer.
func (d Dialect) embedded() bool {
	return !d.numbered
}
