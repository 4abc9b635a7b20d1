package main

import (
	"fmt"
	"strconv"
	"strings"
)

// Supported store drivers. The values are the database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// dialect holds what differs between the supported relational stores.
// Tables are listed leaves-first so that foreign keys resolve on creation.
type dialect struct {
	name   string
	schema []string
	rebind func(query string) string
}

var sqliteDialect = dialect{
	name: DriverSQLite,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS ContactDetails (
	contact_id INTEGER PRIMARY KEY AUTOINCREMENT,
	fname TEXT NOT NULL,
	sname TEXT NOT NULL,
	email TEXT UNIQUE NOT NULL,
	mobile TEXT,
	newsletter_opt_in INTEGER DEFAULT 0
)`,
		`CREATE TABLE IF NOT EXISTS BookRequests (
	request_id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	author TEXT NOT NULL,
	comments TEXT,
	request_date TEXT NOT NULL,
	contact_id INTEGER NOT NULL,
	FOREIGN KEY (contact_id) REFERENCES ContactDetails(contact_id)
)`,
	},
	rebind: func(query string) string { return query },
}

var postgresDialect = dialect{
	name: DriverPostgres,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS ContactDetails (
	contact_id BIGSERIAL PRIMARY KEY,
	fname TEXT NOT NULL,
	sname TEXT NOT NULL,
	email TEXT UNIQUE NOT NULL,
	mobile TEXT,
	newsletter_opt_in BOOLEAN DEFAULT FALSE
)`,
		`CREATE TABLE IF NOT EXISTS BookRequests (
	request_id BIGSERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	author TEXT NOT NULL,
	comments TEXT,
	request_date TEXT NOT NULL,
	contact_id BIGINT NOT NULL REFERENCES ContactDetails(contact_id)
)`,
	},
	rebind: rebindDollar,
}

// dialectFor returns the dialect of a given driver name.
func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite:
		return sqliteDialect, nil
	case DriverPostgres:
		return postgresDialect, nil
	}
	return dialect{}, fmt.Errorf("unsupported store driver %q", driver)
}

// rebindDollar replaces each `?` placeholder with its positional `$n` form.
func rebindDollar(query string) string {
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
