package store

import (
	"regexp"

	"hazard-identify/api/internal/config"
)

const ddlPostgres = `
create table if not exists hazard_results (
    id         serial primary key,
    image_path text not null,
    context    text,
    result     text,
    created_at timestamp default current_timestamp
)`

const ddlSQLite = `
create table if not exists hazard_results (
    id         integer primary key autoincrement,
    image_path text not null,
    context    text,
    result     text,
    created_at timestamp default current_timestamp
)`

func schemaFor(driver string) string {
	if driver == config.DriverSQLite {
		return ddlSQLite
	}
	return ddlPostgres
}

var rePlaceholder = regexp.MustCompile(`\$\d+`)

// rebind переписывает $1..$n в ? для SQLite. Аргументы должны идти по порядку.
func rebind(driver, q string) string {
	if driver != config.DriverSQLite {
		return q
	}
	return rePlaceholder.ReplaceAllString(q, "?")
}
