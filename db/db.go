// Package db carries the Postgres schema so binaries can apply it on start.
package db

import _ "embed"

// Init creates every table and index; it is safe to run repeatedly.
//
//go:embed migrations/0001_init.sql
var Init string
