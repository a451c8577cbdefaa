// Package migrations holds the SQLite schema for session storage.
package migrations

import "embed"

// FS contains the embedded SQLite migrations.
//
//go:embed *.sql
var FS embed.FS
