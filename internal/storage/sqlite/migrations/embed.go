package migrations

import "embed"

// FS contains embedded SQLite migrations for simulation history.
//
//go:embed *.sql
var FS embed.FS
