package migrations

import "embed"

// FS holds the MySQL schema migrations in golang-migrate file naming.
//
//go:embed *.sql
var FS embed.FS
