package migrations

import "embed"

// Files holds the schema migrations, one directory per SQL dialect.
//
//go:embed postgres/*.sql sqlite/*.sql
var Files embed.FS
