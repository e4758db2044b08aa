package migrations

import "embed"

// Files holds the forward-only SQL that creates and evolves the kv_entries host table.
//
//go:embed *.sql
var Files embed.FS
