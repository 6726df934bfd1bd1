// Package librarian holds assets embedded into the librarian binary.
package librarian

import "embed"

// Migrations contains the goose SQL migrations for the PostgreSQL backend.
//
//go:embed migrations/*.sql
var Migrations embed.FS
