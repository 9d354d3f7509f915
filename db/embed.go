// Package db carries the schema migrations so binaries can run without the
// source tree.
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS
