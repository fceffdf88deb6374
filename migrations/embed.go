// Package migrations holds the SQL schema of the scheduler, applied in file name order.
package migrations

import "embed"

// FS contains every migration file shipped with the binary.
//
//go:embed *.sql
var FS embed.FS
