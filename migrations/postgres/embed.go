// Package migrations embeds SQL migration files.
package migrations

import "embed"

// PostgresFS contiene el schema de los registros OAuth, aplicado en orden lexicográfico.
//
//go:embed *.sql
var PostgresFS embed.FS
