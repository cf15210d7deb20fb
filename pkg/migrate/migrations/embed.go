// Package migrations embeds the goose SQL files for the key-value table.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
