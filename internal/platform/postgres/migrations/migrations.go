// Package migrations embeds the goose SQL migration set.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
