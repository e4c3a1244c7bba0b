// Package migrations embeds the SQL schema for the checkout ledger.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
