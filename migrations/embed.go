// Package migrations holds the goose SQL migrations, embedded so the API
// binary, the migrate command and the integration tests share one source.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
