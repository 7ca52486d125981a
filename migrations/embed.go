// Package migrations embeds the SQL schema so the binary does not depend on
// the working directory at startup.
package migrations

import "embed"

// FS holds the *.up.sql / *.down.sql files applied by core/database.RunMigrations.
//
//go:embed *.sql
var FS embed.FS
