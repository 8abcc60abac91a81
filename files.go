package auth

import (
	"embed"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the migration files for this package, one
// directory per dialect under data/sql/migrations
func GetMigrationsFS() embed.FS {
	return migrationsFS
}
