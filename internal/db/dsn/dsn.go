// Package dsn provides Data Source Name construction utilities for database connections.
package dsn

import (
	"fmt"
	"net/url"

	"github.com/GoUserAdmin/GoUserAdmin/internal/config"
)

// Create builds the Data Source Name for the configured engine.
// The result is accepted by the gorm drivers and by the gofiber storage drivers.
func Create(db config.DB) string {
	switch db.GormEngine {
	case config.EnginePostgres:
		out := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
			url.PathEscape(db.User),
			url.PathEscape(db.Password),
			db.Host,
			db.Port,
			db.Name,
		)

		if db.Extras != "" {
			out += "?" + db.Extras
		}

		return out
	case config.EngineSQLite:
		if db.Path == "" {
			return ":memory:"
		}

		return db.Path
	default:
		extras := db.Extras
		if extras == "" {
			extras = "charset=utf8mb4&parseTime=True&loc=UTC"
		}

		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
			db.User,
			db.Password,
			db.Host,
			db.Port,
			db.Name,
			extras,
		)
	}
}
