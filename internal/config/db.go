package config

// Database engines supported by the gorm layer.
const (
	EngineMySQL    = "mysql"
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"
)

// DB holds the database configuration settings.
type DB struct {
	Extras     string // extra DSN parameters, appended verbatim
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	GormEngine string `validate:"oneof=mysql postgres sqlite"`
	Path       string // sqlite database file, ":memory:" for a throwaway database
	Debug      bool   // log every SQL statement
}
