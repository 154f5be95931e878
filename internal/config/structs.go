package config

import (
	"time"

	"github.com/GoUserAdmin/GoUserAdmin/internal/logger"
)

// Blacklist backends.
const (
	BlacklistMemory   = "memory"
	BlacklistRedis    = "redis"
	BlacklistPostgres = "postgres"
	BlacklistMySQL    = "mysql"
)

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	Title     string
	DB        DB
	Log       logger.Log
	Webserver Webserver
	Auth      Auth
	Blacklist Blacklist
	Admin     Admin
}

// Webserver implement webserver settings.
type Webserver struct {
	DisableRecover bool   // disable recover middleware
	Port           int    // listening port for the webserver
	ShutDownTime   int    // wait time for shutdown in seconds
	URL            string // base url for the webserver
	BodyLimit      int    // max request body size in bytes, 0 = fiber default
}

// Auth holds token, password and throttling settings.
type Auth struct {
	JWTSecret string        `json:"-"` // HS256 signing key, at least 32 bytes
	TokenTTL  time.Duration // token lifetime, default 24h
	Issuer    string

	PasswordAlgorithm string `validate:"omitempty,oneof=bcrypt argon2id"`
	BcryptCost        int    `validate:"omitempty,min=12,max=31"`
	HashConcurrency   int    `validate:"min=0"`

	// DefaultRole is assigned to self registered users. Empty assigns none.
	DefaultRole string

	RateLimit RateLimit
}

// RateLimit configures per client throttling of the login and logout endpoints.
type RateLimit struct {
	Enabled   bool
	PerSecond float64 `validate:"min=0"`
	Burst     int     `validate:"min=0"`
}

// Blacklist selects where invalidated tokens are kept.
type Blacklist struct {
	Backend string // memory, redis, postgres or mysql
	Table   string // table used by the postgres and mysql backends
	Redis   Redis
}

// Redis holds the redis connection settings.
type Redis struct {
	Addr     string
	Password string `json:"-"`
	DB       int
	Prefix   string
}

// Admin is the account created on first start when no user exists.
type Admin struct {
	Name     string
	Email    string `validate:"omitempty,email"`
	Password string `json:"-"`
}
