// Package config reads etc/main.toml, the environment and an optional .env file.
package config

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment override, e.g. GOUSERADMIN_AUTH_JWTSECRET.
	EnvPrefix = "GOUSERADMIN"

	// EnvJSON holds a JSON document merged over the file configuration.
	EnvJSON = "GO_USER_ADMIN_CONFIG_JSON"

	invalidErrMessage = "invalid config"
)

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var c Config

	if path == "" {
		path = "./etc/"
	}

	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, errors.Wrap(err, "failed to read .env file")
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("main")
	v.SetConfigType("toml")
	v.AddConfigPath(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	if err := v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode main config file")
	}

	// override it from env
	if jsonConfig := os.Getenv(EnvJSON); jsonConfig != "" {
		var err error

		c, err = decodeAndMergeConfig(c, jsonConfig)
		if err != nil {
			return c, err
		}
	}

	return c, validate(&c)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("title", "GoUserAdmin")
	v.SetDefault("webserver.port", 8080)
	v.SetDefault("webserver.url", "http://localhost:8080")
	v.SetDefault("webserver.shutdowntime", 5)
	v.SetDefault("db.gormengine", EngineSQLite)
	v.SetDefault("db.path", "gouseradmin.db")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.tokenttl", 24*time.Hour)
	v.SetDefault("auth.issuer", "gouseradmin")
	v.SetDefault("auth.passwordalgorithm", "bcrypt")
	v.SetDefault("auth.bcryptcost", 12)
	v.SetDefault("auth.defaultrole", "")
	v.SetDefault("auth.ratelimit.enabled", true)
	v.SetDefault("auth.ratelimit.persecond", 1)
	v.SetDefault("auth.ratelimit.burst", 5)
	v.SetDefault("blacklist.backend", BlacklistMemory)
	v.SetDefault("blacklist.table", "token_blacklist")
	v.SetDefault("blacklist.redis.addr", "")
	v.SetDefault("blacklist.redis.password", "")
	v.SetDefault("admin.name", "Administrator")
	v.SetDefault("admin.email", "")
	v.SetDefault("admin.password", "")
	v.SetDefault("log.loglevel", "info")
	v.SetDefault("log.appname", "gouseradmin")
	v.SetDefault("log.servicename", "gouseradmin")
	v.SetDefault("log.console.enabled", true)
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read json config from env")
	}

	return c, nil
}

// DumpConfig config as TOML String. Secrets are redacted.
func DumpConfig(c Config) (string, error) {
	var buffer bytes.Buffer

	if err := toml.NewEncoder(&buffer).Encode(redact(c)); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// DumpConfigJSON config as JSON String. Secrets are omitted.
func DumpConfigJSON(c Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

func redact(c Config) Config {
	const mask = "********"

	if c.Auth.JWTSecret != "" {
		c.Auth.JWTSecret = mask
	}

	if c.DB.Password != "" {
		c.DB.Password = mask
	}

	if c.Blacklist.Redis.Password != "" {
		c.Blacklist.Redis.Password = mask
	}

	if c.Admin.Password != "" {
		c.Admin.Password = mask
	}

	return c
}

// validate checks the settings the daemon can not start without and fills defaults.
func validate(c *Config) error {
	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = 5 // set default of 5 seconds
	}

	if c.Auth.JWTSecret == "" {
		return errors.Wrap(ErrJWTSecretMissing, invalidErrMessage)
	}

	switch c.Blacklist.Backend {
	case "", BlacklistMemory, BlacklistPostgres, BlacklistMySQL:
	case BlacklistRedis:
		if c.Blacklist.Redis.Addr == "" {
			return errors.Wrap(ErrRedisAddrMissing, invalidErrMessage)
		}
	default:
		return errors.Wrapf(ErrUnknownBlacklistBackend, "%s: %q", invalidErrMessage, c.Blacklist.Backend)
	}

	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, invalidErrMessage)
	}

	return nil
}
