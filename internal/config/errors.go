package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("config webserver.port listening port can not be 0")

	// ErrJWTSecretMissing error if no token signing secret is configured.
	ErrJWTSecretMissing = errors.New("config auth.jwtSecret can not be empty")

	// ErrUnknownBlacklistBackend error if blacklist.backend is not supported.
	ErrUnknownBlacklistBackend = errors.New("config blacklist.backend is not supported")

	// ErrRedisAddrMissing error if the redis blacklist backend is selected without an address.
	ErrRedisAddrMissing = errors.New("config blacklist.redis.addr can not be empty")
)
