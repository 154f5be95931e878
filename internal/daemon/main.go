// Package daemon assembles the configured services and runs the web server.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoUserAdmin/GoUserAdmin/internal/auth"
	"github.com/GoUserAdmin/GoUserAdmin/internal/authz"
	"github.com/GoUserAdmin/GoUserAdmin/internal/config"
	"github.com/GoUserAdmin/GoUserAdmin/internal/db"
	"github.com/GoUserAdmin/GoUserAdmin/internal/password"
	"github.com/GoUserAdmin/GoUserAdmin/internal/rbac"
	"github.com/GoUserAdmin/GoUserAdmin/internal/token"
	"github.com/GoUserAdmin/GoUserAdmin/internal/web"
	"github.com/GoUserAdmin/GoUserAdmin/internal/web/handler"
	authmiddleware "github.com/GoUserAdmin/GoUserAdmin/internal/web/middleware/auth"
)

// ErrConfigNil is returned by New without a configuration.
var ErrConfigNil = errors.New("config is nil")

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	db         *gorm.DB
	webService *web.Service
	closers    []io.Closer
}

// New opens the database, synchronizes the role catalog, seeds the first admin
// and builds the web service.
func New(ctx context.Context, cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	d := &Daemon{cfg: cfg}

	deps, err := d.build(ctx)
	if err != nil {
		d.Close()

		return nil, err
	}

	if d.webService, err = web.New(deps); err != nil {
		d.Close()

		return nil, err
	}

	return d, nil
}

func (d *Daemon) build(ctx context.Context) (*handler.Deps, error) {
	cfg := d.cfg

	gdb, err := db.Open(cfg.DB)
	if err != nil {
		return nil, err
	}

	d.db = gdb

	if err = db.Migrate(gdb); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	repo := rbac.NewRepository(gdb)

	if err = rbac.Sync(ctx, repo, rbac.Definitions()); err != nil {
		return nil, fmt.Errorf("failed to synchronize roles: %w", err)
	}

	table, err := rbac.LoadTable(ctx, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to load role table: %w", err)
	}

	bl, closer, err := newBlacklist(cfg.Blacklist, cfg.DB)
	if err != nil {
		return nil, err
	}

	if closer != nil {
		d.closers = append(d.closers, closer)
	}

	tokens, err := token.New(token.Config{
		Secret: cfg.Auth.JWTSecret,
		TTL:    cfg.Auth.TokenTTL,
		Issuer: cfg.Auth.Issuer,
	}, bl)
	if err != nil {
		return nil, err
	}

	hasher, err := password.New(password.Options{
		Algorithm:   password.Algorithm(cfg.Auth.PasswordAlgorithm),
		Cost:        cfg.Auth.BcryptCost,
		Concurrency: cfg.Auth.HashConcurrency,
	})
	if err != nil {
		return nil, err
	}

	svc, err := auth.New(gdb, repo, hasher, tokens, authz.New(repo, table), auth.Options{
		DefaultRole: cfg.Auth.DefaultRole,
	})
	if err != nil {
		return nil, err
	}

	if err = seed(ctx, cfg.Admin, gdb, svc, repo); err != nil {
		return nil, err
	}

	return &handler.Deps{
		Cfg:   cfg,
		DB:    gdb,
		Auth:  svc,
		Repo:  repo,
		Table: table,
		Guard: authmiddleware.New(svc),
	}, nil
}

// Start runs the web service until SIGINT or SIGTERM, then releases every resource.
func (d *Daemon) Start() error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- d.webService.Start(web.Addr(d.cfg.Webserver.Port))
	}()

	go d.webService.WaitShutdown()

	err := <-errCh

	d.Close()

	return err
}

// Close releases the blacklist backend and the database connection.
func (d *Daemon) Close() {
	for _, c := range d.closers {
		if err := c.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close blacklist backend")
		}
	}

	d.closers = nil

	if d.db == nil {
		return
	}

	if sqlDB, err := d.db.DB(); err == nil {
		if err = sqlDB.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		}
	}

	d.db = nil
}
