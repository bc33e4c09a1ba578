package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/mocktest/internal/auth"
	"github.com/abhisek/mocktest/internal/config"
	"github.com/abhisek/mocktest/internal/logging"
	"github.com/abhisek/mocktest/internal/portal"
	"github.com/abhisek/mocktest/internal/store"
	"github.com/abhisek/mocktest/internal/testsession"
)

// env bundles what a command needs: settings, a logger and, when opened,
// the local store.
type env struct {
	cfg      *config.Config
	log      *zap.Logger
	store    *store.Store
	closeLog func()
}

// setup loads config and starts logging. console, when non-nil, also
// receives human-readable logs; the terminal UI passes nil since it owns
// stdout.
func setup(console io.Writer) (*env, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	log, closeLog, err := logging.New(logging.Options{
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
		Console: console,
	})
	if err != nil {
		return nil, fmt.Errorf("start logging: %w", err)
	}
	return &env{cfg: cfg, log: log, closeLog: closeLog}, nil
}

// openStore opens the local database at --db, MOCKTEST_DB or the default
// XDG path.
func (e *env) openStore() error {
	path := e.cfg.DB
	if path != "" {
		if err := store.EnsureDir(path); err != nil {
			return fmt.Errorf("resolve DB path: %w", err)
		}
	} else {
		p, err := store.DefaultDBPath()
		if err != nil {
			return fmt.Errorf("resolve DB path: %w", err)
		}
		path = p
	}
	st, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	e.store = st
	e.log.Debug("store opened", zap.String("path", path))
	return nil
}

// portal builds a portal client from the connection settings.
func (e *env) portal() (*portal.Client, error) {
	if err := e.cfg.RequirePortal(); err != nil {
		return nil, err
	}
	retry := portal.DefaultRetryConfig()
	retry.MaxAttempts = e.cfg.HTTP.Retries + 1
	return portal.New(portal.Config{
		BaseURL: e.cfg.APIURL,
		Token:   e.cfg.Token,
		Timeout: e.cfg.HTTP.Timeout,
		Retry:   retry,
	}, e.log.Named("portal"))
}

// sessionFactory returns a constructor for test sessions wired to the
// portal and the local store.
func (e *env) sessionFactory(client *portal.Client) func() *testsession.Controller {
	identity := auth.NewTokenIdentity(e.cfg.Token)
	return func() *testsession.Controller {
		return testsession.New(testsession.Deps{
			Identity:  identity,
			Catalog:   client,
			Questions: client,
			Results:   client,
			KV:        e.store.KV(),
			Events:    e.store.EventRepo(),
			Logger:    e.log.Named("session"),
		})
	}
}

func (e *env) Close() {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.log.Warn("close store", zap.Error(err))
		}
	}
	e.closeLog()
}

// withEnv runs fn with a ready env and tears it down afterwards.
func withEnv(console io.Writer, needStore bool, fn func(e *env) error) error {
	e, err := setup(console)
	if err != nil {
		return err
	}
	defer e.Close()
	if needStore {
		if err := e.openStore(); err != nil {
			return err
		}
	}
	return fn(e)
}

// studentFor resolves the student from --student or the configured token.
func studentFor(cmd *cobra.Command, e *env) (string, error) {
	if s, _ := cmd.Flags().GetString("student"); s != "" {
		return s, nil
	}
	id, err := auth.NewTokenIdentity(e.cfg.Token).StudentID(cmd.Context())
	if err != nil {
		return "", fmt.Errorf("resolve student (pass --student or configure a token): %w", err)
	}
	return id, nil
}
