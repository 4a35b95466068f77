// Package app assembles the store, locks and services shared by the
// HTTP server and the import CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tinoosan/treasury/db"
	"github.com/tinoosan/treasury/internal/audit"
	"github.com/tinoosan/treasury/internal/classify"
	"github.com/tinoosan/treasury/internal/config"
	"github.com/tinoosan/treasury/internal/httpapi"
	"github.com/tinoosan/treasury/internal/joblock"
	"github.com/tinoosan/treasury/internal/ledger"
	"github.com/tinoosan/treasury/internal/service/closure"
	"github.com/tinoosan/treasury/internal/service/importer"
	"github.com/tinoosan/treasury/internal/service/movement"
	"github.com/tinoosan/treasury/internal/storage/memory"
	pgstore "github.com/tinoosan/treasury/internal/storage/postgres"
)

// store is what both backends provide.
type store interface {
	closure.Repo
	closure.Writer
	closure.PeriodLocker
	movement.Repo
	movement.Writer
	importer.Repo
	importer.Writer
	audit.Recorder
	httpapi.Reader
	httpapi.ReadyChecker
}

var (
	_ store = (*memory.Store)(nil)
	_ store = (*pgstore.Store)(nil)
)

// App holds the wired services. Close releases connections.
type App struct {
	Backend   string
	Account   ledger.Account
	Movements movement.Service
	Closures  closure.Service
	Importer  importer.Service
	Jobs      joblock.Locker
	Reader    httpapi.Reader
	Ready     httpapi.ReadyChecker

	closers []func()
}

// Build opens Postgres when DATABASE_URL is set and an in-memory store
// otherwise, then wires the services on top of it.
func Build(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	a := &App{}
	var st store
	if cfg.DatabaseURL != "" {
		pg, err := pgstore.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, pg.Close)
		if err := pg.Migrate(ctx, db.Init); err != nil {
			a.Close()
			return nil, err
		}
		if cfg.DevSeed {
			acc, err := pg.SeedDefaults(ctx, ledger.Account{Code: cfg.AccountCode, Name: "Cuenta tesorería", Currency: "COP", Active: true})
			if err != nil {
				a.Close()
				return nil, fmt.Errorf("dev seed: %w", err)
			}
			a.Account = acc
		}
		st, a.Backend = pg, "postgres"
	} else {
		mem := memory.New()
		a.Account = mem.SeedDefaults(ledger.Account{Code: cfg.AccountCode, Name: "Cuenta tesorería", Currency: "COP", Active: true})
		st, a.Backend = mem, "memory"
	}

	rules := classify.Default()
	if cfg.ClassifierRules != "" {
		t, err := classify.LoadFile(cfg.ClassifierRules)
		if err != nil {
			a.Close()
			return nil, err
		}
		rules = t
	}

	if cfg.RedisAddress != "" {
		rdb, err := joblock.Dial(ctx, cfg.RedisAddress)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		a.Jobs = joblock.NewRedis(rdb, cfg.ImportLockTTL, log)
	} else {
		a.Jobs = joblock.NewLocal()
	}

	a.Closures = closure.New(st, st, st, st, closure.WithLogger(log))
	a.Movements = movement.New(st, st, a.Closures, st, st, movement.WithLogger(log))
	a.Importer = importer.New(st, st, a.Closures, st, importer.WithRules(rules), importer.WithLogger(log))
	a.Reader, a.Ready = st, st
	log.Info("storage backend: "+a.Backend, "account_code", cfg.AccountCode)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
