// Package app wires configuration, logging, the database and the index
// together for indexctl.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/driveindex/internal/cache"
	"github.com/dmitrijs2005/driveindex/internal/config"
	"github.com/dmitrijs2005/driveindex/internal/dbx"
	"github.com/dmitrijs2005/driveindex/internal/index"
	"github.com/dmitrijs2005/driveindex/internal/logging"
	"github.com/dmitrijs2005/driveindex/internal/query"
	"github.com/dmitrijs2005/driveindex/internal/repositories/repomanager"
	"github.com/dmitrijs2005/driveindex/internal/store"
	"github.com/google/uuid"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	closers  []io.Closer
	db       *sql.DB
	rm       repomanager.RepositoryManager
	identity uuid.UUID
	index    *index.Index
}

// NewApp opens the database named by c and builds the index for its
// identity. Logs go to stderr so stdout stays free for command output.
func NewApp(c *config.Config) (*App, error) {
	dialect, err := c.Dialect()
	if err != nil {
		return nil, err
	}
	identity, err := c.Identity()
	if err != nil {
		return nil, err
	}

	logger, logCloser := logging.New(logging.Options{
		Level:  c.LogLevel,
		Output: os.Stderr,
		File:   c.LogFile,
		JSON:   c.LogJSON,
	})
	log := logger.With("identity", identity)

	db, err := sql.Open(dialect.Driver, c.DatabaseDSN)
	if err != nil {
		_ = logCloser.Close()
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if dialect == dbx.SQLite {
		// One writer at a time; SQLite serialises writes anyway.
		db.SetMaxOpenConns(1)
	}

	rm, err := repomanager.NewSQLRepositoryManager(dialect, identity, log)
	if err != nil {
		_ = db.Close()
		_ = logCloser.Close()
		return nil, err
	}

	var q query.Querier = query.NewEngine(db, dialect, identity, log)
	if c.CacheEnabled {
		qc := cache.New(cache.Options{TTL: c.CacheTTL, MaxEntries: c.CacheMaxEntries})
		q = cache.NewCachedEngine(q, qc, identity, log)
	}

	st := store.New(db, rm, nil, log)
	ix := index.New(st, q, index.Options{SerializeAccess: c.SerializeAccess}, log)

	return &App{
		config:   c,
		logger:   log,
		closers:  []io.Closer{db, logCloser},
		db:       db,
		rm:       rm,
		identity: identity,
		index:    ix,
	}, nil
}

func (app *App) Index() *index.Index { return app.index }

func (app *App) Logger() logging.Logger { return app.logger }

// Migrate brings the schema up to date.
func (app *App) Migrate(ctx context.Context) error {
	if err := app.rm.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

// Close releases the database and the log file.
func (app *App) Close() error {
	var errs []error
	for _, c := range app.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) func() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigs:
			cancelFunc()
		case <-done:
		}
	}()
	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

// Run executes one command, cancelling it on SIGINT/SIGTERM/SIGQUIT.
// Command output is written to stdout as JSON.
func (app *App) Run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	stop := app.initSignalHandler(cancelFunc)
	defer stop()

	return app.dispatch(ctx, args, stdin, stdout)
}
