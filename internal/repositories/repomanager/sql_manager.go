package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/driveindex/internal/dbx"
	"github.com/dmitrijs2005/driveindex/internal/logging"
	"github.com/dmitrijs2005/driveindex/internal/migrations"
	"github.com/dmitrijs2005/driveindex/internal/repositories/mainindex"
	"github.com/dmitrijs2005/driveindex/internal/repositories/memberships"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLRepositoryManager vends SQL-backed repositories for one identity and
// dialect.
type SQLRepositoryManager struct {
	dialect  dbx.Dialect
	identity uuid.UUID
	logger   logging.Logger
}

// NewSQLRepositoryManager constructs a RepositoryManager. A nil logger
// silences migration output.
func NewSQLRepositoryManager(dialect dbx.Dialect, identity uuid.UUID, logger logging.Logger) (RepositoryManager, error) {
	if identity == uuid.Nil {
		return nil, fmt.Errorf("repository manager: identity id is required")
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &SQLRepositoryManager{dialect: dialect, identity: identity, logger: logger}, nil
}

func (m *SQLRepositoryManager) Dialect() dbx.Dialect { return m.dialect }

// MainIndex returns a mainindex.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) MainIndex(db dbx.DBTX) mainindex.Repository {
	return mainindex.NewSQLRepository(db, m.dialect, m.identity)
}

// ACL returns the ACL side-table repository bound to the provided DBTX.
func (m *SQLRepositoryManager) ACL(db dbx.DBTX) memberships.Repository {
	return memberships.NewSQLRepository(db, m.dialect, m.identity, memberships.ACL)
}

func (m *SQLRepositoryManager) Tags(db dbx.DBTX) memberships.Repository {
	return memberships.NewSQLRepository(db, m.dialect, m.identity, memberships.Tags)
}

func (m *SQLRepositoryManager) LocalTags(db dbx.DBTX) memberships.Repository {
	return memberships.NewSQLRepository(db, m.dialect, m.identity, memberships.LocalTags)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations for the
// manager's dialect and runs them against db.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(logging.GooseLogger{L: m.logger})
	if err := goose.SetDialect(m.dialect.Goose); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, m.dialect.MigrationsDir); err != nil {
		return err
	}
	return nil
}
