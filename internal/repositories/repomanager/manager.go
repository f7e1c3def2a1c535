// Package repomanager vends the index repositories bound to a DBTX and
// runs the embedded schema migrations through goose.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/driveindex/internal/dbx"
	"github.com/dmitrijs2005/driveindex/internal/repositories/mainindex"
	"github.com/dmitrijs2005/driveindex/internal/repositories/memberships"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Dialect() dbx.Dialect
	MainIndex(db dbx.DBTX) mainindex.Repository
	ACL(db dbx.DBTX) memberships.Repository
	Tags(db dbx.DBTX) memberships.Repository
	LocalTags(db dbx.DBTX) memberships.Repository
}
