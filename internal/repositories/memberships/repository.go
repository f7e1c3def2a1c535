// Package memberships stores the per-file side tables: ACL members, tags
// and local tags. All three share one shape, so one repository serves
// them, parameterised by Table.
package memberships

import (
	"context"

	"github.com/google/uuid"
)

// Table names a side table and its member column.
type Table struct {
	Name   string
	Column string
}

var (
	ACL       = Table{Name: "driveAclIndex", Column: "aclMemberId"}
	Tags      = Table{Name: "driveTagIndex", Column: "tagId"}
	LocalTags = Table{Name: "driveLocalTagIndex", Column: "tagId"}
)

type Repository interface {
	// Replace deletes every member of the file and inserts ids.
	Replace(ctx context.Context, driveID, fileID uuid.UUID, ids []uuid.UUID) error
	DeleteAll(ctx context.Context, driveID, fileID uuid.UUID) (int64, error)
	Insert(ctx context.Context, driveID, fileID uuid.UUID, ids []uuid.UUID) error
	List(ctx context.Context, driveID, fileID uuid.UUID) ([]uuid.UUID, error)
}
