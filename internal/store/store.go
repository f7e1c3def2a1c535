// Package store applies writes to the drive index. Every multi-table change
// runs in a single transaction so the main row and its memberships never
// disagree.
package store

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/driveindex/internal/dbx"
	"github.com/dmitrijs2005/driveindex/internal/logging"
	"github.com/dmitrijs2005/driveindex/internal/models"
	"github.com/dmitrijs2005/driveindex/internal/repositories/repomanager"
	"github.com/dmitrijs2005/driveindex/internal/timex"
	"github.com/google/uuid"
)

type Store struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	clock       timex.Clock
	logger      logging.Logger
}

// New constructs a Store. A nil clock uses time.Now and a nil logger
// discards output.
func New(db *sql.DB, rm repomanager.RepositoryManager, clock timex.Clock, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Store{db: db, repomanager: rm, clock: clock, logger: logger.With("component", "store")}
}

// Upsert writes rec and, when supplied, replaces its ACL members and tags.
// A nil acl or tags leaves that membership untouched; an empty slice clears
// it. It returns 1 on success. When rec.VersionTag no longer matches the
// stored row nothing is written and common.ErrVersionConflict is returned.
func (s *Store) Upsert(ctx context.Context, rec *models.MainIndexRecord, acl, tags []uuid.UUID) (int, error) {
	now := s.clock.UnixMilli()
	staged := *rec

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.MainIndex(tx).Upsert(ctx, &staged, now); err != nil {
			return err
		}
		if acl != nil {
			if err := s.repomanager.ACL(tx).Replace(ctx, rec.DriveID, rec.FileID, acl); err != nil {
				return err
			}
		}
		if tags != nil {
			if err := s.repomanager.Tags(tx).Replace(ctx, rec.DriveID, rec.FileID, tags); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Warn(ctx, "upsert failed", "drive", rec.DriveID, "file", rec.FileID, "error", err)
		return 0, err
	}

	// Only a committed write is reflected back into the caller's record.
	*rec = staged
	s.logger.Debug(ctx, "upsert", "drive", rec.DriveID, "file", rec.FileID, "modified", rec.Modified, "rowId", rec.RowID)
	return 1, nil
}

// Delete removes a file together with its ACL, tag and local-tag rows and
// returns the number of main rows removed.
func (s *Store) Delete(ctx context.Context, driveID, fileID uuid.UUID) (int, error) {
	var n int
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.ACL(tx).DeleteAll(ctx, driveID, fileID); err != nil {
			return err
		}
		if _, err := s.repomanager.Tags(tx).DeleteAll(ctx, driveID, fileID); err != nil {
			return err
		}
		if _, err := s.repomanager.LocalTags(tx).DeleteAll(ctx, driveID, fileID); err != nil {
			return err
		}
		var err error
		n, err = s.repomanager.MainIndex(tx).Delete(ctx, driveID, fileID)
		return err
	})
	if err != nil {
		s.logger.Warn(ctx, "delete failed", "drive", driveID, "file", fileID, "error", err)
		return 0, err
	}
	s.logger.Debug(ctx, "delete", "drive", driveID, "file", fileID, "rows", n)
	return n, nil
}

// UpdateLocalTags replaces the local tags of a file. The main row is not
// touched, so its version tag and modified stamp stay as they are.
func (s *Store) UpdateLocalTags(ctx context.Context, driveID, fileID uuid.UUID, tags []uuid.UUID) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.LocalTags(tx).Replace(ctx, driveID, fileID, tags)
	})
}

// UpdateLocalMetadata writes the local app data of a file, guarded by its
// local version tag, and when tags is not nil replaces its local tags in
// the same transaction. oldTag is the local version tag the caller last
// saw (uuid.Nil for a file without local data). It returns the new local
// version tag.
func (s *Store) UpdateLocalMetadata(ctx context.Context, driveID, fileID, oldTag uuid.UUID, data []byte, tags []uuid.UUID) (uuid.UUID, error) {
	newTag := uuid.New()
	now := s.clock.UnixMilli()

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.MainIndex(tx).UpdateLocalAppMetadata(ctx, driveID, fileID, oldTag, newTag, data, now); err != nil {
			return err
		}
		if tags == nil {
			return nil
		}
		return s.repomanager.LocalTags(tx).Replace(ctx, driveID, fileID, tags)
	})
	if err != nil {
		s.logger.Warn(ctx, "local metadata update failed", "drive", driveID, "file", fileID, "error", err)
		return uuid.Nil, err
	}
	return newTag, nil
}

// UpdateReactionSummary overwrites the reaction summary blob and bumps
// modified. It returns the number of rows updated.
func (s *Store) UpdateReactionSummary(ctx context.Context, driveID, fileID uuid.UUID, summary []byte) (int, error) {
	return s.repomanager.MainIndex(s.db).UpdateReactionSummary(ctx, driveID, fileID, summary, s.clock.UnixMilli())
}

// UpdateTransferHistory overwrites the transfer history blob and returns
// the new modified stamp and the number of rows updated.
func (s *Store) UpdateTransferHistory(ctx context.Context, driveID, fileID uuid.UUID, history []byte) (int64, int, error) {
	return s.repomanager.MainIndex(s.db).UpdateTransferHistory(ctx, driveID, fileID, history, s.clock.UnixMilli())
}

func (s *Store) Get(ctx context.Context, driveID, fileID uuid.UUID) (*models.MainIndexRecord, error) {
	return s.repomanager.MainIndex(s.db).Get(ctx, driveID, fileID)
}

func (s *Store) GetByUniqueID(ctx context.Context, driveID, uniqueID uuid.UUID) (*models.MainIndexRecord, error) {
	return s.repomanager.MainIndex(s.db).GetByUniqueID(ctx, driveID, uniqueID)
}

func (s *Store) GetByGlobalTransitID(ctx context.Context, driveID, globalTransitID uuid.UUID) (*models.MainIndexRecord, error) {
	return s.repomanager.MainIndex(s.db).GetByGlobalTransitID(ctx, driveID, globalTransitID)
}

// DriveSize returns the number of files in a drive and their total bytes.
func (s *Store) DriveSize(ctx context.Context, driveID uuid.UUID) (int64, int64, error) {
	return s.repomanager.MainIndex(s.db).DriveSize(ctx, driveID)
}

func (s *Store) TotalSize(ctx context.Context) (int64, error) {
	return s.repomanager.MainIndex(s.db).TotalSize(ctx)
}

func (s *Store) ACL(ctx context.Context, driveID, fileID uuid.UUID) ([]uuid.UUID, error) {
	return s.repomanager.ACL(s.db).List(ctx, driveID, fileID)
}

func (s *Store) Tags(ctx context.Context, driveID, fileID uuid.UUID) ([]uuid.UUID, error) {
	return s.repomanager.Tags(s.db).List(ctx, driveID, fileID)
}

func (s *Store) LocalTags(ctx context.Context, driveID, fileID uuid.UUID) ([]uuid.UUID, error) {
	return s.repomanager.LocalTags(s.db).List(ctx, driveID, fileID)
}
