package mainindex

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/driveindex/internal/models"
)

// Table is the main index table name.
const Table = "driveMainIndex"

var columns = []string{
	"identityId", "driveId", "fileId", "globalTransitId", "fileState",
	"requiredSecurityGroup", "fileSystemType", "userDate", "fileType", "dataType",
	"archivalStatus", "senderId", "groupId", "uniqueId", "byteCount",
	"hdrEncryptedKeyHeader", "hdrVersionTag", "hdrAppData", "hdrReactionSummary",
	"hdrServerData", "hdrTransferHistory", "hdrFileMetaData", "hdrLocalVersionTag",
	"hdrLocalAppData", "created", "modified", "rowId",
}

// Columns returns the select list understood by ScanRecord, each column
// prefixed with alias when one is given.
func Columns(alias string) string {
	if alias == "" {
		return strings.Join(columns, ", ")
	}
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = alias + "." + c
	}
	return strings.Join(parts, ", ")
}

type scanner interface {
	Scan(dest ...any) error
}

// ScanRecord reads one row selected with Columns.
func ScanRecord(s scanner) (*models.MainIndexRecord, error) {
	var (
		r                                     models.MainIndexRecord
		identity, drive, file, versionTag     []byte
		globalTransitID, groupID, uniqueID    []byte
		localVersionTag                       []byte
		sender                                sql.NullString
		fileState, rsg, fst, fileType, dtType int64
		archival                              int64
	)
	err := s.Scan(
		&identity, &drive, &file, &globalTransitID, &fileState,
		&rsg, &fst, &r.UserDate, &fileType, &dtType,
		&archival, &sender, &groupID, &uniqueID, &r.ByteCount,
		&r.EncryptedKeyHeader, &versionTag, &r.AppData, &r.ReactionSummary,
		&r.ServerData, &r.TransferHistory, &r.FileMetaData, &localVersionTag,
		&r.LocalAppData, &r.Created, &r.Modified, &r.RowID,
	)
	if err != nil {
		return nil, err
	}

	if r.IdentityID, err = models.ParseKey(identity); err != nil {
		return nil, fmt.Errorf("identityId: %w", err)
	}
	if r.DriveID, err = models.ParseKey(drive); err != nil {
		return nil, fmt.Errorf("driveId: %w", err)
	}
	if r.FileID, err = models.ParseKey(file); err != nil {
		return nil, fmt.Errorf("fileId: %w", err)
	}
	if r.VersionTag, err = models.ParseKey(versionTag); err != nil {
		return nil, fmt.Errorf("hdrVersionTag: %w", err)
	}
	if r.GlobalTransitID, err = models.ParseOptKey(globalTransitID); err != nil {
		return nil, fmt.Errorf("globalTransitId: %w", err)
	}
	if r.LocalVersionTag, err = models.ParseOptKey(localVersionTag); err != nil {
		return nil, fmt.Errorf("hdrLocalVersionTag: %w", err)
	}
	if r.GroupID, err = models.ParseOptKey(groupID); err != nil {
		return nil, fmt.Errorf("groupId: %w", err)
	}
	if r.UniqueID, err = models.ParseOptKey(uniqueID); err != nil {
		return nil, fmt.Errorf("uniqueId: %w", err)
	}
	if sender.Valid {
		s := sender.String
		r.SenderID = &s
	}
	r.FileState = models.FileState(fileState)
	r.RequiredSecurityGroup = int32(rsg)
	r.FileSystemType = models.FileSystemType(fst)
	r.FileType = int32(fileType)
	r.DataType = int32(dtType)
	r.ArchivalStatus = int32(archival)
	return &r, nil
}
