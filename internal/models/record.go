// Package models holds the index row types shared by the repositories,
// the query engines and the cache.
package models

import (
	"bytes"

	"github.com/google/uuid"
)

type FileState int32

const (
	FileStateActive  FileState = 0
	FileStateDeleted FileState = 1
)

type FileSystemType int32

const (
	FileSystemTypeComment  FileSystemType = 32
	FileSystemTypeStandard FileSystemType = 128
)

// MainIndexRecord is one indexed file. (IdentityID, DriveID, FileID) is
// unique. Created, Modified, RowID and VersionTag are assigned by the store.
type MainIndexRecord struct {
	IdentityID uuid.UUID `json:"identityId"`
	DriveID    uuid.UUID `json:"driveId"`
	FileID     uuid.UUID `json:"fileId"`

	GlobalTransitID       *uuid.UUID     `json:"globalTransitId,omitempty"`
	FileState             FileState      `json:"fileState"`
	RequiredSecurityGroup int32          `json:"requiredSecurityGroup"`
	FileSystemType        FileSystemType `json:"fileSystemType"`
	UserDate              int64          `json:"userDate"`
	FileType              int32          `json:"fileType"`
	DataType              int32          `json:"dataType"`
	ArchivalStatus        int32          `json:"archivalStatus"`
	SenderID              *string        `json:"senderId,omitempty"`
	GroupID               *uuid.UUID     `json:"groupId,omitempty"`
	UniqueID              *uuid.UUID     `json:"uniqueId,omitempty"`
	ByteCount             int64          `json:"byteCount"`

	EncryptedKeyHeader []byte `json:"hdrEncryptedKeyHeader,omitempty"`
	AppData            []byte `json:"hdrAppData,omitempty"`
	ReactionSummary    []byte `json:"hdrReactionSummary,omitempty"`
	ServerData         []byte `json:"hdrServerData,omitempty"`
	TransferHistory    []byte `json:"hdrTransferHistory,omitempty"`
	FileMetaData       []byte `json:"hdrFileMetaData,omitempty"`

	// Local metadata belongs to this identity only and has its own version
	// tag; Upsert never writes it.
	LocalVersionTag *uuid.UUID `json:"hdrLocalVersionTag,omitempty"`
	LocalAppData    []byte     `json:"hdrLocalAppData,omitempty"`

	VersionTag uuid.UUID `json:"hdrVersionTag"`
	Created    int64     `json:"created"`
	Modified   int64     `json:"modified"`
	RowID      int64     `json:"rowId"`
}

// Clone returns a deep copy so cached results can be handed out safely.
func (r *MainIndexRecord) Clone() *MainIndexRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.GlobalTransitID = cloneUUID(r.GlobalTransitID)
	c.GroupID = cloneUUID(r.GroupID)
	c.UniqueID = cloneUUID(r.UniqueID)
	if r.SenderID != nil {
		s := *r.SenderID
		c.SenderID = &s
	}
	c.EncryptedKeyHeader = bytes.Clone(r.EncryptedKeyHeader)
	c.AppData = bytes.Clone(r.AppData)
	c.ReactionSummary = bytes.Clone(r.ReactionSummary)
	c.ServerData = bytes.Clone(r.ServerData)
	c.TransferHistory = bytes.Clone(r.TransferHistory)
	c.FileMetaData = bytes.Clone(r.FileMetaData)
	c.LocalVersionTag = cloneUUID(r.LocalVersionTag)
	c.LocalAppData = bytes.Clone(r.LocalAppData)
	return &c
}

func cloneUUID(u *uuid.UUID) *uuid.UUID {
	if u == nil {
		return nil
	}
	v := *u
	return &v
}

// CloneRecords deep-copies a result page.
func CloneRecords(in []*MainIndexRecord) []*MainIndexRecord {
	if in == nil {
		return nil
	}
	out := make([]*MainIndexRecord, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}
