package query

import (
	"strings"
	"testing"

	"github.com/dmitrijs2005/driveindex/internal/common"
	"github.com/dmitrijs2005/driveindex/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterValidate(t *testing.T) {
	fst := models.FileSystemTypeStandard

	tests := []struct {
		name  string
		f     Filter
		field string
	}{
		{"missing file system type", Filter{SecurityGroup: &IntRange{}}, "fileSystemType"},
		{"missing security group", Filter{FileSystemType: &fst}, "securityGroup"},
		{"inverted security group", Filter{FileSystemType: &fst, SecurityGroup: &IntRange{Start: 5, End: 1}}, "securityGroup"},
		{"inverted user date", func() Filter { f := stdFilter(); f.UserDate = &TimeRange{Start: 9, End: 1}; return f }(), "userDate"},
		{"empty tags all-of", func() Filter { f := stdFilter(); f.TagsAllOf = []uuid.UUID{}; return f }(), "tagsAllOf"},
		{"empty local tags all-of", func() Filter { f := stdFilter(); f.LocalTagsAllOf = []uuid.UUID{}; return f }(), "localTagsAllOf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(identity, key(1), tt.f)
			require.ErrorIs(t, err, common.ErrValidation)

			var ve *common.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestBuild_Scope(t *testing.T) {
	p, err := Build(identity, key(9), stdFilter())
	require.NoError(t, err)

	assert.Empty(t, p.Join)
	assert.Equal(t, "m.identityId = ? AND m.driveId = ? AND m.fileSystemType = ? AND m.requiredSecurityGroup BETWEEN ? AND ?", p.SQL())
	assert.Equal(t, []any{models.Key(identity), models.Key(key(9)), int64(128), int64(0), int64(0)}, p.Args)
}

func TestBuild_ACLJoin(t *testing.T) {
	f := stdFilter()
	f.ACLAnyOf = []uuid.UUID{key(1), key(2)}

	p, err := Build(identity, key(9), f)
	require.NoError(t, err)

	assert.Contains(t, p.Join, "LEFT JOIN driveAclIndex acl ON acl.identityId = m.identityId AND acl.driveId = m.driveId AND acl.fileId = m.fileId")
	assert.Contains(t, p.SQL(), "(acl.fileId IS NULL OR acl.aclMemberId IN (?, ?))")
	assert.Equal(t, models.Key(key(2)), p.Args[len(p.Args)-1])
}

func TestBuild_EmptyACLMeansOpenFilesOnly(t *testing.T) {
	f := stdFilter()
	f.ACLAnyOf = []uuid.UUID{}

	p, err := Build(identity, key(9), f)
	require.NoError(t, err)
	assert.NotEmpty(t, p.Join)
	assert.True(t, strings.HasSuffix(p.SQL(), "acl.fileId IS NULL"))
}

func TestBuild_NilVersusEmptyAnyOf(t *testing.T) {
	f := stdFilter()
	f.FileTypeAnyOf = nil
	f.DataTypeAnyOf = []int32{}

	p, err := Build(identity, key(9), f)
	require.NoError(t, err)
	assert.NotContains(t, p.SQL(), "m.fileType")
	assert.Contains(t, p.SQL(), "1 = 0")
}

func TestBuild_SendersAreBound(t *testing.T) {
	f := stdFilter()
	evil := "x' OR '1'='1"
	f.SenderAnyOf = []string{"frodo.example", evil}

	p, err := Build(identity, key(9), f)
	require.NoError(t, err)
	assert.Contains(t, p.SQL(), "m.senderId IN (?, ?)")
	assert.NotContains(t, p.SQL(), "frodo")
	assert.Contains(t, p.Args, evil)
}

func TestBuild_TagAnyOfSubSelect(t *testing.T) {
	f := stdFilter()
	f.TagsAnyOf = []uuid.UUID{key(1), key(2), key(3)}
	f.LocalTagsAnyOf = []uuid.UUID{key(4)}

	p, err := Build(identity, key(9), f)
	require.NoError(t, err)
	assert.Contains(t, p.SQL(), "m.fileId IN (SELECT fileId FROM driveTagIndex WHERE identityId = ? AND driveId = ? AND tagId IN (?, ?, ?))")
	assert.Contains(t, p.SQL(), "m.fileId IN (SELECT fileId FROM driveLocalTagIndex WHERE identityId = ? AND driveId = ? AND tagId IN (?))")
	assert.Equal(t, strings.Count(p.SQL(), "?"), len(p.Args))
}

func TestBuild_TagAllOfIntersects(t *testing.T) {
	f := stdFilter()
	f.TagsAllOf = []uuid.UUID{key(1), key(2)}

	p, err := Build(identity, key(9), f)
	require.NoError(t, err)

	want := "m.fileId IN (SELECT fileId FROM driveTagIndex WHERE identityId = ? AND driveId = ? AND tagId = ? INTERSECT " +
		"SELECT fileId FROM driveTagIndex WHERE identityId = ? AND driveId = ? AND tagId = ?)"
	assert.Contains(t, p.SQL(), want)
	assert.Equal(t, strings.Count(p.SQL(), "?"), len(p.Args))
}

func TestBuild_PlaceholdersMatchArgs(t *testing.T) {
	gt, grp, uq := key(21), key(22), key(23)
	f := stdFilter()
	f.ACLAnyOf = []uuid.UUID{key(1)}
	f.FileStateAnyOf = []models.FileState{models.FileStateActive}
	f.FileTypeAnyOf = []int32{1, 2}
	f.DataTypeAnyOf = []int32{3}
	f.GlobalTransitIDAnyOf = []uuid.UUID{gt}
	f.UniqueIDAnyOf = []uuid.UUID{uq}
	f.SenderAnyOf = []string{"a"}
	f.GroupIDAnyOf = []uuid.UUID{grp}
	f.ArchivalStatusAnyOf = []int32{0, 1}
	f.TagsAnyOf = []uuid.UUID{key(2)}
	f.LocalTagsAnyOf = []uuid.UUID{key(3)}
	f.TagsAllOf = []uuid.UUID{key(4), key(5), key(6)}
	f.LocalTagsAllOf = []uuid.UUID{key(7)}
	f.UserDate = &TimeRange{Start: 1, End: 2}

	p, err := Build(identity, key(9), f)
	require.NoError(t, err)
	assert.Equal(t, strings.Count(p.SQL(), "?"), len(p.Args))
	assert.Len(t, p.Where, 18)
}
