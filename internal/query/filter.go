// Package query builds the filter predicates over the drive index and runs
// the cursor-paginated batch and modified-since queries.
package query

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/driveindex/internal/common"
	"github.com/dmitrijs2005/driveindex/internal/models"
	"github.com/dmitrijs2005/driveindex/internal/repositories/memberships"
	"github.com/google/uuid"
)

// IntRange is an inclusive integer range.
type IntRange struct {
	Start int32 `json:"start"`
	End   int32 `json:"end"`
}

// TimeRange is an inclusive range of epoch milliseconds.
type TimeRange struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Filter narrows a query. A nil list imposes no constraint; a non-nil
// empty any-of list matches nothing, except ACLAnyOf where it leaves only
// files without ACL rows. A non-nil empty all-of list is rejected.
type Filter struct {
	FileSystemType *models.FileSystemType `json:"fileSystemType"`
	SecurityGroup  *IntRange              `json:"securityGroup"`

	ACLAnyOf             []uuid.UUID        `json:"aclAnyOf"`
	FileStateAnyOf       []models.FileState `json:"fileStateAnyOf"`
	FileTypeAnyOf        []int32            `json:"fileTypeAnyOf"`
	DataTypeAnyOf        []int32            `json:"dataTypeAnyOf"`
	GlobalTransitIDAnyOf []uuid.UUID        `json:"globalTransitIdAnyOf"`
	UniqueIDAnyOf        []uuid.UUID        `json:"uniqueIdAnyOf"`
	SenderAnyOf          []string           `json:"senderAnyOf"`
	GroupIDAnyOf         []uuid.UUID        `json:"groupIdAnyOf"`
	ArchivalStatusAnyOf  []int32            `json:"archivalStatusAnyOf"`
	TagsAnyOf            []uuid.UUID        `json:"tagsAnyOf"`
	LocalTagsAnyOf       []uuid.UUID        `json:"localTagsAnyOf"`

	TagsAllOf      []uuid.UUID `json:"tagsAllOf"`
	LocalTagsAllOf []uuid.UUID `json:"localTagsAllOf"`

	UserDate *TimeRange `json:"userDate"`
}

// Predicate is a conjunction of conditions over the main table aliased
// "m", with '?' placeholders bound positionally by Args.
type Predicate struct {
	Join  string
	Where []string
	Args  []any
}

// SQL joins the conditions with AND.
func (p Predicate) SQL() string {
	return strings.Join(p.Where, " AND ")
}

func (p *Predicate) add(cond string, args ...any) {
	p.Where = append(p.Where, cond)
	p.Args = append(p.Args, args...)
}

// anyOf adds "col IN (...)". nil values mean the filter is absent.
func (p *Predicate) anyOf(col string, values []any) {
	if values == nil {
		return
	}
	if len(values) == 0 {
		p.add("1 = 0")
		return
	}
	p.add(fmt.Sprintf("%s IN (%s)", col, placeholders(len(values))), values...)
}

// Validate checks the caller contract without touching storage.
func (f Filter) Validate() error {
	if f.FileSystemType == nil {
		return common.NewValidationError("fileSystemType", "is required")
	}
	if f.SecurityGroup == nil {
		return common.NewValidationError("securityGroup", "is required")
	}
	if f.SecurityGroup.Start > f.SecurityGroup.End {
		return common.NewValidationError("securityGroup", "start is after end")
	}
	if f.UserDate != nil && f.UserDate.Start > f.UserDate.End {
		return common.NewValidationError("userDate", "start is after end")
	}
	if f.TagsAllOf != nil && len(f.TagsAllOf) == 0 {
		return common.NewValidationError("tagsAllOf", "needs at least one tag")
	}
	if f.LocalTagsAllOf != nil && len(f.LocalTagsAllOf) == 0 {
		return common.NewValidationError("localTagsAllOf", "needs at least one tag")
	}
	return nil
}

// Build translates f into a predicate scoped to one identity and drive.
func Build(identity, drive uuid.UUID, f Filter) (Predicate, error) {
	if err := f.Validate(); err != nil {
		return Predicate{}, err
	}

	var p Predicate
	p.add("m.identityId = ?", models.Key(identity))
	p.add("m.driveId = ?", models.Key(drive))
	p.add("m.fileSystemType = ?", int64(*f.FileSystemType))
	p.add("m.requiredSecurityGroup BETWEEN ? AND ?", int64(f.SecurityGroup.Start), int64(f.SecurityGroup.End))

	if f.ACLAnyOf != nil {
		p.Join = fmt.Sprintf("LEFT JOIN %s acl ON acl.identityId = m.identityId AND acl.driveId = m.driveId AND acl.fileId = m.fileId",
			memberships.ACL.Name)
		if len(f.ACLAnyOf) == 0 {
			p.add("acl.fileId IS NULL")
		} else {
			p.add(fmt.Sprintf("(acl.fileId IS NULL OR acl.%s IN (%s))", memberships.ACL.Column, placeholders(len(f.ACLAnyOf))),
				models.Keys(f.ACLAnyOf)...)
		}
	}

	p.anyOf("m.fileState", fileStates(f.FileStateAnyOf))
	p.anyOf("m.fileType", ints(f.FileTypeAnyOf))
	p.anyOf("m.dataType", ints(f.DataTypeAnyOf))
	p.anyOf("m.globalTransitId", keys(f.GlobalTransitIDAnyOf))
	p.anyOf("m.uniqueId", keys(f.UniqueIDAnyOf))
	p.anyOf("m.senderId", strs(f.SenderAnyOf))
	p.anyOf("m.groupId", keys(f.GroupIDAnyOf))
	p.anyOf("m.archivalStatus", ints(f.ArchivalStatusAnyOf))

	tagAnyOf(&p, memberships.Tags, identity, drive, f.TagsAnyOf)
	tagAnyOf(&p, memberships.LocalTags, identity, drive, f.LocalTagsAnyOf)

	if f.UserDate != nil {
		p.add("m.userDate BETWEEN ? AND ?", f.UserDate.Start, f.UserDate.End)
	}

	tagAllOf(&p, memberships.Tags, identity, drive, f.TagsAllOf)
	tagAllOf(&p, memberships.LocalTags, identity, drive, f.LocalTagsAllOf)

	return p, nil
}

func tagAnyOf(p *Predicate, t memberships.Table, identity, drive uuid.UUID, tags []uuid.UUID) {
	if tags == nil {
		return
	}
	if len(tags) == 0 {
		p.add("1 = 0")
		return
	}
	args := append([]any{models.Key(identity), models.Key(drive)}, models.Keys(tags)...)
	p.add(fmt.Sprintf("m.fileId IN (SELECT fileId FROM %s WHERE identityId = ? AND driveId = ? AND %s IN (%s))",
		t.Name, t.Column, placeholders(len(tags))), args...)
}

// tagAllOf intersects one sub-select per tag. Callers validate that tags
// is non-empty when set.
func tagAllOf(p *Predicate, t memberships.Table, identity, drive uuid.UUID, tags []uuid.UUID) {
	if len(tags) == 0 {
		return
	}
	selects := make([]string, len(tags))
	args := make([]any, 0, len(tags)*3)
	for i, tag := range tags {
		selects[i] = fmt.Sprintf("SELECT fileId FROM %s WHERE identityId = ? AND driveId = ? AND %s = ?", t.Name, t.Column)
		args = append(args, models.Key(identity), models.Key(drive), models.Key(tag))
	}
	p.add(fmt.Sprintf("m.fileId IN (%s)", strings.Join(selects, " INTERSECT ")), args...)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func keys(ids []uuid.UUID) []any {
	if ids == nil {
		return nil
	}
	return models.Keys(ids)
}

func ints(in []int32) []any {
	if in == nil {
		return nil
	}
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}

func fileStates(in []models.FileState) []any {
	if in == nil {
		return nil
	}
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}

func strs(in []string) []any {
	if in == nil {
		return nil
	}
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
