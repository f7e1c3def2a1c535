package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/dmitrijs2005/driveindex/internal/flagx"
	"github.com/dmitrijs2005/driveindex/internal/models"
	"github.com/dmitrijs2005/driveindex/internal/query"
	"github.com/google/uuid"
)

// ErrUsage is returned for an unknown command or bad command flags.
var ErrUsage = errors.New("usage")

const usage = `usage: indexctl <command> [flags]

commands:
  migrate      apply schema migrations
  stats        file count and bytes of a drive (-drive), or total bytes
  get          one record by -file, -unique or -gtid
  put          upsert the JSON {"record":…,"acl":[…],"tags":[…]} read from stdin
  delete       remove -file and its memberships
  localtags    replace local tags of -file with -tags
  localmeta    write -data as local app data of -file, guarded by -version
  query        batch query (-auto for the auto-advancing variant)
  modified     records modified after -cursor

query and modified require -sg start:end. Negative numbers may follow a
flag directly (-from -5) or use the -from=-5 form.`

// dispatch runs the command named by args[0]. Global config flags may
// appear anywhere after it; each command only reads its own flags.
func (app *App) dispatch(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return fmt.Errorf("%w: %s", ErrUsage, usage)
	}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "migrate":
		if err := app.Migrate(ctx); err != nil {
			return err
		}
		return writeJSON(stdout, map[string]string{"status": "ok"})
	case "stats":
		return app.stats(ctx, rest, stdout)
	case "get":
		return app.get(ctx, rest, stdout)
	case "put":
		return app.put(ctx, rest, stdin, stdout)
	case "delete":
		return app.delete(ctx, rest, stdout)
	case "localtags":
		return app.localTags(ctx, rest, stdout)
	case "localmeta":
		return app.localMeta(ctx, rest, stdout)
	case "query":
		return app.query(ctx, rest, stdout)
	case "modified":
		return app.modified(ctx, rest, stdout)
	case "help":
		_, err := fmt.Fprintln(stdout, usage)
		return err
	default:
		return fmt.Errorf("%w: unknown command %q\n%s", ErrUsage, cmd, usage)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parse(fs *flag.FlagSet, args []string) error {
	fs.SetOutput(io.Discard)
	if err := fs.Parse(flagx.FilterArgs(args, flagx.Names(fs))); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUsage, fs.Name(), err)
	}
	return nil
}

type uuidFlag struct {
	id  uuid.UUID
	set bool
}

func (f *uuidFlag) String() string {
	if !f.set {
		return ""
	}
	return f.id.String()
}

func (f *uuidFlag) Set(s string) error {
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	f.id, f.set = id, true
	return nil
}

func required(name string, f *uuidFlag) error {
	if !f.set {
		return fmt.Errorf("%w: -%s is required", ErrUsage, name)
	}
	return nil
}

func (app *App) stats(ctx context.Context, args []string, stdout io.Writer) error {
	var drive uuidFlag
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.Var(&drive, "drive", "drive id")
	if err := parse(fs, args); err != nil {
		return err
	}

	if !drive.set {
		total, err := app.index.TotalSize(ctx)
		if err != nil {
			return err
		}
		return writeJSON(stdout, map[string]int64{"bytes": total})
	}
	count, bytes, err := app.index.DriveSize(ctx, drive.id)
	if err != nil {
		return err
	}
	return writeJSON(stdout, map[string]any{"drive": drive.id, "files": count, "bytes": bytes})
}

func (app *App) get(ctx context.Context, args []string, stdout io.Writer) error {
	var drive, file, unique, gtid uuidFlag
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	fs.Var(&drive, "drive", "drive id")
	fs.Var(&file, "file", "file id")
	fs.Var(&unique, "unique", "unique id")
	fs.Var(&gtid, "gtid", "global transit id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required("drive", &drive); err != nil {
		return err
	}

	var (
		rec *models.MainIndexRecord
		err error
	)
	switch {
	case file.set:
		rec, err = app.index.Get(ctx, drive.id, file.id)
	case unique.set:
		rec, err = app.index.GetByUniqueID(ctx, drive.id, unique.id)
	case gtid.set:
		rec, err = app.index.GetByGlobalTransitID(ctx, drive.id, gtid.id)
	default:
		return fmt.Errorf("%w: one of -file, -unique or -gtid is required", ErrUsage)
	}
	if err != nil {
		return err
	}

	out := struct {
		Record    *models.MainIndexRecord `json:"record"`
		ACL       []uuid.UUID             `json:"acl"`
		Tags      []uuid.UUID             `json:"tags"`
		LocalTags []uuid.UUID             `json:"localTags"`
	}{Record: rec}
	if out.ACL, err = app.index.ACL(ctx, rec.DriveID, rec.FileID); err != nil {
		return err
	}
	if out.Tags, err = app.index.Tags(ctx, rec.DriveID, rec.FileID); err != nil {
		return err
	}
	if out.LocalTags, err = app.index.LocalTags(ctx, rec.DriveID, rec.FileID); err != nil {
		return err
	}
	return writeJSON(stdout, out)
}

// putRequest is the stdin document of "put". Absent acl or tags leave the
// stored memberships alone.
type putRequest struct {
	Record *models.MainIndexRecord `json:"record"`
	ACL    []uuid.UUID             `json:"acl"`
	Tags   []uuid.UUID             `json:"tags"`
}

func (app *App) put(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("put", flag.ContinueOnError)
	if err := parse(fs, args); err != nil {
		return err
	}

	var req putRequest
	if err := json.NewDecoder(stdin).Decode(&req); err != nil {
		return fmt.Errorf("%w: put: decode stdin: %v", ErrUsage, err)
	}
	if req.Record == nil {
		return fmt.Errorf("%w: put: record is required", ErrUsage)
	}
	if req.Record.FileID == uuid.Nil {
		req.Record.FileID = models.NewFileID()
	}

	if _, err := app.index.Upsert(ctx, req.Record, req.ACL, req.Tags); err != nil {
		return err
	}
	return writeJSON(stdout, req.Record)
}

func (app *App) delete(ctx context.Context, args []string, stdout io.Writer) error {
	var drive, file uuidFlag
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.Var(&drive, "drive", "drive id")
	fs.Var(&file, "file", "file id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := errors.Join(required("drive", &drive), required("file", &file)); err != nil {
		return err
	}

	n, err := app.index.Delete(ctx, drive.id, file.id)
	if err != nil {
		return err
	}
	return writeJSON(stdout, map[string]int{"deleted": n})
}

func (app *App) localTags(ctx context.Context, args []string, stdout io.Writer) error {
	var (
		drive, file uuidFlag
		tags        flagx.UUIDList
	)
	fs := flag.NewFlagSet("localtags", flag.ContinueOnError)
	fs.Var(&drive, "drive", "drive id")
	fs.Var(&file, "file", "file id")
	fs.Var(&tags, "tags", "comma separated local tags")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := errors.Join(required("drive", &drive), required("file", &file)); err != nil {
		return err
	}

	if err := app.index.UpdateLocalTags(ctx, drive.id, file.id, tags.IDs); err != nil {
		return err
	}
	return writeJSON(stdout, map[string]any{"file": file.id, "localTags": tags.IDs})
}

func (app *App) localMeta(ctx context.Context, args []string, stdout io.Writer) error {
	var (
		drive, file, version uuidFlag
		tags                 flagx.UUIDList
		data                 string
	)
	fs := flag.NewFlagSet("localmeta", flag.ContinueOnError)
	fs.Var(&drive, "drive", "drive id")
	fs.Var(&file, "file", "file id")
	fs.Var(&version, "version", "local version tag last seen, empty for a file without local data")
	fs.Var(&tags, "tags", "comma separated local tags; omitted leaves them alone")
	fs.StringVar(&data, "data", "", "local app data")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := errors.Join(required("drive", &drive), required("file", &file)); err != nil {
		return err
	}

	tag, err := app.index.UpdateLocalMetadata(ctx, drive.id, file.id, version.id, []byte(data), tags.IDs)
	if err != nil {
		return err
	}
	return writeJSON(stdout, map[string]any{"file": file.id, "localVersionTag": tag})
}

// filterFlags registers the filter flags shared by query and modified.
type filterFlags struct {
	fst                 int
	sg                  flagx.Int32Range
	acl                 flagx.UUIDList
	tags, allTags       flagx.UUIDList
	local, allLocal     flagx.UUIDList
	groups, gtids, uqs  flagx.UUIDList
	states, types, data flagx.Int32List
	archival            flagx.Int32List
	senders             flagx.StringList
	from, to            int64
}

func (f *filterFlags) register(fs *flag.FlagSet) {
	fs.IntVar(&f.fst, "fst", int(models.FileSystemTypeStandard), "file system type")
	fs.Var(&f.sg, "sg", "security group range start:end, required")
	fs.Var(&f.acl, "acl", "ACL members, any of")
	fs.Var(&f.tags, "tags", "tags, any of")
	fs.Var(&f.allTags, "alltags", "tags, all of")
	fs.Var(&f.local, "localtags", "local tags, any of")
	fs.Var(&f.allLocal, "alllocaltags", "local tags, all of")
	fs.Var(&f.groups, "groups", "group ids, any of")
	fs.Var(&f.gtids, "gtids", "global transit ids, any of")
	fs.Var(&f.uqs, "uniques", "unique ids, any of")
	fs.Var(&f.states, "states", "file states, any of")
	fs.Var(&f.types, "filetypes", "file types, any of")
	fs.Var(&f.data, "datatypes", "data types, any of")
	fs.Var(&f.archival, "archival", "archival statuses, any of")
	fs.Var(&f.senders, "senders", "senders, any of")
	fs.Int64Var(&f.from, "from", 0, "user date lower bound, epoch ms")
	fs.Int64Var(&f.to, "to", 0, "user date upper bound, epoch ms")
}

func (f *filterFlags) filter() query.Filter {
	fst := models.FileSystemType(f.fst)

	out := query.Filter{
		FileSystemType:       &fst,
		ACLAnyOf:             f.acl.IDs,
		TagsAnyOf:            f.tags.IDs,
		TagsAllOf:            f.allTags.IDs,
		LocalTagsAnyOf:       f.local.IDs,
		LocalTagsAllOf:       f.allLocal.IDs,
		GroupIDAnyOf:         f.groups.IDs,
		GlobalTransitIDAnyOf: f.gtids.IDs,
		UniqueIDAnyOf:        f.uqs.IDs,
		FileTypeAnyOf:        f.types.Values,
		DataTypeAnyOf:        f.data.Values,
		ArchivalStatusAnyOf:  f.archival.Values,
		SenderAnyOf:          f.senders.Values,
	}
	// Without -sg the filter is left incomplete and the engine rejects it.
	if f.sg.Given {
		out.SecurityGroup = &query.IntRange{Start: f.sg.Start, End: f.sg.End}
	}
	if f.states.Values != nil {
		out.FileStateAnyOf = make([]models.FileState, len(f.states.Values))
		for i, v := range f.states.Values {
			out.FileStateAnyOf[i] = models.FileState(v)
		}
	}
	if f.from != 0 || f.to != 0 {
		to := f.to
		if to == 0 {
			to = math.MaxInt64
		}
		out.UserDate = &query.TimeRange{Start: f.from, End: to}
	}
	return out
}

func (app *App) query(ctx context.Context, args []string, stdout io.Writer) error {
	var (
		drive      uuidFlag
		ff         filterFlags
		n          int
		cursor     string
		oldest, ud bool
		auto       bool
	)
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	fs.Var(&drive, "drive", "drive id")
	fs.IntVar(&n, "n", 10, "page size")
	fs.StringVar(&cursor, "cursor", "", "cursor from a previous call")
	fs.BoolVar(&oldest, "oldest", false, "oldest first")
	fs.BoolVar(&ud, "userdate", false, "order by user date, then file id")
	fs.BoolVar(&auto, "auto", false, "auto-advancing newest-first query")
	ff.register(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required("drive", &drive); err != nil {
		return err
	}

	c, err := query.ParseBatchCursor(cursor)
	if err != nil {
		return err
	}

	if auto {
		res, err := app.index.QueryBatchAuto(ctx, query.AutoParams{DriveID: drive.id, Limit: n, Cursor: c, Filter: ff.filter()})
		if err != nil {
			return err
		}
		return writeJSON(stdout, res)
	}

	p := query.BatchParams{DriveID: drive.id, Limit: n, Cursor: c, Filter: ff.filter()}
	if oldest {
		p.Order = query.OldestFirst
	}
	if ud {
		p.SortBy = query.SortByUserDate
	}
	res, err := app.index.QueryBatch(ctx, p)
	if err != nil {
		return err
	}
	return writeJSON(stdout, res)
}

func (app *App) modified(ctx context.Context, args []string, stdout io.Writer) error {
	var (
		drive   uuidFlag
		ff      filterFlags
		n       int
		cursor  string
		ceiling int64
	)
	fs := flag.NewFlagSet("modified", flag.ContinueOnError)
	fs.Var(&drive, "drive", "drive id")
	fs.IntVar(&n, "n", 10, "page size")
	fs.StringVar(&cursor, "cursor", "", "ts,seq cursor from a previous call")
	fs.Int64Var(&ceiling, "ceiling", 0, "exclude rows modified at or after this epoch ms")
	ff.register(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required("drive", &drive); err != nil {
		return err
	}

	p := query.ModifiedParams{DriveID: drive.id, Limit: n, Cursor: cursor, Filter: ff.filter()}
	if ceiling > 0 {
		p.Ceiling = &ceiling
	}
	res, err := app.index.QueryModified(ctx, p)
	if err != nil {
		return err
	}
	return writeJSON(stdout, res)
}
