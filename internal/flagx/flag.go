// Package flagx holds flag helpers shared by the config loader and the
// indexctl subcommands.
package flagx

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// FilterArgs keeps only the allowed flags of args and their values, so
// several flag sets can read the same command line without tripping over
// each other's flags.
//
// Supported formats:
//  1. Flag and value as separate arguments:  -d index.db
//  2. Flag and value combined with '=':      -config=conf.json
//
// A separate value is taken only when it does not itself start with '-',
// unless it is a negative number such as -5 or -1:3. The result is never
// nil.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name, _, _ := strings.Cut(arg, "=")
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && (!strings.HasPrefix(args[i+1], "-") || negative(args[i+1])) {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// negative reports whether a dash-led argument is a negative number rather
// than a flag. Flag names never start with a digit.
func negative(arg string) bool {
	return len(arg) > 1 && arg[0] == '-' && arg[1] >= '0' && arg[1] <= '9'
}

// JsonConfigFlags returns the config file path given with -c or -config,
// or "" when neither is present.
func JsonConfigFlags() string {
	var config string

	args := FilterArgs(os.Args[1:], []string{"-c", "-config"})

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&config, "config", "", "Path to config file")
	fs.StringVar(&config, "c", "", "Path to config file (short)")
	_ = fs.Parse(args)

	return config
}

// UUIDList is a comma separated list of UUIDs. It stays nil until the flag
// is given; "-tags=" sets it to an empty, non-nil list.
type UUIDList struct {
	IDs []uuid.UUID
}

var _ flag.Value = (*UUIDList)(nil)

func (l *UUIDList) String() string {
	if l == nil {
		return ""
	}
	parts := make([]string, len(l.IDs))
	for i, id := range l.IDs {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}

func (l *UUIDList) Set(s string) error {
	ids := make([]uuid.UUID, 0)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return fmt.Errorf("invalid uuid %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	l.IDs = ids
	return nil
}

// Int32Range is an inclusive "start:end" range; a single number n means
// n:n.
type Int32Range struct {
	Start, End int32
	Given      bool
}

var _ flag.Value = (*Int32Range)(nil)

func (r *Int32Range) String() string {
	if r == nil || !r.Given {
		return ""
	}
	return fmt.Sprintf("%d:%d", r.Start, r.End)
}

func (r *Int32Range) Set(s string) error {
	lo, hi, found := strings.Cut(s, ":")
	start, err := strconv.ParseInt(strings.TrimSpace(lo), 10, 32)
	if err != nil {
		return fmt.Errorf("invalid range start %q", lo)
	}
	end := start
	if found {
		if end, err = strconv.ParseInt(strings.TrimSpace(hi), 10, 32); err != nil {
			return fmt.Errorf("invalid range end %q", hi)
		}
	}
	r.Start, r.End, r.Given = int32(start), int32(end), true
	return nil
}

// Int32List is a comma separated list of integers, nil until given.
type Int32List struct {
	Values []int32
}

var _ flag.Value = (*Int32List)(nil)

func (l *Int32List) String() string {
	if l == nil {
		return ""
	}
	parts := make([]string, len(l.Values))
	for i, v := range l.Values {
		parts[i] = strconv.FormatInt(int64(v), 10)
	}
	return strings.Join(parts, ",")
}

func (l *Int32List) Set(s string) error {
	values := make([]int32, 0)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseInt(part, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid number %q", part)
		}
		values = append(values, int32(v))
	}
	l.Values = values
	return nil
}

// StringList is a comma separated list of strings, nil until given.
type StringList struct {
	Values []string
}

var _ flag.Value = (*StringList)(nil)

func (l *StringList) String() string {
	if l == nil {
		return ""
	}
	return strings.Join(l.Values, ",")
}

func (l *StringList) Set(s string) error {
	values := make([]string, 0)
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	l.Values = values
	return nil
}

// Names returns the "-name" form of every flag defined on fs, ready for
// FilterArgs.
func Names(fs *flag.FlagSet) []string {
	var names []string
	fs.VisitAll(func(f *flag.Flag) {
		names = append(names, "-"+f.Name)
	})
	return names
}
