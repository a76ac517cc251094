package pstable

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Iron-Ham/caplog/internal/errors"
	"github.com/Iron-Ham/caplog/internal/logging"
	"github.com/Iron-Ham/caplog/internal/process"
)

const logTag = "pstable"

// Record is one row of the process table.
type Record struct {
	PID  string
	User string
	Name string
}

// columnSeparator splits on runs of whitespace, swallowing a lone capital
// letter between them (the one-letter state column some ps variants print
// without a header of its own).
var columnSeparator = regexp.MustCompile(`\s+[A-Z]?\s+|\s+`)

// Header names accepted for each required column, compared case-insensitively.
var (
	userColumns = []string{"USER"}
	pidColumns  = []string{"PID"}
	nameColumns = []string{"NAME", "COMM", "COMMAND", "CMD"}
)

// Config holds the listing command of a Reader.
type Config struct {
	// Command is the listing command. Defaults to "ps".
	Command string

	// Args are passed to Command for a full listing.
	Args []string

	// NameFlag, when set, narrows the listing to one command name by
	// appending "<NameFlag> <name>" to Args (e.g. "-C" for procps). When
	// empty the full listing is always used.
	NameFlag string

	// Logger receives diagnostics. Defaults to logging.Default().
	Logger *logging.Logger
}

// Reader lists processes through a process.Runner.
type Reader struct {
	runner process.Runner
	config Config
	logger *logging.Logger
}

// NewReader creates a Reader.
func NewReader(runner process.Runner, config Config) *Reader {
	if config.Command == "" {
		config.Command = "ps"
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Reader{runner: runner, config: config, logger: logger}
}

// List returns the rows of the process table. A non-empty name keeps only
// rows whose command name equals it exactly.
//
// Errors wrap errors.ErrExecution when the listing command cannot be run
// and errors.ErrParse when its header lacks a required column.
func (r *Reader) List(ctx context.Context, name string) ([]Record, error) {
	return r.list(ctx, name, true)
}

// list runs the listing. Without needPID a header lacking a PID column is
// accepted and records carry an empty PID.
func (r *Reader) list(ctx context.Context, name string, needPID bool) ([]Record, error) {
	argv := r.argv(name)
	res, err := r.runner.Run(ctx, argv)
	if err != nil {
		r.logger.Error(logTag, "failed to run "+strings.Join(argv, " "), err)
		return nil, err
	}

	records, err := parse(res.Lines(), needPID)
	if err != nil {
		r.logger.Error(logTag, "failed to parse process listing", err)
		return nil, err
	}
	if name == "" {
		return records, nil
	}

	matched := records[:0]
	for _, rec := range records {
		if rec.CommandName() == name {
			matched = append(matched, rec)
		}
	}
	return matched, nil
}

// FindOwner returns the user running the first process whose command name
// equals name. It returns an error wrapping errors.ErrIdentityUnknown when
// no such process exists. The listing needs no PID column.
func (r *Reader) FindOwner(ctx context.Context, name string) (string, error) {
	records, err := r.list(ctx, name, false)
	if err != nil {
		return "", err
	}
	for _, rec := range records {
		if rec.User != "" {
			r.logger.Trace(logTag, fmt.Sprintf("%s is run by %s (pid %s)", name, rec.User, rec.PID))
			return rec.User, nil
		}
	}
	return "", fmt.Errorf("%w: no process named %q", errors.ErrIdentityUnknown, name)
}

// FindOwnedBy returns the first process named name that is run by user.
// The boolean is false when there is none.
func (r *Reader) FindOwnedBy(ctx context.Context, user, name string) (Record, bool, error) {
	records, err := r.List(ctx, name)
	if err != nil {
		return Record{}, false, err
	}
	for _, rec := range records {
		if rec.User == user {
			return rec, true, nil
		}
	}
	return Record{}, false, nil
}

func (r *Reader) argv(name string) []string {
	argv := append([]string{r.config.Command}, r.config.Args...)
	if name != "" && r.config.NameFlag != "" {
		argv = append(argv, r.config.NameFlag, name)
	}
	return argv
}

// CommandName is the base name of the Name column. Some ps variants print
// the executable path there.
func (rec Record) CommandName() string {
	return filepath.Base(rec.Name)
}

// Parse turns listing output, header first, into records. Data lines with
// too few columns are skipped.
func Parse(lines []string) ([]Record, error) {
	return parse(lines, true)
}

func parse(lines []string, needPID bool) ([]Record, error) {
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return nil, errors.NewParseError("")
	}

	header := lines[0]
	columns := split(header)
	userIdx := indexOf(columns, userColumns)
	pidIdx := indexOf(columns, pidColumns)
	nameIdx := indexOf(columns, nameColumns)

	var missing []string
	if userIdx < 0 {
		missing = append(missing, "USER")
	}
	if pidIdx < 0 && needPID {
		missing = append(missing, "PID")
	}
	if nameIdx < 0 {
		missing = append(missing, "NAME")
	}
	if len(missing) > 0 {
		return nil, errors.NewParseError(header, missing...)
	}

	need := max(userIdx, pidIdx, nameIdx)
	records := make([]Record, 0, len(lines)-1)
	for _, line := range lines[1:] {
		fields := split(line)
		if len(fields) <= need {
			continue
		}
		rec := Record{User: fields[userIdx], Name: fields[nameIdx]}
		if pidIdx >= 0 {
			rec.PID = fields[pidIdx]
		}
		records = append(records, rec)
	}
	return records, nil
}

func split(line string) []string {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	return columnSeparator.Split(line, -1)
}

func indexOf(columns []string, names []string) int {
	for i, c := range columns {
		for _, n := range names {
			if strings.EqualFold(c, n) {
				return i
			}
		}
	}
	return -1
}
