package pstable

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Iron-Ham/caplog/internal/errors"
	"github.com/Iron-Ham/caplog/internal/logging"
	"github.com/Iron-Ham/caplog/internal/process"
	"github.com/Iron-Ham/caplog/internal/testutil"
)

func newTestReader(runner *testutil.FakeRunner, config Config) *Reader {
	config.Logger = logging.Nop()
	return NewReader(runner, config)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  []Record
	}{
		{
			name:  "plain columns",
			lines: []string{"USER PID NAME", "u0_a12 1234 com.example.app", "root 1 init"},
			want: []Record{
				{PID: "1234", User: "u0_a12", Name: "com.example.app"},
				{PID: "1", User: "root", Name: "init"},
			},
		},
		{
			name: "one-letter state column is swallowed",
			lines: []string{
				"USER     PID   PPID  VSIZE  RSS     WCHAN    PC         NAME",
				"u0_a12   1234  190   9000   4000 ffffffff 00000000 S com.example.app",
			},
			want: []Record{{PID: "1234", User: "u0_a12", Name: "com.example.app"}},
		},
		{
			name:  "right-aligned pid and lower-case header",
			lines: []string{"user       pid comm", "alice        42 logcat"},
			want:  []Record{{PID: "42", User: "alice", Name: "logcat"}},
		},
		{
			name:  "COMMAND header accepted as name",
			lines: []string{"USER PID COMMAND", "bob 7 /usr/bin/logcat"},
			want:  []Record{{PID: "7", User: "bob", Name: "/usr/bin/logcat"}},
		},
		{
			name:  "short rows skipped",
			lines: []string{"USER PID NAME", "broken", "", "carol 9 sh"},
			want:  []Record{{PID: "9", User: "carol", Name: "sh"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.lines)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Parse returned %d records, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("record %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParse_MissingColumns(t *testing.T) {
	tests := []struct {
		name    string
		lines   []string
		missing string
	}{
		{"no output", nil, ""},
		{"blank header", []string{"   "}, ""},
		{"no user", []string{"PID NAME"}, "USER"},
		{"no pid", []string{"USER NAME"}, "PID"},
		{"no name", []string{"USER PID TTY"}, "NAME"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.lines)
			if !errors.Is(err, errors.ErrParse) {
				t.Fatalf("Parse error = %v, want ErrParse", err)
			}
			var parseErr *errors.ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected *errors.ParseError, got %T", err)
			}
			if tt.missing != "" && !strings.Contains(strings.Join(parseErr.Missing, ","), tt.missing) {
				t.Errorf("Missing = %v, want it to contain %s", parseErr.Missing, tt.missing)
			}
		})
	}
}

func TestList_ExactNameMatch(t *testing.T) {
	runner := testutil.NewFakeRunner("alice")
	runner.AddProc("alice", "logcat")
	runner.AddProc("alice", "logcatd")
	runner.AddProc("alice", "mylogcat")
	runner.AddProc("bob", "logcat")

	r := newTestReader(runner, Config{})
	got, err := r.List(context.Background(), "logcat")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List returned %d records, want 2: %+v", len(got), got)
	}
	for _, rec := range got {
		if rec.Name != "logcat" {
			t.Errorf("unexpected match %+v", rec)
		}
	}
}

func TestFindOwnedBy_RejectsSubstrings(t *testing.T) {
	runner := testutil.NewFakeRunner("")
	// The user column of these rows contains the searched user as a substring.
	runner.AddProc("alice2", "logcat")
	runner.AddProc("xalice", "logcat")
	r := newTestReader(runner, Config{})

	_, found, err := r.FindOwnedBy(context.Background(), "alice", "logcat")
	if err != nil {
		t.Fatalf("FindOwnedBy failed: %v", err)
	}
	if found {
		t.Error("substring user matched")
	}

	pid := runner.AddProc("alice", "logcat")
	rec, found, err := r.FindOwnedBy(context.Background(), "alice", "logcat")
	if err != nil || !found {
		t.Fatalf("FindOwnedBy = %v, %v, want found", found, err)
	}
	if rec.PID != pid {
		t.Errorf("PID = %s, want %s", rec.PID, pid)
	}
}

func TestFindOwnedBy_PidContainingQueryIgnored(t *testing.T) {
	runner := testutil.NewFakeRunner("")
	runner.Output = "USER PID NAME\nroot 1042 logcat-helper\n"
	r := newTestReader(runner, Config{})

	_, found, err := r.FindOwnedBy(context.Background(), "root", "1042")
	if err != nil {
		t.Fatalf("FindOwnedBy failed: %v", err)
	}
	if found {
		t.Error("a pid equal to the query must not match the name column")
	}
}

func TestFindOwner(t *testing.T) {
	runner := testutil.NewFakeRunner("")
	runner.AddProc("root", "init")
	runner.AddProc("u0_a99", "caplog")
	r := newTestReader(runner, Config{})

	user, err := r.FindOwner(context.Background(), "caplog")
	if err != nil {
		t.Fatalf("FindOwner failed: %v", err)
	}
	if user != "u0_a99" {
		t.Errorf("FindOwner = %q, want u0_a99", user)
	}

	if _, err := r.FindOwner(context.Background(), "caplo"); !errors.Is(err, errors.ErrIdentityUnknown) {
		t.Errorf("FindOwner(prefix) error = %v, want ErrIdentityUnknown", err)
	}
}

func TestFindOwner_WithoutPidColumn(t *testing.T) {
	runner := testutil.NewFakeRunner("")
	runner.Output = "USER NAME\nroot init\nu0_a99 caplog\n"
	r := newTestReader(runner, Config{})

	user, err := r.FindOwner(context.Background(), "caplog")
	if err != nil {
		t.Fatalf("FindOwner failed: %v", err)
	}
	if user != "u0_a99" {
		t.Errorf("FindOwner = %q, want u0_a99", user)
	}

	if _, err := r.List(context.Background(), "caplog"); !errors.Is(err, errors.ErrParse) {
		t.Errorf("List error = %v, want ErrParse for a listing without PID", err)
	}
	if _, _, err := r.FindOwnedBy(context.Background(), "u0_a99", "caplog"); !errors.Is(err, errors.ErrParse) {
		t.Errorf("FindOwnedBy error = %v, want ErrParse for a listing without PID", err)
	}
}

func TestList_CommandPathMatchesBaseName(t *testing.T) {
	runner := testutil.NewFakeRunner("")
	runner.Output = "USER PID COMMAND\nalice 10 /system/bin/logcat\n"
	r := newTestReader(runner, Config{})

	got, err := r.List(context.Background(), "logcat")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 1 || got[0].CommandName() != "logcat" {
		t.Errorf("List = %+v, want the /system/bin/logcat row", got)
	}
}

func TestList_Argv(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		query  string
		want   string
	}{
		{"default full listing", Config{}, "", "ps"},
		{"args", Config{Args: []string{"-A", "-o", "user,pid,comm"}}, "", "ps -A -o user,pid,comm"},
		{"no name flag ignores query", Config{}, "logcat", "ps"},
		{"name flag", Config{Command: "procs", NameFlag: "-C"}, "logcat", "procs -C logcat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := testutil.NewFakeRunner("")
			r := newTestReader(runner, tt.config)
			if _, err := r.List(context.Background(), tt.query); err != nil {
				t.Fatalf("List failed: %v", err)
			}
			runs := runner.Runs()
			if len(runs) != 1 || strings.Join(runs[0], " ") != tt.want {
				t.Errorf("ran %v, want %q", runs, tt.want)
			}
		})
	}
}

func TestList_Errors(t *testing.T) {
	t.Run("execution", func(t *testing.T) {
		runner := testutil.NewFakeRunner("")
		runner.RunErr = errors.NewExecutionError([]string{"ps"}, errors.New("not found"))
		_, err := newTestReader(runner, Config{}).List(context.Background(), "")
		if !errors.Is(err, errors.ErrExecution) {
			t.Errorf("List error = %v, want ErrExecution", err)
		}
	})

	t.Run("parse", func(t *testing.T) {
		runner := testutil.NewFakeRunner("")
		runner.Header = "UID PID CMD"
		_, err := newTestReader(runner, Config{}).List(context.Background(), "")
		if !errors.Is(err, errors.ErrParse) {
			t.Errorf("List error = %v, want ErrParse", err)
		}
	})
}

func TestReader_SystemListing(t *testing.T) {
	testutil.SkipIfNoCommand(t, "ps")

	r := NewReader(process.NewExecRunner(process.ExecConfig{Logger: logging.Nop()}), Config{
		Args:   []string{"-eo", "user,pid,comm"},
		Logger: logging.Nop(),
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	records, err := r.List(ctx, "")
	if err != nil {
		t.Skipf("ps does not support -eo here: %v", err)
	}
	if len(records) == 0 {
		t.Fatal("expected at least one process")
	}
	for _, rec := range records {
		if _, err := strconv.Atoi(rec.PID); err != nil {
			t.Errorf("row %+v has a non-numeric pid", rec)
		}
	}
}
