package logging

import (
	"bytes"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// Location identifies the call site of a logging call.
type Location struct {
	File     string // base name of the source file
	Line     int
	Function string // function name without its package path, e.g. "(*Supervisor).Start"
}

// IsZero reports whether no call site was captured.
func (loc Location) IsZero() bool {
	return loc.File == "" && loc.Line == 0 && loc.Function == ""
}

// Caller returns the Location of the function that called Caller, skipping
// skip additional frames. Wrappers around the Logger use it to pass their
// own caller to LogAt.
func Caller(skip int) Location {
	// 0 = locationAt, 1 = Caller, 2 = the function asking
	return locationAt(skip + 2)
}

func locationAt(skip int) Location {
	var pcs [1]uintptr
	if runtime.Callers(skip+1, pcs[:]) == 0 {
		return Location{}
	}
	frame, _ := runtime.CallersFrames(pcs[:]).Next()
	return Location{
		File:     filepath.Base(frame.File),
		Line:     frame.Line,
		Function: shortFuncName(frame.Function),
	}
}

// shortFuncName strips the import path and package name from a fully
// qualified function name.
func shortFuncName(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// contextPrefix renders "<tid>[(file:line)#method] ".
func contextPrefix(tid int64, loc Location) string {
	var sb strings.Builder
	sb.WriteByte('<')
	sb.WriteString(strconv.FormatInt(tid, 10))
	sb.WriteString(">[")
	if !loc.IsZero() {
		sb.WriteByte('(')
		sb.WriteString(loc.File)
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(loc.Line))
		sb.WriteString(")#")
		sb.WriteString(loc.Function)
	}
	sb.WriteString("] ")
	return sb.String()
}

var goroutinePrefix = []byte("goroutine ")

// goroutineID returns the id of the calling goroutine, parsed from the
// header line of its stack trace ("goroutine 18 [running]:").
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := bytes.TrimPrefix(buf[:n], goroutinePrefix)
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
