// Package prefs is a namespaced, persisted key-value store for string, int
// and bool values.
//
// Each namespace is one YAML file, <dir>/<namespace>.yaml, accessed through
// an afero filesystem so tests can run against memory. Every Set is written
// through immediately (temp file + rename) and every Get reads the file
// again, so a value set by one process is visible to the next Get in any
// other, including after a restart.
//
// On the OS filesystem each write holds a go-filemutex lock on
// <dir>/<namespace>.yaml.lock for its read-modify-write, so concurrent
// writers in separate processes do not lose each other's keys.
//
// [Store.Watch] reports changes made by other processes using fsnotify.
package prefs
