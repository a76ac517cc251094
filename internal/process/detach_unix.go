//go:build unix

package process

import "syscall"

// detachedAttr starts the child in a new session so it survives the caller
// and does not receive its terminal signals.
func detachedAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
