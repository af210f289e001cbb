//go:build !windows

// terminal_jam_posix.go - Raw stdin loop for POSIX terminals

package main

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"golang.org/x/term"
)

// Run puts the terminal in raw mode and plays keys until Ctrl-C or ESC.
// Stdin is switched to nonblocking reads so the loop can refresh the status
// line while idle.
func (j *TerminalJam) Run() error {
	j.fd = int(os.Stdin.Fd())

	// Raw mode disables OS echo and line buffering; it also disables signal
	// generation, so Ctrl-C arrives as byte 0x03 and is handled in handleKey.
	oldState, err := term.MakeRaw(j.fd)
	if err != nil {
		return fmt.Errorf("set raw mode: %w", err)
	}
	j.oldTermState = oldState
	defer j.restore()

	if err := syscall.SetNonblock(j.fd, true); err != nil {
		return fmt.Errorf("set nonblocking stdin: %w", err)
	}
	j.nonblockSet = true

	j.printBanner()

	buf := make([]byte, 1)
	tick := 0
	for {
		n, err := syscall.Read(j.fd, buf)
		if n > 0 {
			if !j.handleKey(buf[0]) {
				break
			}
			j.printStatus()
			continue
		}
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK || n == 0 {
			time.Sleep(5 * time.Millisecond)
			tick++
			if tick%jamStatusTicks == 0 {
				j.printStatus()
			}
			continue
		}
		if err != nil {
			break
		}
	}

	j.engine.AllNotesOff()
	fmt.Print("\r\n")
	return nil
}

func (j *TerminalJam) restore() {
	j.stopReleases()

	if j.nonblockSet {
		_ = syscall.SetNonblock(j.fd, false)
		j.nonblockSet = false
	}
	if j.oldTermState != nil {
		_ = term.Restore(j.fd, j.oldTermState)
		j.oldTermState = nil
	}
}
