//go:build windows

// terminal_jam_windows.go - Raw stdin loop for Windows consoles

package main

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/term"
)

// Run puts the console in raw mode and plays keys until Ctrl-C or ESC.
// Windows has no nonblocking stdin, so reads block and the status line only
// refreshes after a keypress.
func (j *TerminalJam) Run() error {
	j.fd = int(os.Stdin.Fd())

	oldState, err := term.MakeRaw(j.fd)
	if err != nil {
		return fmt.Errorf("set raw mode: %w", err)
	}
	j.oldTermState = oldState
	defer j.restore()

	j.printBanner()

	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			if !j.handleKey(buf[0]) {
				break
			}
			j.printStatus()
		}
		if err != nil {
			break
		}
		if n == 0 {
			time.Sleep(5 * time.Millisecond)
		}
	}

	j.engine.AllNotesOff()
	fmt.Print("\r\n")
	return nil
}

func (j *TerminalJam) restore() {
	j.stopReleases()

	if j.oldTermState != nil {
		_ = term.Restore(j.fd, j.oldTermState)
		j.oldTermState = nil
	}
}
