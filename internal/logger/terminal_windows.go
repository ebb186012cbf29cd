//go:build windows

package logger

import "golang.org/x/sys/windows"

// isTerminal reports whether fd is a console. Virtual terminal processing is
// enabled on the way so ANSI colors render in conhost.
func isTerminal(fd uintptr) bool {
	var mode uint32
	h := windows.Handle(fd)
	if err := windows.GetConsoleMode(h, &mode); err != nil {
		return false
	}
	if mode&windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING == 0 {
		_ = windows.SetConsoleMode(h, mode|windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING)
	}
	return true
}
