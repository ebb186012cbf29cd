package main

import (
	"os"
	"runtime/debug"

	"github.com/marmos91/httpsys/cmd/httpsys/commands"
)

// Set by the release build with -ldflags "-X main.version=... -X main.commit=... -X main.date=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	info, _ := debug.ReadBuildInfo()
	commands.SetBuildInfo(version, commit, date, info)

	if err := commands.Execute(); err != nil {
		commands.PrintErr("Error: %v", err)
		os.Exit(1)
	}
}
