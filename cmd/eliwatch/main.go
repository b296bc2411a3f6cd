package main

import (
	"eliwatch/internal/cli"
	_ "eliwatch/internal/checks/fields"
)

// Set at build time: -ldflags "-X main.version=... -X main.commit=... -X main.date=..."
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cli.SetBuildInfo(version, commit, date)
	cli.Execute()
}
