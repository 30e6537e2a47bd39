package main

import (
	"serialtool/commands"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	commands.Execute(commands.BuildInfo{
		Version:   version,
		BuildTime: buildTime,
	})
}
