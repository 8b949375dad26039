package main

import (
	"os"

	"github.com/faceaudit/faceaudit/internal/cli"
	"github.com/faceaudit/faceaudit/internal/version"
)

func main() {
	cli.Version = version.Version
	cli.BuildTime = version.BuildTime

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
