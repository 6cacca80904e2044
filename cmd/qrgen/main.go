package main

import (
	"fmt"
	"os"

	"qrgen/cmd/qrgen/cmd"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	root := cmd.NewRootCommand(fmt.Sprintf("%s (commit: %s)", version, commit))
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
