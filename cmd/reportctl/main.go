package main

import (
	"os"

	"saasreports/internal/cli"
)

func main() {
	cli.LoadEnvFile()
	if err := cli.NewRootCommand(nil, nil).Execute(); err != nil {
		os.Exit(1)
	}
}
