package main

import (
	"fmt"
	"os"

	"github.com/terraincognita07/paindiary/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "paindiary: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
