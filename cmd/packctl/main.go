package main

import (
	"fmt"
	"os"

	"github.com/noah-isme/pack-progress-api/internal/cli"
)

func main() {
	if err := cli.NewRootCommand(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
