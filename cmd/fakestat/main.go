package main

import (
	"os"

	"github.com/AngelCh415/fakestat/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
