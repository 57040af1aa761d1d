package main

import (
	"os"

	"github.com/cettopper/exam-portal/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
