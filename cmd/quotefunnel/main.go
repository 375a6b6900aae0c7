package main

import (
	"os"

	"github.com/quotefunnel/quotefunnel/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
