// Package main is the entry point for the tmsctl CLI binary.
package main

import (
	"os"

	cli "tms-console/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
