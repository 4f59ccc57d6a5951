// Command seamline tracks garment production progress.
package main

import (
	"os"

	"github.com/roach88/seamline/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
